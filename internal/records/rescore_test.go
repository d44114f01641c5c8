package records_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/genomecurate/curia/internal/records"
	"github.com/genomecurate/curia/internal/schemas"
	"github.com/genomecurate/curia/pkg/pagination"
	"github.com/genomecurate/curia/pkg/scoring"
)

// stubSchemas satisfies schemas.System with a single injectable Find.
type stubSchemas struct {
	find func(ctx context.Context, id uuid.UUID) (*schemas.CurationSchema, error)
}

func (s *stubSchemas) Handler() *schemas.Handler { return nil }

func (s *stubSchemas) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters schemas.Filters,
) (*pagination.PageResult[schemas.CurationSchema], error) {
	return nil, schemas.ErrNotFound
}

func (s *stubSchemas) Find(ctx context.Context, id uuid.UUID) (*schemas.CurationSchema, error) {
	return s.find(ctx, id)
}

func (s *stubSchemas) FindByNameVersion(ctx context.Context, name string, version int) (*schemas.CurationSchema, error) {
	return nil, schemas.ErrNotFound
}

func (s *stubSchemas) Create(ctx context.Context, cmd schemas.CreateCommand) (*schemas.CurationSchema, error) {
	return nil, schemas.ErrNotFound
}

func (s *stubSchemas) Update(ctx context.Context, id uuid.UUID, cmd schemas.UpdateCommand) (*schemas.CurationSchema, error) {
	return nil, schemas.ErrNotFound
}

func (s *stubSchemas) NewVersion(ctx context.Context, id uuid.UUID, cmd schemas.UpdateCommand) (*schemas.CurationSchema, error) {
	return nil, schemas.ErrNotFound
}

func (s *stubSchemas) Activate(ctx context.Context, id uuid.UUID) (*schemas.CurationSchema, error) {
	return nil, schemas.ErrNotFound
}

func (s *stubSchemas) Delete(ctx context.Context, id uuid.UUID) error {
	return schemas.ErrNotFound
}

// fakeDB is a database/sql driver that serves one canned SELECT result and
// records every UPDATE, reporting per-record affected counts.
type fakeDB struct {
	mu       sync.Mutex
	cols     []string
	rows     [][]driver.Value
	affected map[string]int64
	execs    []execCall
}

type execCall struct {
	query string
	args  []driver.Value
}

func (f *fakeDB) Connect(context.Context) (driver.Conn, error) { return &fakeConn{db: f}, nil }
func (f *fakeDB) Driver() driver.Driver                        { return f }
func (f *fakeDB) Open(string) (driver.Conn, error)             { return &fakeConn{db: f}, nil }

type fakeConn struct{ db *fakeDB }

func (c *fakeConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}
func (c *fakeConn) Close() error              { return nil }
func (c *fakeConn) Begin() (driver.Tx, error) { return nil, errors.New("transactions not supported") }

func (c *fakeConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if !strings.HasPrefix(strings.TrimSpace(query), "SELECT") {
		return nil, fmt.Errorf("unexpected query: %s", query)
	}

	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	rows := make([][]driver.Value, len(c.db.rows))
	copy(rows, c.db.rows)
	return &fakeRows{cols: c.db.cols, rows: rows}, nil
}

func (c *fakeConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	values := make([]driver.Value, len(args))
	for i, a := range args {
		values[i] = a.Value
	}

	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	c.db.execs = append(c.db.execs, execCall{query: query, args: values})

	id, _ := values[2].(string)
	return driver.RowsAffected(c.db.affected[id]), nil
}

type fakeRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *fakeRows) Columns() []string { return r.cols }
func (r *fakeRows) Close() error      { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

// A record whose lock version moved between the candidate read and the
// guarded write is skipped, not overwritten with scores computed from the
// stale evidence, and not counted as rescored.
func TestRescoreBySchemaGuardsConcurrentWrites(t *testing.T) {
	schemaID := uuid.New()
	current := uuid.New()
	stale := uuid.New()

	db := &fakeDB{
		cols: []string{"id", "evidence_data", "lock_version"},
		rows: [][]driver.Value{
			{current.String(), []byte(`{"variants":[{"points":2}]}`), int64(3)},
			{stale.String(), []byte(`{"variants":[{"points":1}]}`), int64(1)},
		},
		affected: map[string]int64{
			current.String(): 1,
			stale.String():   0,
		},
	}

	sys := records.New(
		sql.OpenDB(db),
		&stubSchemas{find: func(ctx context.Context, id uuid.UUID) (*schemas.CurationSchema, error) {
			return &schemas.CurationSchema{
				ID:      id,
				Version: 2,
				Scoring: scoring.Config{NoEvidence: "no_known_disease_relationship"},
			}, nil
		}},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
	)

	count, err := sys.RescoreBySchema(context.Background(), schemaID)
	if err != nil {
		t.Fatalf("RescoreBySchema() error: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 (stale row skipped, not failed)", count)
	}

	if len(db.execs) != 2 {
		t.Fatalf("updates issued = %d, want 2", len(db.execs))
	}
	for _, call := range db.execs {
		if !strings.Contains(call.query, "AND lock_version = $4") {
			t.Fatalf("update lacks lock version guard: %s", call.query)
		}
		if len(call.args) != 4 {
			t.Fatalf("update args = %d, want 4 (scores, fields, id, lock version)", len(call.args))
		}
	}

	for _, call := range db.execs {
		if id, _ := call.args[2].(string); id == stale.String() {
			if lv, _ := call.args[3].(int64); lv != 1 {
				t.Errorf("stale row guarded with lock version %v, want the value read", call.args[3])
			}
		}
	}
}

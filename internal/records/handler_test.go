package records_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/genomecurate/curia/internal/records"
	"github.com/genomecurate/curia/internal/reviews"
	"github.com/genomecurate/curia/internal/session"
	"github.com/genomecurate/curia/internal/workflow"
	"github.com/genomecurate/curia/pkg/pagination"
	"github.com/genomecurate/curia/pkg/schema"
)

type mockSystem struct {
	find    func(actor session.Actor, id uuid.UUID) (*records.Record, error)
	create  func(actor session.Actor, cmd records.CreateCommand) (*records.Record, error)
	update  func(actor session.Actor, id uuid.UUID, cmd records.UpdateCommand) (*records.Record, error)
	draft   func(actor session.Actor, id uuid.UUID, cmd records.UpdateCommand) (*records.Record, error)
	archive func(actor session.Actor, id uuid.UUID, cmd records.ArchiveCommand) error
	rescore func(schemaID uuid.UUID) (int, error)
}

func (m *mockSystem) Handler(records.TransitionEngine, reviews.System) *records.Handler {
	return nil
}

func (m *mockSystem) List(
	_ context.Context,
	_ session.Actor,
	page pagination.PageRequest,
	_ records.Filters,
) (*pagination.PageResult[records.Summary], error) {
	result := pagination.NewPageResult([]records.Summary{}, 0, page.Page, page.PageSize)
	return &result, nil
}

func (m *mockSystem) Find(_ context.Context, actor session.Actor, id uuid.UUID) (*records.Record, error) {
	return m.find(actor, id)
}

func (m *mockSystem) Create(_ context.Context, actor session.Actor, cmd records.CreateCommand) (*records.Record, error) {
	return m.create(actor, cmd)
}

func (m *mockSystem) Update(_ context.Context, actor session.Actor, id uuid.UUID, cmd records.UpdateCommand) (*records.Record, error) {
	return m.update(actor, id, cmd)
}

func (m *mockSystem) SaveDraft(_ context.Context, actor session.Actor, id uuid.UUID, cmd records.UpdateCommand) (*records.Record, error) {
	return m.draft(actor, id, cmd)
}

func (m *mockSystem) Archive(_ context.Context, actor session.Actor, id uuid.UUID, cmd records.ArchiveCommand) error {
	return m.archive(actor, id, cmd)
}

func (m *mockSystem) Transitions(context.Context, session.Actor, uuid.UUID) ([]records.Transition, error) {
	return []records.Transition{}, nil
}

func (m *mockSystem) RescoreBySchema(_ context.Context, schemaID uuid.UUID) (int, error) {
	return m.rescore(schemaID)
}

type mockEngine struct {
	submit  func(id uuid.UUID, cmd records.TransitionCommand) (*records.Record, error)
	approve func(id uuid.UUID, cmd records.TransitionCommand) (*records.Record, error)
	reject  func(id uuid.UUID, cmd records.TransitionCommand) (*records.Record, error)
}

func (m *mockEngine) Submit(_ context.Context, id uuid.UUID, cmd records.TransitionCommand) (*records.Record, error) {
	return m.submit(id, cmd)
}

func (m *mockEngine) Approve(_ context.Context, id uuid.UUID, cmd records.TransitionCommand) (*records.Record, error) {
	return m.approve(id, cmd)
}

func (m *mockEngine) Reject(_ context.Context, id uuid.UUID, cmd records.TransitionCommand) (*records.Record, error) {
	return m.reject(id, cmd)
}

type mockReviews struct {
	assign       func(recordID uuid.UUID, cmd reviews.AssignCommand) (*reviews.Review, error)
	listByRecord func(recordID uuid.UUID) ([]reviews.Review, error)
}

func (m *mockReviews) Handler() *reviews.Handler { return nil }

func (m *mockReviews) Find(context.Context, uuid.UUID) (*reviews.Review, error) {
	return nil, reviews.ErrNotFound
}

func (m *mockReviews) ListByRecord(_ context.Context, recordID uuid.UUID) ([]reviews.Review, error) {
	return m.listByRecord(recordID)
}

func (m *mockReviews) Assign(_ context.Context, recordID uuid.UUID, cmd reviews.AssignCommand) (*reviews.Review, error) {
	return m.assign(recordID, cmd)
}

func (m *mockReviews) Verdict(context.Context, session.Actor, uuid.UUID, reviews.VerdictCommand) (*reviews.Review, error) {
	return nil, reviews.ErrNotFound
}

func newTestHandler(sys records.System, engine records.TransitionEngine, rs reviews.System) *records.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return records.NewHandler(sys, engine, rs, logger, pagination.Config{DefaultPageSize: 20, MaxPageSize: 100})
}

func testActor(role session.Role, scopes ...uuid.UUID) session.Actor {
	return session.Actor{ID: uuid.New(), Role: role, Scopes: scopes}
}

func request(method, target string, actor *session.Actor, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, target, &buf)
	if actor != nil {
		req = req.WithContext(session.WithActor(req.Context(), *actor))
	}
	return req
}

func testRecord(id uuid.UUID) *records.Record {
	return &records.Record{
		ID:          id,
		RecordType:  records.TypePrecuration,
		Status:      records.StatusDraft,
		Stage:       schema.StageEntry,
		IsDraft:     true,
		LockVersion: 1,
	}
}

func TestHandlerRequiresActor(t *testing.T) {
	h := newTestHandler(&mockSystem{}, &mockEngine{}, &mockReviews{})

	req := request(http.MethodGet, "/records", nil, nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestHandlerFind(t *testing.T) {
	id := uuid.New()
	actor := testActor(session.RoleCurator, uuid.New())

	t.Run("found", func(t *testing.T) {
		sys := &mockSystem{
			find: func(_ session.Actor, got uuid.UUID) (*records.Record, error) {
				if got != id {
					t.Errorf("find id = %s, want %s", got, id)
				}
				return testRecord(id), nil
			},
		}
		h := newTestHandler(sys, &mockEngine{}, &mockReviews{})

		req := request(http.MethodGet, "/records/"+id.String(), &actor, nil)
		req.SetPathValue("id", id.String())
		rec := httptest.NewRecorder()
		h.Find(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var got records.Record
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		if got.ID != id {
			t.Errorf("body id = %s, want %s", got.ID, id)
		}
	})

	t.Run("not found", func(t *testing.T) {
		sys := &mockSystem{
			find: func(session.Actor, uuid.UUID) (*records.Record, error) {
				return nil, records.ErrNotFound
			},
		}
		h := newTestHandler(sys, &mockEngine{}, &mockReviews{})

		req := request(http.MethodGet, "/records/"+id.String(), &actor, nil)
		req.SetPathValue("id", id.String())
		rec := httptest.NewRecorder()
		h.Find(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("malformed id", func(t *testing.T) {
		h := newTestHandler(&mockSystem{}, &mockEngine{}, &mockReviews{})

		req := request(http.MethodGet, "/records/nope", &actor, nil)
		req.SetPathValue("id", "nope")
		rec := httptest.NewRecorder()
		h.Find(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandlerCreate(t *testing.T) {
	actor := testActor(session.RoleCurator, uuid.New())

	t.Run("created", func(t *testing.T) {
		id := uuid.New()
		sys := &mockSystem{
			create: func(_ session.Actor, cmd records.CreateCommand) (*records.Record, error) {
				if cmd.RecordType != records.TypePrecuration {
					t.Errorf("record_type = %s, want precuration", cmd.RecordType)
				}
				return testRecord(id), nil
			},
		}
		h := newTestHandler(sys, &mockEngine{}, &mockReviews{})

		req := request(http.MethodPost, "/records", &actor, records.CreateCommand{
			RecordType: records.TypePrecuration,
			GeneID:     uuid.New(),
			ScopeID:    actor.Scopes[0],
			SchemaID:   uuid.New(),
		})
		rec := httptest.NewRecorder()
		h.Create(rec, req)

		if rec.Code != http.StatusCreated {
			t.Errorf("status = %d, want 201", rec.Code)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		h := newTestHandler(&mockSystem{}, &mockEngine{}, &mockReviews{})

		req := request(http.MethodPost, "/records", &actor, nil)
		req.Body = io.NopCloser(bytes.NewBufferString("{nope"))
		rec := httptest.NewRecorder()
		h.Create(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandlerUpdate(t *testing.T) {
	id := uuid.New()
	actor := testActor(session.RoleCurator, uuid.New())

	t.Run("validation failure carries field errors", func(t *testing.T) {
		sys := &mockSystem{
			update: func(session.Actor, uuid.UUID, records.UpdateCommand) (*records.Record, error) {
				return nil, &records.ValidationError{Result: schema.Result{
					Valid:  false,
					Errors: []schema.FieldError{{Path: "gene_symbol", Message: "required field is missing"}},
				}}
			},
		}
		h := newTestHandler(sys, &mockEngine{}, &mockReviews{})

		req := request(http.MethodPut, "/records/"+id.String(), &actor, records.UpdateCommand{LockVersion: 1})
		req.SetPathValue("id", id.String())
		rec := httptest.NewRecorder()
		h.Update(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", rec.Code)
		}

		var result schema.Result
		if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		if len(result.Errors) != 1 || result.Errors[0].Path != "gene_symbol" {
			t.Errorf("errors = %v, want one at gene_symbol", result.Errors)
		}
	})

	t.Run("stale lock version conflicts", func(t *testing.T) {
		sys := &mockSystem{
			update: func(session.Actor, uuid.UUID, records.UpdateCommand) (*records.Record, error) {
				return nil, records.ErrConflict
			},
		}
		h := newTestHandler(sys, &mockEngine{}, &mockReviews{})

		req := request(http.MethodPut, "/records/"+id.String(), &actor, records.UpdateCommand{LockVersion: 1})
		req.SetPathValue("id", id.String())
		rec := httptest.NewRecorder()
		h.Update(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rec.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		if body["error"] != records.ErrConflict.Error() {
			t.Errorf("error = %q, want the stale lock message", body["error"])
		}
	})
}

func TestHandlerTransitions(t *testing.T) {
	id := uuid.New()
	actor := testActor(session.RoleCurator, uuid.New())

	t.Run("illegal transition conflicts", func(t *testing.T) {
		engine := &mockEngine{
			submit: func(uuid.UUID, records.TransitionCommand) (*records.Record, error) {
				return nil, &workflow.TransitionError{
					From:   schema.StageActive,
					To:     schema.StageReview,
					Reason: "no transition from active",
				}
			},
		}
		h := newTestHandler(&mockSystem{}, engine, &mockReviews{})

		req := request(http.MethodPost, "/records/"+id.String()+"/submit", &actor, records.TransitionCommand{LockVersion: 1})
		req.SetPathValue("id", id.String())
		rec := httptest.NewRecorder()
		h.Submit(rec, req)

		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("rejection without reason is malformed", func(t *testing.T) {
		engine := &mockEngine{
			reject: func(uuid.UUID, records.TransitionCommand) (*records.Record, error) {
				return nil, &workflow.ReasonError{}
			},
		}
		h := newTestHandler(&mockSystem{}, engine, &mockReviews{})

		req := request(http.MethodPost, "/records/"+id.String()+"/reject", &actor, records.TransitionCommand{LockVersion: 1})
		req.SetPathValue("id", id.String())
		rec := httptest.NewRecorder()
		h.Reject(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("approve succeeds", func(t *testing.T) {
		engine := &mockEngine{
			approve: func(got uuid.UUID, cmd records.TransitionCommand) (*records.Record, error) {
				rec := testRecord(got)
				rec.Status = records.StatusApproved
				rec.Stage = schema.StageActive
				rec.LockVersion = cmd.LockVersion + 1
				return rec, nil
			},
		}
		h := newTestHandler(&mockSystem{}, engine, &mockReviews{})

		req := request(http.MethodPost, "/records/"+id.String()+"/approve", &actor, records.TransitionCommand{LockVersion: 3})
		req.SetPathValue("id", id.String())
		rec := httptest.NewRecorder()
		h.Approve(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var got records.Record
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		if got.LockVersion != 4 {
			t.Errorf("lock_version = %d, want 4", got.LockVersion)
		}
	})
}

func TestHandlerArchive(t *testing.T) {
	id := uuid.New()
	actor := testActor(session.RoleCurator, uuid.New())

	sys := &mockSystem{
		archive: func(session.Actor, uuid.UUID, records.ArchiveCommand) error {
			return nil
		},
	}
	h := newTestHandler(sys, &mockEngine{}, &mockReviews{})

	req := request(http.MethodDelete, "/records/"+id.String(), &actor, records.ArchiveCommand{LockVersion: 2})
	req.SetPathValue("id", id.String())
	rec := httptest.NewRecorder()
	h.Archive(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

func TestHandlerAssignReviewer(t *testing.T) {
	id := uuid.New()
	actor := testActor(session.RoleCurator, uuid.New())

	t.Run("self review conflicts", func(t *testing.T) {
		sys := &mockSystem{
			find: func(session.Actor, uuid.UUID) (*records.Record, error) {
				return testRecord(id), nil
			},
		}
		rs := &mockReviews{
			assign: func(uuid.UUID, reviews.AssignCommand) (*reviews.Review, error) {
				return nil, reviews.ErrSelfReview
			},
		}
		h := newTestHandler(sys, &mockEngine{}, rs)

		req := request(http.MethodPost, "/records/"+id.String()+"/reviews", &actor, reviews.AssignCommand{ReviewerID: actor.ID})
		req.SetPathValue("id", id.String())
		rec := httptest.NewRecorder()
		h.AssignReviewer(rec, req)

		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("out-of-scope record stays invisible", func(t *testing.T) {
		sys := &mockSystem{
			find: func(session.Actor, uuid.UUID) (*records.Record, error) {
				return nil, records.ErrNotFound
			},
		}
		h := newTestHandler(sys, &mockEngine{}, &mockReviews{})

		req := request(http.MethodPost, "/records/"+id.String()+"/reviews", &actor, reviews.AssignCommand{ReviewerID: uuid.New()})
		req.SetPathValue("id", id.String())
		rec := httptest.NewRecorder()
		h.AssignReviewer(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestHandlerRescore(t *testing.T) {
	schemaID := uuid.New()

	t.Run("admin only", func(t *testing.T) {
		actor := testActor(session.RoleCurator, uuid.New())
		h := newTestHandler(&mockSystem{}, &mockEngine{}, &mockReviews{})

		req := request(http.MethodPost, "/records/rescore/"+schemaID.String(), &actor, nil)
		req.SetPathValue("schemaId", schemaID.String())
		rec := httptest.NewRecorder()
		h.Rescore(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("admin rescoring", func(t *testing.T) {
		actor := testActor(session.RoleAdmin)
		sys := &mockSystem{
			rescore: func(got uuid.UUID) (int, error) {
				if got != schemaID {
					t.Errorf("schema id = %s, want %s", got, schemaID)
				}
				return 42, nil
			},
		}
		h := newTestHandler(sys, &mockEngine{}, &mockReviews{})

		req := request(http.MethodPost, "/records/rescore/"+schemaID.String(), &actor, nil)
		req.SetPathValue("schemaId", schemaID.String())
		rec := httptest.NewRecorder()
		h.Rescore(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var body map[string]int
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		if body["rescored"] != 42 {
			t.Errorf("rescored = %d, want 42", body["rescored"])
		}
	})
}

package session_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/genomecurate/curia/internal/session"
)

func testSystem() session.System {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return session.New(session.Config{Enabled: false}, logger)
}

func TestMiddlewareHeaderActor(t *testing.T) {
	actorID := uuid.New()
	scopeA := uuid.New()
	scopeB := uuid.New()

	var captured session.Actor
	var ok bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, ok = session.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := testSystem().Middleware()(next)

	req := httptest.NewRequest(http.MethodGet, "/records", nil)
	req.Header.Set("X-Actor-ID", actorID.String())
	req.Header.Set("X-Actor-Role", "reviewer")
	req.Header.Set("X-Actor-Scopes", scopeA.String()+","+scopeB.String())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !ok {
		t.Fatal("no actor in context")
	}
	if captured.ID != actorID {
		t.Errorf("actor id = %s, want %s", captured.ID, actorID)
	}
	if captured.Role != session.RoleReviewer {
		t.Errorf("role = %s, want reviewer", captured.Role)
	}
	if len(captured.Scopes) != 2 || captured.Scopes[0] != scopeA || captured.Scopes[1] != scopeB {
		t.Errorf("scopes = %v, want [%s %s]", captured.Scopes, scopeA, scopeB)
	}
}

func TestMiddlewareRejectsMissingActor(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without an actor")
	})

	handler := testSystem().Middleware()(next)

	req := httptest.NewRequest(http.MethodGet, "/records", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestMiddlewareUnknownRoleDefaultsToCurator(t *testing.T) {
	var captured session.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = session.FromContext(r.Context())
	})

	handler := testSystem().Middleware()(next)

	req := httptest.NewRequest(http.MethodGet, "/records", nil)
	req.Header.Set("X-Actor-ID", uuid.NewString())
	req.Header.Set("X-Actor-Role", "superuser")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if captured.Role != session.RoleCurator {
		t.Errorf("role = %s, want curator fallback", captured.Role)
	}
}

func TestMiddlewareEnabledRequiresBearer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sys := session.New(session.Config{Enabled: true, Issuer: "https://idp.example", ClientID: "curia"}, logger)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without a token")
	})
	handler := sys.Middleware()(next)

	req := httptest.NewRequest(http.MethodGet, "/records", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestActorHelpers(t *testing.T) {
	scope := uuid.New()
	actor := session.Actor{ID: uuid.New(), Role: session.RoleAdmin, Scopes: []uuid.UUID{scope}}

	if !actor.IsAdmin() {
		t.Error("IsAdmin() = false for admin")
	}

	curator := session.Actor{Role: session.RoleCurator}
	if curator.IsAdmin() {
		t.Error("IsAdmin() = true for curator")
	}

	ids := actor.ScopeIDs()
	if len(ids) != 1 || ids[0] != any(scope) {
		t.Errorf("ScopeIDs() = %v, want [%s]", ids, scope)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     session.Config
		wantErr bool
	}{
		{"disabled needs nothing", session.Config{}, false},
		{"enabled with issuer and client", session.Config{Enabled: true, Issuer: "https://idp.example", ClientID: "curia"}, false},
		{"enabled without issuer", session.Config{Enabled: true, ClientID: "curia"}, true},
		{"enabled without client", session.Config{Enabled: true, Issuer: "https://idp.example"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("Finalize() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

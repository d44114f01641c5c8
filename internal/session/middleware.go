package session

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"

	"github.com/genomecurate/curia/pkg/handlers"
)

// System authenticates requests and places the resulting Actor in context.
type System interface {
	Middleware() func(http.Handler) http.Handler
}

type provider struct {
	cfg    Config
	logger *slog.Logger

	once     sync.Once
	verifier *oidc.IDTokenVerifier
	initErr  error
}

// New creates a session system. With auth enabled, bearer tokens are
// verified against the configured OIDC issuer; otherwise trusted
// X-Actor-* headers are read.
func New(cfg Config, logger *slog.Logger) System {
	return &provider{
		cfg:    cfg,
		logger: logger.With("system", "session"),
	}
}

type claims struct {
	Role   string   `json:"role"`
	Scopes []string `json:"scopes"`
}

// Middleware returns the authentication middleware. Requests without a
// resolvable actor are rejected with 401 before reaching any handler.
func (p *provider) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := p.resolve(r)
			if err != nil {
				handlers.RespondError(w, p.logger, http.StatusUnauthorized, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func (p *provider) resolve(r *http.Request) (Actor, error) {
	if !p.cfg.Enabled {
		return actorFromHeaders(r)
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" || token == r.Header.Get("Authorization") {
		return Actor{}, ErrUnauthenticated
	}

	verifier, err := p.tokenVerifier(r)
	if err != nil {
		return Actor{}, err
	}

	idToken, err := verifier.Verify(r.Context(), token)
	if err != nil {
		p.logger.Warn("token verification failed", "error", err)
		return Actor{}, ErrUnauthenticated
	}

	var c claims
	if err := idToken.Claims(&c); err != nil {
		return Actor{}, ErrUnauthenticated
	}

	id, err := uuid.Parse(idToken.Subject)
	if err != nil {
		return Actor{}, ErrUnauthenticated
	}

	return Actor{
		ID:     id,
		Role:   parseRole(c.Role),
		Scopes: parseScopes(c.Scopes),
	}, nil
}

// tokenVerifier lazily discovers the issuer so the service can start
// before the identity provider is reachable.
func (p *provider) tokenVerifier(r *http.Request) (*oidc.IDTokenVerifier, error) {
	p.once.Do(func() {
		op, err := oidc.NewProvider(r.Context(), p.cfg.Issuer)
		if err != nil {
			p.logger.Error("oidc discovery failed", "issuer", p.cfg.Issuer, "error", err)
			p.initErr = ErrUnauthenticated
			return
		}
		p.verifier = op.Verifier(&oidc.Config{ClientID: p.cfg.ClientID})
	})

	if p.initErr != nil {
		return nil, p.initErr
	}
	return p.verifier, nil
}

func actorFromHeaders(r *http.Request) (Actor, error) {
	id, err := uuid.Parse(r.Header.Get("X-Actor-ID"))
	if err != nil {
		return Actor{}, ErrUnauthenticated
	}

	var scopes []string
	if raw := r.Header.Get("X-Actor-Scopes"); raw != "" {
		scopes = strings.Split(raw, ",")
	}

	return Actor{
		ID:     id,
		Role:   parseRole(r.Header.Get("X-Actor-Role")),
		Scopes: parseScopes(scopes),
	}, nil
}

func parseRole(s string) Role {
	switch Role(s) {
	case RoleReviewer:
		return RoleReviewer
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleCurator
	}
}

func parseScopes(raw []string) []uuid.UUID {
	scopes := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		if id, err := uuid.Parse(strings.TrimSpace(s)); err == nil {
			scopes = append(scopes, id)
		}
	}
	return scopes
}

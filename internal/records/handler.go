package records

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/genomecurate/curia/internal/reviews"
	"github.com/genomecurate/curia/internal/session"
	"github.com/genomecurate/curia/pkg/handlers"
	"github.com/genomecurate/curia/pkg/pagination"
	"github.com/genomecurate/curia/pkg/routes"
)

// Handler provides HTTP endpoints for record operations, including the
// workflow transition endpoints and the record-scoped review endpoints.
type Handler struct {
	sys        System
	engine     TransitionEngine
	reviews    reviews.System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler with the record system, the workflow engine,
// and the review system serving the record-scoped review routes.
func NewHandler(
	sys System,
	engine TransitionEngine,
	reviewSys reviews.System,
	logger *slog.Logger,
	pagination pagination.Config,
) *Handler {
	return &Handler{
		sys:        sys,
		engine:     engine,
		reviews:    reviewSys,
		logger:     logger.With("handler", "records"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for record endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/records",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "POST", Pattern: "", Handler: h.Create},
			{Method: "PUT", Pattern: "/{id}", Handler: h.Update},
			{Method: "POST", Pattern: "/{id}/draft", Handler: h.SaveDraft},
			{Method: "POST", Pattern: "/{id}/submit", Handler: h.Submit},
			{Method: "POST", Pattern: "/{id}/approve", Handler: h.Approve},
			{Method: "POST", Pattern: "/{id}/reject", Handler: h.Reject},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Archive},
			{Method: "GET", Pattern: "/{id}/transitions", Handler: h.ListTransitions},
			{Method: "GET", Pattern: "/{id}/reviews", Handler: h.ListReviews},
			{Method: "POST", Pattern: "/{id}/reviews", Handler: h.AssignReviewer},
			{Method: "POST", Pattern: "/rescore/{schemaId}", Handler: h.Rescore},
		},
	}
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (session.Actor, bool) {
	actor, ok := session.FromContext(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, session.ErrUnauthenticated)
	}
	return actor, ok
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(key))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidBody)
		return uuid.Nil, false
	}
	return id, true
}

// respond maps a domain error to its HTTP shape; validation failures carry
// their field-path error list.
func (h *Handler) respond(w http.ResponseWriter, err error) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		handlers.RespondValidation(w, ve.Result)
		return
	}
	handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
}

// List returns a paginated, scope-filtered list of record summaries.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), actor, page, filters)
	if err != nil {
		h.respond(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a single record by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	rec, err := h.sys.Find(r.Context(), actor, id)
	if err != nil {
		h.respond(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, rec)
}

// Create stores a new draft record.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var cmd CreateCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidBody)
		return
	}

	rec, err := h.sys.Create(r.Context(), actor, cmd)
	if err != nil {
		h.respond(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, rec)
}

// Update replaces a record's evidence under full validation.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, h.sys.Update)
}

// SaveDraft replaces a record's evidence under structural typing only.
func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, h.sys.SaveDraft)
}

func (h *Handler) save(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, actor session.Actor, id uuid.UUID, cmd UpdateCommand) (*Record, error),
) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var cmd UpdateCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidBody)
		return
	}

	rec, err := op(r.Context(), actor, id, cmd)
	if err != nil {
		h.respond(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, rec)
}

// Submit moves a record into review after full validation.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.engine.Submit)
}

// Approve moves a record out of review as approved; for precurations this
// may spawn the linked curation.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.engine.Approve)
}

// Reject returns a record to its pre-review stage with a mandatory reason.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.engine.Reject)
}

func (h *Handler) transition(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, id uuid.UUID, cmd TransitionCommand) (*Record, error),
) {
	if _, ok := h.actor(w, r); !ok {
		return
	}

	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var cmd TransitionCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidBody)
		return
	}

	rec, err := op(r.Context(), id, cmd)
	if err != nil {
		h.respond(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, rec)
}

// Archive soft-deletes a record.
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var cmd ArchiveCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidBody)
		return
	}

	if err := h.sys.Archive(r.Context(), actor, id, cmd); err != nil {
		h.respond(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListTransitions returns a record's stage-transition history.
func (h *Handler) ListTransitions(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	history, err := h.sys.Transitions(r.Context(), actor, id)
	if err != nil {
		h.respond(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, history)
}

// ListReviews returns the review assignments on a record.
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	// Scope check through the record system before touching reviews.
	if _, err := h.sys.Find(r.Context(), actor, id); err != nil {
		h.respond(w, err)
		return
	}

	list, err := h.reviews.ListByRecord(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, reviews.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, list)
}

// AssignReviewer assigns a reviewer to a record, enforcing the
// independent-review rule.
func (h *Handler) AssignReviewer(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.sys.Find(r.Context(), actor, id); err != nil {
		h.respond(w, err)
		return
	}

	var cmd reviews.AssignCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidBody)
		return
	}

	rv, err := h.reviews.Assign(r.Context(), id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, reviews.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, rv)
}

// Rescore recomputes stored scores for every live record of a schema.
// Admin only.
func (h *Handler) Rescore(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if !actor.IsAdmin() {
		handlers.RespondError(w, h.logger, http.StatusForbidden, ErrForbidden)
		return
	}

	schemaID, ok := h.pathID(w, r, "schemaId")
	if !ok {
		return
	}

	count, err := h.sys.RescoreBySchema(r.Context(), schemaID)
	if err != nil {
		h.respond(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, map[string]int{"rescored": count})
}

package workflow

import (
	"fmt"
	"net/http"

	"github.com/genomecurate/curia/pkg/schema"
)

// TransitionError reports a workflow rule rejection: an illegal target
// stage, a self-approval, or an unmet reviewer quorum. Transition failures
// are recoverable outcomes reported to the caller, never panics.
type TransitionError struct {
	From   schema.Stage
	To     schema.Stage
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s rejected: %s", e.From, e.To, e.Reason)
}

// HTTPStatus marks transition rejections as conflicts with workflow state.
func (e *TransitionError) HTTPStatus() int {
	return http.StatusConflict
}

// ReasonError reports a rejection request missing its mandatory reason.
type ReasonError struct{}

func (e *ReasonError) Error() string {
	return "a rejection reason is required"
}

// HTTPStatus marks the missing reason as a malformed request.
func (e *ReasonError) HTTPStatus() int {
	return http.StatusBadRequest
}

package httpadapter

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kirillkom/document-approval/internal/core/domain"
	"github.com/kirillkom/document-approval/internal/observability/logging"
)

type errorResponse struct {
	Error     string              `json:"error"`
	RequestID string              `json:"requestId,omitempty"`
	Details   []domain.FieldError `json:"details,omitempty"`
}

// ledgerReasons are surfaced verbatim so clients can tell state violations apart.
var ledgerReasons = []error{
	domain.ErrAlreadyConfirmed,
	domain.ErrMustSignFirst,
	domain.ErrApprovedNoResign,
	domain.ErrPreviousLevelPending,
	domain.ErrPreparedByMissing,
	domain.ErrDocumentNotUnderReview,
	domain.ErrApprovalClosed,
}

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput), domain.IsKind(err, domain.ErrState):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrForbidden):
		return http.StatusForbidden
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrConflict):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(status int, err error) string {
	switch status {
	case http.StatusInternalServerError:
		return "internal error"
	case http.StatusServiceUnavailable:
		return "service temporarily unavailable"
	case http.StatusConflict:
		return "document was modified concurrently, retry the action"
	case http.StatusUnauthorized:
		return "authentication required"
	}
	for _, reason := range ledgerReasons {
		if errors.Is(err, reason) {
			return reason.Error()
		}
	}
	if len(domain.FieldErrorsOf(err)) > 0 {
		return "validation failed"
	}
	return err.Error()
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request_failed", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{
		Error:     publicMessage(status, err),
		RequestID: logging.RequestID(r.Context()),
		Details:   domain.FieldErrorsOf(err),
	})
}

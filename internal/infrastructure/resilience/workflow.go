package resilience

import (
	"context"
	"errors"

	"github.com/kirillkom/document-approval/internal/core/domain"
)

// WorkflowRetrier re-runs workflow transactions that lost a race on the document row.
// Business rejections pass through untouched and never count against the breaker.
type WorkflowRetrier struct {
	exec *Executor
}

func NewWorkflowRetrier(exec *Executor) *WorkflowRetrier {
	return &WorkflowRetrier{exec: exec}
}

func (r *WorkflowRetrier) Retry(ctx context.Context, operation string, fn func(context.Context) error) error {
	err := r.exec.Execute(ctx, operation, fn, ClassifyWorkflowError)
	if IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

func ClassifyWorkflowError(err error) ErrorClassification {
	switch {
	case err == nil:
		return ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorClassification{Retryable: false, RecordFailure: false}
	case domain.IsKind(err, domain.ErrConflict):
		return ErrorClassification{Retryable: true, RecordFailure: false}
	case domain.IsKind(err, domain.ErrTemporary):
		return ErrorClassification{Retryable: true, RecordFailure: true}
	case domain.IsKind(err, domain.ErrNotFound),
		domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrUnauthenticated),
		domain.IsKind(err, domain.ErrForbidden),
		domain.IsKind(err, domain.ErrState):
		return ErrorClassification{Retryable: false, RecordFailure: false}
	default:
		return ErrorClassification{Retryable: false, RecordFailure: true}
	}
}

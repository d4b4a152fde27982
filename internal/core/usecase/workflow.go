package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/document-approval/internal/core/domain"
	"github.com/kirillkom/document-approval/internal/core/ports"
	"github.com/kirillkom/document-approval/internal/core/workflow"
)

// WorkflowUseCase orchestrates submission and approver actions. Every action runs in one
// store transaction; notification intents are dispatched after commit.
type WorkflowUseCase struct {
	store     ports.WorkflowStore
	users     ports.UserDirectory
	storage   ports.ObjectStorage
	publisher ports.NotificationPublisher
	retrier   ports.Retrier
	metrics   ports.WorkflowMetrics
	logger    *slog.Logger
	now       func() time.Time
}

type WorkflowOption func(*WorkflowUseCase)

// WithRetrier retries actions that fail with a concurrent modification.
func WithRetrier(r ports.Retrier) WorkflowOption {
	return func(uc *WorkflowUseCase) {
		if r != nil {
			uc.retrier = r
		}
	}
}

func WithWorkflowMetrics(m ports.WorkflowMetrics) WorkflowOption {
	return func(uc *WorkflowUseCase) {
		if m != nil {
			uc.metrics = m
		}
	}
}

func WithLogger(logger *slog.Logger) WorkflowOption {
	return func(uc *WorkflowUseCase) {
		if logger != nil {
			uc.logger = logger
		}
	}
}

func WithClock(now func() time.Time) WorkflowOption {
	return func(uc *WorkflowUseCase) {
		if now != nil {
			uc.now = now
		}
	}
}

func NewWorkflowUseCase(
	store ports.WorkflowStore,
	users ports.UserDirectory,
	storage ports.ObjectStorage,
	publisher ports.NotificationPublisher,
	opts ...WorkflowOption,
) *WorkflowUseCase {
	uc := &WorkflowUseCase{
		store:     store,
		users:     users,
		storage:   storage,
		publisher: publisher,
		retrier:   onceRetrier{},
		metrics:   noopMetrics{},
		logger:    slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// committed is what one action hands over once its transaction is durable.
type committed struct {
	fanout   workflow.FanoutInput
	approval *domain.Approval
	document domain.Document
	current  []domain.Approval
	// superseded are stored images no record references after the commit.
	superseded []string
}

type txFunc func(ctx context.Context, tx ports.WorkflowTx, at time.Time) (*committed, error)

func (uc *WorkflowUseCase) run(ctx context.Context, action string, fn txFunc) (*committed, error) {
	return uc.runStaged(ctx, action, nil, fn)
}

// runStaged is run for actions that uploaded images before the transaction. Staged keys are
// removed when the transaction does not commit; superseded ones once it has.
func (uc *WorkflowUseCase) runStaged(ctx context.Context, action string, staged []string, fn txFunc) (*committed, error) {
	c, err := uc.transact(ctx, action, fn)
	if err != nil {
		uc.discard(ctx, staged)
		return nil, err
	}
	uc.discard(ctx, c.superseded)
	return c, nil
}

func (uc *WorkflowUseCase) transact(ctx context.Context, action string, fn txFunc) (*committed, error) {
	started := time.Now()
	var out *committed
	err := uc.retrier.Retry(ctx, "workflow."+action, func(ctx context.Context) error {
		return uc.store.WithinTx(ctx, func(tx ports.WorkflowTx) error {
			res, err := fn(ctx, tx, uc.now())
			if err != nil {
				return err
			}
			out = res
			return nil
		})
	})
	uc.metrics.ObserveAction(action, actionOutcome(err), time.Since(started))
	if err != nil {
		return nil, err
	}

	uc.logger.InfoContext(ctx, "workflow_transition",
		"action", action,
		"document_id", out.document.ID,
		"status_before", string(out.fanout.StatusBefore),
		"status", string(out.document.Status),
		"approval_status", string(out.document.ApprovalStatus),
		"revision_cycle", out.document.RevisionCycle,
	)
	uc.dispatch(ctx, out.fanout)
	return out, nil
}

// approvalScope is the locked view an approver action works on.
type approvalScope struct {
	doc     domain.Document
	current []domain.Approval
	target  domain.Approval
}

func loadApprovalScope(ctx context.Context, tx ports.WorkflowTx, approvalID string) (approvalScope, error) {
	a, err := tx.GetApproval(ctx, approvalID)
	if err != nil {
		return approvalScope{}, err
	}
	doc, err := tx.LockDocument(ctx, a.DocumentID)
	if err != nil {
		return approvalScope{}, err
	}
	all, err := tx.FindApprovalsByDocument(ctx, doc.ID)
	if err != nil {
		return approvalScope{}, err
	}
	// The record may have changed between the first read and the lock.
	target := *a
	for _, rec := range all {
		if rec.ID == a.ID {
			target = rec
			break
		}
	}
	return approvalScope{
		doc:     *doc,
		current: workflow.CurrentCycle(all, doc.RevisionCycle),
		target:  target,
	}, nil
}

// applyApproval persists one updated record and the recomputed document status.
func applyApproval(
	ctx context.Context,
	tx ports.WorkflowTx,
	scope approvalScope,
	updated domain.Approval,
	action domain.AuditAction,
	actorID, detail string,
	at time.Time,
) (*committed, error) {
	if err := tx.UpdateApproval(ctx, &updated); err != nil {
		return nil, err
	}
	after := workflow.ReplaceApproval(scope.current, updated)
	doc := scope.doc
	statusBefore := doc.Status
	outcome := workflow.ComputeStatus(after)
	doc.Status = outcome.Status
	doc.ApprovalStatus = outcome.ApprovalStatus
	doc.UpdatedAt = at
	if err := tx.UpdateDocument(ctx, &doc); err != nil {
		return nil, err
	}
	if err := appendAudit(ctx, tx, doc, updated.ID, action, actorID, statusBefore, detail, at); err != nil {
		return nil, err
	}
	return &committed{
		fanout: workflow.FanoutInput{
			Document:     doc,
			StatusBefore: statusBefore,
			Before:       scope.current,
			After:        after,
			Acted:        &updated,
		},
		approval: &updated,
		document: doc,
		current:  after,
	}, nil
}

func appendAudit(
	ctx context.Context,
	tx ports.WorkflowTx,
	doc domain.Document,
	approvalID string,
	action domain.AuditAction,
	actorID string,
	statusBefore domain.DocumentStatus,
	detail string,
	at time.Time,
) error {
	return tx.AppendAuditRecord(ctx, &domain.AuditRecord{
		ID:                  uuid.NewString(),
		DocumentID:          doc.ID,
		ApprovalID:          approvalID,
		Action:              action,
		ActorID:             actorID,
		StatusBefore:        statusBefore,
		StatusAfter:         doc.Status,
		ApprovalStatusAfter: doc.ApprovalStatus,
		Detail:              detail,
		CreatedAt:           at,
	})
}

func requireActor(actor domain.Actor, op string) error {
	if actor.UserID == "" {
		return domain.WrapError(domain.ErrUnauthenticated, op, errors.New("missing identity"))
	}
	return nil
}

// result builds the action response. A missing directory entry degrades to the bare id.
func (uc *WorkflowUseCase) result(ctx context.Context, c *committed) *ports.ApprovalResult {
	approver := domain.User{ID: c.approval.ApproverID}
	if u, err := uc.users.GetUser(ctx, c.approval.ApproverID); err == nil && u != nil {
		approver = *u
	} else if err != nil {
		uc.logger.WarnContext(ctx, "approver_lookup_failed", "user_id", c.approval.ApproverID, "error", err)
	}
	return &ports.ApprovalResult{
		Approval:       *c.approval,
		Approver:       approver,
		DocumentStatus: c.document.Status,
		ApprovalStatus: c.document.ApprovalStatus,
	}
}

func actionOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case domain.IsKind(err, domain.ErrUnauthenticated), domain.IsKind(err, domain.ErrForbidden):
		return "denied"
	case domain.IsKind(err, domain.ErrNotFound), domain.IsKind(err, domain.ErrInvalidInput), domain.IsKind(err, domain.ErrState):
		return "rejected"
	case domain.IsKind(err, domain.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}

func view(doc domain.Document, current []domain.Approval) *ports.DocumentView {
	approvals := append([]domain.Approval(nil), current...)
	workflow.SortByCreation(approvals)
	return &ports.DocumentView{Document: doc, Approvals: approvals}
}

type onceRetrier struct{}

func (onceRetrier) Retry(ctx context.Context, _ string, fn func(context.Context) error) error {
	return fn(ctx)
}

type noopMetrics struct{}

func (noopMetrics) ObserveAction(string, string, time.Duration) {}
func (noopMetrics) ObserveNotification(string, string)          {}

// discard deletes stored images. Failures only leave an orphan behind, so they are logged.
func (uc *WorkflowUseCase) discard(ctx context.Context, keys []string) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := uc.storage.Delete(ctx, key); err != nil {
			uc.logger.WarnContext(ctx, "signature_cleanup_failed", "key", key, "error", err)
		}
	}
}

func signatureKey(documentID, name string) string {
	return fmt.Sprintf("signatures/%s/%s.png", documentID, name)
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/document-approval/internal/core/domain"
	"github.com/kirillkom/document-approval/internal/core/ports"
	"github.com/kirillkom/document-approval/internal/core/workflow"
)

// Sign stores the captured image and marks the record SIGNED. Re-signing replaces the image
// and removes the previous one.
func (uc *WorkflowUseCase) Sign(ctx context.Context, actor domain.Actor, approvalID, signatureImage string) (*ports.ApprovalResult, error) {
	const op = "sign approval"
	if err := requireActor(actor, op); err != nil {
		return nil, err
	}
	staged, err := uc.stageApprovalSignature(ctx, approvalID, signatureImage)
	if err != nil {
		return nil, err
	}

	c, err := uc.runStaged(ctx, "sign", []string{staged}, func(ctx context.Context, tx ports.WorkflowTx, at time.Time) (*committed, error) {
		scope, err := loadApprovalScope(ctx, tx, approvalID)
		if err != nil {
			return nil, err
		}
		previous := scope.target.SignatureImage
		updated, err := workflow.Sign(scope.doc, scope.current, scope.target, actor.UserID, staged, at)
		if err != nil {
			return nil, err
		}
		c, err := applyApproval(ctx, tx, scope, updated, domain.AuditSigned, actor.UserID, "", at)
		if err != nil {
			return nil, err
		}
		if previous != "" && previous != staged {
			c.superseded = append(c.superseded, previous)
		}
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return uc.result(ctx, c), nil
}

// stageApprovalSignature uploads the image under a fresh key of the approval's document.
// A blank image stages nothing and is reported by the ledger.
func (uc *WorkflowUseCase) stageApprovalSignature(ctx context.Context, approvalID, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	data, err := decodeSignature("signature_image", raw)
	if err != nil {
		return "", err
	}
	a, err := uc.store.GetApprovalByID(ctx, approvalID)
	if err != nil {
		return "", err
	}
	key := signatureKey(a.DocumentID, a.ID+"-"+uuid.NewString())
	if err := storeSignature(ctx, uc.storage, key, data); err != nil {
		return "", err
	}
	return key, nil
}

// Confirm finalizes a signed record and recomputes the document status.
func (uc *WorkflowUseCase) Confirm(ctx context.Context, actor domain.Actor, approvalID string) (*ports.ApprovalResult, error) {
	const op = "confirm approval"
	if err := requireActor(actor, op); err != nil {
		return nil, err
	}

	c, err := uc.run(ctx, "confirm", func(ctx context.Context, tx ports.WorkflowTx, at time.Time) (*committed, error) {
		scope, err := loadApprovalScope(ctx, tx, approvalID)
		if err != nil {
			return nil, err
		}
		updated, err := workflow.Confirm(scope.doc, scope.target, actor.UserID, at)
		if err != nil {
			return nil, err
		}
		c, err := applyApproval(ctx, tx, scope, updated, domain.AuditConfirmed, actor.UserID, "", at)
		if err != nil {
			return nil, err
		}
		c.fanout.Event = workflow.EventConfirmed
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return uc.result(ctx, c), nil
}

// Reject ends the approval. The document moves to REVISION_REQUIRED.
func (uc *WorkflowUseCase) Reject(ctx context.Context, actor domain.Actor, approvalID, reason string) (*ports.ApprovalResult, error) {
	const op = "reject approval"
	if err := requireActor(actor, op); err != nil {
		return nil, err
	}

	c, err := uc.run(ctx, "reject", func(ctx context.Context, tx ports.WorkflowTx, at time.Time) (*committed, error) {
		scope, err := loadApprovalScope(ctx, tx, approvalID)
		if err != nil {
			return nil, err
		}
		updated, err := workflow.Reject(scope.doc, scope.current, scope.target, actor.UserID, reason, at)
		if err != nil {
			return nil, err
		}
		c, err := applyApproval(ctx, tx, scope, updated, domain.AuditRejected, actor.UserID, updated.Comment, at)
		if err != nil {
			return nil, err
		}
		c.fanout.Event = workflow.EventRejected
		c.fanout.Reason = updated.Comment
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return uc.result(ctx, c), nil
}

// RequestRevision returns the document to its owner and opens the next revision cycle.
func (uc *WorkflowUseCase) RequestRevision(ctx context.Context, actor domain.Actor, approvalID, reason string) (*ports.ApprovalResult, error) {
	const op = "request revision"
	if err := requireActor(actor, op); err != nil {
		return nil, err
	}

	c, err := uc.run(ctx, "request_revision", func(ctx context.Context, tx ports.WorkflowTx, at time.Time) (*committed, error) {
		scope, err := loadApprovalScope(ctx, tx, approvalID)
		if err != nil {
			return nil, err
		}
		reset, err := workflow.ResetForRevision(scope.doc, scope.current, scope.target, actor.UserID, reason, at)
		if err != nil {
			return nil, err
		}

		var acted domain.Approval
		for i := range reset.Retired {
			if err := tx.UpdateApproval(ctx, &reset.Retired[i]); err != nil {
				return nil, err
			}
			if reset.Retired[i].ID == scope.target.ID {
				acted = reset.Retired[i]
			}
		}
		if err := tx.CreateApprovals(ctx, reset.Fresh); err != nil {
			return nil, err
		}
		doc := reset.Document
		if err := tx.UpdateDocument(ctx, &doc); err != nil {
			return nil, err
		}
		if err := tx.AppendRevisionRequest(ctx, &reset.Request); err != nil {
			return nil, err
		}
		if err := appendAudit(ctx, tx, doc, acted.ID, domain.AuditRevisionRequested, actor.UserID, scope.doc.Status, reset.Request.Reason, at); err != nil {
			return nil, err
		}

		return &committed{
			fanout: workflow.FanoutInput{
				Event:        workflow.EventRevisionRequested,
				Document:     doc,
				StatusBefore: scope.doc.Status,
				Before:       scope.current,
				After:        reset.Fresh,
				Acted:        &acted,
				Reason:       reset.Request.Reason,
			},
			approval: &acted,
			document: doc,
			current:  reset.Fresh,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return uc.result(ctx, c), nil
}

// Validate is the administrator's sign-off after every level is complete.
func (uc *WorkflowUseCase) Validate(ctx context.Context, actor domain.Actor, documentID string) (*ports.DocumentView, error) {
	const op = "validate document"
	if err := requireActor(actor, op); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, domain.WrapError(domain.ErrForbidden, op, errors.New("administrator role required"))
	}

	c, err := uc.run(ctx, "validate", func(ctx context.Context, tx ports.WorkflowTx, at time.Time) (*committed, error) {
		locked, err := tx.LockDocument(ctx, documentID)
		if err != nil {
			return nil, err
		}
		doc := *locked
		if doc.Status != domain.StatusWaitingValidation {
			return nil, domain.WrapError(domain.ErrState, op, fmt.Errorf("document is %s, expected %s", doc.Status, domain.StatusWaitingValidation))
		}
		all, err := tx.FindApprovalsByDocument(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		statusBefore := doc.Status
		doc.Status = domain.StatusApproved
		doc.ApprovalStatus = domain.ApprovalApproved
		doc.UpdatedAt = at
		if err := tx.UpdateDocument(ctx, &doc); err != nil {
			return nil, err
		}
		if err := appendAudit(ctx, tx, doc, "", domain.AuditValidated, actor.UserID, statusBefore, "", at); err != nil {
			return nil, err
		}
		current := workflow.CurrentCycle(all, doc.RevisionCycle)
		return &committed{
			fanout: workflow.FanoutInput{
				Event:        workflow.EventValidated,
				Document:     doc,
				StatusBefore: statusBefore,
				Before:       current,
				After:        current,
			},
			document: doc,
			current:  current,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return view(c.document, c.current), nil
}

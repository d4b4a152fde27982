package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/document-approval/internal/core/domain"
	"github.com/kirillkom/document-approval/internal/core/ports"
	"github.com/kirillkom/document-approval/internal/core/workflow"
)

const maxTitleLength = 500

// Submit creates the document and its first approval batch. Unless the input is a draft,
// the entry level is told to act.
func (uc *WorkflowUseCase) Submit(ctx context.Context, actor domain.Actor, in ports.SubmitDocumentInput) (*ports.DocumentView, error) {
	const op = "submit document"
	if err := requireActor(actor, op); err != nil {
		return nil, err
	}

	var fe domain.FieldErrors
	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		fe.Add("title", "is required")
	case len(title) > maxTitleLength:
		fe.Add("title", "must be at most "+strconv.Itoa(maxTitleLength)+" characters")
	}
	assignments := domain.AssignmentsFromRoles(in.ReviewerIDs, in.ApproverIDs, in.AcknowledgedIDs)
	if len(assignments) == 0 {
		fe.Add("assignments", "at least one reviewer, approver or acknowledger is required")
	}

	var prepared []byte
	switch {
	case strings.TrimSpace(in.PreparedBySignature) != "":
		data, err := decodeSignature("prepared_by_signature", in.PreparedBySignature)
		if err != nil {
			fe = append(fe, domain.FieldErrorsOf(err)...)
		}
		prepared = data
	case !in.Draft:
		// Approvers cannot sign before the preparer has.
		fe.Add("prepared_by_signature", "is required")
	}

	docID := uuid.NewString()
	at := uc.now()
	entries, err := workflow.CreateApprovalEntries(docID, 0, assignments, at)
	if err != nil {
		fe = append(fe, domain.FieldErrorsOf(err)...)
	}
	if err := fe.Err(op); err != nil {
		return nil, err
	}

	doc := domain.Document{
		ID:             docID,
		Title:          title,
		Status:         domain.StatusDraft,
		ApprovalStatus: domain.ApprovalPending,
		CreatedBy:      actor.UserID,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
	var staged []string
	if prepared != nil {
		key := signatureKey(docID, "prepared-"+uuid.NewString())
		if err := storeSignature(ctx, uc.storage, key, prepared); err != nil {
			return nil, err
		}
		staged = append(staged, key)
		preparedAt := at
		doc.PreparedBySignature = key
		doc.PreparedAt = &preparedAt
	}
	if !in.Draft {
		outcome := workflow.ComputeStatus(entries)
		doc.Status = outcome.Status
		doc.ApprovalStatus = outcome.ApprovalStatus
	}

	c, err := uc.runStaged(ctx, "submit", staged, func(ctx context.Context, tx ports.WorkflowTx, _ time.Time) (*committed, error) {
		created := doc
		if err := tx.CreateDocument(ctx, &created); err != nil {
			return nil, err
		}
		if err := tx.CreateApprovals(ctx, entries); err != nil {
			return nil, err
		}
		if err := appendAudit(ctx, tx, created, "", domain.AuditSubmitted, actor.UserID, "", draftDetail(in.Draft), at); err != nil {
			return nil, err
		}
		return submitted(created, domain.StatusDraft, entries, !in.Draft), nil
	})
	if err != nil {
		return nil, err
	}
	return view(c.document, c.current), nil
}

// SubmitDraft moves a draft into review. A draft saved without a prepared-by signature must
// be given one now.
func (uc *WorkflowUseCase) SubmitDraft(ctx context.Context, actor domain.Actor, documentID, preparedBySignature string) (*ports.DocumentView, error) {
	return uc.enterReview(ctx, actor, documentID, preparedBySignature, domain.StatusDraft, "submit_draft")
}

// Resubmit starts review of the new cycle after a revision. A new prepared-by signature
// replaces the previous one; an empty value keeps it.
func (uc *WorkflowUseCase) Resubmit(ctx context.Context, actor domain.Actor, documentID, preparedBySignature string) (*ports.DocumentView, error) {
	return uc.enterReview(ctx, actor, documentID, preparedBySignature, domain.StatusOnRevision, "resubmit")
}

// enterReview is the owner handing a DRAFT or ON_REVISION document to the approvers.
func (uc *WorkflowUseCase) enterReview(
	ctx context.Context,
	actor domain.Actor,
	documentID, preparedBySignature string,
	from domain.DocumentStatus,
	action string,
) (*ports.DocumentView, error) {
	op := strings.ReplaceAll(action, "_", " ") + " document"
	if err := requireActor(actor, op); err != nil {
		return nil, err
	}
	staged := ""
	if strings.TrimSpace(preparedBySignature) != "" {
		data, err := decodeSignature("prepared_by_signature", preparedBySignature)
		if err != nil {
			return nil, err
		}
		staged = signatureKey(documentID, "prepared-"+uuid.NewString())
		if err := storeSignature(ctx, uc.storage, staged, data); err != nil {
			return nil, err
		}
	}

	c, err := uc.runStaged(ctx, action, []string{staged}, func(ctx context.Context, tx ports.WorkflowTx, at time.Time) (*committed, error) {
		doc, current, err := lockOwned(ctx, tx, actor, documentID, from, op)
		if err != nil {
			return nil, err
		}
		var superseded []string
		if staged != "" {
			if doc.PreparedBySignature != "" {
				superseded = append(superseded, doc.PreparedBySignature)
			}
			preparedAt := at
			doc.PreparedBySignature = staged
			doc.PreparedAt = &preparedAt
		}
		if !doc.HasPreparedBySignature() {
			return nil, domain.FieldErrors{{Field: "prepared_by_signature", Message: "is required"}}.Err(op)
		}

		statusBefore := doc.Status
		outcome := workflow.ComputeStatus(current)
		doc.Status = outcome.Status
		doc.ApprovalStatus = outcome.ApprovalStatus
		doc.UpdatedAt = at
		if err := tx.UpdateDocument(ctx, &doc); err != nil {
			return nil, err
		}
		auditAction, detail := domain.AuditSubmitted, ""
		if from == domain.StatusOnRevision {
			auditAction, detail = domain.AuditResubmitted, "cycle "+strconv.Itoa(doc.RevisionCycle)
		}
		if err := appendAudit(ctx, tx, doc, "", auditAction, actor.UserID, statusBefore, detail, at); err != nil {
			return nil, err
		}
		c := submitted(doc, statusBefore, current, true)
		c.superseded = superseded
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return view(c.document, c.current), nil
}

// lockOwned locks a document the actor owns and checks it is in the expected status.
func lockOwned(
	ctx context.Context,
	tx ports.WorkflowTx,
	actor domain.Actor,
	documentID string,
	want domain.DocumentStatus,
	op string,
) (domain.Document, []domain.Approval, error) {
	locked, err := tx.LockDocument(ctx, documentID)
	if err != nil {
		return domain.Document{}, nil, err
	}
	if locked.CreatedBy != actor.UserID {
		return domain.Document{}, nil, domain.WrapError(domain.ErrForbidden, op, errors.New("only the document owner may submit"))
	}
	if locked.Status != want {
		return domain.Document{}, nil, domain.WrapError(domain.ErrState, op, fmt.Errorf("document is %s, expected %s", locked.Status, want))
	}
	all, err := tx.FindApprovalsByDocument(ctx, locked.ID)
	if err != nil {
		return domain.Document{}, nil, err
	}
	return *locked, workflow.CurrentCycle(all, locked.RevisionCycle), nil
}

func submitted(doc domain.Document, statusBefore domain.DocumentStatus, current []domain.Approval, broadcast bool) *committed {
	c := &committed{
		fanout: workflow.FanoutInput{
			Document:     doc,
			StatusBefore: statusBefore,
			After:        current,
		},
		document: doc,
		current:  current,
	}
	if broadcast {
		c.fanout.Event = workflow.EventSubmitted
	}
	return c
}

func draftDetail(draft bool) string {
	if draft {
		return "draft"
	}
	return ""
}

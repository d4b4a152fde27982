package workflow

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/document-approval/internal/core/domain"
)

// RevisionReset is the full set of writes that ends one revision cycle.
type RevisionReset struct {
	Document domain.Document
	// Retired are the records of the ended cycle, soft-deleted. The acting record is
	// marked NEEDS_REVISION.
	Retired []domain.Approval
	// Fresh are the PENDING records of the new cycle.
	Fresh   []domain.Approval
	Request domain.RevisionRequest
}

// ResetForRevision sends the document back to its owner. The prepared-by signature is kept;
// every approver of the ended cycle gets a new PENDING record in the next one.
func ResetForRevision(doc domain.Document, current []domain.Approval, acting domain.Approval, actorID, reason string, at time.Time) (RevisionReset, error) {
	const op = "request revision"
	if err := checkClosingAction(doc, current, acting, actorID, reason, op); err != nil {
		return RevisionReset{}, err
	}
	reason = strings.TrimSpace(reason)
	endedCycle := doc.RevisionCycle
	nextCycle := endedCycle + 1

	ordered := make([]domain.Approval, 0, len(current))
	for _, a := range current {
		if a.Active() && a.RevisionCycle == endedCycle {
			ordered = append(ordered, a)
		}
	}
	SortByCreation(ordered)

	retired := make([]domain.Approval, 0, len(ordered))
	fresh := make([]domain.Approval, 0, len(ordered))
	for _, a := range ordered {
		deletedAt := at
		old := a
		if old.ID == acting.ID {
			old.Status = domain.ApprovalStatusNeedsRevision
			old.Comment = reason
		}
		old.IsDeleted = true
		old.DeletedAt = &deletedAt
		old.UpdatedAt = at
		retired = append(retired, old)

		fresh = append(fresh, domain.Approval{
			ID:            uuid.NewString(),
			DocumentID:    a.DocumentID,
			Level:         a.Level,
			ApproverID:    a.ApproverID,
			Position:      a.Position,
			Status:        domain.ApprovalStatusPending,
			RevisionCycle: nextCycle,
			CreatedAt:     at,
			UpdatedAt:     at,
		})
	}

	doc.RevisionCycle = nextCycle
	doc.Status = domain.StatusOnRevision
	doc.ApprovalStatus = domain.ApprovalNeedsRevision
	doc.UpdatedAt = at

	return RevisionReset{
		Document: doc,
		Retired:  retired,
		Fresh:    fresh,
		Request: domain.RevisionRequest{
			ID:            uuid.NewString(),
			DocumentID:    doc.ID,
			ApprovalID:    acting.ID,
			Level:         acting.Level,
			RequestedBy:   actorID,
			Reason:        reason,
			RevisionCycle: endedCycle,
			CreatedAt:     at,
		},
	}, nil
}

package workflow

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/document-approval/internal/core/domain"
)

// CreateApprovalEntries builds one PENDING record per assignment. Position follows the
// assignment order so peers created in the same instant keep a stable hand-off order.
func CreateApprovalEntries(documentID string, cycle int, assignments []domain.Assignment, at time.Time) ([]domain.Approval, error) {
	var fe domain.FieldErrors
	if strings.TrimSpace(documentID) == "" {
		fe.Add("document_id", "is required")
	}

	seen := make(map[string]struct{}, len(assignments))
	out := make([]domain.Approval, 0, len(assignments))
	for i, as := range assignments {
		field := "assignments[" + strconv.Itoa(i) + "]"
		approverID := strings.TrimSpace(as.ApproverID)
		if approverID == "" {
			fe.Add(field+".approver_id", "is required")
			continue
		}
		if !as.Level.Valid() {
			fe.Add(field+".level", fmt.Sprintf("must be 1, 2 or 3, got %d", as.Level))
			continue
		}
		key := strconv.Itoa(int(as.Level)) + "/" + approverID
		if _, dup := seen[key]; dup {
			fe.Add(field+".approver_id", fmt.Sprintf("%s is already assigned at level %d", approverID, as.Level))
			continue
		}
		seen[key] = struct{}{}

		out = append(out, domain.Approval{
			ID:            uuid.NewString(),
			DocumentID:    documentID,
			Level:         as.Level,
			ApproverID:    approverID,
			Position:      i,
			Status:        domain.ApprovalStatusPending,
			RevisionCycle: cycle,
			CreatedAt:     at,
			UpdatedAt:     at,
		})
	}
	if err := fe.Err("create approval entries"); err != nil {
		return nil, err
	}
	return out, nil
}

// Sign attaches a signature to a PENDING or SIGNED record. current is the active set of the
// document's revision cycle and is used to enforce level ordering.
func Sign(doc domain.Document, current []domain.Approval, a domain.Approval, actorID, signatureImage string, at time.Time) (domain.Approval, error) {
	const op = "sign approval"
	if err := checkRecord(doc, a, actorID, op); err != nil {
		return a, err
	}
	if strings.TrimSpace(signatureImage) == "" {
		return a, domain.FieldErrors{{Field: "signature_image", Message: "is required"}}.Err(op)
	}
	switch a.Status {
	case domain.ApprovalStatusPending, domain.ApprovalStatusSigned:
	case domain.ApprovalStatusApproved:
		return a, domain.WrapError(domain.ErrState, op, domain.ErrApprovedNoResign)
	case domain.ApprovalStatusRejected, domain.ApprovalStatusNeedsRevision:
		return a, domain.WrapError(domain.ErrState, op, domain.ErrApprovalClosed)
	default:
		return a, domain.WrapError(domain.ErrState, op, fmt.Errorf("unknown approval status %q", a.Status))
	}
	if !doc.HasPreparedBySignature() {
		return a, domain.WrapError(domain.ErrState, op, domain.ErrPreparedByMissing)
	}
	if err := checkReviewPhase(doc, current, a, op); err != nil {
		return a, err
	}

	signedAt := at
	a.SignatureImage = signatureImage
	a.SignedAt = &signedAt
	a.Status = domain.ApprovalStatusSigned
	a.UpdatedAt = at
	return a, nil
}

// Confirm finalizes a SIGNED record. Confirming twice reports ErrAlreadyConfirmed.
func Confirm(doc domain.Document, a domain.Approval, actorID string, at time.Time) (domain.Approval, error) {
	const op = "confirm approval"
	if err := checkRecord(doc, a, actorID, op); err != nil {
		return a, err
	}
	switch a.Status {
	case domain.ApprovalStatusSigned:
	case domain.ApprovalStatusApproved:
		return a, domain.WrapError(domain.ErrState, op, domain.ErrAlreadyConfirmed)
	default:
		return a, domain.WrapError(domain.ErrState, op, domain.ErrMustSignFirst)
	}
	if a.SignedAt == nil {
		return a, domain.WrapError(domain.ErrState, op, domain.ErrMustSignFirst)
	}
	if !doc.Status.UnderReview() {
		return a, domain.WrapError(domain.ErrState, op, domain.ErrDocumentNotUnderReview)
	}

	confirmedAt := at
	a.Status = domain.ApprovalStatusApproved
	a.ConfirmedAt = &confirmedAt
	a.ApprovedAt = &confirmedAt
	a.UpdatedAt = at
	return a, nil
}

// Reject ends the document's approval with a reason.
func Reject(doc domain.Document, current []domain.Approval, a domain.Approval, actorID, reason string, at time.Time) (domain.Approval, error) {
	const op = "reject approval"
	if err := checkClosingAction(doc, current, a, actorID, reason, op); err != nil {
		return a, err
	}

	rejectedAt := at
	a.Status = domain.ApprovalStatusRejected
	a.RejectedAt = &rejectedAt
	a.Comment = strings.TrimSpace(reason)
	a.UpdatedAt = at
	return a, nil
}

// checkRecord verifies existence in the current cycle, then authorization.
func checkRecord(doc domain.Document, a domain.Approval, actorID, op string) error {
	if !a.Active() || a.DocumentID != doc.ID || a.RevisionCycle != doc.RevisionCycle {
		return domain.WrapError(domain.ErrNotFound, op, fmt.Errorf("approval %s", a.ID))
	}
	if actorID == "" || actorID != a.ApproverID {
		return domain.WrapError(domain.ErrForbidden, op, fmt.Errorf("user %q is not the assigned approver", actorID))
	}
	return nil
}

func checkReviewPhase(doc domain.Document, current []domain.Approval, a domain.Approval, op string) error {
	if !doc.Status.UnderReview() {
		return domain.WrapError(domain.ErrState, op, domain.ErrDocumentNotUnderReview)
	}
	if !LowerLevelsComplete(current, a.Level) {
		return domain.WrapError(domain.ErrState, op, domain.ErrPreviousLevelPending)
	}
	return nil
}

// checkClosingAction holds the shared preconditions of reject and revision requests.
func checkClosingAction(doc domain.Document, current []domain.Approval, a domain.Approval, actorID, reason, op string) error {
	if err := checkRecord(doc, a, actorID, op); err != nil {
		return err
	}
	if strings.TrimSpace(reason) == "" {
		return domain.FieldErrors{{Field: "reason", Message: "is required"}}.Err(op)
	}
	switch a.Status {
	case domain.ApprovalStatusPending, domain.ApprovalStatusSigned:
	case domain.ApprovalStatusApproved:
		return domain.WrapError(domain.ErrState, op, domain.ErrAlreadyConfirmed)
	default:
		return domain.WrapError(domain.ErrState, op, domain.ErrApprovalClosed)
	}
	return checkReviewPhase(doc, current, a, op)
}

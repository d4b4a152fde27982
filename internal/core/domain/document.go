package domain

import "time"

type DocumentStatus string

const (
	StatusDraft               DocumentStatus = "DRAFT"
	StatusInReview            DocumentStatus = "IN_REVIEW"
	StatusOnApproval          DocumentStatus = "ON_APPROVAL"
	StatusPendingAcknowledged DocumentStatus = "PENDING_ACKNOWLEDGED"
	StatusOnRevision          DocumentStatus = "ON_REVISION"
	StatusWaitingValidation   DocumentStatus = "WAITING_VALIDATION"
	StatusApproved            DocumentStatus = "APPROVED"
	StatusActive              DocumentStatus = "ACTIVE"
	StatusRevisionRequired    DocumentStatus = "REVISION_REQUIRED"
	StatusObsolete            DocumentStatus = "OBSOLETE"
	StatusArchived            DocumentStatus = "ARCHIVED"
)

func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusInReview, StatusOnApproval, StatusPendingAcknowledged,
		StatusOnRevision, StatusWaitingValidation, StatusApproved, StatusActive,
		StatusRevisionRequired, StatusObsolete, StatusArchived:
		return true
	default:
		return false
	}
}

// UnderReview reports whether approvers may act on the document.
func (s DocumentStatus) UnderReview() bool {
	switch s {
	case StatusInReview, StatusOnApproval, StatusPendingAcknowledged:
		return true
	case StatusDraft, StatusOnRevision, StatusWaitingValidation, StatusApproved, StatusActive,
		StatusRevisionRequired, StatusObsolete, StatusArchived:
		return false
	default:
		return false
	}
}

// DocumentApprovalStatus is the coarse approval state shown next to the lifecycle status.
type DocumentApprovalStatus string

const (
	ApprovalPending       DocumentApprovalStatus = "PENDING"
	ApprovalInProgress    DocumentApprovalStatus = "IN_PROGRESS"
	ApprovalApproved      DocumentApprovalStatus = "APPROVED"
	ApprovalRejected      DocumentApprovalStatus = "REJECTED"
	ApprovalNeedsRevision DocumentApprovalStatus = "NEEDS_REVISION"
)

func (s DocumentApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalInProgress, ApprovalApproved, ApprovalRejected, ApprovalNeedsRevision:
		return true
	default:
		return false
	}
}

type Document struct {
	ID                  string                 `json:"id"`
	Title               string                 `json:"title"`
	Status              DocumentStatus         `json:"status"`
	ApprovalStatus      DocumentApprovalStatus `json:"approval_status"`
	RevisionCycle       int                    `json:"revision_cycle"`
	CreatedBy           string                 `json:"created_by"`
	PreparedBySignature string                 `json:"prepared_by_signature,omitempty"`
	PreparedAt          *time.Time             `json:"prepared_at,omitempty"`
	Version             int64                  `json:"version"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

func (d *Document) HasPreparedBySignature() bool {
	return d.PreparedBySignature != "" && d.PreparedAt != nil
}

package domain

import "time"

// Level is the sequential approval tier.
type Level int

const (
	LevelReviewer     Level = 1
	LevelApprover     Level = 2
	LevelAcknowledger Level = 3
)

// Levels lists every tier in sign-off order.
var Levels = []Level{LevelReviewer, LevelApprover, LevelAcknowledger}

func (l Level) Valid() bool {
	switch l {
	case LevelReviewer, LevelApprover, LevelAcknowledger:
		return true
	default:
		return false
	}
}

func (l Level) String() string {
	switch l {
	case LevelReviewer:
		return "reviewer"
	case LevelApprover:
		return "approver"
	case LevelAcknowledger:
		return "acknowledger"
	default:
		return "unknown"
	}
}

type ApprovalStatus string

const (
	ApprovalStatusPending       ApprovalStatus = "PENDING"
	ApprovalStatusSigned        ApprovalStatus = "SIGNED"
	ApprovalStatusApproved      ApprovalStatus = "APPROVED"
	ApprovalStatusRejected      ApprovalStatus = "REJECTED"
	ApprovalStatusNeedsRevision ApprovalStatus = "NEEDS_REVISION"
)

func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalStatusPending, ApprovalStatusSigned, ApprovalStatusApproved,
		ApprovalStatusRejected, ApprovalStatusNeedsRevision:
		return true
	default:
		return false
	}
}

// Approval is one approver's unit of work on one document.
type Approval struct {
	ID             string         `json:"id"`
	DocumentID     string         `json:"document_id"`
	Level          Level          `json:"level"`
	ApproverID     string         `json:"approver_id"`
	Position       int            `json:"position"`
	Status         ApprovalStatus `json:"status"`
	SignatureImage string         `json:"signature_image,omitempty"`
	SignedAt       *time.Time     `json:"signed_at,omitempty"`
	ConfirmedAt    *time.Time     `json:"confirmed_at,omitempty"`
	ApprovedAt     *time.Time     `json:"approved_at,omitempty"`
	RejectedAt     *time.Time     `json:"rejected_at,omitempty"`
	Comment        string         `json:"comment,omitempty"`
	RevisionCycle  int            `json:"revision_cycle"`
	IsDeleted      bool           `json:"is_deleted"`
	DeletedAt      *time.Time     `json:"deleted_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Active reports whether the record takes part in level-completion calculations.
func (a Approval) Active() bool {
	return !a.IsDeleted
}

// Assignment requests one approver at one level.
type Assignment struct {
	ApproverID string `json:"approver_id"`
	Level      Level  `json:"level"`
}

// AssignmentsFromRoles flattens the three role lists of a submission form in level order.
func AssignmentsFromRoles(reviewerIDs, approverIDs, acknowledgedIDs []string) []Assignment {
	out := make([]Assignment, 0, len(reviewerIDs)+len(approverIDs)+len(acknowledgedIDs))
	for _, id := range reviewerIDs {
		out = append(out, Assignment{ApproverID: id, Level: LevelReviewer})
	}
	for _, id := range approverIDs {
		out = append(out, Assignment{ApproverID: id, Level: LevelApprover})
	}
	for _, id := range acknowledgedIDs {
		out = append(out, Assignment{ApproverID: id, Level: LevelAcknowledger})
	}
	return out
}

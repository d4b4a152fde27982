package domain

import "time"

type AuditAction string

const (
	AuditSubmitted         AuditAction = "submitted"
	AuditSigned            AuditAction = "signed"
	AuditConfirmed         AuditAction = "confirmed"
	AuditRejected          AuditAction = "rejected"
	AuditRevisionRequested AuditAction = "revision_requested"
	AuditResubmitted       AuditAction = "resubmitted"
	AuditValidated         AuditAction = "validated"
)

// AuditRecord is an immutable entry in a document's approval history.
type AuditRecord struct {
	ID                  string                 `json:"id"`
	DocumentID          string                 `json:"document_id"`
	ApprovalID          string                 `json:"approval_id,omitempty"`
	Action              AuditAction            `json:"action"`
	ActorID             string                 `json:"actor_id"`
	StatusBefore        DocumentStatus         `json:"status_before"`
	StatusAfter         DocumentStatus         `json:"status_after"`
	ApprovalStatusAfter DocumentApprovalStatus `json:"approval_status_after"`
	Detail              string                 `json:"detail,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
}

// RevisionRequest records why a revision cycle was ended.
type RevisionRequest struct {
	ID            string    `json:"id"`
	DocumentID    string    `json:"document_id"`
	ApprovalID    string    `json:"approval_id"`
	Level         Level     `json:"level"`
	RequestedBy   string    `json:"requested_by"`
	Reason        string    `json:"reason"`
	RevisionCycle int       `json:"revision_cycle"`
	CreatedAt     time.Time `json:"created_at"`
}

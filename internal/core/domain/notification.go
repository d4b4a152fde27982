package domain

import "time"

const (
	MessageApprovalRequired    = "approval.action_required"
	MessageApprovalSigned      = "approval.signed"
	MessageWaitingValidation   = "document.waiting_validation"
	MessageDocumentRejected    = "document.rejected"
	MessageRevisionRequested   = "document.revision_requested"
	MessageDocumentValidated   = "document.validated"
	NotificationTypeApproval   = "approval"
	NotificationTypeDocument   = "document"
	NotificationPriorityHigh   = "high"
	NotificationPriorityNormal = "normal"
)

// NotificationIntent is a pure description of one message to one user.
type NotificationIntent struct {
	UserID     string            `json:"user_id"`
	Type       string            `json:"type"`
	MessageKey string            `json:"message_key"`
	Params     map[string]string `json:"params,omitempty"`
	Priority   string            `json:"priority"`
	Link       string            `json:"link"`
}

// Notification is a delivered, rendered inbox entry.
type Notification struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Type       string     `json:"type"`
	MessageKey string     `json:"message_key"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	Priority   string     `json:"priority"`
	Link       string     `json:"link"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

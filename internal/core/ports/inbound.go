package ports

import (
	"context"
	"io"

	"github.com/kirillkom/document-approval/internal/core/domain"
)

// SubmitDocumentInput is the submission form.
type SubmitDocumentInput struct {
	Title               string
	PreparedBySignature string
	Draft               bool
	ReviewerIDs         []string
	ApproverIDs         []string
	AcknowledgedIDs     []string
}

// DocumentView is a document with its current-cycle ledger.
type DocumentView struct {
	Document  domain.Document   `json:"document"`
	Approvals []domain.Approval `json:"approvals"`
}

// ApprovalResult is returned by every ledger action.
type ApprovalResult struct {
	Approval       domain.Approval               `json:"approval"`
	Approver       domain.User                   `json:"approver"`
	DocumentStatus domain.DocumentStatus         `json:"document_status"`
	ApprovalStatus domain.DocumentApprovalStatus `json:"approval_status"`
}

// DocumentSubmitter is the inbound contract for submission and the owner's lifecycle actions.
type DocumentSubmitter interface {
	Submit(ctx context.Context, actor domain.Actor, in SubmitDocumentInput) (*DocumentView, error)
	SubmitDraft(ctx context.Context, actor domain.Actor, documentID, preparedBySignature string) (*DocumentView, error)
	Resubmit(ctx context.Context, actor domain.Actor, documentID, preparedBySignature string) (*DocumentView, error)
}

// ApprovalWorkflow is the inbound contract for approver actions.
type ApprovalWorkflow interface {
	Sign(ctx context.Context, actor domain.Actor, approvalID, signatureImage string) (*ApprovalResult, error)
	Confirm(ctx context.Context, actor domain.Actor, approvalID string) (*ApprovalResult, error)
	Reject(ctx context.Context, actor domain.Actor, approvalID, reason string) (*ApprovalResult, error)
	RequestRevision(ctx context.Context, actor domain.Actor, approvalID, reason string) (*ApprovalResult, error)
	Validate(ctx context.Context, actor domain.Actor, documentID string) (*DocumentView, error)
}

// DocumentReader is the inbound read model.
type DocumentReader interface {
	GetDocument(ctx context.Context, actor domain.Actor, documentID string) (*DocumentView, error)
	ListAudit(ctx context.Context, actor domain.Actor, documentID string) ([]domain.AuditRecord, error)
	ExportAudit(ctx context.Context, actor domain.Actor, documentID string, w io.Writer) error
	OpenSignature(ctx context.Context, actor domain.Actor, approvalID string) (io.ReadCloser, error)
}

// NotificationInbox is the inbound contract for delivered notifications.
type NotificationInbox interface {
	Deliver(ctx context.Context, intent domain.NotificationIntent) error
	List(ctx context.Context, actor domain.Actor, unreadOnly bool, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, actor domain.Actor, notificationID string) error
}

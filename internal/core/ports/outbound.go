package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/document-approval/internal/core/domain"
)

// WorkflowStore runs a unit of work atomically. Returning an error from fn rolls back.
type WorkflowStore interface {
	WithinTx(ctx context.Context, fn func(tx WorkflowTx) error) error
	DocumentQueries
}

// WorkflowTx is the ledger persistence available inside one transaction.
type WorkflowTx interface {
	CreateDocument(ctx context.Context, doc *domain.Document) error
	// LockDocument reads the document and holds it against concurrent actions until commit.
	LockDocument(ctx context.Context, documentID string) (*domain.Document, error)
	// UpdateDocument persists status fields; it fails with ErrConflict unless doc.Version
	// matches the stored version, and bumps doc.Version on success.
	UpdateDocument(ctx context.Context, doc *domain.Document) error

	GetApproval(ctx context.Context, approvalID string) (*domain.Approval, error)
	FindApprovalsByDocument(ctx context.Context, documentID string) ([]domain.Approval, error)
	CreateApprovals(ctx context.Context, batch []domain.Approval) error
	UpdateApproval(ctx context.Context, approval *domain.Approval) error

	AppendAuditRecord(ctx context.Context, record *domain.AuditRecord) error
	AppendRevisionRequest(ctx context.Context, request *domain.RevisionRequest) error
}

// DocumentQueries is the read side used outside workflow transactions.
type DocumentQueries interface {
	GetDocument(ctx context.Context, documentID string) (*domain.Document, error)
	GetApprovalByID(ctx context.Context, approvalID string) (*domain.Approval, error)
	ListApprovals(ctx context.Context, documentID string) ([]domain.Approval, error)
	ListAuditRecords(ctx context.Context, documentID string) ([]domain.AuditRecord, error)
	ListRevisionRequests(ctx context.Context, documentID string) ([]domain.RevisionRequest, error)
}

// UserDirectory resolves people referenced by the ledger.
type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	ListActiveUserIDsByRole(ctx context.Context, role domain.Role) ([]string, error)
}

// NotificationPublisher hands an intent to the notification service.
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, intent domain.NotificationIntent) error
}

// NotificationSubscriber consumes intents on the worker side.
type NotificationSubscriber interface {
	SubscribeNotifications(ctx context.Context, handler func(context.Context, domain.NotificationIntent) error) error
}

// NotificationStore persists rendered inbox entries.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *domain.Notification) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID string) error
}

// MessageCatalog renders a message key in a locale.
type MessageCatalog interface {
	Render(locale, messageKey string, params map[string]string) (title, body string, err error)
}

// ObjectStorage stores signature images.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes an object; a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// AuditExporter renders an audit trail into a downloadable workbook.
type AuditExporter interface {
	ExportAudit(doc *domain.Document, approvals []domain.Approval, records []domain.AuditRecord, revisions []domain.RevisionRequest, w io.Writer) error
}

// Retrier re-runs an operation while it fails with a retryable error.
type Retrier interface {
	Retry(ctx context.Context, operation string, fn func(context.Context) error) error
}

// WorkflowMetrics records workflow outcomes.
type WorkflowMetrics interface {
	ObserveAction(action, outcome string, elapsed time.Duration)
	ObserveNotification(messageKey, outcome string)
}

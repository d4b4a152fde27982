package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kirillkom/document-approval/internal/core/domain"
	"github.com/kirillkom/document-approval/internal/core/ports"
)

// WorkflowStore is the postgres ledger. Actions lock the document row, so concurrent
// actions on one document are serialized while different documents proceed in parallel.
type WorkflowStore struct {
	db *sql.DB
}

func NewWorkflowStore(db *sql.DB) *WorkflowStore {
	return &WorkflowStore{db: db}
}

func (s *WorkflowStore) WithinTx(ctx context.Context, fn func(tx ports.WorkflowTx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return classifyPgError("begin workflow tx", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(&workflowTx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return classifyPgError("commit workflow tx", err)
	}
	return nil
}

func (s *WorkflowStore) GetDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	return selectDocument(ctx, s.db, documentID, false)
}

func (s *WorkflowStore) GetApprovalByID(ctx context.Context, approvalID string) (*domain.Approval, error) {
	return selectApproval(ctx, s.db, approvalID)
}

func (s *WorkflowStore) ListApprovals(ctx context.Context, documentID string) ([]domain.Approval, error) {
	return selectApprovalsByDocument(ctx, s.db, documentID)
}

func (s *WorkflowStore) ListAuditRecords(ctx context.Context, documentID string) ([]domain.AuditRecord, error) {
	return selectAuditRecords(ctx, s.db, documentID)
}

func (s *WorkflowStore) ListRevisionRequests(ctx context.Context, documentID string) ([]domain.RevisionRequest, error) {
	return selectRevisionRequests(ctx, s.db, documentID)
}

type workflowTx struct {
	q querier
}

func (t *workflowTx) CreateDocument(ctx context.Context, doc *domain.Document) error {
	return insertDocument(ctx, t.q, doc)
}

func (t *workflowTx) LockDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	return selectDocument(ctx, t.q, documentID, true)
}

func (t *workflowTx) UpdateDocument(ctx context.Context, doc *domain.Document) error {
	return updateDocumentVersioned(ctx, t.q, doc)
}

func (t *workflowTx) GetApproval(ctx context.Context, approvalID string) (*domain.Approval, error) {
	return selectApproval(ctx, t.q, approvalID)
}

func (t *workflowTx) FindApprovalsByDocument(ctx context.Context, documentID string) ([]domain.Approval, error) {
	return selectApprovalsByDocument(ctx, t.q, documentID)
}

func (t *workflowTx) CreateApprovals(ctx context.Context, batch []domain.Approval) error {
	if len(batch) == 0 {
		return nil
	}
	if err := insertApprovals(ctx, t.q, batch); err != nil {
		return fmt.Errorf("create approvals for %s: %w", batch[0].DocumentID, err)
	}
	return nil
}

func (t *workflowTx) UpdateApproval(ctx context.Context, approval *domain.Approval) error {
	return updateApproval(ctx, t.q, approval)
}

func (t *workflowTx) AppendAuditRecord(ctx context.Context, record *domain.AuditRecord) error {
	return insertAuditRecord(ctx, t.q, record)
}

func (t *workflowTx) AppendRevisionRequest(ctx context.Context, request *domain.RevisionRequest) error {
	return insertRevisionRequest(ctx, t.q, request)
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kirillkom/document-approval/internal/core/domain"
	"github.com/kirillkom/document-approval/internal/core/ports"
	"github.com/kirillkom/document-approval/internal/core/workflow"
)

// DocumentQueryUseCase serves the read side to the owner, the assigned approvers and
// administrators.
type DocumentQueryUseCase struct {
	store    ports.DocumentQueries
	storage  ports.ObjectStorage
	exporter ports.AuditExporter
}

func NewDocumentQueryUseCase(store ports.DocumentQueries, storage ports.ObjectStorage, exporter ports.AuditExporter) *DocumentQueryUseCase {
	return &DocumentQueryUseCase{
		store:    store,
		storage:  storage,
		exporter: exporter,
	}
}

func (uc *DocumentQueryUseCase) GetDocument(ctx context.Context, actor domain.Actor, documentID string) (*ports.DocumentView, error) {
	doc, all, err := uc.visible(ctx, actor, documentID, "get document")
	if err != nil {
		return nil, err
	}
	return view(*doc, workflow.CurrentCycle(all, doc.RevisionCycle)), nil
}

func (uc *DocumentQueryUseCase) ListAudit(ctx context.Context, actor domain.Actor, documentID string) ([]domain.AuditRecord, error) {
	if _, _, err := uc.visible(ctx, actor, documentID, "list audit"); err != nil {
		return nil, err
	}
	records, err := uc.store.ListAuditRecords(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	return records, nil
}

// ExportAudit writes the full history, every revision cycle included, as a workbook.
func (uc *DocumentQueryUseCase) ExportAudit(ctx context.Context, actor domain.Actor, documentID string, w io.Writer) error {
	doc, all, err := uc.visible(ctx, actor, documentID, "export audit")
	if err != nil {
		return err
	}
	records, err := uc.store.ListAuditRecords(ctx, documentID)
	if err != nil {
		return fmt.Errorf("list audit records: %w", err)
	}
	revisions, err := uc.store.ListRevisionRequests(ctx, documentID)
	if err != nil {
		return fmt.Errorf("list revision requests: %w", err)
	}
	workflow.SortByCreation(all)
	if err := uc.exporter.ExportAudit(doc, all, records, revisions, w); err != nil {
		return fmt.Errorf("export audit workbook: %w", err)
	}
	return nil
}

// OpenSignature streams the image attached to an approval record. Approvals of documents the
// actor cannot see are reported exactly like unknown ids.
func (uc *DocumentQueryUseCase) OpenSignature(ctx context.Context, actor domain.Actor, approvalID string) (io.ReadCloser, error) {
	const op = "open signature"
	if err := requireActor(actor, op); err != nil {
		return nil, err
	}
	unknown := domain.WrapError(domain.ErrNotFound, "get approval", fmt.Errorf("approval %s", approvalID))
	a, err := uc.store.GetApprovalByID(ctx, approvalID)
	if domain.IsKind(err, domain.ErrNotFound) {
		return nil, unknown
	}
	if err != nil {
		return nil, err
	}
	if _, _, err := uc.visible(ctx, actor, a.DocumentID, op); err != nil {
		if domain.IsKind(err, domain.ErrForbidden) {
			return nil, unknown
		}
		return nil, err
	}
	if a.SignatureImage == "" {
		return nil, domain.WrapError(domain.ErrNotFound, op, fmt.Errorf("approval %s has no signature", a.ID))
	}
	rc, err := uc.storage.Open(ctx, a.SignatureImage)
	if err != nil {
		return nil, fmt.Errorf("open signature %s: %w", a.SignatureImage, err)
	}
	return rc, nil
}

func (uc *DocumentQueryUseCase) visible(ctx context.Context, actor domain.Actor, documentID, op string) (*domain.Document, []domain.Approval, error) {
	if err := requireActor(actor, op); err != nil {
		return nil, nil, err
	}
	doc, err := uc.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	all, err := uc.store.ListApprovals(ctx, documentID)
	if err != nil {
		return nil, nil, fmt.Errorf("list approvals: %w", err)
	}
	if actor.IsAdmin() || doc.CreatedBy == actor.UserID {
		return doc, all, nil
	}
	for _, a := range all {
		if a.ApproverID == actor.UserID {
			return doc, all, nil
		}
	}
	return nil, nil, domain.WrapError(domain.ErrForbidden, op, errors.New("document is not shared with this user"))
}

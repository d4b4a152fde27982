package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/document-approval/internal/core/domain"
)

const documentColumns = `id, title, status, approval_status, revision_cycle, created_by, prepared_by_signature, prepared_at, version, created_at, updated_at`

func insertDocument(ctx context.Context, q querier, doc *domain.Document) error {
	if doc.Version == 0 {
		doc.Version = 1
	}
	_, err := q.ExecContext(ctx, `
INSERT INTO documents (`+documentColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		doc.ID, doc.Title, string(doc.Status), string(doc.ApprovalStatus), doc.RevisionCycle, doc.CreatedBy,
		doc.PreparedBySignature, doc.PreparedAt, doc.Version, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return classifyPgError("insert document", err)
	}
	return nil
}

func selectDocument(ctx context.Context, q querier, id string, forUpdate bool) (*domain.Document, error) {
	query := `
SELECT ` + documentColumns + `
FROM documents
WHERE id = $1
`
	if forUpdate {
		query += "FOR UPDATE"
	}

	doc, err := scanDocument(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get document", fmt.Errorf("document %s", id))
		}
		return nil, classifyPgError("scan document", err)
	}
	return &doc, nil
}

// updateDocumentVersioned writes the mutable fields only if nobody else did since doc was read.
func updateDocumentVersioned(ctx context.Context, q querier, doc *domain.Document) error {
	result, err := q.ExecContext(ctx, `
UPDATE documents
SET status = $3, approval_status = $4, revision_cycle = $5, prepared_by_signature = $6, prepared_at = $7,
	updated_at = $8, version = version + 1
WHERE id = $1 AND version = $2
`,
		doc.ID, doc.Version, string(doc.Status), string(doc.ApprovalStatus), doc.RevisionCycle,
		doc.PreparedBySignature, doc.PreparedAt, doc.UpdatedAt,
	)
	if err != nil {
		return classifyPgError("update document", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrConflict, "update document", fmt.Errorf("document %s changed since version %d", doc.ID, doc.Version))
	}
	doc.Version++
	return nil
}

func scanDocument(row rowScanner) (domain.Document, error) {
	var doc domain.Document
	var status, approvalStatus string
	err := row.Scan(
		&doc.ID,
		&doc.Title,
		&status,
		&approvalStatus,
		&doc.RevisionCycle,
		&doc.CreatedBy,
		&doc.PreparedBySignature,
		&doc.PreparedAt,
		&doc.Version,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return domain.Document{}, err
	}
	doc.Status = domain.DocumentStatus(status)
	doc.ApprovalStatus = domain.DocumentApprovalStatus(approvalStatus)
	if !doc.Status.Valid() {
		return domain.Document{}, fmt.Errorf("document %s has unknown status %q", doc.ID, status)
	}
	return doc, nil
}

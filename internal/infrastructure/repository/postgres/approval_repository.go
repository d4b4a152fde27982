package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/document-approval/internal/core/domain"
)

const approvalColumns = `id, document_id, level, approver_id, position, status, signature_image, signed_at, confirmed_at, approved_at, rejected_at, comment, revision_cycle, is_deleted, deleted_at, created_at, updated_at`

func insertApprovals(ctx context.Context, q querier, batch []domain.Approval) error {
	for _, a := range batch {
		_, err := q.ExecContext(ctx, `
INSERT INTO approvals (`+approvalColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
`,
			a.ID, a.DocumentID, int(a.Level), a.ApproverID, a.Position, string(a.Status), a.SignatureImage,
			a.SignedAt, a.ConfirmedAt, a.ApprovedAt, a.RejectedAt, a.Comment, a.RevisionCycle,
			a.IsDeleted, a.DeletedAt, a.CreatedAt, a.UpdatedAt,
		)
		if err != nil {
			return classifyPgError("insert approval", err)
		}
	}
	return nil
}

func selectApproval(ctx context.Context, q querier, id string) (*domain.Approval, error) {
	a, err := scanApproval(q.QueryRowContext(ctx, `
SELECT `+approvalColumns+`
FROM approvals
WHERE id = $1
`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get approval", fmt.Errorf("approval %s", id))
		}
		return nil, classifyPgError("scan approval", err)
	}
	return &a, nil
}

// selectApprovalsByDocument returns every cycle's records, retired ones included.
func selectApprovalsByDocument(ctx context.Context, q querier, documentID string) ([]domain.Approval, error) {
	rows, err := q.QueryContext(ctx, `
SELECT `+approvalColumns+`
FROM approvals
WHERE document_id = $1
ORDER BY revision_cycle, created_at, position, id
`, documentID)
	if err != nil {
		return nil, classifyPgError("list approvals", err)
	}
	defer rows.Close()

	out := make([]domain.Approval, 0)
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approvals: %w", err)
	}
	return out, nil
}

func updateApproval(ctx context.Context, q querier, a *domain.Approval) error {
	result, err := q.ExecContext(ctx, `
UPDATE approvals
SET status = $2, signature_image = $3, signed_at = $4, confirmed_at = $5, approved_at = $6, rejected_at = $7,
	comment = $8, is_deleted = $9, deleted_at = $10, updated_at = $11
WHERE id = $1
`,
		a.ID, string(a.Status), a.SignatureImage, a.SignedAt, a.ConfirmedAt, a.ApprovedAt, a.RejectedAt,
		a.Comment, a.IsDeleted, a.DeletedAt, a.UpdatedAt,
	)
	if err != nil {
		return classifyPgError("update approval", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update approval rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "update approval", fmt.Errorf("approval %s", a.ID))
	}
	return nil
}

func scanApproval(row rowScanner) (domain.Approval, error) {
	var a domain.Approval
	var level int
	var status string
	err := row.Scan(
		&a.ID,
		&a.DocumentID,
		&level,
		&a.ApproverID,
		&a.Position,
		&status,
		&a.SignatureImage,
		&a.SignedAt,
		&a.ConfirmedAt,
		&a.ApprovedAt,
		&a.RejectedAt,
		&a.Comment,
		&a.RevisionCycle,
		&a.IsDeleted,
		&a.DeletedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return domain.Approval{}, err
	}
	a.Level = domain.Level(level)
	a.Status = domain.ApprovalStatus(status)
	if !a.Level.Valid() || !a.Status.Valid() {
		return domain.Approval{}, fmt.Errorf("approval %s has invalid level %d or status %q", a.ID, level, status)
	}
	return a, nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/kirillkom/document-approval/internal/core/domain"
)

func insertAuditRecord(ctx context.Context, q querier, r *domain.AuditRecord) error {
	_, err := q.ExecContext(ctx, `
INSERT INTO audit_records (id, document_id, approval_id, action, actor_id, status_before, status_after, approval_status_after, detail, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		r.ID, r.DocumentID, r.ApprovalID, string(r.Action), r.ActorID, string(r.StatusBefore),
		string(r.StatusAfter), string(r.ApprovalStatusAfter), r.Detail, r.CreatedAt,
	)
	if err != nil {
		return classifyPgError("insert audit record", err)
	}
	return nil
}

func insertRevisionRequest(ctx context.Context, q querier, r *domain.RevisionRequest) error {
	_, err := q.ExecContext(ctx, `
INSERT INTO revision_requests (id, document_id, approval_id, level, requested_by, reason, revision_cycle, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		r.ID, r.DocumentID, r.ApprovalID, int(r.Level), r.RequestedBy, r.Reason, r.RevisionCycle, r.CreatedAt,
	)
	if err != nil {
		return classifyPgError("insert revision request", err)
	}
	return nil
}

func selectAuditRecords(ctx context.Context, q querier, documentID string) ([]domain.AuditRecord, error) {
	rows, err := q.QueryContext(ctx, `
SELECT id, document_id, approval_id, action, actor_id, status_before, status_after, approval_status_after, detail, created_at
FROM audit_records
WHERE document_id = $1
ORDER BY created_at, id
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer rows.Close()

	out := make([]domain.AuditRecord, 0)
	for rows.Next() {
		var r domain.AuditRecord
		var action, before, after, approvalAfter string
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.ApprovalID, &action, &r.ActorID, &before, &after, &approvalAfter, &r.Detail, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		r.Action = domain.AuditAction(action)
		r.StatusBefore = domain.DocumentStatus(before)
		r.StatusAfter = domain.DocumentStatus(after)
		r.ApprovalStatusAfter = domain.DocumentApprovalStatus(approvalAfter)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return out, nil
}

func selectRevisionRequests(ctx context.Context, q querier, documentID string) ([]domain.RevisionRequest, error) {
	rows, err := q.QueryContext(ctx, `
SELECT id, document_id, approval_id, level, requested_by, reason, revision_cycle, created_at
FROM revision_requests
WHERE document_id = $1
ORDER BY created_at, id
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list revision requests: %w", err)
	}
	defer rows.Close()

	out := make([]domain.RevisionRequest, 0)
	for rows.Next() {
		var r domain.RevisionRequest
		var level int
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.ApprovalID, &level, &r.RequestedBy, &r.Reason, &r.RevisionCycle, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan revision request: %w", err)
		}
		r.Level = domain.Level(level)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revision requests: %w", err)
	}
	return out, nil
}

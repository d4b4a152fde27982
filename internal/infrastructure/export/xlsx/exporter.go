package xlsx

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/document-approval/internal/core/domain"
)

const (
	sheetDocument  = "Document"
	sheetApprovals = "Approvals"
	sheetAudit     = "Audit"
	sheetRevisions = "Revisions"
)

// Exporter writes a document's approval history as an XLSX workbook.
type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

func (e *Exporter) ExportAudit(
	doc *domain.Document,
	approvals []domain.Approval,
	records []domain.AuditRecord,
	revisions []domain.RevisionRequest,
	w io.Writer,
) error {
	if doc == nil {
		return domain.WrapError(domain.ErrInvalidInput, "export audit", fmt.Errorf("document is required"))
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetDocument); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{sheetApprovals, sheetAudit, sheetRevisions} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	docRows := [][]any{
		{"Field", "Value"},
		{"ID", doc.ID},
		{"Title", doc.Title},
		{"Status", string(doc.Status)},
		{"Approval status", string(doc.ApprovalStatus)},
		{"Revision cycle", doc.RevisionCycle},
		{"Created by", doc.CreatedBy},
		{"Prepared at", formatTime(doc.PreparedAt)},
		{"Created at", formatTime(&doc.CreatedAt)},
		{"Updated at", formatTime(&doc.UpdatedAt)},
	}
	if err := writeSheet(f, sheetDocument, header, docRows); err != nil {
		return err
	}

	approvalRows := [][]any{{"ID", "Cycle", "Level", "Position", "Approver", "Status", "Signed at", "Confirmed at", "Rejected at", "Comment", "Retired"}}
	for _, a := range approvals {
		approvalRows = append(approvalRows, []any{
			a.ID, a.RevisionCycle, a.Level.String(), a.Position, a.ApproverID, string(a.Status),
			formatTime(a.SignedAt), formatTime(a.ConfirmedAt), formatTime(a.RejectedAt), a.Comment, yesNo(a.IsDeleted),
		})
	}
	if err := writeSheet(f, sheetApprovals, header, approvalRows); err != nil {
		return err
	}

	auditRows := [][]any{{"Time", "Action", "Actor", "Approval", "Status before", "Status after", "Approval status", "Detail"}}
	for _, r := range records {
		auditRows = append(auditRows, []any{
			formatTime(&r.CreatedAt), string(r.Action), r.ActorID, r.ApprovalID,
			string(r.StatusBefore), string(r.StatusAfter), string(r.ApprovalStatusAfter), r.Detail,
		})
	}
	if err := writeSheet(f, sheetAudit, header, auditRows); err != nil {
		return err
	}

	revisionRows := [][]any{{"Time", "Cycle", "Level", "Approval", "Requested by", "Reason"}}
	for _, r := range revisions {
		revisionRows = append(revisionRows, []any{
			formatTime(&r.CreatedAt), r.RevisionCycle, r.Level.String(), r.ApprovalID, r.RequestedBy, r.Reason,
		})
	}
	if err := writeSheet(f, sheetRevisions, header, revisionRows); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headerStyle int, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) == 0 {
		return nil
	}

	last, err := excelize.ColumnNumberToName(len(rows[0]))
	if err != nil {
		return fmt.Errorf("column name: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last+"1", headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	if err := f.SetColWidth(sheet, "A", last, 20); err != nil {
		return fmt.Errorf("size %s columns: %w", sheet, err)
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

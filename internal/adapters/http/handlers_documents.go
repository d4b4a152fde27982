package httpadapter

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/kirillkom/document-approval/internal/core/domain"
	"github.com/kirillkom/document-approval/internal/core/ports"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (rt *Router) submitDocument(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	var req submitDocumentRequest
	if err := rt.decodeBody(w, r, "/v1/documents", false, &req); err != nil {
		writeError(w, r, err)
		return
	}

	view, err := rt.deps.Submitter.Submit(r.Context(), actor, ports.SubmitDocumentInput{
		Title:               req.Title,
		PreparedBySignature: req.PreparedBySignature,
		Draft:               req.Draft,
		ReviewerIDs:         req.ReviewerIDs,
		ApproverIDs:         req.ApproverIDs,
		AcknowledgedIDs:     req.AcknowledgedIDs,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/documents/"+view.Document.ID)
	writeJSON(w, http.StatusCreated, toDocumentView(view))
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	id, err := pathUUID(r, "documentId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := rt.deps.Reader.GetDocument(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentView(view))
}

func (rt *Router) submitDraft(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	id, err := pathUUID(r, "documentId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req preparedBySignatureRequest
	if err := rt.decodeBody(w, r, "/v1/documents/{documentId}/submit", true, &req); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := rt.deps.Submitter.SubmitDraft(r.Context(), actor, id, req.PreparedBySignature)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentView(view))
}

func (rt *Router) resubmitDocument(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	id, err := pathUUID(r, "documentId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req preparedBySignatureRequest
	if err := rt.decodeBody(w, r, "/v1/documents/{documentId}/resubmit", true, &req); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := rt.deps.Submitter.Resubmit(r.Context(), actor, id, req.PreparedBySignature)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentView(view))
}

func (rt *Router) validateDocument(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	id, err := pathUUID(r, "documentId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := rt.deps.Workflow.Validate(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentView(view))
}

func (rt *Router) listAudit(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	id, err := pathUUID(r, "documentId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	records, err := rt.deps.Reader.ListAudit(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuditRecords(records))
}

// exportAudit buffers the workbook so a failed export still maps to a JSON error.
func (rt *Router) exportAudit(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	id, err := pathUUID(r, "documentId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := rt.deps.Reader.ExportAudit(r.Context(), actor, id, &buf); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="audit-%s.xlsx"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

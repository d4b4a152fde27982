package httpadapter

import (
	"io"
	"net/http"

	"github.com/kirillkom/document-approval/internal/core/domain"
)

const maxSignatureResponseBytes = 2 << 20

func (rt *Router) signApproval(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	id, err := pathUUID(r, "approvalId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req signRequest
	if err := rt.decodeBody(w, r, "/v1/approvals/{approvalId}/sign", false, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := rt.deps.Workflow.Sign(r.Context(), actor, id, req.SignatureImage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toApprovalResult(res))
}

func (rt *Router) confirmApproval(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	id, err := pathUUID(r, "approvalId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := rt.deps.Workflow.Confirm(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toApprovalResult(res))
}

func (rt *Router) rejectApproval(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	id, err := pathUUID(r, "approvalId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req reasonRequest
	if err := rt.decodeBody(w, r, "/v1/approvals/{approvalId}/reject", false, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := rt.deps.Workflow.Reject(r.Context(), actor, id, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toApprovalResult(res))
}

func (rt *Router) requestRevision(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	id, err := pathUUID(r, "approvalId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req reasonRequest
	if err := rt.decodeBody(w, r, "/v1/approvals/{approvalId}/revision", false, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := rt.deps.Workflow.RequestRevision(r.Context(), actor, id, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toApprovalResult(res))
}

func (rt *Router) getSignature(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	id, err := pathUUID(r, "approvalId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rc, err := rt.deps.Reader.OpenSignature(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxSignatureResponseBytes))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

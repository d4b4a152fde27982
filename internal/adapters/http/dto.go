package httpadapter

import (
	"time"

	"github.com/kirillkom/document-approval/internal/core/domain"
	"github.com/kirillkom/document-approval/internal/core/ports"
)

type submitDocumentRequest struct {
	Title               string   `json:"title"`
	PreparedBySignature string   `json:"preparedBySignature"`
	Draft               bool     `json:"draft"`
	ReviewerIDs         []string `json:"reviewerIds"`
	ApproverIDs         []string `json:"approverIds"`
	AcknowledgedIDs     []string `json:"acknowledgedIds"`
}

// preparedBySignatureRequest is the optional body of submit and resubmit.
type preparedBySignatureRequest struct {
	PreparedBySignature string `json:"preparedBySignature"`
}

type signRequest struct {
	SignatureImage string `json:"signatureImage"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type userRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type approvalResponse struct {
	ID            string     `json:"id"`
	DocumentID    string     `json:"documentId"`
	Level         int        `json:"level"`
	LevelName     string     `json:"levelName"`
	Position      int        `json:"position"`
	Status        string     `json:"status"`
	Approver      userRef    `json:"approver"`
	HasSignature  bool       `json:"hasSignature"`
	SignedAt      *time.Time `json:"signedAt,omitempty"`
	ConfirmedAt   *time.Time `json:"confirmedAt,omitempty"`
	RejectedAt    *time.Time `json:"rejectedAt,omitempty"`
	Comment       string     `json:"comment,omitempty"`
	RevisionCycle int        `json:"revisionCycle"`
}

type approvalResultResponse struct {
	Approval       approvalResponse `json:"approval"`
	DocumentStatus string           `json:"documentStatus"`
	ApprovalStatus string           `json:"approvalStatus"`
}

type documentResponse struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Status         string     `json:"status"`
	ApprovalStatus string     `json:"approvalStatus"`
	RevisionCycle  int        `json:"revisionCycle"`
	CreatedBy      string     `json:"createdBy"`
	PreparedAt     *time.Time `json:"preparedAt,omitempty"`
	Version        int64      `json:"version"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type documentViewResponse struct {
	Document  documentResponse   `json:"document"`
	Approvals []approvalResponse `json:"approvals"`
}

type auditRecordResponse struct {
	ID                  string    `json:"id"`
	ApprovalID          string    `json:"approvalId,omitempty"`
	Action              string    `json:"action"`
	ActorID             string    `json:"actorId"`
	StatusBefore        string    `json:"statusBefore"`
	StatusAfter         string    `json:"statusAfter"`
	ApprovalStatusAfter string    `json:"approvalStatusAfter"`
	Detail              string    `json:"detail,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}

type notificationResponse struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	MessageKey string     `json:"messageKey"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	Priority   string     `json:"priority"`
	Link       string     `json:"link"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func toApproval(a domain.Approval, approver domain.User) approvalResponse {
	name := approver.DisplayName
	if name == "" {
		name = a.ApproverID
	}
	return approvalResponse{
		ID:            a.ID,
		DocumentID:    a.DocumentID,
		Level:         int(a.Level),
		LevelName:     a.Level.String(),
		Position:      a.Position,
		Status:        string(a.Status),
		Approver:      userRef{ID: a.ApproverID, Name: name},
		HasSignature:  a.SignatureImage != "",
		SignedAt:      a.SignedAt,
		ConfirmedAt:   a.ConfirmedAt,
		RejectedAt:    a.RejectedAt,
		Comment:       a.Comment,
		RevisionCycle: a.RevisionCycle,
	}
}

func toApprovalResult(res *ports.ApprovalResult) approvalResultResponse {
	return approvalResultResponse{
		Approval:       toApproval(res.Approval, res.Approver),
		DocumentStatus: string(res.DocumentStatus),
		ApprovalStatus: string(res.ApprovalStatus),
	}
}

func toDocumentView(v *ports.DocumentView) documentViewResponse {
	d := v.Document
	out := documentViewResponse{
		Document: documentResponse{
			ID:             d.ID,
			Title:          d.Title,
			Status:         string(d.Status),
			ApprovalStatus: string(d.ApprovalStatus),
			RevisionCycle:  d.RevisionCycle,
			CreatedBy:      d.CreatedBy,
			PreparedAt:     d.PreparedAt,
			Version:        d.Version,
			CreatedAt:      d.CreatedAt,
			UpdatedAt:      d.UpdatedAt,
		},
		Approvals: make([]approvalResponse, 0, len(v.Approvals)),
	}
	for _, a := range v.Approvals {
		out.Approvals = append(out.Approvals, toApproval(a, domain.User{}))
	}
	return out
}

func toAuditRecords(records []domain.AuditRecord) []auditRecordResponse {
	out := make([]auditRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, auditRecordResponse{
			ID:                  r.ID,
			ApprovalID:          r.ApprovalID,
			Action:              string(r.Action),
			ActorID:             r.ActorID,
			StatusBefore:        string(r.StatusBefore),
			StatusAfter:         string(r.StatusAfter),
			ApprovalStatusAfter: string(r.ApprovalStatusAfter),
			Detail:              r.Detail,
			CreatedAt:           r.CreatedAt,
		})
	}
	return out
}

func toNotifications(items []domain.Notification) []notificationResponse {
	out := make([]notificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, notificationResponse{
			ID:         n.ID,
			Type:       n.Type,
			MessageKey: n.MessageKey,
			Title:      n.Title,
			Body:       n.Body,
			Priority:   n.Priority,
			Link:       n.Link,
			ReadAt:     n.ReadAt,
			CreatedAt:  n.CreatedAt,
		})
	}
	return out
}

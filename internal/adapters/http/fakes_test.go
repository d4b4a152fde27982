package httpadapter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/document-approval/internal/config"
	"github.com/kirillkom/document-approval/internal/core/domain"
	"github.com/kirillkom/document-approval/internal/core/ports"
)

const (
	docID      = "5f0c3f9e-6a55-4a43-9d1a-0f5f6a2b1c01"
	approvalID = "9b7b1c44-2d7e-4f0b-8a4f-5b0f1e2c3d04"
	notifID    = "1d2e3f40-5a6b-4c7d-8e9f-a0b1c2d3e4f5"
)

var (
	_ ports.DocumentSubmitter = (*fakeSubmitter)(nil)
	_ ports.ApprovalWorkflow  = (*fakeWorkflow)(nil)
	_ ports.DocumentReader    = (*fakeReader)(nil)
	_ ports.NotificationInbox = (*fakeInbox)(nil)
)

// fakeTokens accepts "Bearer <userID>" and "Bearer admin:<userID>".
type fakeTokens struct{}

func (fakeTokens) Verify(token string) (domain.Actor, error) {
	if token == "bad" {
		return domain.Actor{}, domain.WrapError(domain.ErrUnauthenticated, "verify token", errors.New("signature is invalid"))
	}
	if id, ok := strings.CutPrefix(token, "admin:"); ok {
		return domain.Actor{UserID: id, Role: domain.RoleAdmin}, nil
	}
	return domain.Actor{UserID: token, Role: domain.RoleUser}, nil
}

func sampleView(status domain.DocumentStatus) *ports.DocumentView {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return &ports.DocumentView{
		Document: domain.Document{
			ID: docID, Title: "SOP-001", Status: status, ApprovalStatus: domain.ApprovalInProgress,
			CreatedBy: "owner", PreparedAt: &at, Version: 1, CreatedAt: at, UpdatedAt: at,
		},
		Approvals: []domain.Approval{
			{ID: approvalID, DocumentID: docID, Level: domain.LevelReviewer, ApproverID: "r1", Status: domain.ApprovalStatusPending},
		},
	}
}

type fakeSubmitter struct {
	gotActor domain.Actor
	gotInput ports.SubmitDocumentInput
	gotSig   string
	err      error
}

func (f *fakeSubmitter) Submit(_ context.Context, actor domain.Actor, in ports.SubmitDocumentInput) (*ports.DocumentView, error) {
	f.gotActor, f.gotInput = actor, in
	if f.err != nil {
		return nil, f.err
	}
	return sampleView(domain.StatusInReview), nil
}

func (f *fakeSubmitter) SubmitDraft(_ context.Context, actor domain.Actor, _ string, sig string) (*ports.DocumentView, error) {
	f.gotActor, f.gotSig = actor, sig
	if f.err != nil {
		return nil, f.err
	}
	return sampleView(domain.StatusInReview), nil
}

func (f *fakeSubmitter) Resubmit(_ context.Context, actor domain.Actor, _ string, sig string) (*ports.DocumentView, error) {
	f.gotActor, f.gotSig = actor, sig
	if f.err != nil {
		return nil, f.err
	}
	return sampleView(domain.StatusInReview), nil
}

type fakeWorkflow struct {
	gotActor  domain.Actor
	gotID     string
	gotReason string
	gotImage  string
	err       error
}

func (f *fakeWorkflow) result() (*ports.ApprovalResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	return &ports.ApprovalResult{
		Approval: domain.Approval{
			ID: f.gotID, DocumentID: docID, Level: domain.LevelReviewer, ApproverID: "r1",
			Status: domain.ApprovalStatusApproved, ConfirmedAt: &at, SignatureImage: "signatures/x.png",
		},
		Approver:       domain.User{ID: "r1", DisplayName: "Reviewer One"},
		DocumentStatus: domain.StatusOnApproval,
		ApprovalStatus: domain.ApprovalInProgress,
	}, nil
}

func (f *fakeWorkflow) Sign(_ context.Context, actor domain.Actor, id, image string) (*ports.ApprovalResult, error) {
	f.gotActor, f.gotID, f.gotImage = actor, id, image
	return f.result()
}

func (f *fakeWorkflow) Confirm(_ context.Context, actor domain.Actor, id string) (*ports.ApprovalResult, error) {
	f.gotActor, f.gotID = actor, id
	return f.result()
}

func (f *fakeWorkflow) Reject(_ context.Context, actor domain.Actor, id, reason string) (*ports.ApprovalResult, error) {
	f.gotActor, f.gotID, f.gotReason = actor, id, reason
	return f.result()
}

func (f *fakeWorkflow) RequestRevision(_ context.Context, actor domain.Actor, id, reason string) (*ports.ApprovalResult, error) {
	f.gotActor, f.gotID, f.gotReason = actor, id, reason
	return f.result()
}

func (f *fakeWorkflow) Validate(_ context.Context, actor domain.Actor, _ string) (*ports.DocumentView, error) {
	f.gotActor = actor
	if f.err != nil {
		return nil, f.err
	}
	return sampleView(domain.StatusApproved), nil
}

type fakeReader struct {
	err       error
	signature []byte
}

func (f *fakeReader) GetDocument(context.Context, domain.Actor, string) (*ports.DocumentView, error) {
	if f.err != nil {
		return nil, f.err
	}
	return sampleView(domain.StatusInReview), nil
}

func (f *fakeReader) ListAudit(context.Context, domain.Actor, string) ([]domain.AuditRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []domain.AuditRecord{{ID: "au-1", DocumentID: docID, Action: domain.AuditSubmitted, ActorID: "owner", StatusAfter: domain.StatusInReview}}, nil
}

func (f *fakeReader) ExportAudit(_ context.Context, _ domain.Actor, _ string, w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	_, err := w.Write([]byte("PK\x03\x04workbook"))
	return err
}

func (f *fakeReader) OpenSignature(context.Context, domain.Actor, string) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(string(f.signature))), nil
}

type fakeInbox struct {
	gotUnread bool
	gotLimit  int
	gotID     string
	err       error
}

func (f *fakeInbox) Deliver(context.Context, domain.NotificationIntent) error { return nil }

func (f *fakeInbox) List(_ context.Context, _ domain.Actor, unread bool, limit int) ([]domain.Notification, error) {
	f.gotUnread, f.gotLimit = unread, limit
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Notification{{ID: notifID, MessageKey: domain.MessageApprovalRequired, Title: "Approval required"}}, nil
}

func (f *fakeInbox) MarkRead(_ context.Context, _ domain.Actor, id string) error {
	f.gotID = id
	return f.err
}

type harness struct {
	submitter *fakeSubmitter
	workflow  *fakeWorkflow
	reader    *fakeReader
	inbox     *fakeInbox
	handler   http.Handler
}

func newHarness(t *testing.T, cfg config.Config) *harness {
	t.Helper()
	h := &harness{
		submitter: &fakeSubmitter{},
		workflow:  &fakeWorkflow{},
		reader:    &fakeReader{},
		inbox:     &fakeInbox{},
	}
	rt, err := NewRouter(cfg, Dependencies{
		Submitter: h.submitter,
		Workflow:  h.workflow,
		Reader:    h.reader,
		Inbox:     h.inbox,
		Tokens:    fakeTokens{},
	})
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	h.handler = rt.Handler()
	return h
}

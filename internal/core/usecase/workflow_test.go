package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/document-approval/internal/core/domain"
	"github.com/kirillkom/document-approval/internal/core/ports"
)

type harness struct {
	store     *memStore
	users     *fakeUsers
	publisher *fakePublisher
	storage   *memStorage
	metrics   *recordingMetrics
	uc        *WorkflowUseCase
}

func newHarness(opts ...WorkflowOption) *harness {
	h := &harness{
		store: newMemStore(),
		users: newFakeUsers(
			domain.User{ID: "owner", DisplayName: "Olga Owner", Role: domain.RoleUser, Active: true},
			domain.User{ID: "admin-1", DisplayName: "Ada Admin", Role: domain.RoleAdmin, Active: true},
			domain.User{ID: "admin-2", DisplayName: "Retired Admin", Role: domain.RoleAdmin, Active: false},
			domain.User{ID: "r1", DisplayName: "Reviewer One", Role: domain.RoleUser, Active: true},
			domain.User{ID: "r2", DisplayName: "Reviewer Two", Role: domain.RoleUser, Active: true},
			domain.User{ID: "r3", DisplayName: "Reviewer Three", Role: domain.RoleUser, Active: true},
			domain.User{ID: "ap1", DisplayName: "Approver One", Role: domain.RoleUser, Active: true},
			domain.User{ID: "ap2", DisplayName: "Approver Two", Role: domain.RoleUser, Active: true},
			domain.User{ID: "ack", DisplayName: "Acknowledger", Role: domain.RoleUser, Active: true},
		),
		publisher: &fakePublisher{},
		storage:   newMemStorage(),
		metrics:   newRecordingMetrics(),
	}
	base := []WorkflowOption{WithClock(steppingClock()), WithWorkflowMetrics(h.metrics)}
	h.uc = NewWorkflowUseCase(h.store, h.users, h.storage, h.publisher, append(base, opts...)...)
	return h
}

func (h *harness) submit(t *testing.T, reviewers, approvers, acks []string) string {
	t.Helper()
	view, err := h.uc.Submit(context.Background(), user("owner"), ports.SubmitDocumentInput{
		Title:               "SOP-042 Cleanroom gowning",
		PreparedBySignature: pngSignature,
		ReviewerIDs:         reviewers,
		ApproverIDs:         approvers,
		AcknowledgedIDs:     acks,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	return view.Document.ID
}

func (h *harness) signAndConfirm(t *testing.T, docID, approverID string) *ports.ApprovalResult {
	t.Helper()
	a := h.store.approvalOf(t, docID, approverID)
	if _, err := h.uc.Sign(context.Background(), user(approverID), a.ID, pngSignature); err != nil {
		t.Fatalf("Sign(%s) error = %v", approverID, err)
	}
	res, err := h.uc.Confirm(context.Background(), user(approverID), a.ID)
	if err != nil {
		t.Fatalf("Confirm(%s) error = %v", approverID, err)
	}
	return res
}

func TestSubmitBroadcastsToReviewers(t *testing.T) {
	h := newHarness()
	docID := h.submit(t, []string{"r1", "r2"}, []string{"ap1"}, nil)

	doc := h.store.doc(t, docID)
	if doc.Status != domain.StatusInReview || doc.ApprovalStatus != domain.ApprovalInProgress {
		t.Fatalf("unexpected status after submit: %s/%s", doc.Status, doc.ApprovalStatus)
	}
	if doc.PreparedBySignature == "" || h.storage.objects[doc.PreparedBySignature] == nil {
		t.Fatalf("expected stored prepared-by signature, got %q", doc.PreparedBySignature)
	}
	got := h.publisher.recipients(domain.MessageApprovalRequired)
	if len(got) != 2 || got["r1"] != 1 || got["r2"] != 1 {
		t.Fatalf("expected reviewers broadcast, got %v", got)
	}
	if len(h.store.current(t, docID)) != 3 {
		t.Fatalf("expected 3 approval records")
	}
	if actions := h.store.auditActions(docID); len(actions) != 1 || actions[0] != domain.AuditSubmitted {
		t.Fatalf("unexpected audit trail %v", actions)
	}
}

func TestSubmitValidation(t *testing.T) {
	h := newHarness()
	_, err := h.uc.Submit(context.Background(), user("owner"), ports.SubmitDocumentInput{
		Title:               " ",
		PreparedBySignature: "not base64!",
		ReviewerIDs:         []string{"r1", "r1"},
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	fields := map[string]bool{}
	for _, f := range domain.FieldErrorsOf(err) {
		fields[f.Field] = true
	}
	if !fields["title"] || !fields["prepared_by_signature"] || len(fields) != 3 {
		t.Fatalf("unexpected field errors %+v", domain.FieldErrorsOf(err))
	}
	if h.store.txCount != 0 {
		t.Fatalf("expected no transaction for invalid input")
	}

	_, err = h.uc.Submit(context.Background(), domain.Actor{}, ports.SubmitDocumentInput{Title: "x", ReviewerIDs: []string{"r1"}})
	if !domain.IsKind(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

// Scenario A: two reviewers, one approver, no acknowledgers.
func TestScenarioVacuousAcknowledgementReachesValidation(t *testing.T) {
	h := newHarness()
	docID := h.submit(t, []string{"r1", "r2"}, []string{"ap1"}, nil)

	h.signAndConfirm(t, docID, "r1")
	if got := h.store.doc(t, docID).Status; got != domain.StatusInReview {
		t.Fatalf("expected IN_REVIEW after first reviewer, got %s", got)
	}
	h.signAndConfirm(t, docID, "r2")
	if got := h.store.doc(t, docID).Status; got != domain.StatusOnApproval {
		t.Fatalf("expected ON_APPROVAL, got %s", got)
	}

	h.publisher.reset()
	res := h.signAndConfirm(t, docID, "ap1")
	if res.DocumentStatus != domain.StatusWaitingValidation || res.ApprovalStatus != domain.ApprovalInProgress {
		t.Fatalf("expected WAITING_VALIDATION, got %s/%s", res.DocumentStatus, res.ApprovalStatus)
	}
	if res.Approval.Status != domain.ApprovalStatusApproved || res.Approval.ConfirmedAt == nil || res.Approver.DisplayName != "Approver One" {
		t.Fatalf("unexpected confirm result %+v", res)
	}

	waiting := h.publisher.recipients(domain.MessageWaitingValidation)
	if len(waiting) != 2 || waiting["admin-1"] != 1 || waiting["owner"] != 1 {
		t.Fatalf("expected active admin and requester, got %v", waiting)
	}
	if signed := h.publisher.recipients(domain.MessageApprovalSigned); signed["owner"] != 1 {
		t.Fatalf("expected signed info to requester, got %v", signed)
	}
	for _, in := range h.publisher.intents {
		if in.MessageKey == domain.MessageApprovalSigned && in.Params["approver_name"] != "Approver One" {
			t.Fatalf("expected approver display name, got %+v", in.Params)
		}
	}
}

// Scenario B: one acknowledger holds the document in PENDING_ACKNOWLEDGED.
func TestScenarioAcknowledgerGatesValidation(t *testing.T) {
	h := newHarness()
	docID := h.submit(t, []string{"r1", "r2"}, []string{"ap1"}, []string{"ack"})

	h.signAndConfirm(t, docID, "r1")
	h.signAndConfirm(t, docID, "r2")
	h.publisher.reset()
	h.signAndConfirm(t, docID, "ap1")

	if got := h.store.doc(t, docID).Status; got != domain.StatusPendingAcknowledged {
		t.Fatalf("expected PENDING_ACKNOWLEDGED, got %s", got)
	}
	if got := h.publisher.recipients(domain.MessageApprovalRequired); len(got) != 1 || got["ack"] != 1 {
		t.Fatalf("expected acknowledger to be told, got %v", got)
	}
	if got := h.publisher.recipients(domain.MessageWaitingValidation); len(got) != 0 {
		t.Fatalf("expected no validation notice yet, got %v", got)
	}

	h.signAndConfirm(t, docID, "ack")
	if got := h.store.doc(t, docID).Status; got != domain.StatusWaitingValidation {
		t.Fatalf("expected WAITING_VALIDATION, got %s", got)
	}
}

// Scenario C: a different user cannot confirm.
func TestScenarioConfirmByOtherUserChangesNothing(t *testing.T) {
	h := newHarness()
	docID := h.submit(t, []string{"r1"}, []string{"ap1"}, nil)
	a := h.store.approvalOf(t, docID, "r1")
	if _, err := h.uc.Sign(context.Background(), user("r1"), a.ID, pngSignature); err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	before := h.store.doc(t, docID)
	h.publisher.reset()

	_, err := h.uc.Confirm(context.Background(), user("r2"), a.ID)
	if !domain.IsKind(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	after := h.store.doc(t, docID)
	if after.Version != before.Version || after.Status != before.Status {
		t.Fatalf("expected document untouched, got %+v", after)
	}
	if got := h.store.approvalOf(t, docID, "r1"); got.Status != domain.ApprovalStatusSigned {
		t.Fatalf("expected record still SIGNED, got %s", got.Status)
	}
	if len(h.publisher.intents) != 0 {
		t.Fatalf("expected no notifications, got %+v", h.publisher.intents)
	}
	if h.metrics.actions["confirm/denied"] != 1 {
		t.Fatalf("expected denied outcome recorded, got %v", h.metrics.actions)
	}
}

// Scenario D: confirming an unsigned record is a state error.
func TestScenarioConfirmBeforeSignIsStateError(t *testing.T) {
	h := newHarness()
	docID := h.submit(t, []string{"r1"}, nil, nil)
	a := h.store.approvalOf(t, docID, "r1")

	_, err := h.uc.Confirm(context.Background(), user("r1"), a.ID)
	if !domain.IsKind(err, domain.ErrState) || !domain.IsKind(err, domain.ErrMustSignFirst) {
		t.Fatalf("expected must-sign-first state error, got %v", err)
	}
	if got := h.store.doc(t, docID).Status; got != domain.StatusInReview {
		t.Fatalf("expected status unchanged, got %s", got)
	}
}

// Scenario E: one confirm among three pending reviewers hands off to the next in line.
func TestScenarioConfirmHandsOffToNextReviewer(t *testing.T) {
	h := newHarness()
	docID := h.submit(t, []string{"r1", "r2", "r3"}, []string{"ap1"}, nil)
	h.publisher.reset()

	h.signAndConfirm(t, docID, "r1")
	got := h.publisher.recipients(domain.MessageApprovalRequired)
	if len(got) != 1 || got["r2"] != 1 {
		t.Fatalf("expected only r2, got %v", got)
	}
}

// Scenario F: completing level 1 tells every level 2 approver at once.
func TestScenarioLevelCompletionBroadcastsApprovers(t *testing.T) {
	h := newHarness()
	docID := h.submit(t, []string{"r1", "r2"}, []string{"ap1", "ap2"}, nil)
	h.signAndConfirm(t, docID, "r1")
	h.publisher.reset()

	h.signAndConfirm(t, docID, "r2")
	got := h.publisher.recipients(domain.MessageApprovalRequired)
	if len(got) != 2 || got["ap1"] != 1 || got["ap2"] != 1 {
		t.Fatalf("expected both approvers, got %v", got)
	}
}

func TestSignRequiresLowerLevelsComplete(t *testing.T) {
	h := newHarness()
	docID := h.submit(t, []string{"r1"}, []string{"ap1"}, nil)
	ap := h.store.approvalOf(t, docID, "ap1")

	_, err := h.uc.Sign(context.Background(), user("ap1"), ap.ID, pngSignature)
	if !domain.IsKind(err, domain.ErrPreviousLevelPending) {
		t.Fatalf("expected previous level pending, got %v", err)
	}
}

func TestSubmitForReviewRequiresPreparedBySignature(t *testing.T) {
	h := newHarness()
	_, err := h.uc.Submit(context.Background(), user("owner"), ports.SubmitDocumentInput{
		Title:       "Unsigned SOP",
		ReviewerIDs: []string{"r1"},
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	fe := domain.FieldErrorsOf(err)
	if len(fe) != 1 || fe[0].Field != "prepared_by_signature" {
		t.Fatalf("unexpected field errors %+v", fe)
	}
	if h.store.txCount != 0 || len(h.publisher.intents) != 0 {
		t.Fatalf("expected nothing stored or sent, got %d tx and %d intents", h.store.txCount, len(h.publisher.intents))
	}
}

func TestUnsignedDraftNeedsSignatureToEnterReview(t *testing.T) {
	h := newHarness()
	view, err := h.uc.Submit(context.Background(), user("owner"), ports.SubmitDocumentInput{
		Title:       "Draft without signature",
		Draft:       true,
		ReviewerIDs: []string{"r1"},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	docID := view.Document.ID

	_, err = h.uc.SubmitDraft(context.Background(), user("owner"), docID, "")
	if fe := domain.FieldErrorsOf(err); len(fe) != 1 || fe[0].Field != "prepared_by_signature" {
		t.Fatalf("expected prepared_by_signature to be required, got %v", err)
	}
	if got := h.store.doc(t, docID).Status; got != domain.StatusDraft {
		t.Fatalf("expected draft to stay DRAFT, got %s", got)
	}

	submitted, err := h.uc.SubmitDraft(context.Background(), user("owner"), docID, pngSignature)
	if err != nil {
		t.Fatalf("SubmitDraft() error = %v", err)
	}
	if submitted.Document.Status != domain.StatusInReview || h.storage.objects[submitted.Document.PreparedBySignature] == nil {
		t.Fatalf("unexpected submitted document %+v", submitted.Document)
	}
	h.signAndConfirm(t, docID, "r1")
}

func TestSignFailureRemovesStagedImage(t *testing.T) {
	h := newHarness()
	docID := h.submit(t, []string{"r1"}, nil, nil)
	a := h.store.approvalOf(t, docID, "r1")
	stored := len(h.storage.objects)

	_, err := h.uc.Sign(context.Background(), user("r2"), a.ID, pngSignature)
	if !domain.IsKind(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if len(h.storage.objects) != stored || len(h.storage.deleted) != 1 {
		t.Fatalf("expected staged image removed, objects=%d deleted=%v", len(h.storage.objects), h.storage.deleted)
	}
}

func TestSignRejectsInvalidImageWithoutWrites(t *testing.T) {
	h := newHarness()
	docID := h.submit(t, []string{"r1"}, nil, nil)
	a := h.store.approvalOf(t, docID, "r1")
	stored := len(h.storage.objects)

	_, err := h.uc.Sign(context.Background(), user("r1"), a.ID, "data:text/plain;base64,aGVsbG8=")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(h.storage.objects) != stored {
		t.Fatalf("expected no stored image")
	}
	if got := h.store.approvalOf(t, docID, "r1"); got.Status != domain.ApprovalStatusPending {
		t.Fatalf("expected PENDING, got %s", got.Status)
	}
}

func TestResignReplacesImage(t *testing.T) {
	h := newHarness()
	docID := h.submit(t, []string{"r1"}, nil, nil)
	a := h.store.approvalOf(t, docID, "r1")

	first, err := h.uc.Sign(context.Background(), user("r1"), a.ID, pngSignature)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	second, err := h.uc.Sign(context.Background(), user("r1"), a.ID, pngSignature)
	if err != nil {
		t.Fatalf("second Sign() error = %v", err)
	}
	if first.Approval.SignatureImage == second.Approval.SignatureImage {
		t.Fatalf("expected a new image key on re-sign")
	}
	if _, ok := h.storage.objects[first.Approval.SignatureImage]; ok {
		t.Fatalf("expected previous image %s to be removed", first.Approval.SignatureImage)
	}
	if _, ok := h.storage.objects[second.Approval.SignatureImage]; !ok {
		t.Fatalf("expected current image %s to be stored", second.Approval.SignatureImage)
	}
	if !second.Approval.SignedAt.After(*first.Approval.SignedAt) {
		t.Fatalf("expected signedAt to move forward")
	}
}

func TestConfirmSurvivesNotificationFailure(t *testing.T) {
	h := newHarness()
	docID := h.submit(t, []string{"r1"}, []string{"ap1"}, nil)
	h.publisher.err = errors.New("nats: no servers available")

	res := h.signAndConfirm(t, docID, "r1")
	if res.DocumentStatus != domain.StatusOnApproval {
		t.Fatalf("expected ON_APPROVAL, got %s", res.DocumentStatus)
	}
	if h.metrics.notifications[domain.MessageApprovalRequired+"/failed"] != 1 {
		t.Fatalf("expected failed dispatch recorded, got %v", h.metrics.notifications)
	}
}

func TestConflictIsRetried(t *testing.T) {
	retrier := &conflictRetrier{attempts: 3}
	h := newHarness(WithRetrier(retrier))
	docID := h.submit(t, []string{"r1"}, nil, nil)
	a := h.store.approvalOf(t, docID, "r1")
	retrier.calls = 0
	h.store.conflicts = 1

	if _, err := h.uc.Sign(context.Background(), user("r1"), a.ID, pngSignature); err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if retrier.calls != 2 {
		t.Fatalf("expected one retry, got %d calls", retrier.calls)
	}
	if got := h.store.approvalOf(t, docID, "r1"); got.Status != domain.ApprovalStatusSigned {
		t.Fatalf("expected SIGNED after retry, got %s", got.Status)
	}
}

func TestConflictExhaustedLeavesLedgerUnchanged(t *testing.T) {
	h := newHarness(WithRetrier(&conflictRetrier{attempts: 2}))
	docID := h.submit(t, []string{"r1"}, nil, nil)
	a := h.store.approvalOf(t, docID, "r1")
	h.store.conflicts = 5

	_, err := h.uc.Sign(context.Background(), user("r1"), a.ID, pngSignature)
	if !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if got := h.store.approvalOf(t, docID, "r1"); got.Status != domain.ApprovalStatusPending {
		t.Fatalf("expected rolled back record, got %s", got.Status)
	}
}

func TestRejectEndsApproval(t *testing.T) {
	h := newHarness()
	docID := h.submit(t, []string{"r1", "r2"}, nil, nil)
	a := h.store.approvalOf(t, docID, "r2")
	h.publisher.reset()

	res, err := h.uc.Reject(context.Background(), user("r2"), a.ID, "wrong template")
	if err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if res.DocumentStatus != domain.StatusRevisionRequired || res.ApprovalStatus != domain.ApprovalRejected {
		t.Fatalf("unexpected status %s/%s", res.DocumentStatus, res.ApprovalStatus)
	}
	if got := h.publisher.recipients(domain.MessageDocumentRejected); len(got) != 1 || got["owner"] != 1 {
		t.Fatalf("expected requester told, got %v", got)
	}

	other := h.store.approvalOf(t, docID, "r1")
	if _, err := h.uc.Sign(context.Background(), user("r1"), other.ID, pngSignature); !domain.IsKind(err, domain.ErrDocumentNotUnderReview) {
		t.Fatalf("expected document closed for signing, got %v", err)
	}
}

func TestRevisionAndResubmitRunNewCycle(t *testing.T) {
	h := newHarness()
	docID := h.submit(t, []string{"r1"}, []string{"ap1"}, nil)
	h.signAndConfirm(t, docID, "r1")
	old := h.store.approvalOf(t, docID, "ap1")
	preparedKey := h.store.doc(t, docID).PreparedBySignature
	h.publisher.reset()

	res, err := h.uc.RequestRevision(context.Background(), user("ap1"), old.ID, "section 4 is outdated")
	if err != nil {
		t.Fatalf("RequestRevision() error = %v", err)
	}
	if res.DocumentStatus != domain.StatusOnRevision || res.Approval.Status != domain.ApprovalStatusNeedsRevision {
		t.Fatalf("unexpected revision result %+v", res)
	}
	doc := h.store.doc(t, docID)
	if doc.RevisionCycle != 1 || doc.PreparedBySignature != preparedKey {
		t.Fatalf("unexpected document after revision %+v", doc)
	}
	current := h.store.current(t, docID)
	if len(current) != 2 {
		t.Fatalf("expected 2 fresh records, got %d", len(current))
	}
	for _, a := range current {
		if a.Status != domain.ApprovalStatusPending || a.RevisionCycle != 1 {
			t.Fatalf("unexpected fresh record %+v", a)
		}
	}
	if got := h.publisher.recipients(domain.MessageRevisionRequested); got["owner"] != 1 {
		t.Fatalf("expected requester told, got %v", got)
	}
	revisions, _ := h.store.ListRevisionRequests(context.Background(), docID)
	if len(revisions) != 1 || revisions[0].Level != domain.LevelApprover || revisions[0].RevisionCycle != 0 {
		t.Fatalf("unexpected revision requests %+v", revisions)
	}

	if _, err := h.uc.Sign(context.Background(), user("ap1"), old.ID, pngSignature); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected retired record to be gone, got %v", err)
	}
	if _, err := h.uc.Resubmit(context.Background(), user("r1"), docID, ""); !domain.IsKind(err, domain.ErrForbidden) {
		t.Fatalf("expected only owner to resubmit, got %v", err)
	}

	h.publisher.reset()
	view, err := h.uc.Resubmit(context.Background(), user("owner"), docID, pngSignature)
	if err != nil {
		t.Fatalf("Resubmit() error = %v", err)
	}
	if view.Document.Status != domain.StatusInReview || view.Document.PreparedBySignature == preparedKey {
		t.Fatalf("unexpected resubmitted document %+v", view.Document)
	}
	if _, ok := h.storage.objects[preparedKey]; ok {
		t.Fatalf("expected replaced prepared-by signature to be removed")
	}
	if got := h.publisher.recipients(domain.MessageApprovalRequired); len(got) != 1 || got["r1"] != 1 {
		t.Fatalf("expected reviewer told again, got %v", got)
	}
	h.signAndConfirm(t, docID, "r1")
	h.signAndConfirm(t, docID, "ap1")
	if got := h.store.doc(t, docID).Status; got != domain.StatusWaitingValidation {
		t.Fatalf("expected WAITING_VALIDATION in new cycle, got %s", got)
	}

	want := []domain.AuditAction{
		domain.AuditSubmitted, domain.AuditSigned, domain.AuditConfirmed, domain.AuditRevisionRequested,
		domain.AuditResubmitted, domain.AuditSigned, domain.AuditConfirmed, domain.AuditSigned, domain.AuditConfirmed,
	}
	got := h.store.auditActions(docID)
	if len(got) != len(want) {
		t.Fatalf("unexpected audit trail %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("audit[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestValidateRequiresAdministrator(t *testing.T) {
	h := newHarness()
	docID := h.submit(t, []string{"r1"}, nil, nil)

	if _, err := h.uc.Validate(context.Background(), admin("admin-1"), docID); !domain.IsKind(err, domain.ErrState) {
		t.Fatalf("expected state error before completion, got %v", err)
	}
	h.signAndConfirm(t, docID, "r1")
	if _, err := h.uc.Validate(context.Background(), user("owner"), docID); !domain.IsKind(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	h.publisher.reset()
	view, err := h.uc.Validate(context.Background(), admin("admin-1"), docID)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if view.Document.Status != domain.StatusApproved || view.Document.ApprovalStatus != domain.ApprovalApproved {
		t.Fatalf("unexpected validated document %+v", view.Document)
	}
	if got := h.publisher.recipients(domain.MessageDocumentValidated); got["owner"] != 1 {
		t.Fatalf("expected requester told, got %v", got)
	}
}

func TestDraftIsSilentUntilSubmitted(t *testing.T) {
	h := newHarness()
	view, err := h.uc.Submit(context.Background(), user("owner"), ports.SubmitDocumentInput{
		Title:               "Draft SOP",
		PreparedBySignature: pngSignature,
		Draft:               true,
		ReviewerIDs:         []string{"r1"},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if view.Document.Status != domain.StatusDraft || len(h.publisher.intents) != 0 {
		t.Fatalf("expected silent draft, got %s and %d intents", view.Document.Status, len(h.publisher.intents))
	}
	a := h.store.approvalOf(t, view.Document.ID, "r1")
	if _, err := h.uc.Sign(context.Background(), user("r1"), a.ID, pngSignature); !domain.IsKind(err, domain.ErrDocumentNotUnderReview) {
		t.Fatalf("expected draft closed for signing, got %v", err)
	}

	if _, err := h.uc.SubmitDraft(context.Background(), user("r1"), view.Document.ID, ""); !domain.IsKind(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	submitted, err := h.uc.SubmitDraft(context.Background(), user("owner"), view.Document.ID, "")
	if err != nil {
		t.Fatalf("SubmitDraft() error = %v", err)
	}
	if submitted.Document.Status != domain.StatusInReview {
		t.Fatalf("expected IN_REVIEW, got %s", submitted.Document.Status)
	}
	if got := h.publisher.recipients(domain.MessageApprovalRequired); got["r1"] != 1 {
		t.Fatalf("expected reviewer told, got %v", got)
	}
	if _, err := h.uc.SubmitDraft(context.Background(), user("owner"), view.Document.ID, ""); !domain.IsKind(err, domain.ErrState) {
		t.Fatalf("expected second submit to be a state error, got %v", err)
	}
}

package usecase

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/document-approval/internal/core/domain"
	"github.com/kirillkom/document-approval/internal/core/ports"
	"github.com/kirillkom/document-approval/internal/core/workflow"
)

var (
	_ ports.DocumentSubmitter = (*WorkflowUseCase)(nil)
	_ ports.ApprovalWorkflow  = (*WorkflowUseCase)(nil)
	_ ports.DocumentReader    = (*DocumentQueryUseCase)(nil)
	_ ports.NotificationInbox = (*NotificationUseCase)(nil)
)

// pngSignature is a tiny payload that content sniffing accepts as a PNG image.
var pngSignature = base64.StdEncoding.EncodeToString(append([]byte("\x89PNG\r\n\x1a\n"), []byte("fake-image-body")...))

type memState struct {
	docs      map[string]domain.Document
	approvals map[string]domain.Approval
	order     []string
	audit     []domain.AuditRecord
	revisions []domain.RevisionRequest
}

func (s memState) clone() memState {
	out := memState{
		docs:      make(map[string]domain.Document, len(s.docs)),
		approvals: make(map[string]domain.Approval, len(s.approvals)),
		order:     append([]string(nil), s.order...),
		audit:     append([]domain.AuditRecord(nil), s.audit...),
		revisions: append([]domain.RevisionRequest(nil), s.revisions...),
	}
	for k, v := range s.docs {
		out.docs[k] = v
	}
	for k, v := range s.approvals {
		out.approvals[k] = v
	}
	return out
}

// memStore commits a transaction by swapping in the working copy fn mutated.
type memStore struct {
	mu        sync.Mutex
	state     memState
	conflicts int
	txCount   int
}

func newMemStore() *memStore {
	return &memStore{state: memState{
		docs:      map[string]domain.Document{},
		approvals: map[string]domain.Approval{},
	}}
}

func (m *memStore) WithinTx(_ context.Context, fn func(tx ports.WorkflowTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCount++
	work := m.state.clone()
	if err := fn(&memTx{store: m, state: &work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *memStore) GetDocument(_ context.Context, documentID string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.state.docs[documentID]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get document", fmt.Errorf("document %s", documentID))
	}
	return &doc, nil
}

func (m *memStore) GetApprovalByID(_ context.Context, approvalID string) (*domain.Approval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.state.approvals[approvalID]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get approval", fmt.Errorf("approval %s", approvalID))
	}
	return &a, nil
}

func (m *memStore) ListApprovals(_ context.Context, documentID string) ([]domain.Approval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.approvalsOf(documentID), nil
}

func (m *memStore) ListAuditRecords(_ context.Context, documentID string) ([]domain.AuditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditRecord, 0)
	for _, r := range m.state.audit {
		if r.DocumentID == documentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) ListRevisionRequests(_ context.Context, documentID string) ([]domain.RevisionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.RevisionRequest, 0)
	for _, r := range m.state.revisions {
		if r.DocumentID == documentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) doc(t *testing.T, id string) domain.Document {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.state.docs[id]
	if !ok {
		t.Fatalf("document %s not stored", id)
	}
	return doc
}

func (m *memStore) current(t *testing.T, docID string) []domain.Approval {
	t.Helper()
	doc := m.doc(t, docID)
	m.mu.Lock()
	defer m.mu.Unlock()
	return workflow.CurrentCycle(m.state.approvalsOf(docID), doc.RevisionCycle)
}

func (m *memStore) approvalOf(t *testing.T, docID, approverID string) domain.Approval {
	t.Helper()
	for _, a := range m.current(t, docID) {
		if a.ApproverID == approverID {
			return a
		}
	}
	t.Fatalf("no current approval for %s on %s", approverID, docID)
	return domain.Approval{}
}

func (m *memStore) auditActions(docID string) []domain.AuditAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditAction, 0)
	for _, r := range m.state.audit {
		if r.DocumentID == docID {
			out = append(out, r.Action)
		}
	}
	return out
}

func (s *memState) approvalsOf(documentID string) []domain.Approval {
	out := make([]domain.Approval, 0)
	for _, id := range s.order {
		if a := s.approvals[id]; a.DocumentID == documentID {
			out = append(out, a)
		}
	}
	return out
}

type memTx struct {
	store *memStore
	state *memState
}

func (tx *memTx) CreateDocument(_ context.Context, doc *domain.Document) error {
	if _, exists := tx.state.docs[doc.ID]; exists {
		return fmt.Errorf("document %s exists", doc.ID)
	}
	doc.Version = 1
	tx.state.docs[doc.ID] = *doc
	return nil
}

func (tx *memTx) LockDocument(_ context.Context, documentID string) (*domain.Document, error) {
	doc, ok := tx.state.docs[documentID]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "lock document", fmt.Errorf("document %s", documentID))
	}
	return &doc, nil
}

func (tx *memTx) UpdateDocument(_ context.Context, doc *domain.Document) error {
	if tx.store.conflicts > 0 {
		tx.store.conflicts--
		return domain.WrapError(domain.ErrConflict, "update document", errors.New("version moved"))
	}
	stored, ok := tx.state.docs[doc.ID]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "update document", fmt.Errorf("document %s", doc.ID))
	}
	if stored.Version != doc.Version {
		return domain.WrapError(domain.ErrConflict, "update document", fmt.Errorf("version %d != %d", doc.Version, stored.Version))
	}
	doc.Version++
	tx.state.docs[doc.ID] = *doc
	return nil
}

func (tx *memTx) GetApproval(_ context.Context, approvalID string) (*domain.Approval, error) {
	a, ok := tx.state.approvals[approvalID]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get approval", fmt.Errorf("approval %s", approvalID))
	}
	return &a, nil
}

func (tx *memTx) FindApprovalsByDocument(_ context.Context, documentID string) ([]domain.Approval, error) {
	return tx.state.approvalsOf(documentID), nil
}

func (tx *memTx) CreateApprovals(_ context.Context, batch []domain.Approval) error {
	for _, a := range batch {
		if _, exists := tx.state.approvals[a.ID]; exists {
			return fmt.Errorf("approval %s exists", a.ID)
		}
		tx.state.approvals[a.ID] = a
		tx.state.order = append(tx.state.order, a.ID)
	}
	return nil
}

func (tx *memTx) UpdateApproval(_ context.Context, a *domain.Approval) error {
	if _, ok := tx.state.approvals[a.ID]; !ok {
		return domain.WrapError(domain.ErrNotFound, "update approval", fmt.Errorf("approval %s", a.ID))
	}
	tx.state.approvals[a.ID] = *a
	return nil
}

func (tx *memTx) AppendAuditRecord(_ context.Context, r *domain.AuditRecord) error {
	tx.state.audit = append(tx.state.audit, *r)
	return nil
}

func (tx *memTx) AppendRevisionRequest(_ context.Context, r *domain.RevisionRequest) error {
	tx.state.revisions = append(tx.state.revisions, *r)
	return nil
}

type fakeUsers struct {
	users map[string]domain.User
	err   error
}

func newFakeUsers(users ...domain.User) *fakeUsers {
	f := &fakeUsers{users: map[string]domain.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetUser(_ context.Context, userID string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[userID]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get user", fmt.Errorf("user %s", userID))
	}
	return &u, nil
}

func (f *fakeUsers) ListActiveUserIDsByRole(_ context.Context, role domain.Role) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]string, 0)
	for _, u := range f.users {
		if u.Role == role && u.Active {
			out = append(out, u.ID)
		}
	}
	return out, nil
}

type fakePublisher struct {
	intents []domain.NotificationIntent
	err     error
}

func (f *fakePublisher) PublishNotification(_ context.Context, intent domain.NotificationIntent) error {
	if f.err != nil {
		return f.err
	}
	f.intents = append(f.intents, intent)
	return nil
}

func (f *fakePublisher) recipients(messageKey string) map[string]int {
	out := map[string]int{}
	for _, in := range f.intents {
		if in.MessageKey == messageKey {
			out[in.UserID]++
		}
	}
	return out
}

func (f *fakePublisher) reset() {
	f.intents = nil
}

type memStorage struct {
	objects map[string][]byte
	deleted []string
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (s *memStorage) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.objects[key] = raw
	return nil
}

func (s *memStorage) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *memStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := s.objects[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "open object", fmt.Errorf("object %s", key))
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

// conflictRetrier retries ErrConflict the way the resilience executor does.
type conflictRetrier struct {
	attempts int
	calls    int
}

func (r *conflictRetrier) Retry(ctx context.Context, _ string, fn func(context.Context) error) error {
	var err error
	for i := 0; i < r.attempts; i++ {
		r.calls++
		if err = fn(ctx); err == nil || !domain.IsKind(err, domain.ErrConflict) {
			return err
		}
	}
	return err
}

type recordingMetrics struct {
	actions       map[string]int
	notifications map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{actions: map[string]int{}, notifications: map[string]int{}}
}

func (m *recordingMetrics) ObserveAction(action, outcome string, _ time.Duration) {
	m.actions[action+"/"+outcome]++
}

func (m *recordingMetrics) ObserveNotification(messageKey, outcome string) {
	m.notifications[messageKey+"/"+outcome]++
}

// steppingClock advances one second per reading so creation order is observable.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		at = at.Add(time.Second)
		return at
	}
}

func user(id string) domain.Actor {
	return domain.Actor{UserID: id, Role: domain.RoleUser}
}

func admin(id string) domain.Actor {
	return domain.Actor{UserID: id, Role: domain.RoleAdmin}
}

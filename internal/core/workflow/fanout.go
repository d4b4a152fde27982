package workflow

import (
	"strconv"

	"github.com/kirillkom/document-approval/internal/core/domain"
)

type Event string

const (
	EventSubmitted         Event = "submitted"
	EventConfirmed         Event = "confirmed"
	EventRejected          Event = "rejected"
	EventRevisionRequested Event = "revision_requested"
	EventValidated         Event = "validated"
)

// FanoutInput is the ledger snapshot around one transition.
type FanoutInput struct {
	Event        Event
	Document     domain.Document
	StatusBefore domain.DocumentStatus
	// Before and After are the active records of the document's current cycle.
	Before []domain.Approval
	After  []domain.Approval
	// Acted is the record the transition was applied to, in its new state.
	Acted          *domain.Approval
	ActorName      string
	Reason         string
	Administrators []string
}

// DocumentLink is the relative UI link carried by every intent.
func DocumentLink(documentID string) string {
	return "/documents/" + documentID
}

// SelectRecipients decides who is told about a transition and with which message.
func SelectRecipients(in FanoutInput) []domain.NotificationIntent {
	sel := newSelection(in.Document)

	switch in.Event {
	case EventSubmitted:
		if level, ok := firstIncompleteLevel(in.After, domain.LevelReviewer); ok {
			sel.actionRequired(AtLevel(in.After, level), level)
		}
	case EventConfirmed:
		if in.Acted != nil {
			selectAfterConfirm(sel, in)
		}
	case EventRejected:
		sel.requester(domain.MessageDocumentRejected, domain.NotificationPriorityHigh, map[string]string{
			"approver_name": in.ActorName,
			"reason":        in.Reason,
		})
	case EventRevisionRequested:
		sel.requester(domain.MessageRevisionRequested, domain.NotificationPriorityHigh, map[string]string{
			"approver_name": in.ActorName,
			"reason":        in.Reason,
		})
	case EventValidated:
		sel.requester(domain.MessageDocumentValidated, domain.NotificationPriorityNormal, nil)
	}

	if in.StatusBefore != domain.StatusWaitingValidation && in.Document.Status == domain.StatusWaitingValidation {
		for _, adminID := range in.Administrators {
			sel.add(adminID, domain.NotificationTypeDocument, domain.MessageWaitingValidation, domain.NotificationPriorityHigh, nil)
		}
		sel.requester(domain.MessageWaitingValidation, domain.NotificationPriorityNormal, nil)
	}

	if in.Event == EventConfirmed && in.Acted != nil {
		sel.requester(domain.MessageApprovalSigned, domain.NotificationPriorityNormal, map[string]string{
			"approver_name": in.ActorName,
			"level":         in.Acted.Level.String(),
		})
	}
	return sel.intents
}

func selectAfterConfirm(sel *selection, in FanoutInput) {
	level := in.Acted.Level
	if !LevelComplete(in.After, level) {
		if next, ok := earliestPending(in.After, level); ok {
			sel.actionRequired([]domain.Approval{next}, level)
		}
		return
	}
	if LevelComplete(in.Before, level) {
		return
	}
	if nextLevel, ok := firstIncompleteLevel(in.After, level+1); ok {
		sel.actionRequired(AtLevel(in.After, nextLevel), nextLevel)
	}
}

func earliestPending(approvals []domain.Approval, level domain.Level) (domain.Approval, bool) {
	for _, a := range AtLevel(approvals, level) {
		if a.Status == domain.ApprovalStatusPending {
			return a, true
		}
	}
	return domain.Approval{}, false
}

func firstIncompleteLevel(approvals []domain.Approval, from domain.Level) (domain.Level, bool) {
	for _, l := range domain.Levels {
		if l < from {
			continue
		}
		if !LevelComplete(approvals, l) {
			return l, true
		}
	}
	return 0, false
}

type selection struct {
	doc     domain.Document
	seen    map[string]struct{}
	intents []domain.NotificationIntent
}

func newSelection(doc domain.Document) *selection {
	return &selection{doc: doc, seen: make(map[string]struct{})}
}

func (s *selection) actionRequired(approvals []domain.Approval, level domain.Level) {
	for _, a := range approvals {
		if a.Status != domain.ApprovalStatusPending {
			continue
		}
		s.add(a.ApproverID, domain.NotificationTypeApproval, domain.MessageApprovalRequired, domain.NotificationPriorityHigh, map[string]string{
			"level":       level.String(),
			"level_index": strconv.Itoa(int(level)),
			"approval_id": a.ID,
		})
	}
}

func (s *selection) requester(messageKey, priority string, params map[string]string) {
	s.add(s.doc.CreatedBy, domain.NotificationTypeDocument, messageKey, priority, params)
}

func (s *selection) add(userID, kind, messageKey, priority string, params map[string]string) {
	if userID == "" {
		return
	}
	key := userID + "|" + messageKey
	if _, dup := s.seen[key]; dup {
		return
	}
	s.seen[key] = struct{}{}

	merged := map[string]string{
		"document_id":    s.doc.ID,
		"document_title": s.doc.Title,
	}
	for k, v := range params {
		if v != "" {
			merged[k] = v
		}
	}
	s.intents = append(s.intents, domain.NotificationIntent{
		UserID:     userID,
		Type:       kind,
		MessageKey: messageKey,
		Params:     merged,
		Priority:   priority,
		Link:       DocumentLink(s.doc.ID),
	})
}

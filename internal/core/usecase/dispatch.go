package usecase

import (
	"context"

	"github.com/kirillkom/document-approval/internal/core/domain"
	"github.com/kirillkom/document-approval/internal/core/workflow"
)

// dispatch selects and publishes the intents of a committed transition. It never fails:
// the ledger is already durable and a lost notification must not undo it.
func (uc *WorkflowUseCase) dispatch(ctx context.Context, in workflow.FanoutInput) {
	if in.ActorName == "" && in.Acted != nil {
		in.ActorName = uc.displayName(ctx, in.Acted.ApproverID)
	}
	if in.StatusBefore != domain.StatusWaitingValidation && in.Document.Status == domain.StatusWaitingValidation {
		admins, err := uc.users.ListActiveUserIDsByRole(ctx, domain.RoleAdmin)
		if err != nil {
			uc.logger.WarnContext(ctx, "notification_admin_lookup_failed", "document_id", in.Document.ID, "error", err)
		}
		in.Administrators = admins
	}

	for _, intent := range workflow.SelectRecipients(in) {
		if err := uc.publisher.PublishNotification(ctx, intent); err != nil {
			uc.metrics.ObserveNotification(intent.MessageKey, "failed")
			uc.logger.WarnContext(ctx, "notification_dispatch_failed",
				"document_id", in.Document.ID,
				"user_id", intent.UserID,
				"message_key", intent.MessageKey,
				"error", err,
			)
			continue
		}
		uc.metrics.ObserveNotification(intent.MessageKey, "published")
	}
}

func (uc *WorkflowUseCase) displayName(ctx context.Context, userID string) string {
	u, err := uc.users.GetUser(ctx, userID)
	if err != nil || u == nil || u.DisplayName == "" {
		return userID
	}
	return u.DisplayName
}

package workflow

import "github.com/kirillkom/document-approval/internal/core/domain"

// Outcome is the document-level status derived from the ledger.
type Outcome struct {
	Status         domain.DocumentStatus
	ApprovalStatus domain.DocumentApprovalStatus
	Rule           string
}

// Progress is the per-level completion summary the rule table is evaluated against.
type Progress struct {
	Level1Done    bool
	Level2Done    bool
	Level3Done    bool
	Level3Vacuous bool
	Rejected      bool
}

func ProgressOf(approvals []domain.Approval) Progress {
	p := Progress{
		Level1Done:    LevelComplete(approvals, domain.LevelReviewer),
		Level2Done:    LevelComplete(approvals, domain.LevelApprover),
		Level3Done:    LevelComplete(approvals, domain.LevelAcknowledger),
		Level3Vacuous: LevelVacuous(approvals, domain.LevelAcknowledger),
	}
	for _, a := range approvals {
		if a.Active() && a.Status == domain.ApprovalStatusRejected {
			p.Rejected = true
			break
		}
	}
	return p
}

type statusRule struct {
	name    string
	when    func(Progress) bool
	outcome Outcome
}

// statusRules is evaluated top-down; the first match wins.
// Vacuous acknowledgement is covered by "all levels complete" because an empty level is done.
var statusRules = []statusRule{
	{
		name:    "rejected",
		when:    func(p Progress) bool { return p.Rejected },
		outcome: Outcome{Status: domain.StatusRevisionRequired, ApprovalStatus: domain.ApprovalRejected},
	},
	{
		name:    "all levels complete",
		when:    func(p Progress) bool { return p.Level1Done && p.Level2Done && p.Level3Done },
		outcome: Outcome{Status: domain.StatusWaitingValidation, ApprovalStatus: domain.ApprovalInProgress},
	},
	{
		name: "awaiting acknowledgement",
		when: func(p Progress) bool {
			return p.Level1Done && p.Level2Done && !p.Level3Vacuous && !p.Level3Done
		},
		outcome: Outcome{Status: domain.StatusPendingAcknowledged, ApprovalStatus: domain.ApprovalInProgress},
	},
	{
		name:    "awaiting approval",
		when:    func(p Progress) bool { return p.Level1Done && !p.Level2Done },
		outcome: Outcome{Status: domain.StatusOnApproval, ApprovalStatus: domain.ApprovalInProgress},
	},
}

var fallbackOutcome = Outcome{
	Status:         domain.StatusInReview,
	ApprovalStatus: domain.ApprovalInProgress,
	Rule:           "in review",
}

// ComputeStatus derives the document status from its active approval set.
// Deleted records are ignored.
func ComputeStatus(approvals []domain.Approval) Outcome {
	p := ProgressOf(approvals)
	for _, rule := range statusRules {
		if rule.when(p) {
			out := rule.outcome
			out.Rule = rule.name
			return out
		}
	}
	return fallbackOutcome
}

// DerivedStatus reports whether the status is produced by ComputeStatus. Every other status is
// reached only through explicit lifecycle actions.
func DerivedStatus(s domain.DocumentStatus) bool {
	switch s {
	case domain.StatusInReview, domain.StatusOnApproval, domain.StatusPendingAcknowledged,
		domain.StatusWaitingValidation, domain.StatusRevisionRequired:
		return true
	case domain.StatusDraft, domain.StatusOnRevision, domain.StatusApproved, domain.StatusActive,
		domain.StatusObsolete, domain.StatusArchived:
		return false
	default:
		return false
	}
}

// Package workflow holds the pure rules of the three-level document sign-off: ledger
// transitions, document status derivation, recipient selection and revision reset.
// Nothing in this package performs I/O; callers load state, apply a rule and persist the
// returned values.
package workflow

import (
	"sort"

	"github.com/kirillkom/document-approval/internal/core/domain"
)

// CurrentCycle keeps the records that are active in the given revision cycle.
func CurrentCycle(approvals []domain.Approval, cycle int) []domain.Approval {
	out := make([]domain.Approval, 0, len(approvals))
	for _, a := range approvals {
		if a.Active() && a.RevisionCycle == cycle {
			out = append(out, a)
		}
	}
	return out
}

// AtLevel returns active records of one level in creation order.
func AtLevel(approvals []domain.Approval, level domain.Level) []domain.Approval {
	out := make([]domain.Approval, 0)
	for _, a := range approvals {
		if a.Active() && a.Level == level {
			out = append(out, a)
		}
	}
	SortByCreation(out)
	return out
}

// LevelVacuous is true when a level has no active approvers.
func LevelVacuous(approvals []domain.Approval, level domain.Level) bool {
	for _, a := range approvals {
		if a.Active() && a.Level == level {
			return false
		}
	}
	return true
}

// LevelComplete is true when every active record at the level is APPROVED.
// A vacuous level is complete.
func LevelComplete(approvals []domain.Approval, level domain.Level) bool {
	for _, a := range approvals {
		if a.Active() && a.Level == level && a.Status != domain.ApprovalStatusApproved {
			return false
		}
	}
	return true
}

// LowerLevelsComplete reports whether every level below the given one is complete.
func LowerLevelsComplete(approvals []domain.Approval, level domain.Level) bool {
	for _, l := range domain.Levels {
		if l >= level {
			break
		}
		if !LevelComplete(approvals, l) {
			return false
		}
	}
	return true
}

// SortByCreation orders records by creation time, then submission position, then id.
func SortByCreation(approvals []domain.Approval) {
	sort.SliceStable(approvals, func(i, j int) bool {
		a, b := approvals[i], approvals[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.ID < b.ID
	})
}

// ReplaceApproval returns a copy of the set with the record of the same id swapped in.
func ReplaceApproval(approvals []domain.Approval, updated domain.Approval) []domain.Approval {
	out := make([]domain.Approval, len(approvals))
	copy(out, approvals)
	for i := range out {
		if out[i].ID == updated.ID {
			out[i] = updated
		}
	}
	return out
}

package domain

import "slices"

// ModerationStatus is the moderation state of a review.
type ModerationStatus string

const (
	StatusPending      ModerationStatus = "pending"
	StatusAutoApproved ModerationStatus = "auto_approved"
	StatusFlagged      ModerationStatus = "flagged"
	StatusApproved     ModerationStatus = "approved"
	StatusRejected     ModerationStatus = "rejected"
	StatusRemoved      ModerationStatus = "removed"
)

// ValidStatuses returns all moderation statuses.
func ValidStatuses() []ModerationStatus {
	return []ModerationStatus{
		StatusPending,
		StatusAutoApproved,
		StatusFlagged,
		StatusApproved,
		StatusRejected,
		StatusRemoved,
	}
}

// IsValidStatus checks if a status string is valid.
func IsValidStatus(s string) bool {
	return slices.Contains(ValidStatuses(), ModerationStatus(s))
}

// AllowedTransitions defines which status transitions are valid. An approved
// review goes back to flagged when an edit or user reports need a human look.
func AllowedTransitions() map[ModerationStatus][]ModerationStatus {
	return map[ModerationStatus][]ModerationStatus{
		StatusPending:      {StatusAutoApproved, StatusFlagged, StatusRejected},
		StatusFlagged:      {StatusApproved, StatusRejected},
		StatusAutoApproved: {StatusFlagged, StatusRemoved},
		StatusApproved:     {StatusFlagged, StatusRemoved},
		StatusRejected:     {},
		StatusRemoved:      {},
	}
}

// CanTransitionTo reports whether s may move to target.
func (s ModerationStatus) CanTransitionTo(target ModerationStatus) bool {
	return slices.Contains(AllowedTransitions()[s], target)
}

// AggregationEligible reports whether reviews in s count towards ratings.
func (s ModerationStatus) AggregationEligible() bool {
	return s == StatusAutoApproved || s == StatusApproved
}

// AggregationEligibleStatuses returns the statuses that count towards ratings.
func AggregationEligibleStatuses() []ModerationStatus {
	return []ModerationStatus{StatusAutoApproved, StatusApproved}
}

// Editable reports whether the author may still change a review in s.
func (s ModerationStatus) Editable() bool {
	return s != StatusRejected && s != StatusRemoved
}

func (s ModerationStatus) String() string { return string(s) }

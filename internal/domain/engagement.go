package domain

import "time"

// Audit outcomes written for each moderation check and human decision.
const (
	OutcomePass    = "pass"
	OutcomeFlag    = "flag"
	OutcomeReject  = "reject"
	OutcomeSkipped = "skipped"
)

// AuditEntry is one append-only moderation record.
type AuditEntry struct {
	ID        string    `json:"id"`
	ReviewID  string    `json:"review_id"`
	Check     string    `json:"check"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
	Actor     string    `json:"actor"`
	CreatedAt time.Time `json:"created_at"`
}

// ReviewResponse is the subject owner's reply to a review.
type ReviewResponse struct {
	ReviewID    string    `json:"review_id"`
	ResponderID string    `json:"responder_id"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Vote is a reader's helpfulness vote. One per voter and review.
type Vote struct {
	ReviewID  string    `json:"review_id"`
	VoterID   string    `json:"voter_id"`
	Helpful   bool      `json:"helpful"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Report is a user complaint about a review.
type Report struct {
	ID         string    `json:"id"`
	ReviewID   string    `json:"review_id"`
	ReporterID string    `json:"reporter_id"`
	Reason     string    `json:"reason"`
	Resolved   bool      `json:"resolved"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReviewerHistory is the snapshot of a reviewer's past activity used by
// moderation.
type ReviewerHistory struct {
	AccountCreatedAt time.Time

	// RecentSubmissions counts submissions in the velocity window,
	// including the one being moderated.
	RecentSubmissions int

	MeanRating float64
	RatedCount int

	// AccountLookupFailed is set when the identity service could not be
	// reached, so the account age is unknown.
	AccountLookupFailed bool
}

// AccountKnown reports whether the account creation time is available.
func (h ReviewerHistory) AccountKnown() bool {
	return !h.AccountCreatedAt.IsZero()
}

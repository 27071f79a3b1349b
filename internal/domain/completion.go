package domain

import "time"

// CompletionFact records that a reviewer finished a lesson or course with a
// subject. Facts come from completion events and are read-only here.
type CompletionFact struct {
	ReviewerID    string      `json:"reviewer_id"`
	SubjectID     string      `json:"subject_id"`
	SubjectKind   SubjectKind `json:"subject_kind"`
	OwnerID       string      `json:"owner_id"`
	CompletedAt   time.Time   `json:"completed_at"`
	SourceEventID string      `json:"source_event_id"`
}

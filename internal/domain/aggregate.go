package domain

import "time"

// CategoryScore is the weighted score of one category.
type CategoryScore struct {
	Score       float64 `json:"score"`
	SampleCount int     `json:"sample_count"`
}

// ConfidenceInterval bounds the overall score at Level confidence.
type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Level float64 `json:"level"`
}

// AggregatedRating is the computed rating of a subject. It is only ever
// replaced as a whole by a recompute.
type AggregatedRating struct {
	SubjectID    string                     `json:"subject_id"`
	SubjectKind  SubjectKind                `json:"subject_kind"`
	Overall      *float64                   `json:"overall"`
	Categories   map[Category]CategoryScore `json:"categories"`
	Confidence   ConfidenceInterval         `json:"confidence"`
	SampleCount  int                        `json:"sample_count"`
	LowSample    bool                       `json:"low_sample"`
	Distribution [MaxRating]int             `json:"distribution"`
	ComputedAt   time.Time                  `json:"computed_at"`

	// Version grows by one with every stored recompute of the subject.
	Version int64 `json:"version"`
}

// EmptyAggregate is the rating of a subject with no eligible reviews.
func EmptyAggregate(subjectID string, kind SubjectKind, level float64, now time.Time) *AggregatedRating {
	return &AggregatedRating{
		SubjectID:   subjectID,
		SubjectKind: kind,
		Categories:  map[Category]CategoryScore{},
		Confidence:  ConfidenceInterval{Lower: MinRating, Upper: MaxRating, Level: level},
		LowSample:   true,
		ComputedAt:  now,
	}
}

package moderation

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/domain"
)

// ProfanityCheck rejects reviews containing a disallowed word. Words match
// on word boundaries, case-insensitively.
type ProfanityCheck struct {
	pattern *regexp.Regexp
}

// NewProfanityCheck builds the matcher. An empty list passes everything.
func NewProfanityCheck(words []string) *ProfanityCheck {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			quoted = append(quoted, regexp.QuoteMeta(w))
		}
	}
	if len(quoted) == 0 {
		return &ProfanityCheck{}
	}
	return &ProfanityCheck{pattern: regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)}
}

func (c *ProfanityCheck) Name() string { return CheckProfanity }

func (c *ProfanityCheck) Run(_ context.Context, review *domain.Review, _ domain.ReviewerHistory, _ time.Time) Outcome {
	if c.pattern == nil {
		return pass()
	}
	if m := c.pattern.FindString(review.Text()); m != "" {
		return reject(fmt.Sprintf("disallowed word %q", strings.ToLower(m)))
	}
	return pass()
}

// addressPattern wants a house number, one to three capitalized name words
// and a street suffix.
var (
	emailPattern   = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	phonePattern   = regexp.MustCompile(`\+?\(?\d[\d\s().\-]{6,}\d`)
	addressPattern = regexp.MustCompile(`\b\d{1,5}\s+(?:[A-Z][A-Za-z'.\-]*\s+){1,3}(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr)\b`)
)

// A phone number carries 9 to 15 digits, which keeps dates and local
// 7-digit numbers out.
const (
	minPhoneDigits = 9
	maxPhoneDigits = 15
)

// PersonalInfoCheck rejects reviews that expose an email address, a phone
// number or a street address.
type PersonalInfoCheck struct{}

func (PersonalInfoCheck) Name() string { return CheckPersonalInfo }

func (PersonalInfoCheck) Run(_ context.Context, review *domain.Review, _ domain.ReviewerHistory, _ time.Time) Outcome {
	text := review.Text()
	switch {
	case emailPattern.MatchString(text):
		return reject("email address")
	case containsPhone(text):
		return reject("phone number")
	case addressPattern.MatchString(text):
		return reject("street address")
	}
	return pass()
}

func containsPhone(text string) bool {
	for _, m := range phonePattern.FindAllString(text, -1) {
		digits := 0
		for _, r := range m {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		if digits >= minPhoneDigits && digits <= maxPhoneDigits {
			return true
		}
	}
	return false
}

// VelocityCheck flags reviewers above Limit submissions in the window and
// rejects those above twice the limit.
type VelocityCheck struct {
	Limit int
}

func (c VelocityCheck) Name() string { return CheckVelocity }

func (c VelocityCheck) Run(_ context.Context, _ *domain.Review, history domain.ReviewerHistory, _ time.Time) Outcome {
	n := history.RecentSubmissions
	switch {
	case n > 2*c.Limit:
		return reject(fmt.Sprintf("%d submissions in window, limit %d", n, c.Limit))
	case n > c.Limit:
		return flag(fmt.Sprintf("%d submissions in window, limit %d", n, c.Limit))
	}
	return pass()
}

// minHistoryForDeviation is how many earlier reviews a reviewer needs before
// the deviation rule applies.
const minHistoryForDeviation = 3

// AuthenticityCheck flags young accounts and ratings far from the reviewer's
// own historical mean. It never rejects.
type AuthenticityCheck struct {
	MinAccountAge      time.Duration
	DeviationThreshold float64
}

func (c AuthenticityCheck) Name() string { return CheckAuthenticity }

func (c AuthenticityCheck) Run(_ context.Context, review *domain.Review, history domain.ReviewerHistory, now time.Time) Outcome {
	if history.AccountKnown() && now.Sub(history.AccountCreatedAt) < c.MinAccountAge {
		return flag(fmt.Sprintf("account younger than %s", c.MinAccountAge))
	}
	if history.RatedCount >= minHistoryForDeviation {
		if d := math.Abs(float64(review.OverallRating) - history.MeanRating); d > c.DeviationThreshold {
			return flag(fmt.Sprintf("rating deviates %.1f from reviewer mean %.1f", d, history.MeanRating))
		}
	}
	if history.AccountLookupFailed {
		return skipped("account age unavailable")
	}
	return pass()
}

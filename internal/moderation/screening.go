package moderation

import (
	"context"
	"strings"
	"time"

	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/domain"
)

// Screening verdicts returned by the content-screening service.
const (
	VerdictPass   = "pass"
	VerdictFlag   = "flag"
	VerdictReject = "reject"
)

// Screener classifies free text. Errors mean the service is unavailable.
type Screener interface {
	Screen(ctx context.Context, text string) (verdict string, labels []string, err error)
}

// ScreeningCheck asks an external service to classify the review text. An
// unavailable service yields a skipped outcome, never an error.
type ScreeningCheck struct {
	screener Screener
	timeout  time.Duration
}

// NewScreeningCheck creates the check. Each call is bounded by timeout.
func NewScreeningCheck(s Screener, timeout time.Duration) *ScreeningCheck {
	return &ScreeningCheck{screener: s, timeout: timeout}
}

func (c *ScreeningCheck) Name() string { return CheckContentScreening }

func (c *ScreeningCheck) Run(ctx context.Context, review *domain.Review, _ domain.ReviewerHistory, _ time.Time) Outcome {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	verdict, labels, err := c.screener.Screen(ctx, review.Text())
	if err != nil {
		return skipped("screening unavailable: " + err.Error())
	}

	detail := strings.Join(labels, ",")
	switch verdict {
	case VerdictPass:
		return pass()
	case VerdictReject:
		return reject(detail)
	case VerdictFlag:
		return flag(detail)
	default:
		return flag("unknown verdict " + verdict)
	}
}

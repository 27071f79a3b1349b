// Package moderation screens reviews before they are published.
//
// A Pipeline runs its checks in order. Each check passes, flags, rejects or
// is skipped when a dependency is unavailable. The first reject stops the
// run and rejects the review; any flag or skip sends it to human review;
// otherwise it is auto-approved.
package moderation

import (
	"context"
	"log/slog"
	"time"

	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/domain"
)

// Check names, as written to the audit trail.
const (
	CheckProfanity        = "profanity"
	CheckPersonalInfo     = "personal_info"
	CheckVelocity         = "velocity"
	CheckAuthenticity     = "authenticity"
	CheckContentScreening = "content_screening"
)

// Outcome is the result of one check.
type Outcome struct {
	Check  string `json:"check"`
	Signal string `json:"signal"`
	Detail string `json:"detail,omitempty"`
}

// Check is one moderation rule. Run must not mutate review.
type Check interface {
	Name() string
	Run(ctx context.Context, review *domain.Review, history domain.ReviewerHistory, now time.Time) Outcome
}

// Result is the pipeline verdict with every outcome that ran.
type Result struct {
	Status   domain.ModerationStatus
	Outcomes []Outcome
}

// Checks returns the names of the checks that produced signal.
func (r Result) Checks(signal string) []string {
	var names []string
	for _, o := range r.Outcomes {
		if o.Signal == signal {
			names = append(names, o.Check)
		}
	}
	return names
}

// Reason summarises the checks that kept the review from auto-approval.
func (r Result) Reason() string {
	var reason string
	for _, o := range r.Outcomes {
		if o.Signal == domain.OutcomePass {
			continue
		}
		if reason != "" {
			reason += "; "
		}
		reason += o.Check + ": " + o.Signal
		if o.Detail != "" {
			reason += " (" + o.Detail + ")"
		}
	}
	return reason
}

// AuditEntries converts the outcomes to audit records for reviewID.
func (r Result) AuditEntries(reviewID, actor string, now time.Time, newID func() string) []domain.AuditEntry {
	entries := make([]domain.AuditEntry, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		entries = append(entries, domain.AuditEntry{
			ID:        newID(),
			ReviewID:  reviewID,
			Check:     o.Check,
			Outcome:   o.Signal,
			Detail:    o.Detail,
			Actor:     actor,
			CreatedAt: now,
		})
	}
	return entries
}

// Pipeline runs checks in a fixed order.
type Pipeline struct {
	checks []Check
	logger *slog.Logger
}

// NewPipeline creates a pipeline running checks in the given order.
func NewPipeline(logger *slog.Logger, checks ...Check) *Pipeline {
	return &Pipeline{checks: checks, logger: logger}
}

// Moderate screens review against history. The result depends only on its
// inputs and on the answers of external checks.
func (p *Pipeline) Moderate(ctx context.Context, review *domain.Review, history domain.ReviewerHistory, now time.Time) Result {
	res := Result{Status: domain.StatusAutoApproved}

	for _, c := range p.checks {
		o := c.Run(ctx, review, history, now)
		o.Check = c.Name()
		res.Outcomes = append(res.Outcomes, o)
		checkOutcomes.WithLabelValues(o.Check, o.Signal).Inc()

		switch o.Signal {
		case domain.OutcomeReject:
			res.Status = domain.StatusRejected
		case domain.OutcomeFlag, domain.OutcomeSkipped:
			res.Status = domain.StatusFlagged
		}
		if o.Signal == domain.OutcomeSkipped {
			p.logger.WarnContext(ctx, "moderation check skipped",
				slog.String("check", o.Check),
				slog.String("review_id", review.ID),
				slog.String("detail", o.Detail),
			)
		}
		if res.Status == domain.StatusRejected {
			break
		}
	}

	verdicts.WithLabelValues(string(res.Status)).Inc()
	return res
}

func pass() Outcome { return Outcome{Signal: domain.OutcomePass} }

func flag(detail string) Outcome { return Outcome{Signal: domain.OutcomeFlag, Detail: detail} }

func reject(detail string) Outcome { return Outcome{Signal: domain.OutcomeReject, Detail: detail} }

func skipped(detail string) Outcome { return Outcome{Signal: domain.OutcomeSkipped, Detail: detail} }

// Config holds the moderation knobs.
type Config struct {
	ProfanityWords     []string
	VelocityLimit      int
	MinAccountAge      time.Duration
	DeviationThreshold float64
	ScreeningTimeout   time.Duration
}

// NewDefault builds the standard pipeline: profanity, personal info,
// velocity, authenticity and, when screener is not nil, content screening.
func NewDefault(cfg Config, screener Screener, logger *slog.Logger) *Pipeline {
	checks := []Check{
		NewProfanityCheck(cfg.ProfanityWords),
		PersonalInfoCheck{},
		VelocityCheck{Limit: cfg.VelocityLimit},
		AuthenticityCheck{MinAccountAge: cfg.MinAccountAge, DeviationThreshold: cfg.DeviationThreshold},
	}
	if screener != nil {
		checks = append(checks, NewScreeningCheck(screener, cfg.ScreeningTimeout))
	}
	return NewPipeline(logger, checks...)
}

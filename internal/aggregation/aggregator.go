// Package aggregation computes subject ratings from approved reviews.
//
// Each review contributes with weight recency × damping. Recency decays
// exponentially with age down to a floor. Overall ratings outside the Tukey
// fences (Q1 − k·IQR, Q3 + k·IQR) are damped by a constant factor instead of
// being dropped. The confidence interval uses at least MinStdDev as the
// spread of single ratings, so unanimous reviews still leave a margin. The
// result is a pure function of the review set and now.
package aggregation

import (
	"math"
	"time"

	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/domain"
)

// Config holds the aggregation knobs.
type Config struct {
	MinSample       int
	HalfLife        time.Duration
	WeightFloor     float64
	IQRMultiplier   float64
	Damping         float64
	ConfidenceLevel float64
	MinStdDev       float64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MinSample:       3,
		HalfLife:        180 * 24 * time.Hour,
		WeightFloor:     0.05,
		IQRMultiplier:   1.5,
		Damping:         0.25,
		ConfidenceLevel: 0.95,
		MinStdDev:       0.5,
	}
}

// Aggregator computes AggregatedRating values. It holds no mutable state and
// is safe for concurrent use.
type Aggregator struct {
	cfg Config
	z   float64
}

// New creates an Aggregator.
func New(cfg Config) *Aggregator {
	return &Aggregator{cfg: cfg, z: zScore(cfg.ConfidenceLevel)}
}

// Config returns the aggregator's configuration.
func (a *Aggregator) Config() Config { return a.cfg }

// RecencyWeight returns max(0.5^(age/halfLife), floor). Negative ages count
// as zero.
func (a *Aggregator) RecencyWeight(age time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	w := math.Pow(0.5, float64(age)/float64(a.cfg.HalfLife))
	return math.Max(w, a.cfg.WeightFloor)
}

// Weights returns the combined weight of every review in reviews, in order.
// Callers pass only aggregation-eligible reviews.
func (a *Aggregator) Weights(reviews []domain.Review, now time.Time) []float64 {
	overall := make([]float64, len(reviews))
	for i := range reviews {
		overall[i] = float64(reviews[i].OverallRating)
	}
	q1, _, q3 := quartiles(overall)
	spread := a.cfg.IQRMultiplier * (q3 - q1)
	lo, hi := q1-spread, q3+spread

	weights := make([]float64, len(reviews))
	for i := range reviews {
		w := a.RecencyWeight(now.Sub(reviews[i].CreatedAt))
		if overall[i] < lo || overall[i] > hi {
			w *= a.cfg.Damping
		}
		weights[i] = w
	}
	return weights
}

// Compute builds the rating of subjectID from reviews. Reviews whose status
// is not aggregation-eligible are ignored.
func (a *Aggregator) Compute(subjectID string, kind domain.SubjectKind, reviews []domain.Review, now time.Time) *domain.AggregatedRating {
	eligible := make([]domain.Review, 0, len(reviews))
	for i := range reviews {
		if reviews[i].Status.AggregationEligible() {
			eligible = append(eligible, reviews[i])
		}
	}

	agg := domain.EmptyAggregate(subjectID, kind, a.cfg.ConfidenceLevel, now)
	agg.SampleCount = len(eligible)
	if len(eligible) == 0 {
		return agg
	}

	weights := a.Weights(eligible, now)

	overall := make([]float64, len(eligible))
	for i := range eligible {
		overall[i] = float64(eligible[i].OverallRating)
		agg.Distribution[eligible[i].OverallRating-domain.MinRating]++
	}

	for _, c := range kind.Categories() {
		var values, ws []float64
		for i := range eligible {
			if v, ok := eligible[i].CategoryRating(c); ok {
				values = append(values, float64(v))
				ws = append(ws, weights[i])
			}
		}
		if len(values) == 0 {
			continue
		}
		mean, _, _ := weightedStats(values, ws)
		agg.Categories[c] = domain.CategoryScore{Score: mean, SampleCount: len(values)}
	}

	if len(eligible) < a.cfg.MinSample {
		return agg
	}

	mean, variance, effN := weightedStats(overall, weights)
	sd := math.Max(math.Sqrt(variance), a.cfg.MinStdDev)
	se := sd / math.Sqrt(effN)
	agg.Overall = &mean
	agg.LowSample = false
	agg.Confidence.Lower = clamp(mean-a.z*se, domain.MinRating, domain.MaxRating)
	agg.Confidence.Upper = clamp(mean+a.z*se, domain.MinRating, domain.MaxRating)
	return agg
}

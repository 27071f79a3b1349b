package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/health"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/middleware"
)

// ServiceName labels HTTP metrics and spans.
const ServiceName = "review"

// publicCacheMaxAge is the shared-cache lifetime, in seconds, of public reads.
const publicCacheMaxAge = 30

// Deps holds what the router needs besides the services.
type Deps struct {
	Health        *health.Handler
	Tokens        middleware.TokenValidator
	SubmitLimiter *middleware.RateLimiter
	PprofCIDRs    []string
	Logger        *slog.Logger
}

// NewRouter creates a chi router with all review service routes registered.
func NewRouter(
	reviews ReviewService,
	moderation ModerationService,
	ratings RatingService,
	deps Deps,
) http.Handler {
	logger := deps.Logger
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(ServiceName))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", deps.Health.LivenessHandler())
	r.Get("/health/ready", deps.Health.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, deps.PprofCIDRs, logger)

	reviewHandler := NewReviewHandler(reviews, logger)
	ratingHandler := NewRatingHandler(ratings, logger)
	moderationHandler := NewModerationHandler(moderation, logger)

	// Public subject endpoints
	r.Route("/api/v1/subjects/{kind}/{subjectId}", func(r chi.Router) {
		r.Use(middleware.CacheControl(publicCacheMaxAge))
		r.Get("/reviews", reviewHandler.ListSubjectReviews)
		r.Get("/rating", ratingHandler.GetRating)
	})

	r.Group(func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(deps.Tokens, logger))

		r.Route("/api/v1/reviews", func(r chi.Router) {
			if deps.SubmitLimiter != nil {
				r.With(deps.SubmitLimiter.Middleware).Post("/", reviewHandler.SubmitReview)
			} else {
				r.Post("/", reviewHandler.SubmitReview)
			}
			r.Get("/{id}", reviewHandler.GetReview)
			r.Patch("/{id}", reviewHandler.UpdateReview)
			r.Post("/{id}/response", reviewHandler.RespondToReview)
			r.Put("/{id}/vote", reviewHandler.VoteReview)
			r.Post("/{id}/reports", reviewHandler.ReportReview)
		})

		r.Get("/api/v1/reviewers/{reviewerId}/reviews", reviewHandler.ListReviewerReviews)

		// Moderator endpoints
		r.Route("/api/v1/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(middleware.RoleModerator, middleware.RoleAdmin))

			r.Get("/moderation/flagged", moderationHandler.ListFlagged)
			r.Post("/moderation/reviews/{id}/decision", moderationHandler.Decide)
			r.Post("/moderation/reviews/{id}/remove", moderationHandler.Remove)
			r.Get("/moderation/reviews/{id}/audit", moderationHandler.Audit)
			r.Post("/subjects/{subjectId}/recompute", ratingHandler.Recompute)
		})
	})

	return r
}

package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternal       = errors.New("internal error")
	ErrConflict       = errors.New("conflict")
	ErrServiceUnavail = errors.New("service unavailable")
)

// Review policy sentinels. Each one is scoped to a single review or subject
// operation; none of them is fatal to the process.
var (
	ErrNotEligible           = errors.New("reviewer not eligible")
	ErrDuplicateReview       = errors.New("duplicate review")
	ErrPolicyViolation       = errors.New("policy violation")
	ErrWindowExpired         = errors.New("update window expired")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Status  int               `json:"-"`
	Err     error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// AlreadyExists creates a 409 error.
func AlreadyExists(resource, field, value string) *AppError {
	return &AppError{
		Code:    "ALREADY_EXISTS",
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Status:  http.StatusConflict,
		Err:     ErrAlreadyExists,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// Conflict creates a 409 error for state conflicts such as invalid transitions.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// NotEligible reports that a reviewer may not review a subject. The reason
// is a stable machine-readable token (no_completion, window_expired, ...).
func NotEligible(reason string) *AppError {
	return &AppError{
		Code:    "NOT_ELIGIBLE",
		Message: "reviewer is not eligible to review this subject",
		Details: map[string]string{"reason": reason},
		Status:  http.StatusUnprocessableEntity,
		Err:     ErrNotEligible,
	}
}

// DuplicateReview reports a second live review for the same reviewer and subject.
func DuplicateReview(reviewerID, subjectID string) *AppError {
	return &AppError{
		Code:    "DUPLICATE_REVIEW",
		Message: fmt.Sprintf("reviewer %s already has a review for subject %s; update it instead", reviewerID, subjectID),
		Status:  http.StatusConflict,
		Err:     ErrDuplicateReview,
	}
}

// PolicyViolation reports a moderation reject or an edit that breaks review policy.
// The names of the failing checks are exposed in Details["checks"].
func PolicyViolation(message string, checks ...string) *AppError {
	e := &AppError{
		Code:    "POLICY_VIOLATION",
		Message: message,
		Status:  http.StatusUnprocessableEntity,
		Err:     ErrPolicyViolation,
	}
	if len(checks) > 0 {
		e.Details = map[string]string{"checks": strings.Join(checks, ",")}
	}
	return e
}

// WindowExpired reports an edit attempted after the review's update window closed.
func WindowExpired(reviewID string) *AppError {
	return &AppError{
		Code:    "WINDOW_EXPIRED",
		Message: fmt.Sprintf("review %s can no longer be edited", reviewID),
		Status:  http.StatusUnprocessableEntity,
		Err:     ErrWindowExpired,
	}
}

// DependencyUnavailable wraps a failure of an external collaborator.
func DependencyUnavailable(dependency string, err error) *AppError {
	return &AppError{
		Code:    "DEPENDENCY_UNAVAILABLE",
		Message: fmt.Sprintf("%s is unavailable", dependency),
		Status:  http.StatusServiceUnavailable,
		Err:     errors.Join(ErrDependencyUnavailable, err),
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConflict), errors.Is(err, ErrDuplicateReview):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotEligible), errors.Is(err, ErrPolicyViolation), errors.Is(err, ErrWindowExpired):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrDependencyUnavailable), errors.Is(err, ErrServiceUnavail):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/logger"
)

type contextKeyType string

const (
	userIDKey contextKeyType = "user_id"
	roleKey   contextKeyType = "role"
)

// Roles recognised by the admin routes.
const (
	RoleLearner   = "learner"
	RoleTutor     = "tutor"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// Claims represents the caller identity extracted from a bearer token.
type Claims struct {
	UserID string
	Role   string
}

// TokenValidator validates a raw token and returns its claims.
type TokenValidator func(token string) (*Claims, error)

var errMissingSubject = errors.New("token has no user_id or sub claim")

// NewJWTValidator returns a TokenValidator for HMAC-signed tokens. The caller
// id is read from user_id, falling back to the registered sub claim.
func NewJWTValidator(secret string) TokenValidator {
	key := []byte(secret)
	return func(raw string) (*Claims, error) {
		token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return key, nil
		})
		if err != nil {
			return nil, fmt.Errorf("parse token: %w", err)
		}

		mc, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			return nil, jwt.ErrTokenInvalidClaims
		}

		claims := &Claims{}
		if uid, ok := mc["user_id"].(string); ok && uid != "" {
			claims.UserID = uid
		} else if sub, err := mc.GetSubject(); err == nil && sub != "" {
			claims.UserID = sub
		}
		if claims.UserID == "" {
			return nil, errMissingSubject
		}
		if role, ok := mc["role"].(string); ok {
			claims.Role = role
		}
		return claims, nil
	}
}

// Auth validates the bearer token and stores the caller id and role in the
// request context. The request-scoped logger is extended with both fields.
func Auth(validate TokenValidator, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid authorization header format")
				return
			}

			claims, err := validate(strings.TrimSpace(parts[1]))
			if err != nil {
				l.WarnContext(r.Context(), "invalid bearer token",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
				return
			}

			ctx := WithPrincipal(r.Context(), claims.UserID, claims.Role)
			ctx = logger.WithUserID(ctx, claims.UserID)
			ctx = logger.WithRole(ctx, claims.Role)
			ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(
				slog.String("user_id", claims.UserID),
				slog.String("role", claims.Role),
			))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects callers whose role is not one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	roleSet := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := roleSet[RoleFromContext(r.Context())]; !ok {
				writeJSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithPrincipal returns ctx carrying the caller id and role.
func WithPrincipal(ctx context.Context, userID, role string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, roleKey, role)
}

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// RoleFromContext extracts the user role from the request context.
func RoleFromContext(ctx context.Context) string {
	if role, ok := ctx.Value(roleKey).(string); ok {
		return role
	}
	return ""
}

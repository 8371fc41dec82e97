package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/diagnosis/medcv-review/internal/domain"
	"github.com/diagnosis/medcv-review/internal/http/response"
	"github.com/diagnosis/medcv-review/internal/service"
	"github.com/diagnosis/medcv-review/pkg/logger"
)

type ctxKey string

const CtxIdentity ctxKey = "identity"

// Authenticator resolves a bearer token to a live identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Identity, error)
}

// BearerToken returns the token of an "Authorization: Bearer <token>"
// header, or "" when the header is missing or malformed.
func BearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
}

// Protect rejects requests without a valid token and stores the identity in
// the request context.
func Protect(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := a.Authenticate(r.Context(), BearerToken(r))
			if err != nil {
				logger.DebugContext(r.Context(), "Authentication rejected", "error", err)
				response.FromError(w, r, err)
				return
			}
			ctx := WithIdentity(r.Context(), id)
			ctx = context.WithValue(ctx, logger.UserIDKey, id.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RestrictTo lets through identities holding one of roles. It must run after
// Protect.
func RestrictTo(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := service.Authorize(IdentityFrom(r.Context()), roles...); err != nil {
				response.FromError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithIdentity(ctx context.Context, id *domain.Identity) context.Context {
	return context.WithValue(ctx, CtxIdentity, id)
}

func IdentityFrom(ctx context.Context) *domain.Identity {
	id, _ := ctx.Value(CtxIdentity).(*domain.Identity)
	return id
}

package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"fleetbook/pkg/logger"
	"fleetbook/pkg/model"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

const requesterKey contextKey = "requester"

// Identity resolves the authenticated requester from the trusted headers set
// by the upstream gateway. Credential validation happens there, not here; this
// middleware only rejects requests that arrive without a usable identity.
func Identity(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get(HeaderUserID)
			if _, err := uuid.Parse(userID); err != nil {
				log.Warn("Request without valid identity",
					"request_id", requestIDFromContext(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				denyRequest(w, http.StatusUnauthorized, "Missing or invalid user identity")
				return
			}

			role := r.Header.Get(HeaderUserRole)
			if role != model.RoleAdmin {
				role = model.RoleUser
			}

			ctx := WithRequester(r.Context(), model.Requester{ID: userID, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithRequester attaches an identity to the context the same way Identity
// does.
func WithRequester(ctx context.Context, requester model.Requester) context.Context {
	return context.WithValue(ctx, requesterKey, requester)
}

// RequesterFromContext returns the identity attached by Identity. The second
// return is false on routes that bypass the identity middleware.
func RequesterFromContext(ctx context.Context) (model.Requester, bool) {
	requester, ok := ctx.Value(requesterKey).(model.Requester)
	return requester, ok
}

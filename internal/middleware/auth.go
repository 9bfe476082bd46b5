// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/carterperez-dev/bloodlink/internal/core"
)

type claimsKey struct{}

type TokenVerifier interface {
	VerifyAccessToken(
		ctx context.Context,
		token string,
	) (*SessionClaims, error)
}

// SessionClaims is the explicit session context carried by every
// authenticated request. Handlers read the caller from here and never from
// process-wide state.
type SessionClaims struct {
	UserID    string
	Role      string
	SessionID string
}

// WithClaims stores claims on ctx the same way Authenticator does.
func WithClaims(ctx context.Context, claims *SessionClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

func claimsFrom(ctx context.Context) *SessionClaims {
	if c, ok := ctx.Value(claimsKey{}).(*SessionClaims); ok && c != nil {
		return c
	}
	return &SessionClaims{}
}

func Authenticator(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				core.JSONError(
					w,
					core.UnauthorizedError("missing session token"),
				)
				return
			}

			claims, err := verifier.VerifyAccessToken(r.Context(), token)
			if err != nil {
				writeSessionError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole admits sessions whose role is one of roles. Donor-only and
// hospital-only routes are built from it.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := GetUserRole(r.Context())
			switch {
			case role == "":
				core.JSONError(w, core.UnauthorizedError("login required"))
			case !allowed[role]:
				core.JSONError(w, core.ForbiddenError(
					"this action is not available to "+role+" accounts",
				))
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func ExtractToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func writeSessionError(w http.ResponseWriter, err error) {
	if core.IsAppError(err) {
		core.JSONError(w, err)
		return
	}

	switch {
	case errors.Is(err, core.ErrTokenExpired):
		core.JSONError(w, core.TokenExpiredError())
	case errors.Is(err, core.ErrTokenRevoked):
		core.JSONError(w, core.TokenRevokedError())
	case errors.Is(err, core.ErrTokenInvalid):
		core.JSONError(w, core.TokenInvalidError())
	default:
		// The session store failed; the token itself may be fine.
		core.JSONError(w, core.InternalError(err))
	}
}

func GetUserID(ctx context.Context) string {
	return claimsFrom(ctx).UserID
}

func GetUserRole(ctx context.Context) string {
	return claimsFrom(ctx).Role
}

func GetSessionID(ctx context.Context) string {
	return claimsFrom(ctx).SessionID
}

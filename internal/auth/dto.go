// AngelaMos | 2026
// dto.go

package auth

import (
	"time"

	"github.com/carterperez-dev/bloodlink/internal/user"
)

type LoginRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	SessionID   string    `json:"session_id"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type AuthResponse struct {
	User  any           `json:"user"`
	Token TokenResponse `json:"token"`
}

func toAuthResponse(res *Result, now time.Time) AuthResponse {
	return AuthResponse{
		User: user.ToUserResponse(res.User),
		Token: TokenResponse{
			AccessToken: res.AccessToken,
			TokenType:   "Bearer",
			SessionID:   res.Session.ID,
			ExpiresIn:   int(res.Session.ExpiresAt.Sub(now) / time.Second),
			ExpiresAt:   res.Session.ExpiresAt,
		},
	}
}

// AngelaMos | 2026
// service.go

// Package auth opens and closes login sessions. Login is by email alone:
// there is no password or credential check, so it is a convenience for
// demos and not a security boundary.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/carterperez-dev/bloodlink/internal/core"
	"github.com/carterperez-dev/bloodlink/internal/ids"
	"github.com/carterperez-dev/bloodlink/internal/metrics"
	"github.com/carterperez-dev/bloodlink/internal/middleware"
	"github.com/carterperez-dev/bloodlink/internal/model"
	"github.com/carterperez-dev/bloodlink/internal/store"
	"github.com/carterperez-dev/bloodlink/internal/user"
)

type UserProvider interface {
	RegisterDonor(
		ctx context.Context,
		in user.RegisterDonorInput,
	) (*model.Donor, error)
	RegisterHospital(
		ctx context.Context,
		in user.RegisterHospitalInput,
	) (*model.Hospital, error)
	Get(ctx context.Context, id string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
}

// Result is a freshly opened session and the token that names it.
type Result struct {
	User        model.User
	Session     *model.Session
	AccessToken string
}

type Service struct {
	jwt      *JWTManager
	users    UserProvider
	sessions store.SessionStore
	metrics  *metrics.Metrics
	logger   *slog.Logger
	ttl      time.Duration
	now      func() time.Time
}

func NewService(
	jwt *JWTManager,
	users UserProvider,
	sessions store.SessionStore,
	m *metrics.Metrics,
	ttl time.Duration,
	logger *slog.Logger,
) *Service {
	return &Service{
		jwt:      jwt,
		users:    users,
		sessions: sessions,
		metrics:  m,
		logger:   logger,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Login opens a session for the account registered under email.
func (s *Service) Login(ctx context.Context, email string) (*Result, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.metrics.IncLogin("unknown_email")
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	res, err := s.openSession(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.metrics.IncLogin("success")
	s.logger.InfoContext(ctx, "session opened",
		"user_id", u.Base().ID,
		"session_id", res.Session.ID,
	)
	return res, nil
}

func (s *Service) RegisterDonor(
	ctx context.Context,
	in user.RegisterDonorInput,
) (*Result, error) {
	d, err := s.users.RegisterDonor(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.openSession(ctx, d)
}

func (s *Service) RegisterHospital(
	ctx context.Context,
	in user.RegisterHospitalInput,
) (*Result, error) {
	h, err := s.users.RegisterHospital(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.openSession(ctx, h)
}

func (s *Service) openSession(ctx context.Context, u model.User) (*Result, error) {
	now := s.now().UTC()
	sess := &model.Session{
		ID:        ids.NewSessionID(),
		UserID:    u.Base().ID,
		Role:      u.Role(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.sessions.PutSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	token, err := s.jwt.CreateAccessToken(TokenClaims{
		UserID:    sess.UserID,
		Role:      string(sess.Role),
		SessionID: sess.ID,
		ExpiresAt: sess.ExpiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	return &Result{User: u, Session: sess, AccessToken: token}, nil
}

// Logout is idempotent; an unknown session is not an error.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// VerifyAccessToken validates the token and then requires its session to
// still be live. The role comes from the stored session.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*middleware.SessionClaims, error) {
	claims, err := s.jwt.ParseAccessToken(token)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.GetSession(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("verify session: %w", core.ErrTokenRevoked)
		}
		return nil, fmt.Errorf("verify session: %w", err)
	}

	if sess.UserID != claims.UserID {
		return nil, fmt.Errorf("verify session: %w", core.ErrTokenInvalid)
	}

	return &middleware.SessionClaims{
		UserID:    sess.UserID,
		Role:      string(sess.Role),
		SessionID: sess.ID,
	}, nil
}

func (s *Service) CurrentUser(ctx context.Context, sessionID string) (model.User, error) {
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	u, err := s.users.Get(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}
	return u, nil
}

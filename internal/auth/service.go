// Package auth issues and verifies bearer tokens for registered users.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"

	"github.com/couchcryptid/hazard-report-service/internal/domain"
	"github.com/couchcryptid/hazard-report-service/internal/observability"
)

// UserStore persists users keyed by normalized e-mail.
type UserStore interface {
	// Create returns domain.ErrConflict when the e-mail is already registered.
	Create(ctx context.Context, u domain.User) error
	GetByEmail(ctx context.Context, email string) (domain.User, error)
}

// Service registers users, logs them in, and authenticates bearer tokens.
type Service struct {
	users      UserStore
	tokens     *TokenIssuer
	clock      clockwork.Clock
	bcryptCost int
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithBcryptCost overrides bcrypt.DefaultCost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

// NewService creates an auth service.
func NewService(users UserStore, tokens *TokenIssuer, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger, opts ...Option) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &Service{
		users:      users,
		tokens:     tokens,
		clock:      clock,
		bcryptCost: bcrypt.DefaultCost,
		metrics:    metrics,
		logger:     logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register creates a user and returns a token for it. A duplicate e-mail is
// reported as a validation error on the email field.
func (s *Service) Register(ctx context.Context, c domain.Credentials) (string, error) {
	c.Email = domain.NormalizeEmail(c.Email)
	if err := domain.ValidateRegistration(c); err != nil {
		s.metrics.AuthAttempts.WithLabelValues("register", "failure").Inc()
		return "", err
	}

	hash, err := HashPassword(c.Password, s.bcryptCost)
	if err != nil {
		return "", err
	}
	u := domain.User{
		ID:           uuid.NewString(),
		Email:        c.Email,
		PasswordHash: hash,
		CreatedAt:    s.clock.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		s.metrics.AuthAttempts.WithLabelValues("register", "failure").Inc()
		if errors.Is(err, domain.ErrConflict) {
			return "", &domain.ValidationError{Fields: []domain.FieldError{
				{Field: "email", Message: "is already registered"},
			}}
		}
		return "", fmt.Errorf("create user: %w", err)
	}

	s.metrics.AuthAttempts.WithLabelValues("register", "success").Inc()
	s.logger.Info("user registered", "user_id", u.ID)
	return s.tokens.Issue(u)
}

// Login verifies credentials and returns a token. An unknown e-mail and a wrong
// password both yield domain.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, c domain.Credentials) (string, error) {
	email := domain.NormalizeEmail(c.Email)
	if email == "" || c.Password == "" {
		s.metrics.AuthAttempts.WithLabelValues("login", "failure").Inc()
		return "", domain.ErrInvalidCredentials
	}

	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(c.Password))
		s.metrics.AuthAttempts.WithLabelValues("login", "failure").Inc()
		return "", domain.ErrInvalidCredentials
	case err != nil:
		return "", fmt.Errorf("get user: %w", err)
	}

	if !CheckPassword(c.Password, u.PasswordHash) {
		s.metrics.AuthAttempts.WithLabelValues("login", "failure").Inc()
		return "", domain.ErrInvalidCredentials
	}
	s.metrics.AuthAttempts.WithLabelValues("login", "success").Inc()
	return s.tokens.Issue(u)
}

// Authenticate returns the user id carried by a bearer token.
func (s *Service) Authenticate(_ context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domain.ErrUnauthenticated
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

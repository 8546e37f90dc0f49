package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/auth"
	"github.com/spec-kit/identity-service/internal/config"
	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/events"
	"github.com/spec-kit/identity-service/internal/repository"
	apperrors "github.com/spec-kit/identity-service/pkg/util"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	accounts   repository.AccountRepository
	hasher     auth.PasswordHasher
	tokens     *auth.TokenManager
	policy     *auth.PasswordPolicy
	dispatcher events.Dispatcher
	logger     *zap.Logger

	// dummyHash keeps the lookup-miss path doing the same bcrypt work as
	// the wrong-password path, so response timing does not reveal whether
	// a username exists.
	dummyHash string
}

// AuthDependencies encapsulates collaborator requirements for the auth service.
type AuthDependencies struct {
	AccountRepo repository.AccountRepository
	Hasher      auth.PasswordHasher
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	hasher := deps.Hasher
	if hasher == nil {
		hasher = auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	dummyHash, err := hasher.Hash(uuid.NewString())
	if err != nil {
		logger.Warn("failed to precompute dummy hash", zap.Error(err))
	}

	return &AuthService{
		accounts:   deps.AccountRepo,
		hasher:     hasher,
		tokens:     auth.NewTokenManager(cfg.Auth.SigningKey, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.TokenTTL()),
		policy:     auth.NewPasswordPolicy(cfg.Password),
		dispatcher: deps.Dispatcher,
		logger:     logger,
		dummyHash:  dummyHash,
	}
}

// Register creates a new account. All input and policy violations are
// aggregated into a single VALIDATION_FAILED error; a duplicate username is
// reported as CONFLICT. On success the account is durably persisted and an
// audit event is emitted.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*domain.Account, error) {
	var violations []string
	if username == "" {
		violations = append(violations, "username is required")
	}
	if password == "" {
		violations = append(violations, "password is required")
	}
	violations = append(violations, s.policy.Violations(password)...)
	if len(violations) > 0 {
		return nil, apperrors.NewValidationError("registration rejected", map[string]any{"violations": violations})
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperrors.NewUnavailable(err)
	}

	account := &domain.Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperrors.NewConflict("username already registered", map[string]any{"username": username})
		}
		return nil, apperrors.NewUnavailable(err)
	}

	s.logger.Info("account created",
		zap.String("username", account.Username),
		zap.String("email", account.Email))
	s.publish(ctx, events.EventAccountRegistered, account.Username, events.AccountRegisteredPayload{
		AccountID: account.ID,
		Email:     account.Email,
	})

	return account, nil
}

// Login authenticates the credentials and mints a bearer token. Every
// authentication failure collapses to the same INVALID_CREDENTIALS error;
// only infrastructure failures surface as UNAVAILABLE.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return "", time.Time{}, s.loginFailed(ctx, username, "unknown username")
		}
		s.logger.Error("account lookup failed", zap.Error(err))
		return "", time.Time{}, apperrors.NewUnavailable(err)
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		return "", time.Time{}, s.loginFailed(ctx, username, "password mismatch")
	}

	token, expiresAt, err := s.tokens.Sign(account.Username)
	if err != nil {
		s.logger.Error("token signing failed", zap.Error(err))
		return "", time.Time{}, apperrors.NewUnavailable(err)
	}

	s.publish(ctx, events.EventLoginSucceeded, account.Username, events.LoginSucceededPayload{
		AccountID: account.ID,
		ExpiresAt: expiresAt,
	})

	return token, expiresAt, nil
}

func (s *AuthService) loginFailed(ctx context.Context, username, reason string) error {
	// reason stays internal; the caller sees only INVALID_CREDENTIALS
	s.logger.Info("login rejected",
		zap.String("username", username),
		zap.String("reason", reason))
	s.publish(ctx, events.EventLoginFailed, username, events.LoginFailedPayload{Reason: reason})
	return apperrors.NewInvalidCredentials()
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, username string, payload any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Username:  username,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

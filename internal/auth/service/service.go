package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"rotacultural/internal/auth/models"
	"rotacultural/internal/auth/secrets"
	jwttoken "rotacultural/internal/jwt_token"
	"rotacultural/internal/platform/metrics"
	dErrors "rotacultural/pkg/domain-errors"
	"rotacultural/pkg/email"
	"rotacultural/pkg/platform/audit"
	"rotacultural/pkg/platform/sentinel"
	"rotacultural/pkg/requestcontext"
)

var (
	ErrEmailTaken         = dErrors.New(dErrors.CodeConflict, "email is already registered")
	ErrInvalidCredentials = dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
	ErrUserNotFound       = dErrors.New(dErrors.CodeNotFound, "user not found")
	ErrUserIDRequired     = dErrors.New(dErrors.CodeBadRequest, "user ID required")
)

type UserStore interface {
	Save(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

type TokenIssuer interface {
	GenerateAccessToken(userID, email string, expiresIn time.Duration) (string, *jwttoken.AccessTokenClaims, error)
	ValidateToken(tokenString string) (*jwttoken.AccessTokenClaims, error)
}

type RevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Service registers users, checks their passwords and issues access tokens.
type Service struct {
	users       UserStore
	tokens      TokenIssuer
	revocations RevocationList
	tokenTTL    time.Duration
	hashCost    int
	logger      *slog.Logger
	metrics     *metrics.Metrics
	newID       func() string
	auditor     audit.Emitter
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAuditor records account lifecycle events.
func WithAuditor(auditor audit.Emitter) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

// WithHashCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *Service) {
		s.hashCost = cost
	}
}

func New(users UserStore, tokens TokenIssuer, revocations RevocationList, tokenTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		users:       users,
		tokens:      tokens,
		revocations: revocations,
		tokenTTL:    tokenTTL,
		hashCost:    bcrypt.DefaultCost,
		logger:      slog.New(slog.DiscardHandler),
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user with a hashed password.
func (s *Service) Register(ctx context.Context, creds models.Credentials) (*models.User, error) {
	creds.Normalize()
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	hash, err := secrets.HashWithCost(creds.Password, s.hashCost)
	if err != nil {
		if dErrors.IsValidation(err) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	first, last := email.DisplayName(creds.Email)
	user := &models.User{
		ID:           s.newID(),
		Email:        creds.Email,
		FirstName:    first,
		LastName:     last,
		PasswordHash: hash,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.users.Save(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, ErrEmailTaken
		}
		s.logger.ErrorContext(ctx, "failed to save user", "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save user")
	}

	if s.metrics != nil {
		s.metrics.IncrementUsersCreated()
	}
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	s.emitAudit(ctx, audit.Event{Action: audit.ActionUserCreated, UserID: user.ID, Email: user.Email})
	return user, nil
}

// Login checks the password and issues an access token. Unknown emails and
// wrong passwords fail the same way.
func (s *Service) Login(ctx context.Context, creds models.Credentials) (*models.TokenResult, error) {
	creds.Normalize()

	user, err := s.users.FindByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.loginFailed(ctx, "unknown email", "")
			return nil, ErrInvalidCredentials
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to lookup user")
	}
	if err := secrets.Verify(creds.Password, user.PasswordHash); err != nil {
		if errors.Is(err, secrets.ErrMismatch) {
			s.loginFailed(ctx, "wrong password", user.ID)
			return nil, ErrInvalidCredentials
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
	}

	token, _, err := s.tokens.GenerateAccessToken(user.ID, user.Email, s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return &models.TokenResult{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokenTTL.Seconds()),
	}, nil
}

func (s *Service) loginFailed(ctx context.Context, reason, userID string) {
	if s.metrics != nil {
		s.metrics.IncrementLoginFailures()
	}
	s.logger.WarnContext(ctx, "login failed", "reason", reason, "user_id", userID)
	if userID != "" {
		s.emitAudit(ctx, audit.Event{Action: audit.ActionLoginFailed, UserID: userID})
	}
}

// emitAudit never fails the calling operation.
func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", string(event.Action),
			"user_id", event.UserID,
			"error", err,
		)
	}
}

// VerifyToken returns the principal of a valid, unrevoked token.
func (s *Service) VerifyToken(ctx context.Context, token string) (*models.Principal, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check token revocation")
	}
	if revoked {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has been revoked")
	}
	return &models.Principal{ID: claims.UserID, Email: claims.Email}, nil
}

// Logout revokes token until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return err
	}
	remaining := claims.ExpiresAt.Sub(requestcontext.Now(ctx))
	if remaining <= 0 {
		return nil
	}
	if err := s.revocations.RevokeToken(ctx, claims.ID, remaining); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke token", "user_id", claims.UserID, "error", err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}
	s.logger.InfoContext(ctx, "user logged out", "user_id", claims.UserID)
	s.emitAudit(ctx, audit.Event{Action: audit.ActionLoggedOut, UserID: claims.UserID})
	return nil
}

// IsTokenRevoked satisfies the auth middleware's revocation check.
func (s *Service) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return s.revocations.IsRevoked(ctx, jti)
}

// GetUser returns the user stored under userID.
func (s *Service) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to lookup user")
	}
	return user, nil
}

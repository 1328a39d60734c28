package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/admission-core/internal/authz"
	"github.com/spec-kit/admission-core/internal/config"
	"github.com/spec-kit/admission-core/internal/domain"
	"github.com/spec-kit/admission-core/internal/events"
	"github.com/spec-kit/admission-core/internal/repository"
	"github.com/spec-kit/admission-core/internal/token"
	apperrors "github.com/spec-kit/admission-core/pkg/util"
)

// TokenPair bundles the credentials returned by login, register and refresh.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	SessionID        string
}

// AuthService coordinates registration, login and token rotation flows.
type AuthService struct {
	users      repository.UserRepository
	resets     repository.PasswordResetRepository
	resolver   *authz.Resolver
	sessions   *authz.SessionCache
	codec      *token.Codec
	dispatcher events.Dispatcher
	bcryptCost int
	resetTTL   time.Duration
}

// AuthDependencies encapsulates collaborator requirements for the service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	Resolver          *authz.Resolver
	Sessions          *authz.SessionCache
	Codec             *token.Codec
	Dispatcher        events.Dispatcher
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		resets:     deps.PasswordResetRepo,
		resolver:   deps.Resolver,
		sessions:   deps.Sessions,
		codec:      deps.Codec,
		dispatcher: deps.Dispatcher,
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   30 * time.Minute,
	}
}

// Register creates a new account and issues its first token pair.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, *TokenPair, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, nil, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, err
	}

	hash, err := hashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, nil, err
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	pair, err := s.issuePair(ctx, user, nil)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Login authenticates an account and issues a token pair carrying the user's
// current role names.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, *TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewAuthenticationRequired("invalid credentials")
		}
		return nil, nil, err
	}
	if !user.Active() {
		return nil, nil, apperrors.NewAuthenticationRequired("account disabled")
	}
	if err := comparePassword(user.PasswordHash, password); err != nil {
		return nil, nil, apperrors.NewAuthenticationRequired("invalid credentials")
	}

	pair, err := s.issuePair(ctx, user, nil)
	if err != nil {
		return nil, nil, err
	}

	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:          uuid.NewString(),
		Type:        events.EventUserLoggedIn,
		ActorUserID: user.ID,
		Timestamp:   time.Now(),
		Payload:     events.UserLoggedInPayload{UserID: user.ID, SessionID: pair.SessionID},
	})
	return user, pair, nil
}

// Refresh rotates a token pair. Only refresh tokens are accepted; roles are
// re-read so revocations take effect at rotation, and the session id carries
// over.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	payload, err := s.codec.VerifyFull(refreshToken)
	if err != nil {
		return nil, apperrors.NewInvalidToken("")
	}
	if err := token.RequireKind(payload, domain.TokenKindRefresh); err != nil {
		return nil, apperrors.NewInvalidToken("refresh token required")
	}

	user, err := s.users.GetByID(ctx, payload.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewInvalidToken("")
		}
		return nil, err
	}
	if !user.Active() {
		return nil, apperrors.NewInvalidToken("account disabled")
	}

	sessionID := payload.SessionID
	return s.issuePair(ctx, user, &sessionID)
}

func (s *AuthService) issuePair(ctx context.Context, user *domain.User, sessionID *string) (*TokenPair, error) {
	roles, err := s.resolver.RolesDetailed(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	roleNames := make([]string, 0, len(roles))
	for _, role := range roles {
		roleNames = append(roleNames, role.Name)
	}

	sid := uuid.NewString()
	if sessionID != nil && *sessionID != "" {
		sid = *sessionID
	}

	access, accessExp, err := s.codec.Issue(domain.TokenKindAccess, user.ID, user.Email, roleNames, sid)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.codec.Issue(domain.TokenKindRefresh, user.ID, user.Email, roleNames, sid)
	if err != nil {
		return nil, err
	}

	s.sessions.Put(ctx, user.ID, sid)

	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
		SessionID:        sid,
	}, nil
}

// RequestPasswordReset persists a reset token for the account, if it exists.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*repository.PasswordResetToken, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	reset := &repository.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, reset); err != nil {
		return nil, err
	}
	return reset, nil
}

// ConfirmPasswordReset exchanges a valid reset token for a new password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	reset, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewInvalidToken("unknown reset token")
		}
		return err
	}
	if reset.UsedAt != nil || time.Now().After(reset.ExpiresAt) {
		return apperrors.NewInvalidToken("reset token expired")
	}

	user, err := s.users.GetByID(ctx, reset.UserID)
	if err != nil {
		return err
	}
	hash, err := hashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	return s.resets.MarkUsed(ctx, reset.ID)
}

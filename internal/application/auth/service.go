package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appAudit "github.com/settlement-hub/settlement-hub/internal/application/audit"
	"github.com/settlement-hub/settlement-hub/internal/domain/audit"
	"github.com/settlement-hub/settlement-hub/internal/domain/authtoken"
	"github.com/settlement-hub/settlement-hub/internal/domain/user"
)

// ErrInvalidCredentials covers every login failure so the response never
// reveals whether the username exists.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrInvalidToken covers all token authentication failures.
var ErrInvalidToken = errors.New("invalid or expired token")

// Service handles authentication. Tokens are opaque random strings; only
// their sha256 hash is stored.
type Service struct {
	userRepo  user.Repository
	tokenRepo authtoken.Repository
	tokenTTL  time.Duration
	auditSvc  *appAudit.Service
	logger    zerolog.Logger
}

// NewService creates an auth service.
func NewService(userRepo user.Repository, tokenRepo authtoken.Repository, tokenTTL time.Duration, auditSvc *appAudit.Service, logger zerolog.Logger) *Service {
	return &Service{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		tokenTTL:  tokenTTL,
		auditSvc:  auditSvc,
		logger:    logger.With().Str("service", "auth").Logger(),
	}
}

// LoginResult contains login response.
type LoginResult struct {
	User      *user.User
	Token     string
	ExpiresAt time.Time
}

// Login authenticates a user and issues a token.
func (s *Service) Login(ctx context.Context, username, password string, userAgent, ipAddress *string) (*LoginResult, error) {
	username = user.NormalizeUsername(username)
	u, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.IsActive() || !user.VerifyPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t := &authtoken.Token{
		TokenID:    uuid.New(),
		TokenHash:  hashToken(token),
		Account:    u.Username,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.tokenTTL),
		LastSeenAt: &now,
		UserAgent:  userAgent,
		IPAddress:  ipAddress,
	}
	if err := s.tokenRepo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, &audit.AuditEntry{
		EntityType: audit.EntityTypeUser,
		EntityID:   u.UserID.String(),
		Action:     audit.ActionLogin,
		Actor:      u.Username,
	})
	s.logger.Info().Str("account", u.Username).Msg("login")
	return &LoginResult{User: u, Token: token, ExpiresAt: t.ExpiresAt}, nil
}

// Authenticate resolves a presented token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*user.User, *authtoken.Token, error) {
	if token == "" {
		return nil, nil, ErrInvalidToken
	}
	t, err := s.tokenRepo.GetByTokenHash(ctx, hashToken(token))
	if err != nil {
		return nil, nil, err
	}
	if t == nil {
		return nil, nil, ErrInvalidToken
	}
	if t.IsExpired(time.Now().UTC()) {
		_ = s.tokenRepo.DeleteByID(ctx, t.TokenID)
		return nil, nil, ErrInvalidToken
	}
	u, err := s.userRepo.GetByUsername(ctx, t.Account)
	if err != nil {
		return nil, nil, err
	}
	if u == nil || !u.IsActive() {
		return nil, nil, ErrInvalidToken
	}
	_ = s.tokenRepo.UpdateLastSeen(ctx, t.TokenID)
	return u, t, nil
}

// Logout revokes a token. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.tokenRepo.DeleteByTokenHash(ctx, hashToken(token))
}

// PurgeExpired removes expired tokens. Called from a background ticker.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	return s.tokenRepo.DeleteExpired(ctx)
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

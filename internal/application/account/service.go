package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appAudit "github.com/settlement-hub/settlement-hub/internal/application/audit"
	"github.com/settlement-hub/settlement-hub/internal/domain/audit"
	"github.com/settlement-hub/settlement-hub/internal/domain/user"
)

var (
	ErrUsernameTaken = errors.New("username already taken")
	ErrUserNotFound  = errors.New("user not found")
)

// Service manages account holders. The username doubles as the ledger
// account identifier.
type Service struct {
	repo     user.Repository
	auditSvc *appAudit.Service
	logger   zerolog.Logger
}

// NewService creates an account service.
func NewService(repo user.Repository, auditSvc *appAudit.Service, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		auditSvc: auditSvc,
		logger:   logger.With().Str("service", "account").Logger(),
	}
}

// RegisterInput defines account registration input.
type RegisterInput struct {
	Username string
	Password string
	Role     user.Role
}

// UpdateInput defines account update input.
type UpdateInput struct {
	Role   *user.Role
	Status *user.Status
}

// Register creates a new account. Role defaults to MEMBER.
func (s *Service) Register(ctx context.Context, input RegisterInput, actor string) (*user.User, error) {
	username := user.NormalizeUsername(input.Username)
	if err := user.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := user.ValidatePassword(input.Password, username); err != nil {
		return nil, err
	}
	if input.Role == "" {
		input.Role = user.RoleMember
	}
	if err := user.ValidateRole(input.Role); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	hash, err := user.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	u := &user.User{
		UserID:       uuid.New(),
		Username:     username,
		PasswordHash: hash,
		Role:         input.Role,
		Status:       user.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	if actor == "" {
		actor = username
	}
	s.auditSvc.Log(ctx, &audit.AuditEntry{
		EntityType: audit.EntityTypeUser,
		EntityID:   u.UserID.String(),
		Action:     audit.ActionCreate,
		Actor:      actor,
		NewValues:  u,
	})
	s.logger.Info().Str("account", u.Username).Str("role", string(u.Role)).Msg("account registered")
	return u, nil
}

// Update changes an account's role or status.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, input UpdateInput, actor string) (*user.User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	old := *u
	if input.Role != nil {
		if err := user.ValidateRole(*input.Role); err != nil {
			return nil, err
		}
		u.Role = *input.Role
	}
	if input.Status != nil {
		if err := user.ValidateStatus(*input.Status); err != nil {
			return nil, err
		}
		u.Status = *input.Status
	}
	u.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, &audit.AuditEntry{
		EntityType: audit.EntityTypeUser,
		EntityID:   u.UserID.String(),
		Action:     audit.ActionUpdate,
		Actor:      actor,
		OldValues:  old,
		NewValues:  u,
	})
	return u, nil
}

// SetPassword replaces an account's password.
func (s *Service) SetPassword(ctx context.Context, userID uuid.UUID, password string) error {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrUserNotFound
	}
	if err := user.ValidatePassword(password, u.Username); err != nil {
		return err
	}
	hash, err := user.HashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, u)
}

func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	return s.repo.GetByID(ctx, userID)
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return s.repo.GetByUsername(ctx, user.NormalizeUsername(username))
}

func (s *Service) List(ctx context.Context, filter user.Filter, limit, offset int) ([]*user.User, error) {
	return s.repo.List(ctx, filter, limit, offset)
}

// BootstrapAdmin creates the initial administrator if no users exist yet.
// Returns the admin when one was created, nil when the store already has
// users.
func (s *Service) BootstrapAdmin(ctx context.Context, username, password string) (*user.User, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, nil
	}
	u, err := s.Register(ctx, RegisterInput{
		Username: username,
		Password: password,
		Role:     user.RoleAdmin,
	}, "bootstrap")
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("account", u.Username).Msg("bootstrap admin created")
	return u, nil
}

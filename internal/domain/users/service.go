package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/Togather-Foundation/ewm/internal/api/pagination"
	"github.com/Togather-Foundation/ewm/internal/audit"
	"github.com/Togather-Foundation/ewm/internal/domain/errs"
	"github.com/Togather-Foundation/ewm/internal/domain/ids"
	"github.com/rs/zerolog"
)

// Service handles user management operations
type Service struct {
	repo        Repository
	auditLogger *audit.Logger
	logger      zerolog.Logger
	newID       func() string
}

// NewService creates a new user service instance
func NewService(repo Repository, auditLogger *audit.Logger, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		auditLogger: auditLogger,
		logger:      logger.With().Str("component", "users").Logger(),
		newID:       ids.MustULID,
	}
}

// Create registers a user. Emails are compared case-insensitively.
func (s *Service) Create(ctx context.Context, params NewUser) (User, error) {
	user := User{
		ID:    s.newID(),
		Name:  strings.TrimSpace(params.Name),
		Email: strings.ToLower(strings.TrimSpace(params.Email)),
	}
	if user.Name == "" {
		return User{}, errs.ValidationError{Field: "name", Message: "must not be blank"}
	}
	if user.Email == "" {
		return User{}, errs.ValidationError{Field: "email", Message: "must not be blank"}
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Msg("user created")
	s.auditLogger.LogSuccess(ctx, "admin.user.create", "admin", "user", user.ID, map[string]string{"email": user.Email})
	return user, nil
}

// Get returns the user with the given id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// Exists reports an error wrapping errs.ErrNotFound when id is unknown.
func (s *Service) Exists(ctx context.Context, id string) error {
	_, err := s.Get(ctx, id)
	return err
}

// List returns users in creation order, restricted to ids when non-empty.
func (s *Service) List(ctx context.Context, ids []string, page pagination.Page) ([]User, error) {
	users, err := s.repo.List(ctx, ids, page)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

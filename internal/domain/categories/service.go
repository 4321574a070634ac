package categories

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

// Category groups events for browsing.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Repository persists categories. Create returns an error wrapping
// errs.ErrConflict for a duplicate name.
type Repository interface {
	Create(ctx context.Context, category Category) error
	Get(ctx context.Context, id string) (Category, error)
	List(ctx context.Context, page pagination.Page) ([]Category, error)
}

type Service struct {
	repo        Repository
	auditLogger *audit.Logger
	logger      zerolog.Logger
	newID       func() string
}

func NewService(repo Repository, auditLogger *audit.Logger, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		auditLogger: auditLogger,
		logger:      logger.With().Str("component", "categories").Logger(),
		newID:       ids.MustULID,
	}
}

func (s *Service) Create(ctx context.Context, name string) (Category, error) {
	category := Category{ID: s.newID(), Name: strings.TrimSpace(name)}
	if category.Name == "" {
		return Category{}, errs.ValidationError{Field: "name", Message: "must not be blank"}
	}
	if err := s.repo.Create(ctx, category); err != nil {
		return Category{}, fmt.Errorf("create category: %w", err)
	}
	s.logger.Info().Str("category_id", category.ID).Str("name", category.Name).Msg("category created")
	s.auditLogger.LogSuccess(ctx, "admin.category.create", "admin", "category", category.ID, map[string]string{"name": category.Name})
	return category, nil
}

func (s *Service) Get(ctx context.Context, id string) (Category, error) {
	category, err := s.repo.Get(ctx, id)
	if err != nil {
		return Category{}, fmt.Errorf("get category: %w", err)
	}
	return category, nil
}

func (s *Service) List(ctx context.Context, page pagination.Page) ([]Category, error) {
	categories, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

package stats

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// HitRepository stores hits and aggregates them. Aggregate returns one row
// per (app, uri) ordered by hit count descending.
type HitRepository interface {
	Save(ctx context.Context, hit Hit) (Hit, error)
	Aggregate(ctx context.Context, query Query) ([]ViewStats, error)
}

var _ Gateway = (*Service)(nil)

// Service is the stats service: it stores hits and answers view queries.
type Service struct {
	repo   HitRepository
	logger zerolog.Logger
}

func NewService(repo HitRepository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "stats").Logger(),
	}
}

// Save stores hit and returns it with its assigned id.
func (s *Service) Save(ctx context.Context, hit Hit) (Hit, error) {
	saved, err := s.repo.Save(ctx, hit)
	if err != nil {
		return Hit{}, fmt.Errorf("save hit: %w", err)
	}
	s.logger.Debug().Str("app", hit.App).Str("uri", hit.URI).Msg("hit saved")
	return saved, nil
}

// Stats aggregates hits in the query window.
func (s *Service) Stats(ctx context.Context, query Query) ([]ViewStats, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	query.URIs = cleanURIs(query.URIs)

	stats, err := s.repo.Aggregate(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("aggregate hits: %w", err)
	}
	if stats == nil {
		stats = []ViewStats{}
	}
	return stats, nil
}

// RecordHit lets the service stand in for a remote Gateway in a single process.
func (s *Service) RecordHit(ctx context.Context, hit Hit) error {
	_, err := s.Save(ctx, hit)
	return err
}

func (s *Service) QueryHits(ctx context.Context, query Query) ([]ViewStats, error) {
	return s.Stats(ctx, query)
}

func cleanURIs(uris []string) []string {
	out := make([]string, 0, len(uris))
	for _, uri := range uris {
		for _, part := range strings.Split(uri, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

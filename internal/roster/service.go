package roster

import (
	"context"
	"fmt"

	"github.com/zaakiraza/khd-adminPanel-sub000/internal/backendapi"
)

// Fetcher loads the authoritative roster from the backend API.
type Fetcher interface {
	FetchRoster(ctx context.Context, classID string) ([]backendapi.Student, error)
}

// Service is a fetch-through roster source: cache hit wins, misses go to the
// backend and populate the cache.
type Service struct {
	fetcher Fetcher
	cache   Cache
}

// NewService creates a roster service over a backend fetcher and a cache.
func NewService(fetcher Fetcher, cache Cache) *Service {
	return &Service{fetcher: fetcher, cache: cache}
}

// Roster returns the enrolled students for a class, from cache when fresh.
func (s *Service) Roster(ctx context.Context, classID string) ([]backendapi.Student, error) {
	if students, ok := s.cache.Get(ctx, classID); ok {
		return students, nil
	}
	return s.Refresh(ctx, classID)
}

// Refresh bypasses the cache, fetches from the backend and repopulates.
func (s *Service) Refresh(ctx context.Context, classID string) ([]backendapi.Student, error) {
	students, err := s.fetcher.FetchRoster(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("fetch roster: %w", err)
	}
	s.cache.Set(ctx, classID, students)
	return students, nil
}

// Invalidate drops the cached roster for a class.
func (s *Service) Invalidate(ctx context.Context, classID string) {
	s.cache.Invalidate(ctx, classID)
}

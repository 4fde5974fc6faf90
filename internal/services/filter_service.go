package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"eagletask/internal/models"
	"eagletask/internal/repositories"
)

// FilterService manages an account's saved task-filter phrases.
type FilterService interface {
	ListFilters(ctx context.Context, owner int64) ([]models.Filter, error)
	CreateFilter(ctx context.Context, owner int64, phrase string) (*models.Filter, error)
	DeleteFilter(ctx context.Context, owner int64, phrase string) error
}

type filterService struct {
	repo repositories.FilterRepository
}

func NewFilterService(repo repositories.FilterRepository) FilterService {
	return &filterService{repo: repo}
}

func (s *filterService) ListFilters(ctx context.Context, owner int64) ([]models.Filter, error) {
	return s.repo.ListByOwner(ctx, owner)
}

func (s *filterService) CreateFilter(ctx context.Context, owner int64, phrase string) (*models.Filter, error) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" || len(phrase) > models.MaxFilterLength {
		return nil, fmt.Errorf("filter must be 1 to %d characters", models.MaxFilterLength)
	}

	filter := &models.Filter{Owner: owner, Filter: phrase}
	if err := s.repo.Create(ctx, filter); err != nil {
		return nil, err
	}
	log.Printf("[filter][create][ok] owner=%d id=%d", owner, filter.ID)
	return filter, nil
}

func (s *filterService) DeleteFilter(ctx context.Context, owner int64, phrase string) error {
	deleted, err := s.repo.DeleteByPhrase(ctx, owner, phrase)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	log.Printf("[filter][delete][ok] owner=%d", owner)
	return nil
}

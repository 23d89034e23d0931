package service

import (
	"context"
	"fmt"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

const filtersCacheKey = "filters:options"

// FilterService builds the option lists of the shop filter panel
type FilterService struct {
	store  TaxonomyStore
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewFilterService creates a filter service. A nil store serves the fallback options.
func NewFilterService(store TaxonomyStore, cache Cache, ttl time.Duration) *FilterService {
	return &FilterService{
		store:  store,
		cache:  cache,
		ttl:    ttl,
		logger: util.GetLogger(),
	}
}

// Options returns categories and brands from the store plus the fixed option
// groups. When the store is unavailable the static fallback lists are returned.
func (s *FilterService) Options(ctx context.Context) models.FilterOptions {
	ctx, span := util.StartSpan(ctx, "FilterService.Options")
	defer span.End()

	if s.store == nil {
		return models.FallbackFilterOptions()
	}

	var opts models.FilterOptions
	if s.cache != nil {
		hit, err := s.cache.GetJSON(ctx, filtersCacheKey, &opts)
		if err != nil {
			s.logger.Warn("Filter cache read failed", zap.Error(err))
		}
		if hit {
			util.CacheRequestsTotal.WithLabelValues("filters", "hit").Inc()
			return opts
		}
		util.CacheRequestsTotal.WithLabelValues("filters", "miss").Inc()
	}

	opts, err := s.load(ctx)
	if err != nil {
		util.RecordError(span, err)
		s.logger.Error("Failed to load filter options, serving fallback", zap.Error(err))
		return models.FallbackFilterOptions()
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, filtersCacheKey, opts, s.ttl); err != nil {
			s.logger.Warn("Filter cache write failed", zap.Error(err))
		}
	}
	return opts
}

func (s *FilterService) load(ctx context.Context) (models.FilterOptions, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return models.FilterOptions{}, fmt.Errorf("failed to list categories: %w", err)
	}
	brands, err := s.store.ListBrands(ctx)
	if err != nil {
		return models.FilterOptions{}, fmt.Errorf("failed to list brands: %w", err)
	}

	opts := models.FilterOptions{
		Categories:  make([]models.FilterOption, 0, len(categories)),
		Brands:      make([]models.FilterOption, 0, len(brands)),
		Genders:     models.GenderOptions,
		Straps:      models.StrapTypeOptions,
		Accessories: models.AccessoryOptions,
		Services:    models.ServiceOptions,
	}
	for _, c := range categories {
		opts.Categories = append(opts.Categories, models.FilterOption{ID: c.ID, Name: c.Name, Slug: c.Slug})
	}
	for _, b := range brands {
		opts.Brands = append(opts.Brands, models.FilterOption{ID: b.ID, Name: b.Name, Slug: b.Slug})
	}
	return opts, nil
}

// Invalidate drops the cached option lists
func (s *FilterService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, filtersCacheKey)
}

package service

import (
	"context"
	"fmt"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Enricher joins products with their thumbnail, category name and brand name
type Enricher struct {
	store  EnrichmentStore
	logger *zap.Logger
}

func NewEnricher(store EnrichmentStore) *Enricher {
	return &Enricher{
		store:  store,
		logger: util.GetLogger(),
	}
}

// Enrich runs one batched lookup per field for the whole slice. A failed lookup
// leaves that field at its default for every product.
func (e *Enricher) Enrich(ctx context.Context, products []models.Product) []models.EnrichedProduct {
	out := make([]models.EnrichedProduct, 0, len(products))
	if len(products) == 0 {
		return out
	}

	ctx, span := util.StartSpan(ctx, "Enricher.Enrich")
	defer span.End()

	productIDs := make([]string, 0, len(products))
	categoryIDs := make([]string, 0, len(products))
	var brandIDs []string
	seenCategory := map[string]bool{}
	seenBrand := map[string]bool{}
	for _, p := range products {
		productIDs = append(productIDs, p.ID)
		if p.CategoryID != "" && !seenCategory[p.CategoryID] {
			seenCategory[p.CategoryID] = true
			categoryIDs = append(categoryIDs, p.CategoryID)
		}
		if p.BrandID != nil && *p.BrandID != "" && !seenBrand[*p.BrandID] {
			seenBrand[*p.BrandID] = true
			brandIDs = append(brandIDs, *p.BrandID)
		}
	}

	var images, categories, brands map[string]string
	var g errgroup.Group
	g.Go(func() error {
		m, err := e.store.FirstImageURLs(ctx, productIDs)
		if err != nil {
			util.EnrichmentLookupErrorsTotal.WithLabelValues("image").Inc()
			return fmt.Errorf("image lookup: %w", err)
		}
		images = m
		return nil
	})
	g.Go(func() error {
		m, err := e.store.CategoryNames(ctx, categoryIDs)
		if err != nil {
			util.EnrichmentLookupErrorsTotal.WithLabelValues("category").Inc()
			return fmt.Errorf("category lookup: %w", err)
		}
		categories = m
		return nil
	})
	if len(brandIDs) > 0 {
		g.Go(func() error {
			m, err := e.store.BrandNames(ctx, brandIDs)
			if err != nil {
				util.EnrichmentLookupErrorsTotal.WithLabelValues("brand").Inc()
				return fmt.Errorf("brand lookup: %w", err)
			}
			brands = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.logger.Error("Enrichment degraded to defaults", zap.Error(err), zap.Int("products", len(products)))
	}

	for _, p := range products {
		out = append(out, enrichOne(p, images, categories, brands))
	}
	return out
}

// Thumbnails maps each product id to its first image, or the placeholder
func (e *Enricher) Thumbnails(ctx context.Context, productIDs []string) map[string]string {
	images, err := e.store.FirstImageURLs(ctx, productIDs)
	if err != nil {
		util.EnrichmentLookupErrorsTotal.WithLabelValues("image").Inc()
		e.logger.Error("Thumbnail lookup failed, using placeholder", zap.Error(err))
	}

	out := make(map[string]string, len(productIDs))
	for _, id := range productIDs {
		out[id] = models.PlaceholderImage
		if url, ok := images[id]; ok && url != "" {
			out[id] = url
		}
	}
	return out
}

// enrichOne applies the display defaults. Reading a nil map is safe.
func enrichOne(p models.Product, images, categories, brands map[string]string) models.EnrichedProduct {
	ep := models.EnrichedProduct{
		Product:      p,
		ImageURL:     models.PlaceholderImage,
		CategoryName: models.UnknownCategory,
	}
	if url, ok := images[p.ID]; ok && url != "" {
		ep.ImageURL = url
	}
	if name, ok := categories[p.CategoryID]; ok {
		ep.CategoryName = name
	}
	if p.BrandID != nil {
		if name, ok := brands[*p.BrandID]; ok {
			ep.BrandName = &name
		}
	}
	return ep
}

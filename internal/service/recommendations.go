package service

import (
	"context"

	"storefront-service/internal/models"

	"go.uber.org/zap"
)

// recommendations picks up to four products of the same brand and up to four of
// the same gender, topping each list up from any other product. The lists never
// overlap each other or contain the anchor.
func (s *CatalogService) recommendations(ctx context.Context, anchor *models.Product) (similar, suggested []models.Product) {
	exclude := []string{anchor.ID}

	if anchor.BrandID != nil && *anchor.BrandID != "" {
		similar = s.related(ctx, models.RelatedQuery{BrandID: *anchor.BrandID, ExcludeIDs: exclude, Limit: relatedListSize})
	}
	exclude = appendIDs(exclude, similar)
	if len(similar) < relatedListSize {
		topUp := s.related(ctx, models.RelatedQuery{ExcludeIDs: exclude, Limit: relatedListSize - len(similar)})
		similar = append(similar, topUp...)
		exclude = appendIDs(exclude, topUp)
	}

	if anchor.Gender != "" {
		suggested = s.related(ctx, models.RelatedQuery{Gender: anchor.Gender, ExcludeIDs: exclude, Limit: relatedListSize})
	}
	exclude = appendIDs(exclude, suggested)
	if len(suggested) < relatedListSize {
		suggested = append(suggested, s.related(ctx, models.RelatedQuery{ExcludeIDs: exclude, Limit: relatedListSize - len(suggested)})...)
	}

	return similar, suggested
}

// related runs one candidate query; failures are logged and yield no candidates
func (s *CatalogService) related(ctx context.Context, q models.RelatedQuery) []models.Product {
	products, err := s.store.ListRelatedProducts(ctx, q)
	if err != nil {
		s.logger.Error("Failed to load related products",
			zap.Error(err),
			zap.String("brand_id", q.BrandID),
			zap.String("gender", q.Gender))
		return nil
	}
	return products
}

func appendIDs(ids []string, products []models.Product) []string {
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	return ids
}

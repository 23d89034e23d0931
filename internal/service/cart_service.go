package service

import (
	"context"
	"fmt"
	"strings"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// CartService manages the signed-in user's cart
type CartService struct {
	store    CartStore
	enricher *Enricher
	logger   *zap.Logger
}

func NewCartService(store CartStore, enricher *Enricher) *CartService {
	return &CartService{
		store:    store,
		enricher: enricher,
		logger:   util.GetLogger(),
	}
}

// GetCart returns the cart lines with thumbnails and a total computed from live prices
func (s *CartService) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.GetCart")
	defer span.End()

	if userID == "" {
		return nil, ErrUnauthenticated
	}

	lines, err := s.store.ListCartLines(ctx, userID)
	if err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to list cart: %w", err))
	}

	s.attachImages(ctx, lines)

	count := 0
	for _, l := range lines {
		count += l.Quantity
	}
	return &models.Cart{Items: lines, Total: models.CartTotal(lines), Count: count}, nil
}

func (s *CartService) attachImages(ctx context.Context, lines []models.CartLine) {
	if len(lines) == 0 {
		return
	}

	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	thumbs := s.enricher.Thumbnails(ctx, ids)
	for i := range lines {
		lines[i].ImageURL = thumbs[lines[i].ProductID]
	}
}

// AddItem puts one unit of the product in the cart, incrementing an existing line
func (s *CartService) AddItem(ctx context.Context, userID, productID string) (*models.CartItem, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem")
	defer span.End()

	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if strings.TrimSpace(productID) == "" {
		return nil, fmt.Errorf("%w: product_id is required", ErrInvalidInput)
	}

	item, err := s.store.AddCartItem(ctx, userID, productID)
	if err != nil {
		return nil, util.RecordError(span, translate(fmt.Errorf("failed to add to cart: %w", err)))
	}

	util.CartOperationsTotal.WithLabelValues("add").Inc()
	s.logger.Info("Cart item added",
		zap.String("user_id", userID),
		zap.String("product_id", productID),
		zap.Int("quantity", item.Quantity))
	return item, nil
}

// UpdateQuantity sets a line's quantity; zero or less removes the line
func (s *CartService) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) error {
	ctx, span := util.StartSpan(ctx, "CartService.UpdateQuantity")
	defer span.End()

	if userID == "" {
		return ErrUnauthenticated
	}

	op := "update"
	if quantity <= 0 {
		op = "remove"
	}

	if err := s.store.SetCartItemQuantity(ctx, userID, itemID, quantity); err != nil {
		return util.RecordError(span, translate(fmt.Errorf("failed to update cart item: %w", err)))
	}

	util.CartOperationsTotal.WithLabelValues(op).Inc()
	return nil
}

// RemoveItem deletes a line from the cart
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) error {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveItem")
	defer span.End()

	if userID == "" {
		return ErrUnauthenticated
	}

	if err := s.store.DeleteCartItem(ctx, userID, itemID); err != nil {
		return util.RecordError(span, translate(fmt.Errorf("failed to remove cart item: %w", err)))
	}

	util.CartOperationsTotal.WithLabelValues("remove").Inc()
	return nil
}

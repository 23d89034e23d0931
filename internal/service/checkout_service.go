package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

const checkoutLockTTL = 30 * time.Second

// CheckoutService turns a user's cart into a pending bank-transfer transaction
type CheckoutService struct {
	store     CheckoutStore
	locker    Locker
	publisher EventPublisher
	bank      models.BankInfo
	logger    *zap.Logger
}

func NewCheckoutService(store CheckoutStore, locker Locker, publisher EventPublisher, bank models.BankInfo) *CheckoutService {
	return &CheckoutService{
		store:     store,
		locker:    locker,
		publisher: publisher,
		bank:      bank,
		logger:    util.GetLogger(),
	}
}

// CheckoutRequest is the checkout form. ConfirmTransfer gates submission and is not stored.
type CheckoutRequest struct {
	ShippingAddress models.ShippingAddress `json:"shipping_address" binding:"required"`
	Notes           string                 `json:"notes"`
	ConfirmTransfer bool                   `json:"confirm_transfer"`
	IdempotencyKey  string                 `json:"-"`
}

// CheckoutResult is the created transaction; Replayed is set when an earlier
// checkout with the same idempotency key is returned instead.
type CheckoutResult struct {
	Transaction *models.Transaction `json:"transaction"`
	Replayed    bool                `json:"replayed"`
}

// BankInfo returns the transfer details shown on the checkout page
func (s *CheckoutService) BankInfo() models.BankInfo {
	return s.bank
}

// Checkout snapshots the cart into a pending transaction and clears the cart atomically
func (s *CheckoutService) Checkout(ctx context.Context, userID string, req *CheckoutRequest) (*CheckoutResult, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Checkout")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	if userID == "" {
		util.CheckoutFailedTotal.WithLabelValues("unauthenticated").Inc()
		return nil, ErrUnauthenticated
	}
	if !req.ConfirmTransfer {
		util.CheckoutFailedTotal.WithLabelValues("transfer_not_confirmed").Inc()
		return nil, ErrTransferNotConfirmed
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		existing, err := s.replay(ctx, userID, key)
		if err != nil {
			return nil, util.RecordError(span, err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	release, err := s.lock(ctx, userID)
	if err != nil {
		util.CheckoutFailedTotal.WithLabelValues("in_progress").Inc()
		return nil, err
	}
	defer release()

	var keyPtr *string
	if key != "" {
		keyPtr = &key
	}

	t, err := s.store.CheckoutCart(ctx, userID, func(lines []models.CartLine) (*models.Transaction, error) {
		if len(lines) == 0 {
			return nil, ErrEmptyCart
		}
		return &models.Transaction{
			UserID:          userID,
			TotalAmount:     models.CartTotal(lines),
			Status:          models.StatusPending,
			Items:           snapshotItems(lines),
			ShippingAddress: req.ShippingAddress,
			BankInfo:        s.bank,
			Notes:           strings.TrimSpace(req.Notes),
			IdempotencyKey:  keyPtr,
		}, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyCart):
			util.CheckoutFailedTotal.WithLabelValues("empty_cart").Inc()
			return nil, err
		case key != "" && errors.Is(err, store.ErrConflict):
			// a concurrent request with the same key won
			if existing, rerr := s.replay(ctx, userID, key); rerr == nil && existing != nil {
				return existing, nil
			}
		}
		util.CheckoutFailedTotal.WithLabelValues("db_error").Inc()
		return nil, util.RecordError(span, fmt.Errorf("failed to checkout: %w", translate(err)))
	}

	util.TransactionsCreatedTotal.Inc()
	util.CheckoutAmount.Observe(float64(t.TotalAmount))
	s.logger.Info("Transaction created",
		zap.String("transaction_id", t.ID),
		zap.String("user_id", userID),
		zap.Int64("total_amount", t.TotalAmount),
		zap.Int("items", len(t.Items)))

	s.publishCreated(ctx, t)

	return &CheckoutResult{Transaction: t}, nil
}

func (s *CheckoutService) replay(ctx context.Context, userID, key string) (*CheckoutResult, error) {
	existing, err := s.store.GetTransactionByIdempotencyKey(ctx, userID, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}

	s.logger.Info("Duplicate checkout request detected",
		zap.String("idempotency_key", key),
		zap.String("transaction_id", existing.ID))
	return &CheckoutResult{Transaction: existing, Replayed: true}, nil
}

// lock serializes checkouts per user. When the lock service is unreachable the
// checkout proceeds; the database transaction still keeps it atomic.
func (s *CheckoutService) lock(ctx context.Context, userID string) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}

	lockKey := "checkout:" + userID
	token, ok, err := s.locker.AcquireLock(ctx, lockKey, checkoutLockTTL)
	if err != nil {
		s.logger.Warn("Checkout lock unavailable", zap.Error(err), zap.String("user_id", userID))
		return noop, nil
	}
	if !ok {
		return nil, ErrCheckoutInProgress
	}

	return func() {
		if err := s.locker.ReleaseLock(context.Background(), lockKey, token); err != nil {
			s.logger.Warn("Failed to release checkout lock", zap.Error(err), zap.String("user_id", userID))
		}
	}, nil
}

func (s *CheckoutService) publishCreated(ctx context.Context, t *models.Transaction) {
	if s.publisher == nil {
		return
	}

	itemCount := 0
	for _, it := range t.Items {
		itemCount += it.Quantity
	}

	event := &models.TransactionCreatedEvent{
		BaseEvent:     models.NewBaseEvent(models.EventTypeTransactionCreated),
		TransactionID: t.ID,
		UserID:        t.UserID,
		TotalAmount:   t.TotalAmount,
		ItemCount:     itemCount,
		Status:        t.Status,
		CustomerName:  t.ShippingAddress.FullName,
	}
	if err := s.publisher.PublishTransactionCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish TransactionCreated event", zap.Error(err), zap.String("transaction_id", t.ID))
	}
}

// snapshotItems freezes the cart lines at their current names and prices
func snapshotItems(lines []models.CartLine) models.TransactionItems {
	items := make(models.TransactionItems, 0, len(lines))
	for _, l := range lines {
		items = append(items, models.TransactionItem{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			Price:       l.Price,
		})
	}
	return items
}

// ListOrders returns the user's transactions, newest first
func (s *CheckoutService) ListOrders(ctx context.Context, userID string) ([]models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.ListOrders")
	defer span.End()

	if userID == "" {
		return nil, ErrUnauthenticated
	}

	txs, err := s.store.ListTransactionsByUser(ctx, userID)
	if err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to list orders: %w", err))
	}
	return txs, nil
}

// GetOrder returns one of the user's transactions. Other users' transactions are not found.
func (s *CheckoutService) GetOrder(ctx context.Context, userID, id string) (*models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.GetOrder")
	defer span.End()

	if userID == "" {
		return nil, ErrUnauthenticated
	}

	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, util.RecordError(span, translate(fmt.Errorf("failed to get order: %w", err)))
	}
	if t.UserID != userID {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return t, nil
}

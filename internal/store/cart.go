package store

import (
	"context"
	"fmt"

	"storefront-service/internal/models"
)

const cartLinesQuery = `
	SELECT c.id, c.product_id, c.quantity,
		p.name AS product_name, p.slug AS product_slug, p.price,
		COALESCE(p.gender, '') AS gender, COALESCE(p.strap_type, '') AS strap_type,
		COALESCE(cat.name, '') AS category_name, COALESCE(b.name, '') AS brand_name
	FROM cart_items c
	JOIN products p ON p.id = c.product_id
	LEFT JOIN categories cat ON cat.id = p.category_id
	LEFT JOIN brands b ON b.id = p.brand_id
	WHERE c.user_id = $1
	ORDER BY c.created_at, c.id`

// AddCartItem inserts the product with quantity 1 or increments an existing line
// in a single statement. Returns ErrNotFound when the product does not exist.
func (s *Store) AddCartItem(ctx context.Context, userID, productID string) (*models.CartItem, error) {
	var item models.CartItem
	err := s.db.GetContext(ctx, &item, `
		INSERT INTO cart_items (user_id, product_id, quantity)
		SELECT $1, p.id, 1 FROM products p WHERE p.id = $2
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + 1
		RETURNING id, user_id, product_id, quantity, created_at`,
		userID, productID)
	if err != nil {
		return nil, notFound(err, "product", productID)
	}
	return &item, nil
}

// SetCartItemQuantity sets the quantity of one of the user's cart lines.
// A quantity of zero or less removes the line.
func (s *Store) SetCartItemQuantity(ctx context.Context, userID, itemID string, quantity int) error {
	if quantity <= 0 {
		return s.DeleteCartItem(ctx, userID, itemID)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE cart_items SET quantity = $1 WHERE id = $2 AND user_id = $3",
		quantity, itemID, userID)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	return expectRow(res, "cart item", itemID)
}

// DeleteCartItem removes one of the user's cart lines
func (s *Store) DeleteCartItem(ctx context.Context, userID, itemID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE id = $1 AND user_id = $2", itemID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	return expectRow(res, "cart item", itemID)
}

// ListCartLines returns the user's cart joined with live product data
func (s *Store) ListCartLines(ctx context.Context, userID string) ([]models.CartLine, error) {
	lines := []models.CartLine{}
	err := s.db.SelectContext(ctx, &lines, cartLinesQuery, userID)
	return lines, err
}

// CheckoutCart locks the user's cart, passes its lines to build, stores the
// resulting transaction and clears the cart, all in one database transaction.
// Nothing is written when build returns an error.
func (s *Store) CheckoutCart(ctx context.Context, userID string, build func([]models.CartLine) (*models.Transaction, error)) (*models.Transaction, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	lines := []models.CartLine{}
	if err := tx.SelectContext(ctx, &lines, cartLinesQuery+" FOR UPDATE OF c", userID); err != nil {
		return nil, fmt.Errorf("failed to lock cart: %w", err)
	}

	t, err := build(lines)
	if err != nil {
		return nil, err
	}

	err = tx.GetContext(ctx, t, `
		INSERT INTO transactions (user_id, total_amount, status, items, shipping_address, bank_info, notes, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		t.UserID, t.TotalAmount, t.Status, t.Items, t.ShippingAddress, t.BankInfo, t.Notes, t.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", uniqueViolation(err))
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID); err != nil {
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit checkout: %w", err)
	}
	return t, nil
}

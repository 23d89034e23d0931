package service

import (
	"errors"
	"fmt"

	"storefront-service/internal/store"
)

var (
	ErrNotFound                = errors.New("not found")
	ErrUnauthenticated         = errors.New("authentication required")
	ErrForbidden               = errors.New("admin access required")
	ErrEmptyCart               = errors.New("cart is empty")
	ErrTransferNotConfirmed    = errors.New("bank transfer has not been confirmed")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrInvalidInput            = errors.New("invalid input")
	ErrCheckoutInProgress      = errors.New("another checkout is in progress")
	ErrConflict                = errors.New("conflict")
)

// translate maps store sentinels onto service sentinels
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	default:
		return err
	}
}

package api

import (
	"net/http"
	"strings"

	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
)

type addCartItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (h *Handler) getCart(c *gin.Context) {
	cart, err := h.cart.GetCart(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err, "Failed to load cart")
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *Handler) addCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	item, err := h.cart.AddItem(c.Request.Context(), currentUser(c), req.ProductID)
	if err != nil {
		respondError(c, err, "Failed to add to cart")
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) updateCartItem(c *gin.Context) {
	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.cart.UpdateQuantity(c.Request.Context(), currentUser(c), c.Param("id"), *req.Quantity); err != nil {
		respondError(c, err, "Failed to update cart item")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) removeCartItem(c *gin.Context) {
	if err := h.cart.RemoveItem(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		respondError(c, err, "Failed to remove cart item")
		return
	}
	c.Status(http.StatusNoContent)
}

// checkoutInfo returns the cart to be paid with the bank transfer details
func (h *Handler) checkoutInfo(c *gin.Context) {
	cart, err := h.cart.GetCart(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err, "Failed to load cart")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cart":      cart,
		"bank_info": h.checkout.BankInfo(),
	})
}

func (h *Handler) submitCheckout(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	req.IdempotencyKey = strings.TrimSpace(c.GetHeader("Idempotency-Key"))

	res, err := h.checkout.Checkout(c.Request.Context(), currentUser(c), &req)
	if err != nil {
		respondError(c, err, "Checkout failed")
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.checkout.ListOrders(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err, "Failed to list orders")
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.checkout.GetOrder(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "Order not found")
		return
	}
	c.JSON(http.StatusOK, order)
}

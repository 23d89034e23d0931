package api

import (
	"net/http"
	"strconv"
	"strings"

	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
)

// queryList collects a filter dimension given as repeated or comma-separated values
func queryList(c *gin.Context, keys ...string) []string {
	var lists [][]string
	for _, key := range keys {
		for _, raw := range c.QueryArray(key) {
			lists = append(lists, strings.Split(raw, ","))
		}
	}
	return service.MergeDimensions(lists...)
}

func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}

func queryBool(c *gin.Context, key string) bool {
	switch strings.ToLower(c.Query(key)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// listProducts serves the filtered product grid. strap and accessory toggles
// are folded into the strapOrAccessory dimension.
func (h *Handler) listProducts(c *gin.Context) {
	req := service.ProductListRequest{
		Categories:       queryList(c, "categories"),
		Brands:           queryList(c, "brands"),
		Genders:          queryList(c, "gender"),
		StrapOrAccessory: queryList(c, "strapOrAccessory", "strap", "accessory"),
		Page:             queryInt(c, "page"),
		PageSize:         queryInt(c, "pageSize"),
		ShopContext:      queryBool(c, "shop"),
	}

	c.JSON(http.StatusOK, h.catalog.ListProducts(c.Request.Context(), req))
}

func (h *Handler) getProduct(c *gin.Context) {
	detail, err := h.catalog.ProductDetail(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err, "Product not found")
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) home(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.Home(c.Request.Context()))
}

func (h *Handler) filterOptions(c *gin.Context) {
	c.JSON(http.StatusOK, h.filters.Options(c.Request.Context()))
}

func (h *Handler) landing(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := h.catalog.Landing(c.Request.Context(), kind, c.Param("slug"), queryInt(c, "page"), queryInt(c, "pageSize"))
		if err != nil {
			respondError(c, err, "Page not found")
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

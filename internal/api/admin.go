package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// maxImageSize bounds a single product image upload
	maxImageSize = 10 << 20

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) adminListProducts(c *gin.Context) {
	page, err := h.admin.ListProducts(c.Request.Context(), queryInt(c, "page"), queryInt(c, "pageSize"))
	if err != nil {
		respondError(c, err, "Failed to list products")
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) adminGetProduct(c *gin.Context) {
	product, images, err := h.admin.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Product not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product, "images": images})
}

func (h *Handler) adminCreateProduct(c *gin.Context) {
	var in service.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}

	product, err := h.admin.CreateProduct(c.Request.Context(), in)
	if err != nil {
		respondError(c, err, "Failed to create product")
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) adminUpdateProduct(c *gin.Context) {
	var in service.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}

	product, err := h.admin.UpdateProduct(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, err, "Failed to update product")
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) adminDeleteProduct(c *gin.Context) {
	if err := h.admin.DeleteProduct(c.Request.Context(), c.Param("id"), queryBool(c, "confirm")); err != nil {
		respondError(c, err, "Failed to delete product")
		return
	}
	c.Status(http.StatusNoContent)
}

// adminUploadImage accepts a multipart "file" field and an optional "alt_text"
func (h *Handler) adminUploadImage(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		bindError(c, err)
		return
	}
	if fileHeader.Size > maxImageSize {
		respondError(c, fmt.Errorf("%w: image exceeds %d bytes", service.ErrInvalidInput, maxImageSize), "Image too large")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, err, "Failed to read upload")
		return
	}
	defer file.Close()

	img, err := h.admin.UploadImage(c.Request.Context(), c.Param("id"), service.ImageUpload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		AltText:     c.PostForm("alt_text"),
		Body:        file,
	})
	if err != nil {
		respondError(c, err, "Failed to upload image")
		return
	}
	c.JSON(http.StatusCreated, img)
}

func (h *Handler) adminDeleteImage(c *gin.Context) {
	if err := h.admin.DeleteImage(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete image")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) adminListCategories(c *gin.Context) {
	categories, err := h.admin.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list categories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// adminSaveCategory creates on POST and updates on PUT /:id
func (h *Handler) adminSaveCategory(c *gin.Context) {
	var in service.TaxonomyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}

	id := c.Param("id")
	category, err := h.admin.SaveCategory(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err, "Failed to save category")
		return
	}
	c.JSON(savedStatus(id), category)
}

func (h *Handler) adminDeleteCategory(c *gin.Context) {
	if err := h.admin.DeleteCategory(c.Request.Context(), c.Param("id"), queryBool(c, "confirm")); err != nil {
		respondError(c, err, "Failed to delete category")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) adminListBrands(c *gin.Context) {
	brands, err := h.admin.ListBrands(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list brands")
		return
	}
	c.JSON(http.StatusOK, gin.H{"brands": brands})
}

// adminSaveBrand creates on POST and updates on PUT /:id
func (h *Handler) adminSaveBrand(c *gin.Context) {
	var in service.TaxonomyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}

	id := c.Param("id")
	brand, err := h.admin.SaveBrand(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err, "Failed to save brand")
		return
	}
	c.JSON(savedStatus(id), brand)
}

func (h *Handler) adminDeleteBrand(c *gin.Context) {
	if err := h.admin.DeleteBrand(c.Request.Context(), c.Param("id"), queryBool(c, "confirm")); err != nil {
		respondError(c, err, "Failed to delete brand")
		return
	}
	c.Status(http.StatusNoContent)
}

func savedStatus(id string) int {
	if id == "" {
		return http.StatusCreated
	}
	return http.StatusOK
}

func (h *Handler) adminListTransactions(c *gin.Context) {
	txs, err := h.admin.ListTransactions(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list transactions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

func (h *Handler) adminGetTransaction(c *gin.Context) {
	tx, err := h.admin.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Transaction not found")
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (h *Handler) adminUpdateTransactionStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	tx, err := h.admin.UpdateTransactionStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err, "Failed to update transaction status")
		return
	}
	c.JSON(http.StatusOK, tx)
}

// adminExportTransactions sends every transaction as an xlsx download
func (h *Handler) adminExportTransactions(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.admin.ExportTransactions(c.Request.Context(), &buf); err != nil {
		h.logger.Error("Transaction export failed", zap.Error(err))
		respondError(c, err, "Failed to export transactions")
		return
	}

	filename := fmt.Sprintf("transactions-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Transfer-Encoding", "binary")
	c.Header("Expires", "0")
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// adminFeed upgrades to a websocket that receives live transaction events
func (h *Handler) adminFeed(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Live feed is not enabled"})
		return
	}
	if err := h.hub.ServeWS(c.Writer, c.Request); err != nil {
		h.logger.Debug("Feed connection ended", zap.Error(err))
	}
}

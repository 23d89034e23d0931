package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/slug"
	"storefront-service/internal/storage"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"github.com/tealeg/xlsx"
	"go.uber.org/zap"
)

// Invalidator drops a cached view after the data behind it changed
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// AdminService backs the back-office panels
type AdminService struct {
	store        AdminStore
	profiles     ProfileStore
	bucket       ImageBucket
	enricher     *Enricher
	publisher    EventPublisher
	invalidators []Invalidator
	logger       *zap.Logger
	now          func() time.Time
}

func NewAdminService(store AdminStore, profiles ProfileStore, bucket ImageBucket, publisher EventPublisher,
	invalidators ...Invalidator) *AdminService {
	return &AdminService{
		store:        store,
		profiles:     profiles,
		bucket:       bucket,
		enricher:     NewEnricher(store),
		publisher:    publisher,
		invalidators: invalidators,
		logger:       util.GetLogger(),
		now:          time.Now,
	}
}

// RequireAdmin returns ErrUnauthenticated for anonymous users and ErrForbidden
// for users whose profile lacks the admin flag.
func (s *AdminService) RequireAdmin(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	ok, err := s.profiles.IsAdmin(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// ProductInput is the product form. An empty Slug is generated from Name.
type ProductInput struct {
	Name          string `json:"name" binding:"required"`
	Description   string `json:"description"`
	Price         int64  `json:"price" binding:"gte=0"`
	Gender        string `json:"gender"`
	StrapType     string `json:"strap_type"`
	CategoryID    string `json:"category_id"`
	BrandID       string `json:"brand_id"`
	StockQuantity int    `json:"stock_quantity" binding:"gte=0"`
	Slug          string `json:"slug"`
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.Price < 0 || in.StockQuantity < 0 {
		return fmt.Errorf("%w: price and stock must not be negative", ErrInvalidInput)
	}
	if in.Gender != "" && !hasOption(models.GenderOptions, in.Gender) {
		return fmt.Errorf("%w: unknown gender %q", ErrInvalidInput, in.Gender)
	}
	if in.StrapType != "" && !hasOption(models.StrapTypeOptions, in.StrapType) && !hasOption(models.AccessoryOptions, in.StrapType) {
		return fmt.Errorf("%w: unknown strap type %q", ErrInvalidInput, in.StrapType)
	}
	return nil
}

func hasOption(opts []models.FilterOption, value string) bool {
	for _, o := range opts {
		if o.Value == value {
			return true
		}
	}
	return false
}

func (in ProductInput) apply(p *models.Product) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Price = in.Price
	p.Gender = in.Gender
	p.StrapType = in.StrapType
	p.CategoryID = in.CategoryID
	p.StockQuantity = in.StockQuantity
	p.BrandID = nil
	if in.BrandID != "" {
		brandID := in.BrandID
		p.BrandID = &brandID
	}
}

// ListProducts returns a newest-first page of all products, accessories included
func (s *AdminService) ListProducts(ctx context.Context, page, pageSize int) (*ProductPage, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.ListProducts")
	defer span.End()

	page, pageSize = NormalizePage(page, pageSize)
	products, total, err := s.store.ListProducts(ctx, models.ProductFilter{}, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to list products: %w", err))
	}
	return &ProductPage{
		Items:    s.enricher.Enrich(ctx, products),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// GetProduct returns one product with its images
func (s *AdminService) GetProduct(ctx context.Context, id string) (*models.Product, []models.ProductImage, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.GetProduct")
	defer span.End()

	p, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, nil, util.RecordError(span, translate(fmt.Errorf("failed to get product: %w", err)))
	}
	images, err := s.store.ListProductImages(ctx, id)
	if err != nil {
		return nil, nil, util.RecordError(span, fmt.Errorf("failed to list product images: %w", err))
	}
	return p, images, nil
}

// CreateProduct inserts a product under a unique slug
func (s *AdminService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.CreateProduct")
	defer span.End()

	if err := in.validate(); err != nil {
		return nil, err
	}

	p := &models.Product{ID: uuid.New().String()}
	in.apply(p)

	base := slug.Make(in.Slug)
	if base == "" {
		base = slug.ForProduct(p.Name, p.ID)
	}
	uniq, err := s.uniqueSlug(ctx, models.CatalogEntityProduct, base, p.ID)
	if err != nil {
		return nil, util.RecordError(span, err)
	}
	p.Slug = uniq

	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, util.RecordError(span, translate(err))
	}

	s.logger.Info("Product created", zap.String("product_id", p.ID), zap.String("slug", p.Slug))
	s.catalogChanged(ctx, models.CatalogEntityProduct, p.ID, models.CatalogActionCreated)
	return p, nil
}

// UpdateProduct overwrites a product. The slug is kept unless a new one is given.
func (s *AdminService) UpdateProduct(ctx context.Context, id string, in ProductInput) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.UpdateProduct")
	defer span.End()

	if err := in.validate(); err != nil {
		return nil, err
	}

	p, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, util.RecordError(span, translate(fmt.Errorf("failed to get product: %w", err)))
	}
	in.apply(p)

	base := slug.Make(in.Slug)
	if base == "" {
		base = p.Slug
	}
	if base == "" {
		base = slug.ForProduct(p.Name, p.ID)
	}
	uniq, err := s.uniqueSlug(ctx, models.CatalogEntityProduct, base, p.ID)
	if err != nil {
		return nil, util.RecordError(span, err)
	}
	p.Slug = uniq

	if err := s.store.UpdateProduct(ctx, p); err != nil {
		return nil, util.RecordError(span, translate(err))
	}

	s.catalogChanged(ctx, models.CatalogEntityProduct, p.ID, models.CatalogActionUpdated)
	return p, nil
}

// DeleteProduct removes a product and, best effort, its stored images
func (s *AdminService) DeleteProduct(ctx context.Context, id string, confirm bool) error {
	ctx, span := util.StartSpan(ctx, "AdminService.DeleteProduct")
	defer span.End()

	if !confirm {
		return fmt.Errorf("%w: deletion must be confirmed", ErrInvalidInput)
	}

	images, err := s.store.ListProductImages(ctx, id)
	if err != nil {
		s.logger.Warn("Failed to list images of deleted product", zap.Error(err), zap.String("product_id", id))
	}

	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return util.RecordError(span, translate(err))
	}

	for _, img := range images {
		s.removeObject(ctx, img.ImageURL)
	}

	s.logger.Info("Product deleted", zap.String("product_id", id), zap.Int("images", len(images)))
	s.catalogChanged(ctx, models.CatalogEntityProduct, id, models.CatalogActionDeleted)
	return nil
}

func (s *AdminService) uniqueSlug(ctx context.Context, entity, base, excludeID string) (string, error) {
	if base == "" {
		return "", fmt.Errorf("%w: name produces an empty slug", ErrInvalidInput)
	}
	out, err := slug.Unique(ctx, base, func(ctx context.Context, candidate string) (bool, error) {
		return s.store.SlugExists(ctx, entity, candidate, excludeID)
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate %s slug: %w", entity, err)
	}
	return out, nil
}

// ImageUpload is one uploaded image file
type ImageUpload struct {
	Filename    string
	ContentType string
	AltText     string
	Body        io.Reader
}

// UploadImage stores the file in the bucket and appends it to the product's images
func (s *AdminService) UploadImage(ctx context.Context, productID string, up ImageUpload) (*models.ProductImage, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.UploadImage")
	defer span.End()

	if s.bucket == nil {
		return nil, fmt.Errorf("image storage is not configured")
	}
	if _, err := s.store.GetProductByID(ctx, productID); err != nil {
		return nil, util.RecordError(span, translate(fmt.Errorf("failed to get product: %w", err)))
	}

	key, err := storage.ObjectKey(productID, up.Filename, s.now())
	if err != nil {
		util.ImageUploadsTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if err := s.bucket.Upload(ctx, key, up.ContentType, up.Body); err != nil {
		util.ImageUploadsTotal.WithLabelValues("failed").Inc()
		return nil, util.RecordError(span, fmt.Errorf("failed to upload image: %w", err))
	}

	order, err := s.store.NextImageOrder(ctx, productID)
	if err == nil {
		img := &models.ProductImage{
			ProductID:    productID,
			ImageURL:     s.bucket.PublicURL(key),
			DisplayOrder: order,
			AltText:      up.AltText,
		}
		if err = s.store.AddProductImage(ctx, img); err == nil {
			util.ImageUploadsTotal.WithLabelValues("stored").Inc()
			s.logger.Info("Product image uploaded",
				zap.String("product_id", productID),
				zap.String("key", key),
				zap.Int("display_order", order))
			s.catalogChanged(ctx, models.CatalogEntityProduct, productID, models.CatalogActionUpdated)
			return img, nil
		}
	}

	// the row was not written, so the object would be orphaned
	if rerr := s.bucket.Remove(ctx, key); rerr != nil {
		s.logger.Warn("Failed to remove orphaned image", zap.Error(rerr), zap.String("key", key))
	}
	util.ImageUploadsTotal.WithLabelValues("failed").Inc()
	return nil, util.RecordError(span, fmt.Errorf("failed to record image: %w", err))
}

// DeleteImage removes the image row, then its object
func (s *AdminService) DeleteImage(ctx context.Context, imageID string) error {
	ctx, span := util.StartSpan(ctx, "AdminService.DeleteImage")
	defer span.End()

	img, err := s.store.GetProductImage(ctx, imageID)
	if err != nil {
		return util.RecordError(span, translate(fmt.Errorf("failed to get image: %w", err)))
	}
	if err := s.store.DeleteProductImage(ctx, imageID); err != nil {
		return util.RecordError(span, translate(err))
	}

	s.removeObject(ctx, img.ImageURL)
	s.catalogChanged(ctx, models.CatalogEntityProduct, img.ProductID, models.CatalogActionUpdated)
	return nil
}

func (s *AdminService) removeObject(ctx context.Context, url string) {
	if s.bucket == nil {
		return
	}
	key, err := s.bucket.PathFromURL(url)
	if err != nil {
		s.logger.Warn("Image URL is outside the bucket", zap.String("url", url))
		return
	}
	if err := s.bucket.Remove(ctx, key); err != nil {
		s.logger.Warn("Failed to remove image object", zap.Error(err), zap.String("key", key))
	}
}

// TaxonomyInput is the category and brand form. An empty Slug is generated from Name.
type TaxonomyInput struct {
	Name            string `json:"name" binding:"required"`
	Slug            string `json:"slug"`
	Description     string `json:"description"`
	BannerURL       string `json:"banner_url"`
	MetaTitle       string `json:"meta_title"`
	MetaDescription string `json:"meta_description"`
}

func (s *AdminService) taxonomySlug(ctx context.Context, entity, id string, in TaxonomyInput) (string, error) {
	if strings.TrimSpace(in.Name) == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	base := slug.Make(in.Slug)
	if base == "" {
		base = slug.Make(in.Name)
	}
	return s.uniqueSlug(ctx, entity, base, id)
}

// ListCategories returns every category by name
func (s *AdminService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// SaveCategory creates the category when id is empty, else updates it
func (s *AdminService) SaveCategory(ctx context.Context, id string, in TaxonomyInput) (*models.Category, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.SaveCategory")
	defer span.End()

	sl, err := s.taxonomySlug(ctx, models.CatalogEntityCategory, id, in)
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	c := &models.Category{
		ID:              id,
		Name:            strings.TrimSpace(in.Name),
		Slug:            sl,
		Description:     in.Description,
		BannerURL:       in.BannerURL,
		MetaTitle:       in.MetaTitle,
		MetaDescription: in.MetaDescription,
	}

	action := models.CatalogActionUpdated
	if id == "" {
		action = models.CatalogActionCreated
		err = s.store.CreateCategory(ctx, c)
	} else {
		err = s.store.UpdateCategory(ctx, c)
	}
	if err != nil {
		return nil, util.RecordError(span, translate(err))
	}

	s.catalogChanged(ctx, models.CatalogEntityCategory, c.ID, action)
	return c, nil
}

// DeleteCategory removes a category once confirmed
func (s *AdminService) DeleteCategory(ctx context.Context, id string, confirm bool) error {
	return s.deleteTaxonomy(ctx, models.CatalogEntityCategory, id, confirm, s.store.DeleteCategory)
}

// ListBrands returns every brand by name
func (s *AdminService) ListBrands(ctx context.Context) ([]models.Brand, error) {
	brands, err := s.store.ListBrands(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	return brands, nil
}

// SaveBrand creates the brand when id is empty, else updates it
func (s *AdminService) SaveBrand(ctx context.Context, id string, in TaxonomyInput) (*models.Brand, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.SaveBrand")
	defer span.End()

	sl, err := s.taxonomySlug(ctx, models.CatalogEntityBrand, id, in)
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	b := &models.Brand{
		ID:              id,
		Name:            strings.TrimSpace(in.Name),
		Slug:            sl,
		Description:     in.Description,
		BannerURL:       in.BannerURL,
		MetaTitle:       in.MetaTitle,
		MetaDescription: in.MetaDescription,
	}

	action := models.CatalogActionUpdated
	if id == "" {
		action = models.CatalogActionCreated
		err = s.store.CreateBrand(ctx, b)
	} else {
		err = s.store.UpdateBrand(ctx, b)
	}
	if err != nil {
		return nil, util.RecordError(span, translate(err))
	}

	s.catalogChanged(ctx, models.CatalogEntityBrand, b.ID, action)
	return b, nil
}

// DeleteBrand removes a brand once confirmed
func (s *AdminService) DeleteBrand(ctx context.Context, id string, confirm bool) error {
	return s.deleteTaxonomy(ctx, models.CatalogEntityBrand, id, confirm, s.store.DeleteBrand)
}

func (s *AdminService) deleteTaxonomy(ctx context.Context, entity, id string, confirm bool, del func(context.Context, string) error) error {
	ctx, span := util.StartSpan(ctx, "AdminService.DeleteTaxonomy")
	defer span.End()

	if !confirm {
		return fmt.Errorf("%w: deletion must be confirmed", ErrInvalidInput)
	}
	if err := del(ctx, id); err != nil {
		return util.RecordError(span, translate(err))
	}

	s.logger.Info("Catalog entry deleted", zap.String("entity", entity), zap.String("id", id))
	s.catalogChanged(ctx, entity, id, models.CatalogActionDeleted)
	return nil
}

// catalogChanged drops local caches and tells the other instances to do the same
func (s *AdminService) catalogChanged(ctx context.Context, entity, id, action string) {
	for _, inv := range s.invalidators {
		if err := inv.Invalidate(ctx); err != nil {
			s.logger.Warn("Cache invalidation failed", zap.Error(err), zap.String("entity", entity))
		}
	}

	if s.publisher == nil {
		return
	}
	event := &models.CatalogChangedEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypeCatalogChanged),
		Entity:    entity,
		EntityID:  id,
		Action:    action,
	}
	if err := s.publisher.PublishCatalogChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish CatalogChanged event", zap.Error(err), zap.String("entity_id", id))
	}
}

// AdminTransaction is a transaction with its display status
type AdminTransaction struct {
	models.Transaction
	DisplayStatus models.TransactionStatus `json:"display_status"`
	Tone          string                   `json:"tone"`
}

func adminView(t models.Transaction) AdminTransaction {
	return AdminTransaction{
		Transaction:   t,
		DisplayStatus: t.Status.Canonical(),
		Tone:          t.Status.Tone(),
	}
}

// ListTransactions returns pending first, then confirmed, then cancelled, newest first within each
func (s *AdminService) ListTransactions(ctx context.Context) ([]AdminTransaction, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.ListTransactions")
	defer span.End()

	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to list transactions: %w", err))
	}

	out := make([]AdminTransaction, 0, len(txs))
	for _, t := range txs {
		out = append(out, adminView(t))
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Status.Priority(), out[j].Status.Priority()
		if pi != pj {
			return pi < pj
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// GetTransaction returns one transaction with its display status
func (s *AdminService) GetTransaction(ctx context.Context, id string) (*AdminTransaction, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.GetTransaction")
	defer span.End()

	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, util.RecordError(span, translate(fmt.Errorf("failed to get transaction: %w", err)))
	}
	view := adminView(*t)
	return &view, nil
}

// UpdateTransactionStatus moves a pending transaction to confirmed or cancelled
func (s *AdminService) UpdateTransactionStatus(ctx context.Context, id, status string) (*AdminTransaction, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.UpdateTransactionStatus")
	defer span.End()

	next, err := models.ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, util.RecordError(span, translate(fmt.Errorf("failed to get transaction: %w", err)))
	}

	current := t.Status.Canonical()
	if !current.CanTransition(next) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, current, next)
	}

	// compare against the stored spelling so legacy rows still match
	err = s.store.UpdateTransactionStatus(ctx, id, t.Status, next)
	if errors.Is(err, store.ErrConflict) {
		return nil, fmt.Errorf("%w: transaction %s changed concurrently", ErrInvalidStatusTransition, id)
	}
	if err != nil {
		return nil, util.RecordError(span, translate(fmt.Errorf("failed to update transaction status: %w", err)))
	}

	util.TransactionsStatusChangedTotal.WithLabelValues(string(next)).Inc()
	s.logger.Info("Transaction status changed",
		zap.String("transaction_id", id),
		zap.String("from", string(t.Status)),
		zap.String("to", string(next)))

	if s.publisher != nil {
		event := &models.TransactionStatusChangedEvent{
			BaseEvent:     models.NewBaseEvent(models.EventTypeTransactionStatusChanged),
			TransactionID: id,
			From:          current,
			To:            next,
		}
		if err := s.publisher.PublishTransactionStatusChanged(ctx, event); err != nil {
			s.logger.Error("Failed to publish TransactionStatusChanged event", zap.Error(err), zap.String("transaction_id", id))
		}
	}

	t.Status = next
	t.UpdatedAt = s.now()
	view := adminView(*t)
	return &view, nil
}

var exportHeaders = []string{
	"ID", "Created At", "Customer", "Email", "Phone", "Address", "City",
	"Items", "Total (VND)", "Status", "Notes",
}

// ExportTransactions writes every transaction as an xlsx workbook, in admin list order
func (s *AdminService) ExportTransactions(ctx context.Context, w io.Writer) error {
	ctx, span := util.StartSpan(ctx, "AdminService.ExportTransactions")
	defer span.End()

	txs, err := s.ListTransactions(ctx)
	if err != nil {
		return util.RecordError(span, err)
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Transactions")
	if err != nil {
		return util.RecordError(span, fmt.Errorf("failed to create sheet: %w", err))
	}

	headerRow := sheet.AddRow()
	for _, h := range exportHeaders {
		headerRow.AddCell().SetValue(h)
	}

	for _, t := range txs {
		row := sheet.AddRow()
		row.AddCell().SetValue(t.ID)
		row.AddCell().SetValue(t.CreatedAt.Format("2006-01-02 15:04:05"))
		row.AddCell().SetValue(t.ShippingAddress.FullName)
		row.AddCell().SetValue(t.ShippingAddress.Email)
		row.AddCell().SetValue(t.ShippingAddress.Phone)
		row.AddCell().SetValue(t.ShippingAddress.Address)
		row.AddCell().SetValue(t.ShippingAddress.City)
		row.AddCell().SetValue(itemSummary(t.Items))
		row.AddCell().SetValue(t.TotalAmount)
		row.AddCell().SetValue(string(t.DisplayStatus))
		row.AddCell().SetValue(t.Notes)
	}

	if err := file.Write(w); err != nil {
		return util.RecordError(span, fmt.Errorf("failed to write workbook: %w", err))
	}
	s.logger.Info("Transactions exported", zap.Int("rows", len(txs)))
	return nil
}

func itemSummary(items models.TransactionItems) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%s x%d", it.ProductName, it.Quantity))
	}
	return strings.Join(parts, "; ")
}

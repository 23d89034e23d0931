package service

import (
	"context"
	"io"
	"time"

	"storefront-service/internal/models"
)

// EnrichmentStore provides the batched lookups behind product enrichment
type EnrichmentStore interface {
	FirstImageURLs(ctx context.Context, productIDs []string) (map[string]string, error)
	CategoryNames(ctx context.Context, ids []string) (map[string]string, error)
	BrandNames(ctx context.Context, ids []string) (map[string]string, error)
}

// CatalogStore is the read side of the product catalog
type CatalogStore interface {
	EnrichmentStore
	ListProducts(ctx context.Context, f models.ProductFilter, offset, limit int) ([]models.Product, int, error)
	ListRelatedProducts(ctx context.Context, q models.RelatedQuery) ([]models.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	ListProductImages(ctx context.Context, productID string) ([]models.ProductImage, error)
	CategoryIDsByNames(ctx context.Context, names []string) ([]string, error)
	GetCategoryByID(ctx context.Context, id string) (*models.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	GetBrandBySlug(ctx context.Context, slug string) (*models.Brand, error)
	ListProductRefs(ctx context.Context) ([]models.ProductRef, error)
}

// TaxonomyStore lists the reference data shown in filter panels
type TaxonomyStore interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListBrands(ctx context.Context) ([]models.Brand, error)
}

// CartStore persists cart lines scoped by user
type CartStore interface {
	AddCartItem(ctx context.Context, userID, productID string) (*models.CartItem, error)
	SetCartItemQuantity(ctx context.Context, userID, itemID string, quantity int) error
	DeleteCartItem(ctx context.Context, userID, itemID string) error
	ListCartLines(ctx context.Context, userID string) ([]models.CartLine, error)
}

// CheckoutStore turns carts into transactions
type CheckoutStore interface {
	CheckoutCart(ctx context.Context, userID string, build func([]models.CartLine) (*models.Transaction, error)) (*models.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	GetTransactionByIdempotencyKey(ctx context.Context, userID, key string) (*models.Transaction, error)
	ListTransactionsByUser(ctx context.Context, userID string) ([]models.Transaction, error)
}

// AdminStore is the write side used by the back office
type AdminStore interface {
	EnrichmentStore
	TaxonomyStore
	ListProducts(ctx context.Context, f models.ProductFilter, offset, limit int) ([]models.Product, int, error)
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	SlugExists(ctx context.Context, entity, slug, excludeID string) (bool, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id string) error

	GetCategoryByID(ctx context.Context, id string) (*models.Category, error)
	CreateCategory(ctx context.Context, c *models.Category) error
	UpdateCategory(ctx context.Context, c *models.Category) error
	DeleteCategory(ctx context.Context, id string) error
	GetBrandByID(ctx context.Context, id string) (*models.Brand, error)
	CreateBrand(ctx context.Context, b *models.Brand) error
	UpdateBrand(ctx context.Context, b *models.Brand) error
	DeleteBrand(ctx context.Context, id string) error

	ListProductImages(ctx context.Context, productID string) ([]models.ProductImage, error)
	NextImageOrder(ctx context.Context, productID string) (int, error)
	AddProductImage(ctx context.Context, img *models.ProductImage) error
	GetProductImage(ctx context.Context, id string) (*models.ProductImage, error)
	DeleteProductImage(ctx context.Context, id string) error

	ListTransactions(ctx context.Context) ([]models.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, id string, from, to models.TransactionStatus) error
}

// ProfileStore answers authorization questions about users
type ProfileStore interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// Cache stores JSON documents with a TTL
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Locker provides short-lived mutual exclusion across instances
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// EventPublisher emits domain events
type EventPublisher interface {
	PublishTransactionCreated(ctx context.Context, event *models.TransactionCreatedEvent) error
	PublishTransactionStatusChanged(ctx context.Context, event *models.TransactionStatusChangedEvent) error
	PublishCatalogChanged(ctx context.Context, event *models.CatalogChangedEvent) error
}

// ImageBucket stores uploaded product images
type ImageBucket interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
	PublicURL(key string) string
	PathFromURL(url string) (string, error)
	Remove(ctx context.Context, key string) error
}

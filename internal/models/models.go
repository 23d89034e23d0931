package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// PlaceholderImage is served when a product has no images
const PlaceholderImage = "/placeholder.svg"

// UnknownCategory is the label used when a product's category row is missing
const UnknownCategory = "Unknown"

// Product represents a watch or accessory in the catalog
type Product struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Description   string    `db:"description" json:"description"`
	Price         int64     `db:"price" json:"price"`
	Gender        string    `db:"gender" json:"gender"`
	StrapType     string    `db:"strap_type" json:"strap_type"`
	CategoryID    string    `db:"category_id" json:"category_id"`
	BrandID       *string   `db:"brand_id" json:"brand_id,omitempty"`
	StockQuantity int       `db:"stock_quantity" json:"stock_quantity"`
	Slug          string    `db:"slug" json:"slug"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// EnrichedProduct is a product with its display fields joined in
type EnrichedProduct struct {
	Product
	ImageURL     string  `json:"image_url"`
	CategoryName string  `json:"category_name"`
	BrandName    *string `json:"brand_name,omitempty"`
}

// ProductImage represents one image of a product
type ProductImage struct {
	ID           string    `db:"id" json:"id"`
	ProductID    string    `db:"product_id" json:"product_id"`
	ImageURL     string    `db:"image_url" json:"image_url"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	AltText      string    `db:"alt_text" json:"alt_text"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Category groups products for navigation and landing pages
type Category struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Slug            string    `db:"slug" json:"slug"`
	Description     string    `db:"description" json:"description"`
	BannerURL       string    `db:"banner_url" json:"banner_url"`
	MetaTitle       string    `db:"meta_title" json:"meta_title"`
	MetaDescription string    `db:"meta_description" json:"meta_description"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Brand is a watch manufacturer
type Brand struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Slug            string    `db:"slug" json:"slug"`
	Description     string    `db:"description" json:"description"`
	BannerURL       string    `db:"banner_url" json:"banner_url"`
	MetaTitle       string    `db:"meta_title" json:"meta_title"`
	MetaDescription string    `db:"meta_description" json:"meta_description"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// CartItem is one product line in a user's cart
type CartItem struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	ProductID string    `db:"product_id" json:"product_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CartLine is a cart item joined with the live product row
type CartLine struct {
	ID           string `db:"id" json:"id"`
	ProductID    string `db:"product_id" json:"product_id"`
	Quantity     int    `db:"quantity" json:"quantity"`
	ProductName  string `db:"product_name" json:"product_name"`
	ProductSlug  string `db:"product_slug" json:"product_slug"`
	Price        int64  `db:"price" json:"price"`
	Gender       string `db:"gender" json:"gender"`
	StrapType    string `db:"strap_type" json:"strap_type"`
	CategoryName string `db:"category_name" json:"category_name"`
	BrandName    string `db:"brand_name" json:"brand_name"`
	ImageURL     string `db:"-" json:"image_url"`
}

// Cart is the current state of a user's cart
type Cart struct {
	Items []CartLine `json:"items"`
	Total int64      `json:"total"`
	Count int        `json:"count"`
}

// CartTotal sums price × quantity over the lines using current prices
func CartTotal(lines []CartLine) int64 {
	var total int64
	for _, line := range lines {
		total += line.Price * int64(line.Quantity)
	}
	return total
}

// TransactionItem is the frozen copy of a cart line taken at checkout
type TransactionItem struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Price       int64  `json:"price"`
}

// TransactionItems is stored as a jsonb array
type TransactionItems []TransactionItem

// ShippingAddress is stored as a jsonb object
type ShippingAddress struct {
	FullName   string `json:"fullName" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Phone      string `json:"phone" binding:"required"`
	Address    string `json:"address" binding:"required"`
	City       string `json:"city" binding:"required"`
	PostalCode string `json:"postalCode"`
}

// BankInfo holds the transfer details shown to the customer
type BankInfo struct {
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	AccountHolder string `json:"accountHolder"`
}

// Transaction represents a placed order awaiting manual bank transfer reconciliation
type Transaction struct {
	ID              string            `db:"id" json:"id"`
	UserID          string            `db:"user_id" json:"user_id"`
	TotalAmount     int64             `db:"total_amount" json:"total_amount"`
	Status          TransactionStatus `db:"status" json:"status"`
	Items           TransactionItems  `db:"items" json:"items"`
	ShippingAddress ShippingAddress   `db:"shipping_address" json:"shipping_address"`
	BankInfo        BankInfo          `db:"bank_info" json:"bank_info"`
	Notes           string            `db:"notes" json:"notes"`
	IdempotencyKey  *string           `db:"idempotency_key" json:"-"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// Profile carries the authorization flags of an authenticated user
type Profile struct {
	ID      string `db:"id" json:"id"`
	IsAdmin bool   `db:"is_admin" json:"is_admin"`
}

// ProductRef is the minimal product row used by the sitemap
type ProductRef struct {
	ID        string    `db:"id"`
	Slug      string    `db:"slug"`
	CreatedAt time.Time `db:"created_at"`
}

// ProductFilter restricts a catalog listing. Empty slices impose no constraint.
type ProductFilter struct {
	CategoryIDs        []string
	BrandIDs           []string
	Genders            []string
	StrapTypes         []string
	ExcludeCategoryIDs []string
}

// RelatedQuery selects recommendation candidates
type RelatedQuery struct {
	BrandID    string
	Gender     string
	ExcludeIDs []string
	Limit      int
}

func (i TransactionItems) Value() (driver.Value, error) {
	if i == nil {
		i = TransactionItems{}
	}
	return json.Marshal(i)
}

func (i *TransactionItems) Scan(src interface{}) error {
	return scanJSON(src, i)
}

func (a ShippingAddress) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *ShippingAddress) Scan(src interface{}) error {
	return scanJSON(src, a)
}

func (b BankInfo) Value() (driver.Value, error) {
	return json.Marshal(b)
}

func (b *BankInfo) Scan(src interface{}) error {
	return scanJSON(src, b)
}

func scanJSON(src interface{}, dest interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
}

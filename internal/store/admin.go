package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-service/internal/models"
)

// slugTables lists the tables whose rows are addressed by a unique slug
var slugTables = map[string]string{
	"product":  "products",
	"category": "categories",
	"brand":    "brands",
}

// SlugExists reports whether entity already uses slug on a row other than excludeID
func (s *Store) SlugExists(ctx context.Context, entity, slug, excludeID string) (bool, error) {
	table, ok := slugTables[entity]
	if !ok {
		return false, fmt.Errorf("unknown slug entity %q", entity)
	}

	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM "+table+" WHERE slug = $1 AND id <> $2)", slug, excludeID)
	return exists, err
}

// CreateProduct inserts a product, generating its id when empty, and fills id and created_at
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	err := s.db.GetContext(ctx, p, `
		INSERT INTO products (id, name, description, price, gender, strap_type, category_id, brand_id, stock_quantity, slug)
		VALUES (COALESCE(NULLIF($1, ''), gen_random_uuid()::text), $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''),
			NULLIF($7, ''), $8, $9, $10)
		RETURNING id, created_at`,
		p.ID, p.Name, p.Description, p.Price, p.Gender, p.StrapType, p.CategoryID, p.BrandID, p.StockQuantity, p.Slug)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", uniqueViolation(err))
	}
	return nil
}

// UpdateProduct overwrites every editable column of a product
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET name = $1, description = $2, price = $3, gender = NULLIF($4, ''),
			strap_type = NULLIF($5, ''), category_id = NULLIF($6, ''), brand_id = $7,
			stock_quantity = $8, slug = $9, updated_at = NOW()
		WHERE id = $10`,
		p.Name, p.Description, p.Price, p.Gender, p.StrapType, p.CategoryID, p.BrandID, p.StockQuantity, p.Slug, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", uniqueViolation(err))
	}
	return expectRow(res, "product", p.ID)
}

// DeleteProduct removes a product; its images and cart lines cascade
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return expectRow(res, "product", id)
}

// CreateCategory inserts a category
func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	return s.createTaxonomy(ctx, "categories", c.Name, c.Slug, c.Description, c.BannerURL, c.MetaTitle, c.MetaDescription,
		&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// UpdateCategory overwrites a category's editable columns
func (s *Store) UpdateCategory(ctx context.Context, c *models.Category) error {
	return s.updateTaxonomy(ctx, "categories", c.ID, c.Name, c.Slug, c.Description, c.BannerURL, c.MetaTitle, c.MetaDescription,
		&c.CreatedAt, &c.UpdatedAt)
}

// DeleteCategory removes a category. Products keep the dangling id.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "categories", "category", id)
}

// CreateBrand inserts a brand
func (s *Store) CreateBrand(ctx context.Context, b *models.Brand) error {
	return s.createTaxonomy(ctx, "brands", b.Name, b.Slug, b.Description, b.BannerURL, b.MetaTitle, b.MetaDescription,
		&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

// UpdateBrand overwrites a brand's editable columns
func (s *Store) UpdateBrand(ctx context.Context, b *models.Brand) error {
	return s.updateTaxonomy(ctx, "brands", b.ID, b.Name, b.Slug, b.Description, b.BannerURL, b.MetaTitle, b.MetaDescription,
		&b.CreatedAt, &b.UpdatedAt)
}

// DeleteBrand removes a brand and clears it from its products
func (s *Store) DeleteBrand(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "brands", "brand", id)
}

func (s *Store) createTaxonomy(ctx context.Context, table, name, slug, description, bannerURL, metaTitle, metaDescription string, dest ...interface{}) error {
	row := s.db.QueryRowxContext(ctx, `
		INSERT INTO `+table+` (name, slug, description, banner_url, meta_title, meta_description)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''))
		RETURNING id, created_at, updated_at`,
		name, slug, description, bannerURL, metaTitle, metaDescription)
	if err := row.Scan(dest...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, uniqueViolation(err))
	}
	return nil
}

func (s *Store) updateTaxonomy(ctx context.Context, table, id, name, slug, description, bannerURL, metaTitle, metaDescription string, dest ...interface{}) error {
	row := s.db.QueryRowxContext(ctx, `
		UPDATE `+table+` SET name = $1, slug = $2, description = NULLIF($3, ''), banner_url = NULLIF($4, ''),
			meta_title = NULLIF($5, ''), meta_description = NULLIF($6, ''), updated_at = NOW()
		WHERE id = $7
		RETURNING created_at, updated_at`,
		name, slug, description, bannerURL, metaTitle, metaDescription, id)
	if err := row.Scan(dest...); err != nil {
		return fmt.Errorf("failed to update %s: %w", table, notFound(uniqueViolation(err), table, id))
	}
	return nil
}

func (s *Store) deleteByID(ctx context.Context, table, entity, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", entity, err)
	}
	return expectRow(res, entity, id)
}

// NextImageOrder returns the display_order for a newly appended image
func (s *Store) NextImageOrder(ctx context.Context, productID string) (int, error) {
	var next int
	err := s.db.GetContext(ctx, &next,
		"SELECT COALESCE(MAX(display_order) + 1, 0) FROM product_images WHERE product_id = $1", productID)
	return next, err
}

// AddProductImage inserts an image row and fills its id and created_at
func (s *Store) AddProductImage(ctx context.Context, img *models.ProductImage) error {
	err := s.db.GetContext(ctx, img, `
		INSERT INTO product_images (product_id, image_url, display_order, alt_text)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		RETURNING id, created_at`,
		img.ProductID, img.ImageURL, img.DisplayOrder, img.AltText)
	if err != nil {
		return fmt.Errorf("failed to add product image: %w", err)
	}
	return nil
}

// GetProductImage retrieves one image row
func (s *Store) GetProductImage(ctx context.Context, id string) (*models.ProductImage, error) {
	var img models.ProductImage
	err := s.db.GetContext(ctx, &img, `
		SELECT id, product_id, image_url, display_order, COALESCE(alt_text, '') AS alt_text, created_at
		FROM product_images WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "product image", id)
	}
	return &img, nil
}

// DeleteProductImage removes an image row
func (s *Store) DeleteProductImage(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "product_images", "product image", id)
}

// IsAdmin reports whether the user's profile carries the admin flag.
// Users without a profile are not admins.
func (s *Store) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var isAdmin bool
	err := s.db.GetContext(ctx, &isAdmin, "SELECT is_admin FROM profiles WHERE id = $1", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return isAdmin, err
}

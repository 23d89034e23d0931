package store

import (
	"context"
	"fmt"
	"strings"

	"storefront-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const productColumns = `id, name, COALESCE(description, '') AS description, price,
	COALESCE(gender, '') AS gender, COALESCE(strap_type, '') AS strap_type,
	COALESCE(category_id, '') AS category_id, brand_id, stock_quantity, slug, created_at`

const taxonomyColumns = `id, name, slug, COALESCE(description, '') AS description,
	COALESCE(banner_url, '') AS banner_url, COALESCE(meta_title, '') AS meta_title,
	COALESCE(meta_description, '') AS meta_description, created_at, updated_at`

// conditions accumulates WHERE clauses with "?" placeholders for sqlx.In
type conditions struct {
	clauses []string
	args    []interface{}
}

func (c *conditions) add(clause string, arg interface{}) {
	c.clauses = append(c.clauses, clause)
	c.args = append(c.args, arg)
}

// in adds an IN clause; an empty set imposes no constraint
func (c *conditions) in(clause string, values []string) {
	if len(values) > 0 {
		c.add(clause, values)
	}
}

func (c *conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

func productFilterConditions(f models.ProductFilter) *conditions {
	c := &conditions{}
	c.in("category_id IN (?)", f.CategoryIDs)
	c.in("brand_id IN (?)", f.BrandIDs)
	c.in("gender IN (?)", f.Genders)
	c.in("strap_type IN (?)", f.StrapTypes)
	c.in("(category_id IS NULL OR category_id NOT IN (?))", f.ExcludeCategoryIDs)
	return c
}

// buildProductListQuery returns the page query and the exact count query for
// the filter, both with "?" placeholders expanded by sqlx.In.
func buildProductListQuery(f models.ProductFilter, offset, limit int) (listQ string, listArgs []interface{}, countQ string, countArgs []interface{}, err error) {
	c := productFilterConditions(f)

	countQ, countArgs, err = sqlx.In("SELECT COUNT(*) FROM products"+c.where(), c.args...)
	if err != nil {
		return "", nil, "", nil, err
	}

	args := append(append([]interface{}{}, c.args...), limit, offset)
	listQ, listArgs, err = sqlx.In(
		"SELECT "+productColumns+" FROM products"+c.where()+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		args...)
	if err != nil {
		return "", nil, "", nil, err
	}
	return listQ, listArgs, countQ, countArgs, nil
}

func buildRelatedQuery(q models.RelatedQuery) (string, []interface{}, error) {
	c := &conditions{}
	if q.BrandID != "" {
		c.add("brand_id = ?", q.BrandID)
	}
	if q.Gender != "" {
		c.add("gender = ?", q.Gender)
	}
	c.in("id NOT IN (?)", q.ExcludeIDs)

	args := append(c.args, q.Limit)
	return sqlx.In("SELECT "+productColumns+" FROM products"+c.where()+" ORDER BY id LIMIT ?", args...)
}

// ListProducts returns one newest-first page of products matching the filter
// and the total number of matching rows.
func (s *Store) ListProducts(ctx context.Context, f models.ProductFilter, offset, limit int) ([]models.Product, int, error) {
	listQ, listArgs, countQ, countArgs, err := buildProductListQuery(f, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build product query: %w", err)
	}

	var total int
	if err := s.db.GetContext(ctx, &total, s.db.Rebind(countQ), countArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	products := []models.Product{}
	if err := s.db.SelectContext(ctx, &products, s.db.Rebind(listQ), listArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

// ListRelatedProducts returns recommendation candidates ordered by id
func (s *Store) ListRelatedProducts(ctx context.Context, q models.RelatedQuery) ([]models.Product, error) {
	query, args, err := buildRelatedQuery(q)
	if err != nil {
		return nil, err
	}

	products := []models.Product{}
	err = s.db.SelectContext(ctx, &products, s.db.Rebind(query), args...)
	return products, err
}

// GetProductBySlug retrieves a product by its unique slug
func (s *Store) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT "+productColumns+" FROM products WHERE slug = $1", slug)
	if err != nil {
		return nil, notFound(err, "product", slug)
	}
	return &product, nil
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "product", id)
	}
	return &product, nil
}

// ListProductImages returns all images of a product, primary first
func (s *Store) ListProductImages(ctx context.Context, productID string) ([]models.ProductImage, error) {
	images := []models.ProductImage{}
	err := s.db.SelectContext(ctx, &images, `
		SELECT id, product_id, image_url, display_order, COALESCE(alt_text, '') AS alt_text, created_at
		FROM product_images WHERE product_id = $1
		ORDER BY display_order, created_at`, productID)
	return images, err
}

type keyValue struct {
	Key   string `db:"k"`
	Value string `db:"v"`
}

func (s *Store) lookup(ctx context.Context, query string, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	q, args, err := sqlx.In(query, ids)
	if err != nil {
		return nil, err
	}

	var rows []keyValue
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

// FirstImageURLs maps each product id to its image with the smallest display_order.
// Products without images are absent from the map.
func (s *Store) FirstImageURLs(ctx context.Context, productIDs []string) (map[string]string, error) {
	return s.lookup(ctx, `
		SELECT DISTINCT ON (product_id) product_id AS k, image_url AS v
		FROM product_images WHERE product_id IN (?)
		ORDER BY product_id, display_order, created_at`, productIDs)
}

// CategoryNames maps category ids to names
func (s *Store) CategoryNames(ctx context.Context, ids []string) (map[string]string, error) {
	return s.lookup(ctx, "SELECT id AS k, name AS v FROM categories WHERE id IN (?)", ids)
}

// BrandNames maps brand ids to names
func (s *Store) BrandNames(ctx context.Context, ids []string) (map[string]string, error) {
	return s.lookup(ctx, "SELECT id AS k, name AS v FROM brands WHERE id IN (?)", ids)
}

// CategoryIDsByNames resolves category names to ids; unknown names are skipped
func (s *Store) CategoryIDsByNames(ctx context.Context, names []string) ([]string, error) {
	ids := []string{}
	if len(names) == 0 {
		return ids, nil
	}

	q, args, err := sqlx.In("SELECT id FROM categories WHERE name IN (?) ORDER BY id", names)
	if err != nil {
		return nil, err
	}
	err = s.db.SelectContext(ctx, &ids, s.db.Rebind(q), args...)
	return ids, err
}

// GetCategoryBySlug retrieves a category by slug
func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var c models.Category
	err := s.db.GetContext(ctx, &c, "SELECT "+taxonomyColumns+" FROM categories WHERE slug = $1", slug)
	if err != nil {
		return nil, notFound(err, "category", slug)
	}
	return &c, nil
}

// GetCategoryByID retrieves a category by ID
func (s *Store) GetCategoryByID(ctx context.Context, id string) (*models.Category, error) {
	var c models.Category
	err := s.db.GetContext(ctx, &c, "SELECT "+taxonomyColumns+" FROM categories WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "category", id)
	}
	return &c, nil
}

// GetBrandBySlug retrieves a brand by slug
func (s *Store) GetBrandBySlug(ctx context.Context, slug string) (*models.Brand, error) {
	var b models.Brand
	err := s.db.GetContext(ctx, &b, "SELECT "+taxonomyColumns+" FROM brands WHERE slug = $1", slug)
	if err != nil {
		return nil, notFound(err, "brand", slug)
	}
	return &b, nil
}

// GetBrandByID retrieves a brand by ID
func (s *Store) GetBrandByID(ctx context.Context, id string) (*models.Brand, error) {
	var b models.Brand
	err := s.db.GetContext(ctx, &b, "SELECT "+taxonomyColumns+" FROM brands WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "brand", id)
	}
	return &b, nil
}

// ListCategories returns every category ordered by name
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := s.db.SelectContext(ctx, &categories, "SELECT "+taxonomyColumns+" FROM categories ORDER BY name")
	return categories, err
}

// ListBrands returns every brand ordered by name
func (s *Store) ListBrands(ctx context.Context) ([]models.Brand, error) {
	brands := []models.Brand{}
	err := s.db.SelectContext(ctx, &brands, "SELECT "+taxonomyColumns+" FROM brands ORDER BY name")
	return brands, err
}

// ListProductRefs returns the id, slug and creation time of every product
func (s *Store) ListProductRefs(ctx context.Context) ([]models.ProductRef, error) {
	refs := []models.ProductRef{}
	err := s.db.SelectContext(ctx, &refs,
		"SELECT id, COALESCE(slug, '') AS slug, created_at FROM products ORDER BY created_at DESC, id DESC")
	return refs, err
}

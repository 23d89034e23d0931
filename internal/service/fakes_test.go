package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
)

var errBoom = errors.New("boom")

// memStore is an in-memory stand-in for the Postgres store
type memStore struct {
	mu         sync.Mutex
	seq        int
	clock      int
	products   []models.Product
	images     []models.ProductImage
	categories []models.Category
	brands     []models.Brand
	cart       []models.CartItem
	txs        []models.Transaction
	admins     map[string]bool

	failList       error
	failImages     error
	failCategories error
	failRelated    error
	failCheckout   error
}

func newMemStore() *memStore {
	return &memStore{admins: map[string]bool{}}
}

// stamp returns a strictly increasing time so updates are observable
func (m *memStore) stamp() time.Time {
	m.clock++
	return time.Date(2024, 1, 1, 0, 0, m.clock, 0, time.UTC)
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%03d", prefix, m.seq)
}

func (m *memStore) addProduct(p models.Product) models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = m.nextID("p")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(m.seq) * time.Hour)
	}
	m.products = append(m.products, p)
	return p
}

func strPtr(s string) *string { return &s }

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func matches(p models.Product, f models.ProductFilter) bool {
	if len(f.CategoryIDs) > 0 && !contains(f.CategoryIDs, p.CategoryID) {
		return false
	}
	if len(f.BrandIDs) > 0 && (p.BrandID == nil || !contains(f.BrandIDs, *p.BrandID)) {
		return false
	}
	if len(f.Genders) > 0 && !contains(f.Genders, p.Gender) {
		return false
	}
	if len(f.StrapTypes) > 0 && !contains(f.StrapTypes, p.StrapType) {
		return false
	}
	if contains(f.ExcludeCategoryIDs, p.CategoryID) {
		return false
	}
	return true
}

func (m *memStore) ListProducts(_ context.Context, f models.ProductFilter, offset, limit int) ([]models.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList != nil {
		return nil, 0, m.failList
	}

	var all []models.Product
	for _, p := range m.products {
		if matches(p, f) {
			all = append(all, p)
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	total := len(all)
	if offset >= total {
		return []models.Product{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *memStore) ListRelatedProducts(_ context.Context, q models.RelatedQuery) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRelated != nil {
		return nil, m.failRelated
	}

	var out []models.Product
	for _, p := range m.products {
		if contains(q.ExcludeIDs, p.ID) {
			continue
		}
		if q.BrandID != "" && (p.BrandID == nil || *p.BrandID != q.BrandID) {
			continue
		}
		if q.Gender != "" && p.Gender != q.Gender {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memStore) GetProductBySlug(_ context.Context, slug string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.Slug == slug {
			p := p
			return &p, nil
		}
	}
	return nil, fmt.Errorf("product %s: %w", slug, store.ErrNotFound)
}

func (m *memStore) GetProductByID(_ context.Context, id string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.ID == id {
			p := p
			return &p, nil
		}
	}
	return nil, fmt.Errorf("product %s: %w", id, store.ErrNotFound)
}

func (m *memStore) ListProductImages(_ context.Context, productID string) ([]models.ProductImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ProductImage
	for _, img := range m.images {
		if img.ProductID == productID {
			out = append(out, img)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (m *memStore) FirstImageURLs(_ context.Context, ids []string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failImages != nil {
		return nil, m.failImages
	}
	out := map[string]string{}
	best := map[string]int{}
	for _, img := range m.images {
		if !contains(ids, img.ProductID) {
			continue
		}
		if order, ok := best[img.ProductID]; !ok || img.DisplayOrder < order {
			best[img.ProductID] = img.DisplayOrder
			out[img.ProductID] = img.ImageURL
		}
	}
	return out, nil
}

func (m *memStore) CategoryNames(_ context.Context, ids []string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCategories != nil {
		return nil, m.failCategories
	}
	out := map[string]string{}
	for _, c := range m.categories {
		if contains(ids, c.ID) {
			out[c.ID] = c.Name
		}
	}
	return out, nil
}

func (m *memStore) BrandNames(_ context.Context, ids []string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]string{}
	for _, b := range m.brands {
		if contains(ids, b.ID) {
			out[b.ID] = b.Name
		}
	}
	return out, nil
}

func (m *memStore) CategoryIDsByNames(_ context.Context, names []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.categories {
		if contains(names, c.Name) {
			out = append(out, c.ID)
		}
	}
	return out, nil
}

func (m *memStore) GetCategoryByID(_ context.Context, id string) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.categories {
		if c.ID == id {
			c := c
			return &c, nil
		}
	}
	return nil, fmt.Errorf("category %s: %w", id, store.ErrNotFound)
}

func (m *memStore) GetCategoryBySlug(_ context.Context, slug string) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.categories {
		if c.Slug == slug {
			c := c
			return &c, nil
		}
	}
	return nil, fmt.Errorf("category %s: %w", slug, store.ErrNotFound)
}

func (m *memStore) GetBrandByID(_ context.Context, id string) (*models.Brand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.brands {
		if b.ID == id {
			b := b
			return &b, nil
		}
	}
	return nil, fmt.Errorf("brand %s: %w", id, store.ErrNotFound)
}

func (m *memStore) GetBrandBySlug(_ context.Context, slug string) (*models.Brand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.brands {
		if b.Slug == slug {
			b := b
			return &b, nil
		}
	}
	return nil, fmt.Errorf("brand %s: %w", slug, store.ErrNotFound)
}

func (m *memStore) ListCategories(context.Context) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCategories != nil {
		return nil, m.failCategories
	}
	return append([]models.Category{}, m.categories...), nil
}

func (m *memStore) ListBrands(context.Context) ([]models.Brand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Brand{}, m.brands...), nil
}

func (m *memStore) ListProductRefs(context.Context) ([]models.ProductRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ProductRef, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, models.ProductRef{ID: p.ID, Slug: p.Slug, CreatedAt: p.CreatedAt})
	}
	return out, nil
}

func (m *memStore) AddCartItem(_ context.Context, userID, productID string) (*models.CartItem, error) {
	if _, err := m.GetProductByID(context.Background(), productID); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.cart {
		if m.cart[i].UserID == userID && m.cart[i].ProductID == productID {
			m.cart[i].Quantity++
			item := m.cart[i]
			return &item, nil
		}
	}
	item := models.CartItem{ID: m.nextID("c"), UserID: userID, ProductID: productID, Quantity: 1}
	m.cart = append(m.cart, item)
	return &item, nil
}

func (m *memStore) SetCartItemQuantity(ctx context.Context, userID, itemID string, quantity int) error {
	if quantity <= 0 {
		return m.DeleteCartItem(ctx, userID, itemID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.cart {
		if m.cart[i].ID == itemID && m.cart[i].UserID == userID {
			m.cart[i].Quantity = quantity
			return nil
		}
	}
	return fmt.Errorf("cart item %s: %w", itemID, store.ErrNotFound)
}

func (m *memStore) DeleteCartItem(_ context.Context, userID, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.cart {
		if m.cart[i].ID == itemID && m.cart[i].UserID == userID {
			m.cart = append(m.cart[:i], m.cart[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("cart item %s: %w", itemID, store.ErrNotFound)
}

func (m *memStore) ListCartLines(_ context.Context, userID string) ([]models.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cartLines(userID), nil
}

func (m *memStore) cartLines(userID string) []models.CartLine {
	var lines []models.CartLine
	for _, item := range m.cart {
		if item.UserID != userID {
			continue
		}
		for _, p := range m.products {
			if p.ID == item.ProductID {
				lines = append(lines, models.CartLine{
					ID:          item.ID,
					ProductID:   p.ID,
					Quantity:    item.Quantity,
					ProductName: p.Name,
					ProductSlug: p.Slug,
					Price:       p.Price,
				})
			}
		}
	}
	return lines
}

func (m *memStore) CheckoutCart(_ context.Context, userID string, build func([]models.CartLine) (*models.Transaction, error)) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := build(m.cartLines(userID))
	if err != nil {
		return nil, err
	}
	if m.failCheckout != nil {
		return nil, m.failCheckout
	}
	if t.IdempotencyKey != nil {
		for _, existing := range m.txs {
			if existing.UserID == t.UserID && existing.IdempotencyKey != nil && *existing.IdempotencyKey == *t.IdempotencyKey {
				return nil, fmt.Errorf("idempotency key: %w", store.ErrConflict)
			}
		}
	}

	t.ID = m.nextID("t")
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	m.txs = append(m.txs, *t)

	kept := m.cart[:0]
	for _, item := range m.cart {
		if item.UserID != userID {
			kept = append(kept, item)
		}
	}
	m.cart = kept
	return t, nil
}

func (m *memStore) GetTransaction(_ context.Context, id string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.txs {
		if t.ID == id {
			t := t
			return &t, nil
		}
	}
	return nil, fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
}

func (m *memStore) GetTransactionByIdempotencyKey(_ context.Context, userID, key string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.txs {
		if t.UserID == userID && t.IdempotencyKey != nil && *t.IdempotencyKey == key {
			t := t
			return &t, nil
		}
	}
	return nil, fmt.Errorf("transaction with key %s: %w", key, store.ErrNotFound)
}

func (m *memStore) ListTransactions(context.Context) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Transaction{}, m.txs...), nil
}

func (m *memStore) ListTransactionsByUser(_ context.Context, userID string) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Transaction
	for _, t := range m.txs {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) UpdateTransactionStatus(_ context.Context, id string, from, to models.TransactionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.txs {
		if m.txs[i].ID != id {
			continue
		}
		if m.txs[i].Status != from {
			return fmt.Errorf("transaction %s: %w", id, store.ErrConflict)
		}
		m.txs[i].Status = to
		return nil
	}
	return fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
}

func (m *memStore) SlugExists(_ context.Context, entity, slug, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch entity {
	case models.CatalogEntityProduct:
		for _, p := range m.products {
			if p.Slug == slug && p.ID != excludeID {
				return true, nil
			}
		}
	case models.CatalogEntityCategory:
		for _, c := range m.categories {
			if c.Slug == slug && c.ID != excludeID {
				return true, nil
			}
		}
	case models.CatalogEntityBrand:
		for _, b := range m.brands {
			if b.Slug == slug && b.ID != excludeID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *memStore) CreateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = m.nextID("p")
	}
	p.CreatedAt = time.Now()
	m.products = append(m.products, *p)
	return nil
}

func (m *memStore) UpdateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].ID == p.ID {
			m.products[i] = *p
			return nil
		}
	}
	return fmt.Errorf("product %s: %w", p.ID, store.ErrNotFound)
}

func (m *memStore) DeleteProduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].ID == id {
			m.products = append(m.products[:i], m.products[i+1:]...)
			kept := m.images[:0]
			for _, img := range m.images {
				if img.ProductID != id {
					kept = append(kept, img)
				}
			}
			m.images = kept
			return nil
		}
	}
	return fmt.Errorf("product %s: %w", id, store.ErrNotFound)
}

func (m *memStore) CreateCategory(_ context.Context, c *models.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.nextID("cat")
	c.CreatedAt = m.stamp()
	c.UpdatedAt = c.CreatedAt
	m.categories = append(m.categories, *c)
	return nil
}

func (m *memStore) UpdateCategory(_ context.Context, c *models.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.categories {
		if m.categories[i].ID == c.ID {
			c.CreatedAt = m.categories[i].CreatedAt
			c.UpdatedAt = m.stamp()
			m.categories[i] = *c
			return nil
		}
	}
	return fmt.Errorf("category %s: %w", c.ID, store.ErrNotFound)
}

func (m *memStore) DeleteCategory(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.categories {
		if m.categories[i].ID == id {
			m.categories = append(m.categories[:i], m.categories[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("category %s: %w", id, store.ErrNotFound)
}

func (m *memStore) CreateBrand(_ context.Context, b *models.Brand) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = m.nextID("b")
	b.CreatedAt = m.stamp()
	b.UpdatedAt = b.CreatedAt
	m.brands = append(m.brands, *b)
	return nil
}

func (m *memStore) UpdateBrand(_ context.Context, b *models.Brand) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.brands {
		if m.brands[i].ID == b.ID {
			b.CreatedAt = m.brands[i].CreatedAt
			b.UpdatedAt = m.stamp()
			m.brands[i] = *b
			return nil
		}
	}
	return fmt.Errorf("brand %s: %w", b.ID, store.ErrNotFound)
}

func (m *memStore) DeleteBrand(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.brands {
		if m.brands[i].ID == id {
			m.brands = append(m.brands[:i], m.brands[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("brand %s: %w", id, store.ErrNotFound)
}

func (m *memStore) NextImageOrder(_ context.Context, productID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := 0
	for _, img := range m.images {
		if img.ProductID == productID && img.DisplayOrder >= next {
			next = img.DisplayOrder + 1
		}
	}
	return next, nil
}

func (m *memStore) AddProductImage(_ context.Context, img *models.ProductImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	img.ID = m.nextID("img")
	img.CreatedAt = time.Now()
	m.images = append(m.images, *img)
	return nil
}

func (m *memStore) GetProductImage(_ context.Context, id string) (*models.ProductImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, img := range m.images {
		if img.ID == id {
			img := img
			return &img, nil
		}
	}
	return nil, fmt.Errorf("product image %s: %w", id, store.ErrNotFound)
}

func (m *memStore) DeleteProductImage(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.images {
		if m.images[i].ID == id {
			m.images = append(m.images[:i], m.images[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("product image %s: %w", id, store.ErrNotFound)
}

func (m *memStore) IsAdmin(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.admins[userID], nil
}

// memCache keeps raw values instead of JSON; tests only need hit and miss behaviour
type memCache struct {
	mu      sync.Mutex
	values  map[string]interface{}
	deletes int
}

func newMemCache() *memCache {
	return &memCache{values: map[string]interface{}{}}
}

func (c *memCache) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return false, nil
	}
	switch d := dest.(type) {
	case *HomeSections:
		*d = v.(HomeSections)
	case *models.FilterOptions:
		*d = v.(models.FilterOptions)
	default:
		return false, fmt.Errorf("unsupported cache type %T", dest)
	}
	return true, nil
}

func (c *memCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
	}
	c.deletes++
	return nil
}

type memLocker struct {
	mu   sync.Mutex
	held map[string]string
	err  error
}

func newMemLocker() *memLocker {
	return &memLocker{held: map[string]string{}}
}

func (l *memLocker) AcquireLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return "", false, l.err
	}
	if _, ok := l.held[key]; ok {
		return "", false, nil
	}
	l.held[key] = "token-" + key
	return l.held[key], true, nil
}

func (l *memLocker) ReleaseLock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

type recordingPublisher struct {
	mu            sync.Mutex
	created       []*models.TransactionCreatedEvent
	statusChanged []*models.TransactionStatusChangedEvent
	catalog       []*models.CatalogChangedEvent
}

func (p *recordingPublisher) PublishTransactionCreated(_ context.Context, e *models.TransactionCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, e)
	return nil
}

func (p *recordingPublisher) PublishTransactionStatusChanged(_ context.Context, e *models.TransactionStatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statusChanged = append(p.statusChanged, e)
	return nil
}

func (p *recordingPublisher) PublishCatalogChanged(_ context.Context, e *models.CatalogChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.catalog = append(p.catalog, e)
	return nil
}

type memBucket struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
}

func newMemBucket() *memBucket {
	return &memBucket{objects: map[string][]byte{}}
}

func (b *memBucket) Upload(_ context.Context, key, _ string, body io.Reader) error {
	if b.uploadErr != nil {
		return b.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return nil
}

func (b *memBucket) PublicURL(key string) string {
	return "https://cdn.test/product-images/" + key
}

func (b *memBucket) PathFromURL(url string) (string, error) {
	const prefix = "https://cdn.test/product-images/"
	if !strings.HasPrefix(url, prefix) {
		return "", errors.New("foreign url")
	}
	return strings.TrimPrefix(url, prefix), nil
}

func (b *memBucket) Remove(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

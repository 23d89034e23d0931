package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPageSize = 12
	MaxPageSize     = 100

	homeSectionSize  = 8
	homeCacheKey     = "home:sections"
	relatedListSize  = 4
	seoDescMaxLength = 160
)

// CatalogConfig holds the storefront settings used by catalog pages
type CatalogConfig struct {
	StoreName              string
	BaseURL                string
	AccessoryCategoryNames []string
	HomeCacheTTL           time.Duration
}

// CatalogService serves product listings, detail pages and landing pages
type CatalogService struct {
	store    CatalogStore
	enricher *Enricher
	cache    Cache
	cfg      CatalogConfig
	logger   *zap.Logger
}

func NewCatalogService(store CatalogStore, cache Cache, cfg CatalogConfig) *CatalogService {
	return &CatalogService{
		store:    store,
		enricher: NewEnricher(store),
		cache:    cache,
		cfg:      cfg,
		logger:   util.GetLogger(),
	}
}

// ProductListRequest is a filtered page request. Empty dimensions impose no constraint.
type ProductListRequest struct {
	Categories       []string
	Brands           []string
	Genders          []string
	StrapOrAccessory []string
	Page             int
	PageSize         int
	// ShopContext excludes the accessory categories from the results
	ShopContext bool
}

// ProductPage is one page of enriched products
type ProductPage struct {
	Items    []models.EnrichedProduct `json:"items"`
	Total    int                      `json:"total"`
	Page     int                      `json:"page"`
	PageSize int                      `json:"pageSize"`
}

// NormalizePage clamps page to at least 1 and pageSize to 1..MaxPageSize,
// using DefaultPageSize when pageSize is not positive.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// MergeDimensions unions several value lists into one, dropping blanks and duplicates
func MergeDimensions(lists ...[]string) []string {
	var out []string
	seen := map[string]bool{}
	for _, list := range lists {
		for _, v := range list {
			v = strings.TrimSpace(v)
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// ListProducts returns a newest-first page of enriched products. Store errors
// are logged and yield an empty page with total 0.
func (s *CatalogService) ListProducts(ctx context.Context, req ProductListRequest) *ProductPage {
	page, _ := s.listProducts(ctx, req)
	return page
}

// listProducts always returns a usable page; err reports whether it was degraded.
func (s *CatalogService) listProducts(ctx context.Context, req ProductListRequest) (*ProductPage, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListProducts")
	defer span.End()

	page, pageSize := NormalizePage(req.Page, req.PageSize)
	empty := &ProductPage{Items: []models.EnrichedProduct{}, Page: page, PageSize: pageSize}

	filter := models.ProductFilter{
		CategoryIDs: MergeDimensions(req.Categories),
		BrandIDs:    MergeDimensions(req.Brands),
		Genders:     MergeDimensions(req.Genders),
		StrapTypes:  MergeDimensions(req.StrapOrAccessory),
	}

	if req.ShopContext {
		ids, err := s.accessoryCategoryIDs(ctx)
		if err != nil {
			util.RecordError(span, err)
			util.CatalogQueryErrorsTotal.WithLabelValues("accessory_categories").Inc()
			s.logger.Error("Failed to resolve accessory categories", zap.Error(err))
			return empty, err
		}
		filter.ExcludeCategoryIDs = ids
	}

	products, total, err := s.store.ListProducts(ctx, filter, (page-1)*pageSize, pageSize)
	if err != nil {
		util.RecordError(span, err)
		util.CatalogQueryErrorsTotal.WithLabelValues("list_products").Inc()
		s.logger.Error("Failed to list products",
			zap.Error(err),
			zap.Int("page", page),
			zap.Int("page_size", pageSize))
		return empty, err
	}

	return &ProductPage{
		Items:    s.enricher.Enrich(ctx, products),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (s *CatalogService) accessoryCategoryIDs(ctx context.Context) ([]string, error) {
	if len(s.cfg.AccessoryCategoryNames) == 0 {
		return nil, nil
	}
	return s.store.CategoryIDsByNames(ctx, s.cfg.AccessoryCategoryNames)
}

// SEO is the metadata rendered into a product page head
type SEO struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	CanonicalURL string `json:"canonical_url"`
	Image        string `json:"image"`
}

// ProductDetail is everything a product page needs
type ProductDetail struct {
	Product             models.EnrichedProduct   `json:"product"`
	Images              []models.ProductImage    `json:"images"`
	CategoryDescription string                   `json:"category_description"`
	Similar             []models.EnrichedProduct `json:"similar"`
	Suggested           []models.EnrichedProduct `json:"suggested"`
	SEO                 SEO                      `json:"seo"`
}

// ProductDetail loads a product by slug together with its images and recommendations
func (s *CatalogService) ProductDetail(ctx context.Context, slug string) (*ProductDetail, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ProductDetail")
	defer span.End()

	product, err := s.store.GetProductBySlug(ctx, slug)
	if err != nil {
		return nil, util.RecordError(span, translate(fmt.Errorf("failed to get product: %w", err)))
	}

	images, err := s.store.ListProductImages(ctx, product.ID)
	if err != nil {
		s.logger.Error("Failed to list product images", zap.Error(err), zap.String("product_id", product.ID))
		images = []models.ProductImage{}
	}

	var categoryDescription string
	if product.CategoryID != "" {
		category, err := s.store.GetCategoryByID(ctx, product.CategoryID)
		switch {
		case err == nil:
			categoryDescription = category.Description
		case !errors.Is(err, store.ErrNotFound):
			s.logger.Error("Failed to load product category", zap.Error(err), zap.String("category_id", product.CategoryID))
		}
	}

	enriched := s.enricher.Enrich(ctx, []models.Product{*product})[0]

	similar, suggested := s.recommendations(ctx, product)
	batch := s.enricher.Enrich(ctx, append(append([]models.Product{}, similar...), suggested...))

	return &ProductDetail{
		Product:             enriched,
		Images:              images,
		CategoryDescription: categoryDescription,
		Similar:             batch[:len(similar)],
		Suggested:           batch[len(similar):],
		SEO:                 s.productSEO(enriched),
	}, nil
}

func (s *CatalogService) productSEO(p models.EnrichedProduct) SEO {
	price := util.FormatVND(p.Price)

	desc := strings.TrimSpace(p.Description)
	if desc == "" {
		desc = fmt.Sprintf("Mua %s giá tốt tại %s. %s. Giao hàng toàn quốc.", p.Name, s.cfg.StoreName, price)
	}
	if utf8.RuneCountInString(desc) > seoDescMaxLength {
		desc = string([]rune(desc)[:seoDescMaxLength-1]) + "…"
	}

	return SEO{
		Title:        fmt.Sprintf("%s - %s | %s", p.Name, price, s.cfg.StoreName),
		Description:  desc,
		CanonicalURL: s.ProductURL(p.Slug, p.ID),
		Image:        p.ImageURL,
	}
}

// ProductURL is the public page of a product, by slug or by id when the slug is empty
func (s *CatalogService) ProductURL(slug, id string) string {
	if slug == "" {
		slug = id
	}
	return s.cfg.BaseURL + "/shop/product/" + slug
}

// HomeSections are the product rows on the home page
type HomeSections struct {
	Latest []models.EnrichedProduct `json:"latest"`
	Male   []models.EnrichedProduct `json:"male"`
	Female []models.EnrichedProduct `json:"female"`
}

// Home returns the newest watches overall and per gender, excluding accessories.
// Complete results are cached for HomeCacheTTL.
func (s *CatalogService) Home(ctx context.Context) *HomeSections {
	ctx, span := util.StartSpan(ctx, "CatalogService.Home")
	defer span.End()

	var sections HomeSections
	if s.cache != nil {
		hit, err := s.cache.GetJSON(ctx, homeCacheKey, &sections)
		if err != nil {
			s.logger.Warn("Home cache read failed", zap.Error(err))
		}
		if hit {
			util.CacheRequestsTotal.WithLabelValues("home", "hit").Inc()
			return &sections
		}
		util.CacheRequestsTotal.WithLabelValues("home", "miss").Inc()
	}

	section := func(genders ...string) ([]models.EnrichedProduct, error) {
		page, err := s.listProducts(ctx, ProductListRequest{
			Genders:     genders,
			Page:        1,
			PageSize:    homeSectionSize,
			ShopContext: true,
		})
		return page.Items, err
	}

	var g errgroup.Group
	var latest, male, female []models.EnrichedProduct
	g.Go(func() (err error) { latest, err = section(); return })
	g.Go(func() (err error) { male, err = section(models.GenderMale); return })
	g.Go(func() (err error) { female, err = section(models.GenderFemale); return })
	degraded := g.Wait() != nil

	sections = HomeSections{Latest: latest, Male: male, Female: female}

	if s.cache != nil && !degraded {
		if err := s.cache.SetJSON(ctx, homeCacheKey, sections, s.cfg.HomeCacheTTL); err != nil {
			s.logger.Warn("Home cache write failed", zap.Error(err))
		}
	}
	return &sections
}

// Invalidate drops the cached home sections
func (s *CatalogService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, homeCacheKey)
}

// Landing page kinds
const (
	LandingCategory = "category"
	LandingBrand    = "brand"
	LandingStrap    = "strap"
)

// LandingPage is a category, brand or strap-material page with its products
type LandingPage struct {
	Kind            string      `json:"kind"`
	Slug            string      `json:"slug"`
	Name            string      `json:"name"`
	Description     string      `json:"description"`
	BannerURL       string      `json:"banner_url"`
	MetaTitle       string      `json:"meta_title"`
	MetaDescription string      `json:"meta_description"`
	Products        ProductPage `json:"products"`
}

// Landing resolves slug for the given kind and lists the products in it
func (s *CatalogService) Landing(ctx context.Context, kind, slug string, page, pageSize int) (*LandingPage, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.Landing")
	defer span.End()

	lp := &LandingPage{Kind: kind, Slug: slug}
	req := ProductListRequest{Page: page, PageSize: pageSize}

	switch kind {
	case LandingCategory:
		c, err := s.store.GetCategoryBySlug(ctx, slug)
		if err != nil {
			return nil, util.RecordError(span, translate(fmt.Errorf("failed to get category: %w", err)))
		}
		lp.Name, lp.Description, lp.BannerURL = c.Name, c.Description, c.BannerURL
		lp.MetaTitle, lp.MetaDescription = c.MetaTitle, c.MetaDescription
		req.Categories = []string{c.ID}

	case LandingBrand:
		b, err := s.store.GetBrandBySlug(ctx, slug)
		if err != nil {
			return nil, util.RecordError(span, translate(fmt.Errorf("failed to get brand: %w", err)))
		}
		lp.Name, lp.Description, lp.BannerURL = b.Name, b.Description, b.BannerURL
		lp.MetaTitle, lp.MetaDescription = b.MetaTitle, b.MetaDescription
		req.Brands = []string{b.ID}

	case LandingStrap:
		m, ok := models.StrapMaterials[slug]
		if !ok {
			return nil, fmt.Errorf("strap material %s: %w", slug, ErrNotFound)
		}
		lp.Name, lp.Description, lp.BannerURL = m.Name, m.Description, m.BannerURL
		lp.MetaTitle, lp.MetaDescription = m.MetaTitle, m.MetaDescription
		req.StrapOrAccessory = []string{m.StrapType}

	default:
		return nil, fmt.Errorf("landing kind %q: %w", kind, ErrInvalidInput)
	}

	if lp.MetaTitle == "" {
		lp.MetaTitle = lp.Name
	}
	lp.Products = *s.ListProducts(ctx, req)
	return lp, nil
}

// SitemapEntry is one URL in sitemap.xml
type SitemapEntry struct {
	URL             string
	LastModified    time.Time
	ChangeFrequency string
	Priority        float64
}

// Sitemap lists the static pages followed by every product page
func (s *CatalogService) Sitemap(ctx context.Context) ([]SitemapEntry, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.Sitemap")
	defer span.End()

	now := time.Now()
	entries := []SitemapEntry{
		{URL: s.cfg.BaseURL, LastModified: now, ChangeFrequency: "daily", Priority: 1},
		{URL: s.cfg.BaseURL + "/shop", LastModified: now, ChangeFrequency: "daily", Priority: 0.9},
	}

	refs, err := s.store.ListProductRefs(ctx)
	if err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to list products for sitemap: %w", err))
	}
	for _, r := range refs {
		entries = append(entries, SitemapEntry{
			URL:             s.ProductURL(r.Slug, r.ID),
			LastModified:    r.CreatedAt,
			ChangeFrequency: "weekly",
			Priority:        0.8,
		})
	}
	return entries, nil
}

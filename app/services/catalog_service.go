package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"gorm.io/gorm"

	"github.com/elmesiashu/tenseishitara/app/models"
	"github.com/elmesiashu/tenseishitara/app/repositories"
	"github.com/elmesiashu/tenseishitara/pkg/cache"
	"github.com/elmesiashu/tenseishitara/pkg/metrics"
	"github.com/elmesiashu/tenseishitara/pkg/response"
	"github.com/elmesiashu/tenseishitara/pkg/storage"
)

const (
	productListKey = "storefront:products:page:%d:%d"
	productListTTL = 5 * time.Minute
)

// CatalogService serves the product catalogue with a Redis read cache on
// the public listing. Admin writes invalidate cached pages lazily via TTL.
type CatalogService struct {
	products *repositories.ProductRepository
	cache    *cache.Cache
}

func NewCatalogService(products *repositories.ProductRepository, c *cache.Cache) *CatalogService {
	return &CatalogService{products: products, cache: c}
}

type productPage struct {
	Products   []models.Product    `json:"products"`
	Pagination response.Pagination `json:"pagination"`
}

// List returns a page of products, served from cache when possible.
func (s *CatalogService) List(ctx context.Context, page, limit int) ([]models.Product, response.Pagination, error) {
	key := fmt.Sprintf(productListKey, page, limit)

	var cached productPage
	if s.cache.Get(ctx, key, &cached) {
		metrics.CacheHits.WithLabelValues("redis").Inc()
		return cached.Products, cached.Pagination, nil
	}
	metrics.CacheMisses.WithLabelValues("redis").Inc()

	products, pagination, err := s.products.List(ctx, page, limit)
	if err != nil {
		return nil, response.Pagination{}, err
	}

	_ = s.cache.Set(ctx, key, productPage{Products: products, Pagination: pagination}, productListTTL)
	return products, pagination, nil
}

// Get returns one product with options.
func (s *CatalogService) Get(ctx context.Context, id uint) (models.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Product{}, ErrNotFound
		}
		return models.Product{}, err
	}
	return product, nil
}

// ProductInput is the validated admin create/update payload.
type ProductInput struct {
	Name        string               `json:"name" validate:"required,max=255"`
	Description string               `json:"description"`
	Category    string               `json:"category" validate:"max=100"`
	Price       float64              `json:"price" validate:"required,gt=0"`
	Stock       int                  `json:"stock" validate:"gte=0"`
	SKU         string               `json:"sku" validate:"required,max=100"`
	Options     []ProductOptionInput `json:"options"`
}

// ProductOptionInput is one variant row in the admin payload.
type ProductOptionInput struct {
	Name  string `json:"name" validate:"required,max=100"`
	Value string `json:"value" validate:"required,max=100"`
	Image string `json:"image" validate:"max=512"`
}

// Create adds a product to the catalogue.
func (s *CatalogService) Create(ctx context.Context, in ProductInput) (models.Product, error) {
	product := models.Product{
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		Price:       in.Price,
		Stock:       in.Stock,
		SKU:         in.SKU,
	}
	for _, opt := range in.Options {
		product.Options = append(product.Options, models.ProductOption{Name: opt.Name, Value: opt.Value, Image: opt.Image})
	}

	if err := s.products.Create(ctx, &product); err != nil {
		return models.Product{}, err
	}
	return product, nil
}

// Update edits an existing product. Captured order lines are unaffected.
func (s *CatalogService) Update(ctx context.Context, id uint, in ProductInput) (models.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return models.Product{}, err
	}

	product.Name = in.Name
	product.Description = in.Description
	product.Category = in.Category
	product.Price = in.Price
	product.Stock = in.Stock
	product.SKU = in.SKU

	if err := s.products.Update(ctx, &product); err != nil {
		return models.Product{}, err
	}
	return product, nil
}

// UploadImage stores a product image on the configured disk and records
// its public URL on the product.
func (s *CatalogService) UploadImage(ctx context.Context, id uint, filename string, r io.Reader) (models.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return models.Product{}, err
	}

	dest := path.Join("products", fmt.Sprintf("%d%s", id, path.Ext(filename)))
	if err := storage.PutStream(dest, r); err != nil {
		return models.Product{}, fmt.Errorf("catalog: store image: %w", err)
	}

	product.Image = storage.URL(dest)
	if err := s.products.Update(ctx, &product); err != nil {
		return models.Product{}, err
	}
	return product, nil
}

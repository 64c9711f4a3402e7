package repositories

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/elmesiashu/tenseishitara/app/models"
	"github.com/elmesiashu/tenseishitara/pkg/response"
)

// ProductRepository handles database operations for the catalogue.
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// List returns a page of products with their options.
func (r *ProductRepository) List(ctx context.Context, page, limit int) ([]models.Product, response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&total).Error; err != nil {
		return nil, response.Pagination{}, err
	}

	var products []models.Product
	err := r.db.WithContext(ctx).
		Preload("Options").
		Order("id").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, response.Pagination{}, err
	}

	pages := int((total + int64(limit) - 1) / int64(limit))
	return products, response.Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}, nil
}

// FindByID returns one product with its options.
func (r *ProductRepository) FindByID(ctx context.Context, id uint) (models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Preload("Options").First(&product, id).Error
	return product, err
}

// Create persists a new product and its options.
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Update persists catalogue edits.
func (r *ProductRepository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// LockForUpdate reads a product inside tx holding a row lock, so a
// concurrent checkout cannot read the same stock level until tx finishes.
// SQLite has no FOR UPDATE; its transactions already serialise writers.
func (r *ProductRepository) LockForUpdate(tx *gorm.DB, id uint) (models.Product, error) {
	if tx.Dialector.Name() != "sqlite" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var product models.Product
	err := tx.First(&product, id).Error
	return product, err
}

// DecrementStock reduces a locked product's stock inside tx.
func (r *ProductRepository) DecrementStock(tx *gorm.DB, id uint, qty int) error {
	return tx.Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty)).Error
}

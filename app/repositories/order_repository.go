package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/elmesiashu/tenseishitara/app/models"
	"github.com/elmesiashu/tenseishitara/pkg/response"
)

// OrderRepository handles database operations for orders.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateTx inserts the order header and its items inside tx. Items and
// their options are written through gorm associations in one pass.
func (r *OrderRepository) CreateTx(tx *gorm.DB, order *models.Order) error {
	return tx.Create(order).Error
}

// FindByOrderNo loads one order with items and options.
func (r *OrderRepository) FindByOrderNo(ctx context.Context, orderNo string) (models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Options").
		Where("order_no = ?", orderNo).
		First(&order).Error
	return order, err
}

// ListByUser returns a page of a user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID uint, page, limit int) ([]models.Order, response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, response.Pagination{}, err
	}

	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Options").
		Where("user_id = ?", userID).
		Order("id desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, response.Pagination{}, err
	}

	pages := int((total + int64(limit) - 1) / int64(limit))
	return orders, response.Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}, nil
}

// UpdateStatus sets the fulfillment status of one order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID uint, status string) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", status).Error
}

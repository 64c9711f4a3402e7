package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/elmesiashu/tenseishitara/app/models"
)

// PaymentRepository handles database operations for the wallet.
type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// ListByUser returns all of a user's stored cards, primary first.
func (r *PaymentRepository) ListByUser(ctx context.Context, userID uint) ([]models.PaymentMethod, error) {
	var methods []models.PaymentMethod
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_primary desc, id").
		Find(&methods).Error
	return methods, err
}

// FindByID looks up one stored card by primary key.
func (r *PaymentRepository) FindByID(ctx context.Context, id uint) (models.PaymentMethod, error) {
	var method models.PaymentMethod
	err := r.db.WithContext(ctx).First(&method, id).Error
	return method, err
}

// Create persists a new card. When flagged primary the user's other cards
// are demoted in the same transaction.
func (r *PaymentRepository) Create(ctx context.Context, method *models.PaymentMethod) error {
	return r.CreateTx(r.db.WithContext(ctx), method)
}

// CreateTx is Create running inside an existing transaction handle.
func (r *PaymentRepository) CreateTx(tx *gorm.DB, method *models.PaymentMethod) error {
	if method.IsPrimary {
		if err := clearPrimary(tx, &models.PaymentMethod{}, method.UserID); err != nil {
			return err
		}
	}
	return tx.Create(method).Error
}

// SetPrimary makes the named card the user's only primary one.
func (r *PaymentRepository) SetPrimary(ctx context.Context, userID, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearPrimary(tx, &models.PaymentMethod{}, userID); err != nil {
			return err
		}
		return tx.Model(&models.PaymentMethod{}).
			Where("id = ? AND user_id = ?", id, userID).
			Update("is_primary", true).Error
	})
}

// Delete removes a stored card.
func (r *PaymentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.PaymentMethod{}, id).Error
}

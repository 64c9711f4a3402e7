package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/elmesiashu/tenseishitara/app/models"
)

// AddressRepository handles database operations for the address book.
type AddressRepository struct {
	db *gorm.DB
}

func NewAddressRepository(db *gorm.DB) *AddressRepository {
	return &AddressRepository{db: db}
}

// ListByUser returns all of a user's addresses, primary first.
func (r *AddressRepository) ListByUser(ctx context.Context, userID uint) ([]models.Address, error) {
	var addresses []models.Address
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_primary desc, id").
		Find(&addresses).Error
	return addresses, err
}

// FindByID looks up one address by primary key.
func (r *AddressRepository) FindByID(ctx context.Context, id uint) (models.Address, error) {
	var address models.Address
	err := r.db.WithContext(ctx).First(&address, id).Error
	return address, err
}

// Create persists a new address. When the address is flagged primary the
// user's other addresses are demoted in the same transaction.
func (r *AddressRepository) Create(ctx context.Context, address *models.Address) error {
	return r.CreateTx(r.db.WithContext(ctx), address)
}

// CreateTx is Create running inside an existing transaction handle.
func (r *AddressRepository) CreateTx(tx *gorm.DB, address *models.Address) error {
	if address.IsPrimary {
		if err := clearPrimary(tx, &models.Address{}, address.UserID); err != nil {
			return err
		}
	}
	return tx.Create(address).Error
}

// Update persists edits to an address, keeping the primary flag exclusive.
func (r *AddressRepository) Update(ctx context.Context, address *models.Address) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if address.IsPrimary {
			if err := clearPrimary(tx, &models.Address{}, address.UserID); err != nil {
				return err
			}
		}
		return tx.Save(address).Error
	})
}

// SetPrimary makes the named address the user's only primary one.
func (r *AddressRepository) SetPrimary(ctx context.Context, userID, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearPrimary(tx, &models.Address{}, userID); err != nil {
			return err
		}
		return tx.Model(&models.Address{}).
			Where("id = ? AND user_id = ?", id, userID).
			Update("is_primary", true).Error
	})
}

// Delete removes an address.
func (r *AddressRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Address{}, id).Error
}

// clearPrimary demotes every primary row the user has for the given model.
func clearPrimary(tx *gorm.DB, model interface{}, userID uint) error {
	return tx.Model(model).
		Where("user_id = ? AND is_primary = ?", userID, true).
		Update("is_primary", false).Error
}

package seeders

import (
	"gorm.io/gorm"

	"github.com/elmesiashu/tenseishitara/app/models"
	"github.com/elmesiashu/tenseishitara/pkg/auth"
)

func init() {
	Register("admin_user", SeedAdminUser)
	Register("catalog", SeedCatalog)
}

// SeedAdminUser creates the default admin account if it does not exist.
func SeedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", "admin@storefront.local").Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword("admin-change-me")
	if err != nil {
		return err
	}

	return db.Create(&models.User{
		Name:     "Admin",
		Email:    "admin@storefront.local",
		Password: hash,
		Role:     "admin",
	}).Error
}

// SeedCatalog inserts a small demo catalogue.
func SeedCatalog(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	products := []models.Product{
		{
			Name:     "Classic Tee",
			Category: "Apparel",
			Price:    19.99,
			Stock:    120,
			SKU:      "TEE-001",
			Options: []models.ProductOption{
				{Name: "Size", Value: "S"},
				{Name: "Size", Value: "M"},
				{Name: "Size", Value: "L"},
			},
		},
		{
			Name:     "Canvas Tote",
			Category: "Accessories",
			Price:    24.50,
			Stock:    60,
			SKU:      "TOTE-001",
		},
		{
			Name:     "Enamel Mug",
			Category: "Homeware",
			Price:    12.00,
			Stock:    200,
			SKU:      "MUG-001",
			Options: []models.ProductOption{
				{Name: "Color", Value: "Navy", Image: "/img/products/mug-navy.jpg"},
				{Name: "Color", Value: "Cream", Image: "/img/products/mug-cream.jpg"},
			},
		},
	}

	return db.Create(&products).Error
}

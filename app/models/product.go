package models

import "gorm.io/gorm"

// Product represents a product in the catalogue.
type Product struct {
	gorm.Model
	Name        string          `gorm:"size:255;not null;index" json:"name"`
	Description string          `gorm:"type:text"              json:"description"`
	Category    string          `gorm:"size:100;index"         json:"category"`
	Price       float64         `gorm:"not null;default:0"     json:"price"`
	Stock       int             `gorm:"not null;default:0"     json:"stock"`
	SKU         string          `gorm:"size:100;uniqueIndex"   json:"sku"`
	Image       string          `gorm:"size:512"               json:"image"`
	Options     []ProductOption `gorm:"foreignKey:ProductID"   json:"options,omitempty"`
}

// ProductOption is a selectable variant attribute of a product,
// e.g. Name "Size", Value "M". Image is an optional preview shown when
// the option is selected.
type ProductOption struct {
	gorm.Model
	ProductID uint   `gorm:"not null;index" json:"product_id"`
	Name      string `gorm:"size:100;not null" json:"name"`
	Value     string `gorm:"size:100;not null" json:"value"`
	Image     string `gorm:"size:512" json:"image,omitempty"`
}

package models

import "gorm.io/gorm"

// PaymentMethod is a stored card in a user's wallet.
//
// Only the holder name, brand, last four digits and expiry are persisted.
// The full card number and CVV are validated in-flight during checkout and
// discarded.
type PaymentMethod struct {
	gorm.Model
	UserID     uint   `gorm:"not null;index" json:"user_id"`
	CardName   string `gorm:"size:255;not null" json:"card_name"`
	CardLast4  string `gorm:"size:4;not null" json:"card_last4"`
	CardType   string `gorm:"size:50;not null" json:"card_type"`
	ExpiryDate string `gorm:"size:7;not null" json:"expiry_date"` // MM/YYYY
	IsPrimary  bool   `gorm:"not null;default:false;index" json:"is_primary"`
}

package models

import "gorm.io/gorm"

// Address is a shipping address in a user's address book.
type Address struct {
	gorm.Model
	UserID    uint   `gorm:"not null;index" json:"user_id"`
	FullName  string `gorm:"size:255;not null" json:"full_name"`
	Country   string `gorm:"size:100;not null" json:"country"`
	Street    string `gorm:"size:255;not null" json:"address"`
	Unit      string `gorm:"size:50" json:"unit"`
	City      string `gorm:"size:100;not null" json:"city"`
	State     string `gorm:"size:100;not null" json:"state"`
	ZipCode   string `gorm:"size:20;not null" json:"zip_code"`
	Phone     string `gorm:"size:30;not null" json:"phone"`
	IsPrimary bool   `gorm:"not null;default:false;index" json:"is_primary"`
}

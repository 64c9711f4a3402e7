package models

import (
	"time"

	"gorm.io/gorm"
)

// Fulfillment statuses, in the order a shipment progresses.
const (
	StatusPlaced         = "Order Placed"
	StatusProcessing     = "Processing"
	StatusInTransit      = "In Transit"
	StatusOutForDelivery = "Out for Delivery"
	StatusDelivered      = "Delivered"
	StatusCancelled      = "Cancelled"
)

// StatusSequence lists the linear fulfillment progression. Cancelled sits
// outside the sequence and is reachable from any state except Delivered.
var StatusSequence = []string{
	StatusPlaced,
	StatusProcessing,
	StatusInTransit,
	StatusOutForDelivery,
	StatusDelivered,
}

// deliveryWindow is how far out the estimated delivery date is set.
const deliveryWindow = 5 * 24 * time.Hour

// Order is a placed order header.
type Order struct {
	gorm.Model
	UserID     uint        `gorm:"not null;index" json:"user_id"`
	OrderNo    string      `gorm:"size:64;uniqueIndex;not null" json:"order_no"`
	TrackingNo string      `gorm:"size:32;uniqueIndex;not null" json:"tracking_no"`
	Status     string      `gorm:"size:50;not null" json:"status"`
	AddressID  uint        `gorm:"not null" json:"address_id"`
	PaymentID  uint        `gorm:"not null" json:"payment_id"`
	Subtotal   float64     `gorm:"not null" json:"subtotal"`
	Tax        float64     `gorm:"not null" json:"tax"`
	Total      float64     `gorm:"not null" json:"total"`
	Items      []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
}

// EstimatedDelivery returns when the order is expected to arrive.
func (o Order) EstimatedDelivery() time.Time {
	return o.CreatedAt.Add(deliveryWindow)
}

// OrderItem is one purchased line. Name and Price are captured at purchase
// time so later catalogue edits never change what a receipt shows.
type OrderItem struct {
	gorm.Model
	OrderID   uint              `gorm:"not null;index" json:"order_id"`
	ProductID uint              `gorm:"not null;index" json:"product_id"`
	Name      string            `gorm:"size:255;not null" json:"name"`
	Price     float64           `gorm:"not null" json:"price"`
	Quantity  int               `gorm:"not null" json:"quantity"`
	Image     string            `gorm:"size:512" json:"image"`
	Options   []OrderItemOption `gorm:"foreignKey:OrderItemID" json:"options,omitempty"`
}

// OrderItemOption is a variant selection captured with the line,
// e.g. Name "Size", Value "M". ProductOptionID points back at the catalogue
// option that was chosen; name and value are copies so the receipt survives
// catalogue edits.
type OrderItemOption struct {
	gorm.Model
	OrderItemID     uint   `gorm:"not null;index" json:"order_item_id"`
	ProductOptionID uint   `gorm:"index" json:"product_option_id,omitempty"`
	Name            string `gorm:"size:100;not null" json:"name"`
	Value           string `gorm:"size:100;not null" json:"value"`
}

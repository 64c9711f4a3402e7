package migrations

import (
	"gorm.io/gorm"

	"github.com/elmesiashu/tenseishitara/app/models"
	"github.com/elmesiashu/tenseishitara/pkg/migration"
)

func init() {
	migration.Register("20260101000000_create_users_table", &CreateUsersTable{})
	migration.Register("20260101000001_create_products_table", &CreateProductsTable{})
	migration.Register("20260101000002_create_addresses_table", &CreateAddressesTable{})
	migration.Register("20260101000003_create_payment_methods_table", &CreatePaymentMethodsTable{})
	migration.Register("20260101000004_create_orders_table", &CreateOrdersTable{})
}

// -------- 0001: users --------

type CreateUsersTable struct{}

func (m *CreateUsersTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{})
}

func (m *CreateUsersTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("users")
}

// -------- 0002: products --------

type CreateProductsTable struct{}

func (m *CreateProductsTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Product{}, &models.ProductOption{})
}

func (m *CreateProductsTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("product_options", "products")
}

// -------- 0003: addresses --------

type CreateAddressesTable struct{}

func (m *CreateAddressesTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Address{})
}

func (m *CreateAddressesTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("addresses")
}

// -------- 0004: payment methods --------

type CreatePaymentMethodsTable struct{}

func (m *CreatePaymentMethodsTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.PaymentMethod{})
}

func (m *CreatePaymentMethodsTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("payment_methods")
}

// -------- 0005: orders --------

type CreateOrdersTable struct{}

func (m *CreateOrdersTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Order{}, &models.OrderItem{}, &models.OrderItemOption{})
}

func (m *CreateOrdersTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("order_item_options", "order_items", "orders")
}

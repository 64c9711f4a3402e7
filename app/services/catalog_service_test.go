package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/elmesiashu/tenseishitara/app/repositories"
	"github.com/elmesiashu/tenseishitara/app/services"
)

// Catalog tests run without Redis; the cache layer degrades to pass-through.
func newCatalog(db *gorm.DB) *services.CatalogService {
	return services.NewCatalogService(repositories.NewProductRepository(db), nil)
}

func TestCatalogListPagination(t *testing.T) {
	db := newTestDB(t)
	svc := newCatalog(db)

	for i := 0; i < 25; i++ {
		seedProduct(t, db, "Widget", 9.99, 10)
	}

	first, pagination, err := svc.List(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Len(t, first, 10)
	assert.EqualValues(t, 25, pagination.Total)
	assert.Equal(t, 3, pagination.TotalPages)

	last, _, err := svc.List(context.Background(), 3, 10)
	require.NoError(t, err)
	assert.Len(t, last, 5)
}

func TestCatalogGet(t *testing.T) {
	db := newTestDB(t)
	svc := newCatalog(db)

	created, err := svc.Create(context.Background(), services.ProductInput{
		Name:  "Lamp",
		Price: 49.99,
		Stock: 3,
		SKU:   "LAMP-001",
	})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lamp", got.Name)
	assert.Equal(t, 3, got.Stock)

	_, err = svc.Get(context.Background(), 999)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestCatalogCreateKeepsCategoryAndOptionImages(t *testing.T) {
	db := newTestDB(t)
	svc := newCatalog(db)

	created, err := svc.Create(context.Background(), services.ProductInput{
		Name:     "Enamel Mug",
		Category: "Homeware",
		Price:    12.00,
		Stock:    200,
		SKU:      "MUG-T01",
		Options: []services.ProductOptionInput{
			{Name: "Color", Value: "Navy", Image: "/img/products/mug-navy.jpg"},
			{Name: "Color", Value: "Cream"},
		},
	})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Homeware", got.Category)
	require.Len(t, got.Options, 2)
	assert.Equal(t, "/img/products/mug-navy.jpg", got.Options[0].Image)
	assert.Empty(t, got.Options[1].Image)

	// Category survives an edit too.
	updated, err := svc.Update(context.Background(), created.ID, services.ProductInput{
		Name:     "Enamel Mug",
		Category: "Kitchen",
		Price:    12.00,
		Stock:    180,
		SKU:      "MUG-T01",
	})
	require.NoError(t, err)
	assert.Equal(t, "Kitchen", updated.Category)
}

func TestCatalogUpdateDoesNotTouchPlacedOrders(t *testing.T) {
	db := newTestDB(t)
	svc := newCatalog(db)

	user := seedUser(t, db, "cat@example.com")
	order := placeTestOrder(t, db, user.ID)
	require.Len(t, order.Items, 1)
	originalName := order.Items[0].Name
	originalPrice := order.Items[0].Price

	_, err := svc.Update(context.Background(), order.Items[0].ProductID, services.ProductInput{
		Name:  "Renamed",
		Price: 99.99,
		Stock: 1,
		SKU:   "NEW-SKU",
	})
	require.NoError(t, err)

	// The captured line keeps the purchase-time name and price.
	orders := repositories.NewOrderRepository(db)
	reread, err := orders.FindByOrderNo(context.Background(), order.OrderNo)
	require.NoError(t, err)
	require.Len(t, reread.Items, 1)
	assert.Equal(t, originalName, reread.Items[0].Name)
	assert.InDelta(t, originalPrice, reread.Items[0].Price, 0.001)
}

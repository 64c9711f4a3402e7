package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/elmesiashu/tenseishitara/app/models"
	"github.com/elmesiashu/tenseishitara/app/repositories"
	"github.com/elmesiashu/tenseishitara/app/services"
	"github.com/elmesiashu/tenseishitara/pkg/database"
)

// newTestDB opens a per-test in-memory sqlite database. A single connection
// keeps gorm's pool from handing concurrent transactions separate empty
// in-memory databases.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Product{}, &models.ProductOption{},
		&models.Address{}, &models.PaymentMethod{},
		&models.Order{}, &models.OrderItem{}, &models.OrderItemOption{},
	))

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newCheckout(t *testing.T, db *gorm.DB) *services.CheckoutService {
	t.Helper()
	return services.NewCheckoutService(
		db,
		repositories.NewProductRepository(db),
		repositories.NewAddressRepository(db),
		repositories.NewPaymentRepository(db),
		repositories.NewOrderRepository(db),
		0.10,
	)
}

func seedUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	u := models.User{Name: "Test Shopper", Email: email, Password: "x", Role: "user"}
	require.NoError(t, db.Create(&u).Error)
	return u
}

var skuSeq atomic.Int64

func seedProduct(t *testing.T, db *gorm.DB, name string, price float64, stock int) models.Product {
	t.Helper()
	p := models.Product{Name: name, Price: price, Stock: stock, SKU: fmt.Sprintf("SKU-%d", skuSeq.Add(1))}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func seedAddress(t *testing.T, db *gorm.DB, userID uint) models.Address {
	t.Helper()
	a := models.Address{
		UserID: userID, FullName: "Test Shopper", Country: "US",
		Street: "1 Main St", City: "Springfield", State: "IL",
		ZipCode: "62701", Phone: "5551234567",
	}
	require.NoError(t, db.Create(&a).Error)
	return a
}

func seedPayment(t *testing.T, db *gorm.DB, userID uint) models.PaymentMethod {
	t.Helper()
	p := models.PaymentMethod{
		UserID: userID, CardName: "Test Shopper", CardLast4: "4242",
		CardType: "Visa", ExpiryDate: "12/2030",
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func validCard() *services.CardInput {
	return &services.CardInput{
		CardName:   "Test Shopper",
		CardNumber: "4242424242424242",
		CVV:        "123",
		ExpiryDate: "12/2030",
	}
}

func validAddress() *services.AddressInput {
	return &services.AddressInput{
		FullName: "Test Shopper", Country: "US", Street: "1 Main St",
		City: "Springfield", State: "IL", ZipCode: "62701", Phone: "5551234567",
	}
}

func TestPlaceOrderSavedAddressAndCard(t *testing.T) {
	db := newTestDB(t)
	svc := newCheckout(t, db)

	user := seedUser(t, db, "a@example.com")
	mug := seedProduct(t, db, "Mug", 12.00, 10)
	tee := seedProduct(t, db, "Tee", 19.99, 5)
	addr := seedAddress(t, db, user.ID)
	card := seedPayment(t, db, user.ID)

	order, err := svc.PlaceOrder(context.Background(), user.ID, services.PlaceOrderInput{
		Items: []services.CartLine{
			{ProductID: mug.ID, Quantity: 2, Options: []services.ItemOption{{Name: "Color", Value: "Navy"}}},
			{ProductID: tee.ID, Quantity: 1},
		},
		AddressID: addr.ID,
		PaymentID: card.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPlaced, order.Status)
	assert.Equal(t, addr.ID, order.AddressID)
	assert.Equal(t, card.ID, order.PaymentID)
	assert.True(t, strings.HasPrefix(order.OrderNo, "ORD-"))
	assert.True(t, strings.HasPrefix(order.TrackingNo, "TRK-"))

	// Server-side totals from catalogue prices, 10% tax, rounded.
	assert.InDelta(t, 43.99, order.Subtotal, 0.001)
	assert.InDelta(t, 4.40, order.Tax, 0.001)
	assert.InDelta(t, 48.39, order.Total, 0.001)

	// Lines capture name and price at purchase time.
	require.Len(t, order.Items, 2)
	assert.Equal(t, "Mug", order.Items[0].Name)
	assert.InDelta(t, 12.00, order.Items[0].Price, 0.001)
	assert.Equal(t, 2, order.Items[0].Quantity)

	// Stock decremented.
	var gotMug, gotTee models.Product
	require.NoError(t, db.First(&gotMug, mug.ID).Error)
	require.NoError(t, db.First(&gotTee, tee.ID).Error)
	assert.Equal(t, 8, gotMug.Stock)
	assert.Equal(t, 4, gotTee.Stock)

	// Options persisted with the line.
	var opts []models.OrderItemOption
	require.NoError(t, db.Where("order_item_id = ?", order.Items[0].ID).Find(&opts).Error)
	require.Len(t, opts, 1)
	assert.Equal(t, "Navy", opts[0].Value)
}

func TestPlaceOrderInlineAddressAndCard(t *testing.T) {
	db := newTestDB(t)
	svc := newCheckout(t, db)

	user := seedUser(t, db, "b@example.com")
	mug := seedProduct(t, db, "Mug", 12.00, 10)

	order, err := svc.PlaceOrder(context.Background(), user.ID, services.PlaceOrderInput{
		Items:   []services.CartLine{{ProductID: mug.ID, Quantity: 1}},
		Address: validAddress(),
		Card:    validCard(),
	})
	require.NoError(t, err)

	// Both records materialised, owned by the buyer, and referenced.
	var addr models.Address
	require.NoError(t, db.First(&addr, order.AddressID).Error)
	assert.Equal(t, user.ID, addr.UserID)

	var method models.PaymentMethod
	require.NoError(t, db.First(&method, order.PaymentID).Error)
	assert.Equal(t, user.ID, method.UserID)

	// Only derived card details persist, never the full number or CVV.
	assert.Equal(t, "4242", method.CardLast4)
	assert.Equal(t, "Visa", method.CardType)
}

func TestPlaceOrderInlinePrimaryAddressDemotesOldPrimary(t *testing.T) {
	db := newTestDB(t)
	svc := newCheckout(t, db)

	user := seedUser(t, db, "primary@example.com")
	mug := seedProduct(t, db, "Mug", 12.00, 10)

	old := seedAddress(t, db, user.ID)
	require.NoError(t, db.Model(&models.Address{}).Where("id = ?", old.ID).
		Update("is_primary", true).Error)

	addr := validAddress()
	addr.Street = "9 New Home Rd"
	addr.IsPrimary = true

	order, err := svc.PlaceOrder(context.Background(), user.ID, services.PlaceOrderInput{
		Items:   []services.CartLine{{ProductID: mug.ID, Quantity: 1}},
		Address: addr,
		Card:    validCard(),
	})
	require.NoError(t, err)

	// Exactly one primary address, the new one, and the order points at it.
	var primaries []models.Address
	require.NoError(t, db.Where("user_id = ? AND is_primary = ?", user.ID, true).Find(&primaries).Error)
	require.Len(t, primaries, 1)
	assert.Equal(t, order.AddressID, primaries[0].ID)
	assert.Equal(t, "9 New Home Rd", primaries[0].Street)
}

func TestPlaceOrderInlinePrimaryCardDemotesOldPrimary(t *testing.T) {
	db := newTestDB(t)
	svc := newCheckout(t, db)

	user := seedUser(t, db, "c@example.com")
	mug := seedProduct(t, db, "Mug", 12.00, 10)

	old := models.PaymentMethod{
		UserID: user.ID, CardName: "Old", CardLast4: "1111",
		CardType: "Visa", ExpiryDate: "01/2029", IsPrimary: true,
	}
	require.NoError(t, db.Create(&old).Error)

	card := validCard()
	card.IsPrimary = true

	order, err := svc.PlaceOrder(context.Background(), user.ID, services.PlaceOrderInput{
		Items:   []services.CartLine{{ProductID: mug.ID, Quantity: 1}},
		Address: validAddress(),
		Card:    card,
	})
	require.NoError(t, err)

	var primaries []models.PaymentMethod
	require.NoError(t, db.Where("user_id = ? AND is_primary = ?", user.ID, true).Find(&primaries).Error)
	require.Len(t, primaries, 1)
	assert.Equal(t, order.PaymentID, primaries[0].ID)
}

func TestPlaceOrderInsufficientStockRollsBackEverything(t *testing.T) {
	db := newTestDB(t)
	svc := newCheckout(t, db)

	user := seedUser(t, db, "d@example.com")
	mug := seedProduct(t, db, "Mug", 12.00, 10)
	tote := seedProduct(t, db, "Tote", 24.50, 1)

	_, err := svc.PlaceOrder(context.Background(), user.ID, services.PlaceOrderInput{
		Items: []services.CartLine{
			{ProductID: mug.ID, Quantity: 2},
			{ProductID: tote.ID, Quantity: 3},
		},
		Address: validAddress(),
		Card:    validCard(),
	})

	var stockErr *services.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Tote", stockErr.Product)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 1, stockErr.Available)

	// Nothing survives the rollback: no order rows, no stock change, and
	// the inline address and card were never materialised.
	var orders, items, addresses, payments int64
	db.Model(&models.Order{}).Count(&orders)
	db.Model(&models.OrderItem{}).Count(&items)
	db.Model(&models.Address{}).Count(&addresses)
	db.Model(&models.PaymentMethod{}).Count(&payments)
	assert.Zero(t, orders)
	assert.Zero(t, items)
	assert.Zero(t, addresses)
	assert.Zero(t, payments)

	var gotMug models.Product
	require.NoError(t, db.First(&gotMug, mug.ID).Error)
	assert.Equal(t, 10, gotMug.Stock)
}

func TestPlaceOrderUnknownProduct(t *testing.T) {
	db := newTestDB(t)
	svc := newCheckout(t, db)

	user := seedUser(t, db, "e@example.com")

	_, err := svc.PlaceOrder(context.Background(), user.ID, services.PlaceOrderInput{
		Items:   []services.CartLine{{ProductID: 999, Quantity: 1}},
		Address: validAddress(),
		Card:    validCard(),
	})
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestPlaceOrderAddressOwnership(t *testing.T) {
	db := newTestDB(t)
	svc := newCheckout(t, db)

	owner := seedUser(t, db, "owner@example.com")
	buyer := seedUser(t, db, "buyer@example.com")
	mug := seedProduct(t, db, "Mug", 12.00, 10)
	theirAddr := seedAddress(t, db, owner.ID)

	_, err := svc.PlaceOrder(context.Background(), buyer.ID, services.PlaceOrderInput{
		Items:     []services.CartLine{{ProductID: mug.ID, Quantity: 1}},
		AddressID: theirAddr.ID,
		Card:      validCard(),
	})
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = svc.PlaceOrder(context.Background(), buyer.ID, services.PlaceOrderInput{
		Items:     []services.CartLine{{ProductID: mug.ID, Quantity: 1}},
		AddressID: 12345,
		Card:      validCard(),
	})
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestPlaceOrderPaymentOwnership(t *testing.T) {
	db := newTestDB(t)
	svc := newCheckout(t, db)

	owner := seedUser(t, db, "owner2@example.com")
	buyer := seedUser(t, db, "buyer2@example.com")
	mug := seedProduct(t, db, "Mug", 12.00, 10)
	theirCard := seedPayment(t, db, owner.ID)

	_, err := svc.PlaceOrder(context.Background(), buyer.ID, services.PlaceOrderInput{
		Items:     []services.CartLine{{ProductID: mug.ID, Quantity: 1}},
		Address:   validAddress(),
		PaymentID: theirCard.ID,
	})
	assert.ErrorIs(t, err, services.ErrForbidden)
}

func TestPlaceOrderValidation(t *testing.T) {
	db := newTestDB(t)
	svc := newCheckout(t, db)
	user := seedUser(t, db, "f@example.com")
	mug := seedProduct(t, db, "Mug", 12.00, 10)
	addr := seedAddress(t, db, user.ID)
	card := seedPayment(t, db, user.ID)

	cases := []struct {
		name  string
		in    services.PlaceOrderInput
		field string
	}{
		{
			name:  "empty cart",
			in:    services.PlaceOrderInput{AddressID: addr.ID, PaymentID: card.ID},
			field: "items",
		},
		{
			name: "zero quantity",
			in: services.PlaceOrderInput{
				Items:     []services.CartLine{{ProductID: mug.ID, Quantity: 0}},
				AddressID: addr.ID, PaymentID: card.ID,
			},
			field: "items.0.quantity",
		},
		{
			name: "no address",
			in: services.PlaceOrderInput{
				Items:     []services.CartLine{{ProductID: mug.ID, Quantity: 1}},
				PaymentID: card.ID,
			},
			field: "address",
		},
		{
			name: "both address forms",
			in: services.PlaceOrderInput{
				Items:     []services.CartLine{{ProductID: mug.ID, Quantity: 1}},
				AddressID: addr.ID, Address: validAddress(), PaymentID: card.ID,
			},
			field: "address",
		},
		{
			name: "no payment",
			in: services.PlaceOrderInput{
				Items:     []services.CartLine{{ProductID: mug.ID, Quantity: 1}},
				AddressID: addr.ID,
			},
			field: "payment",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.PlaceOrder(context.Background(), user.ID, tc.in)
			var verr *services.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tc.field)
		})
	}
}

func TestPlaceOrderInvalidInlineCard(t *testing.T) {
	db := newTestDB(t)
	svc := newCheckout(t, db)
	user := seedUser(t, db, "g@example.com")
	mug := seedProduct(t, db, "Mug", 12.00, 10)

	card := validCard()
	card.CardNumber = "42424242" // too short
	card.ExpiryDate = "13/2030"  // no such month

	_, err := svc.PlaceOrder(context.Background(), user.ID, services.PlaceOrderInput{
		Items:   []services.CartLine{{ProductID: mug.ID, Quantity: 1}},
		Address: validAddress(),
		Card:    card,
	})

	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "card_number")
	assert.Contains(t, verr.Fields, "expiry_date")

	// Validation failure happens before any write.
	var payments int64
	db.Model(&models.PaymentMethod{}).Count(&payments)
	assert.Zero(t, payments)
}

func TestPlaceOrderRejectsUnsupportedCardBrand(t *testing.T) {
	db := newTestDB(t)
	svc := newCheckout(t, db)
	user := seedUser(t, db, "amex@example.com")
	mug := seedProduct(t, db, "Mug", 12.00, 10)

	// Sixteen digits, so the length rule passes, but an Amex prefix.
	card := validCard()
	card.CardNumber = "3714496353984312"

	_, err := svc.PlaceOrder(context.Background(), user.ID, services.PlaceOrderInput{
		Items:   []services.CartLine{{ProductID: mug.ID, Quantity: 1}},
		Address: validAddress(),
		Card:    card,
	})

	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Only Visa or MasterCard are accepted.", verr.Fields["card_number"])

	var orders, payments int64
	db.Model(&models.Order{}).Count(&orders)
	db.Model(&models.PaymentMethod{}).Count(&payments)
	assert.Zero(t, orders)
	assert.Zero(t, payments)

	var got models.Product
	require.NoError(t, db.First(&got, mug.ID).Error)
	assert.Equal(t, 10, got.Stock)
}

func TestPlaceOrderDropsForeignOptionReference(t *testing.T) {
	db := newTestDB(t)
	svc := newCheckout(t, db)
	user := seedUser(t, db, "opts@example.com")
	mug := seedProduct(t, db, "Mug", 12.00, 10)
	tee := seedProduct(t, db, "Tee", 19.99, 10)

	mugColor := models.ProductOption{ProductID: mug.ID, Name: "Color", Value: "Navy"}
	teeSize := models.ProductOption{ProductID: tee.ID, Name: "Size", Value: "M"}
	require.NoError(t, db.Create(&mugColor).Error)
	require.NoError(t, db.Create(&teeSize).Error)

	order, err := svc.PlaceOrder(context.Background(), user.ID, services.PlaceOrderInput{
		Items: []services.CartLine{{ProductID: mug.ID, Quantity: 1, Options: []services.ItemOption{
			{OptionID: mugColor.ID, Name: "Color", Value: "Navy"},
			{OptionID: teeSize.ID, Name: "Size", Value: "M"},
		}}},
		Address: validAddress(),
		Card:    validCard(),
	})
	require.NoError(t, err)

	var opts []models.OrderItemOption
	require.NoError(t, db.Where("order_item_id = ?", order.Items[0].ID).Order("id").Find(&opts).Error)
	require.Len(t, opts, 2)

	// The mug's own option keeps its catalogue reference.
	assert.Equal(t, mugColor.ID, opts[0].ProductOptionID)

	// The reference to another product's option is dropped, but the
	// captured name and value still describe the line.
	assert.Zero(t, opts[1].ProductOptionID)
	assert.Equal(t, "Size", opts[1].Name)
	assert.Equal(t, "M", opts[1].Value)
}

func TestPlaceOrderClientTotalMismatchStillPlaces(t *testing.T) {
	db := newTestDB(t)
	svc := newCheckout(t, db)
	user := seedUser(t, db, "total@example.com")
	mug := seedProduct(t, db, "Mug", 12.00, 10)

	// A stale storefront total, even a zero one, never blocks checkout.
	for _, clientTotal := range []float64{9.99, 0} {
		stale := clientTotal
		order, err := svc.PlaceOrder(context.Background(), user.ID, services.PlaceOrderInput{
			Items:       []services.CartLine{{ProductID: mug.ID, Quantity: 1}},
			Address:     validAddress(),
			Card:        validCard(),
			ClientTotal: &stale,
		})
		require.NoError(t, err)
		assert.InDelta(t, 13.20, order.Total, 0.001)
	}
}

func TestPlaceOrderConcurrentLastUnit(t *testing.T) {
	db := newTestDB(t)
	svc := newCheckout(t, db)

	alice := seedUser(t, db, "alice@example.com")
	bob := seedUser(t, db, "bob@example.com")
	lamp := seedProduct(t, db, "Lamp", 49.99, 1)

	aliceAddr := seedAddress(t, db, alice.ID)
	aliceCard := seedPayment(t, db, alice.ID)
	bobAddr := seedAddress(t, db, bob.ID)
	bobCard := seedPayment(t, db, bob.ID)

	place := func(userID, addrID, cardID uint) error {
		_, err := svc.PlaceOrder(context.Background(), userID, services.PlaceOrderInput{
			Items:     []services.CartLine{{ProductID: lamp.ID, Quantity: 1}},
			AddressID: addrID,
			PaymentID: cardID,
		})
		return err
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() { defer wg.Done(); errs[0] = place(alice.ID, aliceAddr.ID, aliceCard.ID) }()
	go func() { defer wg.Done(); errs[1] = place(bob.ID, bobAddr.ID, bobCard.ID) }()
	wg.Wait()

	// Exactly one buyer wins the last unit; the other gets a stock error.
	var stockErrs, successes int
	for _, err := range errs {
		var se *services.InsufficientStockError
		switch {
		case err == nil:
			successes++
		case errors.As(err, &se):
			stockErrs++
			assert.Equal(t, "Lamp", se.Product)
			assert.Equal(t, 0, se.Available)
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, stockErrs)

	var got models.Product
	require.NoError(t, db.First(&got, lamp.ID).Error)
	assert.Equal(t, 0, got.Stock)

	var orders int64
	db.Model(&models.Order{}).Count(&orders)
	assert.EqualValues(t, 1, orders)
}

func TestIdentifierFormats(t *testing.T) {
	orderNo := services.NewOrderNo()
	assert.Regexp(t, `^ORD-\d{14}-\d{6}$`, orderNo)

	trackingNo := services.NewTrackingNo()
	assert.Regexp(t, `^TRK-\d{10}$`, trackingNo)

	// Fresh values on every call.
	assert.NotEqual(t, trackingNo, services.NewTrackingNo())
}

package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/elmesiashu/tenseishitara/app/models"
	"github.com/elmesiashu/tenseishitara/app/repositories"
	"github.com/elmesiashu/tenseishitara/app/services"
)

func newOrderService(db *gorm.DB) *services.OrderService {
	return services.NewOrderService(
		repositories.NewOrderRepository(db),
		repositories.NewAddressRepository(db),
		repositories.NewPaymentRepository(db),
	)
}

// placeTestOrder runs a real checkout so reader tests see exactly what the
// placement path persists.
func placeTestOrder(t *testing.T, db *gorm.DB, userID uint) models.Order {
	t.Helper()

	mug := seedProduct(t, db, "Mug-"+t.Name(), 12.00, 10)
	addr := seedAddress(t, db, userID)
	card := seedPayment(t, db, userID)

	order, err := newCheckout(t, db).PlaceOrder(context.Background(), userID, services.PlaceOrderInput{
		Items:     []services.CartLine{{ProductID: mug.ID, Quantity: 2}},
		AddressID: addr.ID,
		PaymentID: card.ID,
	})
	require.NoError(t, err)
	return order
}

func TestOrderGetOwnerAndAdmin(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderService(db)

	owner := seedUser(t, db, "owner@example.com")
	stranger := seedUser(t, db, "stranger@example.com")
	order := placeTestOrder(t, db, owner.ID)

	view, err := svc.Get(context.Background(), owner.ID, "user", order.OrderNo)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNo, view.OrderNo)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
	require.NotNil(t, view.Address)
	require.NotNil(t, view.Payment)
	assert.Equal(t, "4242", view.Payment.CardLast4)
	assert.Equal(t, view.CreatedAt.Add(5*24*time.Hour), view.EstimatedDelivery)

	// Admins can read any order.
	_, err = svc.Get(context.Background(), stranger.ID, "admin", order.OrderNo)
	assert.NoError(t, err)

	// Other shoppers cannot.
	_, err = svc.Get(context.Background(), stranger.ID, "user", order.OrderNo)
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = svc.Get(context.Background(), owner.ID, "user", "ORD-00000000000000-000000")
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestOrderGetIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderService(db)

	owner := seedUser(t, db, "h@example.com")
	order := placeTestOrder(t, db, owner.ID)

	first, err := svc.Get(context.Background(), owner.ID, "user", order.OrderNo)
	require.NoError(t, err)
	second, err := svc.Get(context.Background(), owner.ID, "user", order.OrderNo)
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Total, second.Total)
	assert.Len(t, second.Items, len(first.Items))
}

func TestOrderViewSurvivesDeletedAddress(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderService(db)

	owner := seedUser(t, db, "i@example.com")
	order := placeTestOrder(t, db, owner.ID)

	require.NoError(t, db.Delete(&models.Address{}, order.AddressID).Error)

	view, err := svc.Get(context.Background(), owner.ID, "user", order.OrderNo)
	require.NoError(t, err)
	assert.Nil(t, view.Address)
	assert.NotNil(t, view.Payment)
	assert.Equal(t, order.Total, view.Total)
}

func TestOrderList(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderService(db)

	owner := seedUser(t, db, "j@example.com")
	other := seedUser(t, db, "k@example.com")
	first := placeTestOrder(t, db, owner.ID)
	second := placeTestOrder(t, db, owner.ID)
	placeTestOrder(t, db, other.ID)

	views, pagination, err := svc.List(context.Background(), owner.ID, 1, 20)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.EqualValues(t, 2, pagination.Total)

	// Newest first, and never another user's orders.
	assert.Equal(t, second.OrderNo, views[0].OrderNo)
	assert.Equal(t, first.OrderNo, views[1].OrderNo)
}

func TestOrderStatusProgression(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderService(db)

	owner := seedUser(t, db, "l@example.com")
	order := placeTestOrder(t, db, owner.ID)

	// Each step in sequence succeeds.
	for _, next := range models.StatusSequence[1:] {
		view, err := svc.UpdateStatus(context.Background(), order.OrderNo, next)
		require.NoError(t, err, "transition to %s", next)
		assert.Equal(t, next, view.Status)
	}

	// Delivered is terminal.
	_, err := svc.UpdateStatus(context.Background(), order.OrderNo, models.StatusCancelled)
	assert.ErrorIs(t, err, services.ErrInvalidTransition)
}

func TestOrderStatusRejectsSkipsAndBackwards(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderService(db)

	owner := seedUser(t, db, "m@example.com")
	order := placeTestOrder(t, db, owner.ID)

	// Skipping a step.
	_, err := svc.UpdateStatus(context.Background(), order.OrderNo, models.StatusInTransit)
	assert.ErrorIs(t, err, services.ErrInvalidTransition)

	// Staying put.
	_, err = svc.UpdateStatus(context.Background(), order.OrderNo, models.StatusPlaced)
	assert.ErrorIs(t, err, services.ErrInvalidTransition)

	// Moving backwards after a valid step.
	_, err = svc.UpdateStatus(context.Background(), order.OrderNo, models.StatusProcessing)
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), order.OrderNo, models.StatusPlaced)
	assert.ErrorIs(t, err, services.ErrInvalidTransition)

	// Unknown status.
	_, err = svc.UpdateStatus(context.Background(), order.OrderNo, "Teleported")
	assert.ErrorIs(t, err, services.ErrInvalidTransition)
}

func TestOrderCancellation(t *testing.T) {
	db := newTestDB(t)
	svc := newOrderService(db)

	owner := seedUser(t, db, "n@example.com")

	// Cancellable from mid-sequence.
	order := placeTestOrder(t, db, owner.ID)
	_, err := svc.UpdateStatus(context.Background(), order.OrderNo, models.StatusProcessing)
	require.NoError(t, err)
	view, err := svc.UpdateStatus(context.Background(), order.OrderNo, models.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, view.Status)

	// Cancelled is terminal.
	_, err = svc.UpdateStatus(context.Background(), order.OrderNo, models.StatusProcessing)
	assert.ErrorIs(t, err, services.ErrInvalidTransition)
	_, err = svc.UpdateStatus(context.Background(), order.OrderNo, models.StatusCancelled)
	assert.ErrorIs(t, err, services.ErrInvalidTransition)
}

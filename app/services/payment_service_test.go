package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elmesiashu/tenseishitara/app/models"
	"github.com/elmesiashu/tenseishitara/app/repositories"
	"github.com/elmesiashu/tenseishitara/app/services"
)

func TestCardBrand(t *testing.T) {
	assert.Equal(t, "Visa", services.CardBrand("4242424242424242"))
	assert.Equal(t, "MasterCard", services.CardBrand("5155555555554444"))
	assert.Equal(t, "MasterCard", services.CardBrand("5555555555554444"))
	assert.Equal(t, "Card", services.CardBrand("6011000990139424"))
	assert.Equal(t, "Card", services.CardBrand("5655555555554444"))
}

func TestPaymentCreateRejectsUnsupportedBrand(t *testing.T) {
	db := newTestDB(t)
	svc := services.NewPaymentService(repositories.NewPaymentRepository(db))

	user := seedUser(t, db, "discover@example.com")

	card := *validCard()
	card.CardNumber = "6011000990139424"

	_, err := svc.Create(context.Background(), user.ID, card)

	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Only Visa or MasterCard are accepted.", verr.Fields["card_number"])

	var count int64
	db.Model(&models.PaymentMethod{}).Count(&count)
	assert.Zero(t, count)
}

func TestPaymentCreateStoresOnlyDerivedFields(t *testing.T) {
	db := newTestDB(t)
	svc := services.NewPaymentService(repositories.NewPaymentRepository(db))

	user := seedUser(t, db, "card@example.com")

	method, err := svc.Create(context.Background(), user.ID, *validCard())
	require.NoError(t, err)

	var stored models.PaymentMethod
	require.NoError(t, db.First(&stored, method.ID).Error)
	assert.Equal(t, "4242", stored.CardLast4)
	assert.Equal(t, "Visa", stored.CardType)
	assert.Equal(t, "12/2030", stored.ExpiryDate)
	assert.Equal(t, "Test Shopper", stored.CardName)
}

func TestPaymentPrimaryIsExclusive(t *testing.T) {
	db := newTestDB(t)
	svc := services.NewPaymentService(repositories.NewPaymentRepository(db))

	user := seedUser(t, db, "card2@example.com")

	first := *validCard()
	first.IsPrimary = true
	a, err := svc.Create(context.Background(), user.ID, first)
	require.NoError(t, err)

	second := *validCard()
	second.CardNumber = "5155555555554444"
	second.IsPrimary = true
	b, err := svc.Create(context.Background(), user.ID, second)
	require.NoError(t, err)

	var primaries []models.PaymentMethod
	require.NoError(t, db.Where("user_id = ? AND is_primary = ?", user.ID, true).Find(&primaries).Error)
	require.Len(t, primaries, 1)
	assert.Equal(t, b.ID, primaries[0].ID)

	require.NoError(t, svc.SetPrimary(context.Background(), user.ID, a.ID))
	require.NoError(t, db.Where("user_id = ? AND is_primary = ?", user.ID, true).Find(&primaries).Error)
	require.Len(t, primaries, 1)
	assert.Equal(t, a.ID, primaries[0].ID)
}

func TestPaymentOwnership(t *testing.T) {
	db := newTestDB(t)
	svc := services.NewPaymentService(repositories.NewPaymentRepository(db))

	owner := seedUser(t, db, "card3@example.com")
	stranger := seedUser(t, db, "card4@example.com")
	card := seedPayment(t, db, owner.ID)

	_, err := svc.Get(context.Background(), stranger.ID, card.ID)
	assert.ErrorIs(t, err, services.ErrForbidden)

	err = svc.Delete(context.Background(), stranger.ID, card.ID)
	assert.ErrorIs(t, err, services.ErrForbidden)

	err = svc.SetPrimary(context.Background(), stranger.ID, card.ID)
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = svc.Get(context.Background(), owner.ID, 999)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestPaymentDeleteKeepsOrderReference(t *testing.T) {
	db := newTestDB(t)
	svc := services.NewPaymentService(repositories.NewPaymentRepository(db))

	user := seedUser(t, db, "card5@example.com")
	order := placeTestOrder(t, db, user.ID)

	require.NoError(t, svc.Delete(context.Background(), user.ID, order.PaymentID))

	// The order row still points at the removed card.
	var got models.Order
	require.NoError(t, db.First(&got, order.ID).Error)
	assert.Equal(t, order.PaymentID, got.PaymentID)
}

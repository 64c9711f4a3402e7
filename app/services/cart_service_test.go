package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elmesiashu/tenseishitara/app/repositories"
	"github.com/elmesiashu/tenseishitara/app/services"
)

func TestCartAddAndMerge(t *testing.T) {
	db := newTestDB(t)
	svc := services.NewCartService(repositories.NewProductRepository(db))

	mug := seedProduct(t, db, "Mug", 12.00, 10)
	tee := seedProduct(t, db, "Tee", 19.99, 5)

	navy := []services.ItemOption{{Name: "Color", Value: "Navy"}}
	cream := []services.ItemOption{{Name: "Color", Value: "Cream"}}

	cart, err := svc.Add(context.Background(), nil, mug.ID, 1, navy)
	require.NoError(t, err)
	require.Len(t, cart, 1)
	assert.Equal(t, "Mug", cart[0].Name)
	assert.InDelta(t, 12.00, cart[0].Price, 0.001)

	// Same product and options merge into one line.
	cart, err = svc.Add(context.Background(), cart, mug.ID, 2, navy)
	require.NoError(t, err)
	require.Len(t, cart, 1)
	assert.Equal(t, 3, cart[0].Quantity)

	// Different options make a new line.
	cart, err = svc.Add(context.Background(), cart, mug.ID, 1, cream)
	require.NoError(t, err)
	require.Len(t, cart, 2)

	cart, err = svc.Add(context.Background(), cart, tee.ID, 1, nil)
	require.NoError(t, err)
	require.Len(t, cart, 3)
}

func TestCartAddRejectsBadInput(t *testing.T) {
	db := newTestDB(t)
	svc := services.NewCartService(repositories.NewProductRepository(db))

	mug := seedProduct(t, db, "Mug", 12.00, 10)

	_, err := svc.Add(context.Background(), nil, mug.ID, 0, nil)
	var verr *services.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.Add(context.Background(), nil, 999, 1, nil)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestCartUpdateAndRemove(t *testing.T) {
	db := newTestDB(t)
	svc := services.NewCartService(repositories.NewProductRepository(db))

	mug := seedProduct(t, db, "Mug", 12.00, 10)
	tee := seedProduct(t, db, "Tee", 19.99, 5)

	cart, err := svc.Add(context.Background(), nil, mug.ID, 2, nil)
	require.NoError(t, err)
	cart, err = svc.Add(context.Background(), cart, tee.ID, 1, nil)
	require.NoError(t, err)

	cart, err = svc.UpdateQuantity(cart, mug.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, cart[0].Quantity)

	// Zero removes the line.
	cart, err = svc.UpdateQuantity(cart, mug.ID, 0)
	require.NoError(t, err)
	require.Len(t, cart, 1)
	assert.Equal(t, tee.ID, cart[0].ProductID)

	_, err = svc.UpdateQuantity(cart, mug.ID, 1)
	assert.ErrorIs(t, err, services.ErrNotFound)

	cart, err = svc.Remove(cart, tee.ID)
	require.NoError(t, err)
	assert.Empty(t, cart)
}

func TestCartLines(t *testing.T) {
	cart := []services.CartEntry{
		{ProductID: 1, Quantity: 2, Options: []services.ItemOption{{Name: "Size", Value: "M"}}},
		{ProductID: 2, Quantity: 1},
	}

	lines := services.Lines(cart)
	require.Len(t, lines, 2)
	assert.Equal(t, uint(1), lines[0].ProductID)
	assert.Equal(t, 2, lines[0].Quantity)
	require.Len(t, lines[0].Options, 1)
	assert.Equal(t, "M", lines[0].Options[0].Value)
}

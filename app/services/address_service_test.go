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

func TestAddressCreateAndList(t *testing.T) {
	db := newTestDB(t)
	svc := services.NewAddressService(repositories.NewAddressRepository(db))

	user := seedUser(t, db, "addr@example.com")

	home, err := svc.Create(context.Background(), user.ID, *validAddress())
	require.NoError(t, err)
	assert.NotZero(t, home.ID)

	work := *validAddress()
	work.Street = "200 Office Park"
	work.IsPrimary = true
	created, err := svc.Create(context.Background(), user.ID, work)
	require.NoError(t, err)

	// Primary sorts first.
	list, err := svc.List(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, created.ID, list[0].ID)
	assert.True(t, list[0].IsPrimary)
}

func TestAddressPrimaryIsExclusive(t *testing.T) {
	db := newTestDB(t)
	svc := services.NewAddressService(repositories.NewAddressRepository(db))

	user := seedUser(t, db, "addr2@example.com")

	first := *validAddress()
	first.IsPrimary = true
	a, err := svc.Create(context.Background(), user.ID, first)
	require.NoError(t, err)

	second := *validAddress()
	second.Street = "200 Office Park"
	b, err := svc.Create(context.Background(), user.ID, second)
	require.NoError(t, err)

	require.NoError(t, svc.SetPrimary(context.Background(), user.ID, b.ID))

	var primaries []models.Address
	require.NoError(t, db.Where("user_id = ? AND is_primary = ?", user.ID, true).Find(&primaries).Error)
	require.Len(t, primaries, 1)
	assert.Equal(t, b.ID, primaries[0].ID)

	// The demoted address still exists.
	got, err := svc.Get(context.Background(), user.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, got.IsPrimary)
}

func TestAddressOwnership(t *testing.T) {
	db := newTestDB(t)
	svc := services.NewAddressService(repositories.NewAddressRepository(db))

	owner := seedUser(t, db, "addr3@example.com")
	stranger := seedUser(t, db, "addr4@example.com")
	addr := seedAddress(t, db, owner.ID)

	_, err := svc.Get(context.Background(), stranger.ID, addr.ID)
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = svc.Update(context.Background(), stranger.ID, addr.ID, *validAddress())
	assert.ErrorIs(t, err, services.ErrForbidden)

	err = svc.Delete(context.Background(), stranger.ID, addr.ID)
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = svc.Get(context.Background(), owner.ID, 999)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestAddressUpdateAndDelete(t *testing.T) {
	db := newTestDB(t)
	svc := services.NewAddressService(repositories.NewAddressRepository(db))

	user := seedUser(t, db, "addr5@example.com")
	addr := seedAddress(t, db, user.ID)

	in := *validAddress()
	in.City = "Shelbyville"
	updated, err := svc.Update(context.Background(), user.ID, addr.ID, in)
	require.NoError(t, err)
	assert.Equal(t, addr.ID, updated.ID)
	assert.Equal(t, "Shelbyville", updated.City)

	require.NoError(t, svc.Delete(context.Background(), user.ID, addr.ID))
	_, err = svc.Get(context.Background(), user.ID, addr.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elmesiashu/tenseishitara/app/models"
	"github.com/elmesiashu/tenseishitara/app/repositories"
	"github.com/elmesiashu/tenseishitara/app/services"
	"github.com/elmesiashu/tenseishitara/pkg/auth"
)

func TestRegisterAndLogin(t *testing.T) {
	db := newTestDB(t)
	svc := services.NewAuthService(repositories.NewUserRepository(db))

	pair, err := svc.Register(context.Background(), services.RegisterInput{
		Name:     "Ada",
		Email:    "ada@example.com",
		Password: "super-secret",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "user", pair.User.Role)

	// The token round-trips through validation with the right identity.
	claims, err := auth.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, pair.User.ID, claims.UserID)
	assert.Equal(t, "user", claims.Role)

	// Passwords are stored hashed.
	var stored models.User
	require.NoError(t, db.First(&stored, pair.User.ID).Error)
	assert.NotEqual(t, "super-secret", stored.Password)

	logged, err := svc.Login(context.Background(), services.LoginInput{
		Email:    "ada@example.com",
		Password: "super-secret",
	})
	require.NoError(t, err)
	assert.Equal(t, pair.User.ID, logged.User.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	svc := services.NewAuthService(repositories.NewUserRepository(db))

	in := services.RegisterInput{Name: "Ada", Email: "dup@example.com", Password: "super-secret"}
	_, err := svc.Register(context.Background(), in)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), in)
	assert.ErrorIs(t, err, services.ErrEmailTaken)
}

func TestLoginInvalidCredentials(t *testing.T) {
	db := newTestDB(t)
	svc := services.NewAuthService(repositories.NewUserRepository(db))

	_, err := svc.Register(context.Background(), services.RegisterInput{
		Name: "Ada", Email: "ada2@example.com", Password: "super-secret",
	})
	require.NoError(t, err)

	// Wrong password and unknown email fail identically.
	_, err = svc.Login(context.Background(), services.LoginInput{
		Email: "ada2@example.com", Password: "wrong",
	})
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), services.LoginInput{
		Email: "nobody@example.com", Password: "super-secret",
	})
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
}

package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/elmesiashu/tenseishitara/app/models"
	"github.com/elmesiashu/tenseishitara/app/repositories"
)

// AddressService manages a user's address book.
type AddressService struct {
	addresses *repositories.AddressRepository
}

func NewAddressService(addresses *repositories.AddressRepository) *AddressService {
	return &AddressService{addresses: addresses}
}

// AddressInput is the validated address payload, used both by the address
// book endpoints and by inline checkout addresses.
type AddressInput struct {
	FullName  string `json:"full_name" validate:"required,max=255"`
	Country   string `json:"country" validate:"required,max=100"`
	Street    string `json:"address" validate:"required,max=255"`
	Unit      string `json:"unit" validate:"max=50"`
	City      string `json:"city" validate:"required,max=100"`
	State     string `json:"state" validate:"required,max=100"`
	ZipCode   string `json:"zip_code" validate:"required,max=20"`
	Phone     string `json:"phone" validate:"required,max=30"`
	IsPrimary bool   `json:"is_primary"`
}

func (in AddressInput) toModel(userID uint) models.Address {
	return models.Address{
		UserID:    userID,
		FullName:  in.FullName,
		Country:   in.Country,
		Street:    in.Street,
		Unit:      in.Unit,
		City:      in.City,
		State:     in.State,
		ZipCode:   in.ZipCode,
		Phone:     in.Phone,
		IsPrimary: in.IsPrimary,
	}
}

// List returns the user's addresses, primary first.
func (s *AddressService) List(ctx context.Context, userID uint) ([]models.Address, error) {
	return s.addresses.ListByUser(ctx, userID)
}

// Get returns one address after checking ownership.
func (s *AddressService) Get(ctx context.Context, userID, id uint) (models.Address, error) {
	address, err := s.addresses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Address{}, ErrNotFound
		}
		return models.Address{}, err
	}
	if address.UserID != userID {
		return models.Address{}, ErrForbidden
	}
	return address, nil
}

// Create adds an address to the book. A primary flag demotes the user's
// previous primary atomically.
func (s *AddressService) Create(ctx context.Context, userID uint, in AddressInput) (models.Address, error) {
	address := in.toModel(userID)
	if err := s.addresses.Create(ctx, &address); err != nil {
		return models.Address{}, err
	}
	return address, nil
}

// Update edits an owned address.
func (s *AddressService) Update(ctx context.Context, userID, id uint, in AddressInput) (models.Address, error) {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return models.Address{}, err
	}

	updated := in.toModel(userID)
	updated.Model = existing.Model
	if err := s.addresses.Update(ctx, &updated); err != nil {
		return models.Address{}, err
	}
	return updated, nil
}

// SetPrimary makes the owned address the user's only primary one.
func (s *AddressService) SetPrimary(ctx context.Context, userID, id uint) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.addresses.SetPrimary(ctx, userID, id)
}

// Delete removes an owned address. Past orders keep their address reference.
func (s *AddressService) Delete(ctx context.Context, userID, id uint) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.addresses.Delete(ctx, id)
}

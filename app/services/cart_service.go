package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/elmesiashu/tenseishitara/app/repositories"
	"github.com/elmesiashu/tenseishitara/pkg/collection"
)

// CartEntry is one line of the session cart. Price and name are display
// copies; checkout re-reads both from the catalogue under lock.
type CartEntry struct {
	ProductID uint         `json:"product_id"`
	Name      string       `json:"name"`
	Price     float64      `json:"price"`
	Image     string       `json:"image"`
	Quantity  int          `json:"quantity"`
	Options   []ItemOption `json:"options"`
}

// CartService edits the session cart, checking lines against the catalogue.
type CartService struct {
	products *repositories.ProductRepository
}

func NewCartService(products *repositories.ProductRepository) *CartService {
	return &CartService{products: products}
}

// Add puts a product into the cart, merging quantity into an existing line
// with the same product and options.
func (s *CartService) Add(ctx context.Context, cart []CartEntry, productID uint, qty int, options []ItemOption) ([]CartEntry, error) {
	if qty < 1 {
		return nil, NewValidationError(map[string]string{"quantity": "The quantity must be at least 1."})
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	for i, entry := range cart {
		if entry.ProductID == productID && sameOptions(entry.Options, options) {
			cart[i].Quantity += qty
			return cart, nil
		}
	}

	return append(cart, CartEntry{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Image:     product.Image,
		Quantity:  qty,
		Options:   options,
	}), nil
}

// UpdateQuantity sets the quantity of a line, removing it at zero.
func (s *CartService) UpdateQuantity(cart []CartEntry, productID uint, qty int) ([]CartEntry, error) {
	if qty < 0 {
		return nil, NewValidationError(map[string]string{"quantity": "The quantity must be at least 0."})
	}

	for i, entry := range cart {
		if entry.ProductID != productID {
			continue
		}
		if qty == 0 {
			return append(cart[:i], cart[i+1:]...), nil
		}
		cart[i].Quantity = qty
		return cart, nil
	}
	return nil, ErrNotFound
}

// Remove deletes a line from the cart.
func (s *CartService) Remove(cart []CartEntry, productID uint) ([]CartEntry, error) {
	return s.UpdateQuantity(cart, productID, 0)
}

// Lines converts cart entries to the checkout payload shape.
func Lines(cart []CartEntry) []CartLine {
	return collection.Map(cart, func(entry CartEntry) CartLine {
		return CartLine{
			ProductID: entry.ProductID,
			Quantity:  entry.Quantity,
			Options:   entry.Options,
		}
	})
}

func sameOptions(a, b []ItemOption) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

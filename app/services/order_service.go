package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/elmesiashu/tenseishitara/app/models"
	"github.com/elmesiashu/tenseishitara/app/repositories"
	"github.com/elmesiashu/tenseishitara/pkg/collection"
	"github.com/elmesiashu/tenseishitara/pkg/response"
)

// ErrInvalidTransition means the requested fulfillment status does not
// follow the shipment progression.
var ErrInvalidTransition = errors.New("invalid status transition")

// OrderService reads placed orders and moves them through fulfillment.
type OrderService struct {
	orders    *repositories.OrderRepository
	addresses *repositories.AddressRepository
	payments  *repositories.PaymentRepository
}

func NewOrderService(
	orders *repositories.OrderRepository,
	addresses *repositories.AddressRepository,
	payments *repositories.PaymentRepository,
) *OrderService {
	return &OrderService{orders: orders, addresses: addresses, payments: payments}
}

// OrderView is the receipt shape: header, captured lines, shipping address
// and masked payment details.
type OrderView struct {
	models.Order
	EstimatedDelivery time.Time             `json:"estimated_delivery"`
	Address           *models.Address       `json:"address,omitempty"`
	Payment           *models.PaymentMethod `json:"payment,omitempty"`
}

// Get returns one order by order number. Reading is idempotent and carries
// no side effects. Only the owner or an admin may read it.
func (s *OrderService) Get(ctx context.Context, userID uint, role, orderNo string) (OrderView, error) {
	order, err := s.orders.FindByOrderNo(ctx, orderNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OrderView{}, ErrNotFound
		}
		return OrderView{}, err
	}

	if order.UserID != userID && role != "admin" {
		return OrderView{}, ErrForbidden
	}

	return s.view(ctx, order), nil
}

// List returns a page of the user's own orders, newest first.
func (s *OrderService) List(ctx context.Context, userID uint, page, limit int) ([]OrderView, response.Pagination, error) {
	orders, pagination, err := s.orders.ListByUser(ctx, userID, page, limit)
	if err != nil {
		return nil, response.Pagination{}, err
	}

	views := collection.Map(orders, func(order models.Order) OrderView {
		return s.view(ctx, order)
	})
	return views, pagination, nil
}

// UpdateStatus advances an order one step along the fulfillment sequence,
// or cancels it. Delivered and Cancelled orders cannot move again.
func (s *OrderService) UpdateStatus(ctx context.Context, orderNo, status string) (OrderView, error) {
	order, err := s.orders.FindByOrderNo(ctx, orderNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OrderView{}, ErrNotFound
		}
		return OrderView{}, err
	}

	if !canTransition(order.Status, status) {
		return OrderView{}, ErrInvalidTransition
	}

	if err := s.orders.UpdateStatus(ctx, order.ID, status); err != nil {
		return OrderView{}, err
	}
	order.Status = status
	return s.view(ctx, order), nil
}

// canTransition reports whether an order may move from current to next.
// The sequence is strictly linear; Cancelled is reachable from any state
// except Delivered.
func canTransition(current, next string) bool {
	if current == models.StatusCancelled {
		return false
	}
	if next == models.StatusCancelled {
		return current != models.StatusDelivered
	}

	currentIdx, nextIdx := -1, -1
	for i, status := range models.StatusSequence {
		if status == current {
			currentIdx = i
		}
		if status == next {
			nextIdx = i
		}
	}
	return currentIdx >= 0 && nextIdx == currentIdx+1
}

func (s *OrderService) view(ctx context.Context, order models.Order) OrderView {
	v := OrderView{Order: order, EstimatedDelivery: order.EstimatedDelivery()}

	// A deleted address or card no longer renders on the receipt; the
	// order itself is untouched.
	if address, err := s.addresses.FindByID(ctx, order.AddressID); err == nil {
		v.Address = &address
	}
	if payment, err := s.payments.FindByID(ctx, order.PaymentID); err == nil {
		v.Payment = &payment
	}
	return v
}

package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"gorm.io/gorm"

	"github.com/elmesiashu/tenseishitara/app/models"
	"github.com/elmesiashu/tenseishitara/app/repositories"
	"github.com/elmesiashu/tenseishitara/pkg/event"
	"github.com/elmesiashu/tenseishitara/pkg/logger"
	"github.com/elmesiashu/tenseishitara/pkg/metrics"
	"github.com/elmesiashu/tenseishitara/pkg/validate"
)

// EventOrderPlaced fires after an order transaction commits. The payload is
// the committed models.Order.
const EventOrderPlaced = "order.placed"

// identifierAttempts bounds retries when a generated order or tracking
// number collides with an existing row.
const identifierAttempts = 3

// CheckoutService turns a cart into a persisted order. The whole placement
// runs in a single database transaction: address and payment resolution,
// stock validation, line capture and stock decrement all commit together or
// not at all.
type CheckoutService struct {
	db        *gorm.DB
	products  *repositories.ProductRepository
	addresses *repositories.AddressRepository
	payments  *repositories.PaymentRepository
	orders    *repositories.OrderRepository
	taxRate   float64
}

func NewCheckoutService(
	db *gorm.DB,
	products *repositories.ProductRepository,
	addresses *repositories.AddressRepository,
	payments *repositories.PaymentRepository,
	orders *repositories.OrderRepository,
	taxRate float64,
) *CheckoutService {
	return &CheckoutService{
		db:        db,
		products:  products,
		addresses: addresses,
		payments:  payments,
		orders:    orders,
		taxRate:   taxRate,
	}
}

// ItemOption is a variant selection on a cart line. OptionID is the
// catalogue ProductOption the shopper picked, when the storefront sends it.
type ItemOption struct {
	OptionID uint   `json:"option_id,omitempty"`
	Name     string `json:"name"`
	Value    string `json:"value"`
}

// CartLine is one product and quantity in the order payload.
type CartLine struct {
	ProductID uint         `json:"product_id"`
	Quantity  int          `json:"quantity"`
	Options   []ItemOption `json:"options"`
}

// PlaceOrderInput is the checkout payload. The shipping address and payment
// method each come either as a reference to a saved record or as a new
// inline record, never both.
type PlaceOrderInput struct {
	Items []CartLine `json:"items"`

	AddressID uint          `json:"address_id"`
	Address   *AddressInput `json:"address"`

	PaymentID uint       `json:"payment_id"`
	Card      *CardInput `json:"card"`

	// ClientTotal is what the storefront displayed at checkout, when it
	// sends one. It is never persisted; a mismatch with the server-side
	// total is logged.
	ClientTotal *float64 `json:"total"`
}

func (in PlaceOrderInput) check() *ValidationError {
	fields := map[string]string{}

	if len(in.Items) == 0 {
		fields["items"] = "The items field is required."
	}
	for i, line := range in.Items {
		if line.ProductID == 0 {
			fields[fmt.Sprintf("items.%d.product_id", i)] = "The product_id field is required."
		}
		if line.Quantity < 1 {
			fields[fmt.Sprintf("items.%d.quantity", i)] = "The quantity must be at least 1."
		}
	}

	switch {
	case in.AddressID == 0 && in.Address == nil:
		fields["address"] = "Provide address_id or an inline address."
	case in.AddressID != 0 && in.Address != nil:
		fields["address"] = "Provide address_id or an inline address, not both."
	}

	switch {
	case in.PaymentID == 0 && in.Card == nil:
		fields["payment"] = "Provide payment_id or an inline card."
	case in.PaymentID != 0 && in.Card != nil:
		fields["payment"] = "Provide payment_id or an inline card, not both."
	}

	if len(fields) > 0 {
		return NewValidationError(fields)
	}
	return nil
}

// PlaceOrder executes the full checkout for userID and returns the
// committed order with items preloaded.
//
// The transaction runs on a context detached from the client's, so an HTTP
// disconnect after validation cannot leave a half-applied order: the
// transaction either commits fully or rolls back fully on its own.
func (s *CheckoutService) PlaceOrder(ctx context.Context, userID uint, in PlaceOrderInput) (models.Order, error) {
	if verr := in.check(); verr != nil {
		metrics.OrdersFailed.WithLabelValues("validation").Inc()
		return models.Order{}, verr
	}

	txCtx := context.WithoutCancel(ctx)

	var order models.Order
	var err error
	for attempt := 0; attempt < identifierAttempts; attempt++ {
		order, err = s.placeOnce(txCtx, userID, in)
		if err == nil {
			break
		}
		if isDuplicateKey(err) {
			logger.WithCtx(ctx).Warn("checkout: identifier collision, retrying",
				"attempt", attempt+1)
			continue
		}
		break
	}
	if err != nil {
		s.countFailure(err)
		return models.Order{}, err
	}

	metrics.OrdersPlaced.Inc()
	logger.WithCtx(ctx).Info("checkout: order placed",
		"order_no", order.OrderNo, "user_id", userID, "total", order.Total)

	event.FireAsync(EventOrderPlaced, order)
	return order, nil
}

func (s *CheckoutService) placeOnce(ctx context.Context, userID uint, in PlaceOrderInput) (models.Order, error) {
	var order models.Order

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		address, err := s.resolveAddress(tx, userID, in)
		if err != nil {
			return err
		}

		payment, err := s.resolvePayment(tx, userID, in)
		if err != nil {
			return err
		}

		order = models.Order{
			UserID:     userID,
			OrderNo:    NewOrderNo(),
			TrackingNo: NewTrackingNo(),
			Status:     models.StatusPlaced,
			AddressID:  address.ID,
			PaymentID:  payment.ID,
		}

		subtotal := 0.0
		for _, line := range in.Items {
			item, err := s.reserveLine(tx, line)
			if err != nil {
				return err
			}
			subtotal += item.Price * float64(item.Quantity)
			order.Items = append(order.Items, item)
		}

		order.Subtotal = round2(subtotal)
		order.Tax = round2(subtotal * s.taxRate)
		order.Total = round2(subtotal + order.Tax)

		if err := s.orders.CreateTx(tx, &order); err != nil {
			if isDuplicateKey(err) {
				return err
			}
			return &TransactionError{Op: "create order", Err: err}
		}
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}

	if in.ClientTotal != nil && math.Abs(*in.ClientTotal-order.Total) >= 0.01 {
		logger.Warn("checkout: client total mismatch",
			"order_no", order.OrderNo, "client", *in.ClientTotal, "server", order.Total)
	}

	return order, nil
}

// resolveAddress returns the shipping address for the order: an owned saved
// record, or a new one created from the inline payload inside tx.
func (s *CheckoutService) resolveAddress(tx *gorm.DB, userID uint, in PlaceOrderInput) (models.Address, error) {
	if in.AddressID != 0 {
		var address models.Address
		if err := tx.First(&address, in.AddressID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.Address{}, ErrNotFound
			}
			return models.Address{}, &TransactionError{Op: "load address", Err: err}
		}
		if address.UserID != userID {
			return models.Address{}, ErrForbidden
		}
		return address, nil
	}

	if fields := validate.Struct(in.Address); len(fields) > 0 {
		return models.Address{}, NewValidationError(fields)
	}

	address := in.Address.toModel(userID)
	if err := s.addresses.CreateTx(tx, &address); err != nil {
		return models.Address{}, &TransactionError{Op: "create address", Err: err}
	}
	return address, nil
}

// resolvePayment returns the payment method for the order: an owned saved
// card, or a new one materialised from the inline payload inside tx.
func (s *CheckoutService) resolvePayment(tx *gorm.DB, userID uint, in PlaceOrderInput) (models.PaymentMethod, error) {
	if in.PaymentID != 0 {
		var method models.PaymentMethod
		if err := tx.First(&method, in.PaymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.PaymentMethod{}, ErrNotFound
			}
			return models.PaymentMethod{}, &TransactionError{Op: "load payment", Err: err}
		}
		if method.UserID != userID {
			return models.PaymentMethod{}, ErrForbidden
		}
		return method, nil
	}

	if fields := validateCard(*in.Card); len(fields) > 0 {
		return models.PaymentMethod{}, NewValidationError(fields)
	}

	method := in.Card.toModel(userID)
	if err := s.payments.CreateTx(tx, &method); err != nil {
		return models.PaymentMethod{}, &TransactionError{Op: "create payment", Err: err}
	}
	return method, nil
}

// reserveLine locks the product row, checks stock, captures the line at
// current name and price, and decrements stock. The row lock holds until
// the surrounding transaction ends.
func (s *CheckoutService) reserveLine(tx *gorm.DB, line CartLine) (models.OrderItem, error) {
	product, err := s.products.LockForUpdate(tx, line.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.OrderItem{}, ErrNotFound
		}
		return models.OrderItem{}, &TransactionError{Op: "lock product", Err: err}
	}

	if product.Stock < line.Quantity {
		return models.OrderItem{}, &InsufficientStockError{
			ProductID: product.ID,
			Product:   product.Name,
			Requested: line.Quantity,
			Available: product.Stock,
		}
	}

	owned, err := s.ownedOptionIDs(tx, product.ID, line.Options)
	if err != nil {
		return models.OrderItem{}, err
	}

	item := models.OrderItem{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Quantity:  line.Quantity,
		Image:     product.Image,
	}
	for _, opt := range line.Options {
		// An option reference that does not belong to this product is
		// dropped; the captured name and value still describe the line.
		optionID := opt.OptionID
		if optionID != 0 && !owned[optionID] {
			optionID = 0
		}
		item.Options = append(item.Options, models.OrderItemOption{
			ProductOptionID: optionID,
			Name:            opt.Name,
			Value:           opt.Value,
		})
	}

	if err := s.products.DecrementStock(tx, product.ID, line.Quantity); err != nil {
		return models.OrderItem{}, &TransactionError{Op: "decrement stock", Err: err}
	}

	return item, nil
}

// ownedOptionIDs returns the set of catalogue option IDs belonging to the
// product, loaded only when the payload references any.
func (s *CheckoutService) ownedOptionIDs(tx *gorm.DB, productID uint, opts []ItemOption) (map[uint]bool, error) {
	referenced := false
	for _, opt := range opts {
		if opt.OptionID != 0 {
			referenced = true
			break
		}
	}
	if !referenced {
		return nil, nil
	}

	var ids []uint
	if err := tx.Model(&models.ProductOption{}).Where("product_id = ?", productID).Pluck("id", &ids).Error; err != nil {
		return nil, &TransactionError{Op: "load product options", Err: err}
	}

	owned := make(map[uint]bool, len(ids))
	for _, id := range ids {
		owned[id] = true
	}
	return owned, nil
}

func (s *CheckoutService) countFailure(err error) {
	var verr *ValidationError
	var serr *InsufficientStockError

	switch {
	case errors.As(err, &verr):
		metrics.OrdersFailed.WithLabelValues("validation").Inc()
	case errors.As(err, &serr):
		metrics.OrdersFailed.WithLabelValues("stock").Inc()
		metrics.StockRejections.WithLabelValues(serr.Product).Inc()
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden):
		metrics.OrdersFailed.WithLabelValues("not_found").Inc()
	default:
		metrics.OrdersFailed.WithLabelValues("transaction").Inc()
	}
}

// validateCard runs the struct-tag rules for an inline checkout card.
func validateCard(in CardInput) map[string]string {
	return cardRules(in)
}

// isDuplicateKey detects a unique index violation across the supported
// drivers, including sqlite's constraint message used in tests.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key value")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package services

import (
	"context"
	"errors"
	"regexp"

	"gorm.io/gorm"

	"github.com/elmesiashu/tenseishitara/app/models"
	"github.com/elmesiashu/tenseishitara/app/repositories"
	"github.com/elmesiashu/tenseishitara/pkg/validate"
)

// Card brand prefixes. Only these two brands are accepted; anything else
// fails validation.
var (
	visaPattern       = regexp.MustCompile(`^4`)
	mastercardPattern = regexp.MustCompile(`^5[1-5]`)
)

const brandUnknown = "Card"

// CardBrand returns the display brand for a card number, or brandUnknown
// for an unsupported prefix.
func CardBrand(cardNumber string) string {
	switch {
	case visaPattern.MatchString(cardNumber):
		return "Visa"
	case mastercardPattern.MatchString(cardNumber):
		return "MasterCard"
	default:
		return brandUnknown
	}
}

// PaymentService manages a user's wallet of stored cards.
type PaymentService struct {
	payments *repositories.PaymentRepository
}

func NewPaymentService(payments *repositories.PaymentRepository) *PaymentService {
	return &PaymentService{payments: payments}
}

// CardInput is the validated card payload. The number and CVV are checked
// here and discarded; only the derived brand and last four digits persist.
type CardInput struct {
	CardName   string `json:"card_name" validate:"required,max=255"`
	CardNumber string `json:"card_number" validate:"required,digits=16"`
	CVV        string `json:"cvv" validate:"required,digits=3"`
	ExpiryDate string `json:"expiry_date" validate:"required,regex=^(0[1-9]|1[0-2])/[0-9]{4}$"`
	IsPrimary  bool   `json:"is_primary"`
}

func (in CardInput) toModel(userID uint) models.PaymentMethod {
	return models.PaymentMethod{
		UserID:     userID,
		CardName:   in.CardName,
		CardLast4:  in.CardNumber[len(in.CardNumber)-4:],
		CardType:   CardBrand(in.CardNumber),
		ExpiryDate: in.ExpiryDate,
		IsPrimary:  in.IsPrimary,
	}
}

// cardRules applies the CardInput struct tags plus the brand check, for
// cards arriving inline in a checkout payload or through the wallet.
func cardRules(in CardInput) map[string]string {
	errs := validate.Struct(&in)
	if _, bad := errs["card_number"]; !bad && CardBrand(in.CardNumber) == brandUnknown {
		errs["card_number"] = "Only Visa or MasterCard are accepted."
	}
	return errs
}

// List returns the user's stored cards, primary first.
func (s *PaymentService) List(ctx context.Context, userID uint) ([]models.PaymentMethod, error) {
	return s.payments.ListByUser(ctx, userID)
}

// Get returns one stored card after checking ownership.
func (s *PaymentService) Get(ctx context.Context, userID, id uint) (models.PaymentMethod, error) {
	method, err := s.payments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.PaymentMethod{}, ErrNotFound
		}
		return models.PaymentMethod{}, err
	}
	if method.UserID != userID {
		return models.PaymentMethod{}, ErrForbidden
	}
	return method, nil
}

// Create stores a new card in the wallet.
func (s *PaymentService) Create(ctx context.Context, userID uint, in CardInput) (models.PaymentMethod, error) {
	if errs := cardRules(in); len(errs) > 0 {
		return models.PaymentMethod{}, NewValidationError(errs)
	}

	method := in.toModel(userID)
	if err := s.payments.Create(ctx, &method); err != nil {
		return models.PaymentMethod{}, err
	}
	return method, nil
}

// SetPrimary makes the owned card the user's only primary one.
func (s *PaymentService) SetPrimary(ctx context.Context, userID, id uint) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.payments.SetPrimary(ctx, userID, id)
}

// Delete removes an owned card. Past orders keep their payment reference.
func (s *PaymentService) Delete(ctx context.Context, userID, id uint) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.payments.Delete(ctx, id)
}

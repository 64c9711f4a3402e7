package controllers

import (
	"net/http"

	"github.com/elmesiashu/tenseishitara/app/services"
	"github.com/elmesiashu/tenseishitara/pkg/bind"
	"github.com/elmesiashu/tenseishitara/pkg/middleware"
	"github.com/elmesiashu/tenseishitara/pkg/response"
	"github.com/elmesiashu/tenseishitara/pkg/session"
)

type CheckoutController struct {
	checkout *services.CheckoutService
}

func NewCheckoutController(checkout *services.CheckoutService) *CheckoutController {
	return &CheckoutController{checkout: checkout}
}

// PlaceOrder runs the checkout. Items may come in the payload, or be
// omitted to order the current session cart. The cart is cleared only
// after the order commits.
func (c *CheckoutController) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r)

	var in services.PlaceOrderInput
	if errs, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	fromCart := len(in.Items) == 0
	if fromCart {
		var cart []services.CartEntry
		session.FromCtx(r).GetJSON(cartKey, &cart)
		in.Items = services.Lines(cart)
	}

	order, err := c.checkout.PlaceOrder(r.Context(), userID, in)
	if err != nil {
		fail(w, r, err)
		return
	}

	if fromCart {
		sess := session.FromCtx(r)
		sess.Delete(cartKey)
		if err := sess.Save(r.Context(), w); err != nil {
			// The order is committed; a stale cart is recoverable.
			response.Created(w, order)
			return
		}
	}

	response.Created(w, order)
}

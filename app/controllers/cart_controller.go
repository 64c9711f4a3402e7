package controllers

import (
	"net/http"

	"github.com/elmesiashu/tenseishitara/app/services"
	"github.com/elmesiashu/tenseishitara/pkg/bind"
	"github.com/elmesiashu/tenseishitara/pkg/response"
	"github.com/elmesiashu/tenseishitara/pkg/session"
)

const cartKey = "cart"

// CartController edits the session cart. The session middleware must be
// mounted on these routes.
type CartController struct {
	cart *services.CartService
}

func NewCartController(cart *services.CartService) *CartController {
	return &CartController{cart: cart}
}

func loadCart(r *http.Request) []services.CartEntry {
	var cart []services.CartEntry
	session.FromCtx(r).GetJSON(cartKey, &cart)
	return cart
}

func saveCart(w http.ResponseWriter, r *http.Request, cart []services.CartEntry) error {
	sess := session.FromCtx(r)
	sess.Set(cartKey, cart)
	return sess.Save(r.Context(), w)
}

func (c *CartController) Index(w http.ResponseWriter, r *http.Request) {
	response.Success(w, loadCart(r))
}

type cartAddInput struct {
	ProductID uint                  `json:"product_id" validate:"required"`
	Quantity  int                   `json:"quantity" validate:"required,gte=1"`
	Options   []services.ItemOption `json:"options"`
}

func (c *CartController) Add(w http.ResponseWriter, r *http.Request) {
	var in cartAddInput
	if errs, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	cart, err := c.cart.Add(r.Context(), loadCart(r), in.ProductID, in.Quantity, in.Options)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := saveCart(w, r, cart); err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, cart)
}

type cartUpdateInput struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

func (c *CartController) Update(w http.ResponseWriter, r *http.Request) {
	productID, ok := uintParam(r, "productID")
	if !ok {
		response.NotFound(w)
		return
	}

	var in cartUpdateInput
	if errs, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	cart, err := c.cart.UpdateQuantity(loadCart(r), productID, in.Quantity)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := saveCart(w, r, cart); err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, cart)
}

func (c *CartController) Remove(w http.ResponseWriter, r *http.Request) {
	productID, ok := uintParam(r, "productID")
	if !ok {
		response.NotFound(w)
		return
	}

	cart, err := c.cart.Remove(loadCart(r), productID)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := saveCart(w, r, cart); err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, cart)
}

func (c *CartController) Clear(w http.ResponseWriter, r *http.Request) {
	if err := saveCart(w, r, []services.CartEntry{}); err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, []services.CartEntry{})
}

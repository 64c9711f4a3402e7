package controllers

import (
	"net/http"

	"github.com/elmesiashu/tenseishitara/app/services"
	"github.com/elmesiashu/tenseishitara/pkg/bind"
	"github.com/elmesiashu/tenseishitara/pkg/middleware"
	"github.com/elmesiashu/tenseishitara/pkg/response"
)

type PaymentController struct {
	payments *services.PaymentService
}

func NewPaymentController(payments *services.PaymentService) *PaymentController {
	return &PaymentController{payments: payments}
}

func (c *PaymentController) Index(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r)
	methods, err := c.payments.List(r.Context(), userID)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, methods)
}

func (c *PaymentController) Store(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r)

	var in services.CardInput
	if errs, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	method, err := c.payments.Create(r.Context(), userID, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Created(w, method)
}

func (c *PaymentController) SetPrimary(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r)
	id, ok := uintParam(r, "id")
	if !ok {
		response.NotFound(w)
		return
	}

	if err := c.payments.SetPrimary(r.Context(), userID, id); err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, map[string]bool{"is_primary": true})
}

func (c *PaymentController) Destroy(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r)
	id, ok := uintParam(r, "id")
	if !ok {
		response.NotFound(w)
		return
	}

	if err := c.payments.Delete(r.Context(), userID, id); err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, map[string]bool{"deleted": true})
}

package controllers

import (
	"net/http"

	"github.com/elmesiashu/tenseishitara/app/services"
	"github.com/elmesiashu/tenseishitara/pkg/bind"
	"github.com/elmesiashu/tenseishitara/pkg/middleware"
	"github.com/elmesiashu/tenseishitara/pkg/response"
)

type AddressController struct {
	addresses *services.AddressService
}

func NewAddressController(addresses *services.AddressService) *AddressController {
	return &AddressController{addresses: addresses}
}

func (c *AddressController) Index(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r)
	addresses, err := c.addresses.List(r.Context(), userID)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, addresses)
}

func (c *AddressController) Store(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r)

	var in services.AddressInput
	if errs, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	address, err := c.addresses.Create(r.Context(), userID, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Created(w, address)
}

func (c *AddressController) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r)
	id, ok := uintParam(r, "id")
	if !ok {
		response.NotFound(w)
		return
	}

	var in services.AddressInput
	if errs, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	address, err := c.addresses.Update(r.Context(), userID, id, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, address)
}

func (c *AddressController) SetPrimary(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r)
	id, ok := uintParam(r, "id")
	if !ok {
		response.NotFound(w)
		return
	}

	if err := c.addresses.SetPrimary(r.Context(), userID, id); err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, map[string]bool{"is_primary": true})
}

func (c *AddressController) Destroy(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r)
	id, ok := uintParam(r, "id")
	if !ok {
		response.NotFound(w)
		return
	}

	if err := c.addresses.Delete(r.Context(), userID, id); err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, map[string]bool{"deleted": true})
}

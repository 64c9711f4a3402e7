package controllers

import (
	"net/http"

	"github.com/elmesiashu/tenseishitara/app/services"
	"github.com/elmesiashu/tenseishitara/pkg/bind"
	"github.com/elmesiashu/tenseishitara/pkg/middleware"
	"github.com/elmesiashu/tenseishitara/pkg/response"
	"github.com/elmesiashu/tenseishitara/pkg/router"
)

type OrderController struct {
	orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

func (c *OrderController) Index(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r)
	page, limit := pageParams(r)

	orders, pagination, err := c.orders.List(r.Context(), userID, page, limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Paginated(w, orders, pagination)
}

func (c *OrderController) Show(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r)
	role, _ := middleware.RoleFromCtx(r)
	orderNo := router.Param(r, "orderNo")

	order, err := c.orders.Get(r.Context(), userID, role, orderNo)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, order)
}

type statusInput struct {
	Status string `json:"status" validate:"required"`
}

// UpdateStatus moves an order along the fulfillment sequence. Admin only;
// the route group enforces the role.
func (c *OrderController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderNo := router.Param(r, "orderNo")

	var in statusInput
	if errs, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	order, err := c.orders.UpdateStatus(r.Context(), orderNo, in.Status)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, order)
}

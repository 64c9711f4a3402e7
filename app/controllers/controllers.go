// Package controllers translates HTTP requests into service calls and
// service errors into HTTP responses.
package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/elmesiashu/tenseishitara/app/services"
	"github.com/elmesiashu/tenseishitara/pkg/logger"
	"github.com/elmesiashu/tenseishitara/pkg/response"
	"github.com/elmesiashu/tenseishitara/pkg/router"
)

// uintParam parses a numeric path parameter.
func uintParam(r *http.Request, key string) (uint, bool) {
	n, err := strconv.ParseUint(router.Param(r, key), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// pageParams reads ?page and ?limit with defaults.
func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	return page, limit
}

// fail maps a service error onto the response envelope. Unrecognised
// errors are logged and reported as a plain 500.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *services.ValidationError
	var serr *services.InsufficientStockError
	var terr *services.TransactionError

	switch {
	case errors.As(err, &verr):
		response.ValidationError(w, verr.Fields)
	case errors.As(err, &serr):
		response.Error(w, http.StatusConflict, serr.Error())
	case errors.Is(err, services.ErrNotFound):
		response.NotFound(w)
	case errors.Is(err, services.ErrForbidden):
		response.Forbidden(w)
	case errors.Is(err, services.ErrInvalidCredentials):
		response.Error(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, services.ErrEmailTaken):
		response.Error(w, http.StatusConflict, "Email already registered")
	case errors.Is(err, services.ErrInvalidTransition):
		response.Error(w, http.StatusUnprocessableEntity, "Invalid status transition")
	case errors.As(err, &terr):
		logger.WithCtx(r.Context()).Error("transaction failure", "op", terr.Op, "error", terr.Err)
		response.Error(w, http.StatusInternalServerError, "Order could not be processed")
	default:
		logger.WithCtx(r.Context()).Error("unhandled error", "error", err)
		response.Error(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

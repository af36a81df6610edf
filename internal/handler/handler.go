package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"vendor-service/internal/lock"
	"vendor-service/internal/model"
	"vendor-service/internal/store"
	"vendor-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var (
	vendorStore      *store.Store
	recomputeWorkers = 1
)

// InitHandlers wires the handlers to the store. workers bounds the parallelism
// of the recompute-all endpoint.
func InitHandlers(s *store.Store, workers int) {
	vendorStore = s
	if workers > 0 {
		recomputeWorkers = workers
	}
}

// RegisterRoutes mounts the vendor and purchase order endpoints on an
// authenticated group.
func RegisterRoutes(api *echo.Group) {
	vendors := api.Group("/vendors")
	vendors.POST("", CreateVendor)
	vendors.GET("", ListVendors)
	vendors.POST("/recompute", RecomputeVendors)
	vendors.GET("/:id", GetVendor)
	vendors.PUT("/:id", UpdateVendor)
	vendors.DELETE("/:id", DeleteVendor)
	vendors.GET("/:id/performance", GetVendorPerformance)
	vendors.GET("/:id/history", ListVendorHistory)

	orders := api.Group("/purchase_orders")
	orders.POST("", CreatePurchaseOrder)
	orders.GET("", ListPurchaseOrders)
	orders.GET("/:id", GetPurchaseOrder)
	orders.PUT("/:id", UpdatePurchaseOrder)
	orders.DELETE("/:id", DeletePurchaseOrder)
	orders.POST("/:id/acknowledge", AcknowledgePurchaseOrder)
}

// bindRequest decodes the body into req and runs its validate tags
func bindRequest(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}

// respondBindError answers a request whose body could not be decoded or validated
func respondBindError(c echo.Context, err error) error {
	var verrs model.ValidationErrors
	if errors.As(err, &verrs) {
		logger.FromContext(c).Warn("Validation failed", zap.Any("fields", verrs))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":  "Validation failed",
			"fields": verrs,
		})
	}
	logger.FromContext(c).Warn("Invalid request data", zap.Error(err))
	return c.JSON(http.StatusBadRequest, echo.Map{
		"error": "Invalid request data",
	})
}

// respondError maps store errors to HTTP responses. Unexpected errors are
// logged and reported as msg.
func respondError(c echo.Context, err error, msg string) error {
	log := logger.FromContext(c)

	var verrs model.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return respondBindError(c, verrs)
	case errors.Is(err, store.ErrNotFound):
		log.Warn(msg, zap.Error(err))
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, store.ErrAlreadyAcknowledged),
		errors.Is(err, store.ErrConcurrentUpdate):
		log.Warn(msg, zap.Error(err))
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, lock.ErrNotObtained), errors.Is(err, context.DeadlineExceeded):
		log.Warn(msg, zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "vendor is busy, retry later"})
	}

	log.Error(msg, zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": msg})
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, errors.New("id must be positive")
	}
	return uint(id), nil
}

func invalidID(c echo.Context, what string, err error) error {
	logger.FromContext(c).Warn("Invalid "+what+" ID", zap.String("id", c.Param("id")), zap.Error(err))
	return c.JSON(http.StatusBadRequest, echo.Map{
		"error": "Invalid " + what + " ID",
	})
}

// pageParams reads page and limit as given; the store applies defaults
func pageParams(c echo.Context) store.Page {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return store.Page{Page: page, Limit: limit}
}

func pagination(p store.Page, total int64) echo.Map {
	p = p.Normalize()
	return echo.Map{
		"current_page": p.Page,
		"limit":        p.Limit,
		"total":        total,
		"total_pages":  (int(total) + p.Limit - 1) / p.Limit,
	}
}

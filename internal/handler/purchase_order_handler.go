package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"vendor-service/internal/model"
	"vendor-service/internal/store"
	"vendor-service/pkg/logger"
	"vendor-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// PurchaseOrderRequest defines the structure for purchase order
// creation/update requests. Omitted order and issue dates default to now on
// create and are kept on update. The acknowledgment date is only set by the
// acknowledge endpoint.
type PurchaseOrderRequest struct {
	PONumber      string            `json:"po_number" validate:"required,max=100"`
	VendorID      uint              `json:"vendor_id" validate:"required"`
	OrderDate     *time.Time        `json:"order_date"`
	DeliveryDate  time.Time         `json:"delivery_date" validate:"required"`
	IssueDate     *time.Time        `json:"issue_date"`
	Items         json.RawMessage   `json:"items"`
	Quantity      int               `json:"quantity" validate:"gt=0"`
	Status        model.OrderStatus `json:"status" validate:"omitempty,oneof=pending completed canceled"`
	QualityRating *float64          `json:"quality_rating" validate:"omitempty,gte=0,lte=5"`
}

// apply copies the request onto an order
func (r *PurchaseOrderRequest) apply(o *model.PurchaseOrder) {
	o.PONumber = r.PONumber
	o.VendorID = r.VendorID
	o.DeliveryDate = r.DeliveryDate
	o.Quantity = r.Quantity
	o.QualityRating = r.QualityRating
	if r.OrderDate != nil {
		o.OrderDate = *r.OrderDate
	}
	if r.IssueDate != nil {
		o.IssueDate = *r.IssueDate
	}
	if len(r.Items) > 0 {
		o.Items = datatypes.JSON(r.Items)
	}
	if r.Status != "" {
		o.Status = r.Status
	}
}

// orderResponse carries the stored order and the KPI snapshots its write produced
func orderResponse(w *store.OrderWrite) echo.Map {
	return echo.Map{
		"purchase_order": w.Order,
		"performance":    w.Snapshots,
	}
}

// CreatePurchaseOrder creates an order and recomputes its vendor's KPIs
func CreatePurchaseOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordPurchaseOrderOperation("create")

	var req PurchaseOrderRequest
	if err := bindRequest(c, &req); err != nil {
		return respondBindError(c, err)
	}

	// Build the order from the request
	var order model.PurchaseOrder
	req.apply(&order)

	// Save it and recompute the vendor's KPIs
	w, err := vendorStore.CreateOrder(c.Request().Context(), &order)
	if err != nil {
		return respondError(c, err, "Failed to create purchase order")
	}

	log.Info("Purchase order created successfully",
		zap.Uint("po_id", w.Order.ID),
		zap.String("po_number", w.Order.PONumber),
		zap.Uint("vendor_id", w.Order.VendorID))
	return c.JSON(http.StatusCreated, orderResponse(w))
}

// GetPurchaseOrder retrieves a purchase order by ID
func GetPurchaseOrder(c echo.Context) error {
	prometheus.RecordPurchaseOrderOperation("get")

	id, err := parseID(c)
	if err != nil {
		return invalidID(c, "purchase order", err)
	}

	order, err := vendorStore.GetOrder(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err, "Failed to retrieve purchase order")
	}
	return c.JSON(http.StatusOK, order)
}

// ListPurchaseOrders retrieves purchase orders filtered by vendor and status
func ListPurchaseOrders(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordPurchaseOrderOperation("list")

	// Parse query parameters for pagination and filtering
	filter := store.OrderFilter{Page: pageParams(c)}

	if v := c.QueryParam("vendor_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil || id == 0 {
			log.Warn("Invalid vendor_id filter", zap.String("vendor_id", v))
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "Invalid vendor ID",
			})
		}
		filter.VendorID = uint(id)
	}

	// Filter by status if specified
	if s := c.QueryParam("status"); s != "" {
		status := model.OrderStatus(s)
		if !status.Valid() {
			log.Warn("Invalid status filter", zap.String("status", s))
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "Invalid status",
			})
		}
		filter.Status = status
	}

	orders, total, err := vendorStore.ListOrders(c.Request().Context(), filter)
	if err != nil {
		return respondError(c, err, "Failed to retrieve purchase orders")
	}

	log.Info("Purchase orders retrieved successfully",
		zap.Int("count", len(orders)),
		zap.Int64("total", total))
	return c.JSON(http.StatusOK, echo.Map{
		"purchase_orders": orders,
		"pagination":      pagination(filter.Page, total),
	})
}

// UpdatePurchaseOrder updates an order and recomputes the affected vendors
func UpdatePurchaseOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordPurchaseOrderOperation("update")

	id, err := parseID(c)
	if err != nil {
		return invalidID(c, "purchase order", err)
	}

	var req PurchaseOrderRequest
	if err := bindRequest(c, &req); err != nil {
		return respondBindError(c, err)
	}

	// Reassigning the order recomputes both vendors
	w, err := vendorStore.UpdateOrder(c.Request().Context(), id, req.apply)
	if err != nil {
		return respondError(c, err, "Failed to update purchase order")
	}

	log.Info("Purchase order updated successfully",
		zap.Uint("po_id", id),
		zap.String("status", string(w.Order.Status)))
	return c.JSON(http.StatusOK, orderResponse(w))
}

// DeletePurchaseOrder deletes an order and recomputes its vendor
func DeletePurchaseOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordPurchaseOrderOperation("delete")

	id, err := parseID(c)
	if err != nil {
		return invalidID(c, "purchase order", err)
	}

	w, err := vendorStore.DeleteOrder(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err, "Failed to delete purchase order")
	}

	log.Info("Purchase order deleted successfully", zap.Uint("po_id", id))
	return c.JSON(http.StatusOK, echo.Map{
		"message":     "Purchase order deleted successfully",
		"performance": w.Snapshots,
	})
}

// AcknowledgePurchaseOrder records the vendor's acknowledgment of an order
func AcknowledgePurchaseOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordPurchaseOrderOperation("acknowledge")

	id, err := parseID(c)
	if err != nil {
		return invalidID(c, "purchase order", err)
	}

	// The acknowledgment time is the server clock
	w, err := vendorStore.AcknowledgeOrder(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err, "Failed to acknowledge purchase order")
	}

	log.Info("Purchase order acknowledged successfully",
		zap.Uint("po_id", id),
		zap.Time("acknowledgment_date", *w.Order.AcknowledgmentDate))
	return c.JSON(http.StatusOK, orderResponse(w))
}

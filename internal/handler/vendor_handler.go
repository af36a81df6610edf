package handler

import (
	"net/http"
	"strconv"

	"vendor-service/internal/model"
	"vendor-service/pkg/logger"
	"vendor-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// VendorRequest defines the structure for vendor creation/update requests.
// KPI fields are derived and cannot be set by clients.
type VendorRequest struct {
	Name           string `json:"name" validate:"required,max=255"`
	ContactDetails string `json:"contact_details"`
	Address        string `json:"address"`
	VendorCode     string `json:"vendor_code" validate:"required,max=100"`
}

// CreateVendor registers a new vendor with zeroed KPIs
func CreateVendor(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordVendorOperation("create")

	// Bind and validate the request body
	var req VendorRequest
	if err := bindRequest(c, &req); err != nil {
		return respondBindError(c, err)
	}

	// Create the vendor, KPIs start at zero
	vendor := model.Vendor{
		Name:           req.Name,
		ContactDetails: req.ContactDetails,
		Address:        req.Address,
		VendorCode:     req.VendorCode,
	}
	if err := vendorStore.CreateVendor(c.Request().Context(), &vendor); err != nil {
		return respondError(c, err, "Failed to create vendor")
	}

	log.Info("Vendor created successfully",
		zap.Uint("vendor_id", vendor.ID),
		zap.String("vendor_code", vendor.VendorCode))
	return c.JSON(http.StatusCreated, vendor)
}

// GetVendor retrieves a vendor by ID
func GetVendor(c echo.Context) error {
	prometheus.RecordVendorOperation("get")

	id, err := parseID(c)
	if err != nil {
		return invalidID(c, "vendor", err)
	}

	vendor, err := vendorStore.GetVendor(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err, "Failed to retrieve vendor")
	}
	return c.JSON(http.StatusOK, vendor)
}

// ListVendors retrieves vendors with pagination
func ListVendors(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordVendorOperation("list")

	// Parse query parameters for pagination
	page := pageParams(c)
	vendors, total, err := vendorStore.ListVendors(c.Request().Context(), page)
	if err != nil {
		return respondError(c, err, "Failed to retrieve vendors")
	}

	log.Info("Vendors retrieved successfully",
		zap.Int("count", len(vendors)),
		zap.Int64("total", total))
	return c.JSON(http.StatusOK, echo.Map{
		"vendors":    vendors,
		"pagination": pagination(page, total),
	})
}

// UpdateVendor updates a vendor's identity and contact fields
func UpdateVendor(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordVendorOperation("update")

	id, err := parseID(c)
	if err != nil {
		return invalidID(c, "vendor", err)
	}

	var req VendorRequest
	if err := bindRequest(c, &req); err != nil {
		return respondBindError(c, err)
	}

	// Only identity and contact fields are updatable
	vendor, err := vendorStore.UpdateVendor(c.Request().Context(), id, func(v *model.Vendor) {
		v.Name = req.Name
		v.ContactDetails = req.ContactDetails
		v.Address = req.Address
		v.VendorCode = req.VendorCode
	})
	if err != nil {
		return respondError(c, err, "Failed to update vendor")
	}

	log.Info("Vendor updated successfully", zap.Uint("vendor_id", id))
	return c.JSON(http.StatusOK, vendor)
}

// DeleteVendor deletes a vendor with its purchase orders and history
func DeleteVendor(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordVendorOperation("delete")

	id, err := parseID(c)
	if err != nil {
		return invalidID(c, "vendor", err)
	}

	// Orders and history go with the vendor
	if err := vendorStore.DeleteVendor(c.Request().Context(), id); err != nil {
		return respondError(c, err, "Failed to delete vendor")
	}

	log.Info("Vendor deleted successfully", zap.Uint("vendor_id", id))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Vendor deleted successfully",
	})
}

// GetVendorPerformance returns the vendor's KPIs computed from its current orders
func GetVendorPerformance(c echo.Context) error {
	prometheus.RecordVendorOperation("performance")

	id, err := parseID(c)
	if err != nil {
		return invalidID(c, "vendor", err)
	}

	// Computed live, nothing is written
	metrics, err := vendorStore.VendorPerformance(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err, "Failed to compute vendor performance")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"vendor_id":   id,
		"performance": metrics,
	})
}

// ListVendorHistory returns the vendor's KPI snapshots, newest first
func ListVendorHistory(c echo.Context) error {
	prometheus.RecordVendorOperation("history")

	id, err := parseID(c)
	if err != nil {
		return invalidID(c, "vendor", err)
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	rows, err := vendorStore.VendorHistory(c.Request().Context(), id, limit)
	if err != nil {
		return respondError(c, err, "Failed to retrieve vendor history")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"vendor_id": id,
		"history":   rows,
	})
}

// RecomputeVendors recomputes the KPIs of every vendor
func RecomputeVendors(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordVendorOperation("recompute")

	n, err := vendorStore.RecomputeAll(c.Request().Context(), recomputeWorkers)
	if err != nil {
		log.Error("Recompute stopped early", zap.Int("recomputed", n), zap.Error(err))
		return respondError(c, err, "Failed to recompute vendors")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":    "Vendors recomputed",
		"recomputed": n,
	})
}

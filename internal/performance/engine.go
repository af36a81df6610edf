package performance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vendor-service/internal/model"
	"vendor-service/pkg/logger"
	"vendor-service/prometheus"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrVendorNotFound is returned when the vendor to recompute does not exist
var ErrVendorNotFound = errors.New("vendor not found")

// Engine recomputes vendor KPIs from purchase orders and records snapshots
type Engine struct {
	basis FulfillmentBasis
	now   func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithFulfillmentBasis selects how the fulfillment rate is computed
func WithFulfillmentBasis(b FulfillmentBasis) Option {
	return func(e *Engine) { e.basis = b }
}

// WithClock overrides the time source used for snapshot dates
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine using the settled fulfillment basis and the
// wall clock unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{basis: BasisSettled, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Basis returns the configured fulfillment basis
func (e *Engine) Basis() FulfillmentBasis {
	return e.basis
}

// Now returns the engine clock's current time
func (e *Engine) Now() time.Time {
	return e.now()
}

// Recompute derives the vendor's KPIs from its current orders, writes them
// onto the vendor row and appends one HistoricalPerformance row with the same
// values. tx should be the transaction of the order write that triggered it;
// callers must hold the vendor's lock.
func (e *Engine) Recompute(ctx context.Context, tx *gorm.DB, vendorID uint) (*model.HistoricalPerformance, error) {
	log := logger.FromCtx(ctx)
	start := time.Now()
	defer prometheus.TrackRecompute()(start)

	if err := e.ensureVendor(ctx, tx, vendorID); err != nil {
		prometheus.RecordRecompute("error")
		return nil, err
	}

	orders, err := e.loadOrders(ctx, tx, vendorID)
	if err != nil {
		prometheus.RecordRecompute("error")
		return nil, err
	}

	m := Compute(orders, e.basis)
	if err := m.Validate(); err != nil {
		prometheus.RecordRecompute("error")
		return nil, fmt.Errorf("metrics for vendor %d out of range: %w", vendorID, err)
	}

	result := tx.WithContext(ctx).Model(&model.Vendor{}).Where("id = ?", vendorID).Updates(map[string]interface{}{
		"on_time_delivery_rate": m.OnTimeDeliveryRate,
		"quality_rating_avg":    m.QualityRatingAvg,
		"average_response_time": m.AverageResponseTime,
		"fulfillment_rate":      m.FulfillmentRate,
	})
	if result.Error != nil {
		prometheus.RecordRecompute("error")
		return nil, fmt.Errorf("save metrics for vendor %d: %w", vendorID, result.Error)
	}

	snapshot := &model.HistoricalPerformance{
		VendorID:           vendorID,
		Date:               e.now(),
		PerformanceMetrics: m,
	}
	if err := tx.WithContext(ctx).Create(snapshot).Error; err != nil {
		prometheus.RecordRecompute("error")
		return nil, fmt.Errorf("record history for vendor %d: %w", vendorID, err)
	}

	prometheus.RecordRecompute("success")
	log.Debug("Vendor performance recomputed",
		zap.Uint("vendor_id", vendorID),
		zap.Int("orders", len(orders)),
		zap.Float64("on_time_delivery_rate", m.OnTimeDeliveryRate),
		zap.Float64("quality_rating_avg", m.QualityRatingAvg),
		zap.Float64("average_response_time", m.AverageResponseTime),
		zap.Float64("fulfillment_rate", m.FulfillmentRate),
		zap.Duration("took", time.Since(start)))

	return snapshot, nil
}

// Live computes the vendor's KPIs from its current orders without writing
// anything.
func (e *Engine) Live(ctx context.Context, db *gorm.DB, vendorID uint) (model.PerformanceMetrics, error) {
	if err := e.ensureVendor(ctx, db, vendorID); err != nil {
		return model.PerformanceMetrics{}, err
	}

	orders, err := e.loadOrders(ctx, db, vendorID)
	if err != nil {
		return model.PerformanceMetrics{}, err
	}

	return Compute(orders, e.basis), nil
}

func (e *Engine) ensureVendor(ctx context.Context, db *gorm.DB, vendorID uint) error {
	var count int64
	if err := db.WithContext(ctx).Model(&model.Vendor{}).Where("id = ?", vendorID).Count(&count).Error; err != nil {
		return fmt.Errorf("look up vendor %d: %w", vendorID, err)
	}
	if count == 0 {
		return fmt.Errorf("vendor %d: %w", vendorID, ErrVendorNotFound)
	}
	return nil
}

func (e *Engine) loadOrders(ctx context.Context, db *gorm.DB, vendorID uint) ([]model.PurchaseOrder, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var orders []model.PurchaseOrder
	if err := db.WithContext(ctx).Where("vendor_id = ?", vendorID).Order("id").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("load orders for vendor %d: %w", vendorID, err)
	}
	return orders, nil
}

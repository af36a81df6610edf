package performance

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"vendor-service/internal/model"
	"vendor-service/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "engine.db"), logger.Silent)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func createVendor(t *testing.T, db *gorm.DB, code string) *model.Vendor {
	t.Helper()
	v := &model.Vendor{Name: "Vendor " + code, VendorCode: code}
	require.NoError(t, db.Create(v).Error)
	return v
}

func createOrder(t *testing.T, db *gorm.DB, vendorID uint, number string, o model.PurchaseOrder) {
	t.Helper()
	o.VendorID = vendorID
	o.PONumber = number
	o.Items = datatypes.JSON(`[]`)
	require.NoError(t, db.Create(&o).Error)
}

func TestRecomputePersistsMetricsAndAppendsHistory(t *testing.T) {
	db := setupTestDB(t)
	clock := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	engine := NewEngine(WithClock(func() time.Time { return clock }))

	v := createVendor(t, db, "ACME")
	createOrder(t, db, v.ID, "PO-1", rated(order(model.OrderCompleted, 0), 4))
	createOrder(t, db, v.ID, "PO-2", rated(order(model.OrderCompleted, -time.Hour), 5))
	createOrder(t, db, v.ID, "PO-3", acknowledged(order(model.OrderCompleted, time.Hour), time.Hour))
	createOrder(t, db, v.ID, "PO-4", order(model.OrderPending, 0))

	snap, err := engine.Recompute(context.Background(), db, v.ID)
	require.NoError(t, err)

	want := model.PerformanceMetrics{
		OnTimeDeliveryRate:  66.67,
		QualityRatingAvg:    4.5,
		AverageResponseTime: 3600,
		FulfillmentRate:     100,
	}
	assert.Equal(t, want, snap.PerformanceMetrics)
	assert.Equal(t, v.ID, snap.VendorID)
	assert.True(t, clock.Equal(snap.Date))

	var stored model.Vendor
	require.NoError(t, db.First(&stored, v.ID).Error)
	assert.Equal(t, want, stored.PerformanceMetrics)

	var history []model.HistoricalPerformance
	require.NoError(t, db.Where("vendor_id = ?", v.ID).Find(&history).Error)
	require.Len(t, history, 1)
	assert.Equal(t, stored.PerformanceMetrics, history[0].PerformanceMetrics)
}

func TestRecomputeAppendsOneRowPerCall(t *testing.T) {
	db := setupTestDB(t)
	engine := NewEngine()
	v := createVendor(t, db, "ACME")

	for i := 0; i < 3; i++ {
		_, err := engine.Recompute(context.Background(), db, v.ID)
		require.NoError(t, err)
	}

	var count int64
	require.NoError(t, db.Model(&model.HistoricalPerformance{}).Where("vendor_id = ?", v.ID).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestRecomputeOnlyTouchesTheGivenVendor(t *testing.T) {
	db := setupTestDB(t)
	engine := NewEngine()
	a := createVendor(t, db, "A")
	b := createVendor(t, db, "B")
	createOrder(t, db, a.ID, "PO-A", order(model.OrderCompleted, 0))
	createOrder(t, db, b.ID, "PO-B", order(model.OrderCompleted, 0))

	_, err := engine.Recompute(context.Background(), db, a.ID)
	require.NoError(t, err)

	var other model.Vendor
	require.NoError(t, db.First(&other, b.ID).Error)
	assert.Equal(t, model.PerformanceMetrics{}, other.PerformanceMetrics)

	var count int64
	require.NoError(t, db.Model(&model.HistoricalPerformance{}).Where("vendor_id = ?", b.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRecomputeMissingVendor(t *testing.T) {
	db := setupTestDB(t)
	_, err := NewEngine().Recompute(context.Background(), db, 404)
	assert.ErrorIs(t, err, ErrVendorNotFound)
}

func TestLiveDoesNotWrite(t *testing.T) {
	db := setupTestDB(t)
	engine := NewEngine(WithFulfillmentBasis(BasisAll))
	v := createVendor(t, db, "ACME")
	createOrder(t, db, v.ID, "PO-1", order(model.OrderCompleted, 0))
	createOrder(t, db, v.ID, "PO-2", order(model.OrderPending, 0))

	m, err := engine.Live(context.Background(), db, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, m.OnTimeDeliveryRate)
	assert.Equal(t, 50.0, m.FulfillmentRate)

	var stored model.Vendor
	require.NoError(t, db.First(&stored, v.ID).Error)
	assert.Equal(t, model.PerformanceMetrics{}, stored.PerformanceMetrics)

	var count int64
	require.NoError(t, db.Model(&model.HistoricalPerformance{}).Count(&count).Error)
	assert.Zero(t, count)

	_, err = engine.Live(context.Background(), db, 404)
	assert.ErrorIs(t, err, ErrVendorNotFound)
}

func TestNewEngineDefaults(t *testing.T) {
	assert.Equal(t, BasisSettled, NewEngine().Basis())
	assert.Equal(t, BasisAll, NewEngine(WithFulfillmentBasis(BasisAll)).Basis())
}

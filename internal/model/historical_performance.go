package model

import "time"

// HistoricalPerformance is an append-only snapshot of a vendor's KPIs taken
// each time they are recomputed.
type HistoricalPerformance struct {
	ID                 uint      `json:"id" gorm:"primaryKey"`
	VendorID           uint      `json:"vendor_id" gorm:"index;not null"`
	Vendor             *Vendor   `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Date               time.Time `json:"date" gorm:"index;not null"`
	PerformanceMetrics `gorm:"embedded"`
}

// AllModels lists every model for migrations
func AllModels() []interface{} {
	return []interface{}{&Vendor{}, &PurchaseOrder{}, &HistoricalPerformance{}}
}

package model

import (
	"time"
)

// PerformanceMetrics holds the four derived vendor KPIs. It is embedded in
// Vendor and HistoricalPerformance so both share columns and JSON keys.
type PerformanceMetrics struct {
	OnTimeDeliveryRate  float64 `json:"on_time_delivery_rate" gorm:"not null;default:0" validate:"gte=0,lte=100"`
	QualityRatingAvg    float64 `json:"quality_rating_avg" gorm:"not null;default:0" validate:"gte=0,lte=5"`
	AverageResponseTime float64 `json:"average_response_time" gorm:"not null;default:0" validate:"gte=0"`
	FulfillmentRate     float64 `json:"fulfillment_rate" gorm:"not null;default:0" validate:"gte=0,lte=100"`
}

// Validate checks every KPI against its valid range
func (m PerformanceMetrics) Validate() error {
	return validateStruct(m)
}

// Vendor represents a supplier purchase orders are placed with.
// KPI fields are derived state written only by the performance engine.
type Vendor struct {
	ID                 uint      `json:"id" gorm:"primaryKey"`
	Name               string    `json:"name" gorm:"type:varchar(255);not null" validate:"required,max=255"`
	ContactDetails     string    `json:"contact_details" gorm:"type:text"`
	Address            string    `json:"address" gorm:"type:text"`
	VendorCode         string    `json:"vendor_code" gorm:"type:varchar(100);uniqueIndex;not null" validate:"required,max=100"`
	PerformanceMetrics `gorm:"embedded"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Validate checks the vendor's identity fields and KPI ranges
func (v *Vendor) Validate() error {
	return validateStruct(v)
}

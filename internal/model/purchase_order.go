package model

import (
	"time"

	"gorm.io/datatypes"
)

// OrderStatus is the lifecycle state of a purchase order
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderCanceled  OrderStatus = "canceled"
)

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderCompleted, OrderCanceled:
		return true
	}
	return false
}

// PurchaseOrder represents an order placed with a vendor
type PurchaseOrder struct {
	ID                 uint           `json:"id" gorm:"primaryKey"`
	PONumber           string         `json:"po_number" gorm:"type:varchar(100);uniqueIndex;not null" validate:"required,max=100"`
	VendorID           uint           `json:"vendor_id" gorm:"index;not null" validate:"required"`
	Vendor             *Vendor        `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	OrderDate          time.Time      `json:"order_date" gorm:"not null"`
	DeliveryDate       time.Time      `json:"delivery_date" gorm:"not null" validate:"required"`
	IssueDate          time.Time      `json:"issue_date" gorm:"not null"`
	AcknowledgmentDate *time.Time     `json:"acknowledgment_date"`
	Items              datatypes.JSON `json:"items" gorm:"not null"`
	Quantity           int            `json:"quantity" gorm:"not null" validate:"gt=0"`
	Status             OrderStatus    `json:"status" gorm:"type:varchar(10);index;not null;default:'pending'" validate:"oneof=pending completed canceled"`
	QualityRating      *float64       `json:"quality_rating" validate:"omitempty,gte=0,lte=5"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// Acknowledged reports whether the vendor has acknowledged the order
func (o *PurchaseOrder) Acknowledged() bool {
	return o.AcknowledgmentDate != nil
}

// ResponseTime is the delay between issuing the order and its acknowledgment
func (o *PurchaseOrder) ResponseTime() (time.Duration, bool) {
	if o.AcknowledgmentDate == nil {
		return 0, false
	}
	return o.AcknowledgmentDate.Sub(o.IssueDate), true
}

// Validate checks field rules and the acknowledgment ordering invariant
func (o *PurchaseOrder) Validate() error {
	errs := ValidationErrors{}
	if err := validateStruct(o); err != nil {
		if ve, ok := err.(ValidationErrors); ok {
			errs = ve
		} else {
			return err
		}
	}

	if len(o.Items) > 0 && !isJSON(o.Items) {
		errs["items"] = "json"
	}

	if o.AcknowledgmentDate != nil && !o.AcknowledgmentDate.After(o.IssueDate) {
		errs["acknowledgment_date"] = "gtfield=issue_date"
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

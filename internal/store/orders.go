package store

import (
	"context"
	"fmt"
	"time"

	"vendor-service/internal/model"
	"vendor-service/pkg/logger"
	"vendor-service/prometheus"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OrderWrite is the outcome of a purchase order write: the order as stored
// (nil after a delete) and one snapshot per vendor whose KPIs were recomputed.
type OrderWrite struct {
	Order     *model.PurchaseOrder
	Snapshots []*model.HistoricalPerformance
}

// OrderFilter narrows ListOrders. Zero fields match everything.
type OrderFilter struct {
	VendorID uint
	Status   model.OrderStatus
	Page
}

// CreateOrder inserts a purchase order and recomputes its vendor.
// Missing order and issue dates default to now, status to pending.
// The acknowledgment date can only be set by AcknowledgeOrder.
func (s *Store) CreateOrder(ctx context.Context, o *model.PurchaseOrder) (*OrderWrite, error) {
	log := logger.FromCtx(ctx)

	now := s.engine.Now()
	o.ID = 0
	o.AcknowledgmentDate = nil
	if o.OrderDate.IsZero() {
		o.OrderDate = now
	}
	if o.IssueDate.IsZero() {
		o.IssueDate = now
	}
	if o.Status == "" {
		o.Status = model.OrderPending
	}
	if len(o.Items) == 0 {
		o.Items = datatypes.JSON("[]")
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	snapshots, err := s.withVendorLocks(ctx, []uint{o.VendorID}, func(tx *gorm.DB) ([]*model.HistoricalPerformance, error) {
		if err := ensureVendorExists(tx, o.VendorID); err != nil {
			return nil, err
		}
		if err := ensureUniquePONumber(tx, o.PONumber, 0); err != nil {
			return nil, err
		}
		if err := tx.Omit("Vendor").Create(o).Error; err != nil {
			return nil, fmt.Errorf("create purchase order: %w", err)
		}
		return s.recompute(ctx, tx, o.VendorID)
	})
	if err != nil {
		return nil, err
	}

	log.Info("Purchase order created",
		zap.Uint("po_id", o.ID),
		zap.String("po_number", o.PONumber),
		zap.Uint("vendor_id", o.VendorID))
	return &OrderWrite{Order: o, Snapshots: snapshots}, nil
}

// GetOrder loads a purchase order by id
func (s *Store) GetOrder(ctx context.Context, id uint) (*model.PurchaseOrder, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var o model.PurchaseOrder
	if err := s.db.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, notFound(err, "purchase order", id)
	}
	return &o, nil
}

// ListOrders returns a page of purchase orders, newest first, and the total
// count matching the filter.
func (s *Store) ListOrders(ctx context.Context, f OrderFilter) ([]model.PurchaseOrder, int64, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	p := f.Page.Normalize()

	query := s.db.WithContext(ctx).Model(&model.PurchaseOrder{})
	if f.VendorID != 0 {
		query = query.Where("vendor_id = ?", f.VendorID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count purchase orders: %w", err)
	}

	var orders []model.PurchaseOrder
	err := query.
		Order("order_date desc").
		Order("id desc").
		Limit(p.Limit).
		Offset(p.offset()).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list purchase orders: %w", err)
	}
	return orders, total, nil
}

// UpdateOrder applies changes to a purchase order and recomputes its vendor,
// and the previous vendor too when the order was reassigned. The
// acknowledgment date is not changed by updates.
//
// apply runs against the row as stored once the vendor locks are held, so
// fields it leaves alone keep any value committed by a concurrent writer. It
// is also called once beforehand to learn the target vendor, so it must not
// have side effects.
func (s *Store) UpdateOrder(ctx context.Context, id uint, apply func(o *model.PurchaseOrder)) (*OrderWrite, error) {
	log := logger.FromCtx(ctx)

	current, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	// Dry run to find which vendors need locking
	planned := applyOrderChanges(current, apply)

	defer prometheus.TrackDBOperation("update")(time.Now())

	var updated *model.PurchaseOrder
	vendors := []uint{current.VendorID, planned.VendorID}
	snapshots, err := s.withVendorLocks(ctx, vendors, func(tx *gorm.DB) ([]*model.HistoricalPerformance, error) {
		fresh, err := reloadOrder(tx, id, current.VendorID)
		if err != nil {
			return nil, err
		}

		updated = applyOrderChanges(fresh, apply)
		if updated.VendorID != planned.VendorID {
			return nil, fmt.Errorf("purchase order %d: %w", id, ErrConcurrentUpdate)
		}

		if err := updated.Validate(); err != nil {
			return nil, err
		}
		if updated.VendorID != fresh.VendorID {
			if err := ensureVendorExists(tx, updated.VendorID); err != nil {
				return nil, err
			}
		}
		if updated.PONumber != fresh.PONumber {
			if err := ensureUniquePONumber(tx, updated.PONumber, id); err != nil {
				return nil, err
			}
		}

		if err := tx.Omit("Vendor").Save(updated).Error; err != nil {
			return nil, fmt.Errorf("update purchase order %d: %w", id, err)
		}
		return s.recompute(ctx, tx, vendors...)
	})
	if err != nil {
		return nil, err
	}

	log.Info("Purchase order updated",
		zap.Uint("po_id", id),
		zap.String("status", string(updated.Status)),
		zap.Uint("vendor_id", updated.VendorID),
		zap.Uint("previous_vendor_id", current.VendorID))
	return &OrderWrite{Order: updated, Snapshots: snapshots}, nil
}

// applyOrderChanges runs apply on a copy of base. Identity, creation time and
// the acknowledgment date always come from base, and fields apply blanks out
// fall back to base.
func applyOrderChanges(base *model.PurchaseOrder, apply func(o *model.PurchaseOrder)) *model.PurchaseOrder {
	updated := *base
	apply(&updated)

	updated.ID = base.ID
	updated.CreatedAt = base.CreatedAt
	updated.AcknowledgmentDate = base.AcknowledgmentDate
	updated.Vendor = nil
	if updated.Status == "" {
		updated.Status = base.Status
	}
	if updated.OrderDate.IsZero() {
		updated.OrderDate = base.OrderDate
	}
	if updated.IssueDate.IsZero() {
		updated.IssueDate = base.IssueDate
	}
	if len(updated.Items) == 0 {
		updated.Items = base.Items
	}
	return &updated
}

// DeleteOrder removes a purchase order and recomputes its vendor
func (s *Store) DeleteOrder(ctx context.Context, id uint) (*OrderWrite, error) {
	log := logger.FromCtx(ctx)

	current, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	snapshots, err := s.withVendorLocks(ctx, []uint{current.VendorID}, func(tx *gorm.DB) ([]*model.HistoricalPerformance, error) {
		if _, err := reloadOrder(tx, id, current.VendorID); err != nil {
			return nil, err
		}
		if err := tx.Delete(&model.PurchaseOrder{}, id).Error; err != nil {
			return nil, fmt.Errorf("delete purchase order %d: %w", id, err)
		}
		return s.recompute(ctx, tx, current.VendorID)
	})
	if err != nil {
		return nil, err
	}

	log.Info("Purchase order deleted", zap.Uint("po_id", id), zap.Uint("vendor_id", current.VendorID))
	return &OrderWrite{Snapshots: snapshots}, nil
}

// AcknowledgeOrder records the vendor's acknowledgment at the current time
// and recomputes the vendor. An order can be acknowledged once, strictly
// after its issue date.
func (s *Store) AcknowledgeOrder(ctx context.Context, id uint) (*OrderWrite, error) {
	log := logger.FromCtx(ctx)

	current, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	var order *model.PurchaseOrder
	snapshots, err := s.withVendorLocks(ctx, []uint{current.VendorID}, func(tx *gorm.DB) ([]*model.HistoricalPerformance, error) {
		fresh, err := reloadOrder(tx, id, current.VendorID)
		if err != nil {
			return nil, err
		}
		if fresh.Acknowledged() {
			return nil, fmt.Errorf("purchase order %d: %w", id, ErrAlreadyAcknowledged)
		}

		ack := s.engine.Now()
		if !ack.After(fresh.IssueDate) {
			return nil, model.ValidationErrors{"acknowledgment_date": "gtfield=issue_date"}
		}

		if err := tx.Model(fresh).Update("acknowledgment_date", ack).Error; err != nil {
			return nil, fmt.Errorf("acknowledge purchase order %d: %w", id, err)
		}
		fresh.AcknowledgmentDate = &ack
		order = fresh

		return s.recompute(ctx, tx, fresh.VendorID)
	})
	if err != nil {
		return nil, err
	}

	log.Info("Purchase order acknowledged",
		zap.Uint("po_id", id),
		zap.Uint("vendor_id", order.VendorID),
		zap.Time("acknowledgment_date", *order.AcknowledgmentDate))
	return &OrderWrite{Order: order, Snapshots: snapshots}, nil
}

// reloadOrder re-reads an order inside the locked transaction and checks it
// still belongs to the vendor whose lock is held.
func reloadOrder(tx *gorm.DB, id, lockedVendorID uint) (*model.PurchaseOrder, error) {
	var o model.PurchaseOrder
	if err := tx.First(&o, id).Error; err != nil {
		return nil, notFound(err, "purchase order", id)
	}
	if o.VendorID != lockedVendorID {
		return nil, fmt.Errorf("purchase order %d: %w", id, ErrConcurrentUpdate)
	}
	return &o, nil
}

func ensureVendorExists(tx *gorm.DB, vendorID uint) error {
	var count int64
	if err := tx.Model(&model.Vendor{}).Where("id = ?", vendorID).Count(&count).Error; err != nil {
		return fmt.Errorf("look up vendor %d: %w", vendorID, err)
	}
	if count == 0 {
		return fmt.Errorf("vendor %d: %w", vendorID, ErrNotFound)
	}
	return nil
}

func ensureUniquePONumber(tx *gorm.DB, number string, exceptID uint) error {
	var count int64
	q := tx.Model(&model.PurchaseOrder{}).Where("po_number = ?", number)
	if exceptID != 0 {
		q = q.Where("id != ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("check po number: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("po number %q: %w", number, ErrDuplicate)
	}
	return nil
}

package store

import (
	"context"
	"fmt"
	"time"

	"vendor-service/internal/model"
	"vendor-service/pkg/logger"
	"vendor-service/prometheus"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateVendor inserts a vendor. KPI fields are derived state and start at zero.
func (s *Store) CreateVendor(ctx context.Context, v *model.Vendor) error {
	log := logger.FromCtx(ctx)

	v.ID = 0
	v.PerformanceMetrics = model.PerformanceMetrics{}
	if err := v.Validate(); err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUniqueVendorCode(tx, v.VendorCode, 0); err != nil {
			return err
		}
		if err := tx.Create(v).Error; err != nil {
			return fmt.Errorf("create vendor: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("Vendor created", zap.Uint("vendor_id", v.ID), zap.String("vendor_code", v.VendorCode))
	return nil
}

// GetVendor loads a vendor by id
func (s *Store) GetVendor(ctx context.Context, id uint) (*model.Vendor, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var v model.Vendor
	if err := s.db.WithContext(ctx).First(&v, id).Error; err != nil {
		return nil, notFound(err, "vendor", id)
	}
	return &v, nil
}

// ListVendors returns a page of vendors, newest first, and the total count
func (s *Store) ListVendors(ctx context.Context, p Page) ([]model.Vendor, int64, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	p = p.Normalize()

	var total int64
	if err := s.db.WithContext(ctx).Model(&model.Vendor{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count vendors: %w", err)
	}

	var vendors []model.Vendor
	err := s.db.WithContext(ctx).
		Order("created_at desc").
		Order("id desc").
		Limit(p.Limit).
		Offset(p.offset()).
		Find(&vendors).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list vendors: %w", err)
	}
	return vendors, total, nil
}

// UpdateVendor applies changes to a vendor's identity and contact fields.
// Changes apply makes to the KPI fields are discarded.
func (s *Store) UpdateVendor(ctx context.Context, id uint, apply func(v *model.Vendor)) (*model.Vendor, error) {
	log := logger.FromCtx(ctx)
	defer prometheus.TrackDBOperation("update")(time.Now())

	var updated model.Vendor
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.Vendor
		if err := tx.First(&current, id).Error; err != nil {
			return notFound(err, "vendor", id)
		}

		updated = current
		apply(&updated)
		updated.ID = current.ID
		updated.PerformanceMetrics = current.PerformanceMetrics
		updated.CreatedAt = current.CreatedAt

		if err := updated.Validate(); err != nil {
			return err
		}

		if updated.VendorCode != current.VendorCode {
			if err := ensureUniqueVendorCode(tx, updated.VendorCode, id); err != nil {
				return err
			}
		}

		// KPI columns are left alone so a concurrent recompute is never overwritten
		err := tx.Model(&updated).Select("name", "contact_details", "address", "vendor_code", "updated_at").Updates(&updated).Error
		if err != nil {
			return fmt.Errorf("update vendor %d: %w", id, err)
		}

		return tx.First(&updated, id).Error
	})
	if err != nil {
		return nil, err
	}

	log.Info("Vendor updated", zap.Uint("vendor_id", id), zap.String("vendor_code", updated.VendorCode))
	return &updated, nil
}

// DeleteVendor removes a vendor together with its purchase orders and history
func (s *Store) DeleteVendor(ctx context.Context, id uint) error {
	log := logger.FromCtx(ctx)
	defer prometheus.TrackDBOperation("delete")(time.Now())

	var orders, history int64
	_, err := s.withVendorLocks(ctx, []uint{id}, func(tx *gorm.DB) ([]*model.HistoricalPerformance, error) {
		var v model.Vendor
		if err := tx.Select("id").First(&v, id).Error; err != nil {
			return nil, notFound(err, "vendor", id)
		}

		res := tx.Where("vendor_id = ?", id).Delete(&model.HistoricalPerformance{})
		if res.Error != nil {
			return nil, fmt.Errorf("delete history of vendor %d: %w", id, res.Error)
		}
		history = res.RowsAffected

		res = tx.Where("vendor_id = ?", id).Delete(&model.PurchaseOrder{})
		if res.Error != nil {
			return nil, fmt.Errorf("delete orders of vendor %d: %w", id, res.Error)
		}
		orders = res.RowsAffected

		if err := tx.Delete(&model.Vendor{}, id).Error; err != nil {
			return nil, fmt.Errorf("delete vendor %d: %w", id, err)
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	prometheus.DeleteVendorKPIs(id)
	log.Info("Vendor deleted",
		zap.Uint("vendor_id", id),
		zap.Int64("purchase_orders", orders),
		zap.Int64("history_rows", history))
	return nil
}

func ensureUniqueVendorCode(tx *gorm.DB, code string, exceptID uint) error {
	var count int64
	q := tx.Model(&model.Vendor{}).Where("vendor_code = ?", code)
	if exceptID != 0 {
		q = q.Where("id != ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("check vendor code: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("vendor code %q: %w", code, ErrDuplicate)
	}
	return nil
}

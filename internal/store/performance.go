package store

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"vendor-service/internal/model"
	"vendor-service/pkg/logger"
	"vendor-service/prometheus"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// VendorPerformance computes the vendor's KPIs live from its current orders
func (s *Store) VendorPerformance(ctx context.Context, vendorID uint) (model.PerformanceMetrics, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	m, err := s.engine.Live(ctx, s.db, vendorID)
	if err != nil {
		return model.PerformanceMetrics{}, mapEngineError(err)
	}
	return m, nil
}

// VendorHistory returns the vendor's most recent snapshots, newest first
func (s *Store) VendorHistory(ctx context.Context, vendorID uint, limit int) ([]model.HistoricalPerformance, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	if err := ensureVendorExists(s.db.WithContext(ctx), vendorID); err != nil {
		return nil, err
	}

	var rows []model.HistoricalPerformance
	err := s.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("date desc").
		Order("id desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load history of vendor %d: %w", vendorID, err)
	}
	return rows, nil
}

// RecomputeVendor recomputes one vendor under its lock and records a snapshot
func (s *Store) RecomputeVendor(ctx context.Context, vendorID uint) (*model.HistoricalPerformance, error) {
	snapshots, err := s.withVendorLocks(ctx, []uint{vendorID}, func(tx *gorm.DB) ([]*model.HistoricalPerformance, error) {
		return s.recompute(ctx, tx, vendorID)
	})
	if err != nil {
		return nil, err
	}
	return snapshots[0], nil
}

// RecomputeAll recomputes every vendor with at most workers running at once.
// Vendors deleted while it runs are skipped. It returns the number of vendors
// recomputed.
func (s *Store) RecomputeAll(ctx context.Context, workers int) (int, error) {
	log := logger.FromCtx(ctx)
	start := time.Now()

	var ids []uint
	if err := s.db.WithContext(ctx).Model(&model.Vendor{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("list vendor ids: %w", err)
	}

	if workers <= 0 {
		workers = 1
	}

	var done int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if _, err := s.RecomputeVendor(gctx, id); err != nil {
				if errors.Is(err, ErrNotFound) {
					return nil
				}
				return fmt.Errorf("recompute vendor %d: %w", id, err)
			}
			atomic.AddInt64(&done, 1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(done), err
	}

	log.Info("Recomputed all vendors",
		zap.Int64("vendors", done),
		zap.Int("workers", workers),
		zap.Duration("took", time.Since(start)))
	return int(done), nil
}

package store

import (
	"context"
	"errors"
	"fmt"

	"vendor-service/internal/lock"
	"vendor-service/internal/model"
	"vendor-service/internal/performance"
	"vendor-service/prometheus"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a vendor or purchase order does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique code or number is already taken
	ErrDuplicate = errors.New("already exists")
	// ErrAlreadyAcknowledged is returned when acknowledging an order twice
	ErrAlreadyAcknowledged = errors.New("purchase order already acknowledged")
	// ErrConcurrentUpdate is returned when an order moved to another vendor
	// between reading it and locking its vendor
	ErrConcurrentUpdate = errors.New("purchase order changed concurrently")
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Page selects a page of a listing. Zero values fall back to page 1 and 20 rows.
type Page struct {
	Page  int
	Limit int
}

// Normalize applies the defaults and caps the limit
func (p Page) Normalize() Page {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 || p.Limit > maxLimit {
		p.Limit = defaultLimit
	}
	return p
}

func (p Page) offset() int {
	return (p.Page - 1) * p.Limit
}

// Store is the vendor and purchase order store. Every purchase order write
// recomputes the affected vendors' KPIs in the same transaction while
// holding their locks.
type Store struct {
	db     *gorm.DB
	engine *performance.Engine
	locker lock.Locker
}

// New creates a Store
func New(db *gorm.DB, engine *performance.Engine, locker lock.Locker) *Store {
	if engine == nil {
		engine = performance.NewEngine()
	}
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	return &Store{db: db, engine: engine, locker: locker}
}

// Engine returns the performance engine used by the store
func (s *Store) Engine() *performance.Engine {
	return s.engine
}

// withVendorLocks runs fn in a transaction while holding the lock of every
// given vendor. Snapshots produced by fn are published after commit.
func (s *Store) withVendorLocks(ctx context.Context, vendorIDs []uint, fn func(tx *gorm.DB) ([]*model.HistoricalPerformance, error)) ([]*model.HistoricalPerformance, error) {
	keys := make([]string, 0, len(vendorIDs))
	for _, id := range vendorIDs {
		keys = append(keys, lock.VendorKey(id))
	}

	release, err := lock.LockAll(ctx, s.locker, keys...)
	if err != nil {
		return nil, err
	}
	defer release()

	var snapshots []*model.HistoricalPerformance
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		snapshots, err = fn(tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, snap := range snapshots {
		prometheus.UpdateVendorKPIs(snap.VendorID, snap.PerformanceMetrics)
	}
	return snapshots, nil
}

// recompute runs the engine for each distinct vendor
func (s *Store) recompute(ctx context.Context, tx *gorm.DB, vendorIDs ...uint) ([]*model.HistoricalPerformance, error) {
	seen := make(map[uint]bool, len(vendorIDs))
	snapshots := make([]*model.HistoricalPerformance, 0, len(vendorIDs))
	for _, id := range vendorIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		snap, err := s.engine.Recompute(ctx, tx, id)
		if err != nil {
			return nil, mapEngineError(err)
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

func mapEngineError(err error) error {
	if errors.Is(err, performance.ErrVendorNotFound) {
		return fmt.Errorf("%v: %w", err, ErrNotFound)
	}
	return err
}

func notFound(err error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("load %s %d: %w", what, id, err)
}

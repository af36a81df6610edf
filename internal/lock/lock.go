package lock

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrNotObtained is returned when a lock could not be acquired before the
// context expired.
var ErrNotObtained = errors.New("lock not obtained")

// Locker serializes work per key. Different keys never block each other.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// VendorKey is the lock key for a vendor's recompute-and-save sequence
func VendorKey(vendorID uint) string {
	return fmt.Sprintf("vendor:%d", vendorID)
}

// LockAll acquires every key in sorted order so two callers locking
// overlapping sets cannot deadlock. Duplicate keys are locked once.
// On failure any locks already held are released.
func LockAll(ctx context.Context, l Locker, keys ...string) (func(), error) {
	uniq := make(map[string]struct{}, len(keys))
	sorted := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := uniq[k]; ok {
			continue
		}
		uniq[k] = struct{}{}
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	unlocks := make([]func(), 0, len(sorted))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}

	for _, k := range sorted {
		unlock, err := l.Lock(ctx, k)
		if err != nil {
			release()
			return nil, fmt.Errorf("lock %s: %w", k, err)
		}
		unlocks = append(unlocks, unlock)
	}

	return release, nil
}

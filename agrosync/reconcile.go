// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package agrosync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ReadingStore is the document-store surface the reconciliation engine
// writes through. Bulk updates and soft-deletes are addressed by storage id,
// never by coordinate, so concurrent groups touch disjoint documents.
type ReadingStore interface {
	FindAll(ctx context.Context, filter ReadingFilter) ([]SensorReading, error)
	InsertMany(ctx context.Context, readings []SensorReading) (int, error)
	BulkUpdate(ctx context.Context, updates []ReadingUpdate) (int, error)
	BulkSoftDelete(ctx context.Context, ids []string) (int, error)
}

// SyncPlan is the partition of one feed snapshot against the persisted set.
// Every valid incoming reading lands in exactly one of Updates or Inserts,
// and every existing non-deleted key absent from the feed lands in
// SoftDeleteIDs exactly once.
type SyncPlan struct {
	Updates       []ReadingUpdate
	Inserts       []SensorReading
	SoftDeleteIDs []string
	Skipped       int
	TotalIncoming int
}

// BuildSyncPlan diffs the incoming snapshot against the existing one, keyed
// by coordinate+type identity.
//
// The existing index includes soft-deleted readings so a key that reappears
// in the feed revives its old document (isDeleted reset to false, storage id
// unchanged) instead of inserting a duplicate. On an index collision a
// non-deleted reading wins over a soft-deleted one. Incoming readings with a
// malformed identity are skipped individually, never aborting the plan.
func BuildSyncPlan(existing, incoming []SensorReading) *SyncPlan {
	plan := &SyncPlan{TotalIncoming: len(incoming)}

	existingByKey := make(map[CoordKey]SensorReading, len(existing))
	for _, r := range existing {
		key := r.Key()
		if prev, ok := existingByKey[key]; ok && !prev.IsDeleted {
			continue
		}
		existingByKey[key] = r
	}

	incomingKeys := make(map[CoordKey]bool, len(incoming))
	matchedOrInserted := make(map[CoordKey]int) // key -> index into Updates or -(index+1) into Inserts
	for _, r := range incoming {
		if err := ValidateCoordinates(r.Coords.Lat, r.Coords.Lon); err != nil {
			plan.Skipped++
			continue
		}
		if err := ValidateSensorType(r.Type); err != nil {
			plan.Skipped++
			continue
		}
		key := r.Key()
		incomingKeys[key] = true

		if prevIdx, dup := matchedOrInserted[key]; dup {
			// Duplicate key within one snapshot: last entry wins, still a
			// single operation for the key.
			if prevIdx >= 0 {
				u := &plan.Updates[prevIdx]
				u.Value, u.Unit, u.Timestamp, u.IsDeleted = r.Value, r.Unit, r.Timestamp, false
			} else {
				ins := &plan.Inserts[-prevIdx-1]
				coords, typ := ins.Coords, ins.Type
				*ins = r
				ins.ID = ""
				ins.Coords, ins.Type = coords, typ
				ins.IsDeleted = false
			}
			continue
		}

		if ex, ok := existingByKey[key]; ok {
			plan.Updates = append(plan.Updates, ReadingUpdate{
				ID:        ex.ID,
				Value:     r.Value,
				Unit:      r.Unit,
				Timestamp: r.Timestamp,
				IsDeleted: false,
			})
			matchedOrInserted[key] = len(plan.Updates) - 1
		} else {
			ins := r
			ins.ID = ""
			ins.IsDeleted = false
			plan.Inserts = append(plan.Inserts, ins)
			matchedOrInserted[key] = -len(plan.Inserts)
		}
	}

	for key, r := range existingByKey {
		if r.IsDeleted || incomingKeys[key] {
			continue
		}
		plan.SoftDeleteIDs = append(plan.SoftDeleteIDs, r.ID)
	}

	return plan
}

// Reconciler keeps the document store's reading set consistent with the
// latest external feed snapshot using minimal writes. Storage ids are never
// changed by a cycle, so relational ownership references stay valid.
type Reconciler struct {
	feed     FeedSource
	store    ReadingStore
	logger   *slog.Logger
	inFlight atomic.Bool
}

// NewReconciler creates a reconciliation engine over the given feed and store.
func NewReconciler(feed FeedSource, store ReadingStore, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{feed: feed, store: store, logger: logger}
}

// RunSyncCycle executes one fetch/diff/apply pass.
//
// At most one cycle runs at a time: a call that finds another cycle in
// flight returns ErrSyncInFlight immediately with no side effects. A feed
// failure aborts the cycle before any write. The three write groups run
// concurrently (they address disjoint documents) and the cycle waits for all
// of them; group failures are collected into a PartialWriteError rather than
// rolling back the groups that succeeded.
func (rc *Reconciler) RunSyncCycle(ctx context.Context) (*SyncSummary, error) {
	if !rc.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSyncInFlight
	}
	defer rc.inFlight.Store(false)

	summary := &SyncSummary{
		CycleID:   uuid.NewString(),
		StartedAt: time.Now(),
	}
	log := rc.logger.With("cycle_id", summary.CycleID)

	incoming, err := rc.feed.FetchSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feed snapshot: %w", err)
	}

	// Soft-deleted documents are part of the snapshot on purpose: a key that
	// reappears in the feed must revive its old document.
	existing, err := rc.store.FindAll(ctx, ReadingFilter{IncludeDeleted: true})
	if err != nil {
		return nil, fmt.Errorf("fetch persisted snapshot: %w", err)
	}

	plan := BuildSyncPlan(existing, incoming)
	summary.TotalIncoming = plan.TotalIncoming
	summary.Skipped = plan.Skipped
	if plan.Skipped > 0 {
		log.Warn("Skipped readings with invalid identity",
			"reason", ReasonInvalidIdentity, "skipped", plan.Skipped)
	}

	var (
		wg       sync.WaitGroup
		partial  PartialWriteError
		anyError atomic.Bool
	)

	if len(plan.Updates) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := rc.store.BulkUpdate(ctx, plan.Updates)
			partial.Updated = n
			if err != nil {
				partial.UpdatesErr = err
				anyError.Store(true)
			}
		}()
	}
	if len(plan.Inserts) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := rc.store.InsertMany(ctx, plan.Inserts)
			partial.Inserted = n
			if err != nil {
				partial.InsertsErr = err
				anyError.Store(true)
			}
		}()
	}
	if len(plan.SoftDeleteIDs) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := rc.store.BulkSoftDelete(ctx, plan.SoftDeleteIDs)
			partial.SoftDeleted = n
			if err != nil {
				partial.SoftDeletesErr = err
				anyError.Store(true)
			}
		}()
	}
	wg.Wait()

	summary.Updated = partial.Updated
	summary.Inserted = partial.Inserted
	summary.SoftDeleted = partial.SoftDeleted
	summary.Duration = time.Since(summary.StartedAt)

	if anyError.Load() {
		log.Error("Sync cycle completed with write failures",
			"reason", ReasonPartialWrite,
			"failed_groups", partial.FailedGroups(),
			"updated", summary.Updated,
			"inserted", summary.Inserted,
			"soft_deleted", summary.SoftDeleted)
		return summary, &partial
	}

	log.Info("Sync cycle completed",
		"updated", summary.Updated,
		"inserted", summary.Inserted,
		"soft_deleted", summary.SoftDeleted,
		"skipped", summary.Skipped,
		"total_incoming", summary.TotalIncoming,
		"duration", summary.Duration)
	return summary, nil
}

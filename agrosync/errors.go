// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package agrosync

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFeedUnavailable marks a failed or malformed external feed fetch.
	// A cycle that hits it aborts before issuing any write.
	ErrFeedUnavailable = errors.New("external feed unavailable")

	// ErrSyncInFlight is returned when a cycle is requested while another
	// one is still executing. The trigger is dropped, not queued.
	ErrSyncInFlight = errors.New("sync cycle already in flight")

	// ErrNotFound marks a missing individual resource.
	ErrNotFound = errors.New("not found")

	// ErrInvalidID marks a malformed storage id.
	ErrInvalidID = errors.New("invalid storage id")

	// ErrInvalidInput marks structurally invalid caller input.
	ErrInvalidInput = errors.New("invalid input")
)

// PartialWriteError reports a cycle in which one or more of the three bulk
// write groups failed after the others succeeded. Succeeded groups are not
// rolled back; the next cycle recomputes the diff from scratch and naturally
// reconciles any missed deltas.
type PartialWriteError struct {
	UpdatesErr     error
	InsertsErr     error
	SoftDeletesErr error

	Updated     int
	Inserted    int
	SoftDeleted int
}

func (e *PartialWriteError) Error() string {
	var failed []string
	if e.UpdatesErr != nil {
		failed = append(failed, fmt.Sprintf("%s: %v", GroupUpdates, e.UpdatesErr))
	}
	if e.InsertsErr != nil {
		failed = append(failed, fmt.Sprintf("%s: %v", GroupInserts, e.InsertsErr))
	}
	if e.SoftDeletesErr != nil {
		failed = append(failed, fmt.Sprintf("%s: %v", GroupSoftDeletes, e.SoftDeletesErr))
	}
	return fmt.Sprintf("partial write failure (updated=%d inserted=%d softDeleted=%d): %s",
		e.Updated, e.Inserted, e.SoftDeleted, strings.Join(failed, "; "))
}

// Unwrap exposes the per-group errors to errors.Is/As.
func (e *PartialWriteError) Unwrap() []error {
	var errs []error
	for _, err := range []error{e.UpdatesErr, e.InsertsErr, e.SoftDeletesErr} {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// FailedGroups names the write groups that failed.
func (e *PartialWriteError) FailedGroups() []string {
	var groups []string
	if e.UpdatesErr != nil {
		groups = append(groups, GroupUpdates)
	}
	if e.InsertsErr != nil {
		groups = append(groups, GroupInserts)
	}
	if e.SoftDeletesErr != nil {
		groups = append(groups, GroupSoftDeletes)
	}
	return groups
}

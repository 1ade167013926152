// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package agrosync

import (
	"fmt"
	"math"
	"time"
)

// ValidateCoordinates checks that lat/lon are finite and within geographic
// bounds. Readings failing this check are skipped by the reconciliation
// engine rather than aborting the cycle.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return fmt.Errorf("%w: coordinates must be finite numbers", ErrInvalidInput)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidInput, lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidInput, lon)
	}
	return nil
}

// ValidateSensorType checks that t is a supported sensor type.
func ValidateSensorType(t SensorType) error {
	if !ValidSensorType(t) {
		return fmt.Errorf("%w: unknown sensor type %q", ErrInvalidInput, t)
	}
	return nil
}

// ValidateObjectID checks that id looks like a document storage id
// (24 hex characters).
func ValidateObjectID(id string) error {
	if len(id) != 24 {
		return fmt.Errorf("%w: %q must be 24 hex characters", ErrInvalidID, id)
	}
	for _, c := range id {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return fmt.Errorf("%w: %q must be 24 hex characters", ErrInvalidID, id)
		}
	}
	return nil
}

// ValidateDateRange checks that from precedes (or equals) to.
func ValidateDateRange(from, to time.Time) error {
	if from.After(to) {
		return fmt.Errorf("%w: start date %s after end date %s", ErrInvalidInput,
			from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return nil
}

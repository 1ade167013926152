// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package agrosync

import (
	"fmt"
	"math"
)

// CoordKey is the stable cross-cycle identity of a sensor reading: latitude
// and longitude rounded to six decimal places (stored as microdegrees) plus
// the sensor type. The external feed carries no persistent id of its own, so
// two readings with equal keys are the same logical entity even though their
// storage ids differ.
//
// Microdegree integers make key equality exact. Building the key from a
// formatted string or comparing raw floats would let the key derived at
// insert time drift from the key derived at match time.
type CoordKey struct {
	LatMicro int64
	LonMicro int64
	Type     SensorType
}

// NewCoordKey derives the identity key for a reading at (lat, lon) of the
// given type. Rounding is half-away-from-zero to six decimals, matching
// fixed-precision formatting of the coordinate.
func NewCoordKey(lat, lon float64, typ SensorType) CoordKey {
	return CoordKey{
		LatMicro: toMicro(lat),
		LonMicro: toMicro(lon),
		Type:     typ,
	}
}

// String renders the key as "lat,lon,type" with six fixed decimals.
func (k CoordKey) String() string {
	return fmt.Sprintf("%.6f,%.6f,%s", k.Lat(), k.Lon(), k.Type)
}

// Lat returns the rounded latitude in degrees.
func (k CoordKey) Lat() float64 { return float64(k.LatMicro) / 1e6 }

// Lon returns the rounded longitude in degrees.
func (k CoordKey) Lon() float64 { return float64(k.LonMicro) / 1e6 }

func toMicro(deg float64) int64 {
	return int64(math.Round(deg * 1e6))
}

// LocationKey renders the type-less "lat,lon" form of a position with six
// fixed decimals. Reconciliation identity includes the sensor type; location
// grouping deliberately does not, so readings of every type at one spot
// share a group.
func LocationKey(c Coordinates) string {
	return fmt.Sprintf("%.6f,%.6f", float64(toMicro(c.Lat))/1e6, float64(toMicro(c.Lon))/1e6)
}

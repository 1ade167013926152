// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package agrosync

// SensorType identifies the kind of measurement a reading carries.
type SensorType string

// Sensor type constants matching the external feed's per-type arrays
const (
	SensorTemperatura    SensorType = "temperatura"
	SensorHumedad        SensorType = "humedad"
	SensorLluvia         SensorType = "lluvia"
	SensorRadiacionSolar SensorType = "radiacion_solar"
)

// AllSensorTypes lists every supported sensor type in feed order.
var AllSensorTypes = []SensorType{
	SensorTemperatura,
	SensorHumedad,
	SensorLluvia,
	SensorRadiacionSolar,
}

// ValidSensorType reports whether t is one of the supported sensor types.
func ValidSensorType(t SensorType) bool {
	switch t {
	case SensorTemperatura, SensorHumedad, SensorLluvia, SensorRadiacionSolar:
		return true
	}
	return false
}

// DefaultUnit returns the canonical unit for a sensor type when the feed or
// the stored document omits one. Every code path that renders a sensor value
// must go through this function rather than re-deriving the mapping.
func DefaultUnit(t SensorType) string {
	switch t {
	case SensorHumedad:
		return "%"
	case SensorLluvia:
		return "mm"
	case SensorRadiacionSolar:
		return "W/m²"
	default:
		// Unknown or absent types render as temperature readings.
		return "°C"
	}
}

// Reason constants for cycle failures and skipped readings
const (
	ReasonFeedUnavailable = "feed_unavailable"
	ReasonPartialWrite    = "partial_write"
	ReasonInvalidIdentity = "invalid_identity"
	ReasonSyncInFlight    = "sync_in_flight"
)

// Write group names used in partial-failure reporting
const (
	GroupUpdates     = "updates"
	GroupInserts     = "inserts"
	GroupSoftDeletes = "soft_deletes"
)

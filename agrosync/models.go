// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package agrosync

import (
	"time"
)

// Coordinates is a geographic position in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lon float64 `json:"lon" bson:"lon"`
}

// SensorReading is a single measurement persisted in the document store.
// ID is the hex storage id assigned by the store; it is empty for readings
// that came straight from the external feed and have not been persisted.
type SensorReading struct {
	ID        string      `json:"id,omitempty"`
	Value     float64     `json:"value"`
	Unit      string      `json:"unit,omitempty"` // empty means "use DefaultUnit(Type)"
	Timestamp time.Time   `json:"timestamp"`
	Coords    Coordinates `json:"coords"`
	Type      SensorType  `json:"type"`
	IsDeleted bool        `json:"isDeleted"`
}

// Key derives the reading's reconciliation identity.
func (r *SensorReading) Key() CoordKey {
	return NewCoordKey(r.Coords.Lat, r.Coords.Lon, r.Type)
}

// ReadingUpdate is a point update addressed by storage id. Updates never
// touch coordinates or type, so the reading's identity and storage id are
// stable across sync cycles.
type ReadingUpdate struct {
	ID        string
	Value     float64
	Unit      string
	Timestamp time.Time
	IsDeleted bool
}

// ReadingFilter narrows document-store reads. Zero value means "all
// non-deleted readings".
type ReadingFilter struct {
	IncludeDeleted bool
	Type           SensorType // empty matches every type
	From, To       *time.Time
	MinValue       *float64
	MaxValue       *float64
	LatMin, LatMax *float64
	LonMin, LonMax *float64
	Unit           string
}

// Responsable is the owner identity attached to an ownership record:
// user account fields plus the nested person and role rows.
type Responsable struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	Rol      string `json:"rol,omitempty"`
}

// OwnershipRecord is a row of the relational parcela table. SensorReadingRef
// holds the storage id of a SensorReading; it may dangle (reference a
// missing or soft-deleted document) and consumers must tolerate that.
type OwnershipRecord struct {
	ID               int64        `json:"id"`
	Nombre           string       `json:"nombre"`
	SensorReadingRef string       `json:"sensorReadingRef,omitempty"`
	OwnerUserID      int64        `json:"ownerUserId"`
	Borrado          bool         `json:"borrado"`
	CreatedAt        time.Time    `json:"createdAt"`
	Owner            *Responsable `json:"responsable,omitempty"`
}

// OwnershipFilter narrows relational reads.
type OwnershipFilter struct {
	IncludeDeleted bool
	OwnerUserID    int64  // 0 matches every owner
	NombreContains string // empty matches every name
}

// SensorValue is the per-type render structure embedded in views. Unit is
// always populated (DefaultUnit applied when the source omitted one).
type SensorValue struct {
	Value     float64     `json:"value"`
	Unit      string      `json:"unit"`
	Timestamp time.Time   `json:"timestamp"`
	Coords    Coordinates `json:"coords"`
	Type      SensorType  `json:"type"`
}

// ParcelaView is the unified read model joining an ownership record with its
// sensor payload. When the referenced reading is missing or soft-deleted the
// ownership metadata is still populated and SensorDataMissing is set; callers
// can distinguish "no sensor link" from "link broken" without an error.
type ParcelaView struct {
	ParcelaID         int64                       `json:"parcelaId"`
	Nombre            string                      `json:"nombre"`
	ReadingID         string                      `json:"readingId,omitempty"`
	Coords            *Coordinates                `json:"coords,omitempty"`
	Sensores          map[SensorType][]SensorValue `json:"sensores,omitempty"`
	Timestamp         *time.Time                  `json:"timestamp,omitempty"`
	SensorDataMissing bool                        `json:"sensorDataMissing"`
	Responsable       *Responsable                `json:"responsable,omitempty"`
}

// LocationGroup aggregates readings that share a location, one entry per
// sensor type. Key is the storage id when the readings are persisted, or the
// coordinate key string for raw feed data.
type LocationGroup struct {
	Key       string                       `json:"key"`
	Coords    Coordinates                  `json:"coords"`
	Sensores  map[SensorType][]SensorValue `json:"sensores"`
	Timestamp time.Time                    `json:"timestamp"`
}

// SyncSummary reports the outcome of one reconciliation cycle.
type SyncSummary struct {
	CycleID       string        `json:"cycleId"`
	Updated       int           `json:"updated"`
	Inserted      int           `json:"inserted"`
	SoftDeleted   int           `json:"softDeleted"`
	Skipped       int           `json:"skipped"`
	TotalIncoming int           `json:"totalIncoming"`
	StartedAt     time.Time     `json:"startedAt"`
	Duration      time.Duration `json:"duration"`
}

// SensorStats is an aggregate over readings sharing a unit or type.
type SensorStats struct {
	Key      string  `json:"key"` // unit or sensor type, depending on the grouping
	Count    int     `json:"count"`
	AvgValue float64 `json:"avgValue"`
	MinValue float64 `json:"minValue"`
	MaxValue float64 `json:"maxValue"`
	Unit     string  `json:"unit"`
}

// AuditLogEntry is a row of the relational audit log table.
type AuditLogEntry struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	Accion      string    `json:"accion"`
	Descripcion string    `json:"descripcion"`
	CreatedAt   time.Time `json:"createdAt"`
}

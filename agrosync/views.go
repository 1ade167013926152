// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package agrosync

import (
	"fmt"
	"sort"
)

// renderSensorValue is the single place a reading becomes a SensorValue;
// unit defaulting happens here and nowhere else.
func renderSensorValue(r SensorReading) SensorValue {
	unit := r.Unit
	if unit == "" {
		unit = DefaultUnit(r.Type)
	}
	return SensorValue{
		Value:     r.Value,
		Unit:      unit,
		Timestamp: r.Timestamp,
		Coords:    r.Coords,
		Type:      r.Type,
	}
}

// BuildParcelaViews joins relational ownership records against document-store
// readings indexed by storage id.
//
// A record whose reference resolves to a live reading gets the full sensor
// payload. A record with no reference, a dangling reference, or a reference
// to a soft-deleted reading still gets its ownership metadata, with
// SensorDataMissing set; a broken link is never an error. Output order
// follows the input ownership order, which the relational store already
// returns deterministically.
func BuildParcelaViews(ownership []OwnershipRecord, readings []SensorReading) ([]ParcelaView, error) {
	if ownership == nil {
		return nil, fmt.Errorf("%w: ownership records must not be nil", ErrInvalidInput)
	}

	byID := make(map[string]SensorReading, len(readings))
	for _, r := range readings {
		if r.ID != "" {
			byID[r.ID] = r
		}
	}

	views := make([]ParcelaView, 0, len(ownership))
	for _, rec := range ownership {
		view := ParcelaView{
			ParcelaID:         rec.ID,
			Nombre:            rec.Nombre,
			Responsable:       rec.Owner,
			SensorDataMissing: true,
		}
		if r, ok := byID[rec.SensorReadingRef]; ok && !r.IsDeleted {
			sv := renderSensorValue(r)
			coords := r.Coords
			ts := r.Timestamp
			view.ReadingID = r.ID
			view.Coords = &coords
			view.Timestamp = &ts
			view.Sensores = map[SensorType][]SensorValue{r.Type: {sv}}
			view.SensorDataMissing = false
		}
		views = append(views, view)
	}
	return views, nil
}

// GroupReadingsByLocation aggregates readings into one group per location,
// with one Sensores entry per sensor type. Persisted readings group by
// storage id; raw feed readings have no id and group by coordinate key.
// Groups are sorted by key so repeated calls over unchanged input paginate
// stably. The group timestamp is the newest member's.
func GroupReadingsByLocation(readings []SensorReading) []LocationGroup {
	groups := make(map[string]*LocationGroup)
	for _, r := range readings {
		if r.IsDeleted {
			continue
		}
		key := r.ID
		if key == "" {
			key = LocationKey(r.Coords)
		}
		g, ok := groups[key]
		if !ok {
			g = &LocationGroup{
				Key:      key,
				Coords:   r.Coords,
				Sensores: make(map[SensorType][]SensorValue),
			}
			groups[key] = g
		}
		g.Sensores[r.Type] = append(g.Sensores[r.Type], renderSensorValue(r))
		if r.Timestamp.After(g.Timestamp) {
			g.Timestamp = r.Timestamp
		}
	}

	out := make([]LocationGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// BuildParcelaViewsFromFeed joins ownership records against a raw feed
// snapshot, used when persisted documents are considered stale for immediate
// display. Feed readings carry no storage id, so records are matched through
// refToLocation: a map from SensorReadingRef to the LocationKey of the
// referenced reading (derived by the caller from whatever snapshot the
// reference was created against). References without a resolvable location
// surface as SensorDataMissing, same as the document path.
func BuildParcelaViewsFromFeed(ownership []OwnershipRecord, feedReadings []SensorReading, refToLocation map[string]string) ([]ParcelaView, error) {
	if ownership == nil {
		return nil, fmt.Errorf("%w: ownership records must not be nil", ErrInvalidInput)
	}

	groups := GroupReadingsByLocation(feedReadings)
	byKey := make(map[string]LocationGroup, len(groups))
	for _, g := range groups {
		byKey[g.Key] = g
	}

	views := make([]ParcelaView, 0, len(ownership))
	for _, rec := range ownership {
		view := ParcelaView{
			ParcelaID:         rec.ID,
			Nombre:            rec.Nombre,
			Responsable:       rec.Owner,
			SensorDataMissing: true,
		}
		if loc, ok := refToLocation[rec.SensorReadingRef]; ok {
			if g, ok := byKey[loc]; ok {
				coords := g.Coords
				ts := g.Timestamp
				view.Coords = &coords
				view.Timestamp = &ts
				view.Sensores = g.Sensores
				view.SensorDataMissing = false
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package agrosync

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func ownershipRecord(id int64, nombre, ref string) OwnershipRecord {
	return OwnershipRecord{
		ID:               id,
		Nombre:           nombre,
		SensorReadingRef: ref,
		OwnerUserID:      7,
		CreatedAt:        time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		Owner: &Responsable{
			UserID:   7,
			Username: "jperez",
			Email:    "jperez@example.com",
			Nombre:   "Juan",
			Apellido: "Pérez",
		},
	}
}

func TestBuildParcelaViews_JoinWithSensorData(t *testing.T) {
	ownership := []OwnershipRecord{ownershipRecord(1, "Lote 1", "64b000000000000000000123")}
	readings := []SensorReading{{
		ID:        "64b000000000000000000123",
		Value:     18,
		Type:      SensorHumedad, // unit omitted on purpose
		Timestamp: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
		Coords:    Coordinates{Lat: 10, Lon: 20},
	}}

	views, err := BuildParcelaViews(ownership, readings)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("Expected one view, got %d", len(views))
	}

	v := views[0]
	if v.Nombre != "Lote 1" {
		t.Errorf("Expected nombre 'Lote 1', got %q", v.Nombre)
	}
	if v.SensorDataMissing {
		t.Error("Expected sensor data present")
	}
	hum := v.Sensores[SensorHumedad]
	if len(hum) != 1 || hum[0].Value != 18 {
		t.Fatalf("Expected one humedad value of 18, got %+v", hum)
	}
	if hum[0].Unit != "%" {
		t.Errorf("Expected defaulted unit %%, got %q", hum[0].Unit)
	}
	if v.Responsable == nil || v.Responsable.Username != "jperez" {
		t.Errorf("Expected responsable populated, got %+v", v.Responsable)
	}
	if v.Coords == nil || v.Coords.Lat != 10 || v.Coords.Lon != 20 {
		t.Errorf("Expected coords from reading, got %+v", v.Coords)
	}
}

func TestBuildParcelaViews_DanglingReference(t *testing.T) {
	ownership := []OwnershipRecord{
		ownershipRecord(1, "Huerto Norte", "64b000000000000000000999"), // nonexistent
		ownershipRecord(2, "Huerto Sur", ""),                          // never linked
	}

	views, err := BuildParcelaViews(ownership, nil)
	if err != nil {
		t.Fatalf("Dangling references must not error: %v", err)
	}
	for _, v := range views {
		if !v.SensorDataMissing {
			t.Errorf("Expected sensorDataMissing for %q", v.Nombre)
		}
		if v.Responsable == nil {
			t.Errorf("Ownership metadata must still be populated for %q", v.Nombre)
		}
		if len(v.Sensores) != 0 {
			t.Errorf("Expected empty sensor payload for %q", v.Nombre)
		}
	}
}

func TestBuildParcelaViews_SoftDeletedReadingTreatedAsMissing(t *testing.T) {
	ownership := []OwnershipRecord{ownershipRecord(1, "Lote 2", "64b000000000000000000123")}
	readings := []SensorReading{{
		ID:        "64b000000000000000000123",
		Value:     30,
		Type:      SensorTemperatura,
		IsDeleted: true,
	}}

	views, err := BuildParcelaViews(ownership, readings)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !views[0].SensorDataMissing {
		t.Error("Soft-deleted reading must surface as missing sensor data")
	}
}

func TestBuildParcelaViews_NilOwnershipIsInvalid(t *testing.T) {
	_, err := BuildParcelaViews(nil, nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestBuildParcelaViews_StableOrdering(t *testing.T) {
	ownership := []OwnershipRecord{
		ownershipRecord(3, "C", ""),
		ownershipRecord(1, "A", ""),
		ownershipRecord(2, "B", ""),
	}
	first, err := BuildParcelaViews(ownership, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := BuildParcelaViews(ownership, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("Repeated calls with unchanged input must return identical order")
	}
	if first[0].Nombre != "C" || first[1].Nombre != "A" || first[2].Nombre != "B" {
		t.Errorf("Output must follow input ownership order, got %v", first)
	}
}

func TestGroupReadingsByLocation_ByStorageID(t *testing.T) {
	ts := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	readings := []SensorReading{
		{ID: "aaa", Value: 20, Type: SensorTemperatura, Timestamp: ts, Coords: Coordinates{Lat: 1, Lon: 1}},
		{ID: "aaa", Value: 55, Type: SensorHumedad, Timestamp: ts.Add(time.Hour), Coords: Coordinates{Lat: 1, Lon: 1}},
		{ID: "bbb", Value: 3, Type: SensorLluvia, Timestamp: ts, Coords: Coordinates{Lat: 2, Lon: 2}},
	}

	groups := GroupReadingsByLocation(readings)
	if len(groups) != 2 {
		t.Fatalf("Expected 2 groups, got %d", len(groups))
	}
	// Sorted by key.
	if groups[0].Key != "aaa" || groups[1].Key != "bbb" {
		t.Errorf("Expected keys aaa, bbb, got %q, %q", groups[0].Key, groups[1].Key)
	}
	if len(groups[0].Sensores[SensorTemperatura]) != 1 || len(groups[0].Sensores[SensorHumedad]) != 1 {
		t.Errorf("Expected one entry per type, got %+v", groups[0].Sensores)
	}
	if !groups[0].Timestamp.Equal(ts.Add(time.Hour)) {
		t.Errorf("Group timestamp must be the newest member's, got %v", groups[0].Timestamp)
	}
}

func TestGroupReadingsByLocation_FallsBackToCoordinateKey(t *testing.T) {
	readings := []SensorReading{
		{Value: 20, Type: SensorTemperatura, Coords: Coordinates{Lat: 1.0000001, Lon: 1}},
		{Value: 55, Type: SensorHumedad, Coords: Coordinates{Lat: 1.0000002, Lon: 1}},
	}
	groups := GroupReadingsByLocation(readings)
	// Both readings round to the same location, so they share one group
	// with an entry per type.
	if len(groups) != 1 {
		t.Fatalf("Expected 1 group for the same rounded location, got %d", len(groups))
	}
	g := groups[0]
	if g.Key != "1.000000,1.000000" {
		t.Errorf("Expected coordinate location key, got %q", g.Key)
	}
	if len(g.Sensores[SensorTemperatura]) != 1 || len(g.Sensores[SensorHumedad]) != 1 {
		t.Errorf("Expected one entry per type, got %+v", g.Sensores)
	}
}

func TestGroupReadingsByLocation_SkipsSoftDeleted(t *testing.T) {
	readings := []SensorReading{
		{ID: "aaa", Value: 20, Type: SensorTemperatura, IsDeleted: true},
	}
	if groups := GroupReadingsByLocation(readings); len(groups) != 0 {
		t.Errorf("Soft-deleted readings must be excluded, got %+v", groups)
	}
}

func TestBuildParcelaViewsFromFeed_JoinsThroughLocationHint(t *testing.T) {
	feedReadings := []SensorReading{
		{Value: 25, Type: SensorTemperatura, Timestamp: time.Now(), Coords: Coordinates{Lat: 10, Lon: 20}},
	}
	locKey := LocationKey(Coordinates{Lat: 10, Lon: 20})
	ownership := []OwnershipRecord{
		ownershipRecord(1, "Lote 1", "64b000000000000000000123"),
		ownershipRecord(2, "Lote 2", "64b000000000000000000456"), // no hint
	}
	refToLocation := map[string]string{"64b000000000000000000123": locKey}

	views, err := BuildParcelaViewsFromFeed(ownership, feedReadings, refToLocation)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if views[0].SensorDataMissing {
		t.Error("Expected live sensor data for hinted reference")
	}
	if got := views[0].Sensores[SensorTemperatura]; len(got) != 1 || got[0].Value != 25 {
		t.Errorf("Expected temperatura 25 from feed, got %+v", got)
	}
	if got := views[0].Sensores[SensorTemperatura]; len(got) == 1 && got[0].Unit != "°C" {
		t.Errorf("Expected defaulted unit °C, got %q", got[0].Unit)
	}
	if !views[1].SensorDataMissing {
		t.Error("Reference without location hint must surface as missing")
	}
}

func TestDefaultUnit_AllTypes(t *testing.T) {
	cases := map[SensorType]string{
		SensorHumedad:        "%",
		SensorLluvia:         "mm",
		SensorRadiacionSolar: "W/m²",
		SensorTemperatura:    "°C",
		SensorType("viento"): "°C", // unrecognized falls back to temperature
		SensorType(""):       "°C",
	}
	for typ, want := range cases {
		if got := DefaultUnit(typ); got != want {
			t.Errorf("DefaultUnit(%q) = %q, want %q", typ, got, want)
		}
	}
}

func TestRenderSensorValue_KeepsExplicitUnit(t *testing.T) {
	sv := renderSensorValue(SensorReading{Value: 1, Unit: "K", Type: SensorTemperatura})
	if sv.Unit != "K" {
		t.Errorf("Explicit unit must not be overridden, got %q", sv.Unit)
	}
}

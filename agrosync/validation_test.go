// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package agrosync

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestValidateCoordinates(t *testing.T) {
	cases := []struct {
		name     string
		lat, lon float64
		wantErr  bool
	}{
		{"valid", 20.5, -103.3, false},
		{"boundary north", 90, 0, false},
		{"boundary west", 0, -180, false},
		{"lat too high", 90.1, 0, true},
		{"lat too low", -90.1, 0, true},
		{"lon too high", 0, 180.1, true},
		{"lon too low", 0, -180.1, true},
		{"nan lat", math.NaN(), 0, true},
		{"inf lon", 0, math.Inf(1), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateCoordinates(tc.lat, tc.lon)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("Expected ErrInvalidInput, got %v", err)
				}
			} else if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestValidateSensorType(t *testing.T) {
	for _, typ := range AllSensorTypes {
		if err := ValidateSensorType(typ); err != nil {
			t.Errorf("ValidateSensorType(%q) = %v", typ, err)
		}
	}
	if err := ValidateSensorType(SensorType("viento")); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for unknown type, got %v", err)
	}
	if err := ValidateSensorType(SensorType("")); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty type, got %v", err)
	}
}

func TestValidateObjectID(t *testing.T) {
	cases := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"valid lowercase", "64b000000000000000000123", false},
		{"valid uppercase", "64B000000000000000000ABC", false},
		{"too short", "64b123", true},
		{"too long", "64b0000000000000000001234", true},
		{"non hex", "64b0000000000000000001zz", true},
		{"empty", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateObjectID(tc.id)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidID) {
					t.Errorf("Expected ErrInvalidID, got %v", err)
				}
			} else if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestValidateDateRange(t *testing.T) {
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if err := ValidateDateRange(from, from); err != nil {
		t.Errorf("Equal bounds must be valid, got %v", err)
	}
	if err := ValidateDateRange(from, from.Add(time.Hour)); err != nil {
		t.Errorf("Ordered bounds must be valid, got %v", err)
	}
	if err := ValidateDateRange(from.Add(time.Hour), from); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for inverted range, got %v", err)
	}
}

// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package agrosync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// FeedSource supplies a snapshot of the external sensor feed, flattened into
// one tagged reading per measurement. Implementations must return
// ErrFeedUnavailable (wrapped) on any transport or decoding failure.
type FeedSource interface {
	FetchSnapshot(ctx context.Context) ([]SensorReading, error)
}

// feedEntry is the wire shape of a single measurement. The feed has shipped
// several close variants of this shape over time; everything is normalized
// into SensorReading at this boundary so the reconciliation logic never sees
// wire-format churn.
type feedEntry struct {
	Value     float64    `json:"value"`
	Unit      string     `json:"unit"`
	Timestamp feedTime   `json:"timestamp"`
	Coords    feedCoords `json:"coords"`
}

// feedCoords tolerates both "lon" and the "lng" alias seen in older feeds.
type feedCoords struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
	Lng *float64 `json:"lng"`
}

func (c feedCoords) normalize() (Coordinates, bool) {
	if c.Lat == nil {
		return Coordinates{}, false
	}
	lon := c.Lon
	if lon == nil {
		lon = c.Lng
	}
	if lon == nil {
		return Coordinates{}, false
	}
	return Coordinates{Lat: *c.Lat, Lon: *lon}, true
}

// feedTime accepts RFC3339 strings or epoch milliseconds.
type feedTime struct {
	time.Time
}

func (t *feedTime) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		t.Time = time.Time{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339, str)
		if err != nil {
			return fmt.Errorf("unrecognized timestamp %q: %w", str, err)
		}
		t.Time = parsed
		return nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("unrecognized timestamp %s: %w", s, err)
	}
	t.Time = time.UnixMilli(ms).UTC()
	return nil
}

// feedSnapshot is the feed response body: one optional array per sensor type.
type feedSnapshot struct {
	Temperatura    []feedEntry `json:"temperatura"`
	Humedad        []feedEntry `json:"humedad"`
	Lluvia         []feedEntry `json:"lluvia"`
	RadiacionSolar []feedEntry `json:"radiacion_solar"`
}

// FeedClient fetches sensor snapshots from the configured external HTTP feed.
type FeedClient struct {
	http   *resty.Client
	url    string
	logger *slog.Logger
}

// NewFeedClient creates a feed client for the given endpoint URL.
func NewFeedClient(url string, timeout time.Duration, logger *slog.Logger) *FeedClient {
	if logger == nil {
		logger = slog.Default()
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &FeedClient{http: client, url: url, logger: logger}
}

// FetchSnapshot pulls the feed and flattens every per-type array into one
// list of tagged readings. Missing arrays default to empty. Entries without
// usable coordinates are dropped here; range and type validity are the
// reconciliation engine's concern.
func (f *FeedClient) FetchSnapshot(ctx context.Context) ([]SensorReading, error) {
	resp, err := f.http.R().SetContext(ctx).Get(f.url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: feed returned status %d", ErrFeedUnavailable, resp.StatusCode())
	}

	var snapshot feedSnapshot
	if err := json.Unmarshal(resp.Body(), &snapshot); err != nil {
		return nil, fmt.Errorf("%w: malformed feed body: %v", ErrFeedUnavailable, err)
	}

	var readings []SensorReading
	appendEntries := func(entries []feedEntry, typ SensorType) {
		for _, e := range entries {
			coords, ok := e.Coords.normalize()
			if !ok {
				f.logger.Warn("Dropping feed entry without coordinates", "type", typ)
				continue
			}
			readings = append(readings, SensorReading{
				Value:     e.Value,
				Unit:      e.Unit,
				Timestamp: e.Timestamp.Time,
				Coords:    coords,
				Type:      typ,
			})
		}
	}
	appendEntries(snapshot.Temperatura, SensorTemperatura)
	appendEntries(snapshot.Humedad, SensorHumedad)
	appendEntries(snapshot.Lluvia, SensorLluvia)
	appendEntries(snapshot.RadiacionSolar, SensorRadiacionSolar)

	f.logger.Debug("Fetched feed snapshot", "url", f.url, "readings", len(readings))
	return readings, nil
}

// FilterByType keeps only readings of the given type.
func FilterByType(readings []SensorReading, typ SensorType) []SensorReading {
	var out []SensorReading
	for _, r := range readings {
		if r.Type == typ {
			out = append(out, r)
		}
	}
	return out
}

// FilterByDateRange keeps readings whose timestamp falls in [from, to].
func FilterByDateRange(readings []SensorReading, from, to time.Time) []SensorReading {
	var out []SensorReading
	for _, r := range readings {
		if r.Timestamp.Before(from) || r.Timestamp.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// FilterByValue keeps readings whose value falls within the optional bounds.
func FilterByValue(readings []SensorReading, minValue, maxValue *float64) []SensorReading {
	var out []SensorReading
	for _, r := range readings {
		if minValue != nil && r.Value < *minValue {
			continue
		}
		if maxValue != nil && r.Value > *maxValue {
			continue
		}
		out = append(out, r)
	}
	return out
}

// UniqueCoordinates lists the distinct rounded coordinates present in the
// snapshot, in stable order of first appearance.
func UniqueCoordinates(readings []SensorReading) []Coordinates {
	seen := make(map[CoordKey]bool)
	var out []Coordinates
	for _, r := range readings {
		key := NewCoordKey(r.Coords.Lat, r.Coords.Lon, "")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Coordinates{Lat: key.Lat(), Lon: key.Lon()})
	}
	return out
}

// SnapshotStats computes per-type count/avg/min/max over a snapshot. Units
// come from the first reading carrying one, falling back to DefaultUnit.
func SnapshotStats(readings []SensorReading) map[SensorType]SensorStats {
	stats := make(map[SensorType]SensorStats, len(AllSensorTypes))
	for _, typ := range AllSensorTypes {
		var (
			count    int
			sum      float64
			min, max float64
			unit     string
		)
		for _, r := range readings {
			if r.Type != typ {
				continue
			}
			if count == 0 {
				min, max = r.Value, r.Value
			} else {
				if r.Value < min {
					min = r.Value
				}
				if r.Value > max {
					max = r.Value
				}
			}
			if unit == "" {
				unit = r.Unit
			}
			sum += r.Value
			count++
		}
		if unit == "" {
			unit = DefaultUnit(typ)
		}
		s := SensorStats{Key: string(typ), Count: count, Unit: unit}
		if count > 0 {
			s.AvgValue = sum / float64(count)
			s.MinValue = min
			s.MaxValue = max
		}
		stats[typ] = s
	}
	return stats
}

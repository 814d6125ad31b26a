package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// PositionFix is a one-shot reading from a geolocation source.
// Accuracy is the uncertainty radius in meters; zero means unknown.
type PositionFix struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// Coordinate returns the position part of the fix.
func (f PositionFix) Coordinate() Coordinate {
	return Coordinate{Latitude: f.Latitude, Longitude: f.Longitude}
}

// AccuracyOrDefault returns the reported accuracy, or DefaultAccuracy when
// the source did not report one.
func (f PositionFix) AccuracyOrDefault() float64 {
	if f.Accuracy == 0 {
		return DefaultAccuracy
	}
	return f.Accuracy
}

// Validate rejects fixes with an unusable position or a negative / non-finite
// accuracy. Such readings are never coerced to zero.
func (f PositionFix) Validate() error {
	if err := f.Coordinate().Validate(); err != nil {
		return err
	}
	if math.IsNaN(f.Accuracy) || math.IsInf(f.Accuracy, 0) || f.Accuracy < 0 {
		return fmt.Errorf("accuracy %v must be a non-negative number of meters", f.Accuracy)
	}
	return nil
}

// fixPayload is the JSON a device sends in answer to a position request.
// A non-empty Error means the device refused or could not get a fix.
type fixPayload struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  float64  `json:"accuracy"`
	Error     string   `json:"error,omitempty"`
}

// ParsePositionFix decodes and validates a device position message.
// Failures wrap ErrPositionUnavailable.
func ParsePositionFix(data []byte) (PositionFix, error) {
	var p fixPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return PositionFix{}, fmt.Errorf("%w: decode fix: %w", ErrPositionUnavailable, err)
	}
	if p.Error != "" {
		return PositionFix{}, fmt.Errorf("%w: %s", ErrPositionUnavailable, p.Error)
	}
	if p.Latitude == nil || p.Longitude == nil {
		return PositionFix{}, fmt.Errorf("%w: fix without coordinates", ErrPositionUnavailable)
	}
	fix := PositionFix{Latitude: *p.Latitude, Longitude: *p.Longitude, Accuracy: p.Accuracy}
	if err := fix.Validate(); err != nil {
		return PositionFix{}, fmt.Errorf("%w: %w", ErrPositionUnavailable, err)
	}
	return fix, nil
}

// Package timeline defines the timed-segment data model that drives a render.
package timeline

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Segment is one timed image on the timeline. EndMS must be greater than
// StartMS for the segment to be renderable; segments violating that are
// filtered out by the clip builder, not rejected here.
type Segment struct {
	Text       string   `json:"text"`
	ImageRef   string   `json:"image_reference" validate:"required"`
	StartMS    int64    `json:"start_ms" validate:"gte=0"`
	EndMS      int64    `json:"end_ms" validate:"gte=0"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// DurationSeconds returns the display duration of the segment.
// Non-positive values mark the segment as invalid.
func (s Segment) DurationSeconds() float64 {
	return float64(s.EndMS-s.StartMS) / 1000.0
}

// Timeline is an ordered sequence of segments. Order is the array order;
// segments are assumed non-decreasing by StartMS but are never re-sorted.
// TotalDurationMS is informational only: the rendered duration is computed
// from the valid segments.
type Timeline struct {
	ID              string    `json:"id" validate:"required"`
	OwnerID         string    `json:"owner_id"`
	Segments        []Segment `json:"segments" validate:"required,dive"`
	TotalDurationMS int64     `json:"total_duration_ms"`
}

// Request is the language-agnostic render request shape.
type Request struct {
	Timeline        Timeline `json:"timeline" validate:"required"`
	Title           string   `json:"title" validate:"required"`
	BackgroundMusic string   `json:"background_music,omitempty"`
	WeatherEffect   string   `json:"weather_effect,omitempty"`
	UseCrossfade    bool     `json:"use_crossfade"`
	OutroURL        string   `json:"outro_url,omitempty"`
}

// Result is returned for every render request, success or failure.
type Result struct {
	Success         bool    `json:"success"`
	VideoPath       string  `json:"video_path,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	ClipsCount      int     `json:"clips_count"`
	Message         string  `json:"message"`
}

var validate = validator.New()

// ValidateRequest checks the structural validity of a render request before
// it enters the pipeline. Weather-effect names are not checked here; the
// overlay factory owns that error so its message can name the supported set.
func ValidateRequest(req *Request) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid render request: %w", err)
	}
	return nil
}

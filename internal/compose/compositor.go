// Package compose merges the sequenced clip stream with an optional weather
// overlay into the final frame stream handed to the encoder.
package compose

import (
	"image"
	"log/slog"
	"math/rand"

	"github.com/ivlev/timeline2video/internal/overlay"
	"github.com/ivlev/timeline2video/internal/system"
)

// Source is the base frame stream the compositor consumes. Implemented by
// sequence.Stream.
type Source interface {
	Size() (int, int)
	FPS() int
	FrameCount() int
	Duration() float64
	Next() (*image.RGBA, bool)
}

// Stream is the composited output: base frames with the overlay
// alpha-blended on top. It keeps the same pull-based, forward-only
// contract as its source.
type Stream struct {
	base    Source
	overlay *overlay.Stream
	logger  *slog.Logger
}

// New wraps base with the named weather effect. An empty effect name, a
// disabled config or an overlay creation failure all degrade to the base
// stream unchanged; only the factory's unknown-effect error is surfaced,
// since that is a caller error rather than a runtime failure.
func New(base Source, effect string, enabled bool, intensity float64, rng *rand.Rand, logger *slog.Logger) (*Stream, error) {
	if logger == nil {
		logger = slog.Default()
	}
	st := &Stream{base: base, logger: logger}

	if effect == "" || !enabled {
		return st, nil
	}

	w, h := base.Size()
	sys, err := overlay.New(effect, w, h, intensity, rng)
	if err != nil {
		return nil, err
	}

	st.overlay = sys.Overlay(base.Duration(), base.FPS())
	logger.Info("weather overlay attached", "effect", effect, "intensity", intensity)
	return st, nil
}

// Size returns the frame geometry.
func (s *Stream) Size() (int, int) { return s.base.Size() }

// FPS returns the stream frame rate.
func (s *Stream) FPS() int { return s.base.FPS() }

// FrameCount returns the total number of frames.
func (s *Stream) FrameCount() int { return s.base.FrameCount() }

// Duration returns the rendered duration in seconds.
func (s *Stream) Duration() float64 { return s.base.Duration() }

// Next pulls the next base frame and composites the overlay frame onto it
// in place. Ownership of the returned frame passes to the caller.
func (s *Stream) Next() (*image.RGBA, bool) {
	frame, ok := s.base.Next()
	if !ok {
		return nil, false
	}

	if s.overlay != nil {
		if ov, ok := s.overlay.Next(); ok {
			alphaOver(frame, ov)
			system.PutImage(ov)
		}
	}
	return frame, true
}

// alphaOver composites src over dst using src's alpha channel. dst is
// treated as fully opaque, which holds for every sequenced clip frame.
func alphaOver(dst, src *image.RGBA) {
	for i := 0; i < len(dst.Pix); i += 4 {
		a := uint32(src.Pix[i+3])
		if a == 0 {
			continue
		}
		ia := 255 - a
		dst.Pix[i] = uint8((uint32(src.Pix[i])*a + uint32(dst.Pix[i])*ia) / 255)
		dst.Pix[i+1] = uint8((uint32(src.Pix[i+1])*a + uint32(dst.Pix[i+1])*ia) / 255)
		dst.Pix[i+2] = uint8((uint32(src.Pix[i+2])*a + uint32(dst.Pix[i+2])*ia) / 255)
		dst.Pix[i+3] = 255
	}
}

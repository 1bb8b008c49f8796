// Package overlay implements the animated weather overlays: stateful
// particle systems producing transparent RGBA frame sequences that are
// composited on top of the rendered video.
//
// Every system owns its particle state and mutates it once per produced
// frame. A stream is therefore single-consumer and must be pulled in
// strictly increasing time order; re-requesting an earlier frame does not
// rewind the simulation.
package overlay

import (
	"errors"
	"fmt"
	"image"
	"math"
	"math/rand"

	"github.com/ivlev/timeline2video/internal/system"
)

// Supported weather effect names, in the order reported by errors.
var Supported = []string{"rain", "snow", "fire"}

// ErrUnknownEffect marks a request for an effect that does not exist. It is
// a caller error and fatal for the request, unlike runtime overlay failures
// which the compositor absorbs.
var ErrUnknownEffect = errors.New("unknown weather effect")

// System is an animated overlay generator constructed for a fixed
// resolution and intensity.
type System interface {
	// Overlay returns a finite stream of duration·fps frames. Only one
	// stream should be drawn from a system at a time.
	Overlay(duration float64, fps int) *Stream
}

// New creates the named effect. An unknown name is a caller error and fails
// explicitly; it never degrades into a no-op overlay.
func New(effect string, width, height int, intensity float64, rng *rand.Rand) (System, error) {
	switch effect {
	case "rain":
		return NewRain(width, height, intensity, rng), nil
	case "snow":
		return NewSnow(width, height, intensity, rng), nil
	case "fire":
		return NewFire(width, height, intensity, rng), nil
	default:
		return nil, fmt.Errorf("%w %q (supported: %v)", ErrUnknownEffect, effect, Supported)
	}
}

// Particle is one animated element. It is owned exclusively by its emitting
// system and mutated in place once per rendered frame.
type Particle struct {
	X, Y    float64
	Speed   float64
	Size    int
	Opacity float64
	Drift   float64
	Color   [3]uint8
}

// ParticleCount derives the particle count from the effect's base count and
// the configured intensity, clamped to [0,1].
func ParticleCount(base int, intensity float64) int {
	return int(math.Round(float64(base) * clamp01(intensity)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// stepper advances the simulation by one frame interval and draws the
// resulting particle positions onto frame.
type stepper interface {
	step(dt float64, frame *image.RGBA)
}

// Stream is a finite, forward-only sequence of overlay frames.
type Stream struct {
	sys           stepper
	width, height int
	dt            float64
	total         int
	produced      int
}

func newStream(sys stepper, width, height int, duration float64, fps int) *Stream {
	return &Stream{
		sys:    sys,
		width:  width,
		height: height,
		dt:     1.0 / float64(fps),
		total:  int(math.Round(duration * float64(fps))),
	}
}

// FrameCount returns the total number of frames the stream will produce.
func (s *Stream) FrameCount() int {
	return s.total
}

// Next advances the simulation and returns the next overlay frame, or
// (nil, false) once the stream is exhausted. The frame buffer comes from
// the shared image pool; the consumer must hand it back with
// system.PutImage after compositing.
func (s *Stream) Next() (*image.RGBA, bool) {
	if s.produced >= s.total {
		return nil, false
	}
	frame := system.GetImage(image.Rect(0, 0, s.width, s.height))
	s.sys.step(s.dt, frame)
	s.produced++
	return frame, true
}

// base holds what every weather variant shares.
type base struct {
	width, height int
	intensity     float64
	rng           *rand.Rand
	particles     []*Particle
}

func newBase(width, height int, intensity float64, rng *rand.Rand) base {
	return base{
		width:     width,
		height:    height,
		intensity: clamp01(intensity),
		rng:       rng,
	}
}

// uniform returns a random float64 in [lo, hi).
func (b *base) uniform(lo, hi float64) float64 {
	return lo + b.rng.Float64()*(hi-lo)
}

// sizeBetween returns a random size in [lo, hi] inclusive.
func (b *base) sizeBetween(lo, hi int) int {
	return lo + b.rng.Intn(hi-lo+1)
}

// setPixel writes an RGBA value if (x, y) is inside the frame.
func setPixel(frame *image.RGBA, x, y int, r, g, bl, a uint8) {
	if x < 0 || y < 0 || x >= frame.Rect.Dx() || y >= frame.Rect.Dy() {
		return
	}
	i := frame.PixOffset(x, y)
	frame.Pix[i] = r
	frame.Pix[i+1] = g
	frame.Pix[i+2] = bl
	frame.Pix[i+3] = a
}

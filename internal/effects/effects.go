// Package effects applies per-clip motion transforms: Ken-Burns zoom, pan
// and fade. All transforms are time-parametric frame functions; nothing is
// pre-rendered and the source clip is never mutated.
package effects

import (
	"image"
	"log/slog"
	"math/rand"

	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/timeline2video/internal/clip"
)

// Direction of the pan movement.
type Direction int

const (
	PanLeft Direction = iota
	PanRight
	PanUp
	PanDown
)

func (d Direction) String() string {
	switch d {
	case PanLeft:
		return "left"
	case PanRight:
		return "right"
	case PanUp:
		return "up"
	default:
		return "down"
	}
}

// minMotionDuration is the clip length below which zoom and pan are skipped;
// on very short clips the movement reads as jitter.
const minMotionDuration = 1.0

// Engine wraps clips with the configured transforms. Random choices (zoom
// direction, pan direction) are drawn once per clip from the injected
// source, which makes renders reproducible under a fixed seed.
type Engine struct {
	FadeDuration float64
	ZoomFactor   float64
	PanDistance  int

	rng    *rand.Rand
	logger *slog.Logger
}

// NewEngine creates a motion engine. rng must not be nil: nondeterministic
// choices are owned by the caller.
func NewEngine(fadeDuration, zoomFactor float64, panDistance int, rng *rand.Rand, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		FadeDuration: fadeDuration,
		ZoomFactor:   zoomFactor,
		PanDistance:  panDistance,
		rng:          rng,
		logger:       logger,
	}
}

// Apply layers the enabled transforms onto c in fixed order:
// Ken-Burns zoom, then pan, then fade-in/fade-out.
func (e *Engine) Apply(c clip.Clip, kenBurns, pan bool) clip.Clip {
	if kenBurns && c.Duration > minMotionDuration {
		zoomIn := e.rng.Intn(2) == 0
		c = KenBurns(c, e.ZoomFactor, zoomIn)
		e.logger.Debug("ken-burns applied", "clip", c.Text, "zoom_in", zoomIn)
	}

	if pan && c.Duration > minMotionDuration {
		dir := Direction(e.rng.Intn(4))
		c = Pan(c, e.PanDistance, dir)
		e.logger.Debug("pan applied", "clip", c.Text, "direction", dir.String())
	}

	if c.Duration > e.FadeDuration {
		c = Fade(c, e.FadeDuration)
	}

	return c
}

// KenBurns applies a continuous zoom over the clip duration.
// Zoom-in runs 1.0 → factor, zoom-out runs factor → 1.0; the upscaled frame
// is cropped to a centered window of the original size.
func KenBurns(c clip.Clip, factor float64, zoomIn bool) clip.Clip {
	duration := c.Duration
	inner := c.Frame

	c.Frame = func(t float64) *image.RGBA {
		progress := t / duration
		var z float64
		if zoomIn {
			z = 1.0 + (factor-1.0)*progress
		} else {
			z = factor - (factor-1.0)*progress
		}

		src := inner(t)
		w, h := src.Bounds().Dx(), src.Bounds().Dy()
		zw, zh := int(float64(w)*z), int(float64(h)*z)
		if zw <= w || zh <= h {
			return src
		}

		scaled := image.NewRGBA(image.Rect(0, 0, zw, zh))
		xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), src, src.Bounds(), xdraw.Src, nil)

		left := (zw - w) / 2
		top := (zh - h) / 2
		out := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.Draw(out, out.Bounds(), scaled, image.Pt(left, top), xdraw.Src)
		return out
	}
	return c
}

// Zoom returns the Ken-Burns zoom level at time t for a clip of the given
// duration. Exposed separately so the ramp can be verified without
// rendering pixels.
func Zoom(t, duration, factor float64, zoomIn bool) float64 {
	progress := t / duration
	if zoomIn {
		return 1.0 + (factor-1.0)*progress
	}
	return factor - (factor-1.0)*progress
}

// Pan applies a continuous directional crop offset. The frame is expanded by
// distance pixels on the moving axis and a window of the original size is
// cropped at the margin center plus the signed offset. The window origin is
// clamped into the expanded frame so the crop never samples out of bounds.
func Pan(c clip.Clip, distance int, dir Direction) clip.Clip {
	duration := c.Duration
	inner := c.Frame

	c.Frame = func(t float64) *image.RGBA {
		progress := t / duration
		offset := int(float64(distance) * progress)
		if dir == PanLeft || dir == PanUp {
			offset = -offset
		}

		src := inner(t)
		w, h := src.Bounds().Dx(), src.Bounds().Dy()

		expW, expH := w, h
		horizontal := dir == PanLeft || dir == PanRight
		if horizontal {
			expW += distance
		} else {
			expH += distance
		}

		expanded := image.NewRGBA(image.Rect(0, 0, expW, expH))
		xdraw.ApproxBiLinear.Scale(expanded, expanded.Bounds(), src, src.Bounds(), xdraw.Src, nil)

		left, top := 0, 0
		if horizontal {
			left = clampInt(distance/2+offset, 0, distance)
		} else {
			top = clampInt(distance/2+offset, 0, distance)
		}

		out := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.Draw(out, out.Bounds(), expanded, image.Pt(left, top), xdraw.Src)
		return out
	}
	return c
}

// Fade applies fade-in over the first fadeDuration seconds and fade-out over
// the last. Opacity scales every channel (alpha-over-black semantics).
func Fade(c clip.Clip, fadeDuration float64) clip.Clip {
	duration := c.Duration
	inner := c.Frame

	c.Frame = func(t float64) *image.RGBA {
		opacity := Opacity(t, duration, fadeDuration)
		src := inner(t)
		if opacity >= 1.0 {
			return src
		}

		out := image.NewRGBA(src.Bounds())
		for i, v := range src.Pix {
			out.Pix[i] = uint8(float64(v) * opacity)
		}
		return out
	}
	return c
}

// Opacity returns the fade opacity at time t: a linear ramp up over the
// first fadeDuration seconds and down over the last, 1.0 in between.
func Opacity(t, duration, fadeDuration float64) float64 {
	if fadeDuration <= 0 {
		return 1.0
	}
	if t < fadeDuration {
		o := t / fadeDuration
		if o > 1 {
			o = 1
		}
		return o
	}
	if t > duration-fadeDuration {
		o := (duration - t) / fadeDuration
		if o < 0 {
			o = 0
		}
		return o
	}
	return 1.0
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

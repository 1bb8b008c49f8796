// Package clip turns timed image segments into renderable clips: a finite
// frame-producing function of time plus a duration.
package clip

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/timeline2video/internal/source"
	"github.com/ivlev/timeline2video/internal/timeline"
)

// ErrNoValidClips is returned when every segment of a timeline was excluded.
// It is fatal for the whole render request.
var ErrNoValidClips = errors.New("no valid clips could be built from the timeline")

// FrameFunc produces the frame at time t (seconds from clip start).
// The returned image must not be retained across calls.
type FrameFunc func(t float64) *image.RGBA

// Clip is the renderable form of one segment.
type Clip struct {
	Text     string
	Duration float64
	Frame    FrameFunc
}

// Builder filters segments and produces clips at the target resolution.
type Builder struct {
	resolver source.Resolver
	width    int
	height   int
	logger   *slog.Logger
}

// NewBuilder creates a clip builder rendering at width×height.
func NewBuilder(resolver source.Resolver, width, height int, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{resolver: resolver, width: width, height: height, logger: logger}
}

// Build produces one clip per valid segment, preserving input order.
// Segments with a non-positive duration or an unresolvable image reference
// are logged and skipped; an empty result fails with ErrNoValidClips.
//
// Decoding and scaling are CPU bound, so segments are prepared in parallel;
// the skipping decisions stay per-slot and the output keeps timeline order.
func (b *Builder) Build(tl *timeline.Timeline) ([]Clip, error) {
	prepared := make([]*Clip, len(tl.Segments))

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())

	for i, seg := range tl.Segments {
		g.Go(func() error {
			// A panic on a worker goroutine cannot be recovered at the
			// request boundary; it counts as a failed segment here.
			defer func() {
				if r := recover(); r != nil {
					b.logger.Warn("skipping segment after panic",
						"index", i, "text", seg.Text, "panic", r)
				}
			}()

			duration := seg.DurationSeconds()
			if duration <= 0 {
				b.logger.Warn("skipping segment with invalid duration",
					"index", i, "text", seg.Text, "duration_s", duration)
				return nil
			}

			img, err := b.resolver.Resolve(seg.ImageRef)
			if err != nil {
				b.logger.Warn("skipping segment with missing asset",
					"index", i, "text", seg.Text, "ref", seg.ImageRef, "error", err)
				return nil
			}

			c := b.fromImage(seg.Text, img, duration)
			prepared[i] = &c
			return nil
		})
	}
	// Per-segment failures are absorbed above; Wait only synchronizes.
	_ = g.Wait()

	clips := make([]Clip, 0, len(prepared))
	for i, c := range prepared {
		if c == nil {
			continue
		}
		clips = append(clips, *c)
		b.logger.Info("clip created", "index", i, "text", c.Text, "duration_s", c.Duration)
	}

	if len(clips) == 0 {
		return nil, ErrNoValidClips
	}
	return clips, nil
}

// fromImage fill-scales the source to the target resolution and wraps it in
// a static frame function. The scaled frame is shared across calls; effects
// downstream never mutate their input.
func (b *Builder) fromImage(text string, img image.Image, duration float64) Clip {
	frame := FillScale(img, b.width, b.height)
	return Clip{
		Text:     text,
		Duration: duration,
		Frame: func(t float64) *image.RGBA {
			return frame
		},
	}
}

// FillScale scales src so it covers width×height (no letterboxing) and
// center-crops the overflow.
func FillScale(src image.Image, width, height int) *image.RGBA {
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	if sw == 0 || sh == 0 {
		return image.NewRGBA(image.Rect(0, 0, width, height))
	}

	// Scale factor that covers the target on both axes.
	scale := float64(width) / float64(sw)
	if s := float64(height) / float64(sh); s > scale {
		scale = s
	}

	scaledW := int(float64(sw)*scale + 0.5)
	scaledH := int(float64(sh)*scale + 0.5)
	if scaledW < width {
		scaledW = width
	}
	if scaledH < height {
		scaledH = height
	}

	scaled := image.NewRGBA(image.Rect(0, 0, scaledW, scaledH))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), src, sb, xdraw.Src, nil)

	left := (scaledW - width) / 2
	top := (scaledH - height) / 2

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.Draw(dst, dst.Bounds(), scaled, image.Pt(left, top), xdraw.Src)
	return dst
}

// String implements fmt.Stringer for log output.
func (c Clip) String() string {
	return fmt.Sprintf("clip(%q, %.2fs)", c.Text, c.Duration)
}

// Package sequence computes the final clip timeline: start offsets,
// crossfade overlap windows and the total duration, and exposes the result
// as a pull-based frame stream.
package sequence

import (
	"image"
	"log/slog"
	"math"

	"github.com/ivlev/timeline2video/internal/clip"
	"github.com/ivlev/timeline2video/internal/system"
)

// Sequencer computes clip ordering and transition timing.
type Sequencer struct {
	// Crossfade is the requested overlap in seconds; zero disables
	// crossfading and the clips are simply concatenated.
	Crossfade float64

	logger *slog.Logger
}

// NewSequencer creates a sequencer. crossfade <= 0 disables transitions.
func NewSequencer(crossfade float64, logger *slog.Logger) *Sequencer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sequencer{Crossfade: crossfade, logger: logger}
}

// Entry places one clip on the global timeline.
type Entry struct {
	Clip  clip.Clip
	Start float64
}

// Schedule is the computed timeline for a clip list.
type Schedule struct {
	Entries []Entry
	// Crossfade is the effective overlap after clamping.
	Crossfade float64
	// Total is the final video duration in seconds.
	Total float64
}

// Plan computes the timeline. With crossfade enabled each adjacent pair
// overlaps for the crossfade duration and the total shrinks accordingly:
// total = sum(durations) - (n-1)·crossfade.
//
// A crossfade that is not shorter than the shortest clip would leave a clip
// with negative remaining length, so it is clamped to half the shortest
// clip duration before scheduling.
func (s *Sequencer) Plan(clips []clip.Clip) Schedule {
	xfade := s.Crossfade
	if xfade < 0 {
		xfade = 0
	}
	if len(clips) < 2 {
		xfade = 0
	}

	if xfade > 0 {
		minDur := clips[0].Duration
		for _, c := range clips {
			if c.Duration < minDur {
				minDur = c.Duration
			}
		}
		if xfade >= minDur {
			clamped := minDur / 2.0
			s.logger.Warn("crossfade longer than shortest clip, clamping",
				"requested_s", xfade, "clamped_s", clamped)
			xfade = clamped
		}
	}

	entries := make([]Entry, len(clips))
	cursor := 0.0
	for i, c := range clips {
		if i > 0 {
			cursor -= xfade
		}
		entries[i] = Entry{Clip: c, Start: cursor}
		cursor += c.Duration
	}

	return Schedule{Entries: entries, Crossfade: xfade, Total: cursor}
}

// Stream renders the schedule as a finite frame sequence. Frames are drawn
// from the shared image pool; the consumer owns each returned frame and
// must hand it back with system.PutImage once written out.
type Stream struct {
	schedule Schedule
	width    int
	height   int
	fps      int
	total    int
	produced int
}

// NewStream creates the frame stream for a schedule at the given geometry.
func NewStream(schedule Schedule, width, height, fps int) *Stream {
	return &Stream{
		schedule: schedule,
		width:    width,
		height:   height,
		fps:      fps,
		total:    int(math.Round(schedule.Total * float64(fps))),
	}
}

// Size returns the frame geometry.
func (st *Stream) Size() (int, int) { return st.width, st.height }

// FPS returns the stream frame rate.
func (st *Stream) FPS() int { return st.fps }

// FrameCount returns the total number of frames.
func (st *Stream) FrameCount() int { return st.total }

// Duration returns the rendered duration in seconds.
func (st *Stream) Duration() float64 { return st.schedule.Total }

// Next produces the next frame in timeline order, or (nil, false) when the
// stream is exhausted.
func (st *Stream) Next() (*image.RGBA, bool) {
	if st.produced >= st.total {
		return nil, false
	}
	t := float64(st.produced) / float64(st.fps)
	st.produced++

	out := system.GetImage(image.Rect(0, 0, st.width, st.height))
	st.renderAt(t, out)
	return out, true
}

// renderAt composes the frame at global time t into dst. During an overlap
// window the outgoing clip ramps 1→0 while the incoming ramps 0→1.
func (st *Stream) renderAt(t float64, dst *image.RGBA) {
	entries := st.schedule.Entries

	// Active entries: at most two, since the crossfade is clamped below
	// every clip duration.
	first := -1
	second := -1
	for i := range entries {
		e := &entries[i]
		if t >= e.Start && t < e.Start+e.Clip.Duration {
			if first == -1 {
				first = i
			} else {
				second = i
				break
			}
		}
	}

	switch {
	case first == -1:
		// Past the end by a rounding hair: hold the last clip's final frame.
		last := &entries[len(entries)-1]
		frame := last.Clip.Frame(clampTime(t-last.Start, last.Clip.Duration))
		copyPix(dst, frame)
	case second == -1:
		e := &entries[first]
		frame := e.Clip.Frame(clampTime(t-e.Start, e.Clip.Duration))
		copyPix(dst, frame)
	default:
		out := &entries[first]
		in := &entries[second]
		a := (t - in.Start) / st.schedule.Crossfade
		if a < 0 {
			a = 0
		} else if a > 1 {
			a = 1
		}
		blend(dst,
			out.Clip.Frame(clampTime(t-out.Start, out.Clip.Duration)),
			in.Clip.Frame(clampTime(t-in.Start, in.Clip.Duration)),
			a)
	}
}

// blend writes outFrame·(1-a) + inFrame·a into dst.
func blend(dst, outFrame, inFrame *image.RGBA, a float64) {
	ia := 1.0 - a
	for i := range dst.Pix {
		dst.Pix[i] = uint8(float64(outFrame.Pix[i])*ia + float64(inFrame.Pix[i])*a)
	}
}

func copyPix(dst, src *image.RGBA) {
	copy(dst.Pix, src.Pix)
}

// clampTime keeps a clip-local time inside [0, duration).
func clampTime(t, duration float64) float64 {
	if t < 0 {
		return 0
	}
	if t >= duration {
		return math.Nextafter(duration, 0)
	}
	return t
}

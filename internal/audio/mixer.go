// Package audio plans the background track: volume scaling, looping when
// the track is shorter than the video and trimming to the exact final
// duration. The plan is consumed by the encoder, which owns the actual
// decode/mux work.
package audio

import (
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/ivlev/timeline2video/internal/system"
)

// Plan describes how the background track is attached to the video. It
// replaces any audio the output would otherwise carry.
type Plan struct {
	Path string
	// Volume is the amplitude scale in [0,1].
	Volume float64
	// ExtraLoops is how many additional times the track repeats so its
	// total length covers the video before trimming.
	ExtraLoops int
	// TrimSeconds is the exact final duration the audio is cut to.
	TrimSeconds float64
	// SourceSeconds is the probed track duration.
	SourceSeconds float64
}

// FilterExpr returns the ffmpeg audio filter applying the volume scale.
func (p *Plan) FilterExpr() string {
	return fmt.Sprintf("volume=%.3f", p.Volume)
}

// Mixer builds audio plans. The duration probe is pluggable for tests;
// by default it shells out to ffprobe.
type Mixer struct {
	Volume float64

	probe  func(path string) (float64, error)
	logger *slog.Logger
}

// NewMixer creates a mixer with the given amplitude scale.
func NewMixer(volume float64, logger *slog.Logger) *Mixer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mixer{Volume: volume, probe: system.GetAudioDuration, logger: logger}
}

// WithProbe overrides the track duration probe.
func (m *Mixer) WithProbe(probe func(string) (float64, error)) *Mixer {
	m.probe = probe
	return m
}

// Plan computes the loop/trim plan for attaching path to a video of
// videoDuration seconds. Any failure here is recoverable: the caller logs
// it and renders without audio.
func (m *Mixer) Plan(path string, videoDuration float64) (*Plan, error) {
	if path == "" {
		return nil, fmt.Errorf("no audio track given")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("audio track %s: %w", path, err)
	}

	sourceDur, err := m.probe(path)
	if err != nil {
		return nil, fmt.Errorf("probe audio track: %w", err)
	}
	if sourceDur <= 0 {
		return nil, fmt.Errorf("audio track %s has no duration", path)
	}

	extraLoops := 0
	if sourceDur < videoDuration {
		extraLoops = int(math.Ceil(videoDuration/sourceDur)) - 1
	}

	plan := &Plan{
		Path:          path,
		Volume:        m.Volume,
		ExtraLoops:    extraLoops,
		TrimSeconds:   videoDuration,
		SourceSeconds: sourceDur,
	}

	m.logger.Info("background audio planned",
		"path", path,
		"source_s", sourceDur,
		"extra_loops", extraLoops,
		"trim_s", videoDuration,
		"volume", m.Volume)
	return plan, nil
}

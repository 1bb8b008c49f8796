// Package engine orchestrates the render pipeline: clip building, motion
// effects, transition sequencing, weather compositing, audio planning and
// the final encode. It is the request boundary: every failure is converted
// into a structured Result rather than propagating raw.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/ivlev/timeline2video/internal/audio"
	"github.com/ivlev/timeline2video/internal/clip"
	"github.com/ivlev/timeline2video/internal/compose"
	"github.com/ivlev/timeline2video/internal/config"
	"github.com/ivlev/timeline2video/internal/effects"
	"github.com/ivlev/timeline2video/internal/naming"
	"github.com/ivlev/timeline2video/internal/overlay"
	"github.com/ivlev/timeline2video/internal/sequence"
	"github.com/ivlev/timeline2video/internal/source"
	"github.com/ivlev/timeline2video/internal/storage"
	"github.com/ivlev/timeline2video/internal/system"
	"github.com/ivlev/timeline2video/internal/timeline"
	"github.com/ivlev/timeline2video/internal/video"
)

// Generator renders timelines into video files. Each render request should
// use its own Generator: particle systems and the random source are mutable
// state that must not be shared across concurrent requests.
type Generator struct {
	cfg      *config.RenderConfig
	resolver source.Resolver
	encoder  video.Encoder
	sink     storage.Sink
	rng      *rand.Rand
	logger   *slog.Logger
}

// Option customizes a Generator.
type Option func(*Generator)

// WithResolver replaces the default filesystem image resolver.
func WithResolver(r source.Resolver) Option {
	return func(g *Generator) { g.resolver = r }
}

// WithEncoder replaces the default ffmpeg encoder.
func WithEncoder(e video.Encoder) Option {
	return func(g *Generator) { g.encoder = e }
}

// WithSink replaces the default local publish sink.
func WithSink(s storage.Sink) Option {
	return func(g *Generator) { g.sink = s }
}

// WithRand injects the random source driving effect direction choices.
// Seed it for reproducible renders.
func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) { g.rng = rng }
}

// New creates a Generator with the given config.
func New(cfg *config.RenderConfig, logger *slog.Logger, opts ...Option) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Generator{
		cfg:      cfg,
		resolver: source.NewFileResolver(0),
		encoder:  video.NewFFmpegEncoder(logger),
		sink:     storage.LocalSink{},
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate runs one render request to completion. Per-segment and
// per-feature failures (missing assets, overlay or audio problems) are
// absorbed with warnings; only whole-request failures — no valid clips, an
// unknown weather effect, an encoder error — produce a failure Result, and
// then no output file is left behind.
func (g *Generator) Generate(ctx context.Context, req timeline.Request) (result timeline.Result) {
	start := time.Now()

	// The boundary converts panics into a failure Result; nothing from the
	// pipeline propagates raw.
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("render panicked", "panic", r)
			result = failure(0, fmt.Sprintf("internal error: %v", r))
		}
	}()

	g.logger.Info("render started",
		"title", req.Title,
		"timeline_id", req.Timeline.ID,
		"segments", len(req.Timeline.Segments))

	if err := timeline.ValidateRequest(&req); err != nil {
		return failure(0, err.Error())
	}

	system.CheckAvailableMemory(g.logger, g.cfg.Width, g.cfg.Height)

	// 1. Clips.
	builder := clip.NewBuilder(g.resolver, g.cfg.Width, g.cfg.Height, g.logger)
	clips, err := builder.Build(&req.Timeline)
	if err != nil {
		if errors.Is(err, clip.ErrNoValidClips) {
			return failure(0, "no valid images found in the timeline")
		}
		return failure(0, err.Error())
	}
	g.logger.Info("clips built", "valid", len(clips), "total", len(req.Timeline.Segments))

	// 2. Motion effects.
	engine := effects.NewEngine(
		g.cfg.FadeDuration,
		g.cfg.KenBurnsZoomFactor,
		g.cfg.PanDistance,
		g.rng,
		g.logger,
	)
	for i := range clips {
		clips[i] = engine.Apply(clips[i], g.cfg.KenBurnsEnabled, g.cfg.PanEnabled)
	}

	// 3. Optional QR outro slide. A failure here drops the outro, never
	// the render.
	if req.OutroURL != "" {
		outro, err := builder.BuildOutro(req.OutroURL)
		if err != nil {
			g.logger.Warn("outro slide skipped", "error", err)
		} else {
			clips = append(clips, engine.Apply(outro, false, false))
		}
	}

	// 4. Sequencing.
	xfade := 0.0
	if req.UseCrossfade {
		xfade = g.cfg.CrossfadeDuration
	}
	schedule := sequence.NewSequencer(xfade, g.logger).Plan(clips)
	stream := sequence.NewStream(schedule, g.cfg.Width, g.cfg.Height, g.cfg.FPS)
	g.logger.Info("timeline sequenced",
		"clips", len(clips),
		"crossfade_s", schedule.Crossfade,
		"duration_s", schedule.Total)

	// 5. Weather overlay.
	final, err := compose.New(stream, req.WeatherEffect, g.cfg.WeatherEffectsEnabled,
		g.cfg.WeatherIntensity, g.rng, g.logger)
	if err != nil {
		if errors.Is(err, overlay.ErrUnknownEffect) {
			return failure(len(clips), err.Error())
		}
		// Any other overlay problem degrades to the plain stream.
		g.logger.Warn("weather overlay skipped", "error", err)
		final, _ = compose.New(stream, "", false, 0, g.rng, g.logger)
	}

	// 6. Background audio.
	var plan *audio.Plan
	if req.BackgroundMusic != "" {
		mixer := audio.NewMixer(g.cfg.BackgroundMusicVolume, g.logger)
		plan, err = mixer.Plan(req.BackgroundMusic, schedule.Total)
		if err != nil {
			g.logger.Warn("rendering without background audio", "error", err)
			plan = nil
		}
	}

	// 7. Encode.
	outPath := naming.OutputPath(g.cfg.OutputDir, req.Title, req.Timeline.ID)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		return failure(len(clips), fmt.Sprintf("create output directory: %v", err))
	}

	params := video.CodecParams{
		VideoCodec:   g.cfg.VideoCodec,
		AudioCodec:   g.cfg.AudioCodec,
		Bitrate:      g.cfg.Bitrate,
		AudioBitrate: g.cfg.AudioBitrate,
		Quality:      g.cfg.Quality,
	}
	if err := g.encoder.Encode(ctx, final, plan, params, outPath); err != nil {
		g.logger.Error("encoding failed", "error", err)
		return failure(len(clips), fmt.Sprintf("encoding failed: %v", err))
	}

	// 8. Publish. Upload failures keep the local file and the success.
	published, err := g.sink.Publish(ctx, outPath)
	if err != nil {
		g.logger.Warn("publish failed, keeping local file", "error", err)
		published = outPath
	}

	g.logger.Info("render finished",
		"path", published,
		"duration_s", schedule.Total,
		"clips", len(clips),
		"took", time.Since(start).Round(time.Millisecond))

	return timeline.Result{
		Success:         true,
		VideoPath:       published,
		DurationSeconds: schedule.Total,
		ClipsCount:      len(clips),
		Message:         "video generated successfully",
	}
}

func failure(clipsCount int, message string) timeline.Result {
	return timeline.Result{
		Success:    false,
		ClipsCount: clipsCount,
		Message:    message,
	}
}

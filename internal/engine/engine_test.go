package engine

import (
	"context"
	"fmt"
	"image"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/timeline2video/internal/audio"
	"github.com/ivlev/timeline2video/internal/config"
	"github.com/ivlev/timeline2video/internal/source"
	"github.com/ivlev/timeline2video/internal/timeline"
	"github.com/ivlev/timeline2video/internal/video"
)

type fakeResolver struct {
	known map[string]bool
}

func (r *fakeResolver) Resolve(ref string) (image.Image, error) {
	if !r.known[ref] {
		return nil, fmt.Errorf("%w: %s", source.ErrUnresolvable, ref)
	}
	return image.NewRGBA(image.Rect(0, 0, 64, 48)), nil
}

type fakeEncoder struct {
	calls      int
	failWith   error
	duration   float64
	frameCount int
	audio      *audio.Plan
	outPath    string
}

func (e *fakeEncoder) Encode(ctx context.Context, stream video.FrameStream, plan *audio.Plan, params video.CodecParams, outPath string) error {
	e.calls++
	if e.failWith != nil {
		return e.failWith
	}
	e.duration = stream.Duration()
	e.frameCount = stream.FrameCount()
	e.audio = plan
	e.outPath = outPath
	return nil
}

func testConfig(t *testing.T) *config.RenderConfig {
	cfg := config.Default()
	cfg.Width = 64
	cfg.Height = 48
	cfg.FPS = 10
	cfg.OutputDir = t.TempDir()
	return cfg
}

func testRequest() timeline.Request {
	return timeline.Request{
		Timeline: timeline.Timeline{
			ID: "a1b2c3d4e5f6",
			Segments: []timeline.Segment{
				{Text: "one", ImageRef: "a.png", StartMS: 0, EndMS: 3000},
				{Text: "two", ImageRef: "b.png", StartMS: 3000, EndMS: 7000},
				{Text: "three", ImageRef: "c.png", StartMS: 7000, EndMS: 10000},
			},
		},
		Title:        "Test Render",
		UseCrossfade: true,
	}
}

func newTestGenerator(t *testing.T, cfg *config.RenderConfig, enc video.Encoder) *Generator {
	resolver := &fakeResolver{known: map[string]bool{"a.png": true, "b.png": true, "c.png": true}}
	return New(cfg, nil,
		WithResolver(resolver),
		WithEncoder(enc),
		WithRand(rand.New(rand.NewSource(1))),
	)
}

func TestGenerateSuccess(t *testing.T) {
	cfg := testConfig(t)
	enc := &fakeEncoder{}
	gen := newTestGenerator(t, cfg, enc)

	result := gen.Generate(context.Background(), testRequest())

	require.True(t, result.Success, result.Message)
	assert.Equal(t, 3, result.ClipsCount)
	// 3s + 4s + 3s with two 0.5s crossfades.
	assert.InDelta(t, 9.0, result.DurationSeconds, 1e-9)
	assert.Equal(t, 1, enc.calls)
	assert.InDelta(t, 9.0, enc.duration, 1e-9)
	assert.Equal(t, 90, enc.frameCount)
	assert.Nil(t, enc.audio)
	assert.Equal(t, enc.outPath, result.VideoPath)
	assert.Contains(t, result.VideoPath, "test-render")
	assert.Contains(t, result.VideoPath, "a1b2c3d4.mp4")
}

func TestGenerateWithoutCrossfade(t *testing.T) {
	cfg := testConfig(t)
	enc := &fakeEncoder{}
	gen := newTestGenerator(t, cfg, enc)

	req := testRequest()
	req.UseCrossfade = false
	result := gen.Generate(context.Background(), req)

	require.True(t, result.Success, result.Message)
	assert.InDelta(t, 10.0, result.DurationSeconds, 1e-9)
}

func TestGenerateNoValidImages(t *testing.T) {
	cfg := testConfig(t)
	enc := &fakeEncoder{}
	gen := New(cfg, nil,
		WithResolver(&fakeResolver{known: map[string]bool{}}),
		WithEncoder(enc),
	)

	result := gen.Generate(context.Background(), testRequest())

	assert.False(t, result.Success)
	assert.Equal(t, 0, result.ClipsCount)
	assert.Equal(t, "no valid images found in the timeline", result.Message)
	assert.Empty(t, result.VideoPath)
	assert.Equal(t, 0, enc.calls, "encoder must not run without clips")
}

func TestGenerateSkipsBrokenSegments(t *testing.T) {
	cfg := testConfig(t)
	enc := &fakeEncoder{}
	gen := New(cfg, nil,
		WithResolver(&fakeResolver{known: map[string]bool{"a.png": true, "c.png": true}}),
		WithEncoder(enc),
		WithRand(rand.New(rand.NewSource(1))),
	)

	req := testRequest()
	result := gen.Generate(context.Background(), req)

	require.True(t, result.Success, result.Message)
	assert.Equal(t, 2, result.ClipsCount)
	// 3s + 3s with one 0.5s crossfade.
	assert.InDelta(t, 5.5, result.DurationSeconds, 1e-9)
}

func TestGenerateUnknownWeatherEffect(t *testing.T) {
	cfg := testConfig(t)
	enc := &fakeEncoder{}
	gen := newTestGenerator(t, cfg, enc)

	req := testRequest()
	req.WeatherEffect = "tornado"
	result := gen.Generate(context.Background(), req)

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.ClipsCount)
	assert.Contains(t, result.Message, "tornado")
	assert.Contains(t, result.Message, "rain")
	assert.Equal(t, 0, enc.calls, "encoder must not run for an unknown effect")
}

func TestGenerateEncodingFailure(t *testing.T) {
	cfg := testConfig(t)
	enc := &fakeEncoder{failWith: fmt.Errorf("ffmpeg exited with code 1")}
	gen := newTestGenerator(t, cfg, enc)

	result := gen.Generate(context.Background(), testRequest())

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.ClipsCount)
	assert.Contains(t, result.Message, "encoding failed")
	assert.Empty(t, result.VideoPath)
}

func TestGenerateMissingAudioDegrades(t *testing.T) {
	cfg := testConfig(t)
	enc := &fakeEncoder{}
	gen := newTestGenerator(t, cfg, enc)

	req := testRequest()
	req.BackgroundMusic = "/nonexistent/track.mp3"
	result := gen.Generate(context.Background(), req)

	require.True(t, result.Success, result.Message)
	assert.Nil(t, enc.audio, "missing track must render without audio")
}

func TestGenerateOutroAppended(t *testing.T) {
	cfg := testConfig(t)
	enc := &fakeEncoder{}
	gen := newTestGenerator(t, cfg, enc)

	req := testRequest()
	req.OutroURL = "https://example.com/watch"
	result := gen.Generate(context.Background(), req)

	require.True(t, result.Success, result.Message)
	assert.Equal(t, 4, result.ClipsCount)
	// Three crossfades now, and a 4s outro slide.
	assert.InDelta(t, 12.5, result.DurationSeconds, 1e-9)
}

type panicEncoder struct{}

func (panicEncoder) Encode(context.Context, video.FrameStream, *audio.Plan, video.CodecParams, string) error {
	panic("encoder blew up")
}

func TestGenerateConvertsPanicsToFailure(t *testing.T) {
	cfg := testConfig(t)
	gen := newTestGenerator(t, cfg, panicEncoder{})

	var result timeline.Result
	require.NotPanics(t, func() {
		result = gen.Generate(context.Background(), testRequest())
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "internal error")
	assert.Contains(t, result.Message, "encoder blew up")
	assert.Empty(t, result.VideoPath)
}

func TestGenerateRejectsInvalidRequest(t *testing.T) {
	cfg := testConfig(t)
	enc := &fakeEncoder{}
	gen := newTestGenerator(t, cfg, enc)

	req := testRequest()
	req.Title = ""
	result := gen.Generate(context.Background(), req)

	assert.False(t, result.Success)
	assert.Equal(t, 0, enc.calls)
}

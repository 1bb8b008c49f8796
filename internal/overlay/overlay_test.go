package overlay

import (
	"image"
	"math"
	"math/rand"
	"strings"
	"testing"
)

func TestParticleCount(t *testing.T) {
	tests := []struct {
		base      int
		intensity float64
		expected  int
	}{
		{100, 1.0, 100},
		{100, 0.3, 30},
		{100, 0.0, 0},
		{100, 1.5, 100},  // clamped to 1.0
		{100, -0.5, 0},   // clamped to 0.0
		{80, 0.5, 40},
		{150, 0.33, 50},  // rounded, not truncated
	}

	for _, tt := range tests {
		if got := ParticleCount(tt.base, tt.intensity); got != tt.expected {
			t.Errorf("ParticleCount(%d, %.2f) = %d, want %d", tt.base, tt.intensity, got, tt.expected)
		}
	}
}

func TestNewUnknownEffect(t *testing.T) {
	_, err := New("tornado", 640, 360, 0.5, rand.New(rand.NewSource(1)))
	if err == nil {
		t.Fatal("expected error for unknown effect")
	}
	if !strings.Contains(err.Error(), "tornado") {
		t.Errorf("error should name the requested effect: %v", err)
	}
	for _, name := range Supported {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error should list supported effect %q: %v", name, err)
		}
	}
}

func TestNewSupportedEffects(t *testing.T) {
	for _, name := range Supported {
		if _, err := New(name, 640, 360, 0.5, rand.New(rand.NewSource(1))); err != nil {
			t.Errorf("New(%q) failed: %v", name, err)
		}
	}
}

func TestRainRespawn(t *testing.T) {
	r := NewRain(640, 360, 1.0, rand.New(rand.NewSource(42)))
	if len(r.particles) != 100 {
		t.Fatalf("expected 100 drops at full intensity, got %d", len(r.particles))
	}

	p := r.particles[0]
	p.Y = 400 // past the bottom edge

	frame := image.NewRGBA(image.Rect(0, 0, 640, 360))
	r.step(1.0/24.0, frame)

	if p.Y < -100 || p.Y > 0 {
		t.Errorf("respawned drop should land in [-100, 0], got y=%.2f", p.Y)
	}
	if p.X < 0 || p.X > 640 {
		t.Errorf("respawned drop x out of frame: %.2f", p.X)
	}
}

func TestRainFallsDown(t *testing.T) {
	r := NewRain(640, 360, 1.0, rand.New(rand.NewSource(7)))
	p := r.particles[0]
	p.Y = 10

	before := p.Y
	frame := image.NewRGBA(image.Rect(0, 0, 640, 360))
	r.step(1.0/24.0, frame)

	if p.Y <= before {
		t.Errorf("drop should fall: y went %.2f -> %.2f", before, p.Y)
	}
}

func TestSnowWrapsHorizontally(t *testing.T) {
	s := NewSnow(640, 360, 1.0, rand.New(rand.NewSource(3)))
	if len(s.particles) != 80 {
		t.Fatalf("expected 80 flakes at full intensity, got %d", len(s.particles))
	}

	p := s.particles[0]
	p.Y = 100
	p.X = -5
	p.Drift = 0

	frame := image.NewRGBA(image.Rect(0, 0, 640, 360))
	s.step(1.0/24.0, frame)

	if p.X != 640 {
		t.Errorf("flake should wrap to the right edge, got x=%.2f", p.X)
	}
}

func TestFireOpacityDecay(t *testing.T) {
	f := NewFire(640, 360, 1.0, rand.New(rand.NewSource(9)))
	if len(f.particles) != 150 {
		t.Fatalf("expected 150 sparks at full intensity, got %d", len(f.particles))
	}

	p := f.particles[0]
	p.Y = 180 // mid-frame, slow enough not to leave it in one step
	p.Speed = 0
	p.Drift = 0
	p.Opacity = 0.5

	frame := image.NewRGBA(image.Rect(0, 0, 640, 360))
	f.step(1.0/24.0, frame)

	if math.Abs(p.Opacity-0.5*fireDecay) > 1e-9 {
		t.Errorf("opacity should decay by factor %.2f: got %.4f", fireDecay, p.Opacity)
	}
}

func TestFireRespawnOnFadeOut(t *testing.T) {
	f := NewFire(640, 360, 1.0, rand.New(rand.NewSource(11)))
	p := f.particles[0]
	p.Y = 180
	p.Speed = 0
	p.Opacity = 0.05 // below the threshold after decay

	frame := image.NewRGBA(image.Rect(0, 0, 640, 360))
	f.step(1.0/24.0, frame)

	if p.Opacity < 0.5 || p.Opacity > 0.9 {
		t.Errorf("respawned spark opacity should be in [0.5, 0.9], got %.3f", p.Opacity)
	}
	if p.X < 640*0.3 || p.X > 640*0.7 {
		t.Errorf("respawned spark x should be in the center band, got %.1f", p.X)
	}
	if p.Y < 360*0.8 || p.Y > 360 {
		t.Errorf("respawned spark y should be near the bottom, got %.1f", p.Y)
	}
}

func TestStreamFrameCountRoundsFractional(t *testing.T) {
	// 2.9s @ 24fps is 69.6 frames; the count must round the way the clip
	// stream does, or the last base frame ships without its overlay.
	r := NewRain(320, 180, 0.5, rand.New(rand.NewSource(5)))
	if got := r.Overlay(2.9, 24).FrameCount(); got != 70 {
		t.Errorf("frame count = %d, want 70", got)
	}
}

func TestStreamFrameCount(t *testing.T) {
	r := NewRain(320, 180, 0.5, rand.New(rand.NewSource(5)))
	stream := r.Overlay(2.0, 24)

	if stream.FrameCount() != 48 {
		t.Fatalf("expected 48 frames for 2s @ 24fps, got %d", stream.FrameCount())
	}

	count := 0
	for {
		frame, ok := stream.Next()
		if !ok {
			break
		}
		if frame.Bounds().Dx() != 320 || frame.Bounds().Dy() != 180 {
			t.Fatalf("unexpected frame geometry: %v", frame.Bounds())
		}
		count++
	}
	if count != 48 {
		t.Errorf("stream produced %d frames, want 48", count)
	}
}

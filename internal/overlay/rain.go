package overlay

import (
	"image"
	"math/rand"
)

// rainBaseCount is the drop count at full intensity.
const rainBaseCount = 100

// Rain simulates falling streaks: fast vertical drops respawning above the
// frame once they fall past the bottom edge.
type Rain struct {
	base
}

// NewRain creates a rain system for the given resolution and intensity.
func NewRain(width, height int, intensity float64, rng *rand.Rand) *Rain {
	r := &Rain{base: newBase(width, height, intensity, rng)}
	count := ParticleCount(rainBaseCount, intensity)
	r.particles = make([]*Particle, 0, count)
	for i := 0; i < count; i++ {
		r.particles = append(r.particles, &Particle{
			X:       r.uniform(0, float64(width)),
			Y:       r.uniform(-float64(height), 0),
			Speed:   r.uniform(800, 1200) * r.intensity,
			Size:    r.sizeBetween(1, 3),
			Opacity: r.uniform(0.3, 0.7),
		})
	}
	return r
}

// Overlay returns the animated rain stream.
func (r *Rain) Overlay(duration float64, fps int) *Stream {
	return newStream(r, r.width, r.height, duration, fps)
}

func (r *Rain) step(dt float64, frame *image.RGBA) {
	for _, p := range r.particles {
		p.Y += p.Speed * dt

		if p.Y > float64(r.height) {
			p.Y = r.uniform(-100, 0)
			p.X = r.uniform(0, float64(r.width))
		}

		x := int(p.X)
		y := int(p.Y)
		if x < 0 || x >= r.width || y < 0 || y >= r.height {
			continue
		}

		// Vertical streak, length 3·size, in a cold blue-grey.
		alpha := uint8(255 * p.Opacity * 0.7)
		for i := 0; i < p.Size*3; i++ {
			setPixel(frame, x, y+i, 200, 200, 255, alpha)
		}
	}
}

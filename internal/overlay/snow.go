package overlay

import (
	"image"
	"math/rand"
)

// snowBaseCount is the flake count at full intensity.
const snowBaseCount = 80

// Snow simulates drifting flakes: slow fall with a per-flake horizontal
// drift, wrapping at the vertical frame edges.
type Snow struct {
	base
}

// NewSnow creates a snow system for the given resolution and intensity.
func NewSnow(width, height int, intensity float64, rng *rand.Rand) *Snow {
	s := &Snow{base: newBase(width, height, intensity, rng)}
	count := ParticleCount(snowBaseCount, intensity)
	s.particles = make([]*Particle, 0, count)
	for i := 0; i < count; i++ {
		s.particles = append(s.particles, &Particle{
			X:       s.uniform(0, float64(width)),
			Y:       s.uniform(-float64(height), 0),
			Speed:   s.uniform(50, 150) * s.intensity,
			Size:    s.sizeBetween(2, 6),
			Opacity: s.uniform(0.5, 0.9),
			Drift:   s.uniform(-20, 20),
		})
	}
	return s
}

// Overlay returns the animated snow stream.
func (s *Snow) Overlay(duration float64, fps int) *Stream {
	return newStream(s, s.width, s.height, duration, fps)
}

func (s *Snow) step(dt float64, frame *image.RGBA) {
	for _, p := range s.particles {
		p.Y += p.Speed * dt
		p.X += p.Drift * dt

		if p.Y > float64(s.height) {
			p.Y = s.uniform(-100, 0)
			p.X = s.uniform(0, float64(s.width))
		}

		// Horizontal wrap keeps drifting flakes on screen.
		if p.X < 0 {
			p.X = float64(s.width)
		} else if p.X > float64(s.width) {
			p.X = 0
		}

		x := int(p.X)
		y := int(p.Y)
		if x < 0 || x >= s.width || y < 0 || y >= s.height {
			continue
		}

		alpha := uint8(255 * p.Opacity)
		for dx := -p.Size; dx <= p.Size; dx++ {
			for dy := -p.Size; dy <= p.Size; dy++ {
				if dx*dx+dy*dy <= p.Size*p.Size {
					setPixel(frame, x+dx, y+dy, 255, 255, 255, alpha)
				}
			}
		}
	}
}

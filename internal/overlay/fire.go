package overlay

import (
	"image"
	"math"
	"math/rand"
)

// fireBaseCount is the spark count at full intensity.
const fireBaseCount = 150

// fireDecay is the per-frame opacity multiplier; a spark below
// fireMinOpacity is recycled.
const (
	fireDecay      = 0.98
	fireMinOpacity = 0.1
)

// firePalette holds the warm colors sparks are drawn with.
var firePalette = [][3]uint8{
	{255, 100, 0}, // orange
	{255, 50, 0},  // red-orange
	{255, 200, 0}, // yellow-orange
	{200, 0, 0},   // red
}

// Fire simulates rising sparks from a band near the bottom center of the
// frame. Sparks decay in opacity as they rise and are respawned once they
// leave the frame or fade out.
type Fire struct {
	base
}

// NewFire creates a fire system for the given resolution and intensity.
func NewFire(width, height int, intensity float64, rng *rand.Rand) *Fire {
	f := &Fire{base: newBase(width, height, intensity, rng)}
	count := ParticleCount(fireBaseCount, intensity)
	f.particles = make([]*Particle, 0, count)
	for i := 0; i < count; i++ {
		f.particles = append(f.particles, &Particle{
			X:       f.uniform(float64(width)*0.3, float64(width)*0.7),
			Y:       f.uniform(float64(height)*0.8, float64(height)),
			Speed:   f.uniform(200, 400) * f.intensity,
			Size:    f.sizeBetween(3, 8),
			Opacity: f.uniform(0.3, 0.8),
			Drift:   f.uniform(-30, 30),
			Color:   firePalette[rng.Intn(len(firePalette))],
		})
	}
	return f
}

// Overlay returns the animated fire stream.
func (f *Fire) Overlay(duration float64, fps int) *Stream {
	return newStream(f, f.width, f.height, duration, fps)
}

func (f *Fire) step(dt float64, frame *image.RGBA) {
	for _, p := range f.particles {
		p.Y -= p.Speed * dt
		p.X += p.Drift * dt
		p.Opacity *= fireDecay

		if p.Y < 0 || p.Opacity < fireMinOpacity {
			f.respawn(p)
		}

		x := int(p.X)
		y := int(p.Y)
		if x < 0 || x >= f.width || y < 0 || y >= f.height {
			continue
		}

		// Radial gradient: alpha fades linearly from the spark center.
		for dx := -p.Size; dx <= p.Size; dx++ {
			for dy := -p.Size; dy <= p.Size; dy++ {
				dist := math.Sqrt(float64(dx*dx + dy*dy))
				if dist > float64(p.Size) {
					continue
				}
				fade := 1.0 - dist/float64(p.Size)
				alpha := uint8(255 * p.Opacity * fade)
				setPixel(frame, x+dx, y+dy, p.Color[0], p.Color[1], p.Color[2], alpha)
			}
		}
	}
}

// respawn resets a decayed spark into the bottom-center band with fresh
// opacity and drift.
func (f *Fire) respawn(p *Particle) {
	p.X = f.uniform(float64(f.width)*0.3, float64(f.width)*0.7)
	p.Y = f.uniform(float64(f.height)*0.8, float64(f.height))
	p.Opacity = f.uniform(0.5, 0.9)
	p.Drift = f.uniform(-30, 30)
}

package clip

import (
	"fmt"
	"image"

	qrcode "github.com/skip2/go-qrcode"
)

// OutroDuration is how long the QR outro slide is shown.
const OutroDuration = 4.0

// BuildOutro renders a QR code for url as a trailing clip. The code is drawn
// at half the smaller frame dimension, centered on a white canvas at the
// target resolution.
func (b *Builder) BuildOutro(url string) (Clip, error) {
	size := b.height / 2
	if b.width < b.height {
		size = b.width / 2
	}

	code, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return Clip{}, fmt.Errorf("outro qr code for %q: %w", url, err)
	}

	qr := code.Image(size)

	canvas := image.NewRGBA(image.Rect(0, 0, b.width, b.height))
	for i := 0; i < len(canvas.Pix); i += 4 {
		canvas.Pix[i] = 0xff
		canvas.Pix[i+1] = 0xff
		canvas.Pix[i+2] = 0xff
		canvas.Pix[i+3] = 0xff
	}

	qb := qr.Bounds()
	left := (b.width - qb.Dx()) / 2
	top := (b.height - qb.Dy()) / 2
	for y := 0; y < qb.Dy(); y++ {
		for x := 0; x < qb.Dx(); x++ {
			canvas.Set(left+x, top+y, qr.At(qb.Min.X+x, qb.Min.Y+y))
		}
	}

	return Clip{
		Text:     url,
		Duration: OutroDuration,
		Frame: func(t float64) *image.RGBA {
			return canvas
		},
	}, nil
}

// Package imgconv converts decoded images for display and storage. It knows
// nothing about QOI; it works on any image.Image.
package imgconv

import (
	"image"
	"image/color"
	"io"

	"github.com/disintegration/gift"
	"github.com/juju/errors"
)

// ToNRGBA returns m as an *image.NRGBA, converting pixel by pixel through
// color.NRGBAModel when it is anything else. Premultiplied sources lose
// precision in translucent pixels.
func ToNRGBA(m image.Image) *image.NRGBA {
	if n, ok := m.(*image.NRGBA); ok {
		return n
	}

	b := m.Bounds()
	dst := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.SetNRGBA(x, y, color.NRGBAModel.Convert(m.At(x, y)).(color.NRGBA))
		}
	}
	return dst
}

// Load decodes an image in any registered format and converts it with
// ToNRGBA.
func Load(r io.Reader) (*image.NRGBA, error) {
	m, _, err := image.Decode(r)
	if err != nil {
		return nil, errors.Annotate(err, "decoding reference image")
	}
	return ToNRGBA(m), nil
}

// Diff counts the pixels whose non-premultiplied colors differ between a and
// b. Both images must have the same size; their origins may differ.
func Diff(a, b image.Image) (int, error) {
	na, nb := ToNRGBA(a), ToNRGBA(b)
	ra, rb := na.Bounds(), nb.Bounds()
	if ra.Size() != rb.Size() {
		return 0, errors.NotValidf("comparing %v image with %v image", ra.Size(), rb.Size())
	}

	n := 0
	for y := 0; y < ra.Dy(); y++ {
		for x := 0; x < ra.Dx(); x++ {
			if na.NRGBAAt(ra.Min.X+x, ra.Min.Y+y) != nb.NRGBAAt(rb.Min.X+x, rb.Min.Y+y) {
				n++
			}
		}
	}
	return n, nil
}

// Resize scales m to width x height with a Lanczos filter. A zero width or
// height keeps the aspect ratio.
func Resize(m image.Image, width, height int) *image.NRGBA {
	g := gift.New(gift.Resize(width, height, gift.LanczosResampling))

	dst := image.NewNRGBA(g.Bounds(m.Bounds()))
	g.Draw(dst, m)

	return dst
}

package qoi

import (
	"fmt"
	"image/color"
)

// Pixel is a non-premultiplied RGBA color with 8 bits per channel.
type Pixel struct {
	R, G, B, A uint8
}

// startPixel seeds every relative opcode before the first pixel is decoded.
var startPixel = Pixel{0, 0, 0, 255}

// RGBA implements color.Color.
func (p Pixel) RGBA() (r, g, b, a uint32) {
	return color.NRGBA{R: p.R, G: p.G, B: p.B, A: p.A}.RGBA()
}

// Bytes returns the channels in R, G, B, A order.
func (p Pixel) Bytes() [4]byte {
	return [4]byte{p.R, p.G, p.B, p.A}
}

func (p Pixel) String() string {
	return fmt.Sprintf("r:%d, g:%d, b:%d, a:%d", p.R, p.G, p.B, p.A)
}

// hash is the index position of p in the pixel cache. The arithmetic wraps
// at 8 bits before the final reduction; encoders use the same sum, so it must
// not be widened.
func hash(p Pixel) uint8 {
	return (3*p.R + 5*p.G + 7*p.B + 11*p.A) % qoiMaxBufferSize
}

// cache holds the most recently seen pixel for every hash slot.
type cache [qoiMaxBufferSize]Pixel

func (c *cache) put(p Pixel) {
	c[hash(p)] = p
}

func (c *cache) reset() {
	*c = cache{}
}

// diff applies a QOI_OP_DIFF byte: three 2-bit deltas biased by 2.
func diff(p Pixel, op uint8) Pixel {
	p.R += ((op >> 4) & mask2) - 2
	p.G += ((op >> 2) & mask2) - 2
	p.B += ((op >> 0) & mask2) - 2
	return p
}

// luma applies a QOI_OP_LUMA pair: a 6-bit green delta biased by 32 in the
// opcode, then red and blue deltas relative to green biased by 8.
func luma(p Pixel, op, b2 uint8) Pixel {
	vg := (op & mask6) - 32

	p.R += vg - 8 + ((b2 >> 4) & mask4)
	p.G += vg
	p.B += vg - 8 + ((b2 >> 0) & mask4)
	return p
}

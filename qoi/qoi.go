// Package qoi decodes images in the QOI (Quite OK Image) format.
//
// Two engines share the same opcode semantics. Decoder reads a complete byte
// source and returns every pixel at once. StreamDecoder is fed one byte at a
// time and reports pixels as soon as each opcode completes, so the caller
// never has to hold the whole image or block on I/O.
package qoi

import (
	"image"
	"image/color"
	"io"

	"github.com/juju/errors"
	logging "github.com/op/go-logging"
)

var log = logging.MustGetLogger("qoi")

const (
	/*
		2GB is the max file size that the image.Decode path can safely handle.
		We guard against anything larger than that, assuming the worst case with 5 bytes per pixel,
		rounded down to a nice clean value.

		400 million pixels ought to be enough for anybody.
	*/
	qoiMaxPixels = 400_000_000
	qoiMagic     = "qoif"

	qoiHeaderSize    = 14 //size in bytes
	qoiMaxBufferSize = 64

	// qoiPreallocPixels caps the pixel slice reserved up front from the
	// header's dimensions.
	qoiPreallocPixels = 1 << 20
)

var qoiEndMarker = [8]byte{0, 0, 0, 0, 0, 0, 0, 1}

const (
	opINDEX uint8 = 0b00000000
	opDIFF  uint8 = 0b01000000
	opLUMA  uint8 = 0b10000000
	opRUN   uint8 = 0b11000000
	opRGB   uint8 = 0b11111110
	opRGBA  uint8 = 0b11111111
)

const (
	maskOP uint8 = 0b11000000
	mask6  uint8 = 0b00111111
	mask4  uint8 = 0b00001111
	mask2  uint8 = 0b00000011
)

// Options are the decoding parameters. A nil *Options is valid and means
// the zero value.
type Options struct {
	// MaxPixels rejects headers declaring more than this many pixels.
	// Zero means no limit.
	MaxPixels uint64

	// VerifyEndMarker requires the 8-byte end marker to follow the last
	// pixel. By default decoding stops as soon as width*height pixels have
	// been produced and whatever follows is left untouched.
	VerifyEndMarker bool
}

func (o *Options) maxPixels() uint64 {
	if o == nil {
		return 0
	}
	return o.MaxPixels
}

func (o *Options) verifyEndMarker() bool {
	return o != nil && o.VerifyEndMarker
}

// checkSize applies the MaxPixels limit to a parsed header.
func (o *Options) checkSize(h Header) error {
	if limit := o.maxPixels(); limit > 0 && h.Pixels() > limit {
		return &HeaderError{Offset: 4, Reason: "image size invalid: too many pixels"}
	}
	return nil
}

func init() {
	// Library callers see warnings only; cmd/qoiparser installs its own
	// backend with per-run levels.
	logging.SetLevel(logging.WARNING, "qoi")
	image.RegisterFormat("qoi", qoiMagic, Decode, DecodeConfig)
}

// DecodeConfig returns the color model and dimensions of a QOI image without
// decoding the pixels.
func DecodeConfig(r io.Reader) (image.Config, error) {
	var buf [qoiHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return image.Config{}, errors.Annotate(err, "reading header")
	}

	h, err := ParseHeader(buf[:])
	if err != nil {
		return image.Config{}, err
	}

	return image.Config{
		ColorModel: color.NRGBAModel,
		Width:      int(h.Width),
		Height:     int(h.Height),
	}, nil
}

// Decode reads a QOI image from r and returns it as an *image.NRGBA.
func Decode(r io.Reader) (image.Image, error) {
	d := NewDecoder(&Options{MaxPixels: qoiMaxPixels})

	h, pixels, err := d.Decode(r)
	if err != nil {
		return nil, err
	}

	return ToNRGBA(h, pixels), nil
}

// ToNRGBA lays out decoded pixels row by row in an *image.NRGBA.
func ToNRGBA(h Header, pixels []Pixel) *image.NRGBA {
	m := image.NewNRGBA(image.Rect(0, 0, int(h.Width), int(h.Height)))
	for i, p := range pixels {
		b := p.Bytes()
		copy(m.Pix[i*4:i*4+4], b[:])
	}
	return m
}

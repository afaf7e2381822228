package qoi

import (
	"bufio"
	"fmt"
	"io"
	"unsafe"

	"github.com/juju/errors"
)

const maxInt = int(^uint(0) >> 1)

type reader interface {
	io.Reader
	io.ByteReader
}

// Decoder decodes a complete QOI byte source into memory. A Decoder may be
// reused for any number of images; its state is reset at the start of every
// Decode call. It is not safe for concurrent use.
type Decoder struct {
	opts *Options

	r     reader
	err   error
	last  Pixel
	index cache
}

// NewDecoder returns a Decoder. o may be nil.
func NewDecoder(o *Options) *Decoder {
	return &Decoder{opts: o}
}

// Decode reads the header and exactly width*height pixels from r. Pixels are
// returned in row-major order. On failure no pixels are returned.
//
// Readers that do not implement io.ByteReader are buffered, so Decode may read
// past the end of the image.
func (d *Decoder) Decode(r io.Reader) (Header, []Pixel, error) {
	d.reset(r)

	h := d.decodeHeader()
	pixels := d.decodePixels(h)
	d.decodeEndMarker()

	if d.err != nil {
		return Header{}, nil, d.err
	}
	return h, pixels, nil
}

func (d *Decoder) reset(r io.Reader) {
	if rr, ok := r.(reader); ok {
		d.r = rr
	} else {
		d.r = bufio.NewReader(r)
	}
	d.err = nil
	d.last = startPixel
	d.index.reset()
}

func (d *Decoder) decodeHeader() Header {
	var buf [qoiHeaderSize]byte
	if d.readFull(buf[:], "reading header"); d.err != nil {
		return Header{}
	}

	h, err := ParseHeader(buf[:])
	if err != nil {
		d.err = err
		return Header{}
	}
	if d.err = d.opts.checkSize(h); d.err != nil {
		return Header{}
	}

	log.Debugf("decoding %dx%d %s image", h.Width, h.Height, h.Channels)
	return h
}

func (d *Decoder) decodePixels(h Header) []Pixel {
	if d.err != nil {
		return nil
	}

	maxPixel := h.Pixels()
	if maxPixel > uint64(maxInt)/uint64(unsafe.Sizeof(Pixel{})) {
		d.err = &DecodeError{Reason: fmt.Sprintf("image of %d pixels does not fit in memory", maxPixel)}
		return nil
	}
	// The header is not trusted with the allocation; the slice grows with
	// the opcodes actually read.
	pixels := make([]Pixel, 0, min(maxPixel, qoiPreallocPixels))
	run := 0

	for uint64(len(pixels)) < maxPixel {
		if run > 0 {
			run--
			pixels = append(pixels, d.last)
			continue
		}

		b1 := d.readByte("reading opcode")
		if d.err != nil {
			return nil
		}

		switch {
		case b1 == opRGB:
			var rgb [3]byte
			if d.readFull(rgb[:], "reading QOI_OP_RGB"); d.err != nil {
				return nil
			}
			d.last = Pixel{rgb[0], rgb[1], rgb[2], d.last.A}

		case b1 == opRGBA:
			var rgba [4]byte
			if d.readFull(rgba[:], "reading QOI_OP_RGBA"); d.err != nil {
				return nil
			}
			d.last = Pixel{rgba[0], rgba[1], rgba[2], rgba[3]}

		case b1&maskOP == opINDEX:
			d.last = d.index[b1&mask6]

		case b1&maskOP == opDIFF:
			d.last = diff(d.last, b1)

		case b1&maskOP == opLUMA:
			b2 := d.readByte("reading QOI_OP_LUMA")
			if d.err != nil {
				return nil
			}
			d.last = luma(d.last, b1, b2)

		case b1&maskOP == opRUN:
			// The run covers this pixel plus run more; the repeated pixel is
			// already in the cache.
			run = int(b1 & mask6)
			pixels = append(pixels, d.last)
			continue

		default:
			d.err = &DecodeError{Reason: fmt.Sprintf("unknown tag %#08b at pixel %d", b1, len(pixels))}
			return nil
		}

		d.index.put(d.last)
		pixels = append(pixels, d.last)
	}

	return pixels
}

func (d *Decoder) decodeEndMarker() {
	if d.err != nil || !d.opts.verifyEndMarker() {
		return
	}

	var marker [len(qoiEndMarker)]byte
	if d.readFull(marker[:], "reading end marker"); d.err != nil {
		return
	}
	if marker != qoiEndMarker {
		d.err = &DecodeError{Reason: fmt.Sprintf("invalid end marker % x", marker[:])}
	}
}

func (d *Decoder) readByte(what string) byte {
	b, err := d.r.ReadByte()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		d.err = errors.Annotate(err, what)
	}
	return b
}

func (d *Decoder) readFull(buf []byte, what string) {
	if _, err := io.ReadFull(d.r, buf); err != nil {
		d.err = errors.Annotate(err, what)
	}
}

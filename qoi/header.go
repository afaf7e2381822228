package qoi

import (
	"encoding/binary"
	"fmt"
)

// Channels is the channel count declared in the header. It is informational
// only: every pixel is decoded as RGBA.
type Channels uint8

const (
	RGB  Channels = 3
	RGBA Channels = 4
)

func (c Channels) String() string {
	switch c {
	case RGB:
		return "RGB"
	case RGBA:
		return "RGBA"
	}
	return fmt.Sprintf("Channels(%d)", uint8(c))
}

// Colorspace is the colorspace declared in the header. Like Channels it does
// not affect decoding.
type Colorspace uint8

const (
	SRGB   Colorspace = 0
	Linear Colorspace = 1
)

func (c Colorspace) String() string {
	switch c {
	case SRGB:
		return "sRGB"
	case Linear:
		return "Linear"
	}
	return fmt.Sprintf("Colorspace(%d)", uint8(c))
}

// Header is the fixed 14-byte QOI header.
type Header struct {
	Width      uint32
	Height     uint32
	Channels   Channels
	Colorspace Colorspace
}

// Pixels is the number of pixels the opcode stream decodes to.
func (h Header) Pixels() uint64 {
	return uint64(h.Width) * uint64(h.Height)
}

func (h Header) String() string {
	return fmt.Sprintf("Magic: %s\nWidth: %d, Height: %d\nChannels: %s, Colorspace: %s",
		qoiMagic, h.Width, h.Height, h.Channels, h.Colorspace)
}

// MarshalBinary returns the canonical 14 header bytes.
func (h Header) MarshalBinary() ([]byte, error) {
	b := make([]byte, qoiHeaderSize)
	copy(b, qoiMagic)
	binary.BigEndian.PutUint32(b[4:8], h.Width)
	binary.BigEndian.PutUint32(b[8:12], h.Height)
	b[12] = uint8(h.Channels)
	b[13] = uint8(h.Colorspace)
	return b, nil
}

// ParseHeader validates exactly 14 header bytes. Width and height are not
// range checked, so a zero-sized image is accepted.
func ParseHeader(b []byte) (Header, error) {
	if len(b) != qoiHeaderSize {
		return Header{}, &HeaderError{Offset: -1, Reason: fmt.Sprintf("need %d bytes, got %d", qoiHeaderSize, len(b))}
	}

	for i := 0; i < len(qoiMagic); i++ {
		if err := checkMagic(i, b[i]); err != nil {
			return Header{}, err
		}
	}

	h := Header{
		Width:  binary.BigEndian.Uint32(b[4:8]),
		Height: binary.BigEndian.Uint32(b[8:12]),
	}

	var err error
	if h.Channels, err = parseChannels(b[12]); err != nil {
		return Header{}, err
	}
	if h.Colorspace, err = parseColorspace(b[13]); err != nil {
		return Header{}, err
	}

	return h, nil
}

func checkMagic(pos int, b byte) error {
	if b != qoiMagic[pos] {
		return &HeaderError{Offset: pos, Reason: fmt.Sprintf("magic mismatch: expected %q, got %q", qoiMagic[pos], b)}
	}
	return nil
}

func parseChannels(b byte) (Channels, error) {
	c := Channels(b)
	if c != RGB && c != RGBA {
		return 0, &HeaderError{Offset: 12, Reason: fmt.Sprintf("unknown value for channels: %d", b)}
	}
	return c, nil
}

func parseColorspace(b byte) (Colorspace, error) {
	c := Colorspace(b)
	if c != SRGB && c != Linear {
		return 0, &HeaderError{Offset: 13, Reason: fmt.Sprintf("unknown value for colorspace: %d", b)}
	}
	return c, nil
}

package main

import (
	"bufio"
	"io"

	"github.com/juju/errors"

	"github.com/zdelv/qoi-parser/qoi"
)

// maxPrealloc caps the capacity reserved from the header before any pixel
// has been decoded.
const maxPrealloc = 1 << 20

// decodeStream feeds r byte by byte through a StreamDecoder and collects the
// header fields and pixels from its events.
func decodeStream(r io.Reader, o *qoi.Options) (qoi.Header, []qoi.Pixel, error) {
	br := bufio.NewReader(r)
	dec := qoi.NewStreamDecoder(o)

	var (
		h      qoi.Header
		pixels []qoi.Pixel
	)

	for !dec.Finished() {
		b, err := br.ReadByte()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return qoi.Header{}, nil, errors.Annotatef(err, "after %d pixels", len(pixels))
		}

		ev, err := dec.Feed(b)
		if err != nil {
			return qoi.Header{}, nil, errors.Trace(err)
		}

		switch ev.Kind {
		case qoi.EventWidth:
			h.Width = ev.Value
		case qoi.EventHeight:
			h.Height = ev.Value
			pixels = make([]qoi.Pixel, 0, min(h.Pixels(), maxPrealloc))
		case qoi.EventChannels:
			h.Channels = ev.Channels
		case qoi.EventColorspace:
			h.Colorspace = ev.Colorspace
			log.Debugf("header: %dx%d %s %s", h.Width, h.Height, h.Channels, h.Colorspace)
		case qoi.EventPixels:
			for px, ok := ev.Pixels.Next(); ok; px, ok = ev.Pixels.Next() {
				pixels = append(pixels, px)
			}
		}
	}

	return h, pixels, nil
}

package qoi

import (
	"encoding/binary"
	"fmt"
)

// EventKind identifies what a call to StreamDecoder.Feed produced.
type EventKind uint8

const (
	// EventNeedMore means the byte was consumed and Event.Need more bytes
	// complete the current header field or opcode. The hint is advisory.
	EventNeedMore EventKind = iota + 1
	// EventPixels carries the pixels produced by a completed opcode.
	EventPixels
	EventWidth
	EventHeight
	EventChannels
	EventColorspace
	// EventFinished means every pixel has been produced. The fed byte was
	// not consumed.
	EventFinished
)

var eventNames = [...]string{
	EventNeedMore:   "NeedMore",
	EventPixels:     "Pixels",
	EventWidth:      "ImageWidthParsed",
	EventHeight:     "ImageHeightParsed",
	EventChannels:   "ImageChannelParsed",
	EventColorspace: "ImageColorspaceParsed",
	EventFinished:   "Finished",
}

func (k EventKind) String() string {
	if int(k) < len(eventNames) && eventNames[k] != "" {
		return eventNames[k]
	}
	return fmt.Sprintf("EventKind(%d)", uint8(k))
}

// Event is the result of feeding one byte. Only the fields belonging to Kind
// are set.
type Event struct {
	Kind       EventKind
	Need       uint8      // EventNeedMore
	Value      uint32     // EventWidth, EventHeight
	Channels   Channels   // EventChannels
	Colorspace Colorspace // EventColorspace
	Pixels     PixelIter  // EventPixels
}

func (e Event) String() string {
	switch e.Kind {
	case EventNeedMore:
		return fmt.Sprintf("%s: %d", e.Kind, e.Need)
	case EventWidth, EventHeight:
		return fmt.Sprintf("%s: %d", e.Kind, e.Value)
	case EventChannels:
		return fmt.Sprintf("%s: %s", e.Kind, e.Channels)
	case EventColorspace:
		return fmt.Sprintf("%s: %s", e.Kind, e.Colorspace)
	case EventPixels:
		return fmt.Sprintf("%s: %d x (%s)", e.Kind, e.Pixels.Len(), e.Pixels.px)
	}
	return e.Kind.String()
}

func needMore(n uint8) Event {
	return Event{Kind: EventNeedMore, Need: n}
}

func pixelsEvent(n uint8, px Pixel) Event {
	return Event{Kind: EventPixels, Pixels: newPixelIter(n, px)}
}

type streamState uint8

const (
	stateNotStarted streamState = iota
	stateHeader
	stateOp
	stateEndMarker
	stateFinished
	stateFailed
)

// opProgress tracks a multi-byte opcode between Feed calls. The zero value
// means no opcode is in flight and the next byte is a fresh opcode.
type opProgress struct {
	active bool
	code   uint8
	read   uint8 // bytes consumed after the opcode byte
}

// StreamDecoder decodes a QOI image fed to it one byte at a time. It stores
// no pixels; each completed opcode is handed back to the caller as an
// EventPixels.
//
// The decoder does not reset itself. After EventFinished or any error, call
// Reset before feeding the next image. It is not safe for concurrent use.
type StreamDecoder struct {
	opts *Options

	state   streamState
	pos     uint8 // byte position within the header or end marker
	op      opProgress
	scratch [4]byte

	width    uint32
	produced uint64
	target   uint64

	last  Pixel
	index cache
}

// NewStreamDecoder returns a StreamDecoder ready for the first header byte.
// o may be nil.
func NewStreamDecoder(o *Options) *StreamDecoder {
	s := &StreamDecoder{opts: o}
	s.Reset()
	return s
}

// Reset returns the decoder to its initial state: no header seen, start
// pixel (0, 0, 0, 255) and an all-zero pixel cache.
func (s *StreamDecoder) Reset() {
	s.state = stateNotStarted
	s.pos = 0
	s.op = opProgress{}
	s.scratch = [4]byte{}
	s.width = 0
	s.produced = 0
	s.target = 0
	s.last = startPixel
	s.index.reset()
}

// Finished reports whether every pixel of the current image was produced.
func (s *StreamDecoder) Finished() bool {
	return s.state == stateFinished
}

// Feed consumes the next byte of the stream, starting with the first header
// byte. Every byte must be fed exactly once and in order.
//
// The decoder only checks for completion once the whole header is parsed.
// An image with zero pixels therefore still reports its channels and
// colorspace, and the call after EventColorspace returns EventFinished. With
// VerifyEndMarker the 8 marker bytes come first.
//
// Errors are not recoverable: the decoder returns ErrNeedsReset until Reset
// is called.
func (s *StreamDecoder) Feed(b byte) (Event, error) {
	if s.state == stateNotStarted {
		s.state = stateHeader
	}

	var (
		ev    Event
		count uint8
		err   error
	)

	switch s.state {
	case stateHeader:
		ev, err = s.feedHeader(b)
	case stateOp:
		ev, count, err = s.feedOp(b)
	case stateEndMarker:
		ev, err = s.feedEndMarker(b)
	case stateFinished:
		return Event{Kind: EventFinished}, nil
	case stateFailed:
		return Event{}, ErrNeedsReset
	default:
		err = &DecodeError{Reason: fmt.Sprintf("invalid decoder state %d", s.state)}
	}

	if err != nil {
		s.state = stateFailed
		return Event{}, err
	}

	s.produced += uint64(count)
	if s.state == stateOp && s.produced == s.target {
		s.finishPixels()
	}

	return ev, nil
}

func (s *StreamDecoder) finishPixels() {
	if s.opts.verifyEndMarker() {
		s.state = stateEndMarker
		s.pos = 0
		return
	}
	log.Debugf("stream finished after %d pixels", s.produced)
	s.state = stateFinished
}

func (s *StreamDecoder) feedHeader(b byte) (Event, error) {
	c := s.pos

	switch {
	case c < 4:
		if err := checkMagic(int(c), b); err != nil {
			return Event{}, err
		}
		s.pos++
		if c == 3 {
			// width follows
			return needMore(4), nil
		}
		return needMore(3 - c), nil

	case c < 12:
		s.scratch[c%4] = b
		s.pos++
		if c%4 != 3 {
			return needMore((11 - c) % 4), nil
		}

		v := binary.BigEndian.Uint32(s.scratch[:])
		if c == 7 {
			s.width = v
			return Event{Kind: EventWidth, Value: v}, nil
		}

		h := Header{Width: s.width, Height: v}
		if err := s.opts.checkSize(h); err != nil {
			return Event{}, err
		}
		s.target = h.Pixels()
		return Event{Kind: EventHeight, Value: v}, nil

	case c == 12:
		ch, err := parseChannels(b)
		if err != nil {
			return Event{}, err
		}
		s.pos++
		return Event{Kind: EventChannels, Channels: ch}, nil

	case c == 13:
		cs, err := parseColorspace(b)
		if err != nil {
			return Event{}, err
		}
		s.state = stateOp
		s.op = opProgress{}
		log.Debugf("stream header parsed, expecting %d pixels", s.target)
		return Event{Kind: EventColorspace, Colorspace: cs}, nil
	}

	return Event{}, &HeaderError{Offset: int(c), Reason: "header index out of range"}
}

// feedOp returns the event for b and the number of pixels it produced.
func (s *StreamDecoder) feedOp(b byte) (Event, uint8, error) {
	if !s.op.active {
		return s.startOp(b)
	}

	switch {
	case s.op.code == opRGB:
		if s.op.read >= 3 {
			return Event{}, 0, &DecodeError{Reason: "QOI_OP_RGB parsed too many bytes"}
		}
		s.scratch[s.op.read] = b
		s.op.read++
		if s.op.read < 3 {
			return needMore(3 - s.op.read), 0, nil
		}
		s.last = Pixel{s.scratch[0], s.scratch[1], s.scratch[2], s.last.A}

	case s.op.code == opRGBA:
		if s.op.read >= 4 {
			return Event{}, 0, &DecodeError{Reason: "QOI_OP_RGBA parsed too many bytes"}
		}
		s.scratch[s.op.read] = b
		s.op.read++
		if s.op.read < 4 {
			return needMore(4 - s.op.read), 0, nil
		}
		s.last = Pixel{s.scratch[0], s.scratch[1], s.scratch[2], s.scratch[3]}

	case s.op.code&maskOP == opLUMA:
		if s.op.read >= 1 {
			return Event{}, 0, &DecodeError{Reason: "QOI_OP_LUMA parsed too many bytes"}
		}
		s.last = luma(s.last, s.op.code, b)

	default:
		return Event{}, 0, &DecodeError{Reason: fmt.Sprintf("opcode %#08b cannot be in flight", s.op.code)}
	}

	s.op = opProgress{}
	s.index.put(s.last)
	return pixelsEvent(1, s.last), 1, nil
}

// startOp dispatches a fresh opcode byte.
func (s *StreamDecoder) startOp(b byte) (Event, uint8, error) {
	switch {
	case b == opRGB:
		s.op = opProgress{active: true, code: b}
		return needMore(3), 0, nil

	case b == opRGBA:
		s.op = opProgress{active: true, code: b}
		return needMore(4), 0, nil

	case b&maskOP == opINDEX:
		s.last = s.index[b&mask6]

	case b&maskOP == opDIFF:
		s.last = diff(s.last, b)

	case b&maskOP == opLUMA:
		s.op = opProgress{active: true, code: b}
		return needMore(1), 0, nil

	case b&maskOP == opRUN:
		run := (b & mask6) + 1
		// A run never produces pixels past the end of the image.
		if left := s.target - s.produced; uint64(run) > left {
			run = uint8(left)
		}
		return pixelsEvent(run, s.last), run, nil

	default:
		return Event{}, 0, &DecodeError{Reason: fmt.Sprintf("unknown tag %#08b", b)}
	}

	s.index.put(s.last)
	return pixelsEvent(1, s.last), 1, nil
}

func (s *StreamDecoder) feedEndMarker(b byte) (Event, error) {
	pos := s.pos
	if int(pos) >= len(qoiEndMarker) || b != qoiEndMarker[pos] {
		return Event{}, &DecodeError{Reason: fmt.Sprintf("invalid end marker byte %d: %#02x", pos, b)}
	}

	s.pos++
	if int(s.pos) < len(qoiEndMarker) {
		return needMore(uint8(len(qoiEndMarker)) - s.pos), nil
	}

	log.Debugf("stream finished after %d pixels and end marker", s.produced)
	s.state = stateFinished
	return Event{Kind: EventFinished}, nil
}

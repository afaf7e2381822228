package qoi

// PixelIter yields one pixel a fixed number of times. StreamDecoder returns
// it for every completed opcode so that a run never needs its own buffer.
type PixelIter struct {
	n  uint8
	px Pixel
}

func newPixelIter(n uint8, px Pixel) PixelIter {
	return PixelIter{n: n, px: px}
}

// Next returns the pixel and true until the iterator is exhausted.
func (it *PixelIter) Next() (Pixel, bool) {
	if it.n == 0 {
		return Pixel{}, false
	}
	it.n--
	return it.px, true
}

// Len is the number of pixels left.
func (it *PixelIter) Len() int {
	return int(it.n)
}

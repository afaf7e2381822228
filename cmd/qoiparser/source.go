package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/juju/errors"
	"github.com/klauspost/compress/zstd"
)

type source struct {
	io.Reader
	f    *os.File
	zdec *zstd.Decoder
}

func (s *source) Close() error {
	if s.zdec != nil {
		s.zdec.Close()
	}
	return s.f.Close()
}

// openSource opens path for reading. Files ending in .zst are decompressed on
// the fly.
func openSource(path string) (*source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}

	s := &source{Reader: f, f: f}
	if strings.EqualFold(filepath.Ext(path), ".zst") {
		zdec, err := newZstdReader(f)
		if err != nil {
			f.Close()
			return nil, errors.Annotatef(err, "opening %s", path)
		}
		s.Reader = zdec
		s.zdec = zdec
	}

	return s, nil
}

func newZstdReader(r io.Reader) (*zstd.Decoder, error) {
	return zstd.NewReader(
		r,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(true),
	)
}

package main

import (
	"bytes"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/image/bmp"

	"github.com/zdelv/qoi-parser/qoi"
)

const fixture = "../../testdata/five.qoi"

func TestParseSize(t *testing.T) {
	tests := []struct {
		in          string
		w, h        int
		expectError bool
	}{
		{in: "10x20", w: 10, h: 20},
		{in: "10X0", w: 10, h: 0},
		{in: "0x5", w: 0, h: 5},
		{in: "0x0", expectError: true},
		{in: "10", expectError: true},
		{in: "ax5", expectError: true},
		{in: "-1x5", expectError: true},
	}

	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			w, h, err := parseSize(test.in)
			if actualError := err != nil; actualError != test.expectError {
				t.Fatalf("parseSize(%q) = (%d, %d, %v), expected error: %t", test.in, w, h, err, test.expectError)
			}
			if w != test.w || h != test.h {
				t.Errorf("parseSize(%q) = (%d, %d), expected (%d, %d)", test.in, w, h, test.w, test.h)
			}
		})
	}
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		expectError bool
		expected    config
	}{
		{
			name:     "should use defaults",
			args:     []string{"in.qoi"},
			expected: config{path: "in.qoi", maxPixels: 400_000_000},
		},
		{
			name:     "should parse every flag",
			args:     []string{"-stream", "-strict", "-max-pixels", "0", "-o", "out.png", "-resize", "4x0", "-ref", "ref.png", "-stats", "-v", "in.qoi"},
			expected: config{path: "in.qoi", stream: true, strict: true, out: "out.png", resizeW: 4, ref: "ref.png", stats: true, verbose: true},
		},
		{
			name:        "should require an input file",
			args:        []string{"-stream"},
			expectError: true,
		},
		{
			name:        "should require -o for -resize",
			args:        []string{"-resize", "4x4", "in.qoi"},
			expectError: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg, err := parseFlags(test.args)
			if actualError := err != nil; actualError != test.expectError {
				t.Fatalf("parseFlags(%q) = (%+v, %v), expected error: %t", test.args, cfg, err, test.expectError)
			}
			if cfg != test.expected {
				t.Errorf("parseFlags(%q) = %+v, expected %+v", test.args, cfg, test.expected)
			}
		})
	}
}

func TestRun(t *testing.T) {
	tests := []struct {
		name string
		cfg  config
	}{
		{name: "chunked", cfg: config{path: fixture}},
		{name: "stream", cfg: config{path: fixture, stream: true}},
		{name: "strict", cfg: config{path: fixture, strict: true}},
		{name: "strict stream", cfg: config{path: fixture, stream: true, strict: true}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := run(test.cfg, &out); err != nil {
				t.Fatalf("run() = %v", err)
			}

			got := out.String()
			if !strings.Contains(got, "Width: 5, Height: 5") || !strings.HasSuffix(got, "\n25\n") {
				t.Errorf("run() printed %q", got)
			}
		})
	}
}

func TestRunCompressed(t *testing.T) {
	data, err := os.ReadFile(fixture)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "five.qoi.zst")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := enc.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	for _, stream := range []bool{false, true} {
		var out bytes.Buffer
		if err := run(config{path: path, stream: stream, strict: true}, &out); err != nil {
			t.Fatalf("run(stream=%t) = %v", stream, err)
		}
		if !strings.HasSuffix(out.String(), "\n25\n") {
			t.Errorf("run(stream=%t) printed %q", stream, out.String())
		}
	}
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	truncated := filepath.Join(dir, "truncated.qoi")
	data, err := os.ReadFile(fixture)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(truncated, data[:20], 0o644); err != nil {
		t.Fatal(err)
	}

	oversized := filepath.Join(dir, "oversized.qoi")
	header, err := qoi.Header{Width: 1 << 31, Height: 1 << 31, Channels: qoi.RGBA}.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(oversized, append(header, 0xFD, 0xFD), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		cfg  config
	}{
		{name: "missing file", cfg: config{path: filepath.Join(dir, "missing.qoi")}},
		{name: "truncated", cfg: config{path: truncated}},
		{name: "truncated stream", cfg: config{path: truncated, stream: true}},
		{name: "too many pixels", cfg: config{path: fixture, maxPixels: 24}},
		{name: "oversized without limit", cfg: config{path: oversized}},
		{name: "oversized stream without limit", cfg: config{path: oversized, stream: true}},
		{name: "bad output format", cfg: config{path: fixture, out: filepath.Join(dir, "out.gif")}},
		{name: "missing reference", cfg: config{path: fixture, ref: filepath.Join(dir, "missing.png")}},
		{name: "reference of another size", cfg: config{path: fixture, ref: "../../testdata/dice.png"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if err := run(test.cfg, &bytes.Buffer{}); err == nil {
				t.Error("run() succeeded")
			}
		})
	}
}

func TestRunComparesReference(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config
		expected string
	}{
		{
			name:     "should match the png reference",
			cfg:      config{path: fixture, ref: "../../testdata/five.png"},
			expected: "0 of 25 pixels differ",
		},
		{
			name:     "should match the png reference when streaming",
			cfg:      config{path: "../../testdata/rgb.qoi", stream: true, ref: "../../testdata/rgb.png"},
			expected: "0 of 512 pixels differ",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := run(test.cfg, &out); err != nil {
				t.Fatalf("run() = %v", err)
			}
			if !strings.Contains(out.String(), test.expected) {
				t.Errorf("run() printed %q, expected %q", out.String(), test.expected)
			}
		})
	}
}

func TestRunWritesImage(t *testing.T) {
	dir := t.TempDir()

	pngPath := filepath.Join(dir, "five.png")
	if err := run(config{path: fixture, out: pngPath}, &bytes.Buffer{}); err != nil {
		t.Fatalf("run() = %v", err)
	}
	f, err := os.Open(pngPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	m, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}

	src, err := os.Open(fixture)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	h, pixels, err := qoi.NewDecoder(nil).Decode(src)
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range pixels {
		x, y := i%int(h.Width), i/int(h.Width)
		r, g, b, a := m.At(x, y).RGBA()
		er, eg, eb, ea := p.RGBA()
		if r != er || g != eg || b != eb || a != ea {
			t.Fatalf("pixel (%d, %d) = %v, expected %v", x, y, m.At(x, y), p)
		}
	}

	bmpPath := filepath.Join(dir, "five.bmp")
	if err := run(config{path: fixture, out: bmpPath, resizeW: 10, resizeH: 0}, &bytes.Buffer{}); err != nil {
		t.Fatalf("run() = %v", err)
	}
	bf, err := os.Open(bmpPath)
	if err != nil {
		t.Fatal(err)
	}
	defer bf.Close()
	cfg, err := bmp.DecodeConfig(bf)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 10 || cfg.Height != 10 {
		t.Errorf("resized to %dx%d, expected 10x10", cfg.Width, cfg.Height)
	}
}

func TestPixelStats(t *testing.T) {
	stats := pixelStats([]qoi.Pixel{{R: 0, G: 0, B: 0, A: 0}, {R: 2, G: 4, B: 6, A: 8}})

	expectedMean := [4]float64{1, 2, 3, 4}
	expectedStd := [4]float64{math.Sqrt(2), math.Sqrt(8), math.Sqrt(18), math.Sqrt(32)}
	for i, s := range stats {
		if math.Abs(s.Mean-expectedMean[i]) > 1e-9 || math.Abs(s.Std-expectedStd[i]) > 1e-9 {
			t.Errorf("%s: mean %f std %f, expected mean %f std %f", s.Name, s.Mean, s.Std, expectedMean[i], expectedStd[i])
		}
	}

	var out bytes.Buffer
	printStats(&out, nil)
	if !strings.HasPrefix(out.String(), "r: mean 0.000, std 0.000\n") {
		t.Errorf("printStats(nil) = %q", out.String())
	}
}

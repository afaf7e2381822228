// Command qoiparser decodes a QOI image and reports what it found.
//
//	qoiparser [flags] <file.qoi | file.qoi.zst>
package main

import (
	"flag"
	"fmt"
	"image"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/juju/errors"
	logging "github.com/op/go-logging"

	"github.com/zdelv/qoi-parser/imgconv"
	"github.com/zdelv/qoi-parser/qoi"
)

var log = logging.MustGetLogger("qoiparser")

var logFormat = logging.MustStringFormatter(
	`%{color}%{time:15:04:05.000} %{module} ▶ %{level:.4s}%{color:reset} %{message}`,
)

type config struct {
	path      string
	stream    bool
	strict    bool
	maxPixels uint64
	out       string
	resizeW   int
	resizeH   int
	ref       string
	stats     bool
	verbose   bool
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	setupLogging(cfg.verbose)

	if err := run(cfg, os.Stdout); err != nil {
		log.Errorf("%s: %v", cfg.path, err)
		log.Debugf("%s", errors.ErrorStack(err))
		os.Exit(1)
	}
}

func parseFlags(args []string) (config, error) {
	var (
		cfg    config
		resize string
	)

	fs := flag.NewFlagSet("qoiparser", flag.ContinueOnError)
	fs.BoolVar(&cfg.stream, "stream", false, "decode with the byte-at-a-time streaming decoder")
	fs.BoolVar(&cfg.strict, "strict", false, "require the 8-byte end marker after the last pixel")
	fs.Uint64Var(&cfg.maxPixels, "max-pixels", 400_000_000, "reject images with more pixels (0 = no limit)")
	fs.StringVar(&cfg.out, "o", "", "write the decoded image to `path` (.png, .jpg, .bmp, .tif)")
	fs.StringVar(&resize, "resize", "", "resize the written image to `WxH` (0 keeps the aspect ratio)")
	fs.StringVar(&cfg.ref, "ref", "", "compare the decoded pixels with the image at `path` (png, jpeg, bmp, tiff)")
	fs.BoolVar(&cfg.stats, "stats", false, "print per-channel mean and standard deviation")
	fs.BoolVar(&cfg.verbose, "v", false, "debug logging")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: qoiparser [flags] <file.qoi | file.qoi.zst>\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return config{}, errors.New("expected exactly one input file")
	}
	cfg.path = fs.Arg(0)

	if resize != "" {
		w, h, err := parseSize(resize)
		if err != nil {
			return config{}, err
		}
		if cfg.out == "" {
			return config{}, errors.New("-resize requires -o")
		}
		cfg.resizeW, cfg.resizeH = w, h
	}

	return cfg, nil
}

func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, errors.NotValidf("size %q", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil || w < 0 {
		return 0, 0, errors.NotValidf("width %q", ws)
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h < 0 {
		return 0, 0, errors.NotValidf("height %q", hs)
	}
	if w == 0 && h == 0 {
		return 0, 0, errors.NotValidf("size %q", s)
	}
	return w, h, nil
}

func setupLogging(verbose bool) {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	leveled := logging.AddModuleLevel(logging.NewBackendFormatter(backend, logFormat))
	if verbose {
		leveled.SetLevel(logging.DEBUG, "")
	} else {
		leveled.SetLevel(logging.INFO, "")
	}
	logging.SetBackend(leveled)
}

func run(cfg config, stdout io.Writer) error {
	src, err := openSource(cfg.path)
	if err != nil {
		return err
	}
	defer src.Close()

	opts := &qoi.Options{MaxPixels: cfg.maxPixels, VerifyEndMarker: cfg.strict}

	var (
		h      qoi.Header
		pixels []qoi.Pixel
	)
	if cfg.stream {
		h, pixels, err = decodeStream(src, opts)
	} else {
		h, pixels, err = qoi.NewDecoder(opts).Decode(src)
	}
	if err != nil {
		return errors.Annotate(err, "decoding")
	}

	fmt.Fprintln(stdout, h)
	fmt.Fprintln(stdout, len(pixels))

	if cfg.stats {
		printStats(stdout, pixels)
	}

	if cfg.ref != "" {
		n, err := compareReference(cfg.ref, qoi.ToNRGBA(h, pixels))
		if err != nil {
			return errors.Annotatef(err, "comparing with %s", cfg.ref)
		}
		fmt.Fprintf(stdout, "%d of %d pixels differ from %s\n", n, len(pixels), cfg.ref)
	}

	if cfg.out != "" {
		if err := writeImage(cfg, h, pixels); err != nil {
			return errors.Annotatef(err, "writing %s", cfg.out)
		}
		log.Infof("wrote %s", cfg.out)
	}

	return nil
}

func compareReference(path string, m image.Image) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Trace(err)
	}
	defer f.Close()

	ref, err := imgconv.Load(f)
	if err != nil {
		return 0, err
	}
	return imgconv.Diff(ref, m)
}

func writeImage(cfg config, h qoi.Header, pixels []qoi.Pixel) (err error) {
	format, err := imgconv.FormatFromPath(cfg.out)
	if err != nil {
		return err
	}

	m := qoi.ToNRGBA(h, pixels)
	if cfg.resizeW != 0 || cfg.resizeH != 0 {
		m = imgconv.Resize(m, cfg.resizeW, cfg.resizeH)
	}

	f, err := os.Create(cfg.out)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	return imgconv.Encode(f, m, format)
}

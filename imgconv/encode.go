package imgconv

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/juju/errors"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Format is an output container for decoded images.
type Format int

const (
	PNG Format = iota
	JPEG
	BMP
	TIFF
)

func (f Format) String() string {
	switch f {
	case PNG:
		return "png"
	case JPEG:
		return "jpeg"
	case BMP:
		return "bmp"
	case TIFF:
		return "tiff"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// FormatFromPath picks the output format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return PNG, nil
	case ".jpg", ".jpeg":
		return JPEG, nil
	case ".bmp":
		return BMP, nil
	case ".tif", ".tiff":
		return TIFF, nil
	}
	return 0, errors.NotSupportedf("output format %q", filepath.Ext(path))
}

// Encode writes m to w in format f. JPEG drops the alpha channel.
func Encode(w io.Writer, m image.Image, f Format) error {
	switch f {
	case PNG:
		return png.Encode(w, m)
	case JPEG:
		return jpeg.Encode(w, m, &jpeg.Options{Quality: 95})
	case BMP:
		return bmp.Encode(w, m)
	case TIFF:
		return tiff.Encode(w, m, &tiff.Options{Compression: tiff.Deflate})
	}
	return errors.NotSupportedf("output format %v", f)
}

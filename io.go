package imgfit

import (
	"bytes"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	// Register decoders for the accepted input formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imageorient"
	"github.com/pkg/errors"
	_ "golang.org/x/image/webp"
)

// imageExtensions are the input file extensions the batch runner accepts.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// IsImagePath reports whether path has a recognized raster image extension.
func IsImagePath(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// Open loads and decodes an image from a file path. JPEG EXIF orientation is
// applied, so the returned image displays upright regardless of how the
// camera was held.
func Open(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "imgfit: open %s", path)
	}
	defer f.Close()

	img, _, err := imageorient.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "imgfit: decode %s", path)
	}
	return img, nil
}

// Decode decodes an image from r, applying EXIF orientation.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := imageorient.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "imgfit: decode")
	}
	return img, nil
}

// DecodeBytes decodes an image from a byte slice, applying EXIF orientation.
// This is the common server-side path: receive bytes, fit, return bytes.
func DecodeBytes(data []byte) (image.Image, error) {
	return Decode(bytes.NewReader(data))
}

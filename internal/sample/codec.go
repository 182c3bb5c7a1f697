package sample

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/kozaktomas/facetrack/internal/constants"
)

// ErrImageTooLarge is returned for images whose decoded raster exceeds
// constants.MaxFramePixels.
var ErrImageTooLarge = errors.New("image too large")

// DecodeImage decodes a JPEG, PNG, BMP or WebP image. The header is checked
// before the full decode so oversized rasters are never allocated.
func DecodeImage(r io.Reader) (image.Image, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	return decodeBytes(data)
}

func decodeBytes(data []byte) (image.Image, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > constants.MaxFramePixels {
		return nil, "", fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// DecodeStill decodes an enrollment photo and turns JPEGs upright according
// to their EXIF orientation. Camera frames carry their rotation separately
// and go through DecodeImage instead.
func DecodeStill(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	img, format, err := decodeBytes(data)
	if err != nil {
		return nil, err
	}
	if format != "jpeg" {
		return img, nil
	}
	return ApplyOrientation(img, exifOrientation(data)), nil
}

// exifOrientation returns the EXIF orientation tag, or 1 when absent.
func exifOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if x == nil {
		return 1
	}
	if err != nil && exif.IsCriticalError(err) {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return o
}

// ApplyOrientation maps an EXIF orientation (1-8) onto img. Unknown values
// leave img unchanged.
func ApplyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return Mirror(img)
	case 3:
		return Rotate(img, 180)
	case 4:
		return Mirror(Rotate(img, 180))
	case 5:
		return Mirror(Rotate(img, 90))
	case 6:
		return Rotate(img, 90)
	case 7:
		return Mirror(Rotate(img, 270))
	case 8:
		return Rotate(img, 270)
	}
	return img
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

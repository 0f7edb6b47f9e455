package codec

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"fisheye/pkg/fisheye"
)

// Format names an image container.
type Format string

const (
	PNG  = Format("png")
	JPEG = Format("jpeg")
	BMP  = Format("bmp")
	TIFF = Format("tiff")
)

// ParseFormat resolves a format name or file extension.
func ParseFormat(name string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), ".") {
	case "", "png":
		return PNG, nil
	case "jpeg", "jpg":
		return JPEG, nil
	case "bmp":
		return BMP, nil
	case "tiff", "tif":
		return TIFF, nil
	default:
		return "", errors.Wrapf(ErrFormat, "unknown output format %q", name)
	}
}

// FormatFromPath picks the format matching the extension of path.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Extension returns the canonical file extension including the dot.
func (f Format) Extension() string {
	switch f {
	case JPEG:
		return ".jpg"
	case TIFF:
		return ".tif"
	default:
		return "." + string(f)
	}
}

// rgbView returns img as three interleaved RGB channels, replicating gray and
// dropping alpha. Three-channel images are returned as is.
func rgbView(img *fisheye.Image) (*fisheye.Image, error) {
	if err := img.CheckValid(); err != nil {
		return nil, err
	}
	if img.Channels == 3 {
		return img, nil
	}
	out, err := fisheye.NewImage(img.Width, img.Height, 3)
	if err != nil {
		return nil, err
	}
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			p := img.At(x, y)
			if img.Channels < 3 {
				out.Set(x, y, fisheye.Pixel{p[0], p[0], p[0]})
			} else {
				out.Set(x, y, p[:3])
			}
		}
	}
	return out, nil
}

// DecodeImage decodes a compressed image container into an RGB image.
func DecodeImage(data []byte) (*fisheye.Image, error) {
	if len(data) == 0 {
		return nil, errors.Wrap(ErrFormat, "empty image data")
	}
	return decodeImage(data)
}

// EncodeImage encodes img in the given container format.
func EncodeImage(img *fisheye.Image, format Format) ([]byte, error) {
	f, err := ParseFormat(string(format))
	if err != nil {
		return nil, err
	}
	rgb, err := rgbView(img)
	if err != nil {
		return nil, err
	}
	return encodeImage(rgb, f)
}

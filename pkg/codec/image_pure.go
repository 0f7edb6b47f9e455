//go:build purego || js

package codec

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"fisheye/pkg/fisheye"
)

func decodeImage(data []byte) (*fisheye.Image, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(ErrFormat, err.Error())
	}
	return fisheye.ImageFromStd(src)
}

func encodeImage(img *fisheye.Image, format Format) ([]byte, error) {
	rgba := img.ToRGBA()
	var buf bytes.Buffer
	var err error
	switch format {
	case PNG:
		err = png.Encode(&buf, rgba)
	case JPEG:
		err = jpeg.Encode(&buf, rgba, &jpeg.Options{Quality: 95})
	case BMP:
		err = bmp.Encode(&buf, rgba)
	case TIFF:
		err = tiff.Encode(&buf, rgba, &tiff.Options{Compression: tiff.Deflate})
	default:
		return nil, errors.Wrapf(ErrFormat, "unknown output format %q", format)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s", format)
	}
	return buf.Bytes(), nil
}

//go:build !purego && !js

package codec

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"fisheye/pkg/fisheye"
)

func decodeImage(data []byte) (*fisheye.Image, error) {
	src, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, errors.Wrap(ErrFormat, err.Error())
	}
	defer src.Close()
	if src.Empty() {
		return nil, errors.Wrap(ErrFormat, "could not decode image container")
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(src, &rgb, gocv.ColorBGRToRGB)

	pix, err := rgb.DataPtrUint8()
	if err != nil {
		return nil, errors.Wrap(ErrFormat, err.Error())
	}
	img, err := fisheye.NewImage(rgb.Cols(), rgb.Rows(), 3)
	if err != nil {
		return nil, err
	}
	copy(img.Pix, pix)
	return img, nil
}

func encodeImage(img *fisheye.Image, format Format) ([]byte, error) {
	rgb, err := gocv.NewMatFromBytes(img.Height, img.Width, gocv.MatTypeCV8UC3, img.Pix)
	if err != nil {
		return nil, errors.Wrap(err, "wrap pixels")
	}
	defer rgb.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(rgb, &bgr, gocv.ColorRGBToBGR)

	buf, err := gocv.IMEncode(gocv.FileExt(format.Extension()), bgr)
	if err != nil {
		return nil, errors.Wrapf(ErrFormat, "encode %s: %v", format, err)
	}
	defer buf.Close()

	encoded := buf.GetBytes()
	out := make([]byte, len(encoded))
	copy(out, encoded)
	return out, nil
}

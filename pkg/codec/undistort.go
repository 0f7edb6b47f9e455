package codec

import (
	"context"

	"fisheye/pkg/fisheye"
)

// UndistortBytes decodes an image container, undistorts it and encodes the
// result in format.
func UndistortBytes(ctx context.Context, data []byte, p *fisheye.Params, format Format, opts ...fisheye.Option) ([]byte, *fisheye.UndistortResult, error) {
	src, err := DecodeImage(data)
	if err != nil {
		return nil, nil, err
	}
	result, err := fisheye.Undistort(ctx, src, p, opts...)
	if err != nil {
		return nil, nil, err
	}
	out, err := EncodeImage(result.Image, format)
	if err != nil {
		return nil, nil, err
	}
	return out, result, nil
}

// UndistortBase64 takes a base64 encoded image container and returns the
// undistorted image, encoded in format and then in base64.
func UndistortBase64(ctx context.Context, text string, p *fisheye.Params, format Format, opts ...fisheye.Option) (string, error) {
	data, err := DecodeBase64(text)
	if err != nil {
		return "", err
	}
	out, _, err := UndistortBytes(ctx, data, p, format, opts...)
	if err != nil {
		return "", err
	}
	return EncodeBase64(out), nil
}

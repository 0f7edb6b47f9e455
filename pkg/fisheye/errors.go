package fisheye

import "github.com/pkg/errors"

var (
	// ErrInvalidDimensions is returned for images with zero width or height
	// or a pixel buffer that does not match its shape.
	ErrInvalidDimensions = errors.New("invalid image dimensions")
	// ErrUnsupportedProjectionFamily is returned when a family name is not one of
	// linear, equalarea, orthographic or stereographic.
	ErrUnsupportedProjectionFamily = errors.New("unsupported projection family")
	// ErrInvalidParams is returned for out-of-range configuration values.
	ErrInvalidParams = errors.New("invalid undistortion parameters")
)

package codec

import "github.com/pkg/errors"

var (
	// ErrDecode is returned for malformed transport encodings.
	ErrDecode = errors.New("malformed transport encoding")
	// ErrFormat is returned for unsupported or corrupt image containers.
	ErrFormat = errors.New("unsupported or corrupt image format")
)

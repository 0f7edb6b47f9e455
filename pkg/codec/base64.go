package codec

import (
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"
)

// DecodeBase64 decodes standard padded base64. Leading and trailing
// whitespace, including the newline most shells append, is ignored.
func DecodeBase64(text string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(text))
	if err != nil {
		return nil, errors.Wrap(ErrDecode, err.Error())
	}
	return data, nil
}

// EncodeBase64 encodes data as standard padded base64.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

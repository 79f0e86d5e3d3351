package transfer

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Encode returns the standard base-64 encoding of data.
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode reverses Encode. A leading "data:<mime>;base64," prefix, as
// produced by browser FileReader.readAsDataURL, is accepted and dropped.
func Decode(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ";base64,")
		if i < 0 {
			return nil, fmt.Errorf("%w: data URL is not base-64", ErrDecode)
		}
		s = s[i+len(";base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return data, nil
}

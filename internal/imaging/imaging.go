package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Info describes an image without decoding its pixels.
type Info struct {
	MIME   string
	Width  int
	Height int
}

// Sniff returns the MIME type detected from the leading bytes of data,
// without trusting anything the client declared.
func Sniff(data []byte) string {
	return http.DetectContentType(data)
}

// Probe reads the format header of data and reports its MIME type and
// pixel dimensions. The bytes are never modified or re-encoded.
func Probe(data []byte) (*Info, error) {
	info := &Info{MIME: Sniff(data)}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return info, fmt.Errorf("reading image header: %w", err)
	}

	info.Width = cfg.Width
	info.Height = cfg.Height
	if m, ok := formatMIME[format]; ok {
		info.MIME = m
	}
	return info, nil
}

var formatMIME = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"bmp":  "image/bmp",
}

// Matches reports whether declared agrees with the sniffed type of data.
// image/jpg is accepted as an alias of image/jpeg.
func Matches(declared string, data []byte) bool {
	if declared == "image/jpg" {
		declared = "image/jpeg"
	}
	info, err := Probe(data)
	if err != nil {
		return false
	}
	return info.MIME == declared
}

package ioutils

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder registration
	_ "image/jpeg" // JPEG decoder registration
	_ "image/png"  // PNG decoder registration
	"net/http"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"  // BMP decoder registration
	_ "golang.org/x/image/webp" // WebP decoder registration
)

// ErrNotImage is returned when an image asset turned out to be something else,
// typically an HTML block or challenge page.
var ErrNotImage = errors.New("response is not an image")

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

// IsImagePath reports whether path has an image extension.
func IsImagePath(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// VerifyImage checks that data looks like a decodable image.
//
// Bodies sniffed as text (HTML, JSON, plain text) are rejected with
// ErrNotImage. Known formats (JPEG, PNG, GIF, WebP, BMP) must decode their
// header. Unknown binary formats are accepted as-is, since this package does
// not transcode assets.
//
// Example:
//
//	if err := VerifyImage(body); errors.Is(err, ErrNotImage) {
//	    // the site served a challenge page instead of the image
//	}
func VerifyImage(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty body", ErrNotImage)
	}

	contentType := http.DetectContentType(data)
	if strings.HasPrefix(contentType, "text/") {
		return fmt.Errorf("%w: sniffed %s", ErrNotImage, contentType)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if errors.Is(err, image.ErrFormat) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("corrupt %s image: %w", format, err)
	}
	return nil
}

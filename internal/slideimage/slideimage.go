// Package slideimage prepares slide screenshots for vision prompts.
package slideimage

import (
	"bytes"
	"encoding/base64"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	_ "golang.org/x/image/webp"
)

// DefaultMaxPixels is the pixel cap used when the caller passes none.
const DefaultMaxPixels = 4096 * 4096

var (
	// ErrUnsupported is returned for references that are neither data URLs
	// nor http(s) URLs, or data URLs that do not hold a decodable image.
	ErrUnsupported = errors.New("unsupported slide image")
	// ErrTooLarge is returned for inline images whose header declares more
	// pixels than allowed. The pixel data is never decoded.
	ErrTooLarge = errors.New("slide image too large")
)

// Normalize returns an image reference the completion API accepts. Remote
// URLs pass through untouched. Inline data URLs are checked against
// maxPixels using the image header alone and, when either side exceeds
// maxDim, decoded, downscaled and re-encoded as PNG.
func Normalize(ref string, maxDim, maxPixels int) (string, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case strings.HasPrefix(ref, "https://"), strings.HasPrefix(ref, "http://"):
		return ref, nil
	case strings.HasPrefix(ref, "data:"):
	default:
		return "", ErrUnsupported
	}

	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") || !strings.HasPrefix(meta, "image/") {
		return "", errors.Wrap(ErrUnsupported, "expected a base64 image data url")
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", errors.Wrap(ErrUnsupported, "invalid base64 payload")
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return "", errors.Wrap(ErrUnsupported, err.Error())
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return "", errors.Wrapf(ErrTooLarge, "%dx%d exceeds %d pixels", cfg.Width, cfg.Height, maxPixels)
	}
	if maxDim <= 0 || (cfg.Width <= maxDim && cfg.Height <= maxDim) {
		return ref, nil
	}

	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", errors.Wrap(ErrUnsupported, err.Error())
	}
	resized := imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
		return "", errors.Wrap(err, "encode resized slide image")
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

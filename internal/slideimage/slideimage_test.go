package slideimage

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngDataURL(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func decodeDataURL(t *testing.T, ref string) image.Image {
	t.Helper()
	_, payload, ok := strings.Cut(ref, ",")
	require.True(t, ok)
	raw, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

func TestNormalizeDownscalesLargeImages(t *testing.T) {
	out, err := Normalize(pngDataURL(t, 400, 200), 100, 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "data:image/png;base64,"))

	b := decodeDataURL(t, out).Bounds()
	assert.Equal(t, 100, b.Dx())
	assert.Equal(t, 50, b.Dy())
}

func TestNormalizeKeepsSmallImages(t *testing.T) {
	in := pngDataURL(t, 40, 30)
	out, err := Normalize(in, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestNormalizePassesRemoteURLs(t *testing.T) {
	out, err := Normalize(" https://cdn.example.com/slide_1.png ", 100, 0)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/slide_1.png", out)
}

func TestNormalizeRejectsBadInput(t *testing.T) {
	for _, in := range []string{
		"",
		"ftp://example.com/slide.png",
		"data:text/plain;base64,aGVsbG8=",
		"data:image/png;base64,%%%",
		"data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("not an image")),
	} {
		_, err := Normalize(in, 100, 0)
		assert.ErrorIs(t, err, ErrUnsupported, in)
	}
}

// pngHeader returns a grayscale PNG that stops after its IHDR chunk. Only the
// declared dimensions are readable; decoding the pixels would fail.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 8 // bit depth, color type 0 (gray)

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestNormalizeRejectsOversizedImagesFromHeader(t *testing.T) {
	ref := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader(100000, 100000))

	_, err := Normalize(ref, 100, 0)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = Normalize(pngDataURL(t, 300, 300), 100, 300*300-1)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestNormalizeAcceptsWebP(t *testing.T) {
	// 1x1 lossless WebP.
	in := "data:image/webp;base64,UklGRhoAAABXRUJQVlA4TA0AAAAvAAAAEAcQERGIiP4HAA=="
	out, err := Normalize(in, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

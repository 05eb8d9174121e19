package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"drawing-qa-backend/internal/common"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// decodeResult decodes the base64 text back into an image, which is the
// round-trip property the contract guarantees.
func decodeResult(t *testing.T, encoded string) image.Image {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	return img
}

func TestNormalize_RGBAWithTransparency(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	src.Set(0, 0, color.NRGBA{R: 255, A: 128})
	src.Set(1, 1, color.NRGBA{}) // fully transparent

	encoded, err := Normalize(encodePNG(t, src))
	require.NoError(t, err)

	out := decodeResult(t, encoded)
	assert.Equal(t, 4, out.Bounds().Dx())
	assert.Equal(t, 4, out.Bounds().Dy())

	// The fully transparent pixel must flatten to opaque white.
	r, g, b, a := out.At(1, 1).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0xffff), g)
	assert.Equal(t, uint32(0xffff), b)
	assert.Equal(t, uint32(0xffff), a)
}

func TestNormalize_UploadFormats(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 3, 2))
	gray.SetGray(0, 0, color.Gray{Y: 42})

	paletted := image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{
		color.RGBA{0, 0, 0, 255}, color.RGBA{255, 0, 0, 255},
	})
	paletted.SetColorIndex(1, 1, 1)

	var jpegBuf, gifBuf, bmpBuf bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpegBuf, gray, nil))
	require.NoError(t, gif.Encode(&gifBuf, paletted, nil))
	require.NoError(t, bmp.Encode(&bmpBuf, gray))

	tests := []struct {
		name string
		raw  []byte
		w, h int
	}{
		{"grayscale jpeg", jpegBuf.Bytes(), 3, 2},
		{"paletted gif", gifBuf.Bytes(), 2, 2},
		{"bmp", bmpBuf.Bytes(), 3, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := Normalize(tt.raw)
			require.NoError(t, err)

			out := decodeResult(t, encoded)
			assert.Equal(t, tt.w, out.Bounds().Dx())
			assert.Equal(t, tt.h, out.Bounds().Dy())
		})
	}
}

func TestNormalize_SVG(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg" width="20" height="10" viewBox="0 0 20 10">
		<rect x="0" y="0" width="20" height="10" fill="red"/>
	</svg>`

	encoded, err := Normalize([]byte(svg))
	require.NoError(t, err)

	out := decodeResult(t, encoded)
	assert.Equal(t, 20, out.Bounds().Dx())
	assert.Equal(t, 10, out.Bounds().Dy())
}

func TestNormalize_UnrecognizableBytes(t *testing.T) {
	_, err := Normalize([]byte("definitely not an image"))
	assert.ErrorIs(t, err, common.ErrDecode)

	_, err = Normalize(nil)
	assert.ErrorIs(t, err, common.ErrDecode)
}

func TestDataURI(t *testing.T) {
	uri := DataURI("Zm9v")
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
	assert.True(t, strings.HasSuffix(uri, "Zm9v"))
}

// Package imaging converts uploaded images of arbitrary format into the
// canonical representation sent to the inference provider: an opaque RGB
// raster re-encoded as PNG and carried as base64 text.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"drawing-qa-backend/internal/common"
)

// svgFallbackSize is the render canvas used for SVG documents that carry no
// explicit pixel dimensions.
const svgFallbackSize = 1024

// Normalize decodes raw image bytes, flattens them onto an opaque white RGB
// canvas, re-encodes as PNG and returns the standard base64 encoding of the
// result. Bytes that are not a recognizable image produce an error matching
// common.ErrDecode.
func Normalize(raw []byte) (string, error) {
	var img image.Image

	if isSVGData(raw) {
		rendered, err := rasterizeSVG(raw)
		if err != nil {
			return "", fmt.Errorf("%w: %v", common.ErrDecode, err)
		}
		img = rendered
	} else {
		decoded, _, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			return "", fmt.Errorf("%w: %v", common.ErrDecode, err)
		}
		img = decoded
	}

	flattened := flatten(img)

	var buf bytes.Buffer
	if err := png.Encode(&buf, flattened); err != nil {
		return "", fmt.Errorf("failed to encode image to PNG: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DataURI wraps base64 PNG text as a data URI for embedding in request
// payloads.
func DataURI(encoded string) string {
	return "data:image/png;base64," + encoded
}

// flatten draws the image over a white background, dropping alpha and
// normalizing palette or grayscale inputs to an opaque truecolor raster.
// The PNG encoder then emits a plain RGB image for fully opaque input.
func flatten(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	white := color.RGBA{255, 255, 255, 255}
	draw.Draw(dst, dst.Bounds(), &image.Uniform{white}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Over)
	return dst
}

// isSVGData performs a lightweight detection of SVG content from raw bytes.
func isSVGData(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	n := len(data)
	if n > 4096 {
		n = 4096
	}
	header := bytes.ToLower(bytes.TrimSpace(data[:n]))
	return bytes.HasPrefix(header, []byte("<svg")) ||
		bytes.Contains(header, []byte("<svg")) ||
		bytes.Contains(header, []byte("xmlns=\"http://www.w3.org/2000/svg\""))
}

// rasterizeSVG renders an SVG document onto an RGBA canvas, using the
// document's own size when present and a fixed fallback otherwise.
func rasterizeSVG(data []byte) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %v", err)
	}

	w := int(icon.ViewBox.W)
	h := int(icon.ViewBox.H)
	if w <= 0 || h <= 0 {
		w = svgFallbackSize
		h = svgFallbackSize
	}

	icon.SetTarget(0, 0, float64(w), float64(h))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	white := color.RGBA{255, 255, 255, 255}
	draw.Draw(dst, dst.Bounds(), &image.Uniform{white}, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	dasher := rasterx.NewDasher(w, h, scanner)
	icon.Draw(dasher, 1.0)

	return dst, nil
}

package presets

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"

	"golang.org/x/image/draw"
)

// JPEGQuality is used for every encoded output.
const JPEGQuality = 90

// Fit returns the size of a w×h image scaled to fit inside the preset box
// with its aspect ratio kept. Smaller images are scaled up.
func Fit(w, h int, p Preset) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	ratio := math.Min(float64(p.Width)/float64(w), float64(p.Height)/float64(h))
	nw := int(math.Round(float64(w) * ratio))
	nh := int(math.Round(float64(h) * ratio))
	return max(nw, 1), max(nh, 1)
}

// Shrink is like Fit but never enlarges.
func Shrink(w, h int, p Preset) (int, int) {
	if w <= p.Width && h <= p.Height {
		return w, h
	}
	return Fit(w, h, p)
}

// Scale draws img into a new w×h RGBA image.
func Scale(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// Encode writes img as JPEG.
func Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Resize decodes r, fits it into p and returns JPEG bytes with the final size.
func Resize(r io.Reader, p Preset) ([]byte, image.Point, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, image.Point{}, fmt.Errorf("decode image: %w", err)
	}
	w, h := Fit(img.Bounds().Dx(), img.Bounds().Dy(), p)
	data, err := Encode(Scale(img, w, h))
	if err != nil {
		return nil, image.Point{}, err
	}
	return data, image.Pt(w, h), nil
}

// Optimize decodes r and shrinks it into the Original preset, used for uploads.
func Optimize(r io.Reader) ([]byte, image.Point, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, image.Point{}, fmt.Errorf("decode image: %w", err)
	}
	orig, _ := Lookup(Original)
	w, h := Shrink(img.Bounds().Dx(), img.Bounds().Dy(), orig)
	data, err := Encode(Scale(img, w, h))
	if err != nil {
		return nil, image.Point{}, err
	}
	return data, image.Pt(w, h), nil
}

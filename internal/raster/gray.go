package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/pkg/errors"
)

// ErrEmptyImage is returned for images without pixels.
var ErrEmptyImage = errors.New("raster: empty image")

// Grayscale converts img to an 8-bit gray image with origin (0,0) using
// ITU-R BT.601 luminance weights, rounded to the nearest level.
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	if g, ok := img.(*image.Gray); ok {
		draw.Draw(dst, dst.Bounds(), g, b.Min, draw.Src)
		return dst
	}

	for y := 0; y < b.Dy(); y++ {
		row := dst.Pix[y*dst.Stride:]
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := img.At(x+b.Min.X, y+b.Min.Y).RGBA()
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)
			row[x] = uint8(math.Min(255, math.Round(lum)))
		}
	}
	return dst
}

// Clone returns a copy of src with origin (0,0).
func Clone(src *image.Gray) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// SubImage copies the part of src inside r into a new image with origin (0,0).
// r is clipped to the bounds of src.
func SubImage(src *image.Gray, r image.Rectangle) *image.Gray {
	r = r.Intersect(src.Bounds())
	dst := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), src, r.Min, draw.Src)
	return dst
}

// Fill returns a w×h image with every pixel set to v.
func Fill(w, h int, v uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	if v != 0 {
		draw.Draw(g, g.Bounds(), &image.Uniform{C: color.Gray{Y: v}}, image.Point{}, draw.Src)
	}
	return g
}

// pixels returns the samples of src as a dense row-major slice.
func pixels(src *image.Gray) ([]uint8, int, int) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if b.Min == (image.Point{}) && src.Stride == w {
		return src.Pix[:w*h], w, h
	}
	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		off := src.PixOffset(b.Min.X, b.Min.Y+y)
		copy(out[y*w:], src.Pix[off:off+w])
	}
	return out, w, h
}

func fromPixels(pix []uint8, w, h int) *image.Gray {
	return &image.Gray{Pix: pix, Stride: w, Rect: image.Rect(0, 0, w, h)}
}

func checkImage(src *image.Gray) error {
	if src == nil || src.Bounds().Empty() {
		return ErrEmptyImage
	}
	return nil
}

func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

func saturate(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

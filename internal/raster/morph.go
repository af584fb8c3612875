package raster

import (
	"image"

	"github.com/pkg/errors"
)

// Morphology implements Ops. Open and Close run all erosions before all
// dilations (or the reverse), iterations times each.
func (Native) Morphology(src *image.Gray, op MorphOp, k Kernel, iterations int) (*image.Gray, error) {
	if err := checkImage(src); err != nil {
		return nil, err
	}
	if k.Width < 1 || k.Height < 1 {
		return nil, errors.Errorf("morphology: invalid kernel %dx%d", k.Width, k.Height)
	}
	if iterations < 1 {
		iterations = 1
	}

	pix, w, h := pixels(src)
	repeat := func(in []uint8, useMax bool) []uint8 {
		for i := 0; i < iterations; i++ {
			in = rankFilter(in, w, h, k, useMax)
		}
		return in
	}

	var out []uint8
	switch op {
	case Erode:
		out = repeat(pix, false)
	case Dilate:
		out = repeat(pix, true)
	case Open:
		out = repeat(repeat(pix, false), true)
	case Close:
		out = repeat(repeat(pix, true), false)
	default:
		return nil, errors.Errorf("morphology: unknown operation %d", op)
	}
	return fromPixels(out, w, h), nil
}

// rankFilter computes the windowed min (or max) over a rectangular kernel,
// one axis at a time. Pixels outside the image do not take part.
func rankFilter(pix []uint8, w, h int, k Kernel, useMax bool) []uint8 {
	pick := func(a, b uint8) uint8 {
		if (b > a) == useMax {
			return b
		}
		return a
	}

	ax, ay := k.Width/2, k.Height/2
	rows := make([]uint8, len(pix))
	for y := 0; y < h; y++ {
		line := pix[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			lo := clamp(x-ax, 0, w-1)
			hi := clamp(x-ax+k.Width-1, 0, w-1)
			v := line[lo]
			for i := lo + 1; i <= hi; i++ {
				v = pick(v, line[i])
			}
			rows[y*w+x] = v
		}
	}
	if k.Height == 1 {
		return rows
	}

	out := make([]uint8, len(pix))
	for y := 0; y < h; y++ {
		lo := clamp(y-ay, 0, h-1)
		hi := clamp(y-ay+k.Height-1, 0, h-1)
		for x := 0; x < w; x++ {
			v := rows[lo*w+x]
			for i := lo + 1; i <= hi; i++ {
				v = pick(v, rows[i*w+x])
			}
			out[y*w+x] = v
		}
	}
	return out
}

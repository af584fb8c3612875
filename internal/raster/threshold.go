package raster

import (
	"image"
	"math"

	"github.com/pkg/errors"
)

// Native implements Ops in pure Go. Blurs are delegated to bild's
// convolution; everything else works directly on the pixel buffers.
type Native struct{}

var _ Ops = Native{}

// Threshold implements Ops.
func (Native) Threshold(src *image.Gray, level uint8, invert bool) (*image.Gray, error) {
	if err := checkImage(src); err != nil {
		return nil, err
	}
	pix, w, h := pixels(src)
	return fromPixels(binarize(pix, level, invert), w, h), nil
}

// Otsu implements Ops.
func (Native) Otsu(src *image.Gray, invert bool) (*image.Gray, error) {
	if err := checkImage(src); err != nil {
		return nil, err
	}
	pix, w, h := pixels(src)
	return fromPixels(binarize(pix, OtsuLevel(pix), invert), w, h), nil
}

// OtsuLevel returns the threshold maximizing the between-class variance of
// the histogram of pix. A flat image yields 0.
func OtsuLevel(pix []uint8) uint8 {
	var hist [256]float64
	for _, v := range pix {
		hist[v]++
	}
	total := float64(len(pix))
	var sumAll float64
	for i, n := range hist {
		sumAll += float64(i) * n
	}

	var (
		weightBelow, sumBelow float64
		best                  float64
		level                 int
	)
	for t := 0; t < 256; t++ {
		weightBelow += hist[t]
		sumBelow += float64(t) * hist[t]
		weightAbove := total - weightBelow
		if weightBelow == 0 || weightAbove == 0 {
			continue
		}
		meanBelow := sumBelow / weightBelow
		meanAbove := (sumAll - sumBelow) / weightAbove
		d := meanBelow - meanAbove
		sigma := weightBelow * weightAbove * d * d
		if sigma > best {
			best = sigma
			level = t
		}
	}
	return uint8(level)
}

func binarize(pix []uint8, level uint8, invert bool) []uint8 {
	on, off := uint8(255), uint8(0)
	if invert {
		on, off = off, on
	}
	out := make([]uint8, len(pix))
	for i, v := range pix {
		if v > level {
			out[i] = on
		} else {
			out[i] = off
		}
	}
	return out
}

// AdaptiveThreshold implements Ops. The local mean is rounded to 8 bits
// before the comparison and c is rounded up.
func (n Native) AdaptiveThreshold(src *image.Gray, method AdaptiveMethod, blockSize int, c float64) (*image.Gray, error) {
	if err := checkImage(src); err != nil {
		return nil, err
	}
	if blockSize < 3 || blockSize%2 == 0 {
		return nil, errors.Errorf("adaptive threshold: block size %d must be odd and at least 3", blockSize)
	}

	var weights []float64
	switch method {
	case AdaptiveMean:
		weights = make([]float64, blockSize)
		for i := range weights {
			weights[i] = 1 / float64(blockSize)
		}
	case AdaptiveGaussian:
		weights = gaussianKernel(blockSize, 0.3*(float64(blockSize-1)*0.5-1)+0.8)
	default:
		return nil, errors.Errorf("adaptive threshold: unknown method %d", method)
	}

	mean, err := convolveSeparable(src, weights)
	if err != nil {
		return nil, errors.Wrap(err, "adaptive threshold")
	}

	pix, w, h := pixels(src)
	mpix, _, _ := pixels(mean)
	delta := int(math.Ceil(c))
	out := make([]uint8, len(pix))
	for i, v := range pix {
		if int(v)-int(mpix[i]) > -delta {
			out[i] = 255
		}
	}
	return fromPixels(out, w, h), nil
}

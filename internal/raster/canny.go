package raster

import (
	"image"
	"math"

	"github.com/pkg/errors"
)

var (
	sobelX = [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY = [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}
)

// Canny implements Ops.
//
// The algorithm works on the unblurred input:
//
//  1. Sobel gradients with replicated borders, magnitude |Gx|+|Gy|.
//  2. Non-maximum suppression along the gradient direction quantized to
//     four sectors.
//  3. Hysteresis: pixels above high seed edges, and every 8-connected pixel
//     above low reachable from a seed joins them.
func (Native) Canny(src *image.Gray, low, high float64) (*image.Gray, error) {
	if err := checkImage(src); err != nil {
		return nil, err
	}
	if low > high {
		low, high = high, low
	}
	if low < 0 {
		return nil, errors.Errorf("canny: negative threshold %v", low)
	}

	pix, w, h := pixels(src)
	magnitude := make([]float64, w*h)
	direction := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				row := clamp(y+ky, 0, h-1) * w
				for kx := -1; kx <= 1; kx++ {
					v := float64(pix[row+clamp(x+kx, 0, w-1)])
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			magnitude[y*w+x] = math.Abs(gx) + math.Abs(gy)
			direction[y*w+x] = math.Atan2(gy, gx)
		}
	}

	mag := func(x, y int) float64 {
		if x < 0 || y < 0 || x >= w || y >= h {
			return 0
		}
		return magnitude[y*w+x]
	}

	const (
		none uint8 = iota
		weak
		strong
	)
	class := make([]uint8, w*h)
	stack := make([]int, 0, 1024)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m := magnitude[y*w+x]
			if m <= low {
				continue
			}

			angle := direction[y*w+x]
			var n1, n2 float64
			switch {
			case (angle >= -math.Pi/8 && angle < math.Pi/8) || angle >= 7*math.Pi/8 || angle < -7*math.Pi/8:
				n1, n2 = mag(x-1, y), mag(x+1, y)
			case (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8):
				n1, n2 = mag(x-1, y-1), mag(x+1, y+1)
			case (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8):
				n1, n2 = mag(x, y-1), mag(x, y+1)
			default:
				n1, n2 = mag(x+1, y-1), mag(x-1, y+1)
			}
			// Strict on one side so plateaus keep a single pixel.
			if !(m > n1 && m >= n2) {
				continue
			}

			if m > high {
				class[y*w+x] = strong
				stack = append(stack, y*w+x)
			} else {
				class[y*w+x] = weak
			}
		}
	}

	out := make([]uint8, w*h)
	for _, i := range stack {
		out[i] = 255
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if class[j] == weak && out[j] == 0 {
					out[j] = 255
					stack = append(stack, j)
				}
			}
		}
	}
	return fromPixels(out, w, h), nil
}

package raster

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/convolution"
	"github.com/pkg/errors"
)

// gaussianKernel returns normalized 1-D Gaussian weights.
func gaussianKernel(size int, sigma float64) []float64 {
	weights := make([]float64, size)
	center := float64(size-1) / 2
	var sum float64
	for i := range weights {
		d := float64(i) - center
		weights[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

// gaussianSize is the kernel size used for a given sigma on 8-bit images.
func gaussianSize(sigma float64) int {
	return int(math.Round(sigma*6+1)) | 1
}

// convolveSeparable applies weights horizontally and then vertically with
// replicated borders. The weights must have odd length and sum to 1.
func convolveSeparable(src *image.Gray, weights []float64) (*image.Gray, error) {
	if len(weights)%2 == 0 {
		return nil, errors.Errorf("kernel length %d is not odd", len(weights))
	}
	r := len(weights) / 2
	pix, w, h := pixels(src)

	// bild zero-fills outside the image, so pad with edge pixels first and
	// convolve the padded copy.
	pw, ph := w+2*r, h+2*r
	padded := make([]uint8, pw*ph)
	for y := 0; y < ph; y++ {
		sy := clamp(y-r, 0, h-1)
		for x := 0; x < pw; x++ {
			padded[y*pw+x] = pix[sy*w+clamp(x-r, 0, w-1)]
		}
	}

	horizontal := convolution.NewKernel(len(weights), 1)
	vertical := convolution.NewKernel(1, len(weights))
	copy(horizontal.Matrix, weights)
	copy(vertical.Matrix, weights)

	// bild truncates each pass to uint8; the bias turns that into rounding.
	opts := &convolution.Options{Bias: 0.5, Wrap: false, KeepAlpha: true}
	pass := convolution.Convolve(fromPixels(padded, pw, ph), horizontal, opts)
	pass = convolution.Convolve(pass, vertical, opts)

	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out[y*w+x] = pass.Pix[pass.PixOffset(x+r, y+r)]
		}
	}
	return fromPixels(out, w, h), nil
}

// GaussianBlur implements Ops.
func (Native) GaussianBlur(src *image.Gray, sigma float64) (*image.Gray, error) {
	if err := checkImage(src); err != nil {
		return nil, err
	}
	if sigma <= 0 {
		return nil, errors.Errorf("gaussian blur: sigma %v must be positive", sigma)
	}
	return convolveSeparable(src, gaussianKernel(gaussianSize(sigma), sigma))
}

// UnsharpMask implements Ops.
func (n Native) UnsharpMask(src *image.Gray, sigma, amount float64) (*image.Gray, error) {
	blurred, err := n.GaussianBlur(src, sigma)
	if err != nil {
		return nil, errors.Wrap(err, "unsharp mask")
	}
	pix, w, h := pixels(src)
	bpix, _, _ := pixels(blurred)
	out := make([]uint8, len(pix))
	for i := range pix {
		out[i] = saturate((1+amount)*float64(pix[i]) - amount*float64(bpix[i]))
	}
	return fromPixels(out, w, h), nil
}

// BilateralFilter implements Ops. The window is the disc of the given
// diameter.
func (Native) BilateralFilter(src *image.Gray, diameter int, sigmaColor, sigmaSpace float64) (*image.Gray, error) {
	if err := checkImage(src); err != nil {
		return nil, err
	}
	if diameter < 1 || sigmaColor <= 0 || sigmaSpace <= 0 {
		return nil, errors.Errorf("bilateral filter: invalid parameters d=%d sigmaColor=%v sigmaSpace=%v",
			diameter, sigmaColor, sigmaSpace)
	}
	radius := diameter / 2

	type tap struct {
		dx, dy int
		weight float64
	}
	var taps []tap
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			d2 := float64(dx*dx + dy*dy)
			if d2 > float64(radius*radius) {
				continue
			}
			taps = append(taps, tap{dx, dy, math.Exp(-d2 / (2 * sigmaSpace * sigmaSpace))})
		}
	}
	var colorWeight [256]float64
	for i := range colorWeight {
		colorWeight[i] = math.Exp(-float64(i*i) / (2 * sigmaColor * sigmaColor))
	}

	pix, w, h := pixels(src)
	out := make([]uint8, len(pix))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			center := int(pix[y*w+x])
			var sum, norm float64
			for _, t := range taps {
				v := int(pix[clamp(y+t.dy, 0, h-1)*w+clamp(x+t.dx, 0, w-1)])
				diff := v - center
				if diff < 0 {
					diff = -diff
				}
				wt := t.weight * colorWeight[diff]
				sum += wt * float64(v)
				norm += wt
			}
			out[y*w+x] = saturate(sum / norm)
		}
	}
	return fromPixels(out, w, h), nil
}

// CLAHE implements Ops. Tile lookup tables are blended bilinearly between
// tile centres.
func (Native) CLAHE(src *image.Gray, clipLimit float64, tiles int) (*image.Gray, error) {
	if err := checkImage(src); err != nil {
		return nil, err
	}
	if tiles < 1 {
		return nil, errors.Errorf("clahe: tile count %d must be positive", tiles)
	}
	pix, w, h := pixels(src)
	tw := (w + tiles - 1) / tiles
	th := (h + tiles - 1) / tiles
	area := tw * th

	clip := 0
	if clipLimit > 0 {
		clip = int(clipLimit * float64(area) / 256)
		if clip < 1 {
			clip = 1
		}
	}

	luts := make([][256]uint8, tiles*tiles)
	for ty := 0; ty < tiles; ty++ {
		for tx := 0; tx < tiles; tx++ {
			var hist [256]int
			for y := ty * th; y < (ty+1)*th; y++ {
				row := clamp(y, 0, h-1) * w
				for x := tx * tw; x < (tx+1)*tw; x++ {
					hist[pix[row+clamp(x, 0, w-1)]]++
				}
			}
			if clip > 0 {
				clipHistogram(&hist, clip)
			}
			lut := &luts[ty*tiles+tx]
			cum := 0
			for i, n := range hist {
				cum += n
				lut[i] = saturate(float64(cum) * 255 / float64(area))
			}
		}
	}

	out := make([]uint8, len(pix))
	for y := 0; y < h; y++ {
		fy := (float64(y)+0.5)/float64(th) - 0.5
		y1 := int(math.Floor(fy))
		ya := fy - float64(y1)
		y2 := clamp(y1+1, 0, tiles-1)
		y1 = clamp(y1, 0, tiles-1)
		for x := 0; x < w; x++ {
			fx := (float64(x)+0.5)/float64(tw) - 0.5
			x1 := int(math.Floor(fx))
			xa := fx - float64(x1)
			x2 := clamp(x1+1, 0, tiles-1)
			x1 = clamp(x1, 0, tiles-1)

			v := pix[y*w+x]
			top := float64(luts[y1*tiles+x1][v])*(1-xa) + float64(luts[y1*tiles+x2][v])*xa
			bottom := float64(luts[y2*tiles+x1][v])*(1-xa) + float64(luts[y2*tiles+x2][v])*xa
			out[y*w+x] = saturate(top*(1-ya) + bottom*ya)
		}
	}
	return fromPixels(out, w, h), nil
}

// clipHistogram caps every bin at limit and spreads the excess evenly.
func clipHistogram(hist *[256]int, limit int) {
	excess := 0
	for i, n := range hist {
		if n > limit {
			excess += n - limit
			hist[i] = limit
		}
	}
	batch := excess / 256
	residual := excess - batch*256
	for i := range hist {
		hist[i] += batch
	}
	if residual > 0 {
		step := 256 / residual
		if step < 1 {
			step = 1
		}
		for i := 0; i < 256 && residual > 0; i += step {
			hist[i]++
			residual--
		}
	}
}

// Add implements Ops.
func (Native) Add(a, b *image.Gray) (*image.Gray, error) {
	return combine(a, b, func(x, y int) int { return x + y })
}

// Subtract implements Ops.
func (Native) Subtract(a, b *image.Gray) (*image.Gray, error) {
	return combine(a, b, func(x, y int) int { return x - y })
}

func combine(a, b *image.Gray, fn func(x, y int) int) (*image.Gray, error) {
	if err := checkImage(a); err != nil {
		return nil, err
	}
	if err := checkImage(b); err != nil {
		return nil, err
	}
	if a.Bounds().Size() != b.Bounds().Size() {
		return nil, errors.Errorf("image sizes differ: %v and %v", a.Bounds().Size(), b.Bounds().Size())
	}
	apix, w, h := pixels(a)
	bpix, _, _ := pixels(b)
	out := make([]uint8, len(apix))
	for i := range apix {
		out[i] = uint8(clamp(fn(int(apix[i]), int(bpix[i])), 0, 255))
	}
	return fromPixels(out, w, h), nil
}

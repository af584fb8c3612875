//go:build gocv

package raster

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Default returns the pixel operations compiled into this binary.
func Default() Ops {
	return OpenCV{}
}

// Backend names the implementation returned by Default.
const Backend = "opencv"

// OpenCV implements Ops on top of gocv. Results are copied back into Go
// memory so no Mat outlives a call.
type OpenCV struct{}

var _ Ops = OpenCV{}

func toMat(src *image.Gray) (gocv.Mat, error) {
	if err := checkImage(src); err != nil {
		return gocv.NewMat(), err
	}
	mat, err := gocv.ImageGrayToMatGray(Clone(src))
	if err != nil {
		return mat, errors.Wrap(err, "convert image to mat")
	}
	return mat, nil
}

func fromMat(dst gocv.Mat, op string) (*image.Gray, error) {
	if dst.Empty() {
		return nil, errors.Errorf("%s: opencv produced no output", op)
	}
	img, err := dst.ToImage()
	if err != nil {
		return nil, errors.Wrapf(err, "%s: convert mat to image", op)
	}
	if g, ok := img.(*image.Gray); ok {
		return g, nil
	}
	return Grayscale(img), nil
}

// unary runs fn with a fresh destination Mat.
func unary(src *image.Gray, op string, fn func(in gocv.Mat, out *gocv.Mat)) (*image.Gray, error) {
	in, err := toMat(src)
	defer in.Close()
	if err != nil {
		return nil, err
	}
	out := gocv.NewMat()
	defer out.Close()
	fn(in, &out)
	return fromMat(out, op)
}

func binary(a, b *image.Gray, op string, fn func(x, y gocv.Mat, out *gocv.Mat)) (*image.Gray, error) {
	if err := checkImage(b); err != nil {
		return nil, err
	}
	if a.Bounds().Size() != b.Bounds().Size() {
		return nil, errors.Errorf("%s: image sizes differ: %v and %v", op, a.Bounds().Size(), b.Bounds().Size())
	}
	x, err := toMat(a)
	defer x.Close()
	if err != nil {
		return nil, err
	}
	y, err := toMat(b)
	defer y.Close()
	if err != nil {
		return nil, err
	}
	out := gocv.NewMat()
	defer out.Close()
	fn(x, y, &out)
	return fromMat(out, op)
}

// Threshold implements Ops.
func (OpenCV) Threshold(src *image.Gray, level uint8, invert bool) (*image.Gray, error) {
	typ := gocv.ThresholdBinary
	if invert {
		typ = gocv.ThresholdBinaryInv
	}
	return unary(src, "threshold", func(in gocv.Mat, out *gocv.Mat) {
		gocv.Threshold(in, out, float32(level), 255, typ)
	})
}

// Otsu implements Ops.
func (OpenCV) Otsu(src *image.Gray, invert bool) (*image.Gray, error) {
	typ := gocv.ThresholdBinary
	if invert {
		typ = gocv.ThresholdBinaryInv
	}
	return unary(src, "otsu", func(in gocv.Mat, out *gocv.Mat) {
		gocv.Threshold(in, out, 0, 255, typ|gocv.ThresholdOtsu)
	})
}

// AdaptiveThreshold implements Ops.
func (OpenCV) AdaptiveThreshold(src *image.Gray, method AdaptiveMethod, blockSize int, c float64) (*image.Gray, error) {
	mode := gocv.AdaptiveThresholdMean
	if method == AdaptiveGaussian {
		mode = gocv.AdaptiveThresholdGaussian
	}
	return unary(src, "adaptive threshold", func(in gocv.Mat, out *gocv.Mat) {
		gocv.AdaptiveThreshold(in, out, 255, mode, gocv.ThresholdBinary, blockSize, float32(c))
	})
}

// Morphology implements Ops.
func (OpenCV) Morphology(src *image.Gray, op MorphOp, k Kernel, iterations int) (*image.Gray, error) {
	if k.Width < 1 || k.Height < 1 {
		return nil, errors.Errorf("morphology: invalid kernel %dx%d", k.Width, k.Height)
	}
	if iterations < 1 {
		iterations = 1
	}
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(k.Width, k.Height))
	defer kernel.Close()

	var steps []func(in gocv.Mat, out *gocv.Mat)
	erode := func(in gocv.Mat, out *gocv.Mat) { gocv.Erode(in, out, kernel) }
	dilate := func(in gocv.Mat, out *gocv.Mat) { gocv.Dilate(in, out, kernel) }
	repeat := func(fn func(in gocv.Mat, out *gocv.Mat)) {
		for i := 0; i < iterations; i++ {
			steps = append(steps, fn)
		}
	}
	switch op {
	case Erode:
		repeat(erode)
	case Dilate:
		repeat(dilate)
	case Open:
		repeat(erode)
		repeat(dilate)
	case Close:
		repeat(dilate)
		repeat(erode)
	default:
		return nil, errors.Errorf("morphology: unknown operation %d", op)
	}

	cur := src
	for _, step := range steps {
		next, err := unary(cur, "morphology "+op.String(), step)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// GaussianBlur implements Ops.
func (OpenCV) GaussianBlur(src *image.Gray, sigma float64) (*image.Gray, error) {
	if sigma <= 0 {
		return nil, errors.Errorf("gaussian blur: sigma %v must be positive", sigma)
	}
	return unary(src, "gaussian blur", func(in gocv.Mat, out *gocv.Mat) {
		gocv.GaussianBlur(in, out, image.Pt(0, 0), sigma, sigma, gocv.BorderDefault)
	})
}

// BilateralFilter implements Ops.
func (OpenCV) BilateralFilter(src *image.Gray, diameter int, sigmaColor, sigmaSpace float64) (*image.Gray, error) {
	return unary(src, "bilateral filter", func(in gocv.Mat, out *gocv.Mat) {
		gocv.BilateralFilter(in, out, diameter, sigmaColor, sigmaSpace)
	})
}

// CLAHE implements Ops.
func (OpenCV) CLAHE(src *image.Gray, clipLimit float64, tiles int) (*image.Gray, error) {
	clahe := gocv.NewCLAHEWithParams(clipLimit, image.Pt(tiles, tiles))
	defer clahe.Close()
	return unary(src, "clahe", func(in gocv.Mat, out *gocv.Mat) {
		clahe.Apply(in, out)
	})
}

// UnsharpMask implements Ops.
func (o OpenCV) UnsharpMask(src *image.Gray, sigma, amount float64) (*image.Gray, error) {
	blurred, err := o.GaussianBlur(src, sigma)
	if err != nil {
		return nil, errors.Wrap(err, "unsharp mask")
	}
	return binary(src, blurred, "unsharp mask", func(x, y gocv.Mat, out *gocv.Mat) {
		gocv.AddWeighted(x, 1+amount, y, -amount, 0, out)
	})
}

// Canny implements Ops.
func (OpenCV) Canny(src *image.Gray, low, high float64) (*image.Gray, error) {
	return unary(src, "canny", func(in gocv.Mat, out *gocv.Mat) {
		gocv.Canny(in, out, float32(low), float32(high))
	})
}

// Add implements Ops.
func (OpenCV) Add(a, b *image.Gray) (*image.Gray, error) {
	return binary(a, b, "add", func(x, y gocv.Mat, out *gocv.Mat) {
		gocv.Add(x, y, out)
	})
}

// Subtract implements Ops.
func (OpenCV) Subtract(a, b *image.Gray) (*image.Gray, error) {
	return binary(a, b, "subtract", func(x, y gocv.Mat, out *gocv.Mat) {
		gocv.Subtract(x, y, out)
	})
}

// MatchTemplate implements Ops.
func (OpenCV) MatchTemplate(src, tmpl *image.Gray) (*MatchScores, error) {
	if err := checkImage(tmpl); err != nil {
		return nil, err
	}
	if err := checkImage(src); err != nil {
		return nil, err
	}
	sw, sh := src.Bounds().Dx(), src.Bounds().Dy()
	tw, th := tmpl.Bounds().Dx(), tmpl.Bounds().Dy()
	if tw > sw || th > sh {
		return nil, errors.Wrapf(ErrTemplateTooLarge, "template %dx%d, image %dx%d", tw, th, sw, sh)
	}

	in, err := toMat(src)
	defer in.Close()
	if err != nil {
		return nil, err
	}
	t, err := toMat(tmpl)
	defer t.Close()
	if err != nil {
		return nil, err
	}
	mask := gocv.NewMat()
	defer mask.Close()
	result := gocv.NewMat()
	defer result.Close()

	gocv.MatchTemplate(in, t, &result, gocv.TmCcoeffNormed, mask)
	if result.Empty() {
		return nil, errors.New("match template: opencv produced no output")
	}

	out := &MatchScores{Width: result.Cols(), Height: result.Rows()}
	out.Scores = make([]float32, out.Width*out.Height)
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			out.Scores[y*out.Width+x] = result.GetFloatAt(y, x)
		}
	}
	return out, nil
}

// ExternalContours implements Ops.
func (OpenCV) ExternalContours(bin *image.Gray) ([]Contour, error) {
	in, err := toMat(bin)
	defer in.Close()
	if err != nil {
		return nil, err
	}
	found := gocv.FindContours(in, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer found.Close()

	contours := make([]Contour, 0, found.Size())
	for i := 0; i < found.Size(); i++ {
		pv := found.At(i)
		contours = append(contours, Contour{
			Bounds: gocv.BoundingRect(pv),
			Area:   gocv.ContourArea(pv),
		})
	}
	return contours, nil
}

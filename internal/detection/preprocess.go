package detection

import (
	"fmt"
	"image"

	"github.com/pkg/errors"

	"github.com/ironsheep/number-regions/internal/raster"
)

// Variant is one enhanced rendition of the grayscale input.
type Variant struct {
	Name  string
	Image *image.Gray
}

// VariantNames lists every variant the Preprocessor produces, in order.
var VariantNames = []string{
	"original",
	"clahe",
	"otsu",
	"otsu_inv",
	"adaptive_mean",
	"adaptive_gaussian",
	"morph_close",
	"morph_open",
	"blur_0.5",
	"blur_1.0",
	"blur_1.5",
	"edges_dilated",
	"unsharp",
}

var blurSigmas = []float64{0.5, 1.0, 1.5}

// Preprocessor derives the enhanced variants the model detector reads.
type Preprocessor struct {
	Ops raster.Ops
}

// NewPreprocessor returns a Preprocessor using ops.
func NewPreprocessor(ops raster.Ops) *Preprocessor {
	return &Preprocessor{Ops: ops}
}

// Variants returns the variants of gray in VariantNames order. A variant
// whose operations fail is left out and reported; variants built from it
// are left out as well. The input is never modified.
func (p *Preprocessor) Variants(gray *image.Gray) ([]Variant, []error) {
	var (
		variants []Variant
		failures []error
	)
	add := func(name string, img *image.Gray, err error) *image.Gray {
		if err != nil {
			failures = append(failures, stepError("preprocess", name, err))
			return nil
		}
		variants = append(variants, Variant{Name: name, Image: img})
		return img
	}
	skip := func(name, from string) {
		failures = append(failures, stepError("preprocess", name, errors.Errorf("depends on failed variant %s", from)))
	}

	ops := p.Ops
	add("original", raster.Clone(gray), nil)

	img, err := ops.CLAHE(gray, 3.0, 8)
	add("clahe", img, err)

	img, err = ops.Otsu(gray, false)
	otsu := add("otsu", img, err)

	img, err = ops.Otsu(gray, true)
	add("otsu_inv", img, err)

	img, err = ops.AdaptiveThreshold(gray, raster.AdaptiveMean, 11, 2)
	add("adaptive_mean", img, err)

	img, err = ops.AdaptiveThreshold(gray, raster.AdaptiveGaussian, 11, 2)
	add("adaptive_gaussian", img, err)

	if otsu != nil {
		img, err = ops.Morphology(otsu, raster.Close, raster.Rect(2, 2), 1)
		add("morph_close", img, err)
		img, err = ops.Morphology(otsu, raster.Open, raster.Rect(2, 2), 1)
		add("morph_open", img, err)
	} else {
		skip("morph_close", "otsu")
		skip("morph_open", "otsu")
	}

	for _, sigma := range blurSigmas {
		name := fmt.Sprintf("blur_%.1f", sigma)
		img, err = ops.GaussianBlur(gray, sigma)
		if err == nil {
			img, err = ops.Otsu(img, false)
		}
		add(name, img, err)
	}

	img, err = ops.Canny(gray, 50, 150)
	if err == nil {
		img, err = ops.Morphology(img, raster.Dilate, raster.Rect(3, 3), 1)
	}
	add("edges_dilated", img, err)

	img, err = ops.UnsharpMask(gray, 2.0, 0.5)
	if err == nil {
		img, err = ops.Otsu(img, false)
	}
	add("unsharp", img, err)

	return variants, failures
}

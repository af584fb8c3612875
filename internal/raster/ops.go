package raster

import (
	"image"
)

// MorphOp selects a morphological operation.
type MorphOp int

const (
	Erode MorphOp = iota
	Dilate
	Open  // erode then dilate
	Close // dilate then erode
)

func (op MorphOp) String() string {
	switch op {
	case Erode:
		return "erode"
	case Dilate:
		return "dilate"
	case Open:
		return "open"
	case Close:
		return "close"
	}
	return "unknown"
}

// AdaptiveMethod selects how the local threshold is computed.
type AdaptiveMethod int

const (
	AdaptiveMean AdaptiveMethod = iota
	AdaptiveGaussian
)

// Kernel is a rectangular structuring element.
type Kernel struct {
	Width  int
	Height int
}

// Rect returns a w×h rectangular kernel.
func Rect(w, h int) Kernel {
	return Kernel{Width: w, Height: h}
}

// Contour is the outer boundary of one connected foreground component.
type Contour struct {
	// Bounds is the bounding rectangle of the component.
	Bounds image.Rectangle

	// Area is the polygon area enclosed by the traced boundary.
	Area float64
}

// MatchScores holds normalized correlation scores for every placement of a
// template. Scores[y*Width+x] belongs to the placement with its top-left
// corner at (x, y).
type MatchScores struct {
	Width  int
	Height int
	Scores []float32
}

// At returns the score of the placement at (x, y).
func (m *MatchScores) At(x, y int) float32 {
	return m.Scores[y*m.Width+x]
}

// Ops is the set of pixel operations used by the detectors.
//
// Implementations must be safe for concurrent use and must not modify their
// inputs.
type Ops interface {
	// Threshold sets pixels above level to 255 and the rest to 0, or the
	// reverse when invert is true.
	Threshold(src *image.Gray, level uint8, invert bool) (*image.Gray, error)

	// Otsu thresholds at the level chosen by Otsu's method.
	Otsu(src *image.Gray, invert bool) (*image.Gray, error)

	// AdaptiveThreshold marks a pixel foreground when it is brighter than its
	// blockSize neighbourhood mean minus c.
	AdaptiveThreshold(src *image.Gray, method AdaptiveMethod, blockSize int, c float64) (*image.Gray, error)

	Morphology(src *image.Gray, op MorphOp, k Kernel, iterations int) (*image.Gray, error)

	// GaussianBlur blurs with the given sigma; the kernel size follows from sigma.
	GaussianBlur(src *image.Gray, sigma float64) (*image.Gray, error)

	BilateralFilter(src *image.Gray, diameter int, sigmaColor, sigmaSpace float64) (*image.Gray, error)

	// CLAHE applies contrast limited adaptive histogram equalization over a
	// tiles×tiles grid.
	CLAHE(src *image.Gray, clipLimit float64, tiles int) (*image.Gray, error)

	// UnsharpMask returns (1+amount)*src - amount*blur(src, sigma).
	UnsharpMask(src *image.Gray, sigma, amount float64) (*image.Gray, error)

	Canny(src *image.Gray, low, high float64) (*image.Gray, error)

	// Add and Subtract saturate at 255 and 0.
	Add(a, b *image.Gray) (*image.Gray, error)
	Subtract(a, b *image.Gray) (*image.Gray, error)

	// MatchTemplate scores every placement of tmpl inside src with zero-mean
	// normalized cross-correlation. Flat placements score 0.
	MatchTemplate(src, tmpl *image.Gray) (*MatchScores, error)

	ExternalContours(bin *image.Gray) ([]Contour, error)
}

package detection

import (
	"context"
	"image"
)

// Input is what every detector reads. Detectors never modify it.
type Input struct {
	Gray     *image.Gray
	Variants []Variant
}

// Size returns the image width and height.
func (in *Input) Size() (int, int) {
	b := in.Gray.Bounds()
	return b.Dx(), b.Dy()
}

// Detector proposes candidate regions. Failures of individual steps are
// returned alongside whatever was found; they never stop the detector.
// A cancelled ctx stops the detector early and is reported as a failure.
type Detector interface {
	Name() string
	Detect(ctx context.Context, in *Input) (RegionSet, []error)
}

// Source labels and fixed texts of the built-in detectors.
const (
	SourceContour      = "contour"
	SourceHandwritten  = "handwritten"
	SourceTemplate     = "template"
	SourceTextFallback = "text_fallback"
	SourceGrid         = "grid_sampling"

	TextContour      = "contour_detected"
	TextHandwritten  = "handwritten_candidate"
	TextTemplate     = "template_match"
	TextTextFallback = "text_like_region"
	TextGrid         = "grid_sampled"
)

package detection

import (
	"context"
	"image"

	"github.com/ironsheep/number-regions/internal/raster"
)

// ContourDetector proposes the bounding boxes of mid-sized blobs found under
// three binarizations: Otsu, inverted Otsu and adaptive Gaussian.
type ContourDetector struct {
	Ops raster.Ops
}

func (d *ContourDetector) Name() string { return SourceContour }

// Detect implements Detector. A blob is kept when 15 < w < 0.8*W,
// 15 < h < 0.8*H, its contour area exceeds 200 and 0.1 < w/h < 10.
func (d *ContourDetector) Detect(ctx context.Context, in *Input) (RegionSet, []error) {
	w, h := in.Size()
	binarize := []struct {
		name string
		run  func() (*image.Gray, error)
	}{
		{"otsu", func() (*image.Gray, error) { return d.Ops.Otsu(in.Gray, false) }},
		{"otsu_inv", func() (*image.Gray, error) { return d.Ops.Otsu(in.Gray, true) }},
		{"adaptive_gaussian", func() (*image.Gray, error) {
			return d.Ops.AdaptiveThreshold(in.Gray, raster.AdaptiveGaussian, 11, 2)
		}},
	}

	var (
		found    []Detection
		failures []error
	)
	for _, b := range binarize {
		if err := ctx.Err(); err != nil {
			return NewRegionSet(found...), append(failures, err)
		}
		bin, err := b.run()
		if err != nil {
			failures = append(failures, stepError(d.Name(), b.name, err))
			continue
		}
		contours, err := d.Ops.ExternalContours(bin)
		if err != nil {
			failures = append(failures, stepError(d.Name(), b.name, err))
			continue
		}

		for _, c := range contours {
			cw, ch := c.Bounds.Dx(), c.Bounds.Dy()
			aspect := float64(cw) / float64(ch)
			if cw <= 15 || float64(cw) >= 0.8*float64(w) ||
				ch <= 15 || float64(ch) >= 0.8*float64(h) ||
				c.Area <= 200 || aspect <= 0.1 || aspect >= 10 {
				continue
			}
			found = append(found, Detection{
				Box:        BoxFromRect(c.Bounds).Pad(5, w, h),
				Confidence: 50,
				Text:       TextContour,
				Source:     SourceContour,
			})
		}
	}
	return NewRegionSet(found...), failures
}

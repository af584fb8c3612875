package detection

import (
	"context"
	"image"

	"github.com/ironsheep/number-regions/internal/raster"
)

// HandwrittenDetector looks for pen strokes on ruled or grid paper. Long
// horizontal and vertical structures are removed first, the rest is
// smoothed, binarized and closed so broken strokes join up.
type HandwrittenDetector struct {
	Ops raster.Ops
}

func (d *HandwrittenDetector) Name() string { return SourceHandwritten }

// Detect implements Detector.
func (d *HandwrittenDetector) Detect(ctx context.Context, in *Input) (RegionSet, []error) {
	fail := func(step string, err error) (RegionSet, []error) {
		return RegionSet{}, []error{stepError(d.Name(), step, err)}
	}
	if err := ctx.Err(); err != nil {
		return RegionSet{}, []error{err}
	}

	clean, err := d.removeLines(in.Gray)
	if err != nil {
		return fail("remove_lines", err)
	}
	smooth, err := d.Ops.BilateralFilter(clean, 9, 75, 75)
	if err != nil {
		return fail("bilateral", err)
	}
	bin, err := d.Ops.Otsu(smooth, false)
	if err != nil {
		return fail("otsu", err)
	}
	connected, err := d.Ops.Morphology(bin, raster.Close, raster.Rect(3, 2), 1)
	if err != nil {
		return fail("close", err)
	}
	contours, err := d.Ops.ExternalContours(connected)
	if err != nil {
		return fail("contours", err)
	}

	w, h := in.Size()
	var found []Detection
	for _, c := range contours {
		if !looksHandwritten(clean, c) {
			continue
		}
		found = append(found, Detection{
			Box:        BoxFromRect(c.Bounds).Pad(10, w, h),
			Confidence: 40,
			Text:       TextHandwritten,
			Source:     SourceHandwritten,
		})
	}
	return NewRegionSet(found...), nil
}

// removeLines subtracts the long horizontal and vertical structures of gray
// from it.
func (d *HandwrittenDetector) removeLines(gray *image.Gray) (*image.Gray, error) {
	horizontal, err := d.Ops.Morphology(gray, raster.Open, raster.Rect(40, 1), 2)
	if err != nil {
		return nil, err
	}
	vertical, err := d.Ops.Morphology(gray, raster.Open, raster.Rect(1, 40), 2)
	if err != nil {
		return nil, err
	}
	lines, err := d.Ops.Add(horizontal, vertical)
	if err != nil {
		return nil, err
	}
	return d.Ops.Subtract(gray, lines)
}

// looksHandwritten applies the size, shape and ink tests to a contour,
// measuring ink on the line-free image.
func looksHandwritten(clean *image.Gray, c raster.Contour) bool {
	w, h := c.Bounds.Dx(), c.Bounds.Dy()
	if w < 15 || h < 15 || w > 500 || h > 100 {
		return false
	}
	if c.Area < 100 || c.Area > 5000 {
		return false
	}
	aspect := float64(w) / float64(h)
	if aspect < 0.2 || aspect > 8 {
		return false
	}

	dark := raster.CountIf(clean, c.Bounds, func(v uint8) bool { return v < 128 })
	ratio := float64(dark) / float64(w*h)
	if ratio < 0.05 || ratio > 0.8 {
		return false
	}
	return raster.RegionStats(clean, c.Bounds).StdDev > 15
}

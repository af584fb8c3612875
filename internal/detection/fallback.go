package detection

import (
	"context"
	"image"

	"github.com/ironsheep/number-regions/internal/raster"
)

// TextLikeDetector finds wide clusters of edges, the usual footprint of a
// line of text. It only runs when the primary detectors found nothing.
type TextLikeDetector struct {
	Ops raster.Ops
}

func (d *TextLikeDetector) Name() string { return SourceTextFallback }

// Detect implements Detector.
func (d *TextLikeDetector) Detect(ctx context.Context, in *Input) (RegionSet, []error) {
	if err := ctx.Err(); err != nil {
		return RegionSet{}, []error{err}
	}
	edges, err := d.Ops.Canny(in.Gray, 30, 100)
	if err != nil {
		return RegionSet{}, []error{stepError(d.Name(), "canny", err)}
	}
	dilated, err := d.Ops.Morphology(edges, raster.Dilate, raster.Rect(15, 3), 2)
	if err != nil {
		return RegionSet{}, []error{stepError(d.Name(), "dilate", err)}
	}
	contours, err := d.Ops.ExternalContours(dilated)
	if err != nil {
		return RegionSet{}, []error{stepError(d.Name(), "contours", err)}
	}

	w, h := in.Size()
	var found []Detection
	for _, c := range contours {
		cw, ch := c.Bounds.Dx(), c.Bounds.Dy()
		aspect := float64(cw) / float64(ch)
		if cw <= 30 || ch <= 15 || c.Area <= 500 || aspect <= 1.5 || aspect >= 15 {
			continue
		}
		found = append(found, Detection{
			Box:        BoxFromRect(c.Bounds).Pad(20, w, h),
			Confidence: 25,
			Text:       TextTextFallback,
			Source:     SourceTextFallback,
		})
	}
	return NewRegionSet(found...), nil
}

const (
	gridCell    = 100
	gridOverlap = 20
)

// GridDetector flags 100×100 cells, overlapping by 20px, that mix clearly
// dark and clearly light pixels. Only cells lying wholly inside the image,
// short of the right and bottom edges, are sampled.
type GridDetector struct{}

func (d *GridDetector) Name() string { return SourceGrid }

// Detect implements Detector.
func (d *GridDetector) Detect(ctx context.Context, in *Input) (RegionSet, []error) {
	w, h := in.Size()
	step := gridCell - gridOverlap
	var found []Detection
	for y := 0; y < h-gridCell; y += step {
		if err := ctx.Err(); err != nil {
			return NewRegionSet(found...), []error{err}
		}
		for x := 0; x < w-gridCell; x += step {
			cell := image.Rect(x, y, x+gridCell, y+gridCell)
			if !mixedContent(in.Gray, cell) {
				continue
			}
			found = append(found, Detection{
				Box:        BoxFromRect(cell),
				Confidence: 20,
				Text:       TextGrid,
				Source:     SourceGrid,
			})
		}
	}
	return NewRegionSet(found...), nil
}

// mixedContent reports whether a cell has high contrast with at least 50
// pixels more than one deviation below the mean and 50 more than one above.
func mixedContent(gray *image.Gray, cell image.Rectangle) bool {
	s := raster.RegionStats(gray, cell)
	if s.StdDev <= 30 {
		return false
	}
	dark := raster.CountIf(gray, cell, func(v uint8) bool { return float64(v) < s.Mean-s.StdDev })
	light := raster.CountIf(gray, cell, func(v uint8) bool { return float64(v) > s.Mean+s.StdDev })
	return dark >= 50 && light >= 50
}

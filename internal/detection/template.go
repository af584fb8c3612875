package detection

import (
	"context"
	"fmt"
	"image"

	"github.com/ironsheep/number-regions/internal/raster"
)

// templateThreshold accepts weak matches. Template detections carry the
// lowest confidence of the primary detectors.
const templateThreshold = 0.1

// TemplateSizes are the block template dimensions, width by height.
var TemplateSizes = []image.Point{{30, 20}, {40, 30}, {50, 40}}

// BlockTemplate returns a w×h white template with a black block inset 2px
// from every edge.
func BlockTemplate(w, h int) *image.Gray {
	t := raster.Fill(w, h, 255)
	for y := 2; y < h-2; y++ {
		for x := 2; x < w-2; x++ {
			t.Pix[y*t.Stride+x] = 0
		}
	}
	return t
}

// TemplateDetector correlates block templates against the grayscale image
// and proposes every placement scoring at least 0.1.
type TemplateDetector struct {
	Ops raster.Ops
}

func (d *TemplateDetector) Name() string { return SourceTemplate }

// Detect implements Detector.
func (d *TemplateDetector) Detect(ctx context.Context, in *Input) (RegionSet, []error) {
	w, h := in.Size()
	var (
		found    []Detection
		failures []error
	)
	for _, size := range TemplateSizes {
		if err := ctx.Err(); err != nil {
			return NewRegionSet(found...), append(failures, err)
		}
		name := fmt.Sprintf("block_%dx%d", size.X, size.Y)
		scores, err := d.Ops.MatchTemplate(in.Gray, BlockTemplate(size.X, size.Y))
		if err != nil {
			failures = append(failures, stepError(d.Name(), name, err))
			continue
		}

		for y := 0; y < scores.Height; y++ {
			for x := 0; x < scores.Width; x++ {
				if scores.At(x, y) < templateThreshold {
					continue
				}
				box := Box{X: x, Y: y, Width: size.X, Height: size.Y}.Pad(10, w, h)
				if box.Width < 20 || box.Height < 20 {
					continue
				}
				found = append(found, Detection{
					Box:        box,
					Confidence: 30,
					Text:       TextTemplate,
					Source:     SourceTemplate,
				})
			}
		}
	}
	return NewRegionSet(found...), failures
}

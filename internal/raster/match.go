package raster

import (
	"image"
	"math"

	"github.com/pkg/errors"
)

// ErrTemplateTooLarge is returned when the template does not fit in the image.
var ErrTemplateTooLarge = errors.New("raster: template larger than image")

// band is a rectangle of constant zero-mean template value.
type band struct {
	x0, y0, x1, y1 int
	value          float64
}

// MatchTemplate implements Ops.
//
// The template is split into rectangles of equal value so each placement
// costs one integral-image lookup per rectangle. Block-shaped templates
// reduce to a handful of rectangles; textured templates degrade toward one
// rectangle per pixel run.
func (Native) MatchTemplate(src, tmpl *image.Gray) (*MatchScores, error) {
	if err := checkImage(src); err != nil {
		return nil, err
	}
	if err := checkImage(tmpl); err != nil {
		return nil, err
	}
	spix, sw, sh := pixels(src)
	tpix, tw, th := pixels(tmpl)
	if tw > sw || th > sh {
		return nil, errors.Wrapf(ErrTemplateTooLarge, "template %dx%d, image %dx%d", tw, th, sw, sh)
	}

	n := float64(tw * th)
	var tsum float64
	for _, v := range tpix {
		tsum += float64(v)
	}
	tmean := tsum / n
	var tnorm float64
	for _, v := range tpix {
		d := float64(v) - tmean
		tnorm += d * d
	}
	tnorm = math.Sqrt(tnorm)

	bands := templateBands(tpix, tw, th, tmean)
	sum, sqsum := integral(spix, sw, sh)
	rect := func(table []float64, x0, y0, x1, y1 int) float64 {
		stride := sw + 1
		return table[y1*stride+x1] - table[y0*stride+x1] - table[y1*stride+x0] + table[y0*stride+x0]
	}

	out := &MatchScores{Width: sw - tw + 1, Height: sh - th + 1}
	out.Scores = make([]float32, out.Width*out.Height)
	if tnorm == 0 {
		return out, nil
	}
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			s := rect(sum, x, y, x+tw, y+th)
			ss := rect(sqsum, x, y, x+tw, y+th)
			variance := ss - s*s/n
			if variance <= 1e-6*n {
				continue
			}
			var num float64
			for _, b := range bands {
				num += b.value * rect(sum, x+b.x0, y+b.y0, x+b.x1, y+b.y1)
			}
			score := num / (tnorm * math.Sqrt(variance))
			out.Scores[y*out.Width+x] = float32(math.Max(-1, math.Min(1, score)))
		}
	}
	return out, nil
}

// templateBands splits the zero-mean template into constant rectangles.
// Each row is cut into runs of equal value and consecutive rows with
// identical runs share one rectangle.
func templateBands(tpix []uint8, tw, th int, mean float64) []band {
	type run struct{ x0, x1 int }
	rowRuns := func(y int) []run {
		row := tpix[y*tw : (y+1)*tw]
		var runs []run
		start := 0
		for x := 1; x <= tw; x++ {
			if x == tw || row[x] != row[start] {
				runs = append(runs, run{start, x})
				start = x
			}
		}
		return runs
	}
	sameRows := func(a, b int) bool {
		for x := 0; x < tw; x++ {
			if tpix[a*tw+x] != tpix[b*tw+x] {
				return false
			}
		}
		return true
	}

	var bands []band
	for y0 := 0; y0 < th; {
		y1 := y0 + 1
		for y1 < th && sameRows(y0, y1) {
			y1++
		}
		for _, r := range rowRuns(y0) {
			v := float64(tpix[y0*tw+r.x0]) - mean
			if v == 0 {
				continue
			}
			bands = append(bands, band{x0: r.x0, y0: y0, x1: r.x1, y1: y1, value: v})
		}
		y0 = y1
	}
	return bands
}

// integral returns summed-area tables of pix and pix² with a zero first row
// and column.
func integral(pix []uint8, w, h int) ([]float64, []float64) {
	stride := w + 1
	sum := make([]float64, stride*(h+1))
	sqsum := make([]float64, stride*(h+1))
	for y := 0; y < h; y++ {
		var rowSum, rowSq float64
		for x := 0; x < w; x++ {
			v := float64(pix[y*w+x])
			rowSum += v
			rowSq += v * v
			sum[(y+1)*stride+x+1] = sum[y*stride+x+1] + rowSum
			sqsum[(y+1)*stride+x+1] = sqsum[y*stride+x+1] + rowSq
		}
	}
	return sum, sqsum
}

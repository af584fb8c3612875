package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
)

// Outline is one rectangle to draw on an overlay, in coordinates relative to
// the image's top-left corner.
type Outline struct {
	Rect  image.Rectangle
	Label int
}

// outlineWidth is the stroke width of overlay rectangles in pixels.
const outlineWidth = 2

// Palette returns n distinguishable colours. Hues step by the golden angle in
// HCL space so neighbouring indices never share a hue.
func Palette(n int) []color.RGBA {
	const goldenAngle = 137.50776405
	out := make([]color.RGBA, n)
	for i := range out {
		hue := math.Mod(float64(i)*goldenAngle+20, 360)
		r, g, b := colorful.Hcl(hue, 0.9, 0.55).Clamped().RGB255()
		out[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return out
}

// DrawOutlines returns a copy of img with every outline stroked in its own
// palette colour and numbered at its top-left corner. img is not modified.
func DrawOutlines(img image.Image, outlines []Outline) *image.NRGBA {
	bounds := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)

	palette := Palette(len(outlines))
	labelFg := color.RGBA{255, 255, 255, 255}
	for i, o := range outlines {
		r := o.Rect.Intersect(dst.Bounds())
		if r.Empty() {
			continue
		}
		strokeRect(dst, r, palette[i])
		drawLabel(dst, r.Min.X+outlineWidth+1, r.Min.Y+outlineWidth+1, strconv.Itoa(o.Label), labelFg, palette[i])
	}
	return dst
}

func strokeRect(img *image.NRGBA, r image.Rectangle, c color.RGBA) {
	for i := 0; i < outlineWidth; i++ {
		inner := r.Inset(i)
		if inner.Empty() {
			return
		}
		for x := inner.Min.X; x < inner.Max.X; x++ {
			img.Set(x, inner.Min.Y, c)
			img.Set(x, inner.Max.Y-1, c)
		}
		for y := inner.Min.Y; y < inner.Max.Y; y++ {
			img.Set(inner.Min.X, y, c)
			img.Set(inner.Max.X-1, y, c)
		}
	}
}

// glyphs is a 3×5 pixel font for region numbers.
var glyphs = map[rune][]string{
	'0': {"111", "101", "101", "101", "111"},
	'1': {"010", "110", "010", "010", "111"},
	'2': {"111", "001", "111", "100", "111"},
	'3': {"111", "001", "111", "001", "111"},
	'4': {"101", "101", "111", "001", "001"},
	'5': {"111", "100", "111", "001", "111"},
	'6': {"111", "100", "111", "101", "111"},
	'7': {"111", "001", "001", "001", "001"},
	'8': {"111", "101", "111", "101", "111"},
	'9': {"111", "101", "111", "001", "111"},
}

// drawLabel draws text on a filled background box starting at (x, y).
// Characters without a glyph leave a blank cell. Pixels outside img are
// skipped.
func drawLabel(img draw.Image, x, y int, text string, fg, bg color.Color) {
	bounds := img.Bounds()
	set := func(px, py int, c color.Color) {
		if image.Pt(px, py).In(bounds) {
			img.Set(px, py, c)
		}
	}

	const charWidth, labelHeight = 4, 7
	labelWidth := len(text) * charWidth
	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			set(x+dx, y+dy, bg)
		}
	}

	cx := x
	for _, ch := range text {
		for row, line := range glyphs[ch] {
			for col, pixel := range line {
				if pixel == '1' {
					set(cx+col, y+row, fg)
				}
			}
		}
		cx += charWidth
	}
}

package detection

import (
	"image"
	"math"
)

// Box is an axis-aligned rectangle in image pixel coordinates. (X, Y) is the
// top-left corner; the box covers X..X+Width-1 and Y..Y+Height-1.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// BoxFromRect converts an image.Rectangle into a Box.
func BoxFromRect(r image.Rectangle) Box {
	return Box{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Rect returns the box as an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Area returns Width*Height.
func (b Box) Area() int {
	return b.Width * b.Height
}

// Center returns the centre point.
func (b Box) Center() (float64, float64) {
	return float64(b.X) + float64(b.Width)/2, float64(b.Y) + float64(b.Height)/2
}

// Intersection returns the area shared by b and o.
func (b Box) Intersection(o Box) int {
	left := max(b.X, o.X)
	top := max(b.Y, o.Y)
	right := min(b.X+b.Width, o.X+o.Width)
	bottom := min(b.Y+b.Height, o.Y+o.Height)
	if right <= left || bottom <= top {
		return 0
	}
	return (right - left) * (bottom - top)
}

// OverlapRatio is the intersection area divided by the smaller of the two
// areas. A box with zero area never overlaps.
func (b Box) OverlapRatio(o Box) float64 {
	smaller := min(b.Area(), o.Area())
	if smaller <= 0 {
		return 0
	}
	return float64(b.Intersection(o)) / float64(smaller)
}

// Union returns the smallest box containing both b and o.
func (b Box) Union(o Box) Box {
	left := min(b.X, o.X)
	top := min(b.Y, o.Y)
	right := max(b.X+b.Width, o.X+o.Width)
	bottom := max(b.Y+b.Height, o.Y+o.Height)
	return Box{X: left, Y: top, Width: right - left, Height: bottom - top}
}

// Pad grows the box by p on every side and clips it to a w×h image.
func (b Box) Pad(p, w, h int) Box {
	left := max(0, b.X-p)
	top := max(0, b.Y-p)
	right := min(w, b.X+b.Width+p)
	bottom := min(h, b.Y+b.Height+p)
	if right < left {
		right = left
	}
	if bottom < top {
		bottom = top
	}
	return Box{X: left, Y: top, Width: right - left, Height: bottom - top}
}

// Near reports whether two boxes sit on the same text line close together:
// centres less than 50px apart and vertical centre offset below 80% of the
// taller box.
func (b Box) Near(o Box) bool {
	bx, by := b.Center()
	ox, oy := o.Center()
	dist := math.Hypot(bx-ox, by-oy)
	tallest := float64(max(b.Height, o.Height))
	return dist < nearDistance && math.Abs(by-oy) < nearLineFactor*tallest
}

const (
	nearDistance   = 50
	nearLineFactor = 0.8
)

// Detection is one candidate region reported by a detector.
type Detection struct {
	Box

	// Confidence is in the range declared by the detector that produced it
	// (0-100 for every built-in detector).
	Confidence float64 `json:"confidence"`

	// Text is whatever the detector read or a fixed label; it is advisory.
	Text string `json:"text"`

	// Source names the detector, or detectors joined with "+" after a merge.
	Source string `json:"source"`
}

// RegionSet is an ordered collection of detections. Methods never modify
// the receiver; Append and Concat return a new set.
type RegionSet struct {
	items []Detection
}

// NewRegionSet returns a set holding a copy of ds.
func NewRegionSet(ds ...Detection) RegionSet {
	return RegionSet{items: append([]Detection(nil), ds...)}
}

// Len returns the number of detections.
func (s RegionSet) Len() int {
	return len(s.items)
}

// At returns the i-th detection.
func (s RegionSet) At(i int) Detection {
	return s.items[i]
}

// Items returns a copy of the detections in order.
func (s RegionSet) Items() []Detection {
	return append([]Detection(nil), s.items...)
}

// Append returns a new set with ds added at the end.
func (s RegionSet) Append(ds ...Detection) RegionSet {
	out := make([]Detection, 0, len(s.items)+len(ds))
	out = append(out, s.items...)
	return RegionSet{items: append(out, ds...)}
}

// Concat returns a new set holding s followed by o.
func (s RegionSet) Concat(o RegionSet) RegionSet {
	return s.Append(o.items...)
}

// CountBySource tallies detections per source label.
func (s RegionSet) CountBySource() map[string]int {
	counts := make(map[string]int)
	for _, d := range s.items {
		counts[d.Source]++
	}
	return counts
}

package raster

import (
	"image"
	"math"
)

// neighbours in clockwise order on screen (y grows downward), starting east.
var neighbours = [8]image.Point{
	{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1},
}

// ExternalContours implements Ops. Any non-zero pixel is foreground.
func (Native) ExternalContours(bin *image.Gray) ([]Contour, error) {
	if err := checkImage(bin); err != nil {
		return nil, err
	}
	pix, w, h := pixels(bin)
	fg := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < w && y < h && pix[y*w+x] != 0
	}

	outside := markOutside(pix, w, h)

	visited := make([]bool, w*h)
	var contours []Contour
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if pix[y*w+x] == 0 || visited[y*w+x] {
				continue
			}
			// First pixel of a component in raster order: its west
			// neighbour is background, which is where tracing starts.
			bounds, external := floodComponent(pix, visited, outside, x, y, w, h)
			if !external {
				continue
			}
			contours = append(contours, Contour{
				Bounds: bounds,
				Area:   polygonArea(traceBoundary(fg, image.Pt(x, y))),
			})
		}
	}
	return contours, nil
}

// markOutside flags background pixels 4-connected to the image border.
func markOutside(pix []uint8, w, h int) []bool {
	outside := make([]bool, w*h)
	stack := make([]int, 0, 2*(w+h))
	push := func(x, y int) {
		i := y*w + x
		if pix[i] == 0 && !outside[i] {
			outside[i] = true
			stack = append(stack, i)
		}
	}
	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		if x > 0 {
			push(x-1, y)
		}
		if x < w-1 {
			push(x+1, y)
		}
		if y > 0 {
			push(x, y-1)
		}
		if y < h-1 {
			push(x, y+1)
		}
	}
	return outside
}

// floodComponent visits the 8-connected component containing (x, y) and
// reports its bounds and whether it borders the outside background.
func floodComponent(pix []uint8, visited, outside []bool, x, y, w, h int) (image.Rectangle, bool) {
	bounds := image.Rect(x, y, x+1, y+1)
	external := false
	stack := []image.Point{{X: x, Y: y}}
	visited[y*w+x] = true

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		bounds = bounds.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))

		if p.X == 0 || p.Y == 0 || p.X == w-1 || p.Y == h-1 {
			external = true
		}
		for _, d := range neighbours {
			nx, ny := p.X+d.X, p.Y+d.Y
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			i := ny*w + nx
			if pix[i] == 0 {
				if (d.X == 0 || d.Y == 0) && outside[i] {
					external = true
				}
				continue
			}
			if !visited[i] {
				visited[i] = true
				stack = append(stack, image.Point{X: nx, Y: ny})
			}
		}
	}
	return bounds, external
}

// traceBoundary follows the outer border clockwise from start, whose west
// neighbour must be background, and returns the border pixels in order.
func traceBoundary(fg func(x, y int) bool, start image.Point) []image.Point {
	at := func(p image.Point, dir int) image.Point {
		return p.Add(neighbours[(dir%8+8)%8])
	}

	// Clockwise from west for the first neighbour.
	first := -1
	for i := 0; i < 8; i++ {
		if q := at(start, 4+i); fg(q.X, q.Y) {
			first = (4 + i) % 8
			break
		}
	}
	if first < 0 {
		return []image.Point{start}
	}

	p1 := at(start, first)
	prev, cur := p1, start
	points := []image.Point{start}
	for {
		// Counterclockwise around cur, starting after prev.
		back := direction(cur, prev)
		var next image.Point
		for i := 1; i <= 8; i++ {
			if q := at(cur, back-i); fg(q.X, q.Y) {
				next = q
				break
			}
		}
		if next == start && cur == p1 {
			break
		}
		prev, cur = cur, next
		points = append(points, cur)
	}
	return points
}

// direction returns the neighbour index leading from a to b.
func direction(a, b image.Point) int {
	d := b.Sub(a)
	for i, n := range neighbours {
		if n == d {
			return i
		}
	}
	return 0
}

// polygonArea is the shoelace area of a closed polygon.
func polygonArea(points []image.Point) float64 {
	if len(points) < 3 {
		return 0
	}
	var sum int
	for i, p := range points {
		q := points[(i+1)%len(points)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return math.Abs(float64(sum)) / 2
}

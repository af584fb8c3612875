package raster

import (
	"image"
	"math"
)

// Stats summarizes the pixel values inside a region.
type Stats struct {
	Count  int
	Mean   float64
	StdDev float64 // population standard deviation
}

// RegionStats computes Stats over the part of src inside r.
func RegionStats(src *image.Gray, r image.Rectangle) Stats {
	r = r.Intersect(src.Bounds())
	if r.Empty() {
		return Stats{}
	}
	var sum, sq float64
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := src.Pix[src.PixOffset(r.Min.X, y):src.PixOffset(r.Max.X, y)]
		for _, v := range row {
			f := float64(v)
			sum += f
			sq += f * f
		}
	}
	n := float64(r.Dx() * r.Dy())
	mean := sum / n
	variance := sq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return Stats{Count: r.Dx() * r.Dy(), Mean: mean, StdDev: math.Sqrt(variance)}
}

// CountIf counts the pixels of src inside r for which keep returns true.
func CountIf(src *image.Gray, r image.Rectangle, keep func(v uint8) bool) int {
	r = r.Intersect(src.Bounds())
	count := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := src.Pix[src.PixOffset(r.Min.X, y):src.PixOffset(r.Max.X, y)]
		for _, v := range row {
			if keep(v) {
				count++
			}
		}
	}
	return count
}

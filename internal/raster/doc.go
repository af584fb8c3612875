// Package raster provides the pixel operations the region detectors are built on.
//
// Every operation works on 8-bit single-channel images (*image.Gray) and
// returns a new image; inputs are never modified. The operations are grouped
// behind the Ops interface so the detectors can run against the pure Go
// implementation (Native), the OpenCV binding (OpenCV, built with the "gocv"
// tag) or a fake in tests.
//
// # Conventions
//
// Binary images use 0 for background and 255 for foreground. Kernels are
// rectangular and anchored at (Width/2, Height/2), so even sized kernels
// lean toward the top-left. Pixels outside the image replicate the nearest
// edge pixel for filters and are ignored for morphology.
//
// # Contours
//
// ExternalContours reports the outer boundary of every 8-connected foreground
// component that is not enclosed by another component. Area is the polygon
// area of the traced boundary through pixel centres, so a filled w×h
// rectangle has area (w-1)*(h-1).
package raster

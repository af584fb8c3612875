//go:build !gocv

package raster

// Default returns the pixel operations compiled into this binary.
func Default() Ops {
	return Native{}
}

// Backend names the implementation returned by Default.
const Backend = "native"

// Package imaging handles the image files around the detection pipeline:
// decoding inputs, cutting regions out of them and drawing debug overlays.
//
// # Coordinate System
//
// All rectangles passed to this package are relative to the image's
// top-left corner, whatever image.Image.Bounds reports:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - Min is inclusive, Max is exclusive
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. The other functions are stateless
// and never modify their input images.
//
// # Error Handling
//
// Failures are reported with typed errors so callers can decide what is
// fatal:
//   - *ImageLoadError: the input file cannot be opened or decoded
//   - *CropOutOfBoundsError: nothing of a crop rectangle lies in the image
//   - *EncodingError: a crop cannot be encoded as PNG
package imaging

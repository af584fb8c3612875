// Package extractor runs the number region pipeline on whole images.
//
// # Pipeline
//
// One run of Extract goes through these stages:
//   - Preprocess: the image is converted to grayscale and turned into the
//     binary and enhanced variants the detectors read
//   - Detect: the OCR model, contour, template and handwritten detectors
//     each propose detections, pooled in that order
//   - Merge: the pool is merged at FirstPassThreshold (0.2 by default)
//   - Fallback: only when that merge is empty, the text-like and grid
//     detectors run and the whole pool is merged again at
//     FallbackThreshold (0.1 by default)
//   - Crop: every canonical region is cut from the original image and
//     encoded as PNG
//
// # Results and Failures
//
// A Result carries the cropped regions in ranking order, the raw and
// canonical sets, per-stage counts and whether the fallback ran. A failing
// preprocessing variant, OCR call or crop does not end the run; it is
// logged and kept in Result.Failures. Extract itself only fails on an image
// with no pixels or a done context, and ExtractFile also fails when the
// file cannot be decoded.
//
// # Concurrency
//
// An Extractor is safe for concurrent use. ExtractAll fans a list of files
// out over a bounded errgroup and hands each outcome to a callback.
//
// # Logging
//
// Stage counts, recovered failures and timings are logged through the
// logrus logger set in Options.
package extractor

// Package detection finds regions of an image that probably contain numbers.
//
// Several independent detectors each propose candidate regions
// (Detection values). Their output is pooled and collapsed by Merge into a
// canonical set of non-overlapping regions.
//
// # Detectors
//
// The primary detectors always run:
//
//   - ModelDetector: a text recognizer over every enhanced variant from the
//     Preprocessor, keeping words that look numeric
//   - ContourDetector: mid-sized blobs under three binarizations
//   - HandwrittenDetector: pen strokes after ruled lines are removed
//   - TemplateDetector: correlation against synthetic digit-block templates
//
// The fallback detectors run only when merging the primary output yields
// nothing:
//
//   - TextLikeDetector: wide clusters of dilated edges
//   - GridDetector: high-contrast cells of a fixed sampling grid
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - A Box covers X..X+Width-1 and Y..Y+Height-1
//
// # Confidence Scores
//
// Confidences are on a 0-100 scale. Recognizer words keep the confidence the
// recognizer reported; the other detectors use fixed values:
//
//   - Contour: 50
//   - Handwritten: 40
//   - Template: 30
//   - Text-like fallback: 25
//   - Grid fallback: 20
//
// # Failures
//
// Detectors never fail as a whole. A failed pixel operation or recognizer
// call is returned as a *VariantProcessingError next to the detections that
// were found, and the caller decides how to report it.
//
// # Performance Considerations
//
// The model detector makes one recognizer call per (config, variant) pair,
// 78 calls with the defaults, and dominates run time. The template
// detector can propose one region per pixel on textured images; Merge uses
// a spatial index so large pools stay tractable.
package detection

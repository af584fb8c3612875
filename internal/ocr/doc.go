// Package ocr recognizes words with the Tesseract engine via gosseract/v2.
//
// Tesseract implements detection.Recognizer: it reports word-level bounding
// boxes with Tesseract's confidence for one page segmentation mode and
// optional character whitelist per call.
//
// # Prerequisites
//
// Tesseract must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr libtesseract-dev
//   - macOS: brew install tesseract
//
// Language data files are required for each language:
//   - Ubuntu/Debian: apt-get install tesseract-ocr-eng (for English)
//   - Other languages: tesseract-ocr-<lang> packages
//
// Set TESSDATA_PREFIX, or Tesseract.TessdataPrefix, when the data lives
// outside the compiled-in path.
//
// # Performance Considerations
//
// One extraction makes 78 recognizer calls with the default configs, and
// each call initializes a fresh engine. OCR dominates extraction time; the
// extractor bounds each call with a timeout.
package ocr

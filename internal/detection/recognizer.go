package detection

import (
	"context"
	"image"
	"strings"
	"unicode"
)

// Word is one word-level result of a text recognizer.
type Word struct {
	Text       string
	Confidence float64 // 0-100
	Bounds     image.Rectangle
}

// OCRConfig selects how the recognizer segments and filters a page.
type OCRConfig struct {
	// Name is a short identifier used in detection sources.
	Name string

	// PageSegMode is the Tesseract page segmentation mode.
	PageSegMode int

	// Whitelist restricts the recognized characters when non-empty.
	Whitelist string
}

// Recognizer locates words in a grayscale image. Implementations must honour
// ctx cancellation and be safe for concurrent use.
type Recognizer interface {
	Recognize(ctx context.Context, img *image.Gray, cfg OCRConfig) ([]Word, error)
}

const (
	digits         = "0123456789"
	digitsAndPunct = "0123456789.,-+()[]{}/"
	lookalikes     = "lI|!oO()[]{}"
	mathSymbols    = "+-=×÷*/.,"
)

// DefaultOCRConfigs returns the six recognizer configurations run on every
// variant.
func DefaultOCRConfigs() []OCRConfig {
	return []OCRConfig{
		{Name: "psm6_punct", PageSegMode: 6, Whitelist: digitsAndPunct},
		{Name: "psm7_digits", PageSegMode: 7, Whitelist: digits},
		{Name: "psm8_digits", PageSegMode: 8, Whitelist: digits},
		{Name: "psm13_raw", PageSegMode: 13},
		{Name: "psm6_block", PageSegMode: 6},
		{Name: "psm11_sparse", PageSegMode: 11},
	}
}

// LooksNumeric reports whether text has a digit, a character commonly
// misread for a digit, or an arithmetic symbol.
func LooksNumeric(text string) bool {
	for _, r := range text {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return strings.ContainsAny(text, lookalikes) || strings.ContainsAny(text, mathSymbols)
}

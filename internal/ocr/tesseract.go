package ocr

import (
	"context"
	"image"

	"github.com/otiai10/gosseract/v2"
	"github.com/pkg/errors"

	"github.com/ironsheep/number-regions/internal/detection"
	"github.com/ironsheep/number-regions/internal/imaging"
)

// DefaultLanguage is the Tesseract language used when none is configured.
const DefaultLanguage = "eng"

// Tesseract recognizes words with the Tesseract engine through gosseract.
//
// Every Recognize call creates and closes its own client, so a single
// Tesseract value can serve concurrent extractions.
type Tesseract struct {
	// Language is the Tesseract language code, such as "eng" or "deu".
	// Empty means DefaultLanguage.
	Language string

	// TessdataPrefix overrides the directory holding *.traineddata files.
	// Empty leaves the engine default (the TESSDATA_PREFIX variable or the
	// compiled-in path).
	TessdataPrefix string
}

// NewTesseract returns a recognizer for language.
func NewTesseract(language, tessdataPrefix string) *Tesseract {
	return &Tesseract{Language: language, TessdataPrefix: tessdataPrefix}
}

// Recognize implements detection.Recognizer. It returns word-level boxes in
// img's coordinates with Tesseract's 0-100 confidence.
//
// Tesseract cannot be interrupted once started; ctx is checked before the
// engine runs and a caller that needs a deadline must stop waiting on its
// own, as detection.ModelDetector does.
func (t *Tesseract) Recognize(ctx context.Context, img *image.Gray, cfg detection.OCRConfig) ([]detection.Word, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := t.configure(client, cfg); err != nil {
		return nil, err
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return nil, errors.Wrap(err, "failed to set image")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get word boxes")
	}

	offset := img.Bounds().Min
	words := make([]detection.Word, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		words = append(words, detection.Word{
			Text:       box.Word,
			Confidence: box.Confidence,
			Bounds:     box.Box.Add(offset),
		})
	}
	return words, nil
}

func (t *Tesseract) configure(client *gosseract.Client, cfg detection.OCRConfig) error {
	if t.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.TessdataPrefix); err != nil {
			return errors.Wrap(err, "failed to set tessdata path")
		}
	}
	lang := t.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	if err := client.SetLanguage(lang); err != nil {
		return errors.Wrapf(err, "failed to set language %q", lang)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(cfg.PageSegMode)); err != nil {
		return errors.Wrapf(err, "failed to set page segmentation mode %d", cfg.PageSegMode)
	}
	if cfg.Whitelist != "" {
		if err := client.SetWhitelist(cfg.Whitelist); err != nil {
			return errors.Wrap(err, "failed to set whitelist")
		}
	}
	return nil
}

// Info describes the OCR backend.
type Info struct {
	Available      bool   `json:"available"`
	Version        string `json:"version,omitempty"`
	Backend        string `json:"backend"`
	Language       string `json:"language"`
	TessdataPrefix string `json:"tessdata_prefix,omitempty"`
}

// Info reports the linked Tesseract version and the configured language.
func (t *Tesseract) Info() Info {
	client := gosseract.NewClient()
	defer client.Close()

	lang := t.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	version := client.Version()
	return Info{
		Available:      version != "",
		Version:        version,
		Backend:        "gosseract",
		Language:       lang,
		TessdataPrefix: t.TessdataPrefix,
	}
}

package detection

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	modelMinConfidence = 10
	modelPadding       = 15
	modelMinSide       = 10
)

// ModelDetector runs a text recognizer over every (config, variant) pair and
// keeps the words that look numeric.
type ModelDetector struct {
	Recognizer Recognizer
	Configs    []OCRConfig

	// Timeout bounds each recognizer call. Zero means no bound.
	Timeout time.Duration
}

// NewModelDetector returns a detector running the default configs.
func NewModelDetector(rec Recognizer, timeout time.Duration) *ModelDetector {
	return &ModelDetector{Recognizer: rec, Configs: DefaultOCRConfigs(), Timeout: timeout}
}

func (d *ModelDetector) Name() string { return "model" }

// Detect implements Detector. Word boxes are padded by 15px and clipped to
// the image; boxes 10px or smaller on either side are dropped. The source of
// each detection is "<variant>_<config>".
func (d *ModelDetector) Detect(ctx context.Context, in *Input) (RegionSet, []error) {
	w, h := in.Size()
	var (
		found    []Detection
		failures []error
	)
	for _, cfg := range d.Configs {
		for _, v := range in.Variants {
			if err := ctx.Err(); err != nil {
				return NewRegionSet(found...), append(failures, err)
			}

			words, err := d.recognize(ctx, v, cfg)
			if err != nil {
				failures = append(failures, &VariantProcessingError{
					Stage:   d.Name(),
					Variant: v.Name,
					Config:  cfg.Name,
					Err:     err,
				})
				continue
			}

			for _, word := range words {
				text := strings.TrimSpace(word.Text)
				if text == "" || word.Confidence < modelMinConfidence || !LooksNumeric(text) {
					continue
				}
				box := BoxFromRect(word.Bounds).Pad(modelPadding, w, h)
				if box.Width <= modelMinSide || box.Height <= modelMinSide {
					continue
				}
				found = append(found, Detection{
					Box:        box,
					Confidence: word.Confidence,
					Text:       text,
					Source:     v.Name + "_" + cfg.Name,
				})
			}
		}
	}
	return NewRegionSet(found...), failures
}

// recognize runs one recognizer call under the per-call timeout. The call
// is abandoned, not interrupted, when the deadline passes.
func (d *ModelDetector) recognize(ctx context.Context, v Variant, cfg OCRConfig) ([]Word, error) {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	type result struct {
		words []Word
		err   error
	}
	done := make(chan result, 1)
	go func() {
		words, err := d.Recognizer.Recognize(ctx, v.Image, cfg)
		done <- result{words, err}
	}()

	select {
	case r := <-done:
		return r.words, r.err
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "recognizer call")
	}
}

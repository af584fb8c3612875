package detection

import (
	"fmt"
)

// VariantProcessingError reports a failure inside one detector step: a pixel
// operation on a variant, or one OCR call on a (variant, config) pair. The
// step is skipped and the run continues.
type VariantProcessingError struct {
	Stage   string // detector or preprocessing stage
	Variant string // variant name, empty when the step ran on the grayscale image
	Config  string // OCR config name, model detector only
	Err     error
}

func (e *VariantProcessingError) Error() string {
	msg := e.Stage
	if e.Variant != "" {
		msg += " variant " + e.Variant
	}
	if e.Config != "" {
		msg += " config " + e.Config
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *VariantProcessingError) Unwrap() error {
	return e.Err
}

func stepError(stage, variant string, err error) error {
	return &VariantProcessingError{Stage: stage, Variant: variant, Err: err}
}

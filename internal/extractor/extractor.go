package extractor

import (
	"context"
	"image"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/number-regions/internal/detection"
	"github.com/ironsheep/number-regions/internal/imaging"
	"github.com/ironsheep/number-regions/internal/raster"
)

// Options tunes an Extractor.
type Options struct {
	// FirstPassThreshold is the overlap ratio used to merge the primary
	// detections.
	FirstPassThreshold float64

	// FallbackThreshold is the overlap ratio used when the first pass found
	// nothing and the fallback detections are merged with the raw pool.
	FallbackThreshold float64

	// OCRTimeout bounds every recognizer call. Zero disables the bound.
	OCRTimeout time.Duration

	// OCRConfigs are the recognizer configurations run on every variant.
	// Nil means detection.DefaultOCRConfigs.
	OCRConfigs []detection.OCRConfig

	// Logger receives stage counts and recovered failures. Nil means the
	// logrus standard logger.
	Logger logrus.FieldLogger
}

// DefaultOptions returns the thresholds the pipeline is tuned for.
func DefaultOptions() Options {
	return Options{
		FirstPassThreshold: 0.2,
		FallbackThreshold:  0.1,
		OCRTimeout:         30 * time.Second,
	}
}

// Extractor runs the full detection pipeline on one image at a time.
//
// An Extractor holds no per-run state and is safe for concurrent use as
// long as its Recognizer and raster.Ops are.
type Extractor struct {
	preprocessor *detection.Preprocessor
	primary      []detection.Detector
	fallback     []detection.Detector
	configs      int
	opts         Options
	log          logrus.FieldLogger
}

// New builds an extractor recognizing text with rec and processing pixels
// with ops.
func New(rec detection.Recognizer, ops raster.Ops, opts Options) *Extractor {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	model := detection.NewModelDetector(rec, opts.OCRTimeout)
	if opts.OCRConfigs != nil {
		model.Configs = opts.OCRConfigs
	}

	return &Extractor{
		preprocessor: detection.NewPreprocessor(ops),
		primary: []detection.Detector{
			model,
			&detection.ContourDetector{Ops: ops},
			&detection.TemplateDetector{Ops: ops},
			&detection.HandwrittenDetector{Ops: ops},
		},
		fallback: []detection.Detector{
			&detection.TextLikeDetector{Ops: ops},
			&detection.GridDetector{},
		},
		configs: len(model.Configs),
		opts:    opts,
		log:     opts.Logger,
	}
}

// ConfigCount returns the number of recognizer configurations per variant.
func (e *Extractor) ConfigCount() int {
	return e.configs
}

// OutputRegion is one cropped candidate region.
type OutputRegion struct {
	// Index is the region's position in the canonical set. Regions that
	// could not be cropped leave a gap.
	Index      int           `json:"index"`
	Box        detection.Box `json:"bbox"`
	Confidence float64       `json:"confidence"`
	Text       string        `json:"text"`
	Source     string        `json:"source"`

	Image *image.NRGBA `json:"-"`
	PNG   []byte       `json:"-"`
}

// Result is the outcome of one extraction run.
type Result struct {
	Width  int
	Height int

	// Regions are the cropped canonical regions in ranking order.
	Regions []OutputRegion

	// Raw is every detection proposed during the run, fallback included.
	Raw detection.RegionSet

	// Canonical is the merged set the regions were cropped from.
	Canonical detection.RegionSet

	// FallbackUsed reports whether the first merge was empty.
	FallbackUsed bool

	// VariantCount is the number of preprocessing variants produced.
	VariantCount int

	// StageCounts maps each detector name to its detection count, plus
	// "raw", "first_pass" and "canonical".
	StageCounts map[string]int

	// Failures are the recovered step failures of the run.
	Failures []error
}

// ExtractFile decodes path and runs Extract on it. A decode failure is
// returned as *imaging.ImageLoadError.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (*Result, error) {
	img, err := imaging.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return e.extract(ctx, img, e.log.WithField("image", path))
}

// Extract runs the pipeline on img: preprocessing, the primary detectors,
// a merge at FirstPassThreshold and, when that merge is empty, the fallback
// detectors and a merge of everything at FallbackThreshold. Every canonical
// region is then cropped from img.
//
// Step failures are logged and returned in Result.Failures. Extract only
// fails when img has no pixels or ctx is done.
func (e *Extractor) Extract(ctx context.Context, img image.Image) (*Result, error) {
	return e.extract(ctx, img, e.log)
}

func (e *Extractor) extract(ctx context.Context, img image.Image, log logrus.FieldLogger) (*Result, error) {
	if img.Bounds().Empty() {
		return nil, errors.Wrap(raster.ErrEmptyImage, "extract")
	}
	start := time.Now()

	gray := raster.Grayscale(img)
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	res := &Result{Width: w, Height: h, StageCounts: make(map[string]int)}

	variants, failures := e.preprocessor.Variants(gray)
	res.VariantCount = len(variants)
	res.Failures = append(res.Failures, failures...)
	in := &detection.Input{Gray: gray, Variants: variants}

	raw, err := e.runDetectors(ctx, log, e.primary, in, res)
	if err != nil {
		return nil, err
	}
	canonical := detection.Merge(raw, e.opts.FirstPassThreshold)
	res.StageCounts["first_pass"] = canonical.Len()

	if canonical.Len() == 0 {
		log.Info("no regions after first merge, running fallback detectors")
		res.FallbackUsed = true
		extra, err := e.runDetectors(ctx, log, e.fallback, in, res)
		if err != nil {
			return nil, err
		}
		raw = raw.Concat(extra)
		canonical = detection.Merge(raw, e.opts.FallbackThreshold)
	}
	res.Raw = raw
	res.Canonical = canonical
	res.StageCounts["raw"] = raw.Len()
	res.StageCounts["canonical"] = canonical.Len()

	res.Regions = e.crop(img, canonical, res)

	for _, f := range res.Failures {
		log.WithError(f).Warn("step failed")
	}
	log.WithFields(logrus.Fields{
		"width":     w,
		"height":    h,
		"variants":  res.VariantCount,
		"raw":       raw.Len(),
		"canonical": canonical.Len(),
		"regions":   len(res.Regions),
		"fallback":  res.FallbackUsed,
		"failures":  len(res.Failures),
		"elapsed":   time.Since(start).String(),
	}).Info("extraction finished")
	return res, nil
}

// runDetectors runs detectors in order and pools their output. It stops
// with ctx's error once ctx is done.
func (e *Extractor) runDetectors(ctx context.Context, log logrus.FieldLogger, detectors []detection.Detector, in *detection.Input, res *Result) (detection.RegionSet, error) {
	var pool detection.RegionSet
	for _, d := range detectors {
		found, failures := d.Detect(ctx, in)
		if err := ctx.Err(); err != nil {
			return pool, err
		}
		res.Failures = append(res.Failures, failures...)
		res.StageCounts[d.Name()] = found.Len()
		log.WithFields(logrus.Fields{
			"detector":   d.Name(),
			"detections": found.Len(),
			"failures":   len(failures),
		}).Debug("detector finished")
		pool = pool.Concat(found)
	}
	return pool, nil
}

// crop cuts every canonical region out of img. Regions that cannot be
// cropped or encoded are recorded as failures and skipped.
func (e *Extractor) crop(img image.Image, canonical detection.RegionSet, res *Result) []OutputRegion {
	regions := make([]OutputRegion, 0, canonical.Len())
	for i, d := range canonical.Items() {
		cropped, rect, err := imaging.CropRegion(img, d.Rect())
		if err != nil {
			res.Failures = append(res.Failures, errors.Wrapf(err, "region %d", i))
			continue
		}
		data, err := imaging.EncodePNG(cropped)
		if err != nil {
			res.Failures = append(res.Failures, errors.Wrapf(err, "region %d", i))
			continue
		}
		regions = append(regions, OutputRegion{
			Index:      i,
			Box:        detection.BoxFromRect(rect),
			Confidence: d.Confidence,
			Text:       d.Text,
			Source:     d.Source,
			Image:      cropped,
			PNG:        data,
		})
	}
	return regions
}

package detection

import (
	"context"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/number-regions/internal/raster"
)

// createTestImage creates a w×h gray image filled with bg.
func createTestImage(w, h int, bg uint8) *image.Gray {
	return raster.Fill(w, h, bg)
}

func fillRect(img *image.Gray, r image.Rectangle, v uint8) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
}

func input(gray *image.Gray, variants ...Variant) *Input {
	if len(variants) == 0 {
		variants = []Variant{{Name: "original", Image: gray}}
	}
	return &Input{Gray: gray, Variants: variants}
}

// fakeRecognizer returns canned words and records every call.
type fakeRecognizer struct {
	mu    sync.Mutex
	calls []string
	words func(cfg OCRConfig) ([]Word, error)
}

func (f *fakeRecognizer) Recognize(ctx context.Context, img *image.Gray, cfg OCRConfig) ([]Word, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cfg.Name)
	f.mu.Unlock()
	if f.words == nil {
		return nil, nil
	}
	return f.words(cfg)
}

func TestModelDetectorRunsEveryPair(t *testing.T) {
	gray := createTestImage(200, 100, 255)
	variants := []Variant{{"original", gray}, {"otsu", gray}, {"clahe", gray}}
	rec := &fakeRecognizer{}

	d := NewModelDetector(rec, time.Second)
	set, failures := d.Detect(context.Background(), input(gray, variants...))
	assert.Empty(t, failures)
	assert.Equal(t, 0, set.Len())
	assert.Len(t, rec.calls, len(DefaultOCRConfigs())*len(variants))
}

func TestModelDetectorFiltersWords(t *testing.T) {
	gray := createTestImage(200, 100, 255)
	glyph := image.Rect(80, 40, 100, 55)
	rec := &fakeRecognizer{words: func(cfg OCRConfig) ([]Word, error) {
		return []Word{
			{Text: " 42 ", Confidence: 91, Bounds: glyph},
			{Text: "", Confidence: 95, Bounds: glyph},
			{Text: "abc", Confidence: 95, Bounds: glyph},
			{Text: "7", Confidence: 9.5, Bounds: glyph},
			{Text: "l", Confidence: 10, Bounds: image.Rect(0, 0, 4, 4)},
		}, nil
	}}

	d := &ModelDetector{Recognizer: rec, Configs: DefaultOCRConfigs()[:1]}
	set, failures := d.Detect(context.Background(), input(gray))
	require.Empty(t, failures)
	require.Equal(t, 2, set.Len())

	first := set.At(0)
	assert.Equal(t, Box{X: 65, Y: 25, Width: 50, Height: 45}, first.Box)
	assert.Equal(t, "42", first.Text)
	assert.Equal(t, 91.0, first.Confidence)
	assert.Equal(t, "original_psm6_punct", first.Source)

	corner := set.At(1)
	assert.Equal(t, Box{X: 0, Y: 0, Width: 19, Height: 19}, corner.Box)
}

func TestModelDetectorDropsTinyBoxes(t *testing.T) {
	gray := createTestImage(10, 10, 255)
	rec := &fakeRecognizer{words: func(cfg OCRConfig) ([]Word, error) {
		return []Word{{Text: "1", Confidence: 80, Bounds: image.Rect(4, 4, 6, 6)}}, nil
	}}

	set, _ := NewModelDetector(rec, 0).Detect(context.Background(), input(gray))
	assert.Equal(t, 0, set.Len())
}

func TestModelDetectorRecordsPairFailures(t *testing.T) {
	gray := createTestImage(200, 100, 255)
	boom := errors.New("tesseract exploded")
	rec := &fakeRecognizer{words: func(cfg OCRConfig) ([]Word, error) {
		if cfg.Name == "psm7_digits" {
			return nil, boom
		}
		return []Word{{Text: "5", Confidence: 50, Bounds: image.Rect(10, 10, 30, 30)}}, nil
	}}

	set, failures := NewModelDetector(rec, time.Second).Detect(context.Background(), input(gray))
	assert.Equal(t, 5, set.Len())
	require.Len(t, failures, 1)

	var vpe *VariantProcessingError
	require.True(t, errors.As(failures[0], &vpe))
	assert.Equal(t, "psm7_digits", vpe.Config)
	assert.Equal(t, "original", vpe.Variant)
	assert.ErrorIs(t, failures[0], boom)
}

func TestModelDetectorTimeout(t *testing.T) {
	gray := createTestImage(50, 50, 255)
	rec := &fakeRecognizer{words: func(cfg OCRConfig) ([]Word, error) {
		time.Sleep(200 * time.Millisecond)
		return nil, nil
	}}

	d := &ModelDetector{Recognizer: rec, Configs: DefaultOCRConfigs()[:2], Timeout: 10 * time.Millisecond}
	_, failures := d.Detect(context.Background(), input(gray))
	require.Len(t, failures, 2)
	for _, err := range failures {
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}
}

func TestModelDetectorStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := &fakeRecognizer{}

	_, failures := NewModelDetector(rec, time.Second).Detect(ctx, input(createTestImage(50, 50, 255)))
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0], context.Canceled)
	assert.Empty(t, rec.calls)
}

func TestContourDetector(t *testing.T) {
	gray := createTestImage(200, 200, 255)
	fillRect(gray, image.Rect(20, 20, 50, 40), 0)
	fillRect(gray, image.Rect(100, 120, 130, 140), 0)
	fillRect(gray, image.Rect(160, 20, 165, 25), 0) // too small

	set, failures := (&ContourDetector{Ops: raster.Native{}}).Detect(context.Background(), input(gray))
	require.Empty(t, failures)
	require.Equal(t, 2, set.Len())
	assert.Equal(t, Box{X: 15, Y: 15, Width: 40, Height: 30}, set.At(0).Box)
	assert.Equal(t, Box{X: 95, Y: 115, Width: 40, Height: 30}, set.At(1).Box)
	for _, d := range set.Items() {
		assert.Equal(t, 50.0, d.Confidence)
		assert.Equal(t, SourceContour, d.Source)
		assert.Equal(t, TextContour, d.Text)
	}
}

func TestHandwrittenDetectorIgnoresRuledLines(t *testing.T) {
	// Light strokes on a dark board with one ruled line.
	gray := createTestImage(200, 120, 0)
	fillRect(gray, image.Rect(0, 10, 200, 12), 255)
	stroke := image.Rect(50, 50, 70, 80)
	fillRect(gray, stroke, 200)
	fillRect(gray, stroke.Inset(3), 0)

	set, failures := (&HandwrittenDetector{Ops: raster.Native{}}).Detect(context.Background(), input(gray))
	require.Empty(t, failures)
	require.Equal(t, 1, set.Len())

	got := set.At(0)
	assert.True(t, stroke.In(got.Rect()), "box %v should cover the stroke", got.Box)
	assert.False(t, got.Rect().Overlaps(image.Rect(0, 10, 200, 12)), "ruled line should not be detected")
	assert.Equal(t, 40.0, got.Confidence)
	assert.Equal(t, SourceHandwritten, got.Source)
}

func TestLooksHandwrittenAspectBounds(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		want bool
	}{
		{"wide limit", 120, 15, true},
		{"too wide", 121, 15, false},
		{"tall limit", 15, 75, true},
		{"too tall", 15, 76, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clean := createTestImage(200, 150, 255)
			bounds := image.Rect(10, 10, 10+tt.w, 10+tt.h)
			fillRect(clean, image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Min.X+tt.w/2, bounds.Max.Y), 0)

			got := looksHandwritten(clean, raster.Contour{Bounds: bounds, Area: 1000})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTemplateDetector(t *testing.T) {
	t.Run("matches a digit block", func(t *testing.T) {
		gray := createTestImage(120, 80, 255)
		fillRect(gray, image.Rect(52, 32, 78, 48), 0)

		set, failures := (&TemplateDetector{Ops: raster.Native{}}).Detect(context.Background(), input(gray))
		require.Empty(t, failures)
		assert.Contains(t, set.Items(), Detection{
			Box:        Box{X: 40, Y: 20, Width: 50, Height: 40},
			Confidence: 30,
			Text:       TextTemplate,
			Source:     SourceTemplate,
		})
	})

	t.Run("flat image", func(t *testing.T) {
		set, failures := (&TemplateDetector{Ops: raster.Native{}}).Detect(context.Background(), input(createTestImage(120, 80, 255)))
		assert.Empty(t, failures)
		assert.Equal(t, 0, set.Len())
	})

	t.Run("image smaller than templates", func(t *testing.T) {
		set, failures := (&TemplateDetector{Ops: raster.Native{}}).Detect(context.Background(), input(createTestImage(20, 20, 255)))
		assert.Equal(t, 0, set.Len())
		require.Len(t, failures, len(TemplateSizes))
		assert.ErrorIs(t, failures[0], raster.ErrTemplateTooLarge)
	})
}

func TestBlockTemplate(t *testing.T) {
	tmpl := BlockTemplate(30, 20)
	assert.Equal(t, image.Rect(0, 0, 30, 20), tmpl.Bounds())
	assert.Equal(t, uint8(255), tmpl.GrayAt(1, 1).Y)
	assert.Equal(t, uint8(0), tmpl.GrayAt(2, 2).Y)
	assert.Equal(t, uint8(0), tmpl.GrayAt(27, 17).Y)
	assert.Equal(t, uint8(255), tmpl.GrayAt(28, 18).Y)
}

func TestTextLikeDetector(t *testing.T) {
	gray := createTestImage(300, 100, 255)
	for i := 0; i < 6; i++ {
		x := 60 + i*18
		fillRect(gray, image.Rect(x, 40, x+12, 60), 0)
	}

	set, failures := (&TextLikeDetector{Ops: raster.Native{}}).Detect(context.Background(), input(gray))
	require.Empty(t, failures)
	require.GreaterOrEqual(t, set.Len(), 1)

	line := image.Rect(60, 40, 162, 60)
	covered := false
	for _, d := range set.Items() {
		assert.Equal(t, 25.0, d.Confidence)
		assert.Equal(t, SourceTextFallback, d.Source)
		if line.In(d.Rect()) {
			covered = true
		}
	}
	assert.True(t, covered)
}

func TestGridDetector(t *testing.T) {
	gray := createTestImage(300, 300, 128)
	fillRect(gray, image.Rect(10, 10, 40, 40), 0)
	fillRect(gray, image.Rect(50, 10, 80, 40), 255)

	set, failures := (&GridDetector{}).Detect(context.Background(), input(gray))
	require.Empty(t, failures)
	require.Equal(t, 1, set.Len())
	assert.Equal(t, Detection{
		Box:        Box{X: 0, Y: 0, Width: 100, Height: 100},
		Confidence: 20,
		Text:       TextGrid,
		Source:     SourceGrid,
	}, set.At(0))
}

func TestDetectorsOnBlankImage(t *testing.T) {
	gray := createTestImage(200, 200, 255)
	ops := raster.Native{}
	detectors := []Detector{
		NewModelDetector(&fakeRecognizer{}, time.Second),
		&ContourDetector{Ops: ops},
		&HandwrittenDetector{Ops: ops},
		&TemplateDetector{Ops: ops},
		&TextLikeDetector{Ops: ops},
		&GridDetector{},
	}

	for _, d := range detectors {
		t.Run(d.Name(), func(t *testing.T) {
			set, failures := d.Detect(context.Background(), input(gray))
			assert.Empty(t, failures)
			assert.Equal(t, 0, set.Len())
		})
	}
}

package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// CropOutOfBoundsError reports a crop rectangle with nothing left after
// clamping it to the image.
type CropOutOfBoundsError struct {
	Rect   image.Rectangle
	Bounds image.Rectangle
}

func (e *CropOutOfBoundsError) Error() string {
	return fmt.Sprintf("crop region %v outside image bounds %v", e.Rect, e.Bounds)
}

// EncodingError reports a crop that could not be encoded.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("failed to encode cropped image: %v", e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// ClampRect fits r into a w×h image anchored at the origin: the corner is
// clamped to [0,w-1]×[0,h-1] and the size to what remains to the right and
// below it. The result may be empty.
func ClampRect(r image.Rectangle, w, h int) image.Rectangle {
	x := clamp(r.Min.X, 0, w-1)
	y := clamp(r.Min.Y, 0, h-1)
	cw := min(r.Dx(), w-x)
	ch := min(r.Dy(), h-y)
	if cw <= 0 || ch <= 0 {
		return image.Rectangle{Min: image.Pt(x, y), Max: image.Pt(x, y)}
	}
	return image.Rect(x, y, x+cw, y+ch)
}

// CropRegion cuts r out of img. r is in coordinates relative to the image's
// top-left corner and is clamped with ClampRect first; the clamped rectangle
// is returned with the crop.
//
// Returns a *CropOutOfBoundsError when nothing of r remains.
func CropRegion(img image.Image, r image.Rectangle) (*image.NRGBA, image.Rectangle, error) {
	bounds := img.Bounds()
	clamped := ClampRect(r, bounds.Dx(), bounds.Dy())
	if clamped.Empty() {
		return nil, clamped, &CropOutOfBoundsError{Rect: r, Bounds: bounds.Sub(bounds.Min)}
	}
	return imaging.Crop(img, clamped.Add(bounds.Min)), clamped, nil
}

// EncodePNG encodes img as PNG. Failures are returned as *EncodingError.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, &EncodingError{Err: errors.WithStack(err)}
	}
	return buf.Bytes(), nil
}

// EncodedImage is a PNG ready to be returned over the tool protocol.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// NewEncodedImage wraps PNG bytes of a w×h image.
func NewEncodedImage(pngBytes []byte, w, h int) *EncodedImage {
	return &EncodedImage{
		Width:       w,
		Height:      h,
		ImageBase64: base64.StdEncoding.EncodeToString(pngBytes),
		MimeType:    "image/png",
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// ImageLoadError reports an input image that could not be read or decoded.
// It is fatal for the extraction run that needed the image.
type ImageLoadError struct {
	Path string
	Err  error
}

func (e *ImageLoadError) Error() string {
	return fmt.Sprintf("load image %s: %v", e.Path, e.Err)
}

func (e *ImageLoadError) Unwrap() error {
	return e.Err
}

// LoadFile opens and decodes the image at path without caching it.
//
// Supported formats are PNG, JPEG and GIF. Any failure is returned as an
// *ImageLoadError.
func LoadFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ImageLoadError{Path: path, Err: errors.Wrap(err, "failed to open image")}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &ImageLoadError{Path: path, Err: errors.Wrap(err, "failed to decode image")}
	}
	if b := img.Bounds(); b.Empty() {
		return nil, &ImageLoadError{Path: path, Err: errors.New("image has no pixels")}
	}
	return img, nil
}

// ImageCache provides thread-safe caching of decoded images keyed by path.
//
// The tool server keeps one cache for its lifetime so that a debug call
// following an extraction of the same file does not decode it twice.
// Cached images stay in memory until Evict or Clear is called.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewImageCache creates an empty cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
	}
}

// Load returns the cached image for path, decoding it with LoadFile on a
// miss. The exact path string is the key, so relative and absolute paths to
// the same file are cached separately.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	img, ok := c.images[path]
	c.mu.RUnlock()
	if ok {
		return img, nil
	}

	img, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()
	return img, nil
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear removes every image from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict removes one image. Unknown paths are ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// ImageInfo describes a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is "png", "jpeg", "gif" or "unknown", taken from the file
	// extension.
	Format string `json:"format"`

	// ColorModel is "gray", "gray16", "rgb", "rgb16", "paletted" or "ycbcr".
	ColorModel string `json:"color_model"`

	// FileSizeBytes is the size of the file on disk.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads path through cache and describes it.
//
// # Color Model
//
// The extractor reduces every image to 8-bit gray before detection, so the
// reported model only tells the caller how much information that conversion
// discards:
//   - *image.Gray -> "gray"
//   - *image.Gray16 -> "gray16"
//   - *image.RGBA64, *image.NRGBA64 -> "rgb16"
//   - *image.Paletted -> "paletted"
//   - *image.YCbCr -> "ycbcr"
//   - everything else -> "rgb"
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to stat file")
	}

	format := "unknown"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	}

	model := "rgb"
	switch img.(type) {
	case *image.Gray:
		model = "gray"
	case *image.Gray16:
		model = "gray16"
	case *image.RGBA64, *image.NRGBA64:
		model = "rgb16"
	case *image.Paletted:
		model = "paletted"
	case *image.YCbCr:
		model = "ycbcr"
	}

	bounds := img.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
		ColorModel:    model,
		FileSizeBytes: stat.Size(),
	}, nil
}

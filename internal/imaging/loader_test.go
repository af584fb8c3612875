package imaging

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createInMemoryImage returns a w×h image filled with c.
func createInMemoryImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// writeImage encodes img as PNG under a test-scoped directory.
func writeImage(t *testing.T, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeImage(t, "page.png", createInMemoryImage(40, 30, color.White))

	img, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 30), img.Bounds())
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.png")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0o600))

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "missing.png")},
		{"not an image", garbage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(tt.path)
			require.Error(t, err)

			var loadErr *ImageLoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, tt.path, loadErr.Path)
			assert.Contains(t, err.Error(), tt.path)
		})
	}
}

func TestImageCache_Load(t *testing.T) {
	path := writeImage(t, "cached.png", createInMemoryImage(10, 10, color.Black))
	cache := NewImageCache()

	first, err := cache.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())

	// A second load is served from memory even after the file is gone.
	require.NoError(t, os.Remove(path))
	second, err := cache.Load(path)
	require.NoError(t, err)
	assert.Same(t, first, second)

	cache.Evict(path)
	assert.Equal(t, 0, cache.Len())
	_, err = cache.Load(path)
	var loadErr *ImageLoadError
	assert.True(t, errors.As(err, &loadErr))
	assert.Equal(t, 0, cache.Len(), "failed loads are not cached")
}

func TestImageCache_Clear(t *testing.T) {
	cache := NewImageCache()
	for _, name := range []string{"a.png", "b.png"} {
		_, err := cache.Load(writeImage(t, name, createInMemoryImage(5, 5, color.White)))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, cache.Len())

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
	cache.Evict("never-loaded.png")
}

func TestImageCache_ConcurrentAccess(t *testing.T) {
	path := writeImage(t, "shared.png", createInMemoryImage(20, 20, color.White))
	cache := NewImageCache()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			img, err := cache.Load(path)
			assert.NoError(t, err)
			assert.Equal(t, 20, img.Bounds().Dx())
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, cache.Len())
}

func TestLoadImageInfo(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 64, 48))
	path := writeImage(t, "scan.PNG", gray)

	info, err := LoadImageInfo(NewImageCache(), path)
	require.NoError(t, err)

	stat, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, &ImageInfo{
		Width:         64,
		Height:        48,
		Format:        "png",
		ColorModel:    "gray",
		FileSizeBytes: stat.Size(),
	}, info)
}

func TestLoadImageInfo_ColorModel(t *testing.T) {
	info, err := LoadImageInfo(NewImageCache(), writeImage(t, "photo.png", createInMemoryImage(8, 8, color.RGBA{200, 10, 10, 255})))
	require.NoError(t, err)
	assert.Equal(t, "rgb", info.ColorModel)
}

func TestLoadImageInfo_NonExistent(t *testing.T) {
	_, err := LoadImageInfo(NewImageCache(), filepath.Join(t.TempDir(), "nope.png"))
	assert.Error(t, err)
}

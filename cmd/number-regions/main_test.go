package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/number-regions/internal/detection"
	"github.com/ironsheep/number-regions/internal/extractor"
)

func TestRegionFileName(t *testing.T) {
	tests := []struct {
		path  string
		index int
		want  string
	}{
		{"scan.png", 0, "region_scan_0.png"},
		{"/data/pages/page-12.jpeg", 7, "region_page-12_7.png"},
		{"noext", 3, "region_noext_3.png"},
		{"archive.tar.gz", 1, "region_archive.tar_1.png"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, regionFileName(tt.path, tt.index), tt.path)
	}
}

func TestFileSink_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	res := &extractor.Result{Regions: []extractor.OutputRegion{
		{Index: 0, Box: detection.Box{Width: 1, Height: 1}, PNG: []byte("zero")},
		{Index: 2, Box: detection.Box{Width: 1, Height: 1}, PNG: []byte("two")},
	}}

	require.NoError(t, fileSink{Dir: dir}.Save(context.Background(), "/in/form.png", res))

	data, err := os.ReadFile(filepath.Join(dir, "region_form_0.png"))
	require.NoError(t, err)
	assert.Equal(t, "zero", string(data))
	data, err = os.ReadFile(filepath.Join(dir, "region_form_2.png"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestFileSink_SaveUnwritable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	err := fileSink{Dir: filepath.Join(file, "sub")}.Save(context.Background(), "x.png", &extractor.Result{})
	assert.Error(t, err)
}

func TestParseTimeout(t *testing.T) {
	d, err := parseTimeout("1m30s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	_, err = parseTimeout("later")
	assert.Error(t, err)
	_, err = parseTimeout("-2s")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	// An invalid setting must not matter: version loads no configuration.
	t.Setenv("NUMBER_REGIONS_WORKERS", "none")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "number-regions "+Version)
	assert.Contains(t, out.String(), "Raster backend:")
}

func TestExtractCommand_RequiresFiles(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"extract"})

	assert.Error(t, root.Execute())
}

func TestExtractCommand_InvalidConfig(t *testing.T) {
	t.Setenv("NUMBER_REGIONS_OCR_TIMEOUT", "eventually")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"extract", "scan.png"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NUMBER_REGIONS_OCR_TIMEOUT")
}

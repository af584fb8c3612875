package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/number-regions/internal/detection"
)

// createTestImageFile writes a white PNG with an optional black block and
// returns its path.
func createTestImageFile(t *testing.T, width, height int, block image.Rectangle) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(img, block, image.NewUniform(color.Black), image.Point{}, draw.Src)

	path := filepath.Join(t.TempDir(), "handler-test.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// callTool runs a tools/call request and decodes the text content of the
// response into out.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}, out interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, _ := json.Marshal(params)

	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil || out == nil {
		return resp
	}

	result := resp.Result.(map[string]interface{})
	content := result["content"].([]map[string]interface{})
	if len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("unexpected content: %v", content)
	}
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), out); err != nil {
		t.Fatalf("failed to decode tool result: %v", err)
	}
	return resp
}

var numberBlock = image.Rect(60, 30, 100, 60)

func numberWord() detection.Word {
	return detection.Word{Text: "42", Confidence: 90, Bounds: numberBlock}
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := newTestServer()
	imgPath := createTestImageFile(t, 100, 80, image.Rectangle{})

	var info map[string]interface{}
	resp := callTool(t, s, "image_load", map[string]interface{}{"path": imgPath}, &info)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	if info["width"] != float64(100) || info["height"] != float64(80) {
		t.Errorf("dimensions: got %vx%v, want 100x80", info["width"], info["height"])
	}
	if info["format"] != "png" {
		t.Errorf("format: got %v, want png", info["format"])
	}
}

func TestHandleToolsCall_NonExistentFile(t *testing.T) {
	s := newTestServer()
	missing := filepath.Join(t.TempDir(), "missing.png")

	for _, tool := range []string{"image_load", "number_regions_extract", "number_regions_debug"} {
		t.Run(tool, func(t *testing.T) {
			resp := callTool(t, s, tool, map[string]interface{}{"path": missing}, nil)
			if resp.Error == nil {
				t.Fatal("Expected error for non-existent file")
			}
			if resp.Error.Code != -32000 {
				t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
			}
			if !strings.Contains(resp.Error.Data.(string), missing) {
				t.Errorf("error data should name the file: %v", resp.Error.Data)
			}
		})
	}
}

func TestHandleToolsCall_MissingPath(t *testing.T) {
	s := newTestServer()

	resp := callTool(t, s, "number_regions_extract", map[string]interface{}{}, nil)
	if resp.Error == nil {
		t.Fatal("Expected error for missing path")
	}
	if resp.Error.Data != "path is required" {
		t.Errorf("Error data: got %v", resp.Error.Data)
	}
}

func TestHandleToolsCall_InvalidTool(t *testing.T) {
	s := newTestServer()

	resp := callTool(t, s, "image_crop", map[string]interface{}{"path": "/x.png"}, nil)
	if resp.Error == nil {
		t.Fatal("Expected error for unknown tool")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer()

	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp.Error == nil {
		t.Fatal("Expected error for invalid params")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("Error code: got %d, want -32602", resp.Error.Code)
	}
}

func TestHandleToolsCall_ExtractBlank(t *testing.T) {
	s := newTestServer()
	imgPath := createTestImageFile(t, 120, 90, image.Rectangle{})

	var res ExtractResult
	resp := callTool(t, s, "number_regions_extract", map[string]interface{}{"path": imgPath}, &res)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	if len(res.Regions) != 0 {
		t.Errorf("blank image should have no regions, got %d", len(res.Regions))
	}
	if !res.FallbackUsed {
		t.Error("blank image should use the fallback detectors")
	}
	if res.Width != 120 || res.Height != 90 {
		t.Errorf("dimensions: got %dx%d", res.Width, res.Height)
	}
}

func TestHandleToolsCall_Extract(t *testing.T) {
	s := newTestServer(numberWord())
	imgPath := createTestImageFile(t, 200, 100, numberBlock)

	var res ExtractResult
	resp := callTool(t, s, "number_regions_extract", map[string]interface{}{"path": imgPath}, &res)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	if len(res.Regions) == 0 {
		t.Fatal("Expected at least one region")
	}
	if res.FallbackUsed {
		t.Error("fallback should not run when the first pass finds regions")
	}

	top := res.Regions[0]
	if top.Confidence != 90 {
		t.Errorf("top region confidence: got %v, want 90", top.Confidence)
	}
	if !strings.Contains(top.Text, "42") {
		t.Errorf("top region text: got %q", top.Text)
	}
	if !numberBlock.In(top.Box.Rect()) {
		t.Errorf("top region %v should cover %v", top.Box, numberBlock)
	}
	if top.Image != nil {
		t.Error("images are only returned on request")
	}
	if res.RawCount < len(res.Regions) {
		t.Errorf("raw count %d below region count %d", res.RawCount, len(res.Regions))
	}
}

func TestHandleToolsCall_ExtractIncludeImages(t *testing.T) {
	s := newTestServer(numberWord())
	imgPath := createTestImageFile(t, 200, 100, numberBlock)

	var res ExtractResult
	resp := callTool(t, s, "number_regions_extract",
		map[string]interface{}{"path": imgPath, "include_images": true}, &res)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	for _, r := range res.Regions {
		if r.Image == nil {
			t.Fatalf("region %d has no image", r.Index)
		}
		if r.Image.MimeType != "image/png" {
			t.Errorf("mime type: got %s", r.Image.MimeType)
		}
		data, err := base64.StdEncoding.DecodeString(r.Image.ImageBase64)
		if err != nil {
			t.Fatalf("bad base64: %v", err)
		}
		decoded, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("bad png: %v", err)
		}
		if decoded.Bounds().Dx() != r.Box.Width || decoded.Bounds().Dy() != r.Box.Height {
			t.Errorf("region %d image %v does not match box %v", r.Index, decoded.Bounds(), r.Box)
		}
	}
}

func TestHandleToolsCall_Debug(t *testing.T) {
	s := newTestServer(numberWord())
	imgPath := createTestImageFile(t, 200, 100, numberBlock)

	var res DebugResult
	resp := callTool(t, s, "number_regions_debug", map[string]interface{}{"path": imgPath}, &res)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	if res.PreprocessingVariants != len(detection.VariantNames) {
		t.Errorf("variants: got %d, want %d", res.PreprocessingVariants, len(detection.VariantNames))
	}
	if res.OCRConfigs != 6 {
		t.Errorf("ocr configs: got %d, want 6", res.OCRConfigs)
	}
	if got := res.StageCounts["model"]; got != res.OCRConfigs*res.PreprocessingVariants {
		t.Errorf("model detections: got %d", got)
	}
	if res.StageCounts["canonical"] == 0 {
		t.Error("canonical count should be positive")
	}
	if res.Overlay == nil {
		t.Fatal("overlay missing")
	}

	data, err := base64.StdEncoding.DecodeString(res.Overlay.ImageBase64)
	if err != nil {
		t.Fatalf("bad base64: %v", err)
	}
	overlay, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("bad png: %v", err)
	}
	if overlay.Bounds().Dx() != 200 || overlay.Bounds().Dy() != 100 {
		t.Errorf("overlay size: got %v", overlay.Bounds())
	}
}

func TestExecuteTool_UnknownTool(t *testing.T) {
	s := newTestServer()

	_, err := s.executeTool(context.Background(), "unknown_tool", json.RawMessage(`{}`))
	if err == nil {
		t.Error("executeTool should fail for unknown tool")
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := newTestServer()

	for _, tool := range []string{"image_load", "number_regions_extract", "number_regions_debug"} {
		if _, err := s.executeTool(context.Background(), tool, json.RawMessage(`{invalid`)); err == nil {
			t.Errorf("executeTool(%s) should fail for invalid JSON", tool)
		}
	}
}

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/ironsheep/number-regions/internal/detection"
	"github.com/ironsheep/number-regions/internal/imaging"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "number_regions_extract").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	log := s.log.WithField("tool", params.Name).WithField("elapsed", time.Since(start).String())
	if err != nil {
		log.WithError(err).Warn("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	log.Info("tool finished")

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_load":
		return s.handleImageLoad(args)
	case "number_regions_extract":
		return s.handleExtract(ctx, args)
	case "number_regions_debug":
		return s.handleDebug(ctx, args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (a imageLoadArgs) validate() error {
	if a.Path == "" {
		return errors.New("path is required")
	}
	return nil
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

type extractArgs struct {
	Path          string `json:"path"`
	IncludeImages bool   `json:"include_images"`
}

// RegionResult is one region in a number_regions_extract response.
type RegionResult struct {
	Index      int                   `json:"index"`
	Box        detection.Box         `json:"bbox"`
	Confidence float64               `json:"confidence"`
	Text       string                `json:"text,omitempty"`
	Source     string                `json:"source"`
	Image      *imaging.EncodedImage `json:"image,omitempty"`
}

// ExtractResult is the number_regions_extract response.
type ExtractResult struct {
	Path         string         `json:"path"`
	Width        int            `json:"width"`
	Height       int            `json:"height"`
	Regions      []RegionResult `json:"regions"`
	RawCount     int            `json:"raw_count"`
	FallbackUsed bool           `json:"fallback_used"`
	Failures     []string       `json:"failures,omitempty"`
}

func (s *Server) handleExtract(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a extractArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := (imageLoadArgs{Path: a.Path}).validate(); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	res, err := s.extractor.Extract(ctx, img)
	if err != nil {
		return nil, errors.Wrapf(err, "extract %s", a.Path)
	}

	out := &ExtractResult{
		Path:         a.Path,
		Width:        res.Width,
		Height:       res.Height,
		Regions:      make([]RegionResult, 0, len(res.Regions)),
		RawCount:     res.Raw.Len(),
		FallbackUsed: res.FallbackUsed,
		Failures:     failureStrings(res.Failures),
	}
	for _, r := range res.Regions {
		rr := RegionResult{
			Index:      r.Index,
			Box:        r.Box,
			Confidence: r.Confidence,
			Text:       r.Text,
			Source:     r.Source,
		}
		if a.IncludeImages {
			rr.Image = imaging.NewEncodedImage(r.PNG, r.Box.Width, r.Box.Height)
		}
		out.Regions = append(out.Regions, rr)
	}
	return out, nil
}

// DebugResult is the number_regions_debug response.
type DebugResult struct {
	Path                  string                `json:"path"`
	PreprocessingVariants int                   `json:"preprocessing_variants"`
	OCRConfigs            int                   `json:"ocr_configs"`
	StageCounts           map[string]int        `json:"stage_counts"`
	SourceCounts          map[string]int        `json:"source_counts"`
	FallbackUsed          bool                  `json:"fallback_used"`
	Failures              []string              `json:"failures,omitempty"`
	Overlay               *imaging.EncodedImage `json:"overlay"`
}

func (s *Server) handleDebug(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	res, err := s.extractor.Extract(ctx, img)
	if err != nil {
		return nil, errors.Wrapf(err, "extract %s", a.Path)
	}

	outlines := make([]imaging.Outline, 0, res.Canonical.Len())
	for i, d := range res.Canonical.Items() {
		outlines = append(outlines, imaging.Outline{Rect: d.Rect(), Label: i})
	}
	overlay := imaging.DrawOutlines(img, outlines)
	data, err := imaging.EncodePNG(overlay)
	if err != nil {
		return nil, err
	}

	return &DebugResult{
		Path:                  a.Path,
		PreprocessingVariants: res.VariantCount,
		OCRConfigs:            s.extractor.ConfigCount(),
		StageCounts:           res.StageCounts,
		SourceCounts:          res.Canonical.CountBySource(),
		FallbackUsed:          res.FallbackUsed,
		Failures:              failureStrings(res.Failures),
		Overlay:               imaging.NewEncodedImage(data, res.Width, res.Height),
	}, nil
}

func failureStrings(errs []error) []string {
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}

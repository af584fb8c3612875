// Package server implements the MCP (Model Context Protocol) server that
// exposes number region extraction as tools.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - image_load: Load an image and report its metadata
//   - number_regions_extract: Find candidate number regions, optionally
//     with the cropped PNGs
//   - number_regions_debug: Preprocessing and OCR configuration counts,
//     per-stage detection counts and an overlay with every region outlined
//
// # Image Caching
//
// Decoded images are cached by path for the lifetime of the server, so a
// debug call after an extract call does not decode the file again.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// Recovered failures inside an extraction run are not errors; they are
// listed in the "failures" field of the tool result.
//
// Logs go to the logger given to New and never to stdout.
package server

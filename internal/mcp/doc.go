// Package mcp implements the Model Context Protocol (MCP) server for
// Collectivist.
//
// The MCP server exposes two tools to AI assistants and dashboards:
//   - update_collection: Run the full curation pipeline on a directory
//   - collection_status: Report index statistics and annotation coverage
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server is typically started via the serve command:
//
//	collectivist serve
//
// It then listens on stdin for MCP protocol messages and writes responses
// to stdout. Logs go to stderr; stdout is reserved for the protocol.
//
// # Tool: update_collection
//
//	Request:
//	{
//	  "name": "update_collection",
//	  "arguments": {
//	    "path": "/path/to/collection",
//	    "force_type": "repositories",
//	    "skip_annotate": false,
//	    "workers": 5
//	  }
//	}
//
//	Response:
//	{
//	  "run_id": "8a2f...",
//	  "success": true,
//	  "total_items": 42,
//	  "stages": [
//	    {"stage": "scan", "ok": true, "items": 42, "duration_ms": 120},
//	    {"stage": "annotate", "ok": true, "items": 7, "duration_ms": 8450},
//	    {"stage": "curate", "ok": true, "duration_ms": 2},
//	    {"stage": "render", "ok": true, "items": 1, "duration_ms": 9}
//	  ],
//	  "duration_ms": 8581
//	}
//
// # Tool: collection_status
//
//	Request:
//	{
//	  "name": "collection_status",
//	  "arguments": {"path": "/path/to/collection"}
//	}
//
//	Response:
//	{
//	  "collection_id": "repos",
//	  "total_items": 42,
//	  "annotated": 40,
//	  "unannotated": 2,
//	  "categories": {"dev_tools": 12, "utilities_misc": 5}
//	}
//
// # Error Handling
//
// The server returns standard JSON-RPC error responses. Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error
//   - -32001: Collection busy (another run in progress)
//   - -32002: Not a collection (no index present)
package mcp

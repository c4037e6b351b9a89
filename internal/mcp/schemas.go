package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// updateCollectionTool returns the tool definition for update_collection
func updateCollectionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "update_collection",
		Description: "Run the full update pipeline (scan, annotate, curate, render) on a collection directory",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the collection root directory",
				},
				"force_type": map[string]interface{}{
					"type":        "string",
					"description": "Force a specific collection type instead of auto-detection",
					"enum":        []string{"repositories", "obsidian", "documents", "media", "generic"},
				},
				"skip_scan": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, skip the scan stage and reuse the persisted index",
					"default":     false,
				},
				"skip_annotate": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, skip LLM annotation",
					"default":     false,
				},
				"skip_curate": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, skip schema curation",
					"default":     false,
				},
				"skip_render": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, skip rendering output documents",
					"default":     false,
				},
				"workers": map[string]interface{}{
					"type":        "integer",
					"description": "Annotation worker count (1-32)",
					"default":     5,
					"minimum":     1,
					"maximum":     32,
				},
			},
			Required: []string{"path"},
		},
	}
}

// collectionStatusTool returns the tool definition for collection_status
func collectionStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "collection_status",
		Description: "Report index statistics and annotation coverage for a collection directory",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the collection root directory",
				},
			},
			Required: []string{"path"},
		},
	}
}

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/SyntaxAsSpiral/Collectivist/internal/pipeline"
	"github.com/SyntaxAsSpiral/Collectivist/internal/store"
	"github.com/SyntaxAsSpiral/Collectivist/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams  = -32602 // Invalid method parameters
	ErrorCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrorCodeCollectionBusy = -32001 // Another run is working on this collection
	ErrorCodeNotACollection = -32002 // Path has no collection state
)

// handleUpdateCollection handles the update_collection tool invocation
func (s *Server) handleUpdateCollection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	forceType := getStringDefault(args, "force_type", "")
	workers := getIntDefault(args, "workers", 0)
	if workers < 0 || workers > 32 {
		return nil, newMCPError(ErrorCodeInvalidParams, "workers must be between 1 and 32", map[string]interface{}{
			"param": "workers",
			"value": workers,
		})
	}

	opts := pipeline.Options{
		ForceType:    forceType,
		SkipScan:     getBoolDefault(args, "skip_scan", false),
		SkipAnnotate: getBoolDefault(args, "skip_annotate", false),
		SkipCurate:   getBoolDefault(args, "skip_curate", false),
		SkipRender:   getBoolDefault(args, "skip_render", false),
		Workers:      workers,
	}

	res, err := s.pipeline.Run(ctx, path, opts)
	if err != nil {
		if errors.Is(err, pipeline.ErrCollectionBusy) {
			return nil, newMCPError(ErrorCodeCollectionBusy, "collection is busy with another run", map[string]interface{}{
				"path": path,
			})
		}
		if res == nil {
			return nil, newMCPError(ErrorCodeInternalError, "run failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		s.log.Warn("run finished with errors", zap.String("path", path), zap.Error(err))
	}

	stages := make([]map[string]interface{}, 0, len(res.Stages))
	for _, st := range res.Stages {
		stage := map[string]interface{}{
			"stage":       st.Stage,
			"ok":          st.OK,
			"skipped":     st.Skipped,
			"items":       st.Items,
			"duration_ms": st.Duration.Milliseconds(),
		}
		if st.Error != "" {
			stage["error"] = st.Error
		}
		stages = append(stages, stage)
	}

	response := map[string]interface{}{
		"run_id":      res.RunID,
		"success":     res.Success,
		"total_items": res.TotalItems,
		"stages":      stages,
		"duration_ms": res.Duration.Milliseconds(),
	}
	if len(res.Errors) > 0 {
		response["errors"] = res.Errors
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleCollectionStatus handles the collection_status tool invocation
func (s *Server) handleCollectionStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	st := store.New(path)
	if !st.HasIndex() {
		return nil, newMCPError(ErrorCodeNotACollection, "no index found; run update_collection first", map[string]interface{}{
			"path": path,
		})
	}

	ix, err := st.LoadIndex()
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load index", map[string]interface{}{
			"error": err.Error(),
		})
	}

	annotated := 0
	failed := 0
	for _, it := range ix.Items {
		if it.Annotated() {
			annotated++
		}
		if it.AnnotationError {
			failed++
		}
	}

	response := map[string]interface{}{
		"collection_id":      ix.CollectionID,
		"total_items":        ix.TotalItems,
		"annotated":          annotated,
		"unannotated":        len(ix.Unannotated()),
		"annotation_errors":  failed,
		"categories":         ix.CategoryCounts(),
		"last_scan":          ix.LastScan,
		"scan_duration_secs": ix.ScanDuration,
		"scanners":           s.pipeline.Registry().Names(),
	}

	if cfg, err := st.LoadConfig(); err == nil {
		response["collection_type"] = cfg.CollectionType
		response["configured_categories"] = cfg.Categories
	} else if !errors.Is(err, types.ErrConfigNotFound) {
		s.log.Warn("config unreadable during status", zap.String("path", path), zap.Error(err))
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks if a path exists and is an accessible directory
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}
	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()
	return nil
}

// formatJSON formats a response map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)

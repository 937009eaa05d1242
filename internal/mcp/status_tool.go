package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/hdlnav/internal/modules"
	"github.com/mvp-joe/hdlnav/internal/resolve"
)

// UnitLister lists the known design units.
type UnitLister interface {
	Definitions() []modules.Definition
}

// StatusResponse is the hdl_status result.
type StatusResponse struct {
	DesignUnits     int             `json:"design_units"`
	CachedDocuments int             `json:"cached_documents"`
	IncludeNames    int             `json:"include_names"`
	Builds          MetricsSnapshot `json:"builds"`
}

// AddStatusTool registers the hdl_status tool with an MCP server.
func AddStatusTool(s *server.MCPServer, engine *resolve.Engine, units UnitLister, metrics *BuildMetrics) {
	tool := mcp.NewTool(
		"hdl_status",
		mcp.WithDescription("Report the state of the HDL navigation indexes: known design units, cached documents, indexed include names and include index build history."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createStatusHandler(engine, units, metrics))
}

// createStatusHandler creates the handler function for hdl_status tool.
func createStatusHandler(engine *resolve.Engine, units UnitLister, metrics *BuildMetrics) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return marshalToolResponse(StatusResponse{
			DesignUnits:     len(units.Definitions()),
			CachedDocuments: engine.Cache().Len(),
			IncludeNames:    engine.Includes().Len(),
			Builds:          metrics.GetMetrics(),
		})
	}
}

package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/hdlnav/internal/hierarchy"
)

// HierarchyBuilder builds instantiation graphs.
type HierarchyBuilder interface {
	Build(ctx context.Context, root string, maxDepth int) (*hierarchy.Graph, error)
}

// HierarchyResponse is the hdl_hierarchy result.
type HierarchyResponse struct {
	Module     string          `json:"module"`
	Tree       *hierarchy.Tree `json:"tree,omitempty"`
	Text       string          `json:"text,omitempty"`
	Units      int             `json:"units"`
	Instances  int             `json:"instances"`
	Unresolved []string        `json:"unresolved,omitempty"`
	Cycles     [][]string      `json:"cycles,omitempty"`
	Metadata   ResponseMeta    `json:"metadata"`
}

// AddHierarchyTool registers the hdl_hierarchy tool with an MCP server.
func AddHierarchyTool(s *server.MCPServer, builder HierarchyBuilder) {
	tool := mcp.NewTool(
		"hdl_hierarchy",
		mcp.WithDescription("Show the module instantiation tree below a Verilog/SystemVerilog design unit, with unresolved units and instantiation cycles."),
		mcp.WithString("module",
			mcp.Required(),
			mcp.Description("Root module, interface or program name (e.g., 'top')")),
		mcp.WithNumber("depth",
			mcp.Description(fmt.Sprintf("Levels to expand below the root (default: %d, max: %d)", hierarchy.DefaultMaxDepth, hierarchy.MaxDepth))),
		mcp.WithString("format",
			mcp.Description("'json' for a nested tree (default) or 'text' for an indented outline")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createHierarchyHandler(builder))
}

// createHierarchyHandler creates the handler function for hdl_hierarchy tool.
func createHierarchyHandler(builder HierarchyBuilder) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}

		module, err := parseStringArg(argsMap, "module", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		format, err := parseStringArg(argsMap, "format", false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		switch format {
		case "":
			format = "json"
		case "json", "text":
		default:
			return mcp.NewToolResultError(fmt.Sprintf("invalid format: %s (must be one of: json, text)", format)), nil
		}
		depth := parseClampedInt(argsMap, "depth", hierarchy.DefaultMaxDepth, 1, hierarchy.MaxDepth)

		start := time.Now()
		g, err := builder.Build(ctx, module, depth)
		if err != nil {
			return nil, fmt.Errorf("hierarchy build failed: %w", err)
		}

		tree := g.Tree()
		response := HierarchyResponse{
			Module:     module,
			Units:      len(g.Nodes()),
			Instances:  tree.Count() - 1,
			Unresolved: g.Unresolved(),
			Cycles:     g.Cycles(),
		}
		if format == "text" {
			var b strings.Builder
			if err := hierarchy.Render(&b, tree); err != nil {
				return nil, err
			}
			response.Text = b.String()
		} else {
			response.Tree = tree
		}
		response.Metadata.TookMs = int(time.Since(start).Milliseconds())

		return marshalToolResponse(response)
	}
}

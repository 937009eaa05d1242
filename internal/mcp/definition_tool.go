package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	mcputils "github.com/mvp-joe/hdlnav/internal/mcp-utils"
	"github.com/mvp-joe/hdlnav/internal/resolve"
)

// DefinitionResolver answers go-to-definition queries.
type DefinitionResolver interface {
	Explain(ctx context.Context, u uri.URI, pos protocol.Position) (*resolve.Explanation, error)
}

// DefinitionRequest represents the hdl_definition tool parameters.
// Line and character are 1-based.
type DefinitionRequest struct {
	File      string `json:"file"`
	Line      int    `json:"line"`
	Character int    `json:"character"`
	Explain   bool   `json:"explain,omitempty"`
}

// DefinitionResponse is the hdl_definition result.
type DefinitionResponse struct {
	File        string             `json:"file"`
	Line        int                `json:"line"`
	Character   int                `json:"character"`
	Word        string             `json:"word,omitempty"`
	Access      string             `json:"access,omitempty"`   // only with explain
	Strategy    string             `json:"strategy,omitempty"` // only with explain
	Definitions []DefinitionResult `json:"definitions"`
	Total       int                `json:"total"`
	Metadata    ResponseMeta       `json:"metadata"`
}

// DefinitionResult is one declaration site. Line and character are 1-based.
type DefinitionResult struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	Character int    `json:"character"`
	Scope     string `json:"scope,omitempty"`
	TypeRef   string `json:"type_ref,omitempty"`
}

// ResponseMeta contains metadata about the query execution.
type ResponseMeta struct {
	TookMs int `json:"took_ms"`
}

// AddDefinitionTool registers the hdl_definition tool with an MCP server.
func AddDefinitionTool(s *server.MCPServer, resolver DefinitionResolver, root string) {
	tool := mcp.NewTool(
		"hdl_definition",
		mcp.WithDescription("Find where a Verilog/SystemVerilog identifier is declared. Understands instance port and parameter connections (.WIDTH(8)), hierarchical references (bus.valid), package scope (pkg::item), package members from indexed include files, and local declarations."),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Source file, relative to the workspace root (e.g., 'rtl/top.sv')")),
		mcp.WithNumber("line",
			mcp.Required(),
			mcp.Description("1-based line of the identifier")),
		mcp.WithNumber("character",
			mcp.Required(),
			mcp.Description("1-based column of any character in the identifier")),
		mcp.WithBoolean("explain",
			mcp.Description("Include the access kind and the resolution strategy that answered (default: false)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createDefinitionHandler(resolver, root))
}

// createDefinitionHandler creates the handler function for hdl_definition tool.
func createDefinitionHandler(resolver DefinitionResolver, root string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if _, errResult := parseToolArguments(request); errResult != nil {
			return errResult, nil
		}

		var req DefinitionRequest
		if err := mcputils.CoerceBindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}
		if req.File == "" {
			return mcp.NewToolResultError("file parameter is required"), nil
		}
		if req.Line < 1 || req.Character < 1 {
			return mcp.NewToolResultError("line and character are 1-based and must be positive"), nil
		}

		u, err := workspaceURI(root, req.File)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		start := time.Now()
		pos := protocol.Position{Line: uint32(req.Line - 1), Character: uint32(req.Character - 1)}
		exp, err := resolver.Explain(ctx, u, pos)
		if err != nil {
			return nil, fmt.Errorf("definition lookup failed: %w", err)
		}

		response := DefinitionResponse{
			File:        displayPath(root, u),
			Line:        req.Line,
			Character:   req.Character,
			Definitions: make([]DefinitionResult, 0, len(exp.Symbols)),
		}
		if exp.Access != nil {
			response.Word = exp.Access.Target
			if req.Explain {
				response.Access = exp.Access.Kind.String()
			}
		}
		if req.Explain {
			response.Strategy = string(exp.Strategy)
		}
		for _, sym := range exp.Symbols {
			response.Definitions = append(response.Definitions, DefinitionResult{
				Name:      sym.Name,
				Kind:      string(sym.Kind),
				File:      displayPath(root, sym.URI),
				Line:      int(sym.DeclRange.Start.Line) + 1,
				Character: int(sym.DeclRange.Start.Character) + 1,
				Scope:     sym.Scope,
				TypeRef:   sym.TypeRef,
			})
		}
		response.Total = len(response.Definitions)
		response.Metadata.TookMs = int(time.Since(start).Milliseconds())

		return marshalToolResponse(response)
	}
}

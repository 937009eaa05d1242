// Package mcp exposes HDL navigation to agents as MCP tools over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/hdlnav/internal/resolve"
)

// Watcher keeps the indexes current while the server runs. Start blocks
// until its context is cancelled.
type Watcher interface {
	Start(ctx context.Context) error
}

// ServerConfig wires the server to the resolution core.
type ServerConfig struct {
	Root      string // workspace root; tool file arguments are relative to it
	Version   string
	Engine    *resolve.Engine
	Units     UnitLister
	Hierarchy HierarchyBuilder
	Metrics   *BuildMetrics // optional, created when nil
	Watcher   Watcher       // optional
}

// MCPServer manages the MCP server lifecycle.
type MCPServer struct {
	config ServerConfig
	mcp    *server.MCPServer
}

// NewMCPServer creates a new MCP server with the hdl_definition,
// hdl_hierarchy and hdl_status tools registered.
func NewMCPServer(config ServerConfig) (*MCPServer, error) {
	if config.Engine == nil {
		return nil, fmt.Errorf("resolution engine is required")
	}
	if config.Units == nil || config.Hierarchy == nil {
		return nil, fmt.Errorf("module index and hierarchy builder are required")
	}
	if config.Metrics == nil {
		config.Metrics = NewBuildMetrics()
	}
	if config.Version == "" {
		config.Version = "dev"
	}

	mcpServer := server.NewMCPServer(
		"hdlnav",
		config.Version,
		server.WithToolCapabilities(true),
	)

	AddDefinitionTool(mcpServer, config.Engine, config.Root)
	AddHierarchyTool(mcpServer, config.Hierarchy)
	AddStatusTool(mcpServer, config.Engine, config.Units, config.Metrics)

	return &MCPServer{config: config, mcp: mcpServer}, nil
}

// MCP returns the underlying mcp-go server.
func (s *MCPServer) MCP() *server.MCPServer {
	return s.mcp
}

// Serve starts the MCP server and blocks until shutdown.
func (s *MCPServer) Serve(ctx context.Context) error {
	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.config.Watcher != nil {
		go func() {
			if err := s.config.Watcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("Warning: watcher stopped: %v", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// Start MCP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting MCP server on stdio...")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigCh:
		log.Printf("Received shutdown signal, stopping gracefully...")
		cancel()
		return nil
	case err := <-errCh:
		cancel()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

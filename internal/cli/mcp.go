package cli

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/hdlnav/internal/config"
	"github.com/mvp-joe/hdlnav/internal/index"
	"github.com/mvp-joe/hdlnav/internal/mcp"
	"github.com/mvp-joe/hdlnav/internal/watcher"
)

var watchFlag bool

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for HDL navigation",
	Long: `Start the Model Context Protocol (MCP) server that lets coding assistants
navigate a Verilog/SystemVerilog workspace.

The MCP server:
- Builds the include index at startup
- Provides hdl_definition, hdl_hierarchy and hdl_status tools
- Watches sources and the config file, keeping the indexes current
- Communicates via stdio (standard MCP transport)

Example:
  hdlnav mcp --root /path/to/design`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().BoolVar(&watchFlag, "watch", true, "Watch the workspace and config file for changes")
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	stderr := cmd.ErrOrStderr()

	ws, err := openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	fmt.Fprintf(stderr, "hdlnav MCP Server %s\n", Version)
	fmt.Fprintf(stderr, "Workspace: %s\n", ws.root)
	fmt.Fprintf(stderr, "Design units: %s\n", formatNumber(len(ws.units.Definitions())))

	metrics := mcp.NewBuildMetrics()
	stats, err := ws.buildIncludes(ctx, &index.NoOpProgressReporter{})
	metrics.RecordBuild(stats, err)
	if err != nil {
		return fmt.Errorf("failed to build include index: %w", err)
	}
	fmt.Fprintf(stderr, "Include index: %s names from %s files\n\n", formatNumber(stats.Names), formatNumber(stats.Indexed))

	serverConfig := mcp.ServerConfig{
		Root:      ws.root,
		Version:   Version,
		Engine:    ws.engine,
		Units:     ws.units,
		Hierarchy: ws.hierarchyBuilder(),
		Metrics:   metrics,
	}

	if watchFlag {
		coord, err := ws.watch(metrics)
		if err != nil {
			return err
		}
		serverConfig.Watcher = coord
	}

	server, err := mcp.NewMCPServer(serverConfig)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	// Serve (blocks until shutdown)
	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

// watch creates the coordinator that feeds file and config changes into the
// engine. Builds it triggers are recorded in metrics.
func (w *workspace) watch(metrics *mcp.BuildMetrics) (*watcher.WatchCoordinator, error) {
	exts := watchedExtensions(w.cfg)
	files, err := watcher.NewFileWatcher([]string{w.root}, watcher.Options{
		Debounce: w.cfg.Debounce(),
		Match: func(path string) bool {
			return w.finder.Matches(path, exts)
		},
		SkipDir: w.finder.Ignored,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", w.root, err)
	}

	coord := watcher.NewWatchCoordinator(files, mcp.InstrumentEngine(w.engine, metrics), w.units, w.cfg.IncludeOptions())

	err = w.loader.Watch(func(cfg *config.Config) {
		log.Printf("Config changed, rebuilding include index")
		coord.HandleConfigChange(cfg.IncludeOptions())
	})
	if err != nil && !errors.Is(err, config.ErrNoConfigFile) {
		return nil, err
	}
	return coord, nil
}

// watchedExtensions is the union of source and include file extensions.
func watchedExtensions(cfg *config.Config) []string {
	includeExts := cfg.Includes.Extensions
	if len(includeExts) == 0 {
		includeExts = index.DefaultIncludeExtensions
	}
	seen := make(map[string]bool)
	var exts []string
	for _, e := range append(append([]string{}, cfg.Sources.Extensions...), includeExts...) {
		if !seen[e] {
			seen[e] = true
			exts = append(exts, e)
		}
	}
	return exts
}

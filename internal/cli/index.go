package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	quietFlag bool
	listFlag  bool
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the include index and report what it contains",
	Long: `Index scans the workspace for design units (modules, interfaces, packages,
programs) and builds the global include index: every package member declared
in the configured include directories.

Examples:
  # Index the current directory
  hdlnav index

  # Index another workspace and list the indexed names
  hdlnav index --root /path/to/design --list

  # Index without progress output
  hdlnav index --quiet
`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress bars and non-error output")
	indexCmd.Flags().BoolVar(&listFlag, "list", false, "Print every indexed include name")
}

func runIndex(cmd *cobra.Command, args []string) error {
	// Set up context with cancellation for Ctrl+C
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle interrupt signals gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(cmd.ErrOrStderr(), "\nInterrupted! Cancelling indexing...")
			cancel()
		case <-ctx.Done():
		}
	}()

	ws, err := openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	out := cmd.OutOrStdout()
	if !quietFlag {
		fmt.Fprintf(out, "Workspace: %s\n", ws.root)
		fmt.Fprintf(out, "Design units: %s\n", formatNumber(len(ws.units.Definitions())))
	}

	stats, err := ws.buildIncludes(ctx, NewCLIProgressReporter(out, quietFlag))
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("indexing cancelled")
		}
		return err
	}

	if quietFlag {
		fmt.Fprintf(out, "Include index: %d names from %d files in %.2fs\n",
			stats.Names, stats.Indexed, stats.Duration.Seconds())
	}

	if listFlag {
		for _, name := range ws.engine.Includes().Names() {
			syms := ws.engine.Includes().Lookup(name)
			for _, s := range syms {
				fmt.Fprintf(out, "%s\t%s\t%s:%d\n", name, s.Scope, ws.display(s.URI.Filename()), s.DeclRange.Start.Line+1)
			}
		}
	}
	return nil
}

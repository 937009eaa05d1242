package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/hdlnav/internal/hierarchy"
)

var (
	depthFlag int
	orderFlag bool
)

// hierarchyCmd represents the hierarchy command
var hierarchyCmd = &cobra.Command{
	Use:   "hierarchy MODULE",
	Short: "Print the instantiation tree below a design unit",
	Long: `Hierarchy follows module instances from MODULE downwards and prints the
resulting tree. Units without a definition in the workspace are marked
[unresolved]; a unit that instantiates one of its ancestors is marked
[recursive] and not expanded again.

Examples:
  hdlnav hierarchy top
  hdlnav hierarchy top --depth 2
  hdlnav hierarchy top --order
`,
	Args: cobra.ExactArgs(1),
	RunE: runHierarchy,
}

func init() {
	rootCmd.AddCommand(hierarchyCmd)
	hierarchyCmd.Flags().IntVar(&depthFlag, "depth", hierarchy.DefaultMaxDepth, fmt.Sprintf("Levels to expand below MODULE (max %d)", hierarchy.MaxDepth))
	hierarchyCmd.Flags().BoolVar(&orderFlag, "order", false, "Print units leaves first instead of the tree")
	hierarchyCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the tree as JSON")
}

func runHierarchy(cmd *cobra.Command, args []string) error {
	if depthFlag < 1 || depthFlag > hierarchy.MaxDepth {
		return fmt.Errorf("--depth must be between 1 and %d", hierarchy.MaxDepth)
	}

	ctx := cmd.Context()
	ws, err := openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	g, err := ws.hierarchyBuilder().Build(ctx, args[0], depthFlag)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if orderFlag {
		order, err := g.Order()
		if errors.Is(err, hierarchy.ErrCyclic) {
			return fmt.Errorf("%w: %s", err, formatCycles(g.Cycles()))
		}
		if err != nil {
			return err
		}
		for i := len(order) - 1; i >= 0; i-- {
			fmt.Fprintln(out, order[i])
		}
		return nil
	}

	tree := g.Tree()
	if jsonFlag {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(tree)
	}
	if err := hierarchy.Render(out, tree); err != nil {
		return err
	}
	if unresolved := g.Unresolved(); len(unresolved) > 0 {
		fmt.Fprintf(out, "\n%d unresolved: %s\n", len(unresolved), strings.Join(unresolved, ", "))
	}
	return nil
}

func formatCycles(cycles [][]string) string {
	parts := make([]string, len(cycles))
	for i, c := range cycles {
		parts[i] = strings.Join(c, " -> ")
	}
	return strings.Join(parts, "; ")
}

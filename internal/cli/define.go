package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/mvp-joe/hdlnav/internal/index"
	"github.com/mvp-joe/hdlnav/internal/resolve"
)

var (
	explainFlag bool
	jsonFlag    bool
)

// defineCmd represents the define command
var defineCmd = &cobra.Command{
	Use:   "define FILE LINE COLUMN",
	Short: "Find the declaration of the identifier at a position",
	Long: `Define resolves the identifier at FILE:LINE:COLUMN (both 1-based) and prints
every declaration it refers to, one per line as path:line:column.

Examples:
  hdlnav define rtl/top.sv 12 8
  hdlnav define rtl/top.sv 12 8 --explain
`,
	Args: cobra.ExactArgs(3),
	RunE: runDefine,
}

func init() {
	rootCmd.AddCommand(defineCmd)
	defineCmd.Flags().BoolVar(&explainFlag, "explain", false, "Show the access kind and the strategy that answered")
	defineCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the resolution as JSON")
}

func runDefine(cmd *cobra.Command, args []string) error {
	line, err := parsePositive("LINE", args[1])
	if err != nil {
		return err
	}
	col, err := parsePositive("COLUMN", args[2])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	ws, err := openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	if _, err := ws.buildIncludes(ctx, &index.NoOpProgressReporter{}); err != nil {
		return err
	}

	u := uri.File(ws.fileArg(args[0]))
	exp, err := ws.engine.Explain(ctx, u, protocol.Position{Line: uint32(line - 1), Character: uint32(col - 1)})
	if err != nil {
		return err
	}

	if jsonFlag {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(exp)
	}
	writeExplanation(cmd.OutOrStdout(), ws, exp, explainFlag)
	return nil
}

// writeExplanation prints one declaration per line, preceded by the
// classification when explain is set.
func writeExplanation(out io.Writer, ws *workspace, exp *resolve.Explanation, explain bool) {
	if explain {
		if exp.Access == nil {
			fmt.Fprintln(out, "access: none (no identifier at position)")
		} else {
			fmt.Fprintf(out, "access: %s %q", exp.Access.Kind, exp.Access.Target)
			if exp.Access.Parent != exp.Access.Target {
				fmt.Fprintf(out, " in %q", exp.Access.Parent)
			}
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "strategy: %s\n", exp.Strategy)
	}
	if len(exp.Symbols) == 0 {
		fmt.Fprintln(out, "no declaration found")
		return
	}
	for _, s := range exp.Symbols {
		start := s.DeclRange.Start
		fmt.Fprintf(out, "%s:%d:%d\t%s\t%s", ws.display(s.URI.Filename()), start.Line+1, start.Character+1, s.Kind, s.Name)
		if s.Scope != "" {
			fmt.Fprintf(out, "\t(%s %s)", s.ScopeKind, s.Scope)
		}
		fmt.Fprintln(out)
	}
}

func parsePositive(name, arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, arg)
	}
	return n, nil
}

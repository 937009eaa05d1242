package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.lsp.dev/uri"

	"github.com/mvp-joe/hdlnav/internal/symbol"
)

var kindFlag string

// symbolsCmd represents the symbols command
var symbolsCmd = &cobra.Command{
	Use:   "symbols FILE",
	Short: "List the declarations extracted from a file",
	Long: `Symbols prints the document index of FILE: every declaration ctags reports,
in source order, with its kind, enclosing scope and type reference.

Examples:
  hdlnav symbols rtl/top.sv
  hdlnav symbols rtl/top.sv --kind instance
  hdlnav symbols inc/types.svh --kind package-member
`,
	Args: cobra.ExactArgs(1),
	RunE: runSymbols,
}

func init() {
	rootCmd.AddCommand(symbolsCmd)
	symbolsCmd.Flags().StringVar(&kindFlag, "kind", "", "Only show symbols of this kind (e.g. module, instance, port, package-member)")
	symbolsCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print symbols as JSON")
}

func runSymbols(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ws, err := openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	u := uri.File(ws.fileArg(args[0]))
	syms, err := ws.engine.Cache().Query(ctx, u, symbol.Filter{Kind: symbol.Kind(kindFlag)})
	if err != nil {
		return fmt.Errorf("failed to index %s: %w", args[0], err)
	}

	if jsonFlag {
		if syms == nil {
			syms = []symbol.Symbol{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(syms)
	}
	writeSymbols(cmd.OutOrStdout(), syms)
	return nil
}

// writeSymbols prints one symbol per line: line:column, kind, name, then
// scope and type reference when present.
func writeSymbols(out io.Writer, syms []symbol.Symbol) {
	for _, s := range syms {
		start := s.DeclRange.Start
		fmt.Fprintf(out, "%d:%d\t%s\t%s", start.Line+1, start.Character+1, s.Kind, s.Name)
		if s.Scope != "" {
			fmt.Fprintf(out, "\tscope=%s", s.Scope)
		}
		if s.TypeRef != "" {
			fmt.Fprintf(out, "\ttype=%s", s.TypeRef)
		}
		fmt.Fprintln(out)
	}
}

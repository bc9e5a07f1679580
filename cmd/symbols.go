package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hnanmal/B-note/internal/calc"
	"github.com/hnanmal/B-note/internal/symbols"
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols <family>",
	Short: "Show the namespace a family resolves and which scope supplies each key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		forest, entries, err := loadCatalog(cmd.Context(), d, true)
		if err != nil {
			return err
		}
		tn, err := ResolveFamily(forest, args[0])
		if err != nil {
			return err
		}

		bindings := symbols.Trace(tn.ID, entries, forest.Ancestry())
		if tn.ManualInput {
			bindings = []symbols.Binding{}
		}

		if wantJSON() {
			if bindings == nil {
				bindings = []symbols.Binding{}
			}
			output := struct {
				NodeID      int64             `json:"node_id"`
				Path        []string          `json:"path"`
				ManualInput bool              `json:"manual_input"`
				Bindings    []symbols.Binding `json:"bindings"`
				Count       int               `json:"count"`
			}{tn.ID, forest.Path(tn.ID), tn.ManualInput, bindings, len(bindings)}
			return printJSON(cmd.OutOrStdout(), output)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n", joinPath(forest.Path(tn.ID)))
		if tn.ManualInput {
			fmt.Fprintln(out, "Manual input: formulas accept literal values only.")
			return nil
		}
		if len(bindings) == 0 {
			fmt.Fprintln(out, "No symbols in scope.")
			return nil
		}
		t := newTable(out, "KEY", "VALUE", "SCOPE", "FROM")
		for _, b := range bindings {
			from := "self"
			if b.Depth > 0 {
				from = fmt.Sprintf("%d up", b.Depth)
			}
			scope := fmt.Sprintf("%d", b.ScopeID)
			if sn, ok := forest.Node(b.ScopeID); ok {
				scope = fmt.Sprintf("%s [%d]", sn.Name, b.ScopeID)
			}
			t.AppendRow([]any{b.Key, b.Value, scope, from})
		}
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(symbolsCmd)
}

func joinPath(names []string) string {
	return strings.Join(names, calc.PathSeparator)
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hnanmal/B-note/internal/db"
	"github.com/hnanmal/B-note/internal/symbols"
	"github.com/hnanmal/B-note/internal/tree"
)

var treeRoot string

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the ordered family tree with attached standard items",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		forest, _, err := loadCatalog(cmd.Context(), d, false)
		if err != nil {
			return err
		}

		rows := forest.Rows()
		if treeRoot != "" {
			tn, err := ResolveFamily(forest, treeRoot)
			if err != nil {
				return err
			}
			rows = forest.RowsFrom(tn.ID)
		}

		if wantJSON() {
			if rows == nil {
				rows = []tree.Row{}
			}
			return printJSON(cmd.OutOrStdout(), rows)
		}
		printTree(cmd.OutOrStdout(), rows)
		return nil
	},
}

func init() {
	treeCmd.Flags().StringVar(&treeRoot, "root", "", "Only print this family (id or name) and its descendants")
	rootCmd.AddCommand(treeCmd)
}

// loadCatalog builds the forest and, when withSymbols is set, loads the
// calc dictionary. Recovered structural problems are logged.
func loadCatalog(ctx context.Context, d *db.DB, withSymbols bool) (*tree.Forest, []symbols.Entry, error) {
	in, err := d.CatalogInput(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("loading catalog: %w", err)
	}
	forest := tree.Build(in)
	diag := forest.Diagnostics()
	if len(diag.Rerooted) > 0 {
		logger.Warn("broke parent cycles", zap.Int64s("rerooted", diag.Rerooted))
	}
	if len(diag.DanglingParents) > 0 {
		logger.Warn("families with missing parents shown as roots", zap.Int64s("ids", diag.DanglingParents))
	}
	if diag.SkippedRows > 0 {
		logger.Warn("skipped malformed rows", zap.Int("count", diag.SkippedRows))
	}

	var entries []symbols.Entry
	if withSymbols {
		entries, err = d.SymbolEntries(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("loading symbols: %w", err)
		}
	}
	return forest, entries, nil
}

func printTree(w io.Writer, rows []tree.Row) {
	for _, r := range rows {
		indent := strings.Repeat("  ", r.Level)
		if !r.IsItem() {
			label := r.Name
			if r.SequenceToken != "" {
				label = r.SequenceToken + " " + r.Name
			}
			fmt.Fprintf(w, "%s%s  [%d]\n", indent, label, r.ID)
			continue
		}
		line := fmt.Sprintf("%s- %s %s  [item %d]", indent, r.Kind, r.Name, r.ID)
		if r.Formula != nil && strings.TrimSpace(*r.Formula) != "" {
			line += "  = " + strings.TrimSpace(*r.Formula)
		}
		if r.Note != nil && *r.Note != "" {
			line += "  (" + *r.Note + ")"
		}
		fmt.Fprintln(w, line)
	}
}

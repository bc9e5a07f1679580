package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hnanmal/B-note/internal/db"
	"github.com/hnanmal/B-note/internal/seed"
	"github.com/hnanmal/B-note/internal/sheet"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load catalog rows, symbols or work masters",
}

var importCatalogCmd = &cobra.Command{
	Use:   "catalog <file.yaml>",
	Short: "Upsert families, items, assignments, symbols and work masters from a YAML seed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		doc, err := seed.Decode(f)
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		ctx := cmd.Context()
		counts, err := d.SaveCatalog(ctx, doc.Catalog())
		if err != nil {
			return err
		}
		created, updated, err := d.UpsertWorkMasters(ctx, doc.WorkMasterRows())
		if err != nil {
			return err
		}
		logger.Info("imported catalog", zap.String("file", args[0]),
			zap.Int("nodes", counts.Nodes), zap.Int("assignments", counts.Assignments))

		if wantJSON() {
			return printJSON(cmd.OutOrStdout(), struct {
				db.CatalogCounts
				WorkMastersCreated int `json:"work_masters_created"`
				WorkMastersUpdated int `json:"work_masters_updated"`
			}{counts, created, updated})
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Families:     %s\n", humanize.Comma(int64(counts.Nodes)))
		fmt.Fprintf(out, "Items:        %s\n", humanize.Comma(int64(counts.Items)))
		fmt.Fprintf(out, "Assignments:  %s\n", humanize.Comma(int64(counts.Assignments)))
		fmt.Fprintf(out, "Symbols:      %s\n", humanize.Comma(int64(counts.Symbols)))
		fmt.Fprintf(out, "Work masters: %s created, %s updated\n",
			humanize.Comma(int64(created)), humanize.Comma(int64(updated)))
		return nil
	},
}

var importSymbolsCmd = &cobra.Command{
	Use:   "symbols <file.xlsx>",
	Short: "Upsert calc dictionary entries from a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		entries, stats, err := sheet.ImportSymbols(f)
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()
		if _, err := d.SaveSymbolEntries(cmd.Context(), entries); err != nil {
			return err
		}
		return printImportStats(cmd, "symbols", stats)
	},
}

var importWorkMastersCmd = &cobra.Command{
	Use:   "work-masters <file.xlsx>",
	Short: "Upsert work masters by code from a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		wms, stats, err := sheet.ImportWorkMasters(f)
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()
		created, updated, err := d.UpsertWorkMasters(cmd.Context(), wms)
		if err != nil {
			return err
		}
		logger.Info("imported work masters", zap.Int("created", created), zap.Int("updated", updated))
		if !wantJSON() {
			fmt.Fprintf(cmd.OutOrStdout(), "Work masters: %s created, %s updated\n",
				humanize.Comma(int64(created)), humanize.Comma(int64(updated)))
		}
		return printImportStats(cmd, "work masters", stats)
	},
}

func printImportStats(cmd *cobra.Command, what string, stats sheet.Stats) error {
	if wantJSON() {
		return printJSON(cmd.OutOrStdout(), stats)
	}
	if stats.Skipped > 0 {
		logger.Warn("skipped malformed rows", zap.String("sheet", what), zap.Ints("rows", stats.SkippedRows))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %s %s from %s rows (%s skipped)\n",
		humanize.Comma(int64(stats.Imported)), what,
		humanize.Comma(int64(stats.Rows)), humanize.Comma(int64(stats.Skipped)))
	return nil
}

func init() {
	importCmd.AddCommand(importCatalogCmd, importSymbolsCmd, importWorkMastersCmd)
	rootCmd.AddCommand(importCmd)
}

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hnanmal/B-note/internal/db"
	"github.com/hnanmal/B-note/internal/results"
	"github.com/hnanmal/B-note/internal/seed"
	"github.com/hnanmal/B-note/internal/sheet"
)

var (
	exportRevision string
	exportBuilding string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the catalog, results and report to a spreadsheet or YAML seed",
}

var exportXLSXCmd = &cobra.Command{
	Use:   "xlsx <out.xlsx>",
	Short: "Export the tree and, with --revision and --building, its results and quantity report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		ctx := cmd.Context()
		forest, _, err := loadCatalog(ctx, d, false)
		if err != nil {
			return err
		}
		wb, err := sheet.NewWorkbook()
		if err != nil {
			return err
		}
		if err := wb.AddTree(forest.Rows()); err != nil {
			return err
		}

		p := partition{revision: cfg.Compute.Revision, building: cfg.Compute.Building}
		if p.revision != "" && p.building != "" {
			recs, err := d.ListResults(ctx, results.Filter{RevisionKey: p.revision, BuildingName: p.building})
			if err != nil {
				return err
			}
			if err := wb.AddResults(recs); err != nil {
				return err
			}
			rep, err := buildReport(ctx, d, p)
			if err != nil {
				return err
			}
			if err := wb.AddReport(rep); err != nil {
				return err
			}
		}

		return writeOutput(args[0], wb.Write)
	},
}

var exportYAMLCmd = &cobra.Command{
	Use:   "yaml <out.yaml|->",
	Short: "Export families, items, assignments, symbols and work masters as a YAML seed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		ctx := cmd.Context()
		in, err := d.CatalogInput(ctx)
		if err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}
		entries, err := d.SymbolEntries(ctx)
		if err != nil {
			return fmt.Errorf("loading symbols: %w", err)
		}
		wms, err := d.WorkMasters(ctx)
		if err != nil {
			return err
		}
		doc := seed.FromCatalog(db.Catalog{
			Nodes:       in.Nodes,
			Items:       in.Items,
			Assignments: in.Assignments,
			Symbols:     entries,
		}, wms)
		return writeOutput(args[0], func(w io.Writer) error { return seed.Encode(w, doc) })
	},
}

func init() {
	exportXLSXCmd.Flags().StringVar(&exportRevision, "revision", "", "Revision key of the results to include")
	exportXLSXCmd.Flags().StringVar(&exportBuilding, "building", "", "Building name of the results to include")
	exportCmd.AddCommand(exportXLSXCmd, exportYAMLCmd)
	rootCmd.AddCommand(exportCmd)
}

// writeOutput calls write with path opened for writing, or stdout for "-".
func writeOutput(path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.Info("exported", zap.String("path", path))
	return nil
}

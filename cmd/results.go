package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hnanmal/B-note/internal/results"
)

var (
	resultsRevision string
	resultsBuilding string
	resultsYes      bool
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List or purge computed results",
}

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List results, optionally filtered by --revision and --building",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		recs, err := d.ListResults(cmd.Context(), results.Filter{
			RevisionKey:  cfg.Compute.Revision,
			BuildingName: cfg.Compute.Building,
		})
		if err != nil {
			return err
		}
		if wantJSON() {
			if recs == nil {
				recs = []results.Record{}
			}
			return printJSON(cmd.OutOrStdout(), recs)
		}
		printResults(cmd.OutOrStdout(), recs)
		return nil
	},
}

var resultsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every result of a revision and building",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := partitionFromConfig()
		if err != nil {
			return err
		}
		if !resultsYes {
			return fmt.Errorf("refusing to purge %s / %s without --yes", p.revision, p.building)
		}
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		n, err := d.DeleteResults(cmd.Context(), p.revision, p.building)
		if err != nil {
			return err
		}
		logger.Info("purged results", zap.String("revision", p.revision),
			zap.String("building", p.building), zap.Int("deleted", n))
		if wantJSON() {
			return printJSON(cmd.OutOrStdout(), map[string]int{"deleted": n})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s results from %s / %s\n", humanize.Comma(int64(n)), p.revision, p.building)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{resultsListCmd, resultsPurgeCmd} {
		c.Flags().StringVar(&resultsRevision, "revision", "", "Revision key")
		c.Flags().StringVar(&resultsBuilding, "building", "", "Building name")
	}
	resultsPurgeCmd.Flags().BoolVar(&resultsYes, "yes", false, "Confirm the purge")
	resultsCmd.AddCommand(resultsListCmd, resultsPurgeCmd)
	rootCmd.AddCommand(resultsCmd)
}

func printResults(w io.Writer, recs []results.Record) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}
	t := newTable(w, "REVISION", "BUILDING", "CATEGORY", "FORMULA", "SUBSTITUTED", "VALUE", "NOTE", "CREATED")
	for _, r := range recs {
		value := ""
		if r.Value != nil {
			value = strconv.FormatFloat(*r.Value, 'g', -1, 64)
		}
		t.AppendRow([]any{r.RevisionKey, r.BuildingName, r.CategoryPath, r.Formula,
			r.SubstitutedFormula, value, r.ComputedNote, humanize.Time(r.CreatedAt)})
	}
	t.Render()
	fmt.Fprintf(w, "%s results\n", humanize.Comma(int64(len(recs))))
}

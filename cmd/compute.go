package cmd

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hnanmal/B-note/internal/calc"
	"github.com/hnanmal/B-note/internal/results"
)

var (
	computeMode     string
	computeRevision string
	computeBuilding string
	computeRoot     string
	computeDryRun   bool
	computeShowAll  bool
)

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Evaluate every assignment formula and reconcile the results of a revision and building",
	Long: "Builds the family tree, resolves each assignment's symbols along its ancestry, evaluates the formula " +
		"and writes the results under (revision, building). Append mode upserts by identity key; overwrite mode " +
		"replaces the whole partition. Formulas that fail are skipped and listed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		partition, err := partitionFromConfig()
		if err != nil {
			return err
		}
		mode, err := results.ParseMode(cfg.Compute.Mode)
		if err != nil {
			return err
		}
		if computeRoot != "" && mode == results.ModeOverwrite {
			return fmt.Errorf("--root: %w; use append mode", calc.ErrScopedOverwrite)
		}

		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		opts := calc.Options{
			Revision: partition.revision,
			Building: partition.building,
			Mode:     mode,
			DryRun:   computeDryRun,
		}
		if computeRoot != "" {
			forest, _, err := loadCatalog(cmd.Context(), d, false)
			if err != nil {
				return err
			}
			tn, err := ResolveFamily(forest, computeRoot)
			if err != nil {
				return err
			}
			opts.RootID = &tn.ID
		}

		engine := calc.NewEngine(d, results.NewReconciler(d), logger)
		report, err := engine.Compute(cmd.Context(), opts)
		if err != nil {
			return err
		}

		if wantJSON() {
			return printJSON(cmd.OutOrStdout(), report)
		}
		printComputeReport(cmd.OutOrStdout(), report, computeShowAll)
		return nil
	},
}

func init() {
	computeCmd.Flags().StringVar(&computeMode, "mode", "", "append (upsert by identity) or overwrite (replace partition)")
	computeCmd.Flags().StringVar(&computeRevision, "revision", "", "Revision key of the results partition")
	computeCmd.Flags().StringVar(&computeBuilding, "building", "", "Building name of the results partition")
	computeCmd.Flags().StringVar(&computeRoot, "root", "", "Limit to this family (id or name) and its descendants")
	computeCmd.Flags().BoolVar(&computeDryRun, "dry-run", false, "Evaluate without writing results")
	computeCmd.Flags().BoolVar(&computeShowAll, "all", false, "List every skipped assignment")
	rootCmd.AddCommand(computeCmd)
}

type partition struct {
	revision string
	building string
}

// partitionFromConfig reads the revision and building from merged config,
// which already includes the command's flags.
func partitionFromConfig() (partition, error) {
	p := partition{revision: cfg.Compute.Revision, building: cfg.Compute.Building}
	if p.revision == "" || p.building == "" {
		return p, fmt.Errorf("--revision and --building are required (or set compute.revision and compute.building)")
	}
	return p, nil
}

func printComputeReport(w io.Writer, r *calc.Report, showAll bool) {
	header := "Computed"
	if r.DryRun {
		header = "Dry run"
	}
	fmt.Fprintf(w, "%s %s / %s (%s)\n", header, r.Revision, r.Building, r.Mode)
	fmt.Fprintf(w, "  Assignments: %s considered, %s evaluated, %s skipped\n",
		humanize.Comma(int64(r.Considered)), humanize.Comma(int64(r.Evaluated)), humanize.Comma(int64(len(r.Skipped))))
	if !r.DryRun {
		s := r.Summary
		fmt.Fprintf(w, "  Results:     %s inserted, %s replaced, %s deleted\n",
			humanize.Comma(int64(s.Inserted)), humanize.Comma(int64(s.Replaced)), humanize.Comma(int64(s.Deleted)))
		if s.Conflicts > 0 {
			fmt.Fprintf(w, "  Conflicts:   %s duplicate identities in batch (last one kept)\n", humanize.Comma(int64(s.Conflicts)))
		}
		fmt.Fprintf(w, "  Batch:       %s\n", s.BatchID)
	}
	if n := len(r.Diagnostics.Rerooted) + len(r.Diagnostics.DanglingParents); n > 0 {
		fmt.Fprintf(w, "  Tree:        %d families re-rooted (run bnote audit)\n", n)
	}

	if len(r.Skipped) == 0 {
		return
	}
	limit := 10
	if showAll || len(r.Skipped) < limit {
		limit = len(r.Skipped)
	}
	fmt.Fprintln(w)
	t := newTable(w, "ASSIGNMENT", "PATH", "FORMULA", "REASON")
	for _, s := range r.Skipped[:limit] {
		t.AppendRow([]any{s.AssignmentID, s.Path, s.Formula, s.Reason})
	}
	t.Render()
	if limit < len(r.Skipped) {
		fmt.Fprintf(w, "  ... and %d more (use --all)\n", len(r.Skipped)-limit)
	}
}

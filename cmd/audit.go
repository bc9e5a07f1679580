package cmd

import (
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/hnanmal/B-note/internal/audit"
	"github.com/hnanmal/B-note/internal/tree"
)

var auditTopN int

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Check catalog structure, sequence tokens and formulas; print a health score",
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

		report := audit.Analyze(in, entries)
		if wantJSON() {
			return printJSON(cmd.OutOrStdout(), report)
		}
		printAudit(cmd.OutOrStdout(), report, tree.Build(in), auditTopN)
		return nil
	},
}

func init() {
	auditCmd.Flags().IntVar(&auditTopN, "top-n", 10, "Number of entries to show per section")
	rootCmd.AddCommand(auditCmd)
}

func healthBar(score float64) string {
	barLen := int(score * 20)
	if barLen > 20 {
		barLen = 20
	}
	if barLen < 0 {
		barLen = 0
	}
	return strings.Repeat("█", barLen) + strings.Repeat("░", 20-barLen)
}

func printAudit(w io.Writer, report *audit.Report, forest *tree.Forest, topN int) {
	fmt.Fprintf(w, "\n  Catalog Health: %.0f%%  [%s]\n", report.HealthScore*100, healthBar(report.HealthScore))
	fmt.Fprintf(w, "  breakdown: structure=%.2f ordering=%.2f formulas=%.2f\n\n",
		report.HealthBreakdown.Structure,
		report.HealthBreakdown.Ordering,
		report.HealthBreakdown.Formulas)

	name := func(id int64) string {
		if tn, ok := forest.Node(id); ok {
			return truncTitle(tn.Name, 40)
		}
		return "?"
	}

	s := report.Structure
	fmt.Fprintln(w, "  STRUCTURE")
	fmt.Fprintln(w, "  ────────────────────────────────────────")
	fmt.Fprintf(w, "  Families: %d  Items: %d  Roots: %d  Components: %d\n",
		s.TotalNodes, s.TotalItems, len(s.Roots), s.NumComponents)
	fmt.Fprintf(w, "  Largest component: %d  Max depth: %d\n", s.LargestComponent, s.MaxDepth)

	fmt.Fprintln(w, "\n  Depth distribution:")
	for _, b := range s.DepthHistogram {
		if b.Count > 0 {
			barWidth := int(math.Log2(float64(b.Count))) + 2
			fmt.Fprintf(w, "    %5s: %4d  %s\n", b.Label, b.Count, strings.Repeat("=", barWidth))
		}
	}

	listIDs := func(title string, ids []int64) {
		if len(ids) == 0 {
			return
		}
		fmt.Fprintf(w, "  %s: %d\n", title, len(ids))
		limit := topN
		if len(ids) < limit {
			limit = len(ids)
		}
		for _, id := range ids[:limit] {
			fmt.Fprintf(w, "    - %d (%s)\n", id, name(id))
		}
		if len(ids) > limit {
			fmt.Fprintf(w, "    ... and %d more\n", len(ids)-limit)
		}
	}
	d := s.Diagnostics
	if len(d.Rerooted)+len(d.DanglingParents)+len(s.MissingTokens)+len(s.DuplicateTokens)+
		len(d.OrphanAssignments)+len(d.DuplicateAssignments)+d.SkippedRows > 0 {
		fmt.Fprintln(w, "\n  ORDERING & LINKS")
		fmt.Fprintln(w, "  ────────────────────────────────────────")
		if d.SkippedRows > 0 {
			fmt.Fprintf(w, "  Skipped rows (bad or duplicate id): %d\n", d.SkippedRows)
		}
		listIDs("Cycles broken at", d.Rerooted)
		listIDs("Missing parents", d.DanglingParents)
		listIDs("Without sequence token", s.MissingTokens)
		if len(s.DuplicateTokens) > 0 {
			fmt.Fprintf(w, "  Duplicate sibling tokens: %d\n", len(s.DuplicateTokens))
			for i, dt := range s.DuplicateTokens {
				if i == topN {
					fmt.Fprintf(w, "    ... and %d more\n", len(s.DuplicateTokens)-topN)
					break
				}
				fmt.Fprintf(w, "    - %q shared by %v\n", dt.Token, dt.NodeIDs)
			}
		}
		if len(d.OrphanAssignments) > 0 {
			fmt.Fprintf(w, "  Assignments on unknown families or items: %d\n", len(d.OrphanAssignments))
		}
		if len(d.DuplicateAssignments) > 0 {
			fmt.Fprintf(w, "  Same item assigned twice to one family (ignored): %v\n", d.DuplicateAssignments)
		}
	}

	f := report.Formulas
	fmt.Fprintln(w, "\n  FORMULAS")
	fmt.Fprintln(w, "  ────────────────────────────────────────")
	fmt.Fprintf(w, "  Assignments: %d  Valid: %d  Problems: %d\n", f.TotalAssignments, f.Valid, len(f.Problems))
	limit := topN
	if len(f.Problems) < limit {
		limit = len(f.Problems)
	}
	for _, p := range f.Problems[:limit] {
		detail := p.Detail
		if len(p.Missing) > 0 {
			detail = "missing " + strings.Join(p.Missing, ", ")
		}
		fmt.Fprintf(w, "    %d %-16s %s  %s  %s\n", p.AssignmentID, p.Kind, name(p.NodeID),
			truncTitle(p.Formula, 30), detail)
	}
	if len(f.Problems) > limit {
		fmt.Fprintf(w, "    ... and %d more\n", len(f.Problems)-limit)
	}
	fmt.Fprintln(w)
}

func truncTitle(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

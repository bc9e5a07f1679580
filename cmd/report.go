package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hnanmal/B-note/internal/boq"
	"github.com/hnanmal/B-note/internal/db"
	"github.com/hnanmal/B-note/internal/results"
)

var (
	reportRevision string
	reportBuilding string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Quantity and cost report of a revision and building, priced by selected work masters",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := partitionFromConfig()
		if err != nil {
			return err
		}
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		rep, err := buildReport(cmd.Context(), d, p)
		if err != nil {
			return err
		}
		if wantJSON() {
			return printJSON(cmd.OutOrStdout(), rep)
		}
		printReport(cmd.OutOrStdout(), rep)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportRevision, "revision", "", "Revision key")
	reportCmd.Flags().StringVar(&reportBuilding, "building", "", "Building name")
	rootCmd.AddCommand(reportCmd)
}

func buildReport(ctx context.Context, d *db.DB, p partition) (*boq.Report, error) {
	recs, err := d.ListResults(ctx, results.Filter{RevisionKey: p.revision, BuildingName: p.building})
	if err != nil {
		return nil, err
	}
	sels, err := d.Selections(ctx)
	if err != nil {
		return nil, err
	}
	wms, err := d.WorkMasters(ctx)
	if err != nil {
		return nil, err
	}
	return boq.Build(p.revision, p.building, recs, selectedWorkMasters(sels, wms)), nil
}

// selectedWorkMasters maps standard item ids to the work master selected
// for them. Selections pointing at unknown work masters are dropped.
func selectedWorkMasters(sels []db.Selection, wms []db.WorkMaster) map[int64]boq.WorkMaster {
	byID := make(map[int64]db.WorkMaster, len(wms))
	for _, w := range wms {
		byID[w.ID] = w
	}
	out := make(map[int64]boq.WorkMaster, len(sels))
	for _, s := range sels {
		w, ok := byID[s.WorkMasterID]
		if !ok {
			continue
		}
		out[s.StandardItemID] = billingWorkMaster(w)
	}
	return out
}

func billingWorkMaster(w db.WorkMaster) boq.WorkMaster {
	desc := firstNonEmpty(w.CatSmallDesc, w.CatMidDesc, w.CatLargeDesc)
	if spec := strings.TrimSpace(w.AddSpec); spec != "" {
		if desc != "" {
			desc += ", "
		}
		desc += spec
	}
	return boq.WorkMaster{
		ID:          w.ID,
		Code:        w.Code,
		Gauge:       w.Gauge,
		Description: desc,
		UOM:         firstNonEmpty(w.UOM1, w.UOM2),
		UnitPrice:   w.UnitPrice,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func printReport(w io.Writer, rep *boq.Report) {
	fmt.Fprintf(w, "Quantity report %s / %s\n\n", rep.Revision, rep.Building)
	if len(rep.Lines) > 0 {
		t := newTable(w, "WORK MASTER", "DESCRIPTION", "UOM", "QUANTITY", "UNIT PRICE", "AMOUNT")
		for _, l := range rep.Lines {
			t.AppendRow([]any{l.Label, l.Description, l.UOM, l.Quantity.String(),
				l.UnitPrice.StringFixed(boq.AmountPlaces), humanize.CommafWithDigits(l.Amount.InexactFloat64(), boq.AmountPlaces)})
		}
		t.AppendFooter([]any{"", "", "", "", "TOTAL", humanize.CommafWithDigits(rep.Total.InexactFloat64(), boq.AmountPlaces)})
		t.Render()
	} else {
		fmt.Fprintln(w, "No priced quantities.")
	}

	if len(rep.Unpriced) > 0 {
		fmt.Fprintf(w, "\n%d results have no selected work master:\n", len(rep.Unpriced))
		t := newTable(w, "ITEM", "CATEGORY", "QUANTITY")
		for _, u := range rep.Unpriced {
			t.AppendRow([]any{u.ItemID, u.CategoryPath, u.Quantity.String()})
		}
		t.Render()
	}
}

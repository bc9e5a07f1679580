package cmd

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hnanmal/B-note/internal/boq"
	"github.com/hnanmal/B-note/internal/db"
	"github.com/hnanmal/B-note/internal/gauge"
)

var wmLimit int

var workMasterCmd = &cobra.Command{
	Use:     "workmaster",
	Aliases: []string{"wm"},
	Short:   "Search work masters and select them for standard items",
}

var wmSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find work masters whose code or descriptions contain every term",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		wms, err := d.SearchWorkMasters(cmd.Context(), strings.Join(args, " "), wmLimit)
		if err != nil {
			return err
		}
		if wantJSON() {
			return printJSON(cmd.OutOrStdout(), wms)
		}
		printWorkMasters(cmd.OutOrStdout(), wms)
		return nil
	},
}

var wmSelectCmd = &cobra.Command{
	Use:   "select <item-id> <work-master-id>",
	Short: "Bill a standard item against a work master",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		itemID, err := parseIDArg("item id", args[0])
		if err != nil {
			return err
		}
		wmID, err := parseIDArg("work master id", args[1])
		if err != nil {
			return err
		}
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.SelectWorkMaster(cmd.Context(), itemID, wmID); err != nil {
			return err
		}
		wm, err := d.GetWorkMaster(cmd.Context(), wmID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Item %d -> %s\n", itemID, gauge.Label(wm.Code, wm.Gauge))
		return nil
	},
}

var wmClearCmd = &cobra.Command{
	Use:   "clear <item-id>",
	Short: "Remove the work master selection of a standard item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		itemID, err := parseIDArg("item id", args[0])
		if err != nil {
			return err
		}
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()
		return d.ClearSelection(cmd.Context(), itemID)
	},
}

var gaugeCmd = &cobra.Command{
	Use:   "gauge",
	Short: "Manage lettered gauge variants of a work master",
}

var gaugeAddCmd = &cobra.Command{
	Use:   "add <work-master-id>",
	Short: "Copy a work master as the next free gauge letter of its code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg("work master id", args[0])
		if err != nil {
			return err
		}
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		wm, err := d.AddGauge(cmd.Context(), id)
		if err != nil {
			return err
		}
		if wantJSON() {
			return printJSON(cmd.OutOrStdout(), wm)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s [%d]\n", gauge.Label(wm.Code, wm.Gauge), wm.ID)
		return nil
	},
}

var gaugeRemoveCmd = &cobra.Command{
	Use:   "remove <work-master-id>",
	Short: "Delete a gauge variant and relabel the remaining gauges",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg("work master id", args[0])
		if err != nil {
			return err
		}
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		renames, err := d.RemoveGauge(cmd.Context(), id)
		if err != nil {
			return err
		}
		if wantJSON() {
			return printJSON(cmd.OutOrStdout(), map[string]any{"removed": id, "renamed": renames})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed work master %d\n", id)
		olds := make([]string, 0, len(renames))
		for old := range renames {
			olds = append(olds, old)
		}
		sort.Strings(olds)
		for _, old := range olds {
			fmt.Fprintf(cmd.OutOrStdout(), "  gauge %s -> %s\n", old, renames[old])
		}
		return nil
	},
}

func init() {
	wmSearchCmd.Flags().IntVar(&wmLimit, "limit", 20, "Maximum results")
	workMasterCmd.AddCommand(wmSearchCmd, wmSelectCmd, wmClearCmd)
	gaugeCmd.AddCommand(gaugeAddCmd, gaugeRemoveCmd)
	rootCmd.AddCommand(workMasterCmd, gaugeCmd)
}

func parseIDArg(what, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", what, s)
	}
	return id, nil
}

func printWorkMasters(w io.Writer, wms []db.WorkMaster) {
	if len(wms) == 0 {
		fmt.Fprintln(w, "No work masters found.")
		return
	}
	t := newTable(w, "ID", "WORK MASTER", "DESCRIPTION", "UOM", "UNIT PRICE")
	for _, wm := range wms {
		b := billingWorkMaster(wm)
		t.AppendRow([]any{wm.ID, gauge.Label(wm.Code, wm.Gauge), b.Description, b.UOM,
			wm.UnitPrice.StringFixed(boq.AmountPlaces)})
	}
	t.Render()
}

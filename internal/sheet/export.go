// Package sheet reads catalog rows from and writes reports to .xlsx
// workbooks.
package sheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/hnanmal/B-note/internal/boq"
	"github.com/hnanmal/B-note/internal/results"
	"github.com/hnanmal/B-note/internal/tree"
)

// Sheet names used by Workbook.
const (
	TreeSheet    = "Tree"
	ResultsSheet = "Results"
	ReportSheet  = "Report"
)

// Workbook accumulates sheets and writes them as one .xlsx file.
type Workbook struct {
	f      *excelize.File
	header int
	sheets int
}

// NewWorkbook returns an empty workbook.
func NewWorkbook() (*Workbook, error) {
	f := excelize.NewFile()
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E7E6E6"}},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating header style: %w", err)
	}
	return &Workbook{f: f, header: header}, nil
}

func (w *Workbook) addSheet(name string, header []any, widths map[string]float64) error {
	if w.sheets == 0 {
		// Reuse the default sheet so the workbook has no empty first tab.
		if err := w.f.SetSheetName(w.f.GetSheetName(0), name); err != nil {
			return fmt.Errorf("naming sheet %s: %w", name, err)
		}
	} else if _, err := w.f.NewSheet(name); err != nil {
		return fmt.Errorf("adding sheet %s: %w", name, err)
	}
	w.sheets++
	if err := w.f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("writing %s header: %w", name, err)
	}
	if err := w.f.SetRowStyle(name, 1, 1, w.header); err != nil {
		return fmt.Errorf("styling %s header: %w", name, err)
	}
	for col, width := range widths {
		if err := w.f.SetColWidth(name, col, col, width); err != nil {
			return fmt.Errorf("sizing %s column %s: %w", name, col, err)
		}
	}
	return nil
}

func (w *Workbook) setRow(sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, row, err)
	}
	return nil
}

func optional[T any](p *T) any {
	if p == nil {
		return ""
	}
	return *p
}

// AddTree writes the flattened catalog tree.
func (w *Workbook) AddTree(rows []tree.Row) error {
	header := []any{"Level", "Sequence", "Name", "Kind", "ID", "Parent", "Assignment", "Formula", "Note"}
	if err := w.addSheet(TreeSheet, header, map[string]float64{"C": 40, "H": 30, "I": 30}); err != nil {
		return err
	}
	for i, r := range rows {
		values := []any{
			r.Level, r.SequenceToken, r.Name, r.Kind, r.ID, optional(r.ParentID),
			optional(r.AssignmentID), optional(r.Formula), optional(r.Note),
		}
		if err := w.setRow(TreeSheet, i+2, values); err != nil {
			return err
		}
	}
	return nil
}

// AddResults writes computed records.
func (w *Workbook) AddResults(recs []results.Record) error {
	header := []any{"Revision", "Building", "Category", "Formula", "Substituted", "Value", "Note", "Batch", "Created"}
	if err := w.addSheet(ResultsSheet, header, map[string]float64{"C": 50, "D": 25, "E": 25}); err != nil {
		return err
	}
	for i, r := range recs {
		values := []any{
			r.RevisionKey, r.BuildingName, r.CategoryPath, r.Formula, r.SubstitutedFormula,
			optional(r.Value), r.ComputedNote, r.BatchID, r.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		if err := w.setRow(ResultsSheet, i+2, values); err != nil {
			return err
		}
	}
	return nil
}

// AddReport writes a quantity report followed by its unpriced records.
func (w *Workbook) AddReport(rep *boq.Report) error {
	header := []any{"Work master", "Description", "UOM", "Quantity", "Unit price", "Amount", "Records"}
	if err := w.addSheet(ReportSheet, header, map[string]float64{"A": 18, "B": 40}); err != nil {
		return err
	}
	row := 2
	for _, l := range rep.Lines {
		qty, _ := l.Quantity.Float64()
		price, _ := l.UnitPrice.Float64()
		amount, _ := l.Amount.Float64()
		if err := w.setRow(ReportSheet, row, []any{l.Label, l.Description, l.UOM, qty, price, amount, l.Records}); err != nil {
			return err
		}
		row++
	}
	total, _ := rep.Total.Float64()
	if err := w.setRow(ReportSheet, row, []any{"Total", "", "", "", "", total}); err != nil {
		return err
	}
	row += 2
	for _, u := range rep.Unpriced {
		qty, _ := u.Quantity.Float64()
		if err := w.setRow(ReportSheet, row, []any{"(no work master)", u.CategoryPath, "", qty}); err != nil {
			return err
		}
		row++
	}
	return nil
}

// Write serializes the workbook and releases it.
func (w *Workbook) Write(out io.Writer) error {
	defer w.f.Close()
	if _, err := w.f.WriteTo(out); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

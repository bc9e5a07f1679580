package sheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hnanmal/B-note/internal/db"
	"github.com/hnanmal/B-note/internal/symbols"
	"github.com/hnanmal/B-note/internal/tree"
)

// WorkMasterHeaderRow is the 1-based row holding the work master headers.
const WorkMasterHeaderRow = 4

// Stats counts what an import read.
type Stats struct {
	Rows        int   `json:"rows"`
	Imported    int   `json:"imported"`
	Skipped     int   `json:"skipped"`
	SkippedRows []int `json:"skipped_rows,omitempty"` // 1-based sheet rows
}

func (s *Stats) skip(row int) {
	s.Skipped++
	s.SkippedRows = append(s.SkippedRows, row)
}

func firstSheetRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// symbolColumns are the header names ImportSymbols understands.
var symbolColumns = []string{"id", "family_id", "symbol_key", "symbol_value", "calc_code"}

// ImportSymbols reads calc dictionary entries from the first sheet. The
// first row names the columns id, family_id, symbol_key, symbol_value and
// optionally calc_code, in any order. Rows with a malformed id or family
// id, or a blank key, are skipped and counted.
func ImportSymbols(r io.Reader) ([]symbols.Entry, Stats, error) {
	rows, err := firstSheetRows(r)
	if err != nil {
		return nil, Stats{}, err
	}
	if len(rows) == 0 {
		return nil, Stats{}, fmt.Errorf("symbol sheet is empty")
	}
	idx := map[string]int{}
	for i, h := range rows[0] {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range symbolColumns[:4] {
		if _, ok := idx[name]; !ok {
			return nil, Stats{}, fmt.Errorf("symbol sheet lacks column %q", name)
		}
	}
	calcCol, hasCalc := idx["calc_code"]
	if !hasCalc {
		calcCol = -1
	}

	var st Stats
	var out []symbols.Entry
	for i, row := range rows[1:] {
		line := i + 2
		if len(strings.Join(row, "")) == 0 {
			continue
		}
		st.Rows++
		id, ok := tree.ParseID(cell(row, idx["id"]))
		if !ok {
			st.skip(line)
			continue
		}
		family, ok := tree.ParseID(cell(row, idx["family_id"]))
		if !ok {
			st.skip(line)
			continue
		}
		key := cell(row, idx["symbol_key"])
		if key == "" {
			st.skip(line)
			continue
		}
		e := symbols.Entry{ID: id, ScopeNodeID: family, Key: key, Value: cell(row, idx["symbol_value"])}
		if code := cell(row, calcCol); code != "" {
			e.CalcCode = &code
		}
		out = append(out, e)
		st.Imported++
	}
	return out, st, nil
}

// ImportWorkMasters reads work masters from the first sheet. Headers sit on
// WorkMasterHeaderRow; data columns map to db.WorkMasterColumns in order,
// extra columns are ignored. Rows without a work master code or with an
// unparsable price are skipped and counted.
func ImportWorkMasters(r io.Reader) ([]db.WorkMaster, Stats, error) {
	rows, err := firstSheetRows(r)
	if err != nil {
		return nil, Stats{}, err
	}
	if len(rows) < WorkMasterHeaderRow {
		return nil, Stats{}, fmt.Errorf("work master sheet has no header on row %d", WorkMasterHeaderRow)
	}

	var st Stats
	var out []db.WorkMaster
	for i, row := range rows[WorkMasterHeaderRow:] {
		line := WorkMasterHeaderRow + i + 1
		if len(strings.Join(row, "")) == 0 {
			continue
		}
		st.Rows++
		var wm db.WorkMaster
		ok := true
		for c, name := range db.WorkMasterColumns {
			if c >= len(row) {
				break
			}
			if !wm.Set(name, cell(row, c)) {
				ok = false
				break
			}
		}
		if !ok || wm.Code == "" {
			st.skip(line)
			continue
		}
		out = append(out, wm)
		st.Imported++
	}
	return out, st, nil
}

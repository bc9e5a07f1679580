// Package boq totals computed quantities per selected work master and
// prices them.
package boq

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/hnanmal/B-note/internal/gauge"
	"github.com/hnanmal/B-note/internal/results"
)

// AmountPlaces is the rounding applied to line amounts.
const AmountPlaces = 2

// WorkMaster is the priced record a standard item is billed against.
type WorkMaster struct {
	ID          int64
	Code        string
	Gauge       string
	Description string
	UOM         string
	UnitPrice   decimal.Decimal
}

// Line is one billed work master.
type Line struct {
	WorkMasterID int64           `json:"work_master_id"`
	Label        string          `json:"label"`
	Code         string          `json:"code"`
	Gauge        string          `json:"gauge"`
	Description  string          `json:"description"`
	UOM          string          `json:"uom"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Amount       decimal.Decimal `json:"amount"`
	Records      int             `json:"records"`
}

// Unpriced is a record whose standard item has no selected work master.
type Unpriced struct {
	ItemID       int64           `json:"item_id"`
	CategoryPath string          `json:"category_path"`
	Quantity     decimal.Decimal `json:"quantity"`
}

// Report is the quantity report of one (revision, building) partition.
type Report struct {
	Revision string          `json:"revision"`
	Building string          `json:"building"`
	Lines    []Line          `json:"lines"`
	Unpriced []Unpriced      `json:"unpriced"`
	Total    decimal.Decimal `json:"total"`
}

// Build groups recs by the work master selected for their target item.
// Records without a value are ignored.
func Build(revision, building string, recs []results.Record, selected map[int64]WorkMaster) *Report {
	rep := &Report{Revision: revision, Building: building, Lines: []Line{}, Unpriced: []Unpriced{}}
	lines := map[int64]*Line{}
	unpriced := map[string]*Unpriced{}

	for _, r := range recs {
		if r.Value == nil {
			continue
		}
		qty := decimal.NewFromFloat(*r.Value)
		var itemID int64
		if r.TargetItemID != nil {
			itemID = *r.TargetItemID
		}
		wm, ok := selected[itemID]
		if !ok {
			u := unpriced[r.CategoryPath]
			if u == nil {
				u = &Unpriced{ItemID: itemID, CategoryPath: r.CategoryPath}
				unpriced[r.CategoryPath] = u
			}
			u.Quantity = u.Quantity.Add(qty)
			continue
		}
		l := lines[wm.ID]
		if l == nil {
			l = &Line{
				WorkMasterID: wm.ID,
				Label:        gauge.Label(wm.Code, wm.Gauge),
				Code:         wm.Code,
				Gauge:        gauge.Normalize(wm.Gauge),
				Description:  wm.Description,
				UOM:          wm.UOM,
				UnitPrice:    wm.UnitPrice,
			}
			lines[wm.ID] = l
		}
		l.Quantity = l.Quantity.Add(qty)
		l.Records++
	}

	for _, l := range lines {
		l.Amount = l.Quantity.Mul(l.UnitPrice).Round(AmountPlaces)
		rep.Total = rep.Total.Add(l.Amount)
		rep.Lines = append(rep.Lines, *l)
	}
	sort.Slice(rep.Lines, func(i, j int) bool {
		a, b := rep.Lines[i], rep.Lines[j]
		if c := gauge.Compare(a.Code, a.Gauge, b.Code, b.Gauge); c != 0 {
			return c < 0
		}
		return a.WorkMasterID < b.WorkMasterID
	})
	for _, u := range unpriced {
		rep.Unpriced = append(rep.Unpriced, *u)
	}
	sort.Slice(rep.Unpriced, func(i, j int) bool {
		return rep.Unpriced[i].CategoryPath < rep.Unpriced[j].CategoryPath
	})
	return rep
}

// Package calc runs the batch computation: it assembles the catalog tree,
// resolves each assignment's symbols, evaluates its formula and reconciles
// the resulting records.
package calc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hnanmal/B-note/internal/formula"
	"github.com/hnanmal/B-note/internal/results"
	"github.com/hnanmal/B-note/internal/symbols"
	"github.com/hnanmal/B-note/internal/tree"
)

// ManualInputNote marks records computed for manual-input nodes.
const ManualInputNote = "manual input"

// PathSeparator joins category path segments.
const PathSeparator = " > "

// ErrUnknownRoot is returned when Options.RootID names no node.
var ErrUnknownRoot = errors.New("unknown family node")

// ErrScopedOverwrite is returned when a subtree run asks for overwrite mode.
// Overwrite replaces the whole partition, which would drop every result
// outside the subtree.
var ErrScopedOverwrite = errors.New("overwrite mode cannot be limited to a subtree")

// Source supplies catalog rows.
type Source interface {
	CatalogInput(ctx context.Context) (tree.Input, error)
	SymbolEntries(ctx context.Context) ([]symbols.Entry, error)
}

// Options selects what to compute and where to write it.
type Options struct {
	Revision string
	Building string
	Mode     results.Mode
	RootID   *int64 // limit to this family node and its descendants
	DryRun   bool
}

// Skipped describes an assignment that produced no record.
type Skipped struct {
	AssignmentID int64  `json:"assignment_id"`
	NodeID       int64  `json:"node_id"`
	ItemID       int64  `json:"item_id"`
	Path         string `json:"path"`
	Formula      string `json:"formula"`
	Reason       string `json:"reason"`
}

// Report is the outcome of one Compute run.
type Report struct {
	Revision    string           `json:"revision"`
	Building    string           `json:"building"`
	Mode        results.Mode     `json:"mode"`
	DryRun      bool             `json:"dry_run"`
	Considered  int              `json:"considered"`
	Evaluated   int              `json:"evaluated"`
	Skipped     []Skipped        `json:"skipped"`
	Records     []results.Record `json:"records,omitempty"`
	Summary     results.Summary  `json:"summary"`
	Diagnostics tree.Diagnostics `json:"diagnostics"`
}

// Engine wires a Source to a Reconciler.
type Engine struct {
	src Source
	rec *results.Reconciler
	log *zap.Logger
}

// NewEngine returns an Engine. A nil logger discards output.
func NewEngine(src Source, rec *results.Reconciler, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{src: src, rec: rec, log: log}
}

// Compute evaluates every assignment with a formula and reconciles the
// records into (Revision, Building). A failing formula is skipped and
// reported; it never stops the others.
func (e *Engine) Compute(ctx context.Context, opts Options) (*Report, error) {
	if opts.Mode == "" {
		opts.Mode = results.ModeAppend
	}
	if opts.RootID != nil && opts.Mode == results.ModeOverwrite {
		return nil, ErrScopedOverwrite
	}
	in, err := e.src.CatalogInput(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	entries, err := e.src.SymbolEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading symbols: %w", err)
	}

	forest := tree.Build(in)
	if opts.RootID != nil {
		if _, ok := forest.Node(*opts.RootID); !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownRoot, *opts.RootID)
		}
	}

	rep := &Report{
		Revision:    opts.Revision,
		Building:    opts.Building,
		Mode:        opts.Mode,
		DryRun:      opts.DryRun,
		Diagnostics: forest.Diagnostics(),
		Skipped:     []Skipped{},
	}
	recs, skipped, considered := Candidates(forest, entries, opts)
	rep.Considered = considered
	rep.Evaluated = len(recs)
	rep.Skipped = append(rep.Skipped, skipped...)
	for _, s := range skipped {
		e.log.Debug("skipped assignment",
			zap.Int64("assignment", s.AssignmentID),
			zap.String("path", s.Path),
			zap.String("formula", s.Formula),
			zap.String("reason", s.Reason))
	}

	if opts.DryRun {
		rep.Records = recs
		e.log.Info("dry run", zap.Int("evaluated", rep.Evaluated), zap.Int("skipped", len(skipped)))
		return rep, nil
	}

	sum, err := e.rec.Reconcile(ctx, opts.Mode, opts.Revision, opts.Building, recs)
	if err != nil {
		return nil, fmt.Errorf("reconciling results: %w", err)
	}
	rep.Summary = sum
	if sum.Conflicts > 0 {
		e.log.Warn("identity key conflicts in batch", zap.Int("conflicts", sum.Conflicts))
	}
	e.log.Info("computed",
		zap.String("revision", opts.Revision),
		zap.String("building", opts.Building),
		zap.String("mode", string(opts.Mode)),
		zap.String("batch", sum.BatchID),
		zap.Int("evaluated", rep.Evaluated),
		zap.Int("skipped", len(skipped)),
		zap.Int("inserted", sum.Inserted),
		zap.Int("replaced", sum.Replaced),
		zap.Int("deleted", sum.Deleted))
	return rep, nil
}

// Candidates evaluates the forest's assignments into records. It returns
// the records, the skipped assignments and how many assignments were in
// scope.
func Candidates(forest *tree.Forest, entries []symbols.Entry, opts Options) ([]results.Record, []Skipped, int) {
	var scope map[int64]bool
	if opts.RootID != nil {
		scope = forest.Descendants(*opts.RootID)
	}
	ancestry := forest.Ancestry()

	var recs []results.Record
	var skipped []Skipped
	considered := 0
	for _, a := range forest.Assignments() {
		if scope != nil && !scope[a.OwningNodeID] {
			continue
		}
		considered++
		path := CategoryPath(forest, a)
		skip := Skipped{
			AssignmentID: a.ID,
			NodeID:       a.OwningNodeID,
			ItemID:       a.TargetItemID,
			Path:         path,
		}
		src := ""
		if a.Formula != nil {
			src = strings.TrimSpace(*a.Formula)
		}
		skip.Formula = src
		if formula.Normalize(src) == "" {
			skip.Reason = "no formula"
			skipped = append(skipped, skip)
			continue
		}

		node, _ := forest.Node(a.OwningNodeID)
		ns := symbols.Namespace{}
		note := ""
		if a.Note != nil {
			note = strings.TrimSpace(*a.Note)
		}
		if node != nil && node.ManualInput {
			note = ManualInputNote
		} else {
			ns = symbols.Resolve(a.OwningNodeID, entries, ancestry)
		}

		v, err := formula.Diagnose(src, ns)
		if err != nil {
			skip.Reason = err.Error()
			skipped = append(skipped, skip)
			continue
		}
		assignmentID, itemID := a.ID, a.TargetItemID
		recs = append(recs, results.Record{
			IdentityKey:        results.IdentityKey(opts.Revision, opts.Building, src, results.TargetRef(a.OwningNodeID, a.TargetItemID)),
			RevisionKey:        opts.Revision,
			BuildingName:       opts.Building,
			CategoryPath:       path,
			Formula:            src,
			SubstitutedFormula: formula.Substitute(src, ns),
			Value:              &v,
			ComputedNote:       note,
			AssignmentID:       &assignmentID,
			TargetItemID:       &itemID,
		})
	}
	return recs, skipped, considered
}

// CategoryPath names an assignment by its family path followed by the
// standard item path.
func CategoryPath(forest *tree.Forest, a tree.Assignment) string {
	parts := append(forest.Path(a.OwningNodeID), forest.ItemPath(a.TargetItemID)...)
	return strings.Join(parts, PathSeparator)
}

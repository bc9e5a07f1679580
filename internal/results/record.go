// Package results holds computed quantity records and reconciles a batch of
// them into a store, partitioned by revision and building.
package results

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hnanmal/B-note/internal/formula"
)

// Record is one computed quantity.
type Record struct {
	IdentityKey        string    `json:"identity_key" db:"identity_key" validate:"required,max=512"`
	RevisionKey        string    `json:"revision_key" db:"revision_key" validate:"max=128"`
	BuildingName       string    `json:"building_name" db:"building_name" validate:"max=256"`
	CategoryPath       string    `json:"category_path" db:"category_path"`
	Formula            string    `json:"formula" db:"formula"`
	SubstitutedFormula string    `json:"substituted_formula" db:"substituted_formula"`
	Value              *float64  `json:"value" db:"value"`
	ComputedNote       string    `json:"computed_note,omitempty" db:"computed_note"`
	AssignmentID       *int64    `json:"assignment_id,omitempty" db:"assignment_id"`
	TargetItemID       *int64    `json:"target_item_id,omitempty" db:"target_item_id"`
	BatchID            string    `json:"batch_id" db:"batch_id"`
	CreatedAt          time.Time `json:"created_at" db:"-"`
}

// Mode selects how a batch is written to its partition.
type Mode string

const (
	// ModeAppend upserts by identity key and leaves other rows alone.
	ModeAppend Mode = "append"
	// ModeOverwrite clears the partition before inserting the batch.
	ModeOverwrite Mode = "overwrite"
)

// ParseMode accepts "append" or "overwrite", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAppend, ModeOverwrite:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Summary counts what a reconcile did.
type Summary struct {
	Inserted  int    `json:"inserted"`
	Replaced  int    `json:"replaced"`
	Deleted   int    `json:"deleted"`
	Conflicts int    `json:"conflicts"`
	BatchID   string `json:"batch_id"`
}

// TargetRef names the assignment slot a record was computed for.
func TargetRef(owningNodeID, targetItemID int64) string {
	return fmt.Sprintf("node:%d/item:%d", owningNodeID, targetItemID)
}

// IdentityKey derives the stable key of a record. Revision and building are
// escaped so separators inside them cannot collide; formula and target are
// fingerprinted after normalizing the formula text.
func IdentityKey(revision, building, formulaText, targetRef string) string {
	h := sha256.New()
	h.Write([]byte(formula.Normalize(formulaText)))
	h.Write([]byte{0})
	h.Write([]byte(targetRef))
	sum := hex.EncodeToString(h.Sum(nil))
	return url.PathEscape(revision) + "/" + url.PathEscape(building) + "/" + sum[:32]
}

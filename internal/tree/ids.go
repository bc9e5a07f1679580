package tree

import (
	"math"
	"strconv"
	"strings"
)

// ParseID parses a row id coming from an import. Spreadsheet readers hand
// integers over as "12" or "12.0"; anything non-integral, non-positive,
// NaN or infinite is rejected so the caller can skip the row.
func ParseID(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id, id > 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f != math.Trunc(f) || f <= 0 || f > math.MaxInt64/2 {
		return 0, false
	}
	return int64(f), true
}

// ParseOptionalID is ParseID for nullable parent columns: blank means no
// parent, a malformed value is reported as !ok.
func ParseOptionalID(s string) (*int64, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, true
	}
	id, ok := ParseID(s)
	if !ok {
		return nil, false
	}
	return &id, true
}

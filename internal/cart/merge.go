// Package cart holds the line-identity and merge logic shared by the guest
// cart, the authenticated cart and the login-time reconciler.
package cart

import (
	"fmt"
	"sort"
	"strings"
)

// Line is one cart line as the merge logic sees it. Exactly one of ProductID
// or BundleID is set.
type Line struct {
	ProductID *int64
	BundleID  *int64
	OptionKey string
	Quantity  int
	UnitPrice float64
}

// OptionKey builds the canonical identity key for a variant descriptor:
// attribute names sorted, "name=value" pairs joined with "|". Two options
// with the same attributes always produce the same key, regardless of the
// order the client serialized them in.
func OptionKey(option map[string]string) string {
	if len(option) == 0 {
		return ""
	}

	names := make([]string, 0, len(option))
	for name := range option {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+option[name])
	}
	return strings.Join(pairs, "|")
}

// Key returns the full identity of a line: (product_id, bundle_id, option).
func (l Line) Key() string {
	var product, bundle int64 = -1, -1
	if l.ProductID != nil {
		product = *l.ProductID
	}
	if l.BundleID != nil {
		bundle = *l.BundleID
	}
	return fmt.Sprintf("p:%d|b:%d|o:%s", product, bundle, l.OptionKey)
}

// MergeLines folds src into dst: a src line whose identity matches a dst
// line adds its quantity to it; otherwise the line is appended. dst order is
// preserved, new lines keep src order. Inputs are not mutated.
func MergeLines(dst, src []Line) []Line {
	merged := make([]Line, len(dst))
	copy(merged, dst)

	index := make(map[string]int, len(merged))
	for i, line := range merged {
		index[line.Key()] = i
	}

	for _, line := range src {
		if i, ok := index[line.Key()]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		index[line.Key()] = len(merged)
		merged = append(merged, line)
	}

	return merged
}

package ledger

import (
	"sort"

	"github.com/istmo-digital/docintel/internal/extract"
)

// FieldChange is one field-level difference between two record versions.
type FieldChange struct {
	Field  string `json:"field"`
	Before string `json:"before,omitempty"`
	After  string `json:"after,omitempty"`
}

// Diff summarizes how a record changed between two versions.
type Diff struct {
	Added    []FieldChange `json:"added,omitempty"`
	Removed  []FieldChange `json:"removed,omitempty"`
	Modified []FieldChange `json:"modified,omitempty"`
}

func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Modified) == 0
}

// Compare reports the field-level differences from before to after. Field
// names within each bucket are sorted for stable output.
func Compare(before, after *extract.ExtractedRecord) Diff {
	var diff Diff

	for name, fv := range before.Fields {
		other, ok := after.Fields[name]
		switch {
		case !ok:
			diff.Removed = append(diff.Removed, FieldChange{Field: name, Before: fv.Value})
		case other.Value != fv.Value:
			diff.Modified = append(diff.Modified, FieldChange{Field: name, Before: fv.Value, After: other.Value})
		}
	}
	for name, fv := range after.Fields {
		if _, ok := before.Fields[name]; !ok {
			diff.Added = append(diff.Added, FieldChange{Field: name, After: fv.Value})
		}
	}

	sortChanges(diff.Added)
	sortChanges(diff.Removed)
	sortChanges(diff.Modified)
	return diff
}

func sortChanges(changes []FieldChange) {
	sort.Slice(changes, func(i, j int) bool { return changes[i].Field < changes[j].Field })
}

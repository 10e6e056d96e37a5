// Package ranking selects the files a report should highlight or keep.
package ranking

import (
	"sort"
	"strings"

	"github.com/phobologic/contextweaver/internal/graph"
	"github.com/phobologic/contextweaver/internal/model"
)

// Entry is a file with the score it was ranked by.
type Entry struct {
	Path  string
	Value float64
}

// Metric scores a record. ok is false when the record has no value.
type Metric func(r *model.FileRecord) (value float64, ok bool)

// Lines scores by line count.
func Lines(r *model.FileRecord) (float64, bool) {
	return float64(r.Lines), true
}

// Imports scores by number of imports.
func Imports(r *model.FileRecord) (float64, bool) {
	return float64(len(r.Imports)), true
}

// Complexity scores by cyclomatic complexity, when known.
func Complexity(r *model.FileRecord) (float64, bool) {
	if r.Metrics.Complexity == nil {
		return 0, false
	}
	return float64(*r.Metrics.Complexity), true
}

// Centrality scores by the precomputed file ranks.
func Centrality(ranks map[string]float64) Metric {
	return func(r *model.FileRecord) (float64, bool) {
		v, ok := ranks[r.Path]
		return v, ok
	}
}

// Top returns up to n records with the highest positive score, highest
// first. Ties are broken by path.
func Top(records []model.FileRecord, n int, metric Metric) []Entry {
	var entries []Entry
	for i := range records {
		v, ok := metric(&records[i])
		if !ok || v <= 0 {
			continue
		}
		entries = append(entries, Entry{Path: records[i].Path, Value: v})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return entries[i].Path < entries[j].Path
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// SelectFiles keeps the maxFiles best-ranked records, returned in path order.
// If maxFiles is <= 0 or >= len(records), records is returned unchanged.
func SelectFiles(records []model.FileRecord, ranks map[string]float64, maxFiles int) []model.FileRecord {
	if maxFiles <= 0 || maxFiles >= len(records) {
		return records
	}

	keep := make(map[string]struct{}, maxFiles)
	for _, e := range Top(records, maxFiles, Centrality(ranks)) {
		keep[e.Path] = struct{}{}
	}
	// Zero-ranked files can only fill remaining slots in path order.
	for i := 0; i < len(records) && len(keep) < maxFiles; i++ {
		keep[records[i].Path] = struct{}{}
	}

	selected := make([]model.FileRecord, 0, maxFiles)
	for i := range records {
		if _, ok := keep[records[i].Path]; ok {
			selected = append(selected, records[i])
		}
	}
	return selected
}

// FilterByType keeps the records defining a type whose name contains substr
// (case-insensitive), plus the files they depend on and the files depending
// on them. Records keep their order.
func FilterByType(records []model.FileRecord, substr string) []model.FileRecord {
	lower := strings.ToLower(substr)
	owners := graph.TypeOwners(records)

	matchedFiles := make(map[string]struct{})
	matchedTypes := make(map[string]struct{})
	for i := range records {
		for _, t := range records[i].Types {
			if strings.Contains(strings.ToLower(t), lower) {
				matchedTypes[t] = struct{}{}
				matchedFiles[records[i].Path] = struct{}{}
			}
		}
	}
	if len(matchedFiles) == 0 {
		return nil
	}

	related := make(map[string]struct{}, len(matchedFiles))
	for p := range matchedFiles {
		related[p] = struct{}{}
	}
	for i := range records {
		r := &records[i]
		_, isMatched := matchedFiles[r.Path]
		for _, dep := range r.Dependencies {
			if isMatched {
				if owner, ok := owners[dep.Target]; ok {
					related[owner] = struct{}{}
				}
			}
			if _, ok := matchedTypes[dep.Target]; ok {
				related[r.Path] = struct{}{}
			}
		}
	}

	var out []model.FileRecord
	for i := range records {
		if _, ok := related[records[i].Path]; ok {
			out = append(out, records[i])
		}
	}
	return out
}

// Package graph derives cross-file structure from analyzed records: type
// ownership, incoming dependencies, file centrality and module coupling.
package graph

import (
	"math"
	"sort"

	"github.com/phobologic/contextweaver/internal/model"
)

// TypeOwners maps every defined type to the path of the first record that
// defines it. Records must be sorted by path.
func TypeOwners(records []model.FileRecord) map[string]string {
	owners := make(map[string]string)
	for i := range records {
		for _, t := range records[i].Types {
			if _, taken := owners[t]; !taken {
				owners[t] = records[i].Path
			}
		}
	}
	return owners
}

// Incoming maps a file path to the entities that depend on a type defined in
// that file, deduplicated and sorted.
type Incoming map[string][]string

// Of returns the incoming entities of path.
func (in Incoming) Of(path string) []string {
	return in[path]
}

// BuildIncoming inverts the outgoing edges of all records. It must run after
// analysis has finished; records must be sorted by path. Edges whose target
// is unknown or owned by the source file itself are ignored.
func BuildIncoming(records []model.FileRecord) Incoming {
	owners := TypeOwners(records)

	sets := make(map[string]map[string]struct{})
	for i := range records {
		r := &records[i]
		for _, dep := range r.Dependencies {
			owner, ok := owners[dep.Target]
			if !ok || owner == r.Path {
				continue
			}
			if sets[owner] == nil {
				sets[owner] = make(map[string]struct{})
			}
			sets[owner][dep.Source] = struct{}{}
		}
	}

	in := make(Incoming, len(sets))
	for path, set := range sets {
		in[path] = sortedKeys(set)
	}
	return in
}

// FileDependency is a resolved edge between two files.
type FileDependency struct {
	Source string
	Target string
	// Types are the referenced types defined in Target.
	Types []string
}

// BuildFileGraph resolves type-level edges to file-level edges.
func BuildFileGraph(records []model.FileRecord) []FileDependency {
	owners := TypeOwners(records)

	type edgeKey struct{ src, tgt string }
	edgeTypes := make(map[edgeKey][]string)

	for i := range records {
		r := &records[i]
		for _, dep := range r.Dependencies {
			owner, ok := owners[dep.Target]
			if !ok || owner == r.Path {
				continue // no self-edges
			}
			key := edgeKey{r.Path, owner}
			if !contains(edgeTypes[key], dep.Target) {
				edgeTypes[key] = append(edgeTypes[key], dep.Target)
			}
		}
	}

	deps := make([]FileDependency, 0, len(edgeTypes))
	for key, types := range edgeTypes {
		sort.Strings(types)
		deps = append(deps, FileDependency{Source: key.src, Target: key.tgt, Types: types})
	}

	// Sort for deterministic output
	sort.Slice(deps, func(i, j int) bool {
		if deps[i].Source != deps[j].Source {
			return deps[i].Source < deps[j].Source
		}
		return deps[i].Target < deps[j].Target
	})

	return deps
}

// Rank applies PageRank over the file graph and returns each file's score.
// Scores sum to 1; without edges every file scores the same.
func Rank(records []model.FileRecord, deps []FileDependency) map[string]float64 {
	if len(records) == 0 {
		return map[string]float64{}
	}

	nodes := make(map[string]struct{}, len(records))
	for i := range records {
		nodes[records[i].Path] = struct{}{}
	}

	if len(deps) == 0 {
		uniform := 1.0 / float64(len(nodes))
		ranks := make(map[string]float64, len(nodes))
		for n := range nodes {
			ranks[n] = uniform
		}
		return ranks
	}

	// Edge from source to target means source references target.
	// Each referenced type is a separate edge.
	outEdges := make(map[string][]string)
	outDegree := make(map[string]int)
	for _, d := range deps {
		for range d.Types {
			outEdges[d.Source] = append(outEdges[d.Source], d.Target)
			outDegree[d.Source]++
		}
	}

	return pageRank(nodes, outEdges, outDegree, 0.85, 100, 1e-6)
}

func pageRank(
	nodes map[string]struct{},
	outEdges map[string][]string,
	outDegree map[string]int,
	alpha float64,
	maxIter int,
	tol float64,
) map[string]float64 {
	n := len(nodes)
	if n == 0 {
		return nil
	}

	rank := make(map[string]float64, n)
	initial := 1.0 / float64(n)
	for node := range nodes {
		rank[node] = initial
	}

	teleport := (1.0 - alpha) / float64(n)

	for iter := 0; iter < maxIter; iter++ {
		newRank := make(map[string]float64, n)

		// Dangling node contribution (nodes with no outgoing edges)
		var danglingSum float64
		for node := range nodes {
			if outDegree[node] == 0 {
				danglingSum += rank[node]
			}
		}
		danglingContrib := alpha * danglingSum / float64(n)

		for node := range nodes {
			newRank[node] = teleport + danglingContrib
		}

		for src, targets := range outEdges {
			contrib := alpha * rank[src] / float64(outDegree[src])
			for _, tgt := range targets {
				newRank[tgt] += contrib
			}
		}

		var diff float64
		for node := range nodes {
			diff += math.Abs(newRank[node] - rank[node])
		}

		rank = newRank

		if diff < tol {
			break
		}
	}

	return rank
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}

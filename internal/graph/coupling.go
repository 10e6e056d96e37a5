package graph

import (
	"github.com/phobologic/contextweaver/internal/model"
)

// typeModules maps every defined type to the module of the first record
// defining it.
func typeModules(records []model.FileRecord) map[string]string {
	modules := make(map[string]string)
	for i := range records {
		for _, t := range records[i].Types {
			if _, taken := modules[t]; !taken {
				modules[t] = records[i].Module
			}
		}
	}
	return modules
}

func moduleEdges(records []model.FileRecord) map[string]map[string]struct{} {
	owners := typeModules(records)

	edges := make(map[string]map[string]struct{})
	for i := range records {
		r := &records[i]
		if edges[r.Module] == nil {
			edges[r.Module] = make(map[string]struct{})
		}
		for _, dep := range r.Dependencies {
			target, ok := owners[dep.Target]
			if !ok || target == r.Module {
				continue
			}
			edges[r.Module][target] = struct{}{}
		}
	}
	return edges
}

// ModuleAdjacency returns, for every module, the sorted modules it depends on.
// Modules without outgoing dependencies map to an empty list.
func ModuleAdjacency(records []model.FileRecord) map[string][]string {
	edges := moduleEdges(records)
	adj := make(map[string][]string, len(edges))
	for m, targets := range edges {
		adj[m] = sortedKeys(targets)
	}
	return adj
}

// Coupling computes afferent and efferent coupling and instability for every
// module that owns at least one record. Ce counts the distinct modules m
// depends on; Ca counts the distinct modules depending on m.
func Coupling(records []model.FileRecord) map[string]model.ModuleMetrics {
	edges := moduleEdges(records)

	afferent := make(map[string]int, len(edges))
	for _, targets := range edges {
		for t := range targets {
			afferent[t]++
		}
	}

	metrics := make(map[string]model.ModuleMetrics, len(edges))
	for m, targets := range edges {
		metrics[m] = model.NewModuleMetrics(afferent[m], len(targets))
	}
	return metrics
}

// DependencyDepth returns the length of the longest chain of module
// dependencies starting at each module. Cycles are cut where they close.
func DependencyDepth(adjacency map[string][]string) map[string]int {
	depths := make(map[string]int, len(adjacency))
	visited := make(map[string]bool, len(adjacency))
	inProgress := make(map[string]bool)

	var dfs func(m string) int
	dfs = func(m string) int {
		if visited[m] {
			return depths[m]
		}
		if inProgress[m] {
			return 0
		}
		inProgress[m] = true

		maxDepth := 0
		for _, dep := range adjacency[m] {
			if d := dfs(dep) + 1; d > maxDepth {
				maxDepth = d
			}
		}

		depths[m] = maxDepth
		visited[m] = true
		inProgress[m] = false
		return maxDepth
	}

	modules := make(map[string]struct{}, len(adjacency))
	for m := range adjacency {
		modules[m] = struct{}{}
	}
	// Sorted traversal keeps cycle cuts stable between runs.
	for _, m := range sortedKeys(modules) {
		dfs(m)
	}
	return depths
}

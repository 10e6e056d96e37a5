package graph

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/phobologic/contextweaver/internal/model"
)

func usage(src, tgt string) model.Relation {
	return model.Relation{Source: src, Target: tgt, Kind: model.Usage}
}

// threeFiles is A defining Foo in M1, B defining Bar in M2 with Bar --> Foo,
// and an unrelated C in M3.
func threeFiles() []model.FileRecord {
	return []model.FileRecord{
		{Path: "M1/a.go", Module: "M1", Types: []string{"Foo"}},
		{Path: "M2/b.go", Module: "M2", Types: []string{"Bar"}, Dependencies: []model.Relation{usage("Bar", "Foo")}},
		{Path: "M3/c.go", Module: "M3"},
	}
}

func TestBuildIncomingEndToEnd(t *testing.T) {
	t.Parallel()

	in := BuildIncoming(threeFiles())

	if diff := cmp.Diff([]string{"Bar"}, in.Of("M1/a.go")); diff != "" {
		t.Errorf("incoming of a.go mismatch (-want +got):\n%s", diff)
	}
	if got := in.Of("M2/b.go"); len(got) != 0 {
		t.Errorf("incoming of b.go = %v, want none", got)
	}
}

func TestCouplingEndToEnd(t *testing.T) {
	t.Parallel()

	metrics := Coupling(threeFiles())

	want := map[string]model.ModuleMetrics{
		"M1": {Afferent: 1, Efferent: 0, Instability: 0},
		"M2": {Afferent: 0, Efferent: 1, Instability: 1},
		"M3": {Afferent: 0, Efferent: 0, Instability: 0},
	}
	if diff := cmp.Diff(want, metrics); diff != "" {
		t.Errorf("coupling mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildIncomingIgnoresSelfAndUnknown(t *testing.T) {
	t.Parallel()

	records := []model.FileRecord{
		{
			Path:  "a.py",
			Types: []string{"Foo", "Helper"},
			Dependencies: []model.Relation{
				usage("Foo", "Helper"),  // same file
				usage("Foo", "Missing"), // unresolved
			},
		},
	}

	if in := BuildIncoming(records); len(in) != 0 {
		t.Errorf("expected no incoming entries, got %v", in)
	}
}

func TestBuildIncomingDeduplicatesAndSorts(t *testing.T) {
	t.Parallel()

	records := []model.FileRecord{
		{Path: "core/store.go", Types: []string{"Store"}},
		{Path: "svc/a.go", Types: []string{"Zed", "Alpha"}, Dependencies: []model.Relation{
			usage("Zed", "Store"),
			usage("Alpha", "Store"),
			{Source: "Alpha", Target: "Store", Kind: model.Inheritance},
		}},
		{Path: "svc/b.go", Types: []string{"Alpha2"}, Dependencies: []model.Relation{usage("Alpha", "Store")}},
	}

	in := BuildIncoming(records)
	if diff := cmp.Diff([]string{"Alpha", "Zed"}, in.Of("core/store.go")); diff != "" {
		t.Errorf("incoming mismatch (-want +got):\n%s", diff)
	}
}

func TestTypeOwnersFirstWins(t *testing.T) {
	t.Parallel()

	records := []model.FileRecord{
		{Path: "a/dup.go", Module: "a", Types: []string{"Dup"}},
		{Path: "b/dup.go", Module: "b", Types: []string{"Dup"}},
		{Path: "c/use.go", Module: "c", Dependencies: []model.Relation{usage("User", "Dup")}},
	}

	if got := TypeOwners(records)["Dup"]; got != "a/dup.go" {
		t.Errorf("owner of Dup = %q, want a/dup.go", got)
	}
	in := BuildIncoming(records)
	if len(in.Of("b/dup.go")) != 0 {
		t.Errorf("second definition should not receive incoming edges")
	}
	adj := ModuleAdjacency(records)
	if diff := cmp.Diff([]string{"a"}, adj["c"]); diff != "" {
		t.Errorf("adjacency mismatch (-want +got):\n%s", diff)
	}
}

func TestCouplingInstabilityBounds(t *testing.T) {
	t.Parallel()

	records := []model.FileRecord{
		{Path: "api/h.go", Module: "api", Types: []string{"Handler"}, Dependencies: []model.Relation{
			usage("Handler", "Service"), usage("Handler", "Store"),
		}},
		{Path: "svc/s.go", Module: "svc", Types: []string{"Service"}, Dependencies: []model.Relation{
			usage("Service", "Store"), usage("Service", "Handler"),
		}},
		{Path: "store/st.go", Module: "store", Types: []string{"Store"}},
		{Path: "svc/internal.go", Module: "svc", Types: []string{"Cache"}, Dependencies: []model.Relation{
			usage("Cache", "Service"), // same module, ignored
		}},
	}

	metrics := Coupling(records)
	for m, mm := range metrics {
		if mm.Instability < 0 || mm.Instability > 1 {
			t.Errorf("%s: instability %f out of bounds", m, mm.Instability)
		}
	}
	if got := metrics["store"]; got.Afferent != 2 || got.Efferent != 0 || got.Instability != 0 {
		t.Errorf("store metrics = %+v", got)
	}
	if got := metrics["svc"]; got.Afferent != 1 || got.Efferent != 2 {
		t.Errorf("svc metrics = %+v", got)
	}
	if math.Abs(metrics["svc"].Instability-2.0/3.0) > 1e-9 {
		t.Errorf("svc instability = %f, want 0.667", metrics["svc"].Instability)
	}
}

func TestDependencyDepth(t *testing.T) {
	t.Parallel()

	adj := map[string][]string{
		"api":   {"svc"},
		"svc":   {"store"},
		"store": {},
		"cli":   {"api", "store"},
	}
	want := map[string]int{"store": 0, "svc": 1, "api": 2, "cli": 3}
	if diff := cmp.Diff(want, DependencyDepth(adj)); diff != "" {
		t.Errorf("depth mismatch (-want +got):\n%s", diff)
	}

	cyclic := DependencyDepth(map[string][]string{"a": {"b"}, "b": {"a"}})
	if len(cyclic) != 2 {
		t.Errorf("cyclic depths = %v", cyclic)
	}
}

func TestBuildFileGraph(t *testing.T) {
	t.Parallel()

	records := []model.FileRecord{
		{Path: "a.py", Types: []string{"A"}, Dependencies: []model.Relation{usage("A", "B"), usage("A", "C"), usage("A", "A2")}},
		{Path: "b.py", Types: []string{"B", "C"}},
		{Path: "c.py", Types: []string{"A2"}},
	}

	deps := BuildFileGraph(records)
	want := []FileDependency{
		{Source: "a.py", Target: "b.py", Types: []string{"B", "C"}},
		{Source: "a.py", Target: "c.py", Types: []string{"A2"}},
	}
	if diff := cmp.Diff(want, deps); diff != "" {
		t.Errorf("file graph mismatch (-want +got):\n%s", diff)
	}
}

func TestRankEmpty(t *testing.T) {
	t.Parallel()

	if got := Rank(nil, nil); len(got) != 0 {
		t.Errorf("expected no ranks, got %v", got)
	}
}

func TestRankNoDeps(t *testing.T) {
	t.Parallel()

	records := []model.FileRecord{{Path: "a.py"}, {Path: "b.py"}}
	ranks := Rank(records, nil)
	for path, r := range ranks {
		if math.Abs(r-0.5) > 1e-9 {
			t.Errorf("%s: rank = %f, want 0.5", path, r)
		}
	}
}

func TestRankReferencedFileWins(t *testing.T) {
	t.Parallel()

	records := []model.FileRecord{
		{Path: "a.py", Types: []string{"A"}, Dependencies: []model.Relation{usage("A", "Core")}},
		{Path: "b.py", Types: []string{"B"}, Dependencies: []model.Relation{usage("B", "Core")}},
		{Path: "core.py", Types: []string{"Core"}},
	}

	ranks := Rank(records, BuildFileGraph(records))

	if ranks["core.py"] <= ranks["a.py"] || ranks["core.py"] <= ranks["b.py"] {
		t.Errorf("core.py should rank highest: %v", ranks)
	}

	var total float64
	for _, r := range ranks {
		total += r
	}
	if math.Abs(total-1.0) > 1e-3 {
		t.Errorf("ranks should sum to ~1.0, got %f", total)
	}
}

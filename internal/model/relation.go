package model

import (
	"fmt"
	"strings"
)

// RelationKind distinguishes plain usage from inheritance/implementation.
type RelationKind int

const (
	Usage RelationKind = iota
	Inheritance
)

// Arrow tokens of the edge notation shared by producers and reports.
const (
	UsageArrow       = "-->"
	InheritanceArrow = "-.->"
	plantUMLInherit  = "..>"
)

func (k RelationKind) String() string {
	if k == Inheritance {
		return "inheritance"
	}
	return "usage"
}

// MarshalText encodes the kind by name for json and yaml output.
func (k RelationKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *RelationKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "usage":
		*k = Usage
	case "inheritance":
		*k = Inheritance
	default:
		return fmt.Errorf("unknown relation kind %q", b)
	}
	return nil
}

// Relation is a dependency edge between two named entities.
type Relation struct {
	Source string       `json:"source" yaml:"source"`
	Target string       `json:"target" yaml:"target"`
	Kind   RelationKind `json:"kind" yaml:"kind"`
}

// ParseRelation parses "A --> B" (usage) or "A -.-> B" (inheritance).
// It never panics; ok is false for anything that is not exactly two
// non-empty names around a single arrow.
func ParseRelation(raw string) (Relation, bool) {
	if strings.TrimSpace(raw) == "" {
		return Relation{}, false
	}

	kind := Usage
	arrow := UsageArrow
	if strings.Contains(raw, InheritanceArrow) {
		kind = Inheritance
		arrow = InheritanceArrow
	}

	parts := strings.Split(raw, arrow)
	if len(parts) != 2 {
		return Relation{}, false
	}
	src := strings.TrimSpace(parts[0])
	tgt := strings.TrimSpace(parts[1])
	if src == "" || tgt == "" {
		return Relation{}, false
	}
	// Mixed notation such as "A --> B -.-> C".
	if strings.Contains(src, UsageArrow) || strings.Contains(tgt, UsageArrow) {
		return Relation{}, false
	}
	return Relation{Source: src, Target: tgt, Kind: kind}, true
}

// String renders the relation in arrow notation. For well-formed relations
// ParseRelation(r.String()) returns r.
func (r Relation) String() string {
	if r.Kind == Inheritance {
		return r.Source + " " + InheritanceArrow + " " + r.Target
	}
	return r.Source + " " + UsageArrow + " " + r.Target
}

// PlantUML renders the relation with PlantUML arrows.
func (r Relation) PlantUML() string {
	if r.Kind == Inheritance {
		return r.Source + " " + plantUMLInherit + " " + r.Target
	}
	return r.Source + " " + UsageArrow + " " + r.Target
}

// WellFormed reports whether the relation survives a String/Parse round trip.
func (r Relation) WellFormed() bool {
	for _, name := range []string{r.Source, r.Target} {
		if name == "" || name != strings.TrimSpace(name) {
			return false
		}
		if strings.Contains(name, UsageArrow) || strings.Contains(name, InheritanceArrow) {
			return false
		}
	}
	return true
}

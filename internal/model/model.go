// Package model defines core data structures for contextweaver.
package model

import (
	"strings"
)

// RootModule is the module name of files that live directly in the analyzed root.
const RootModule = "Root"

// Type kinds reported by fact producers.
const (
	KindClass     = "class"
	KindInterface = "interface"
	KindStruct    = "struct"
	KindRecord    = "record"
	KindEnum      = "enum"
)

// TypeSemantics holds modifiers, implemented interfaces (or base types) and
// attributes attached to a defined type.
type TypeSemantics struct {
	Modifiers  []string `json:"modifiers,omitempty" yaml:"modifiers,omitempty"`
	Interfaces []string `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
	Attributes []string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Metrics are the per-file code metrics. Complexity and MaxNesting are nil
// when the producer cannot compute them.
type Metrics struct {
	Complexity *int     `json:"cyclomatic_complexity,omitempty" yaml:"cyclomatic_complexity,omitempty"`
	MaxNesting *int     `json:"max_nesting_depth,omitempty" yaml:"max_nesting_depth,omitempty"`
	PublicAPI  []string `json:"public_api,omitempty" yaml:"public_api,omitempty"`
}

// FileRecord holds the structural facts of a single analyzed file.
//
// Path and Module are assigned by the analysis orchestrator, never by a
// producer. Everything else is written once while the file is analyzed.
type FileRecord struct {
	Path         string                   `json:"path" yaml:"path"`
	Module       string                   `json:"module" yaml:"module"`
	Language     string                   `json:"language" yaml:"language"`
	Lines        int                      `json:"lines" yaml:"lines"`
	Content      string                   `json:"-" yaml:"-"`
	Types        []string                 `json:"types,omitempty" yaml:"types,omitempty"`
	TypeKinds    map[string]string        `json:"type_kinds,omitempty" yaml:"type_kinds,omitempty"`
	Semantics    map[string]TypeSemantics `json:"semantics,omitempty" yaml:"semantics,omitempty"`
	Imports      []string                 `json:"imports,omitempty" yaml:"imports,omitempty"`
	Dependencies []Relation               `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Metrics      Metrics                  `json:"metrics" yaml:"metrics"`
	Degraded     bool                     `json:"degraded,omitempty" yaml:"degraded,omitempty"`
}

// PrimaryType returns the first type defined in the file, or the file's base
// name without extension when it defines none.
func (r *FileRecord) PrimaryType() string {
	if len(r.Types) > 0 {
		return r.Types[0]
	}
	base := r.Path
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}

// Defines reports whether the file defines the named type.
func (r *FileRecord) Defines(typeName string) bool {
	for _, t := range r.Types {
		if t == typeName {
			return true
		}
	}
	return false
}

// ModuleMetrics holds Robert C. Martin's coupling metrics for one module.
type ModuleMetrics struct {
	Afferent    int     `json:"ca" yaml:"ca"`
	Efferent    int     `json:"ce" yaml:"ce"`
	Instability float64 `json:"instability" yaml:"instability"`
}

// NewModuleMetrics computes instability from afferent and efferent counts.
// Instability is 0 when the module is not coupled at all.
func NewModuleMetrics(ca, ce int) ModuleMetrics {
	m := ModuleMetrics{Afferent: ca, Efferent: ce}
	if ca+ce > 0 {
		m.Instability = float64(ce) / float64(ca+ce)
	}
	return m
}

// ModuleName derives the module of a repo-relative path. The module is the
// first directory segment, or "wrapper/child" when the first segment is one of
// wrappers and the file lives below child. Files without a containing
// directory belong to RootModule.
func ModuleName(relPath string, wrappers []string) string {
	parts := strings.FieldsFunc(relPath, func(r rune) bool { return r == '/' || r == '\\' })
	if len(parts) < 2 {
		return RootModule
	}
	dirs := parts[:len(parts)-1]
	if len(dirs) >= 2 {
		for _, w := range wrappers {
			if strings.EqualFold(dirs[0], w) {
				return dirs[0] + "/" + dirs[1]
			}
		}
	}
	return dirs[0]
}

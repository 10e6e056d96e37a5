// Package toon implements TOON (Token-Oriented Object Notation) encoding of
// an analysis report.
package toon

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/phobologic/contextweaver/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Report is the data Encode writes.
type Report struct {
	Name     string
	Root     string
	Sections []string
	Records  []model.FileRecord
	Incoming map[string][]string
	Modules  map[string]model.ModuleMetrics
	Depths   map[string]int
	Ranks    map[string]float64
}

// Encode converts a report into TOON format. Records are expected in path
// order.
func Encode(r *Report) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("name: %s", encodeValue(r.Name)))
	parts = append(parts, fmt.Sprintf("root: %s", encodeValue(r.Root)))
	parts = append(parts, formatList("sections", r.Sections))

	var fileRows [][]string
	for i := range r.Records {
		rec := &r.Records[i]
		fileRows = append(fileRows, []string{
			rec.Path,
			rec.Module,
			rec.Language,
			strconv.Itoa(rec.Lines),
			optionalInt(rec.Metrics.Complexity),
			optionalInt(rec.Metrics.MaxNesting),
			fmt.Sprintf("%.4f", r.Ranks[rec.Path]),
			status(rec),
		})
	}
	parts = append(parts, formatTabular("files",
		[]string{"path", "module", "language", "lines", "complexity", "nesting", "rank", "status"}, fileRows))

	var typeRows [][]string
	for i := range r.Records {
		rec := &r.Records[i]
		for _, name := range rec.Types {
			sem := rec.Semantics[name]
			typeRows = append(typeRows, []string{
				rec.Path,
				name,
				rec.TypeKinds[name],
				strings.Join(sem.Modifiers, " "),
				strings.Join(sem.Interfaces, " "),
			})
		}
	}
	parts = append(parts, formatTabular("types", []string{"file", "name", "kind", "modifiers", "implements"}, typeRows))

	var importRows [][]string
	for i := range r.Records {
		rec := &r.Records[i]
		for _, imp := range rec.Imports {
			importRows = append(importRows, []string{rec.Path, imp})
		}
	}
	parts = append(parts, formatTabular("imports", []string{"file", "import"}, importRows))

	var depRows [][]string
	for i := range r.Records {
		rec := &r.Records[i]
		for _, d := range rec.Dependencies {
			depRows = append(depRows, []string{rec.Path, d.Source, d.Target, d.Kind.String()})
		}
	}
	parts = append(parts, formatTabular("dependencies", []string{"file", "source", "target", "kind"}, depRows))

	var usedByRows [][]string
	for i := range r.Records {
		rec := &r.Records[i]
		for _, src := range r.Incoming[rec.Path] {
			usedByRows = append(usedByRows, []string{rec.Path, src})
		}
	}
	parts = append(parts, formatTabular("used_by", []string{"file", "source"}, usedByRows))

	modules := make([]string, 0, len(r.Modules))
	for m := range r.Modules {
		modules = append(modules, m)
	}
	sort.Strings(modules)
	var moduleRows [][]string
	for _, m := range modules {
		mm := r.Modules[m]
		moduleRows = append(moduleRows, []string{
			m,
			strconv.Itoa(mm.Afferent),
			strconv.Itoa(mm.Efferent),
			fmt.Sprintf("%.2f", mm.Instability),
			strconv.Itoa(r.Depths[m]),
		})
	}
	parts = append(parts, formatTabular("modules", []string{"name", "ca", "ce", "instability", "depth"}, moduleRows))

	return strings.Join(parts, "\n")
}

func status(r *model.FileRecord) string {
	if r.Degraded {
		return "degraded"
	}
	return "ok"
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatList(name string, values []string) string {
	encoded := make([]string, len(values))
	for i, v := range values {
		encoded[i] = encodeValue(v)
	}
	if len(encoded) == 0 {
		return fmt.Sprintf("%s[0]:", name)
	}
	return fmt.Sprintf("%s[%d]: %s", name, len(values), strings.Join(encoded, ","))
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}

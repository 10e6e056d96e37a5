package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/phobologic/contextweaver/internal/model"
	"github.com/phobologic/contextweaver/internal/toon"
)

// ErrUnknownFormat is returned for an output format that has no generator.
var ErrUnknownFormat = errors.New("unknown report format")

// Supported output formats.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatTOON     = "toon"
)

// Formats lists the supported output formats, default first.
var Formats = []string{FormatMarkdown, FormatJSON, FormatYAML, FormatTOON}

// Extension returns the file extension used for format.
func Extension(format string) string {
	switch format {
	case FormatMarkdown:
		return ".md"
	case FormatJSON:
		return ".json"
	case FormatYAML:
		return ".yaml"
	case FormatTOON:
		return ".toon"
	}
	return ""
}

// CheckFormat returns ErrUnknownFormat, wrapped with the offending name, when
// format is not supported.
func CheckFormat(format string) error {
	for _, f := range Formats {
		if f == format {
			return nil
		}
	}
	return fmt.Errorf("%w %q (want one of %s)", ErrUnknownFormat, format, strings.Join(Formats, ", "))
}

// Generate renders the report in format. Only sections active for enabled
// are included; structured formats list their names.
func (c *Composer) Generate(format string, ctx *Context, enabled []string) ([]byte, error) {
	if err := CheckFormat(format); err != nil {
		return nil, err
	}

	switch format {
	case FormatMarkdown:
		out, err := c.Render(ctx, enabled)
		if err != nil {
			return nil, err
		}
		return []byte(out), nil
	case FormatTOON:
		return []byte(toon.Encode(&toon.Report{
			Name:     ctx.Name,
			Root:     ctx.Root,
			Sections: c.Active(enabled),
			Records:  ctx.Records,
			Incoming: ctx.Incoming,
			Modules:  ctx.Metrics,
			Depths:   ctx.Depths,
			Ranks:    ctx.Ranks,
		}) + "\n"), nil
	}

	doc := newDocument(ctx, c.Active(enabled))
	if format == FormatJSON {
		out, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding json report: %w", err)
		}
		return append(out, '\n'), nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding yaml report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding yaml report: %w", err)
	}
	return buf.Bytes(), nil
}

type fileDocument struct {
	model.FileRecord `yaml:",inline"`
	UsedBy           []string `json:"used_by,omitempty" yaml:"used_by,omitempty"`
	Rank             float64  `json:"rank" yaml:"rank"`
}

type moduleDocument struct {
	model.ModuleMetrics `yaml:",inline"`
	DependsOn           []string `json:"depends_on" yaml:"depends_on"`
	Depth               int      `json:"depth" yaml:"depth"`
}

type document struct {
	Name     string                    `json:"name" yaml:"name"`
	Root     string                    `json:"root" yaml:"root"`
	Sections []string                  `json:"sections" yaml:"sections"`
	Files    []fileDocument            `json:"files" yaml:"files"`
	Modules  map[string]moduleDocument `json:"modules" yaml:"modules"`
}

func newDocument(ctx *Context, sections []string) document {
	doc := document{
		Name:     ctx.Name,
		Root:     ctx.Root,
		Sections: sections,
		Files:    make([]fileDocument, 0, len(ctx.Records)),
		Modules:  make(map[string]moduleDocument, len(ctx.Metrics)),
	}
	for i := range ctx.Records {
		r := ctx.Records[i]
		doc.Files = append(doc.Files, fileDocument{
			FileRecord: r,
			UsedBy:     ctx.Incoming.Of(r.Path),
			Rank:       ctx.Ranks[r.Path],
		})
	}

	for m, mm := range ctx.Metrics {
		deps := ctx.Adjacency[m]
		if deps == nil {
			deps = []string{}
		}
		doc.Modules[m] = moduleDocument{
			ModuleMetrics: mm,
			DependsOn:     deps,
			Depth:         ctx.Depths[m],
		}
	}
	return doc
}

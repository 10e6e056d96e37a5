package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/contextweaver/internal/config"
	"github.com/phobologic/contextweaver/internal/logging"
	"github.com/phobologic/contextweaver/internal/report"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// project lays out a store package and a service package depending on it.
func project(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "store/store.go", "package store\n\ntype Store interface {\n\tGet(key string) string\n}\n")
	writeFile(t, root, "service/service.go", `package service

type Service struct {
	backend Store
}

func (s *Service) Lookup(key string) string {
	if key == "" {
		return ""
	}
	return s.backend.Get(key)
}
`)
	writeFile(t, root, "README.md", "# demo\n")
	return root
}

func newService(stdout *bytes.Buffer) *Service {
	return New(logging.Discard(), stdout, nil)
}

func TestRunWritesMarkdown(t *testing.T) {
	t.Parallel()

	root := project(t)
	var stdout bytes.Buffer
	res, err := newService(&stdout).Run(context.Background(), Request{
		Root:     root,
		Settings: config.Default(),
		Format:   report.FormatMarkdown,
		Output:   "out/context.md",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Analyzed)
	assert.Equal(t, 3, res.Reported)
	assert.Equal(t, filepath.Join(root, "out", "context.md"), res.Output)
	assert.Empty(t, stdout.String())

	data, err := os.ReadFile(res.Output)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "## File: service/service.go")
	assert.Contains(t, out, "## File: store/store.go")
	assert.Contains(t, out, "**Used By:** Service")
	assert.Contains(t, out, "| `service` | 0 | 1 | 1.00 | 1 | Very unstable / concrete |")
	assert.Contains(t, out, "# Hotspot Analysis")
	assert.Equal(t, res.Bytes, len(data))
}

func TestRunUnknownFormatWritesNothing(t *testing.T) {
	t.Parallel()

	root := project(t)
	var stdout bytes.Buffer
	_, err := newService(&stdout).Run(context.Background(), Request{
		Root:     root,
		Settings: config.Default(),
		Format:   "pdf",
		Output:   "report.pdf",
	})
	require.ErrorIs(t, err, report.ErrUnknownFormat)

	_, statErr := os.Stat(filepath.Join(root, "report.pdf"))
	assert.True(t, os.IsNotExist(statErr))
	assert.Empty(t, stdout.String())
}

func TestRunStdoutWithExplicitFilesAndSections(t *testing.T) {
	t.Parallel()

	root := project(t)
	var stdout bytes.Buffer
	res, err := newService(&stdout).Run(context.Background(), Request{
		Root:     root,
		Settings: config.Default(),
		Files:    []string{"store/store.go"},
		Sections: []string{},
		Format:   report.FormatMarkdown,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Analyzed)
	assert.Empty(t, res.Output)
	out := stdout.String()
	assert.Contains(t, out, "## File: store/store.go")
	assert.NotContains(t, out, "service.go")
	assert.NotContains(t, out, "# Hotspot Analysis")
}

func TestRunSettingsSections(t *testing.T) {
	t.Parallel()

	root := project(t)
	settings := config.Default()
	settings.EnabledSections = []string{report.DirectoryTreeName}

	var stdout bytes.Buffer
	_, err := newService(&stdout).Run(context.Background(), Request{
		Root:     root,
		Settings: settings,
		Format:   report.FormatMarkdown,
	})
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "# Directory Structure")
	assert.NotContains(t, stdout.String(), "# Hotspot Analysis")
}

func TestRunSkipsLargeFiles(t *testing.T) {
	t.Parallel()

	root := project(t)
	writeFile(t, root, "big.md", strings.Repeat("x", 5000))

	var stdout bytes.Buffer
	res, err := newService(&stdout).Run(context.Background(), Request{
		Root:        root,
		Settings:    config.Default(),
		Format:      report.FormatJSON,
		MaxFileSize: 1000,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Analyzed)
	assert.NotContains(t, stdout.String(), "big.md")
}

func TestRunFocusAndMaxFiles(t *testing.T) {
	t.Parallel()

	root := project(t)
	svc := newService(&bytes.Buffer{})

	res, err := svc.Run(context.Background(), Request{
		Root:     root,
		Settings: config.Default(),
		Format:   report.FormatTOON,
		Focus:    "store",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Reported)

	res, err = svc.Run(context.Background(), Request{
		Root:     root,
		Settings: config.Default(),
		Format:   report.FormatTOON,
		MaxFiles: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Reported)

	_, err = svc.Run(context.Background(), Request{
		Root:     root,
		Settings: config.Default(),
		Format:   report.FormatTOON,
		Focus:    "nothing-here",
	})
	assert.ErrorContains(t, err, "no type matches")
}

func TestRunNarrowedModuleGraph(t *testing.T) {
	t.Parallel()

	root := project(t)
	var stdout bytes.Buffer
	res, err := newService(&stdout).Run(context.Background(), Request{
		Root:     root,
		Settings: config.Default(),
		Format:   report.FormatJSON,
		MaxFiles: 1,
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Reported)

	var doc struct {
		Files   []json.RawMessage `json:"files"`
		Modules map[string]struct {
			Ce        int      `json:"ce"`
			DependsOn []string `json:"depends_on"`
			Depth     int      `json:"depth"`
		} `json:"modules"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &doc))
	assert.Len(t, doc.Files, 1)

	service, ok := doc.Modules["service"]
	require.True(t, ok, "modules: %v", doc.Modules)
	assert.Equal(t, []string{"store"}, service.DependsOn)
	assert.Equal(t, 1, service.Depth)
	for name, m := range doc.Modules {
		assert.Len(t, m.DependsOn, m.Ce, "module %s", name)
	}
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	root := project(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout bytes.Buffer
	_, err := newService(&stdout).Run(ctx, Request{
		Root:     root,
		Settings: config.Default(),
		Format:   report.FormatMarkdown,
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, stdout.String())
}

func TestRunNoFiles(t *testing.T) {
	t.Parallel()

	_, err := newService(&bytes.Buffer{}).Run(context.Background(), Request{
		Root:     t.TempDir(),
		Settings: config.Default(),
		Format:   report.FormatMarkdown,
	})
	assert.ErrorContains(t, err, "no files to analyze")
}

// Package pipeline runs one analysis end to end: discovery, fact
// extraction, cross-file indexing, report rendering and output.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/phobologic/contextweaver/internal/analyze"
	"github.com/phobologic/contextweaver/internal/config"
	"github.com/phobologic/contextweaver/internal/discover"
	"github.com/phobologic/contextweaver/internal/graph"
	"github.com/phobologic/contextweaver/internal/model"
	"github.com/phobologic/contextweaver/internal/ranking"
	"github.com/phobologic/contextweaver/internal/report"
	"github.com/phobologic/contextweaver/internal/source"
)

// DefaultMaxFileSize is the size above which files are skipped.
const DefaultMaxFileSize = 1_000_000 // 1 MB

// Request describes one run.
type Request struct {
	// Root is the analyzed directory.
	Root     string
	Settings config.Settings

	// Files are repo-relative paths to analyze. When nil, files are
	// discovered from Settings.
	Files     []string
	SkipTests bool

	// Sections are the enabled optional section names. When nil, the
	// settings' enabled sections are used, or every optional section if
	// those are empty.
	Sections []string
	Format   string
	// Output is the report path, relative to Root unless absolute. Empty
	// writes to the service's stdout.
	Output string

	Workers     int
	MaxFileSize int64
	// MaxFiles keeps only the best-ranked files in the report. Zero keeps all.
	MaxFiles int
	// Focus keeps only files defining a matching type and their neighbours.
	Focus string

	Progress func(done, total int)
}

// Result summarizes a finished run.
type Result struct {
	Analyzed int
	Reported int
	Degraded int
	// Output is the absolute path written, or "" for stdout.
	Output string
	Bytes  int
}

// Service runs requests.
type Service struct {
	log      *slog.Logger
	stdout   io.Writer
	composer *report.Composer
}

// New returns a service writing stdout reports to stdout.
func New(log *slog.Logger, stdout io.Writer, composer *report.Composer) *Service {
	if log == nil {
		log = slog.Default()
	}
	if composer == nil {
		composer = report.NewComposer()
	}
	return &Service{log: log, stdout: stdout, composer: composer}
}

// Composer returns the section composer used for rendering.
func (s *Service) Composer() *report.Composer {
	return s.composer
}

// Discover lists the files settings select under root.
func (s *Service) Discover(root string, settings config.Settings, skipTests bool) ([]discover.FileEntry, error) {
	opts := discover.FromSettings(settings)
	opts.SkipTests = skipTests
	files, err := discover.Files(root, opts)
	if err != nil {
		return nil, fmt.Errorf("discovering files: %w", err)
	}
	return files, nil
}

// Run executes req. An unknown format fails before any work is done and
// nothing is written.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	if err := report.CheckFormat(req.Format); err != nil {
		s.log.Error("cannot generate report", "format", req.Format, "err", err)
		return nil, err
	}

	files := req.Files
	if files == nil {
		entries, err := s.Discover(req.Root, req.Settings, req.SkipTests)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			files = append(files, e.Path)
		}
	}

	maxSize := req.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	files = s.filterBySize(req.Root, files, maxSize)
	if len(files) == 0 {
		return nil, fmt.Errorf("no files to analyze in %s", req.Root)
	}

	src, err := source.New(req.Root, source.DefaultSize)
	if err != nil {
		return nil, fmt.Errorf("creating source cache: %w", err)
	}
	producers := []analyze.Producer{
		analyze.NewTreeSitter(src, s.log, req.Workers),
		analyze.NewText(src),
	}
	orch := analyze.New(req.Root, producers, analyze.Options{
		Workers:  req.Workers,
		Wrappers: req.Settings.WrapperDirectories,
		Logger:   s.log,
		Progress: req.Progress,
	})

	records, err := orch.Run(ctx, files)
	if err != nil {
		return nil, fmt.Errorf("analyzing files: %w", err)
	}
	s.log.Debug("analysis finished", "files", len(records), "cached", src.Len())

	// Indexes and module metrics always cover every analyzed file, even when
	// the report shows fewer.
	incoming := graph.BuildIncoming(records)
	metrics := graph.Coupling(records)
	adjacency := graph.ModuleAdjacency(records)

	reported, err := s.narrow(records, req)
	if err != nil {
		return nil, err
	}

	rctx := report.NewContext(req.Root, reported, incoming, metrics)
	rctx.UseModuleGraph(adjacency)
	out, err := s.composer.Generate(req.Format, rctx, s.sections(req))
	if err != nil {
		s.log.Error("cannot generate report", "format", req.Format, "err", err)
		return nil, err
	}

	res := &Result{Analyzed: len(records), Reported: len(reported), Bytes: len(out)}
	for i := range records {
		if records[i].Degraded {
			res.Degraded++
		}
	}

	if req.Output == "" {
		if _, err := s.stdout.Write(out); err != nil {
			return nil, fmt.Errorf("writing report: %w", err)
		}
		return res, nil
	}

	path := req.Output
	if !filepath.IsAbs(path) {
		path = filepath.Join(req.Root, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return nil, fmt.Errorf("writing report: %w", err)
	}
	res.Output = path
	s.log.Info("report written", "path", path, "files", res.Reported, "bytes", res.Bytes)
	return res, nil
}

func (s *Service) sections(req Request) []string {
	if req.Sections != nil {
		return req.Sections
	}
	if len(req.Settings.EnabledSections) > 0 {
		return req.Settings.EnabledSections
	}
	return s.composer.Optional()
}

// narrow applies the focus and max-files limits.
func (s *Service) narrow(records []model.FileRecord, req Request) ([]model.FileRecord, error) {
	out := records
	if req.Focus != "" {
		out = ranking.FilterByType(out, req.Focus)
		if len(out) == 0 {
			return nil, fmt.Errorf("no type matches %q", req.Focus)
		}
	}
	if req.MaxFiles > 0 {
		ranks := graph.Rank(records, graph.BuildFileGraph(records))
		out = ranking.SelectFiles(out, ranks, req.MaxFiles)
	}
	return out, nil
}

func (s *Service) filterBySize(root string, files []string, maxSize int64) []string {
	var kept []string
	for _, f := range files {
		fi, err := os.Stat(filepath.Join(root, filepath.FromSlash(f)))
		if err != nil {
			kept = append(kept, f) // keep if can't stat
			continue
		}
		if fi.Size() > maxSize {
			s.log.Warn("skipping large file", "path", f, "bytes", fi.Size(), "limit", maxSize)
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

package analyze

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/contextweaver/internal/lang"
	"github.com/phobologic/contextweaver/internal/model"
	"github.com/phobologic/contextweaver/internal/parse"
	"github.com/phobologic/contextweaver/internal/source"
)

// TreeSitter produces facts for every language registered in package lang.
type TreeSitter struct {
	src     *source.Cache
	log     *slog.Logger
	workers int

	// parsers are not thread-safe, so each language keeps a pool.
	parsers map[string]*sync.Pool

	mu    sync.Mutex
	known map[string]struct{}
}

// NewTreeSitter creates a producer reading files through src.
func NewTreeSitter(src *source.Cache, log *slog.Logger, workers int) *TreeSitter {
	p := &TreeSitter{
		src:     src,
		log:     log,
		workers: workers,
		parsers: make(map[string]*sync.Pool, len(lang.Languages)),
		known:   map[string]struct{}{},
	}
	for name, l := range lang.Languages {
		p.parsers[name] = &sync.Pool{New: func() any { return l.NewParser() }}
	}
	return p
}

func (p *TreeSitter) Name() string { return "tree-sitter" }

func (p *TreeSitter) CanAnalyze(path string) bool {
	return lang.ForPath(path) != nil
}

// Initialize records every type declared in the claimed files, priming the
// source cache along the way.
func (p *TreeSitter) Initialize(ctx context.Context, files []string) error {
	var g errgroup.Group
	if p.workers > 0 {
		g.SetLimit(p.workers)
	}
	for _, f := range files {
		l := lang.ForPath(f)
		if l == nil {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := p.src.Read(f)
			if err != nil {
				p.log.Debug("skipping file in type index", "path", f, "err", err)
				return nil
			}
			names, err := p.declaredTypes(ctx, l, data)
			if err != nil {
				p.log.Debug("skipping file in type index", "path", f, "err", err)
				return nil
			}
			p.mu.Lock()
			for _, n := range names {
				p.known[n] = struct{}{}
			}
			p.mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("indexing project types: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("indexing project types: %w", err)
	}
	p.log.Debug("indexed project types", "count", len(p.known))
	return nil
}

func (p *TreeSitter) declaredTypes(ctx context.Context, l *lang.Language, data []byte) ([]string, error) {
	parser := p.parsers[l.Name].Get().(*sitter.Parser)
	defer p.parsers[l.Name].Put(parser)
	return parse.DeclaredTypes(ctx, l, parser, data)
}

// Known reports whether name was declared anywhere in the initialized files.
func (p *TreeSitter) Known(name string) bool {
	_, ok := p.known[name]
	return ok
}

func (p *TreeSitter) Analyze(ctx context.Context, path string) (*model.FileRecord, error) {
	l := lang.ForPath(path)
	if l == nil {
		return nil, fmt.Errorf("%s: no grammar registered", path)
	}
	data, err := p.src.Read(path)
	if err != nil {
		return nil, err
	}

	parser := p.parsers[l.Name].Get().(*sitter.Parser)
	defer p.parsers[l.Name].Put(parser)

	var known parse.KnownFunc
	if len(p.known) > 0 {
		known = p.Known
	}
	facts, err := parse.Extract(ctx, l, parser, data, known)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	content := string(data)
	complexity, nesting := facts.Complexity, facts.MaxNesting
	return &model.FileRecord{
		Language:     l.Name,
		Lines:        CountLines(content),
		Content:      content,
		Types:        facts.Types,
		TypeKinds:    facts.TypeKinds,
		Semantics:    facts.Semantics,
		Imports:      facts.Imports,
		Dependencies: facts.Dependencies,
		Metrics: model.Metrics{
			Complexity: &complexity,
			MaxNesting: &nesting,
			PublicAPI:  facts.PublicAPI,
		},
	}, nil
}

// Package analyze runs fact producers over the discovered files and collects
// one record per file.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/phobologic/contextweaver/internal/model"
)

// Options tune a run.
type Options struct {
	// Workers bounds concurrent Analyze calls. Zero means GOMAXPROCS.
	Workers int
	// Wrappers are directory names whose child directory names the module.
	Wrappers []string
	Logger   *slog.Logger
	// Progress, when set, is called after each file with the number of files
	// finished so far. Calls are serialized.
	Progress func(done, total int)
}

// Orchestrator drives a fixed set of producers over one source tree.
type Orchestrator struct {
	root      string
	producers []Producer
	opts      Options
}

// New creates an orchestrator for files under root. Producers are consulted in
// the given order; the first one claiming a file analyzes it.
func New(root string, producers []Producer, opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Orchestrator{root: root, producers: producers, opts: opts}
}

type job struct {
	path     string
	producer Producer
}

// Run analyzes files (repo-relative, forward slashes) and returns their
// records sorted by path. Files no producer claims are skipped. A producer
// failure degrades the record of that file but never fails the run; only
// context cancellation does.
func (o *Orchestrator) Run(ctx context.Context, files []string) ([]model.FileRecord, error) {
	log := o.opts.Logger

	var jobs []job
	for _, f := range files {
		for _, p := range o.producers {
			if p.CanAnalyze(f) {
				jobs = append(jobs, job{path: f, producer: p})
				break
			}
		}
	}

	// Every producer finishes initializing before the first Analyze call.
	for _, p := range o.producers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.Initialize(ctx, files); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("producer initialization failed, continuing without its index",
				"producer", p.Name(), "err", err)
		}
	}

	var (
		mu      sync.Mutex
		records = make([]model.FileRecord, 0, len(jobs))
		done    int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Workers)
	for _, j := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := analyzeSafely(gctx, j.producer, j.path)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Warn("analysis failed, keeping raw content",
					"path", j.path, "producer", j.producer.Name(), "err", err)
				rec = o.degraded(j.path)
			}
			rec.Path = j.path
			rec.Module = model.ModuleName(j.path, o.opts.Wrappers)

			mu.Lock()
			defer mu.Unlock()
			records = append(records, *rec)
			done++
			if o.opts.Progress != nil {
				o.opts.Progress(done, len(jobs))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, k int) bool {
		return records[i].Path < records[k].Path
	})
	return records, nil
}

func analyzeSafely(ctx context.Context, p Producer, path string) (rec *model.FileRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec, err = nil, fmt.Errorf("producer %s panicked: %v", p.Name(), r)
		}
	}()
	rec, err = p.Analyze(ctx, path)
	if err == nil && rec == nil {
		err = errors.New("producer returned no record")
	}
	return rec, err
}

// degraded keeps whatever raw content can still be read.
func (o *Orchestrator) degraded(path string) *model.FileRecord {
	data, err := os.ReadFile(filepath.Join(o.root, filepath.FromSlash(path)))
	if err != nil {
		o.opts.Logger.Debug("raw content unavailable", "path", path, "err", err)
	}
	content := string(data)
	return &model.FileRecord{
		Language: LanguageOf(path),
		Lines:    CountLines(content),
		Content:  content,
		Degraded: true,
	}
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/contextweaver/internal/config"
	"github.com/phobologic/contextweaver/internal/logging"
	"github.com/phobologic/contextweaver/internal/pipeline"
	"github.com/phobologic/contextweaver/internal/report"
)

const defaultAnalyzeOutput = "analysis_report.md"

type analyzeOptions struct {
	dir             string
	output          string
	format          string
	sections        []string
	excludeSections []string
	maxFiles        int
	focus           string
	skipTests       bool
	maxFileSize     int64
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var opts analyzeOptions
	cmd := &cobra.Command{
		Use:   "analyze [directory]",
		Short: "Analyze a directory and write the report without prompting",
		Example: `  contextweaver analyze
  contextweaver analyze ./service -f toon -o -
  contextweaver analyze -d . --sections hotspots,instability --max-files 30
  contextweaver analyze --focus Store --exclude-sections plantuml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.dir = args[0]
			}
			return a.runAnalyze(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.dir, "dir", "d", ".", "directory to analyze")
	f.StringVarP(&opts.output, "output", "o", defaultAnalyzeOutput, `report file, relative to the directory; "-" writes to stdout`)
	f.StringVarP(&opts.format, "format", "f", report.FormatMarkdown, "report format: "+strings.Join(report.Formats, ", "))
	f.StringSliceVar(&opts.sections, "sections", nil, "optional sections to include (name fragments)")
	f.StringSliceVar(&opts.excludeSections, "exclude-sections", nil, "optional sections to leave out (name fragments)")
	f.IntVarP(&opts.maxFiles, "max-files", "n", 0, "keep only the N most central files in the report")
	f.StringVar(&opts.focus, "focus", "", "keep only files defining a matching type and their neighbours")
	f.BoolVar(&opts.skipTests, "skip-tests", false, "leave out test files")
	f.Int64Var(&opts.maxFileSize, "max-file-size", pipeline.DefaultMaxFileSize, "skip files larger than this many bytes")
	cmd.MarkFlagsMutuallyExclusive("sections", "exclude-sections")
	return cmd
}

func (a *app) runAnalyze(ctx context.Context, opts analyzeOptions) error {
	if err := report.CheckFormat(opts.format); err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	root, err := resolveRoot(opts.dir)
	if err != nil {
		return err
	}

	log := logging.FromContext(ctx)
	svc := pipeline.New(log, a.stdout, report.NewComposer())
	sections, err := selectSections(svc.Composer(), opts.sections, opts.excludeSections)
	if err != nil {
		return err
	}

	output := opts.output
	if output == "-" {
		output = ""
	}

	res, err := svc.Run(ctx, pipeline.Request{
		Root:        root,
		Settings:    config.Load(root, log),
		SkipTests:   opts.skipTests,
		Sections:    sections,
		Format:      opts.format,
		Output:      output,
		Workers:     a.workers,
		MaxFileSize: opts.maxFileSize,
		MaxFiles:    opts.maxFiles,
		Focus:       opts.focus,
		Progress:    a.progress("analyzing"),
	})
	if err != nil {
		return err
	}
	reportResult(a, res)
	return nil
}

// selectSections resolves --sections or --exclude-sections. Neither returns
// nil, which defers to the project settings.
func selectSections(c *report.Composer, include, exclude []string) ([]string, error) {
	switch {
	case len(include) > 0:
		names, err := c.Resolve(include)
		if err != nil {
			return nil, &ExitError{Code: 2, Message: err.Error()}
		}
		return names, nil
	case len(exclude) > 0:
		names, err := c.Exclude(exclude)
		if err != nil {
			return nil, &ExitError{Code: 2, Message: err.Error()}
		}
		if names == nil {
			names = []string{}
		}
		return names, nil
	}
	return nil, nil
}

func reportResult(a *app, res *pipeline.Result) {
	if res.Output == "" {
		return
	}
	msg := fmt.Sprintf("wrote %s (%d of %d files", res.Output, res.Reported, res.Analyzed)
	if res.Degraded > 0 {
		msg += fmt.Sprintf(", %d degraded", res.Degraded)
	}
	_, _ = fmt.Fprintln(a.stderr, msg+")")
}

package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/contextweaver/internal/logging"
	"github.com/phobologic/contextweaver/internal/pipeline"
	"github.com/phobologic/contextweaver/internal/prompt"
	"github.com/phobologic/contextweaver/internal/report"
	"github.com/phobologic/contextweaver/internal/setup"
	"github.com/phobologic/contextweaver/internal/wizard"
)

type wizardOptions struct {
	dir   string
	flags setup.Flags
}

func addWizardFlags(cmd *cobra.Command, opts *wizardOptions) {
	f := cmd.Flags()
	f.StringVarP(&opts.dir, "dir", "d", ".", "directory to analyze")
	f.BoolVarP(&opts.flags.All, "all", "a", false, "use every discovered file without asking")
	f.BoolVar(&opts.flags.SkipTests, "skip-tests", false, "leave out test files")
	f.StringSliceVar(&opts.flags.Sections, "sections", nil, "optional sections to include (name fragments)")
	f.StringSliceVar(&opts.flags.ExcludeSections, "exclude-sections", nil, "optional sections to leave out (name fragments)")
	f.StringVarP(&opts.flags.Format, "format", "f", "", "report format: "+strings.Join(report.Formats, ", "))
	f.StringVarP(&opts.flags.Output, "output", "o", "", "report file, relative to the directory")
	cmd.MarkFlagsMutuallyExclusive("sections", "exclude-sections")
}

// runWizard asks for the run's inputs, then generates the report once.
func (a *app) runWizard(ctx context.Context, opts wizardOptions) error {
	if opts.flags.Format != "" {
		if err := report.CheckFormat(opts.flags.Format); err != nil {
			return &ExitError{Code: 2, Message: err.Error()}
		}
	}
	root, err := resolveRoot(opts.dir)
	if err != nil {
		return err
	}

	log := logging.FromContext(ctx)
	svc := pipeline.New(log, a.stdout, report.NewComposer())
	if _, err := selectSections(svc.Composer(), opts.flags.Sections, opts.flags.ExcludeSections); err != nil {
		return err
	}

	state := setup.NewWizardContext(root, opts.flags, prompt.IsTerminal(a.stdin))
	steps := setup.Steps(setup.Deps{
		Prompter:   prompt.NewTerminal(a.stdin, a.stdout),
		Composer:   svc.Composer(),
		Discoverer: svc,
		Log:        log,
	})
	if err := wizard.New(log, steps...).Run(ctx, state); err != nil {
		return err
	}

	sections := state.EnabledSections
	if sections == nil {
		sections = []string{}
	}
	res, err := svc.Run(ctx, pipeline.Request{
		Root:      root,
		Settings:  state.Settings,
		Files:     state.Selected,
		SkipTests: opts.flags.SkipTests,
		Sections:  sections,
		Format:    state.Format,
		Output:    state.Output,
		Workers:   a.workers,
		Progress:  a.progress("analyzing"),
	})
	if err != nil {
		return err
	}
	reportResult(a, res)
	return nil
}

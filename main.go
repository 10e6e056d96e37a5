// contextweaver turns a source tree into one navigable context report for
// engineers and LLM agents.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/phobologic/contextweaver/internal/config"
	"github.com/phobologic/contextweaver/internal/logging"
	"github.com/phobologic/contextweaver/internal/prompt"
	"github.com/phobologic/contextweaver/internal/report"
	"github.com/phobologic/contextweaver/internal/wizard"
)

var version = "dev"

// ExitError carries the process exit code for an error.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "error: %s\n", exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the process streams and the options shared by every command.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	logLevel  string
	logFormat string
	workers   int
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := newRootCmd(&app{stdin: stdin, stdout: stdout, stderr: stderr})
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return exitCode(cmd.ExecuteContext(ctx))
}

func newRootCmd(a *app) *cobra.Command {
	env := config.LoadEnv()

	var opts wizardOptions
	cmd := &cobra.Command{
		Use:   "contextweaver [directory]",
		Short: "Build a navigable context report of a source tree",
		Long: `contextweaver analyzes a source tree and writes one consolidated report:
hotspots, module coupling, dependency diagrams, a directory tree and the
content of every file with its context diagram.

Without a subcommand an interactive wizard selects files, sections and the
output. Use "contextweaver analyze" for scripted runs.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logging.Validate(a.logLevel, a.logFormat); err != nil {
				return &ExitError{Code: 2, Message: err.Error()}
			}
			log := logging.New(a.logLevel, a.logFormat, a.stderr)
			cmd.SetContext(logging.WithLogger(cmd.Context(), log))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.dir = args[0]
			}
			return a.runWizard(cmd.Context(), opts)
		},
	}
	cmd.SetVersionTemplate("contextweaver {{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.logLevel, "log-level", env.LogLevel, "log level: debug, info, warn or error")
	pf.StringVar(&a.logFormat, "log-format", env.LogFormat, "log format: text or json")
	pf.IntVar(&a.workers, "workers", env.Workers, "parallel analysis workers (0 uses all CPUs)")

	addWizardFlags(cmd, &opts)
	cmd.AddCommand(newAnalyzeCmd(a), newInitCmd(a))
	return cmd
}

// exitCode maps errors to ExitError codes: 2 for bad input, 130 for a
// cancelled wizard and 1 otherwise.
func exitCode(err error) error {
	var exitErr *ExitError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &exitErr):
		return exitErr
	case errors.Is(err, wizard.ErrCancelled), errors.Is(err, context.Canceled):
		return &ExitError{Code: 130, Message: "cancelled"}
	case errors.Is(err, report.ErrUnknownFormat):
		return &ExitError{Code: 2, Message: err.Error()}
	}
	return &ExitError{Code: 1, Message: err.Error()}
}

// resolveRoot returns dir as an absolute path to an existing directory.
func resolveRoot(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", &ExitError{Code: 2, Message: fmt.Sprintf("root path: %v", err)}
	}
	if !info.IsDir() {
		return "", &ExitError{Code: 2, Message: fmt.Sprintf("%s: not a directory", root)}
	}
	return root, nil
}

// progress returns a callback drawing a progress bar on stderr, or nil when
// stderr is not a terminal.
func (a *app) progress(description string) func(done, total int) {
	if !prompt.IsTerminal(a.stderr) {
		return nil
	}
	var bar *progressbar.ProgressBar
	return func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription(description),
				progressbar.OptionSetWidth(50),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetPredictTime(true),
				progressbar.OptionFullWidth(),
				progressbar.OptionSetRenderBlankState(true),
				progressbar.OptionSetWriter(a.stderr),
				progressbar.OptionOnCompletion(func() {
					_, _ = fmt.Fprintln(a.stderr)
				}),
			)
		}
		_ = bar.Set(done)
	}
}

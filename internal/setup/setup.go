// Package setup holds the interactive steps that configure one report run.
package setup

import (
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/phobologic/contextweaver/internal/config"
	"github.com/phobologic/contextweaver/internal/discover"
	"github.com/phobologic/contextweaver/internal/prompt"
	"github.com/phobologic/contextweaver/internal/report"
	"github.com/phobologic/contextweaver/internal/wizard"
)

// DefaultOutputName is offered when no output file was given.
const DefaultOutputName = "context"

// BackLabel is the choice that returns to the previous step.
const BackLabel = "<- Back"

// SectionMode picks how the section prompt is preselected.
type SectionMode int

const (
	// SavedOrDefault preselects the saved sections, or all when none are saved.
	SavedOrDefault SectionMode = iota
	// AllSections preselects every optional section.
	AllSections
	// NoSections preselects nothing.
	NoSections
)

// Flags are the command-line answers that bypass prompts.
type Flags struct {
	// All skips file filtering and selects every discovered file.
	All             bool
	SkipTests       bool
	Sections        []string
	ExcludeSections []string
	Format          string
	Output          string
}

// WizardContext is the state the steps fill in.
type WizardContext struct {
	Root  string
	Flags Flags
	// Interactive is false when stdin is not a terminal; the summary then
	// proceeds without confirmation.
	Interactive bool

	Settings   config.Settings
	Discovered []discover.FileEntry
	// Managed are the discovered files with a selected extension.
	Managed []discover.FileEntry
	// Selected are the repo-relative paths to analyze.
	Selected  []string
	SelectAll bool

	SectionMode     SectionMode
	EnabledSections []string

	Format string
	Output string

	ShowBack bool
}

// NewWizardContext returns the state for a run over root. Answers given by
// flags are filled in up front.
func NewWizardContext(root string, flags Flags, interactive bool) *WizardContext {
	return &WizardContext{
		Root:        root,
		Flags:       flags,
		Interactive: interactive,
		SelectAll:   true,
		Format:      flags.Format,
		Output:      flags.Output,
	}
}

// SetShowBack implements wizard.State.
func (c *WizardContext) SetShowBack(v bool) { c.ShowBack = v }

// OutputPath is the report path relative to the working directory.
func (c *WizardContext) OutputPath() string {
	if filepath.IsAbs(c.Output) {
		return c.Output
	}
	return filepath.Join(c.Root, c.Output)
}

// Discoverer lists candidate files.
type Discoverer interface {
	Discover(root string, settings config.Settings, skipTests bool) ([]discover.FileEntry, error)
}

// Deps are the collaborators shared by the steps.
type Deps struct {
	Prompter   prompt.Prompter
	Composer   *report.Composer
	Discoverer Discoverer
	Log        *slog.Logger
}

// Steps returns the wizard steps in order.
func Steps(d Deps) []wizard.Step[*WizardContext] {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Composer == nil {
		d.Composer = report.NewComposer()
	}
	return []wizard.Step[*WizardContext]{
		&FileDiscovery{d},
		&FilterExtension{d},
		&SelectionMode{d},
		&FileSelection{d},
		&SectionSelectionMode{d},
		&SectionSelection{d},
		&OutputConfig{d},
		&Summary{d},
	}
}

// interrupted turns closed input into a cancellation.
func interrupted(err error) (wizard.Outcome, error) {
	if errors.Is(err, prompt.ErrAborted) {
		return wizard.Cancel, nil
	}
	return wizard.Cancel, err
}

// withBack prepends the back choice when going back is possible. The
// returned offset is the index of the first real choice.
func withBack(c *WizardContext, choices []string) ([]string, int) {
	if !c.ShowBack {
		return choices, 0
	}
	return append([]string{BackLabel}, choices...), 1
}

func paths(entries []discover.FileEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

package setup

import (
	"context"
	"fmt"
	"strings"

	"github.com/phobologic/contextweaver/internal/config"
	"github.com/phobologic/contextweaver/internal/discover"
	"github.com/phobologic/contextweaver/internal/report"
	"github.com/phobologic/contextweaver/internal/wizard"
)

// FileDiscovery loads the project settings and lists candidate files.
type FileDiscovery struct{ Deps }

func (s *FileDiscovery) Name() string                      { return "file discovery" }
func (s *FileDiscovery) Interactive() bool                 { return false }
func (s *FileDiscovery) ShouldExecute(*WizardContext) bool { return true }

func (s *FileDiscovery) Execute(_ context.Context, c *WizardContext) (wizard.Outcome, error) {
	c.Settings = config.Load(c.Root, s.Log)
	files, err := s.Discoverer.Discover(c.Root, c.Settings, c.Flags.SkipTests)
	if err != nil {
		return wizard.Cancel, err
	}
	if len(files) == 0 {
		s.Prompter.Info("No matching files found in %s.", c.Root)
		return wizard.Cancel, nil
	}
	c.Discovered = files
	c.Managed = files
	c.Selected = paths(files)
	s.Prompter.Info("Found %d files.", len(files))
	return wizard.Next, nil
}

// FilterExtension narrows the discovered files by extension.
type FilterExtension struct{ Deps }

func (s *FilterExtension) Name() string      { return "extension filter" }
func (s *FilterExtension) Interactive() bool { return true }

func (s *FilterExtension) ShouldExecute(c *WizardContext) bool {
	return !c.Flags.All && len(discover.Extensions(c.Discovered)) > 1
}

func (s *FilterExtension) Execute(_ context.Context, c *WizardContext) (wizard.Outcome, error) {
	exts := discover.Extensions(c.Discovered)
	counts := make(map[string]int, len(exts))
	for _, e := range c.Discovered {
		counts[e.Extension]++
	}
	managed := make(map[string]struct{})
	for _, ext := range discover.Extensions(c.Managed) {
		managed[ext] = struct{}{}
	}

	labels := make([]string, len(exts))
	for i, ext := range exts {
		name := ext
		if name == "" {
			name = "(no extension)"
		}
		labels[i] = fmt.Sprintf("%s (%d files)", name, counts[ext])
	}
	choices, off := withBack(c, labels)
	state := make([]bool, len(choices))
	for i, ext := range exts {
		_, state[i+off] = managed[ext]
	}

	got, err := s.Prompter.MultiSelect("Select file extensions to include", choices, state)
	if err != nil {
		return interrupted(err)
	}
	if off == 1 && got[0] {
		return wizard.Previous, nil
	}

	var keep []string
	for i, ext := range exts {
		if got[i+off] {
			keep = append(keep, ext)
		}
	}
	if len(keep) == 0 {
		s.Prompter.Info("No extensions selected.")
		return wizard.Cancel, nil
	}
	c.Managed = discover.FilterExtensions(c.Discovered, keep)
	c.Selected = paths(c.Managed)
	return wizard.Next, nil
}

// SelectionMode asks whether the file list starts fully selected or empty.
type SelectionMode struct{ Deps }

func (s *SelectionMode) Name() string                        { return "selection mode" }
func (s *SelectionMode) Interactive() bool                   { return true }
func (s *SelectionMode) ShouldExecute(c *WizardContext) bool { return !c.Flags.All }

func (s *SelectionMode) Execute(_ context.Context, c *WizardContext) (wizard.Outcome, error) {
	choices, off := withBack(c, []string{
		"Start with all files selected",
		"Start with no files selected",
	})
	def := off
	if !c.SelectAll {
		def = off + 1
	}
	i, err := s.Prompter.Select("How should the file list start?", choices, def)
	if err != nil {
		return interrupted(err)
	}
	if i < off {
		return wizard.Previous, nil
	}
	c.SelectAll = i == off
	return wizard.Next, nil
}

// FileSelection lets the user pick files from a directory tree. Picking a
// directory picks every file below it.
type FileSelection struct{ Deps }

func (s *FileSelection) Name() string                        { return "file selection" }
func (s *FileSelection) Interactive() bool                   { return true }
func (s *FileSelection) ShouldExecute(c *WizardContext) bool { return !c.Flags.All }

func (s *FileSelection) Execute(_ context.Context, c *WizardContext) (wizard.Outcome, error) {
	entries := BuildTree(paths(c.Managed)).Flatten()
	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = e.Label()
	}
	choices, off := withBack(c, labels)
	state := make([]bool, len(choices))
	for i, e := range entries {
		state[i+off] = c.SelectAll && !e.Node.Dir
	}

	got, err := s.Prompter.MultiSelect("Select files to include", choices, state)
	if err != nil {
		return interrupted(err)
	}
	if off == 1 && got[0] {
		return wizard.Previous, nil
	}

	selected := Expand(entries, got[off:])
	if len(selected) == 0 {
		s.Prompter.Info("No files selected.")
		return wizard.Cancel, nil
	}
	c.Selected = selected
	s.Prompter.Info("%d files selected.", len(selected))
	return wizard.Next, nil
}

// SectionSelectionMode picks the starting point of the section prompt.
type SectionSelectionMode struct{ Deps }

func (s *SectionSelectionMode) Name() string      { return "section selection mode" }
func (s *SectionSelectionMode) Interactive() bool { return true }

func (s *SectionSelectionMode) ShouldExecute(c *WizardContext) bool {
	return len(c.Flags.Sections) == 0 && len(c.Flags.ExcludeSections) == 0
}

func (s *SectionSelectionMode) Execute(_ context.Context, c *WizardContext) (wizard.Outcome, error) {
	first := "Use default sections (all)"
	if len(c.Settings.EnabledSections) > 0 {
		first = "Use saved section selection"
	}
	choices, off := withBack(c, []string{first, "Select all sections", "Select no sections"})
	i, err := s.Prompter.Select("Which report sections should start selected?", choices, off+int(c.SectionMode))
	if err != nil {
		return interrupted(err)
	}
	if i < off {
		return wizard.Previous, nil
	}
	c.SectionMode = SectionMode(i - off)
	return wizard.Next, nil
}

// SectionSelection decides the enabled optional sections, from flags or by
// asking. A partial selection can be saved as the project default.
type SectionSelection struct{ Deps }

func (s *SectionSelection) Name() string                      { return "section selection" }
func (s *SectionSelection) Interactive() bool                 { return true }
func (s *SectionSelection) ShouldExecute(*WizardContext) bool { return true }

func (s *SectionSelection) Execute(_ context.Context, c *WizardContext) (wizard.Outcome, error) {
	switch {
	case len(c.Flags.Sections) > 0:
		names, err := s.Composer.Resolve(c.Flags.Sections)
		if err != nil {
			return wizard.Cancel, err
		}
		c.EnabledSections = names
		return wizard.Next, nil
	case len(c.Flags.ExcludeSections) > 0:
		names, err := s.Composer.Exclude(c.Flags.ExcludeSections)
		if err != nil {
			return wizard.Cancel, err
		}
		c.EnabledSections = names
		return wizard.Next, nil
	}

	optional := s.Composer.Optional()
	descriptions := make(map[string]string)
	for _, sec := range s.Composer.Sections() {
		descriptions[sec.Name()] = sec.Description()
	}
	preselected := s.preselected(c, optional)

	labels := make([]string, len(optional))
	for i, name := range optional {
		labels[i] = name
		if d := descriptions[name]; d != "" {
			labels[i] += " - " + d
		}
	}
	choices, off := withBack(c, labels)
	state := make([]bool, len(choices))
	for i, name := range optional {
		_, state[i+off] = preselected[name]
	}

	got, err := s.Prompter.MultiSelect("Select report sections", choices, state)
	if err != nil {
		return interrupted(err)
	}
	if off == 1 && got[0] {
		return wizard.Previous, nil
	}

	var chosen []string
	for i, name := range optional {
		if got[i+off] {
			chosen = append(chosen, name)
		}
	}
	if len(chosen) == 0 {
		s.Prompter.Info("No sections selected.")
		return wizard.Cancel, nil
	}
	c.EnabledSections = chosen

	if len(chosen) < len(optional) {
		save, err := s.Prompter.Confirm("Save this section selection as the project default?", false)
		if err != nil {
			return interrupted(err)
		}
		if save {
			c.Settings.EnabledSections = chosen
			if err := config.Save(c.Root, c.Settings); err != nil {
				s.Log.Warn("could not save section preferences", "err", err)
			} else {
				s.Prompter.Info("Saved section preferences to %s.", config.FileName)
			}
		}
	}
	return wizard.Next, nil
}

func (s *SectionSelection) preselected(c *WizardContext, optional []string) map[string]struct{} {
	set := make(map[string]struct{})
	switch c.SectionMode {
	case NoSections:
		return set
	case SavedOrDefault:
		if len(c.Settings.EnabledSections) > 0 {
			for _, name := range c.Settings.EnabledSections {
				set[name] = struct{}{}
			}
			return set
		}
	}
	for _, name := range optional {
		set[name] = struct{}{}
	}
	return set
}

// OutputConfig asks for the report format and file name not given by flags.
type OutputConfig struct{ Deps }

func (s *OutputConfig) Name() string      { return "output" }
func (s *OutputConfig) Interactive() bool { return true }

func (s *OutputConfig) ShouldExecute(c *WizardContext) bool {
	return c.Flags.Format == "" || c.Flags.Output == ""
}

func (s *OutputConfig) Execute(_ context.Context, c *WizardContext) (wizard.Outcome, error) {
	if c.Flags.Format == "" {
		choices, off := withBack(c, report.Formats)
		def := off
		for i, f := range report.Formats {
			if f == c.Format {
				def = i + off
			}
		}
		i, err := s.Prompter.Select("Report format", choices, def)
		if err != nil {
			return interrupted(err)
		}
		if i < off {
			return wizard.Previous, nil
		}
		c.Format = report.Formats[i-off]
	}

	if c.Flags.Output == "" {
		def := DefaultOutputName + report.Extension(c.Format)
		if c.Output != "" && !isDefaultName(c.Output) {
			def = c.Output
		}
		name, err := s.Prompter.Input("Output file", def)
		if err != nil {
			return interrupted(err)
		}
		c.Output = strings.TrimSpace(name)
		if c.Output == "" {
			c.Output = def
		}
	}
	return wizard.Next, nil
}

func isDefaultName(name string) bool {
	for _, f := range report.Formats {
		if name == DefaultOutputName+report.Extension(f) {
			return true
		}
	}
	return false
}

// Summary shows the collected answers and asks for confirmation.
type Summary struct{ Deps }

func (s *Summary) Name() string                      { return "summary" }
func (s *Summary) Interactive() bool                 { return true }
func (s *Summary) ShouldExecute(*WizardContext) bool { return true }

func (s *Summary) Execute(_ context.Context, c *WizardContext) (wizard.Outcome, error) {
	s.Prompter.Info("")
	s.Prompter.Info("Summary")
	s.Prompter.Info("  Files:    %d", len(c.Selected))
	s.Prompter.Info("  Sections: %s", strings.Join(s.Composer.Active(c.EnabledSections), ", "))
	s.Prompter.Info("  Format:   %s", c.Format)
	s.Prompter.Info("  Output:   %s", c.OutputPath())

	if !c.Interactive {
		return wizard.Finish, nil
	}

	const (
		generate = "Generate report"
		cancel   = "Cancel"
	)
	choices := []string{generate}
	if c.ShowBack {
		choices = append(choices, BackLabel)
	}
	choices = append(choices, cancel)

	i, err := s.Prompter.Select("Proceed?", choices, 0)
	if err != nil {
		return interrupted(err)
	}
	switch choices[i] {
	case generate:
		return wizard.Finish, nil
	case BackLabel:
		return wizard.Previous, nil
	}
	return wizard.Cancel, nil
}

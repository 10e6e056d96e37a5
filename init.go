package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/contextweaver/internal/logging"
)

const (
	sentinelStart = "<!-- contextweaver:start -->"
	sentinelEnd   = "<!-- contextweaver:end -->"
)

// newInitCmd builds `contextweaver init`, which writes (or updates) a
// contextweaver usage section in a CLAUDE.md file.
func newInitCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "init [path-to-CLAUDE.md]",
		Short: "Write contextweaver usage instructions for coding agents",
		Long: `Write a contextweaver usage section to a CLAUDE.md file. The section is wrapped
in sentinel comments so it can be updated in place on subsequent runs without
touching surrounding content. Creates the file if it does not exist.

path-to-CLAUDE.md defaults to ./CLAUDE.md.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit(cmd.Context(), args, dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")
	return cmd
}

func (a *app) runInit(ctx context.Context, args []string, dryRun bool) error {
	section := generateSection()

	// --dry-run with no path: just print the section itself.
	if dryRun && len(args) == 0 {
		_, _ = fmt.Fprintln(a.stdout, section)
		return nil
	}

	path := "CLAUDE.md"
	if len(args) > 0 {
		path = args[0]
	}

	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	updated := applySection(string(existing), section)

	if dryRun {
		_, _ = fmt.Fprint(a.stdout, updated)
		return nil
	}

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	logging.FromContext(ctx).Info("wrote contextweaver section", "path", path)
	_, _ = fmt.Fprintf(a.stderr, "wrote contextweaver section to %s\n", path)
	return nil
}

// generateSection returns the full sentinel-wrapped usage block.
func generateSection() string {
	body := `## contextweaver: Code Context Report

Run ` + "`contextweaver analyze`" + ` via the Bash tool at the start of any task on an
unfamiliar codebase. It writes one report with hotspots, module coupling,
dependency diagrams and the annotated content of every file.

**Availability:** Check with ` + "`contextweaver --version`" + ` first; skip gracefully
if not found.

**Run it:**
` + "```" + `bash
contextweaver analyze -o -                        # markdown report on stdout
contextweaver analyze /path/to/repo -o -          # explicit path
contextweaver analyze -f toon -o -                # compact tabular output
contextweaver analyze -n 30 -o -                  # only the 30 most central files
contextweaver analyze --focus Store -o -          # a type and its neighbours
contextweaver analyze --sections hotspots,instab  # choose report sections
` + "```" + `

**All flags:** ` + "`contextweaver analyze --help`" + `

**How to use the output:**

1. **Start from the hotspots.** The largest, most imported, most central and
   most complex files are listed first; read those before anything else.

2. **Check instability before changing a module.** Modules with low
   instability are depended upon widely; changes there ripple outward.

3. **Follow "Used By" and the context diagrams** to find callers instead of
   grepping for type names.

4. **Only fall back to Glob/Grep for things the report cannot answer**, e.g.
   call sites inside a function body.`

	return sentinelStart + "\n" + body + "\n" + sentinelEnd
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}

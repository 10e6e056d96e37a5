// Package discover finds the files of a repository that should be analyzed.
package discover

import (
	"context"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/contextweaver/internal/config"
	"github.com/phobologic/contextweaver/internal/lang"
)

// FileEntry represents a discovered file.
type FileEntry struct {
	Path      string // Relative to repo root, forward slashes
	Extension string // Lowercase, with leading dot
	Language  string // Registered tree-sitter language, or "" for plain text
}

// Options narrows discovery.
type Options struct {
	// Extensions lists the included extensions. Empty includes every extension.
	Extensions []string
	// Exclude holds gitignore-style patterns applied on top of .gitignore.
	Exclude []string
	// SkipTests drops files that IsTestFile recognizes.
	SkipTests bool
}

// FromSettings builds Options from project settings.
func FromSettings(s config.Settings) Options {
	return Options{Extensions: s.IncludedExtensions, Exclude: s.ExcludePatterns}
}

var skipDirs = map[string]struct{}{
	"__pycache__":   {},
	"node_modules":  {},
	".git":          {},
	".hg":           {},
	".svn":          {},
	"venv":          {},
	".venv":         {},
	"env":           {},
	".env":          {},
	".tox":          {},
	".mypy_cache":   {},
	".ruff_cache":   {},
	".pytest_cache": {},
	"egg-info":      {},
}

// Files discovers files under root matching opts, sorted by path.
func Files(root string, opts Options) ([]FileEntry, error) {
	extSet := make(map[string]struct{}, len(opts.Extensions))
	for _, e := range opts.Extensions {
		extSet[config.NormalizeExtension(e)] = struct{}{}
	}

	var excludes *ignore.GitIgnore
	if len(opts.Exclude) > 0 {
		excludes = ignore.CompileIgnoreLines(opts.Exclude...)
	}

	gitFiles := gitLsFiles(root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(root)
	}

	var results []FileEntry

	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()

		if d.IsDir() {
			if p == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if rel, err := filepath.Rel(root, p); err == nil && excludes != nil {
				if excludes.MatchesPath(filepath.ToSlash(rel) + "/") {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if gitFiles != nil {
			if _, ok := gitFiles[rel]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		if excludes != nil && excludes.MatchesPath(rel) {
			return nil
		}
		if opts.SkipTests && IsTestFile(rel) {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(name))
		if len(extSet) > 0 {
			if _, ok := extSet[ext]; !ok {
				return nil
			}
		}

		results = append(results, FileEntry{Path: rel, Extension: ext, Language: lang.ForExtension(ext)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	return results, nil
}

// Extensions returns the distinct extensions of entries in sorted order.
// Files without an extension are reported as "".
func Extensions(entries []FileEntry) []string {
	seen := make(map[string]struct{})
	var exts []string
	for _, e := range entries {
		if _, ok := seen[e.Extension]; ok {
			continue
		}
		seen[e.Extension] = struct{}{}
		exts = append(exts, e.Extension)
	}
	sort.Strings(exts)
	return exts
}

// FilterExtensions keeps the entries whose extension is in exts.
func FilterExtensions(entries []FileEntry, exts []string) []FileEntry {
	keep := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		keep[e] = struct{}{}
	}
	var out []FileEntry
	for _, e := range entries {
		if _, ok := keep[e.Extension]; ok {
			out = append(out, e)
		}
	}
	return out
}

var testDirs = map[string]struct{}{
	"test":      {},
	"tests":     {},
	"spec":      {},
	"__tests__": {},
	"testdata":  {},
}

// IsTestFile reports whether a repo-relative path looks like test code,
// either by living under a test directory or by a test file name pattern.
func IsTestFile(rel string) bool {
	rel = filepath.ToSlash(rel)
	dir, name := path.Split(rel)
	for _, part := range strings.Split(strings.Trim(dir, "/"), "/") {
		if _, ok := testDirs[part]; ok {
			return true
		}
	}

	base := strings.TrimSuffix(name, path.Ext(name))
	switch {
	case strings.HasSuffix(base, "_test"), strings.HasSuffix(base, "_spec"):
		return true
	case strings.HasPrefix(base, "test_"):
		return true
	case strings.HasSuffix(base, ".test"), strings.HasSuffix(base, ".spec"):
		return true
	}
	return false
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}

package analyze

import (
	"context"
	"path"
	"strings"

	"github.com/phobologic/contextweaver/internal/lang"
	"github.com/phobologic/contextweaver/internal/model"
)

// Producer extracts structural facts from the files it claims.
//
// Initialize is called once with every file of the run before any Analyze
// call, so producers can build project-wide indexes. Analyze may then be
// called concurrently and must treat that index as read-only.
type Producer interface {
	Name() string
	CanAnalyze(path string) bool
	Initialize(ctx context.Context, files []string) error
	Analyze(ctx context.Context, path string) (*model.FileRecord, error)
}

var textLanguages = map[string]string{
	".md":    "markdown",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
	".mod":   "go-module",
	".sh":    "shell",
	".sql":   "sql",
	".proto": "protobuf",
	".html":  "html",
	".css":   "css",
	".js":    "javascript",
	".ts":    "typescript",
	".cs":    "csharp",
	".java":  "java",
	".rs":    "rust",
	".c":     "c",
	".h":     "c",
	".txt":   "text",
}

// LanguageOf names the language of a path for records and code fences.
func LanguageOf(p string) string {
	ext := strings.ToLower(path.Ext(p))
	if name := lang.ForExtension(ext); name != "" {
		return name
	}
	if name, ok := textLanguages[ext]; ok {
		return name
	}
	return "text"
}

// CountLines returns the number of lines in content. A trailing newline does
// not start a new line.
func CountLines(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}

package lang

import (
	"testing"
)

func TestForExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ext  string
		want string
	}{
		{".py", "python"},
		{".go", "go"},
		{".rb", "ruby"},
		{".GO", "go"},
		{".js", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			t.Parallel()
			got := ForExtension(tt.ext)
			if got != tt.want {
				t.Errorf("ForExtension(%q) = %q, want %q", tt.ext, got, tt.want)
			}
		})
	}
}

func TestForPath(t *testing.T) {
	t.Parallel()

	if l := ForPath("internal/graph/graph.go"); l == nil || l.Name != "go" {
		t.Errorf("ForPath(graph.go) = %v, want go", l)
	}
	if l := ForPath("lib/v1.2/Makefile"); l != nil {
		t.Errorf("ForPath(Makefile) = %q, want nil", l.Name)
	}
	if l := ForPath("README.md"); l != nil {
		t.Errorf("ForPath(README.md) = %q, want nil", l.Name)
	}
}

func TestLanguagesRegistered(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"go", "python", "ruby"} {
		l, ok := Languages[name]
		if !ok {
			t.Fatalf("%s language not registered", name)
		}
		if l.GetLanguage() == nil {
			t.Errorf("%s language is nil", name)
		}
		if l.DeclareTypes == nil || l.Imports == nil || l.TypeRef == nil ||
			l.PublicAPI == nil || l.IsBranch == nil || len(l.Nesting) == 0 {
			t.Errorf("%s language is missing syntax hooks", name)
		}
	}
}

func TestNewParser(t *testing.T) {
	t.Parallel()

	py := Languages["python"]
	p := py.NewParser()
	if p == nil {
		t.Fatal("NewParser returned nil")
	}
}

func TestLastSegment(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Foo":          "Foo",
		"abc.ABC":      "ABC",
		"Admin::User":  "User",
		"a.b::C":       "C",
		"pkg.sub.Type": "Type",
	}
	for in, want := range tests {
		if got := LastSegment(in); got != want {
			t.Errorf("LastSegment(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCollapseWhitespace(t *testing.T) {
	t.Parallel()

	if got := CollapseWhitespace("  (a int,\n\t b string)  "); got != "(a int, b string)" {
		t.Errorf("CollapseWhitespace = %q", got)
	}
}

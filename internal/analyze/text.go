package analyze

import (
	"context"

	"github.com/phobologic/contextweaver/internal/model"
	"github.com/phobologic/contextweaver/internal/source"
)

// Text keeps the raw content of any file. Register it last so it only picks
// up what no structural producer claims.
type Text struct {
	src *source.Cache
}

// NewText creates a producer reading files through src.
func NewText(src *source.Cache) *Text {
	return &Text{src: src}
}

func (p *Text) Name() string { return "text" }

func (p *Text) CanAnalyze(string) bool { return true }

func (p *Text) Initialize(context.Context, []string) error { return nil }

func (p *Text) Analyze(_ context.Context, path string) (*model.FileRecord, error) {
	data, err := p.src.Read(path)
	if err != nil {
		return nil, err
	}
	content := string(data)
	return &model.FileRecord{
		Language: LanguageOf(path),
		Lines:    CountLines(content),
		Content:  content,
	}, nil
}

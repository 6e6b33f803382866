package sink

import (
	"bytes"
	"context"
	"fmt"
	"html"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpscan/internal/interfaces"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// MarkdownSink writes the portfolio report as markdown
type MarkdownSink struct {
	target fileTarget
	logger arbor.ILogger
}

var _ interfaces.Sink = (*MarkdownSink)(nil)

func NewMarkdownSink(dir, prefix string, logger arbor.ILogger) *MarkdownSink {
	return &MarkdownSink{target: fileTarget{dir: dir, prefix: prefix}, logger: logger}
}

func (s *MarkdownSink) Name() string { return "markdown" }

func (s *MarkdownSink) Write(ctx context.Context, batch interfaces.Batch) error {
	if err := ctx.Err(); err != nil && !batch.Partial {
		return err
	}

	path := s.target.path(batch, "md")
	if err := s.target.write(path, []byte(RenderReport(batch))); err != nil {
		return err
	}

	s.logger.Info().Str("path", path).Msg("Markdown report written")
	return nil
}

const htmlPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: -apple-system, "Segoe UI", Arial, sans-serif; max-width: 1100px; margin: 2rem auto; color: #222; }
table { border-collapse: collapse; margin: 1rem 0; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: left; }
th { background: #f0f0f0; }
code { background: #f5f5f5; padding: 0 3px; }
</style>
</head>
<body>
%s
</body>
</html>
`

// HTMLSink renders the markdown report to a standalone HTML page
type HTMLSink struct {
	target   fileTarget
	markdown goldmark.Markdown
	logger   arbor.ILogger
}

var _ interfaces.Sink = (*HTMLSink)(nil)

func NewHTMLSink(dir, prefix string, logger arbor.ILogger) *HTMLSink {
	return &HTMLSink{
		target:   fileTarget{dir: dir, prefix: prefix},
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		logger:   logger,
	}
}

func (s *HTMLSink) Name() string { return "html" }

func (s *HTMLSink) Write(ctx context.Context, batch interfaces.Batch) error {
	if err := ctx.Err(); err != nil && !batch.Partial {
		return err
	}

	page, err := s.Render(batch)
	if err != nil {
		return err
	}

	path := s.target.path(batch, "html")
	if err := s.target.write(path, page); err != nil {
		return err
	}

	s.logger.Info().Str("path", path).Msg("HTML report written")
	return nil
}

// Render returns the full HTML document for a batch
func (s *HTMLSink) Render(batch interfaces.Batch) ([]byte, error) {
	var body bytes.Buffer
	if err := s.markdown.Convert([]byte(RenderReport(batch)), &body); err != nil {
		return nil, fmt.Errorf("failed to render report HTML: %w", err)
	}
	title := html.EscapeString("Portfolio Report " + batch.RunID)
	return []byte(fmt.Sprintf(htmlPage, title, body.String())), nil
}

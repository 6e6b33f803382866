package sink

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpscan/internal/interfaces"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	pdfFont       = "Arial"
	pdfBodySize   = 9.0
	pdfLineHeight = 5.0
	pdfPageWidth  = 190.0 // A4 minus 10mm margins
	pdfMaxCellLen = 60
)

// PDFSink renders the markdown report to an A4 PDF
type PDFSink struct {
	target fileTarget
	logger arbor.ILogger
}

var _ interfaces.Sink = (*PDFSink)(nil)

func NewPDFSink(dir, prefix string, logger arbor.ILogger) *PDFSink {
	return &PDFSink{target: fileTarget{dir: dir, prefix: prefix}, logger: logger}
}

func (s *PDFSink) Name() string { return "pdf" }

func (s *PDFSink) Write(ctx context.Context, batch interfaces.Batch) error {
	if err := ctx.Err(); err != nil && !batch.Partial {
		return err
	}

	data, err := RenderPDF(RenderReport(batch), "Portfolio Report "+batch.RunID)
	if err != nil {
		return err
	}

	path := s.target.path(batch, "pdf")
	if err := s.target.write(path, data); err != nil {
		return err
	}

	s.logger.Info().Str("path", path).Int("bytes", len(data)).Msg("PDF report written")
	return nil
}

// RenderPDF converts a markdown document to PDF bytes
func RenderPDF(markdown, title string) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle(title, true)
	doc.SetMargins(10, 10, 10)
	doc.SetAutoPageBreak(true, 10)
	doc.AddPage()
	doc.SetFont(pdfFont, "", pdfBodySize)

	source := []byte(markdown)
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	root := md.Parser().Parse(text.NewReader(source))

	w := &pdfWriter{doc: doc, source: source, translate: doc.UnicodeTranslatorFromDescriptor("")}
	if err := ast.Walk(root, w.walk); err != nil {
		return nil, fmt.Errorf("failed to lay out PDF: %w", err)
	}
	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF output: %w", err)
	}
	return buf.Bytes(), nil
}

// pdfWriter walks the markdown AST and emits fpdf calls
type pdfWriter struct {
	doc       *fpdf.Fpdf
	source    []byte
	translate func(string) string
	bold      bool
	italic    bool
	listDepth int
}

// encode maps UTF-8 to the core font code page. The rupee sign has no
// cp1252 glyph so it is spelled out.
func (w *pdfWriter) encode(s string) string {
	return w.translate(strings.ReplaceAll(s, "₹", "Rs "))
}

func (w *pdfWriter) setStyle() {
	style := ""
	if w.bold {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	w.doc.SetFont(pdfFont, style, pdfBodySize)
}

func (w *pdfWriter) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			w.doc.Ln(4)
			w.doc.SetFont(pdfFont, "B", headingSize(node.Level))
		} else {
			w.doc.Ln(7)
			w.setStyle()
		}
	case *ast.Paragraph:
		if !entering {
			w.doc.Ln(pdfLineHeight + 1)
		}
	case *ast.Text:
		if entering {
			w.doc.Write(pdfLineHeight, w.encode(string(node.Segment.Value(w.source))))
			if node.SoftLineBreak() {
				w.doc.Write(pdfLineHeight, " ")
			}
		}
	case *ast.Emphasis:
		if node.Level == 2 {
			w.bold = entering
		} else {
			w.italic = entering
		}
		w.setStyle()
	case *ast.CodeSpan:
		if entering {
			w.doc.SetFont("Courier", "", pdfBodySize)
			w.doc.Write(pdfLineHeight, w.encode(string(node.Text(w.source))))
			w.setStyle()
		}
		return ast.WalkSkipChildren, nil
	case *ast.List:
		if entering {
			w.listDepth++
		} else {
			w.listDepth--
			if w.listDepth == 0 {
				w.doc.Ln(2)
			}
		}
	case *ast.ListItem:
		if entering {
			w.doc.Ln(pdfLineHeight)
			w.doc.SetX(12 + float64(w.listDepth)*4)
			w.doc.Write(pdfLineHeight, "- ")
		}
	case *ast.TextBlock:
		// list item bodies; text is written by children
	case *extast.Table:
		if entering {
			w.table(node)
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func headingSize(level int) float64 {
	switch level {
	case 1:
		return 15
	case 2:
		return 12
	default:
		return 10
	}
}

func (w *pdfWriter) table(n *extast.Table) {
	var rows [][]string
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		var cells []string
		for c := child.FirstChild(); c != nil; c = c.NextSibling() {
			value := strings.TrimSpace(string(c.Text(w.source)))
			if len(value) > pdfMaxCellLen {
				value = value[:pdfMaxCellLen-3] + "..."
			}
			cells = append(cells, w.encode(value))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	widths := w.columnWidths(rows)
	w.doc.Ln(2)
	for i, row := range rows {
		header := i == 0
		if header {
			w.doc.SetFont(pdfFont, "B", pdfBodySize-1)
			w.doc.SetFillColor(230, 230, 230)
		} else {
			w.doc.SetFont(pdfFont, "", pdfBodySize-1)
		}
		for j := range widths {
			value := ""
			if j < len(row) {
				value = row[j]
			}
			w.doc.CellFormat(widths[j], pdfLineHeight+1, value, "1", 0, "L", header, 0, "")
		}
		w.doc.Ln(-1)
	}
	w.doc.Ln(3)
	w.setStyle()
}

// columnWidths sizes columns to their widest cell and scales them to the page
func (w *pdfWriter) columnWidths(rows [][]string) []float64 {
	widths := make([]float64, len(rows[0]))
	w.doc.SetFont(pdfFont, "B", pdfBodySize-1)
	for _, row := range rows {
		for j, value := range row {
			if j >= len(widths) {
				break
			}
			if cw := w.doc.GetStringWidth(value) + 4; cw > widths[j] {
				widths[j] = cw
			}
		}
	}

	total := 0.0
	for _, cw := range widths {
		total += cw
	}
	if total > pdfPageWidth {
		scale := pdfPageWidth / total
		for j := range widths {
			widths[j] *= scale
		}
	}
	return widths
}

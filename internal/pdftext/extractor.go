// Package pdftext pulls the plain text out of a statement PDF.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnreadableDocument is returned when the bytes cannot be read as a PDF.
var ErrUnreadableDocument = errors.New("unreadable document")

// Extractor converts PDF bytes to text, one page after another.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractText returns the text of every page in document order, joined by
// newlines. Corrupt or non-PDF input fails with ErrUnreadableDocument.
func (e *Extractor) ExtractText(data []byte) (text string, err error) {
	// The reader panics on some malformed object streams.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("ExtractText: %w: %v", ErrUnreadableDocument, r)
		}
	}()

	if len(data) == 0 {
		return "", fmt.Errorf("ExtractText: %w: empty content", ErrUnreadableDocument)
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("ExtractText: %w: %v", ErrUnreadableDocument, err)
	}

	n := r.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, pageText(p.Content().Text))
	}

	return strings.Join(pages, "\n"), nil
}

// pageText rebuilds the lines of a page from positioned glyphs in content
// stream order. A baseline change starts a new line, a vertical jump of more
// than two font sizes leaves an empty line, and a horizontal gap between
// glyphs on one line becomes a single space.
func pageText(glyphs []pdf.Text) string {
	var (
		b       strings.Builder
		prev    pdf.Text
		started bool
	)
	for _, g := range glyphs {
		// TJ arrays end with a synthetic newline glyph; lines come from geometry.
		if g.S == "" || g.S == "\n" || g.S == "\r" {
			continue
		}
		if started {
			size := math.Max(prev.FontSize, 1)
			switch drop := prev.Y - g.Y; {
			case math.Abs(drop) > size/2:
				b.WriteByte('\n')
				if drop > 2*size {
					b.WriteByte('\n')
				}
			case g.X-(prev.X+prev.W) > size/5 && !endsInSpace(prev.S) && !startsWithSpace(g.S):
				b.WriteByte(' ')
			}
		}
		b.WriteString(g.S)
		prev = g
		started = true
	}
	return b.String()
}

func endsInSpace(s string) bool {
	return strings.HasSuffix(s, " ") || strings.HasSuffix(s, "\t")
}

func startsWithSpace(s string) bool {
	return strings.HasPrefix(s, " ") || strings.HasPrefix(s, "\t")
}

package content

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Converter turns Markdown source into an HTML fragment.
type Converter interface {
	Convert(src []byte) (string, error)
}

// ConverterFunc adapts a function to Converter.
type ConverterFunc func(src []byte) (string, error)

func (f ConverterFunc) Convert(src []byte) (string, error) { return f(src) }

// GoldmarkConverter renders GitHub-flavoured Markdown with raw HTML passthrough.
type GoldmarkConverter struct {
	md goldmark.Markdown
}

// NewGoldmarkConverter builds the default converter.
func NewGoldmarkConverter() *GoldmarkConverter {
	return &GoldmarkConverter{md: goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			gmhtml.WithUnsafe(),
		),
	)}
}

func (c *GoldmarkConverter) Convert(src []byte) (string, error) {
	var buf bytes.Buffer
	if err := c.md.Convert(src, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Package mdtext turns markdown documents into plain text for embedding.
package mdtext

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

var (
	frontMatterRe = regexp.MustCompile(`\A---[ \t]*\r?\n([\s\S]*?)\r?\n---[ \t]*(?:\r?\n|\z)`)
	blankLinesRe  = regexp.MustCompile(`\n{2,}`)
)

var parser = goldmark.New()

// Document is a parsed markdown file.
type Document struct {
	Meta map[string]interface{}
	Text string
}

// Parse splits off YAML front matter and extracts the text content of src.
func Parse(src []byte) (*Document, error) {
	meta, body, err := SplitFrontMatter(src)
	if err != nil {
		return nil, err
	}
	return &Document{Meta: meta, Text: ToText(body)}, nil
}

// SplitFrontMatter returns the decoded front matter (nil when absent) and the
// remaining body.
func SplitFrontMatter(src []byte) (map[string]interface{}, []byte, error) {
	m := frontMatterRe.FindSubmatchIndex(src)
	if m == nil {
		return nil, src, nil
	}
	meta := make(map[string]interface{})
	if err := yaml.Unmarshal(src[m[2]:m[3]], &meta); err != nil {
		return nil, nil, fmt.Errorf("parse front matter: %w", err)
	}
	return meta, src[m[1]:], nil
}

// ToText keeps text, inline code and code block content, one node per line,
// and drops markup, HTML and images.
func ToText(src []byte) string {
	doc := parser.Parser().Parse(text.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Image, *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			b.Write(node.Segment.Value(src))
			b.WriteByte('\n')
		case *ast.String:
			b.Write(node.Value)
			b.WriteByte('\n')
		case *ast.AutoLink:
			b.Write(node.Label(src))
			b.WriteByte('\n')
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			var code bytes.Buffer
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				code.Write(seg.Value(src))
			}
			b.Write(bytes.TrimRight(code.Bytes(), "\n"))
			b.WriteByte('\n')
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(blankLinesRe.ReplaceAllString(b.String(), "\n"))
}

// IsDraft reports whether front matter marks the document as a draft.
func (d *Document) IsDraft() bool {
	if d == nil || d.Meta == nil {
		return false
	}
	v, ok := d.Meta["draft"].(bool)
	return ok && v
}

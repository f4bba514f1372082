package generator

import (
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// PlainText flattens Markdown in model output to the plain text a post can
// carry and strips quotes wrapped around the whole reply.
func PlainText(s string) string {
	s = unquote(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	src := []byte(s)
	doc := markdown.Parser().Parse(text.NewReader(src))

	var blocks []string
	collectBlocks(doc, src, &blocks)
	return unquote(strings.TrimSpace(strings.Join(blocks, "\n\n")))
}

func collectBlocks(n ast.Node, src []byte, blocks *[]string) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Paragraph, *ast.Heading, *ast.TextBlock:
			if t := strings.TrimSpace(inline(node, src)); t != "" {
				*blocks = append(*blocks, t)
			}
		case *ast.List:
			var items []string
			i := node.Start
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				var parts []string
				collectBlocks(item, src, &parts)
				marker := "- "
				if node.IsOrdered() {
					marker = strconv.Itoa(i) + ". "
					i++
				}
				items = append(items, marker+strings.Join(parts, " "))
			}
			if len(items) > 0 {
				*blocks = append(*blocks, strings.Join(items, "\n"))
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			var lines strings.Builder
			segs := node.Lines()
			for i := 0; i < segs.Len(); i++ {
				seg := segs.At(i)
				lines.Write(seg.Value(src))
			}
			if t := strings.TrimRight(lines.String(), "\n"); t != "" {
				*blocks = append(*blocks, t)
			}
		case *ast.ThematicBreak, *ast.HTMLBlock:
		default:
			collectBlocks(node, src, blocks)
		}
	}
}

func inline(n ast.Node, src []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteString("\n")
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.AutoLink:
			b.Write(node.URL(src))
		case *ast.Link:
			label := inline(node, src)
			dest := string(node.Destination)
			if label == "" || label == dest {
				b.WriteString(dest)
			} else {
				b.WriteString(label + " (" + dest + ")")
			}
		case *ast.Image:
			b.WriteString(inline(node, src))
		case *ast.RawHTML:
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				b.Write(seg.Value(src))
			}
		default:
			b.WriteString(inline(node, src))
		}
	}
	return b.String()
}

func unquote(s string) string {
	for _, pair := range [][2]string{{`"`, `"`}, {"“", "”"}} {
		if len(s) >= len(pair[0])+len(pair[1]) && strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) {
			inner := s[len(pair[0]) : len(s)-len(pair[1])]
			if !strings.ContainsAny(inner, `"“”`) {
				return strings.TrimSpace(inner)
			}
		}
	}
	return s
}

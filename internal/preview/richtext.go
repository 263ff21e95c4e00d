package preview

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	blankLines = regexp.MustCompile(`\n{3,}`)
	spaceRun   = regexp.MustCompile(`[ \t\f\v]+`)
)

// RichText is a description reduced to what both renderers can draw: either
// bullet items (when the source has list markup) or plain paragraphs.
// Paragraph text may contain single newlines for explicit line breaks.
type RichText struct {
	Bullets    []string
	Paragraphs []string
}

// IsEmpty reports whether the text has nothing to draw.
func (r RichText) IsEmpty() bool {
	return len(r.Bullets) == 0 && len(r.Paragraphs) == 0
}

// ParseRichText reduces editor HTML (or plain text) to bullets or paragraphs.
func ParseRichText(source string) RichText {
	if strings.TrimSpace(source) == "" {
		return RichText{}
	}
	if !strings.Contains(source, "<") {
		return RichText{Paragraphs: paragraphs(source)}
	}

	// Source newlines inside markup are just whitespace.
	flat := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(source)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(flat))
	if err != nil {
		return RichText{Paragraphs: paragraphs(source)}
	}

	items := doc.Find("li")
	if items.Length() > 0 {
		var bullets []string
		items.Each(func(_ int, s *goquery.Selection) {
			if text := cleanLine(s.Text()); text != "" {
				bullets = append(bullets, text)
			}
		})
		return RichText{Bullets: bullets}
	}

	doc.Find("br").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithNodes(textNode("\n"))
	})
	doc.Find("p, div, h1, h2, h3, h4, h5, h6, blockquote").Each(func(_ int, s *goquery.Selection) {
		s.AppendNodes(textNode("\n\n"))
	})
	return RichText{Paragraphs: paragraphs(doc.Find("body").Text())}
}

// paragraphs normalizes whitespace and splits on blank lines.
func paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = cleanLine(lines[i])
	}
	text = blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")

	var out []string
	for _, block := range strings.Split(text, "\n\n") {
		if block = strings.Trim(block, "\n"); block != "" {
			out = append(out, block)
		}
	}
	return out
}

func textNode(data string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: data}
}

func cleanLine(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

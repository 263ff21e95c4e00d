package rendering

import (
	"strings"
	"unicode/utf8"
)

// Layout constants, in millimetres unless noted.
const (
	margin           = 18.0
	lineHeightFactor = 1.35
	ptToMM           = 0.3528
	entryGap         = 4.0
	sectionGap       = 5.0
	bulletIndent     = 5.0
	photoSize        = 28.0
	photoGap         = 6.0

	sizeName    = 22.0 // pt
	sizeTitle   = 12.0
	sizeHeading = 11.5
	sizeEntry   = 11.0
	sizeBody    = 10.0
	sizeSmall   = 9.0

	bullet = "•"
)

// layout is a single cursor moving down the pages. It never moves back up
// except to return to the top of a new page.
type layout struct {
	c      Canvas
	width  float64
	height float64
	y      float64
	pages  int
	accent RGB
}

func newLayout(c Canvas, accent RGB) *layout {
	c.AddPage()
	w, h := c.PageSize()
	return &layout{c: c, width: w, height: h, y: margin, pages: 1, accent: accent}
}

func (l *layout) contentWidth() float64 {
	return l.width - 2*margin
}

func lineHeight(size float64) float64 {
	return size * ptToMM * lineHeightFactor
}

// ensure starts a new page when h does not fit below the cursor.
func (l *layout) ensure(h float64) {
	if l.y+h <= l.height-margin {
		return
	}
	l.c.AddPage()
	l.pages++
	l.y = margin
}

func (l *layout) gap(h float64) {
	l.y += h
}

// text writes one unwrapped line at x and advances the cursor.
func (l *layout) text(x float64, s, style string, size float64, color RGB) {
	lh := lineHeight(size)
	l.ensure(lh)
	l.c.SetFont(style, size)
	l.c.SetTextColor(color)
	l.c.Text(x, l.y+size*ptToMM, s)
	l.y += lh
}

// paragraph wraps s to the width available from x and writes each line.
// Explicit newlines start a new line.
func (l *layout) paragraph(x float64, s, style string, size float64, color RGB) {
	l.c.SetFont(style, size)
	for _, line := range wrap(l.c, s, l.width-margin-x) {
		l.text(x, line, style, size, color)
	}
}

// bulletItem writes a bullet glyph and the wrapped text with a hanging indent.
func (l *layout) bulletItem(s string, size float64) {
	l.c.SetFont("", size)
	lines := wrap(l.c, s, l.contentWidth()-bulletIndent)
	for i, line := range lines {
		lh := lineHeight(size)
		l.ensure(lh)
		l.c.SetFont("", size)
		l.c.SetTextColor(colorText)
		baseline := l.y + size*ptToMM
		if i == 0 {
			l.c.Text(margin+1, baseline, bullet)
		}
		l.c.Text(margin+bulletIndent, baseline, line)
		l.y += lh
	}
}

// labeled writes "Label: text" with continuation lines aligned after the label.
func (l *layout) labeled(label, s string, size float64) {
	l.c.SetFont("B", size)
	labelWidth := l.c.StringWidth(label + ": ")
	l.c.SetFont("", size)
	lines := wrap(l.c, s, l.contentWidth()-labelWidth)
	for i, line := range lines {
		lh := lineHeight(size)
		l.ensure(lh)
		baseline := l.y + size*ptToMM
		l.c.SetTextColor(colorText)
		if i == 0 {
			l.c.SetFont("B", size)
			l.c.Text(margin, baseline, label+":")
		}
		l.c.SetFont("", size)
		l.c.Text(margin+labelWidth, baseline, line)
		l.y += lh
	}
}

// heading writes a section title followed by a thin accent rule. It keeps
// at least one body line on the same page as the title.
func (l *layout) heading(title string) {
	l.ensure(lineHeight(sizeHeading) + 2 + lineHeight(sizeBody))
	l.text(margin, title, "B", sizeHeading, l.accent)
	l.c.Line(margin, l.y, l.width-margin, l.y, 0.2, l.accent)
	l.gap(2)
}

// rule draws a full-width accent line at the cursor.
func (l *layout) rule(width float64) {
	l.c.Line(margin, l.y, l.width-margin, l.y, width, l.accent)
}

// wrap breaks s into lines no wider than width using the canvas' current
// font. Words longer than a line are split by character.
func wrap(c Canvas, s string, width float64) []string {
	var lines []string
	for _, raw := range strings.Split(s, "\n") {
		words := strings.Fields(raw)
		if len(words) == 0 {
			continue
		}
		current := ""
		for _, word := range words {
			candidate := word
			if current != "" {
				candidate = current + " " + word
			}
			if c.StringWidth(candidate) <= width {
				current = candidate
				continue
			}
			if current != "" {
				lines = append(lines, current)
			}
			current = word
			for c.StringWidth(current) > width && utf8.RuneCountInString(current) > 1 {
				head, tail := splitToWidth(c, current, width)
				lines = append(lines, head)
				current = tail
			}
		}
		if current != "" {
			lines = append(lines, current)
		}
	}
	return lines
}

// splitToWidth returns the longest prefix of s (at least one rune) that
// fits in width, and the rest.
func splitToWidth(c Canvas, s string, width float64) (string, string) {
	runes := []rune(s)
	n := 1
	for n < len(runes) && c.StringWidth(string(runes[:n+1])) <= width {
		n++
	}
	return string(runes[:n]), string(runes[n:])
}

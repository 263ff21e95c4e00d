// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/cv-builder/internal/preview"
	"github.com/jonathan/cv-builder/internal/rendering"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, ending in "..." when cut.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// PrintSnapshot outputs a summary of a preview snapshot. Sections filled
// from the example resume are marked.
func (p *Printer) PrintSnapshot(snap *preview.Snapshot) {
	if snap == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:     %s\n", snap.Personal.FullName()))
	sb.WriteString(fmt.Sprintf("Title:    %s\n", snap.Personal.JobTitle))
	sb.WriteString(fmt.Sprintf("Locale:   %s\n", snap.Locale))
	sb.WriteString(fmt.Sprintf("Template: %s %s\n", snap.Style.TemplateID, snap.Style.MainColor))
	if len(snap.Placeholders.Personal) > 0 {
		sb.WriteString(fmt.Sprintf("Example fields: %s\n", strings.Join(snap.Placeholders.Personal, ", ")))
	}
	sb.WriteString("\n")

	writeList(&sb, "Experience", snap.Placeholders.Experience, len(snap.Experience), func(i int) string {
		e := snap.Experience[i]
		return joinNonEmpty(" @ ", e.Position, e.Company)
	})
	writeList(&sb, "Education", snap.Placeholders.Education, len(snap.Education), func(i int) string {
		e := snap.Education[i]
		return joinNonEmpty(", ", e.Diploma, e.School)
	})
	writeList(&sb, "Skills", snap.Placeholders.Skills, len(snap.Skills), func(i int) string {
		return skillLine(snap.Skills[i])
	})
	writeList(&sb, "Languages", snap.Placeholders.Languages, len(snap.Languages), func(i int) string {
		l := snap.Languages[i]
		return joinNonEmpty(" - ", l.Name, l.Level)
	})

	if snap.Tools.IsPresent() {
		tools := snap.Tools.Items()
		writeList(&sb, "Tools", false, len(tools), func(i int) string { return skillLine(tools[i]) })
	}
	if snap.Certifications.IsPresent() {
		certs := snap.Certifications.Items()
		writeList(&sb, "Certifications", false, len(certs), func(i int) string {
			return joinNonEmpty(", ", certs[i].Name, certs[i].Issuer)
		})
	}
	if snap.Hobbies.IsPresent() {
		hobbies := snap.Hobbies.Items()
		writeList(&sb, "Hobbies", false, len(hobbies), func(i int) string { return hobbies[i].Name })
	}

	p.printBox("CV PREVIEW", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintDocument outputs the result of a PDF generation.
func (p *Printer) PrintDocument(doc *rendering.Document, path string) {
	if doc == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("File:   %s\n", doc.Filename))
	sb.WriteString(fmt.Sprintf("Pages:  %d\n", doc.Pages))
	sb.WriteString(fmt.Sprintf("Size:   %d bytes", len(doc.Data)))
	if path != "" {
		sb.WriteString(fmt.Sprintf("\nOutput: %s", path))
	}

	p.printBox("PDF GENERATED", sb.String())
}

func writeList(sb *strings.Builder, title string, example bool, n int, line func(int) string) {
	if example {
		title += " (example)"
	}
	sb.WriteString(fmt.Sprintf("%s: %d\n", title, n))

	count := min(n, maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", line(i)))
	}
	if n > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", n-maxItemsToShow))
	}
	sb.WriteString("\n")
}

func skillLine(s preview.Skill) string {
	if s.Level == "" || !s.ShowLevel {
		return s.Name
	}
	return fmt.Sprintf("%s (%s)", s.Name, s.Level)
}

func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

package rendering

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jonathan/cv-builder/internal/cv"
	"github.com/jonathan/cv-builder/internal/fetch"
	"github.com/jonathan/cv-builder/internal/locale"
	"github.com/jonathan/cv-builder/internal/preview"
)

// PhotoSource resolves a photo URL to image bytes, or nil when unavailable.
type PhotoSource interface {
	Acquire(ctx context.Context, rawURL string, circular bool) *fetch.Photo
}

// Options controls one PDF generation.
type Options struct {
	// PublishedURL adds a clickable link line under the contact details.
	PublishedURL string
	// Locale selects section titles and proficiency phrases. Empty uses
	// the snapshot's locale.
	Locale string
}

// Document is a generated PDF.
type Document struct {
	Filename string
	Data     []byte
	Pages    int
}

// Generator renders snapshots to PDF.
type Generator struct {
	Photos    PhotoSource
	Catalogs  *locale.Registry
	NewCanvas func() Canvas
	Verbose   bool
}

// NewGenerator returns a generator drawing with gofpdf. photos may be nil,
// in which case no photo is embedded.
func NewGenerator(photos PhotoSource, catalogs *locale.Registry) *Generator {
	return &Generator{Photos: photos, Catalogs: catalogs, NewCanvas: NewPDFCanvas}
}

// GenerateDocument exports doc's real data and renders it.
func (g *Generator) GenerateDocument(ctx context.Context, doc *cv.Document, opts Options) (*Document, error) {
	return g.Generate(ctx, preview.Export(doc, doc.Display), opts)
}

// Generate renders an exported snapshot. Sections without data are left
// out. Any failure, including a panic while drawing, is returned as a
// RenderError and no bytes are produced.
func (g *Generator) Generate(ctx context.Context, snap *preview.Snapshot, opts Options) (out *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[pdf] recovered from panic: %v", r)
			out, err = nil, generationError(fmt.Errorf("%v", r))
		}
	}()

	if snap == nil {
		return nil, generationError(fmt.Errorf("nothing to render"))
	}

	tag := opts.Locale
	if tag == "" {
		tag = snap.Locale
	}
	catalogs := g.Catalogs
	if catalogs == nil {
		catalogs = locale.MustLoad()
	}
	newCanvas := g.NewCanvas
	if newCanvas == nil {
		newCanvas = NewPDFCanvas
	}

	r := &pdfWriter{
		ctx:    ctx,
		snap:   snap,
		cat:    catalogs.Lookup(tag),
		photos: g.Photos,
		l:      newLayout(newCanvas(), ParseColor(snap.Style.MainColor, ParseColor(cv.DefaultMainColor, colorText))),
	}
	r.header(opts.PublishedURL)
	r.profile()
	r.experience()
	r.education()
	r.skillsAndTools()
	r.languages()
	r.certifications()
	r.hobbies()

	if err := r.l.c.Err(); err != nil {
		return nil, generationError(err)
	}
	var buf bytes.Buffer
	if err := r.l.c.Output(&buf); err != nil {
		return nil, generationError(err)
	}

	filename := Filename(snap.Personal.FirstName, snap.Personal.LastName)
	if g.Verbose {
		log.Printf("[pdf] Generated %s: %d pages, %d bytes", filename, r.l.pages, buf.Len())
	}
	return &Document{Filename: filename, Data: buf.Bytes(), Pages: r.l.pages}, nil
}

// Filename returns "CV_{first}_{last}.pdf" with characters unsafe in file
// names removed.
func Filename(first, last string) string {
	var parts []string
	for _, p := range []string{first, last} {
		if p = sanitizeFilePart(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "CV.pdf"
	}
	return "CV_" + strings.Join(parts, "_") + ".pdf"
}

func sanitizeFilePart(s string) string {
	s = strings.Join(strings.Fields(s), "-")
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.' {
			return r
		}
		return -1
	}, s)
}

type pdfWriter struct {
	ctx    context.Context
	snap   *preview.Snapshot
	cat    *locale.Catalog
	photos PhotoSource
	l      *layout
}

func (w *pdfWriter) header(publishedURL string) {
	l, p := w.l, w.snap.Personal
	top := l.y
	x := margin

	if photo := w.photo(); photo != nil {
		if err := l.c.Image("profile-photo", photo.Data, photo.Format, margin, top, photoSize, photoSize); err != nil {
			log.Printf("[pdf] Skipping profile photo: %v", err)
		} else {
			x = margin + photoSize + photoGap
		}
	}

	if name := p.FullName(); name != "" {
		upper := cases.Upper(language.Make(w.cat.Tag()))
		l.paragraph(x, upper.String(name), "B", sizeName, l.accent)
	}
	if p.JobTitle != "" {
		l.paragraph(x, p.JobTitle, "", sizeTitle, colorMuted)
	}
	l.gap(1)
	if contact := preview.ContactParts(p, w.snap.Display); len(contact) > 0 {
		l.paragraph(x, strings.Join(contact, preview.ContactSeparator), "", sizeSmall, colorText)
	}
	if links := preview.LinkParts(p, w.snap.Display); len(links) > 0 {
		l.paragraph(x, strings.Join(links, preview.ContactSeparator), "", sizeSmall, colorText)
	}
	if publishedURL != "" {
		w.link(x, publishedURL)
	}

	if x > margin && l.y < top+photoSize {
		l.y = top + photoSize
	}
	l.gap(3)
	l.rule(0.6)
	l.gap(sectionGap)
}

// photo returns the embeddable profile photo, or nil.
func (w *pdfWriter) photo() *fetch.Photo {
	if w.snap.Display.HidePhoto || w.snap.Personal.Photo == "" || w.photos == nil {
		return nil
	}
	circular := preview.LookupTemplate(w.snap.Style.TemplateID).CircularPhoto
	return w.photos.Acquire(w.ctx, w.snap.Personal.Photo, circular)
}

// link writes the published URL with a matching clickable area.
func (w *pdfWriter) link(x float64, url string) {
	l := w.l
	lh := lineHeight(sizeSmall)
	l.ensure(lh)
	l.c.SetFont("U", sizeSmall)
	l.c.SetTextColor(l.accent)
	l.c.Text(x, l.y+sizeSmall*ptToMM, url)
	l.c.Link(x, l.y, l.c.StringWidth(url), lh, url)
	l.y += lh
}

func (w *pdfWriter) profile() {
	summary := preview.ParseRichText(w.snap.Personal.Summary)
	if summary.IsEmpty() {
		return
	}
	w.l.heading(w.cat.T("section.profile"))
	w.richText(summary)
	w.l.gap(sectionGap)
}

func (w *pdfWriter) experience() {
	var entries []preview.Experience
	for _, e := range w.snap.Experience {
		if strings.TrimSpace(e.Company+e.Position) != "" || !preview.ParseRichText(e.Description).IsEmpty() {
			entries = append(entries, e)
		}
	}
	if len(entries) == 0 {
		return
	}
	w.l.heading(w.cat.T("section.experience"))
	for _, e := range entries {
		w.entry(e.Position, joinNonEmpty(" | ", e.Company, e.Location), cv.FormatRange(e.From, e.To, e.IsCurrent), e.Description)
	}
	w.l.gap(sectionGap - entryGap)
}

func (w *pdfWriter) education() {
	var entries []preview.Education
	for _, e := range w.snap.Education {
		if strings.TrimSpace(e.School+e.Diploma+e.Degree+e.Description+e.Location+e.From+e.To) != "" {
			entries = append(entries, e)
		}
	}
	if len(entries) == 0 {
		return
	}
	w.l.heading(w.cat.T("section.education"))
	for _, e := range entries {
		w.entry(joinNonEmpty(" – ", e.Diploma, e.Degree), joinNonEmpty(" | ", e.School, e.Location), cv.FormatRange(e.From, e.To, e.IsCurrent), e.Description)
	}
	w.l.gap(sectionGap - entryGap)
}

func (w *pdfWriter) entry(title, org, dates, description string) {
	l := w.l
	if title != "" {
		l.paragraph(margin, title, "B", sizeEntry, colorText)
	}
	if org != "" {
		l.paragraph(margin, org, "", sizeBody, l.accent)
	}
	if dates != "" {
		l.paragraph(margin, dates, "I", sizeSmall, colorMuted)
	}
	if body := preview.ParseRichText(description); !body.IsEmpty() {
		l.gap(1)
		w.richText(body)
	}
	l.gap(entryGap)
}

func (w *pdfWriter) richText(rt preview.RichText) {
	for _, b := range rt.Bullets {
		w.l.bulletItem(b, sizeBody)
	}
	for i, p := range rt.Paragraphs {
		if i > 0 {
			w.l.gap(lineHeight(sizeBody) / 2)
		}
		w.l.paragraph(margin, p, "", sizeBody, colorText)
	}
}

func (w *pdfWriter) skillsAndTools() {
	skills := skillNames(w.snap.Skills)
	tools := skillNames(w.snap.Tools.Items())
	if len(skills) == 0 && len(tools) == 0 {
		return
	}
	w.l.heading(w.cat.T("section.skills_tools"))
	if len(skills) > 0 {
		w.l.labeled(w.cat.T("label.skills"), strings.Join(skills, " | "), sizeBody)
	}
	if len(tools) > 0 {
		w.l.labeled(w.cat.T("label.tools"), strings.Join(tools, " | "), sizeBody)
	}
	w.l.gap(sectionGap)
}

func (w *pdfWriter) languages() {
	var lines []string
	for _, lang := range w.snap.Languages {
		name := strings.TrimSpace(lang.Name)
		if name == "" {
			continue
		}
		level := strings.TrimSpace(lang.Level)
		if level == "" || w.snap.Display.HideLanguageLevels {
			lines = append(lines, name)
			continue
		}
		lines = append(lines, fmt.Sprintf("%s (%s)", name, w.cat.LanguagePhrase(level)))
	}
	if len(lines) == 0 {
		return
	}
	w.l.heading(w.cat.T("section.languages"))
	for _, line := range lines {
		w.l.bulletItem(line, sizeBody)
	}
	w.l.gap(sectionGap)
}

func (w *pdfWriter) certifications() {
	var lines []string
	for _, c := range w.snap.Certifications.Items() {
		if line := joinNonEmpty(" – ", c.Name, c.Issuer, c.Date); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return
	}
	w.l.heading(w.cat.T("section.certifications"))
	for _, line := range lines {
		w.l.bulletItem(line, sizeBody)
	}
	w.l.gap(sectionGap)
}

func (w *pdfWriter) hobbies() {
	var names []string
	for _, h := range w.snap.Hobbies.Items() {
		if name := strings.TrimSpace(h.Name); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return
	}
	w.l.heading(w.cat.T("section.hobbies"))
	w.l.paragraph(margin, strings.Join(names, " | "), "", sizeBody, colorText)
}

func skillNames(skills []preview.Skill) []string {
	var names []string
	for _, s := range skills {
		if name := strings.TrimSpace(s.Name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

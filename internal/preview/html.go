package preview

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/jonathan/cv-builder/internal/cv"
	"github.com/jonathan/cv-builder/internal/locale"
)

//go:embed html/*.tmpl
var htmlFS embed.FS

var pageTemplate = template.Must(template.ParseFS(htmlFS, "html/page.html.tmpl"))

// labelKeys are the catalog strings the page needs.
var labelKeys = []string{
	"section.profile",
	"section.experience",
	"section.education",
	"section.skills_tools",
	"section.languages",
	"section.certifications",
	"section.hobbies",
	"label.skills",
	"label.tools",
	"preview.add_section",
}

type pageView struct {
	Lang       string
	TemplateID string
	Color      string
	Name       string
	JobTitle   string
	Photo      template.URL
	Contact    []string
	Links      []string
	Summary    RichText
	Labels     map[string]string

	Experience     []entryView
	Education      []entryView
	Skills         []levelView
	Tools          optionalView[levelView]
	Languages      []languageView
	Certifications optionalView[string]
	Hobbies        optionalView[string]
}

type entryView struct {
	Title string
	Org   string
	Dates string
	Body  RichText
}

type levelView struct {
	Name string
	Bars []bool
}

type languageView struct {
	Name   string
	Phrase string
	Bars   []bool
}

type optionalView[T any] struct {
	Present bool
	Items   []T
}

// RenderHTML writes the on-screen page for snap. Sections that are present
// but empty render an "add" control; absent optional sections render nothing.
func RenderHTML(w io.Writer, snap *Snapshot, cat *locale.Catalog) error {
	if err := pageTemplate.Execute(w, newPageView(snap, cat)); err != nil {
		return fmt.Errorf("failed to render preview: %w", err)
	}
	return nil
}

func newPageView(snap *Snapshot, cat *locale.Catalog) pageView {
	d := snap.Display
	v := pageView{
		Lang:       cat.Tag(),
		TemplateID: LookupTemplate(snap.Style.TemplateID).ID,
		Color:      snap.Style.MainColor,
		Name:       snap.Personal.FullName(),
		JobTitle:   snap.Personal.JobTitle,
		Contact:    ContactParts(snap.Personal, d),
		Links:      LinkParts(snap.Personal, d),
		Summary:    ParseRichText(snap.Personal.Summary),
		Labels:     make(map[string]string, len(labelKeys)),
	}
	if !d.HidePhoto {
		v.Photo = photoURL(snap.Personal.Photo)
	}
	for _, key := range labelKeys {
		v.Labels[key] = cat.T(key)
	}

	for _, e := range snap.Experience {
		v.Experience = append(v.Experience, entryView{
			Title: e.Position,
			Org:   joinNonEmpty(" | ", e.Company, e.Location),
			Dates: cv.FormatRange(e.From, e.To, e.IsCurrent),
			Body:  ParseRichText(e.Description),
		})
	}
	for _, e := range snap.Education {
		v.Education = append(v.Education, entryView{
			Title: joinNonEmpty(" – ", e.Diploma, e.Degree),
			Org:   joinNonEmpty(" | ", e.School, e.Location),
			Dates: cv.FormatRange(e.From, e.To, e.IsCurrent),
			Body:  ParseRichText(e.Description),
		})
	}
	for _, s := range snap.Skills {
		v.Skills = append(v.Skills, newLevelView(s, d.HideSkillLevels))
	}
	v.Tools.Present = snap.Tools.IsPresent()
	for _, s := range snap.Tools.Items() {
		v.Tools.Items = append(v.Tools.Items, newLevelView(s, d.HideToolLevels))
	}
	for _, l := range snap.Languages {
		lv := languageView{Name: l.Name}
		if !d.HideLanguageLevels {
			lv.Phrase = cat.LanguagePhrase(l.Level)
			lv.Bars = bars(l.Rank)
		}
		v.Languages = append(v.Languages, lv)
	}
	v.Certifications.Present = snap.Certifications.IsPresent()
	for _, c := range snap.Certifications.Items() {
		v.Certifications.Items = append(v.Certifications.Items, joinNonEmpty(" – ", c.Name, c.Issuer, c.Date))
	}
	v.Hobbies.Present = snap.Hobbies.IsPresent()
	for _, h := range snap.Hobbies.Items() {
		v.Hobbies.Items = append(v.Hobbies.Items, h.Name)
	}
	return v
}

func newLevelView(s Skill, hideLevels bool) levelView {
	lv := levelView{Name: s.Name}
	if s.ShowLevel && !hideLevels {
		lv.Bars = bars(s.Rank)
	}
	return lv
}

// photoURL admits image data URIs, http(s) and site-relative paths.
func photoURL(s string) template.URL {
	lower := strings.ToLower(s)
	for _, prefix := range []string{"data:image/", "https://", "http://", "/"} {
		if strings.HasPrefix(lower, prefix) {
			return template.URL(s)
		}
	}
	return ""
}

// bars returns four segments with the first rank filled.
func bars(rank int) []bool {
	out := make([]bool, 4)
	for i := 0; i < rank && i < len(out); i++ {
		out[i] = true
	}
	return out
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

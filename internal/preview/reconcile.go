package preview

import (
	"strings"

	"github.com/jonathan/cv-builder/internal/cv"
	"github.com/jonathan/cv-builder/internal/locale"
)

// Reconcile builds the on-screen snapshot. Each list section uses the real
// entries when at least one carries meaningful data and the catalog's
// example entries otherwise. Empty personal fields are filled from the
// example one by one. display is copied verbatim.
func Reconcile(doc *cv.Document, cat *locale.Catalog, display cv.DisplaySettings) *Snapshot {
	if doc == nil {
		doc = cv.NewDocument()
	}
	example := cat.Placeholder()

	snap := build(doc, display)
	snap.Locale = cat.Tag()
	snap.Placeholders.Personal = mergePersonal(&snap.Personal, example.Personal)

	if !hasExperience(doc.Experience) {
		snap.Experience = mapExperience(example.Experience)
		snap.Placeholders.Experience = true
	}
	if !hasEducation(doc.Education) {
		snap.Education = mapEducation(example.Education)
		snap.Placeholders.Education = true
	}
	if !hasNamedSkill(doc.Skills) {
		snap.Skills = mapSkills(example.Skills)
		snap.Placeholders.Skills = true
	}
	if !hasNamedLanguage(doc.Languages) {
		snap.Languages = mapLanguages(example.Languages)
		snap.Placeholders.Languages = true
	}

	if snap.Personal.Photo == "" {
		snap.Personal.Photo = LookupTemplate(doc.Style.TemplateID).PlaceholderPhoto
		snap.Placeholders.Photo = snap.Personal.Photo != ""
	}
	return snap
}

// Export builds the snapshot used for PDF output: real data only. Sections
// without meaningful data are left empty so renderers omit them.
func Export(doc *cv.Document, display cv.DisplaySettings) *Snapshot {
	if doc == nil {
		doc = cv.NewDocument()
	}
	snap := build(doc, display)
	if !hasExperience(doc.Experience) {
		snap.Experience = []Experience{}
	}
	if !hasEducation(doc.Education) {
		snap.Education = []Education{}
	}
	if !hasNamedSkill(doc.Skills) {
		snap.Skills = []Skill{}
	}
	if !hasNamedLanguage(doc.Languages) {
		snap.Languages = []Language{}
	}
	return snap
}

// build maps every real entry without consulting any defaults.
func build(doc *cv.Document, display cv.DisplaySettings) *Snapshot {
	p := doc.Personal
	style := doc.Style
	if style.TemplateID == "" {
		style.TemplateID = cv.DefaultTemplateID
	}
	if style.MainColor == "" {
		style.MainColor = LookupTemplate(style.TemplateID).DefaultColor
	}

	return &Snapshot{
		Personal: Personal{
			FirstName:        p.FirstName,
			LastName:         p.LastName,
			JobTitle:         p.JobTitle,
			Email:            p.Email,
			Phone:            p.Phone,
			PhoneCountryCode: p.PhoneCountryCode,
			City:             p.City,
			Country:          p.Country,
			LinkedIn:         p.LinkedIn,
			Website:          p.Website,
			Summary:          p.Summary,
			Photo:            firstNonEmpty(p.CircularPhotoURL, p.PhotoURL),
		},
		Experience:     mapExperience(doc.Experience),
		Education:      mapEducation(doc.Education),
		Skills:         mapSkills(doc.Skills),
		Languages:      mapLanguages(doc.Languages),
		Tools:          mapSection(doc.Tools, mapSkill),
		Certifications: mapSection(doc.Certifications, func(c cv.Certification) cv.Certification { return c }),
		Hobbies:        mapSection(doc.Hobbies, func(h cv.Hobby) cv.Hobby { return h }),
		Style:          style,
		Display:        display,
		Placeholders:   Placeholders{Personal: []string{}},
	}
}

// mergePersonal fills empty fields of dst from src and returns the names of
// the fields taken from src. Photo and links are never filled.
func mergePersonal(dst *Personal, src cv.Personal) []string {
	filled := []string{}
	fields := []struct {
		name string
		dst  *string
		src  string
	}{
		{"firstName", &dst.FirstName, src.FirstName},
		{"lastName", &dst.LastName, src.LastName},
		{"jobTitle", &dst.JobTitle, src.JobTitle},
		{"email", &dst.Email, src.Email},
		{"phone", &dst.Phone, src.Phone},
		{"phoneCountryCode", &dst.PhoneCountryCode, src.PhoneCountryCode},
		{"city", &dst.City, src.City},
		{"country", &dst.Country, src.Country},
		{"summary", &dst.Summary, src.Summary},
	}
	for _, f := range fields {
		if strings.TrimSpace(*f.dst) == "" && f.src != "" {
			*f.dst = f.src
			filled = append(filled, f.name)
		}
	}
	return filled
}

func hasExperience(entries []cv.Experience) bool {
	for _, e := range entries {
		if notBlank(e.Company) || notBlank(e.Position) || !ParseRichText(e.Description).IsEmpty() {
			return true
		}
	}
	return false
}

func hasEducation(entries []cv.Education) bool {
	for _, e := range entries {
		if notBlank(e.School) || notBlank(e.Diploma) || notBlank(e.Degree) ||
			notBlank(e.Description) || notBlank(e.Location) || notBlank(e.From) || notBlank(e.To) {
			return true
		}
	}
	return false
}

func hasNamedSkill(entries []cv.Skill) bool {
	for _, e := range entries {
		if notBlank(e.Name) {
			return true
		}
	}
	return false
}

func hasNamedLanguage(entries []cv.Language) bool {
	for _, e := range entries {
		if notBlank(e.Name) {
			return true
		}
	}
	return false
}

func mapExperience(entries []cv.Experience) []Experience {
	out := make([]Experience, 0, len(entries))
	for _, e := range entries {
		to := cv.CombineMonthYear(e.EndMonth, e.EndYear)
		if e.IsCurrent {
			to = cv.PresentLabel
		}
		out = append(out, Experience{
			ID:          e.ID,
			Position:    e.Position,
			Company:     e.Company,
			Location:    e.Location,
			From:        cv.CombineMonthYear(e.StartMonth, e.StartYear),
			To:          to,
			IsCurrent:   e.IsCurrent,
			Description: e.Description,
		})
	}
	return out
}

func mapEducation(entries []cv.Education) []Education {
	out := make([]Education, 0, len(entries))
	for _, e := range entries {
		current := strings.EqualFold(strings.TrimSpace(e.To), cv.PresentLabel)
		to := cv.ParseDate(e.To).String()
		if current {
			to = cv.PresentLabel
		}
		out = append(out, Education{
			ID:          e.ID,
			Diploma:     e.Diploma,
			Degree:      e.Degree,
			School:      e.School,
			Location:    e.Location,
			From:        cv.ParseDate(e.From).String(),
			To:          to,
			IsCurrent:   current,
			Description: e.Description,
		})
	}
	return out
}

func mapSkills(entries []cv.Skill) []Skill {
	out := make([]Skill, 0, len(entries))
	for _, e := range entries {
		out = append(out, mapSkill(e))
	}
	return out
}

func mapSkill(e cv.Skill) Skill {
	level := e.Level
	if level == "" {
		level = cv.LevelMedium
	}
	return Skill{
		ID:        e.ID,
		Name:      e.Name,
		Level:     level,
		Rank:      level.Ordinal(),
		ShowLevel: e.ShowLevel,
	}
}

func mapLanguages(entries []cv.Language) []Language {
	out := make([]Language, 0, len(entries))
	for _, e := range entries {
		tier := cv.ClassifyLanguage(e.Level)
		out = append(out, Language{
			ID:    e.ID,
			Name:  e.Name,
			Level: e.Level,
			Tier:  tier.String(),
			Rank:  tier.Ordinal(),
		})
	}
	return out
}

func mapSection[T, U any](s cv.Section[T], fn func(T) U) cv.Section[U] {
	if !s.IsPresent() {
		return cv.Absent[U]()
	}
	items := s.Items()
	out := make([]U, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return cv.Present(out...)
}

func notBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

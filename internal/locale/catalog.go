// Package locale provides the per-language string tables, proficiency
// phrases and placeholder resumes used by the preview and PDF renderers.
package locale

import (
	"fmt"

	"github.com/jonathan/cv-builder/internal/cv"
)

// Catalog is the content of one supported locale.
type Catalog struct {
	tag         string
	strings     map[string]string
	phrases     map[cv.LanguageTier]string
	placeholder *cv.Document
}

// Tag returns the base language code ("en", "fr").
func (c *Catalog) Tag() string {
	return c.tag
}

// T returns the string for key, or the key itself when missing.
func (c *Catalog) T(key string) string {
	if s, ok := c.strings[key]; ok {
		return s
	}
	return key
}

// LanguagePhrase returns the printed phrase for a proficiency label. Labels
// outside the known vocabulary are returned unchanged.
func (c *Catalog) LanguagePhrase(level string) string {
	tier, ok := cv.LookupLanguageLevel(level)
	if !ok {
		return level
	}
	if phrase, ok := c.phrases[tier]; ok {
		return phrase
	}
	return level
}

// Placeholder returns a copy of the example resume shown for empty sections.
func (c *Catalog) Placeholder() *cv.Document {
	return c.placeholder.Clone()
}

// file is the YAML layout of a catalog.
type file struct {
	Locale         string            `yaml:"locale"`
	Strings        map[string]string `yaml:"strings"`
	LanguageLevels map[string]string `yaml:"language_levels"`
	Placeholder    placeholder       `yaml:"placeholder"`
}

type placeholder struct {
	Personal struct {
		FirstName        string `yaml:"first_name"`
		LastName         string `yaml:"last_name"`
		JobTitle         string `yaml:"job_title"`
		Email            string `yaml:"email"`
		Phone            string `yaml:"phone"`
		PhoneCountryCode string `yaml:"phone_country_code"`
		City             string `yaml:"city"`
		Country          string `yaml:"country"`
		Summary          string `yaml:"summary"`
	} `yaml:"personal"`
	Experience []struct {
		Position    string `yaml:"position"`
		Company     string `yaml:"company"`
		Location    string `yaml:"location"`
		Start       string `yaml:"start"`
		End         string `yaml:"end"`
		Current     bool   `yaml:"current"`
		Description string `yaml:"description"`
	} `yaml:"experience"`
	Education []struct {
		Diploma     string `yaml:"diploma"`
		Degree      string `yaml:"degree"`
		School      string `yaml:"school"`
		Location    string `yaml:"location"`
		From        string `yaml:"from"`
		To          string `yaml:"to"`
		Description string `yaml:"description"`
	} `yaml:"education"`
	Skills []struct {
		Name  string `yaml:"name"`
		Level string `yaml:"level"`
	} `yaml:"skills"`
	Languages []struct {
		Name  string `yaml:"name"`
		Level string `yaml:"level"`
	} `yaml:"languages"`
}

func newCatalog(f *file) (*Catalog, error) {
	if f.Locale == "" {
		return nil, fmt.Errorf("catalog has no locale")
	}

	phrases := make(map[cv.LanguageTier]string, len(f.LanguageLevels))
	for _, tier := range []cv.LanguageTier{cv.TierBeginner, cv.TierIntermediate, cv.TierAdvanced, cv.TierNative} {
		phrase, ok := f.LanguageLevels[tier.String()]
		if !ok {
			return nil, fmt.Errorf("catalog %s: missing language level %q", f.Locale, tier)
		}
		phrases[tier] = phrase
	}

	return &Catalog{
		tag:         f.Locale,
		strings:     f.Strings,
		phrases:     phrases,
		placeholder: f.Placeholder.document(f.Locale),
	}, nil
}

// document converts the YAML example into a resume. Ids are derived from
// the locale and position so the example is identical on every load.
func (p *placeholder) document(tag string) *cv.Document {
	id := func(section string, i int) string {
		return fmt.Sprintf("placeholder-%s-%s-%d", tag, section, i+1)
	}

	doc := &cv.Document{
		Content: cv.Content{
			Personal: cv.Personal{
				FirstName:        p.Personal.FirstName,
				LastName:         p.Personal.LastName,
				JobTitle:         p.Personal.JobTitle,
				Email:            p.Personal.Email,
				Phone:            p.Personal.Phone,
				PhoneCountryCode: p.Personal.PhoneCountryCode,
				City:             p.Personal.City,
				Country:          p.Personal.Country,
				Summary:          p.Personal.Summary,
			},
		},
		Style: cv.Style{TemplateID: cv.DefaultTemplateID, MainColor: cv.DefaultMainColor},
	}

	for i, e := range p.Experience {
		start := cv.ParseDate(e.Start)
		end := cv.ParseDate(e.End)
		doc.Experience = append(doc.Experience, cv.Experience{
			ID:          id("experience", i),
			Position:    e.Position,
			Company:     e.Company,
			Location:    e.Location,
			StartMonth:  monthString(start),
			StartYear:   yearString(start),
			EndMonth:    monthString(end),
			EndYear:     yearString(end),
			IsCurrent:   e.Current,
			Description: e.Description,
		})
	}
	for i, e := range p.Education {
		doc.Education = append(doc.Education, cv.Education{
			ID:          id("education", i),
			Diploma:     e.Diploma,
			Degree:      e.Degree,
			School:      e.School,
			Location:    e.Location,
			From:        e.From,
			To:          e.To,
			Description: e.Description,
		})
	}
	for i, s := range p.Skills {
		doc.Skills = append(doc.Skills, cv.Skill{
			ID:        id("skill", i),
			Name:      s.Name,
			Level:     cv.SkillLevel(s.Level),
			ShowLevel: true,
		})
	}
	for i, l := range p.Languages {
		doc.Languages = append(doc.Languages, cv.Language{
			ID:    id("language", i),
			Name:  l.Name,
			Level: l.Level,
		})
	}
	return doc
}

func monthString(d cv.Date) string {
	if d.Month == 0 {
		return ""
	}
	return fmt.Sprintf("%02d", d.Month)
}

func yearString(d cv.Date) string {
	if d.Year == 0 {
		return ""
	}
	return fmt.Sprintf("%04d", d.Year)
}

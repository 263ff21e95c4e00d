// Package preview derives the render-ready resume shared by the on-screen
// templates and the PDF export.
package preview

import "github.com/jonathan/cv-builder/internal/cv"

// Snapshot is a complete resume ready for rendering. Every string field is
// set (possibly empty) so renderers never check for presence.
type Snapshot struct {
	Locale         string                       `json:"locale"`
	Personal       Personal                     `json:"personal"`
	Experience     []Experience                 `json:"experience"`
	Education      []Education                  `json:"education"`
	Skills         []Skill                      `json:"skills"`
	Languages      []Language                   `json:"languages"`
	Tools          cv.Section[Skill]            `json:"tools"`
	Certifications cv.Section[cv.Certification] `json:"certifications"`
	Hobbies        cv.Section[cv.Hobby]         `json:"hobbies"`
	Style          cv.Style                     `json:"style"`
	Display        cv.DisplaySettings           `json:"displaySettings"`
	Placeholders   Placeholders                 `json:"placeholders"`
}

// Personal is the header block. Photo is the resolved image URL.
type Personal struct {
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	JobTitle         string `json:"jobTitle"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	PhoneCountryCode string `json:"phoneCountryCode"`
	City             string `json:"city"`
	Country          string `json:"country"`
	LinkedIn         string `json:"linkedin"`
	Website          string `json:"website"`
	Summary          string `json:"summary"`
	Photo            string `json:"photo"`
}

// Experience carries From/To in storage form; To is cv.PresentLabel for a
// current position.
type Experience struct {
	ID          string `json:"id"`
	Position    string `json:"position"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	From        string `json:"from"`
	To          string `json:"to"`
	IsCurrent   bool   `json:"isCurrent"`
	Description string `json:"description"`
}

// Education mirrors cv.Education with normalized dates.
type Education struct {
	ID          string `json:"id"`
	Diploma     string `json:"diploma"`
	Degree      string `json:"degree"`
	School      string `json:"school"`
	Location    string `json:"location"`
	From        string `json:"from"`
	To          string `json:"to"`
	IsCurrent   bool   `json:"isCurrent"`
	Description string `json:"description"`
}

// Skill is a skill or tool with its level resolved for display.
type Skill struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Level     cv.SkillLevel `json:"level"`
	Rank      int           `json:"rank"`
	ShowLevel bool          `json:"showLevel"`
}

// Language carries both the raw label and its display tier.
type Language struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Level string `json:"level"`
	Tier  string `json:"tier"`
	Rank  int    `json:"rank"`
}

// Placeholders records which parts came from the example resume.
type Placeholders struct {
	Personal   []string `json:"personal"`
	Photo      bool     `json:"photo"`
	Experience bool     `json:"experience"`
	Education  bool     `json:"education"`
	Skills     bool     `json:"skills"`
	Languages  bool     `json:"languages"`
}

// FullName joins first and last name.
func (p Personal) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}

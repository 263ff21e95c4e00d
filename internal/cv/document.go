// Package cv holds the canonical resume document and the section-level
// operations that edit it. Every operation returns a new document; the
// receiver is never modified.
package cv

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Defaults applied to a freshly created document.
const (
	DefaultTemplateID   = "classic"
	DefaultMainColor    = "#1f6feb"
	DefaultTitle        = "Untitled CV"
	DefaultTemplateType = "digital"
)

// newID generates entry identifiers.
var newID = uuid.NewString

// Personal holds the header information of a resume.
type Personal struct {
	FirstName        string `json:"firstName,omitempty"`
	LastName         string `json:"lastName,omitempty"`
	JobTitle         string `json:"jobTitle,omitempty"`
	Email            string `json:"email,omitempty"`
	Phone            string `json:"phone,omitempty"`
	PhoneCountryCode string `json:"phoneCountryCode,omitempty"`
	City             string `json:"city,omitempty"`
	Country          string `json:"country,omitempty"`
	LinkedIn         string `json:"linkedin,omitempty"`
	Website          string `json:"website,omitempty"`
	Summary          string `json:"summary,omitempty"`
	PhotoURL         string `json:"photoUrl,omitempty"`
	CircularPhotoURL string `json:"circularPhotoUrl,omitempty"`
}

// Experience is one employment entry.
type Experience struct {
	ID          string `json:"id"`
	Position    string `json:"position"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	StartMonth  string `json:"startMonth"`
	StartYear   string `json:"startYear"`
	EndMonth    string `json:"endMonth"`
	EndYear     string `json:"endYear"`
	IsCurrent   bool   `json:"isCurrent"`
	Description string `json:"description"`
}

// Education is one diploma entry. From and To are stored as entered.
type Education struct {
	ID          string `json:"id"`
	Diploma     string `json:"diploma"`
	Degree      string `json:"degree"`
	School      string `json:"school"`
	Location    string `json:"location"`
	From        string `json:"from"`
	To          string `json:"to"`
	Description string `json:"description"`
}

// Skill is used for both the skills and the tools sections.
type Skill struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Level     SkillLevel `json:"level"`
	ShowLevel bool       `json:"showLevel"`
}

// Language is a spoken language with a free-form proficiency label.
type Language struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Level string `json:"level"`
}

// Certification is an optional credential entry.
type Certification struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Issuer string `json:"issuer"`
	Date   string `json:"date"`
}

// Hobby is an optional interest entry.
type Hobby struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (e Experience) entryID() string    { return e.ID }
func (e Education) entryID() string     { return e.ID }
func (e Skill) entryID() string         { return e.ID }
func (e Language) entryID() string      { return e.ID }
func (e Certification) entryID() string { return e.ID }
func (e Hobby) entryID() string         { return e.ID }

// Style selects the visual template and its accent color.
type Style struct {
	TemplateID string `json:"templateId"`
	MainColor  string `json:"mainColor"`
}

// DisplaySettings are user visibility toggles, independent of data completeness.
type DisplaySettings struct {
	HidePhoto          bool `json:"hidePhoto"`
	HideCity           bool `json:"hideCity"`
	HideSkillLevels    bool `json:"hideSkillLevels"`
	HideToolLevels     bool `json:"hideToolLevels"`
	HideLanguageLevels bool `json:"hideLanguageLevels"`
	HideLinkedIn       bool `json:"hideLinkedIn"`
	HideWebsite        bool `json:"hideWebsite"`
}

// Content is the resume body persisted as cvData.
type Content struct {
	Personal       Personal               `json:"personal"`
	Experience     []Experience           `json:"experience"`
	Education      []Education            `json:"education"`
	Skills         []Skill                `json:"skills"`
	Languages      []Language             `json:"languages"`
	Tools          Section[Skill]         `json:"tools"`
	Certifications Section[Certification] `json:"certifications"`
	Hobbies        Section[Hobby]         `json:"hobbies"`
}

// Document is the complete editable resume.
type Document struct {
	Content
	Style        Style           `json:"style"`
	TemplateType string          `json:"templateType"`
	Display      DisplaySettings `json:"displaySettings"`
	Title        string          `json:"title"`
	Subdomain    string          `json:"subdomain,omitempty"`
}

// Kind names a repeated section.
type Kind string

// Section kinds accepted by the editing operations.
const (
	KindExperience    Kind = "experience"
	KindEducation     Kind = "education"
	KindSkill         Kind = "skill"
	KindLanguage      Kind = "language"
	KindTool          Kind = "tool"
	KindCertification Kind = "certification"
	KindHobby         Kind = "hobby"
)

// Kinds lists every section kind in display order.
var Kinds = []Kind{KindExperience, KindEducation, KindSkill, KindLanguage, KindTool, KindCertification, KindHobby}

// ParseKind accepts singular and plural spellings ("tool", "tools").
func ParseKind(s string) (Kind, error) {
	k := strings.ToLower(strings.TrimSpace(s))
	switch k {
	case "experiences":
		k = "experience"
	case "educations":
		k = "education"
	case "hobbies":
		k = "hobby"
	default:
		k = strings.TrimSuffix(k, "s")
	}
	if slices.Contains(Kinds, Kind(k)) {
		return Kind(k), nil
	}
	return "", &KindError{Kind: s}
}

// Optional reports whether the section can be removed entirely.
func (k Kind) Optional() bool {
	return k == KindTool || k == KindCertification || k == KindHobby
}

// KindError reports an unknown section kind.
type KindError struct {
	Kind      string
	Operation string
}

func (e *KindError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("section kind %q does not support %s", e.Kind, e.Operation)
	}
	return fmt.Sprintf("unknown section kind %q", e.Kind)
}

// NewDocument returns the document used when starting a new resume: one
// empty entry in each mandatory list and the default style.
func NewDocument() *Document {
	return &Document{
		Content: Content{
			Experience: []Experience{newExperience()},
			Education:  []Education{newEducation()},
			Skills:     []Skill{newSkill()},
			Languages:  []Language{newLanguage()},
		},
		Style: Style{
			TemplateID: DefaultTemplateID,
			MainColor:  DefaultMainColor,
		},
		TemplateType: DefaultTemplateType,
		Title:        DefaultTitle,
	}
}

// Load returns a copy of doc suitable for editing. Some templates assume at
// least one language entry, so an empty language list gets one native entry.
func Load(doc *Document) *Document {
	if doc == nil {
		return NewDocument()
	}
	out := doc.Clone()
	if len(out.Languages) == 0 {
		out.Languages = []Language{newLanguage()}
	}
	if out.Style.TemplateID == "" {
		out.Style.TemplateID = DefaultTemplateID
	}
	if out.Style.MainColor == "" {
		out.Style.MainColor = DefaultMainColor
	}
	return out
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	out := *d
	out.Experience = slices.Clone(d.Experience)
	out.Education = slices.Clone(d.Education)
	out.Skills = slices.Clone(d.Skills)
	out.Languages = slices.Clone(d.Languages)
	out.Tools = cloneSection(d.Tools)
	out.Certifications = cloneSection(d.Certifications)
	out.Hobbies = cloneSection(d.Hobbies)
	return &out
}

func cloneSection[T any](s Section[T]) Section[T] {
	if !s.present {
		return Section[T]{}
	}
	return Present(s.items...)
}

func newExperience() Experience {
	return Experience{ID: newID()}
}

func newEducation() Education {
	return Education{ID: newID()}
}

func newSkill() Skill {
	return Skill{ID: newID(), Level: LevelMedium, ShowLevel: true}
}

func newLanguage() Language {
	return Language{ID: newID(), Level: "native"}
}

func newCertification() Certification {
	return Certification{ID: newID()}
}

func newHobby() Hobby {
	return Hobby{ID: newID()}
}

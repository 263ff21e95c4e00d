package cv

import (
	"encoding/json"
	"fmt"
	"slices"
)

type entry interface {
	entryID() string
}

// PatchError reports a patch body that could not be merged into an entry.
type PatchError struct {
	Kind  Kind
	Cause error
}

func (e *PatchError) Error() string {
	return fmt.Sprintf("invalid %s patch: %v", e.Kind, e.Cause)
}

func (e *PatchError) Unwrap() error {
	return e.Cause
}

// AddSection appends an empty entry of the given kind and returns the new
// document together with the id assigned to the entry. Adding to an absent
// optional section makes it present with that single entry.
func (d *Document) AddSection(kind Kind) (*Document, string, error) {
	out := d.Clone()
	var id string
	switch kind {
	case KindExperience:
		e := newExperience()
		out.Experience = append(out.Experience, e)
		id = e.ID
	case KindEducation:
		e := newEducation()
		out.Education = append(out.Education, e)
		id = e.ID
	case KindSkill:
		e := newSkill()
		out.Skills = append(out.Skills, e)
		id = e.ID
	case KindLanguage:
		e := newLanguage()
		out.Languages = append(out.Languages, e)
		id = e.ID
	case KindTool:
		e := newSkill()
		out.Tools = appendSection(out.Tools, e)
		id = e.ID
	case KindCertification:
		e := newCertification()
		out.Certifications = appendSection(out.Certifications, e)
		id = e.ID
	case KindHobby:
		e := newHobby()
		out.Hobbies = appendSection(out.Hobbies, e)
		id = e.ID
	default:
		return d, "", &KindError{Kind: string(kind)}
	}
	return out, id, nil
}

// UpdateEntry merges a JSON object patch into the entry with the given id.
// The id itself cannot be changed. An unknown id leaves the document as is.
func (d *Document) UpdateEntry(kind Kind, id string, patch json.RawMessage) (*Document, error) {
	out := d.Clone()
	var err error
	switch kind {
	case KindExperience:
		out.Experience, err = updateByID(out.Experience, kind, id, patch)
	case KindEducation:
		out.Education, err = updateByID(out.Education, kind, id, patch)
	case KindSkill:
		out.Skills, err = updateByID(out.Skills, kind, id, patch)
	case KindLanguage:
		out.Languages, err = updateByID(out.Languages, kind, id, patch)
	case KindTool:
		out.Tools, err = updateSection(out.Tools, kind, id, patch)
	case KindCertification:
		out.Certifications, err = updateSection(out.Certifications, kind, id, patch)
	case KindHobby:
		out.Hobbies, err = updateSection(out.Hobbies, kind, id, patch)
	default:
		return d, &KindError{Kind: string(kind)}
	}
	if err != nil {
		return d, err
	}
	return out, nil
}

// RemoveEntry drops the entry with the given id. Unknown ids and kinds are ignored.
func (d *Document) RemoveEntry(kind Kind, id string) *Document {
	out := d.Clone()
	switch kind {
	case KindExperience:
		out.Experience = removeByID(out.Experience, id)
	case KindEducation:
		out.Education = removeByID(out.Education, id)
	case KindSkill:
		out.Skills = removeByID(out.Skills, id)
	case KindLanguage:
		out.Languages = removeByID(out.Languages, id)
	case KindTool:
		out.Tools = removeFromSection(out.Tools, id)
	case KindCertification:
		out.Certifications = removeFromSection(out.Certifications, id)
	case KindHobby:
		out.Hobbies = removeFromSection(out.Hobbies, id)
	}
	return out
}

// RemoveSection hides an optional section and discards its entries.
func (d *Document) RemoveSection(kind Kind) (*Document, error) {
	if !kind.Optional() {
		return d, &KindError{Kind: string(kind), Operation: "section removal"}
	}
	out := d.Clone()
	switch kind {
	case KindTool:
		out.Tools = Absent[Skill]()
	case KindCertification:
		out.Certifications = Absent[Certification]()
	case KindHobby:
		out.Hobbies = Absent[Hobby]()
	}
	return out, nil
}

// UpdatePersonal merges a JSON object patch into the personal block.
func (d *Document) UpdatePersonal(patch json.RawMessage) (*Document, error) {
	out := d.Clone()
	if err := json.Unmarshal(patch, &out.Personal); err != nil {
		return d, &PatchError{Kind: "personal", Cause: err}
	}
	return out, nil
}

// WithStyle returns a copy using the given template and color. Empty values
// keep the current ones.
func (d *Document) WithStyle(style Style) *Document {
	out := d.Clone()
	if style.TemplateID != "" {
		out.Style.TemplateID = style.TemplateID
	}
	if style.MainColor != "" {
		out.Style.MainColor = style.MainColor
	}
	return out
}

// WithDisplay returns a copy using the given visibility toggles.
func (d *Document) WithDisplay(display DisplaySettings) *Document {
	out := d.Clone()
	out.Display = display
	return out
}

func updateByID[T entry](items []T, kind Kind, id string, patch json.RawMessage) ([]T, error) {
	for i := range items {
		if items[i].entryID() != id {
			continue
		}
		if err := mergePatch(&items[i], patch); err != nil {
			return nil, &PatchError{Kind: kind, Cause: err}
		}
		return items, nil
	}
	return items, nil
}

func updateSection[T entry](s Section[T], kind Kind, id string, patch json.RawMessage) (Section[T], error) {
	if !s.present {
		return s, nil
	}
	items, err := updateByID(s.items, kind, id, patch)
	if err != nil {
		return s, err
	}
	return Section[T]{items: items, present: true}, nil
}

func removeByID[T entry](items []T, id string) []T {
	return slices.DeleteFunc(items, func(e T) bool { return e.entryID() == id })
}

func removeFromSection[T entry](s Section[T], id string) Section[T] {
	if !s.present {
		return s
	}
	items := removeByID(s.items, id)
	if items == nil {
		items = []T{}
	}
	return Section[T]{items: items, present: true}
}

func appendSection[T any](s Section[T], e T) Section[T] {
	return Section[T]{items: append(s.items, e), present: true}
}

// mergePatch decodes patch over dst, ignoring any "id" member.
func mergePatch[T any](dst *T, patch json.RawMessage) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil {
		return err
	}
	delete(fields, "id")
	cleaned, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(cleaned, dst)
}

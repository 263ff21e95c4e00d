package cv

// Record is the shape exchanged with the persistence layer.
type Record struct {
	CVData          Content         `json:"cvData"`
	TemplateType    string          `json:"templateType"`
	TemplateID      string          `json:"templateId"`
	MainColor       string          `json:"mainColor"`
	Title           string          `json:"title"`
	DisplaySettings DisplaySettings `json:"displaySettings"`
}

// Record returns the persisted form of the document.
func (d *Document) Record() Record {
	c := d.Clone()
	return Record{
		CVData:          c.Content,
		TemplateType:    c.TemplateType,
		TemplateID:      c.Style.TemplateID,
		MainColor:       c.Style.MainColor,
		Title:           c.Title,
		DisplaySettings: c.Display,
	}
}

// FromRecord rebuilds a document from its persisted form.
func FromRecord(r Record, subdomain string) *Document {
	return Load(&Document{
		Content: r.CVData,
		Style: Style{
			TemplateID: r.TemplateID,
			MainColor:  r.MainColor,
		},
		TemplateType: r.TemplateType,
		Display:      r.DisplaySettings,
		Title:        r.Title,
		Subdomain:    subdomain,
	})
}

package preview

import (
	"sort"
	"strings"
)

// Template describes one visual layout.
type Template struct {
	ID               string
	Name             string
	Type             string
	DefaultColor     string
	PlaceholderPhoto string
	CircularPhoto    bool
}

var templates = map[string]Template{
	"classic": {
		ID:               "classic",
		Name:             "Classic",
		Type:             "digital",
		DefaultColor:     "#1f6feb",
		PlaceholderPhoto: "/assets/placeholders/classic-avatar.png",
	},
	"modern": {
		ID:               "modern",
		Name:             "Modern",
		Type:             "digital",
		DefaultColor:     "#0f766e",
		PlaceholderPhoto: "/assets/placeholders/modern-avatar-circle.png",
		CircularPhoto:    true,
	},
	"minimal": {
		ID:               "minimal",
		Name:             "Minimal",
		Type:             "print",
		DefaultColor:     "#111827",
		PlaceholderPhoto: "/assets/placeholders/minimal-avatar.png",
	},
}

// LookupTemplate returns the template with the given id, or classic.
func LookupTemplate(id string) Template {
	if t, ok := templates[strings.ToLower(strings.TrimSpace(id))]; ok {
		return t
	}
	return templates["classic"]
}

// Templates lists every template sorted by id.
func Templates() []Template {
	out := make([]Template, 0, len(templates))
	for _, t := range templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

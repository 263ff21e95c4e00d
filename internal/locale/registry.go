package locale

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// DefaultLocale is used when a request names no supported language.
const DefaultLocale = "en"

//go:embed catalogs/*.yaml
var catalogFS embed.FS

// Registry resolves language tags to catalogs.
type Registry struct {
	catalogs map[string]*Catalog
	fallback *Catalog
	matcher  language.Matcher
	tags     []language.Tag
}

// Load reads the built-in catalogs.
func Load() (*Registry, error) {
	return LoadFS(catalogFS, "catalogs")
}

// MustLoad is Load for package-level initialisation and tests.
func MustLoad() *Registry {
	r, err := Load()
	if err != nil {
		panic(err)
	}
	return r
}

// LoadFS reads every *.yaml catalog under dir.
func LoadFS(fsys fs.FS, dir string) (*Registry, error) {
	names, err := fs.Glob(fsys, path.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list catalogs: %w", err)
	}
	sort.Strings(names)

	r := &Registry{catalogs: make(map[string]*Catalog)}
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog %s: %w", name, err)
		}
		var f file
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse catalog %s: %w", name, err)
		}
		cat, err := newCatalog(&f)
		if err != nil {
			return nil, err
		}
		r.catalogs[cat.tag] = cat
	}

	fallback, ok := r.catalogs[DefaultLocale]
	if !ok {
		return nil, fmt.Errorf("default catalog %q not found", DefaultLocale)
	}
	r.fallback = fallback

	// The matcher prefers the first tag on ties, so the default goes first.
	r.tags = append(r.tags, language.Make(DefaultLocale))
	for _, tag := range r.Tags() {
		if tag != DefaultLocale {
			r.tags = append(r.tags, language.Make(tag))
		}
	}
	r.matcher = language.NewMatcher(r.tags)
	return r, nil
}

// Lookup resolves a tag or Accept-Language value ("fr-CA", "fr;q=0.9, en")
// to the closest catalog, falling back to English.
func (r *Registry) Lookup(tags ...string) *Catalog {
	if len(tags) == 0 {
		return r.fallback
	}
	_, index := language.MatchStrings(r.matcher, tags...)
	if index < 0 || index >= len(r.tags) {
		return r.fallback
	}
	base, _ := r.tags[index].Base()
	if cat, ok := r.catalogs[base.String()]; ok {
		return cat
	}
	return r.fallback
}

// Default returns the fallback catalog.
func (r *Registry) Default() *Catalog {
	return r.fallback
}

// Tags lists the supported base languages.
func (r *Registry) Tags() []string {
	out := make([]string, 0, len(r.catalogs))
	for tag := range r.catalogs {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Package editor holds one editing session: the document being edited, the
// active locale and the snapshot derived from them.
package editor

import (
	"encoding/json"
	"sync"

	"github.com/jonathan/cv-builder/internal/cv"
	"github.com/jonathan/cv-builder/internal/locale"
	"github.com/jonathan/cv-builder/internal/preview"
)

// Listener is called with the new snapshot after every change.
type Listener func(*preview.Snapshot)

// Session owns a document and keeps its snapshot current. Every mutation
// recomputes the snapshot synchronously before notifying listeners.
type Session struct {
	mu        sync.Mutex
	doc       *cv.Document
	catalogs  *locale.Registry
	catalog   *locale.Catalog
	snapshot  *preview.Snapshot
	listeners []Listener
}

// New starts a session on doc (or a fresh document when nil) in the given
// locale.
func New(doc *cv.Document, catalogs *locale.Registry, tag string, listeners ...Listener) *Session {
	s := &Session{
		doc:       cv.Load(doc),
		catalogs:  catalogs,
		catalog:   catalogs.Lookup(tag),
		listeners: listeners,
	}
	s.snapshot = preview.Reconcile(s.doc, s.catalog, s.doc.Display)
	return s
}

// Subscribe adds a listener for later changes.
func (s *Session) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Document returns a copy of the current document.
func (s *Session) Document() *cv.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Snapshot returns the current preview snapshot.
func (s *Session) Snapshot() *preview.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Locale returns the active catalog tag.
func (s *Session) Locale() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Tag()
}

// AddSection appends an empty entry and returns its id.
func (s *Session) AddSection(kind cv.Kind) (string, error) {
	var id string
	err := s.apply(func(d *cv.Document) (*cv.Document, error) {
		next, newID, err := d.AddSection(kind)
		id = newID
		return next, err
	})
	return id, err
}

// UpdateEntry merges patch into the entry with the given id.
func (s *Session) UpdateEntry(kind cv.Kind, id string, patch json.RawMessage) error {
	return s.apply(func(d *cv.Document) (*cv.Document, error) {
		return d.UpdateEntry(kind, id, patch)
	})
}

// RemoveEntry deletes an entry. Unknown ids are ignored.
func (s *Session) RemoveEntry(kind cv.Kind, id string) {
	_ = s.apply(func(d *cv.Document) (*cv.Document, error) {
		return d.RemoveEntry(kind, id), nil
	})
}

// RemoveSection hides an optional section.
func (s *Session) RemoveSection(kind cv.Kind) error {
	return s.apply(func(d *cv.Document) (*cv.Document, error) {
		return d.RemoveSection(kind)
	})
}

// UpdatePersonal merges patch into the personal block.
func (s *Session) UpdatePersonal(patch json.RawMessage) error {
	return s.apply(func(d *cv.Document) (*cv.Document, error) {
		return d.UpdatePersonal(patch)
	})
}

// SetStyle changes the template and accent color.
func (s *Session) SetStyle(style cv.Style) {
	_ = s.apply(func(d *cv.Document) (*cv.Document, error) {
		return d.WithStyle(style), nil
	})
}

// SetDisplaySettings replaces the visibility toggles.
func (s *Session) SetDisplaySettings(display cv.DisplaySettings) {
	_ = s.apply(func(d *cv.Document) (*cv.Document, error) {
		return d.WithDisplay(display), nil
	})
}

// Reset replaces the document with a fresh one.
func (s *Session) Reset() {
	_ = s.apply(func(*cv.Document) (*cv.Document, error) {
		return cv.NewDocument(), nil
	})
}

// Load replaces the document wholesale.
func (s *Session) Load(doc *cv.Document) {
	_ = s.apply(func(*cv.Document) (*cv.Document, error) {
		return cv.Load(doc), nil
	})
}

// SetLocale switches the catalog. Only example content changes.
func (s *Session) SetLocale(tag string) {
	s.mu.Lock()
	s.catalog = s.catalogs.Lookup(tag)
	snap := s.recompute()
	listeners := s.listeners
	s.mu.Unlock()
	notify(listeners, snap)
}

// ExportSnapshot returns the real-data snapshot used for PDF output.
func (s *Session) ExportSnapshot() *preview.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return preview.Export(s.doc, s.doc.Display)
}

// apply runs op on the current document. A failed op leaves the session
// unchanged and notifies nobody.
func (s *Session) apply(op func(*cv.Document) (*cv.Document, error)) error {
	s.mu.Lock()
	next, err := op(s.doc)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.doc = next
	snap := s.recompute()
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, snap)
	return nil
}

func (s *Session) recompute() *preview.Snapshot {
	s.snapshot = preview.Reconcile(s.doc, s.catalog, s.doc.Display)
	return s.snapshot
}

func notify(listeners []Listener, snap *preview.Snapshot) {
	for _, l := range listeners {
		l(snap)
	}
}

package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/cv-builder/internal/cv"
	"github.com/jonathan/cv-builder/internal/db"
	"github.com/jonathan/cv-builder/internal/editor"
	"github.com/jonathan/cv-builder/internal/preview"
	"github.com/jonathan/cv-builder/internal/rendering"
	"github.com/jonathan/cv-builder/internal/schemas"
	"github.com/jonathan/cv-builder/internal/server/middleware"
)

// maxBodyBytes caps request bodies; photos arrive as data URIs.
const maxBodyBytes = 8 << 20

// createCVRequest is the body of POST /cvs. Every field is optional.
type createCVRequest struct {
	Title      string `json:"title" validate:"max=200"`
	TemplateID string `json:"templateId" validate:"omitempty,oneof=classic modern minimal"`
	MainColor  string `json:"mainColor" validate:"omitempty,hexcolor"`
}

// styleRequest is the body of PUT /cvs/{id}/style.
type styleRequest struct {
	TemplateID string `json:"templateId" validate:"required,oneof=classic modern minimal"`
	MainColor  string `json:"mainColor" validate:"omitempty,hexcolor"`
}

// recordCheck carries the record fields the schema leaves open.
type recordCheck struct {
	Title        string `validate:"max=200"`
	TemplateID   string `validate:"omitempty,oneof=classic modern minimal"`
	TemplateType string `validate:"omitempty,oneof=digital print"`
}

// publishRequest is the body of POST /cvs/{id}/publish.
type publishRequest struct {
	Subdomain string `json:"subdomain" validate:"required,hostname_rfc1123,max=63"`
}

// cvResponse is a stored CV as returned by the API.
type cvResponse struct {
	ID        uuid.UUID `json:"id"`
	Subdomain *string   `json:"subdomain,omitempty"`
	cv.Record
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// editResponse is returned by the editing operations.
type editResponse struct {
	ID      string            `json:"id,omitempty"`
	CV      cvResponse        `json:"cv"`
	Preview *preview.Snapshot `json:"preview"`
}

func newCVResponse(row *db.CVRow) cvResponse {
	return cvResponse{
		ID:        row.ID,
		Subdomain: row.Subdomain,
		Record:    row.Record,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

// handleCreateCV starts a new CV from the default document
func (s *Server) handleCreateCV(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req createCVRequest
	if err := s.decodeOptional(r, &req); err != nil {
		s.failure(w, r, err)
		return
	}
	if err := s.validator.Struct(req); err != nil {
		s.failure(w, r, validationError(err))
		return
	}

	doc := cv.NewDocument()
	if title := strings.TrimSpace(req.Title); title != "" {
		doc.Title = title
	}
	if req.TemplateID != "" {
		doc = doc.WithStyle(cv.Style{TemplateID: req.TemplateID, MainColor: req.MainColor})
		doc.TemplateType = preview.LookupTemplate(req.TemplateID).Type
	} else if req.MainColor != "" {
		doc.Style.MainColor = req.MainColor
	}

	row, err := s.store.CreateCV(r.Context(), userID, doc.Record())
	if err != nil {
		s.failure(w, r, err)
		return
	}
	log.Printf("[cvs] created %s for user %s", row.ID, userID)
	s.jsonResponse(w, http.StatusCreated, newCVResponse(row))
}

// handleListCVs lists the caller's CVs, most recently updated first
func (s *Server) handleListCVs(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limit := db.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &limit); err != nil || limit <= 0 {
			s.failure(w, r, &ErrValidation{Field: "limit", Message: "must be a positive integer"})
			return
		}
	}

	cvs, err := s.store.ListCVs(r.Context(), userID, limit)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	if cvs == nil {
		cvs = []db.CVSummary{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"cvs": cvs, "count": len(cvs)})
}

// handleGetCV returns one CV
func (s *Server) handleGetCV(w http.ResponseWriter, r *http.Request) {
	row, err := s.loadOwnedCV(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, newCVResponse(row))
}

// handleSaveCV replaces the stored record after schema validation
func (s *Server) handleSaveCV(w http.ResponseWriter, r *http.Request) {
	row, err := s.loadOwnedCV(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.failure(w, r, &ErrValidation{Field: "(body)", Message: err.Error()})
		return
	}
	if err := schemas.ValidateRecord(body); err != nil {
		s.failure(w, r, err)
		return
	}

	var record cv.Record
	if err := json.Unmarshal(body, &record); err != nil {
		s.failure(w, r, &ErrValidation{Field: "(body)", Message: err.Error()})
		return
	}
	check := recordCheck{Title: record.Title, TemplateID: record.TemplateID, TemplateType: record.TemplateType}
	if err := s.validator.Struct(check); err != nil {
		s.failure(w, r, validationError(err))
		return
	}

	// Round trip through the document so the stored record is normalized.
	doc := cv.FromRecord(record, "")
	updated, err := s.store.UpdateCV(r.Context(), row.ID, doc.Record())
	if err != nil {
		s.failure(w, r, err)
		return
	}
	if updated == nil {
		s.failure(w, r, &ErrNotFound{Resource: "cv", ID: row.ID.String()})
		return
	}
	s.jsonResponse(w, http.StatusOK, newCVResponse(updated))
}

// handleDeleteCV deletes a CV
func (s *Server) handleDeleteCV(w http.ResponseWriter, r *http.Request) {
	row, err := s.loadOwnedCV(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	deleted, err := s.store.DeleteCV(r.Context(), row.ID)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	if !deleted {
		s.failure(w, r, &ErrNotFound{Resource: "cv", ID: row.ID.String()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePublishCV assigns a public subdomain
func (s *Server) handlePublishCV(w http.ResponseWriter, r *http.Request) {
	row, err := s.loadOwnedCV(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	var req publishRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.failure(w, r, err)
		return
	}
	req.Subdomain = strings.ToLower(strings.TrimSpace(req.Subdomain))
	if err := s.validator.Struct(req); err != nil {
		s.failure(w, r, validationError(err))
		return
	}
	if strings.Contains(req.Subdomain, ".") {
		s.failure(w, r, &ErrValidation{Field: "subdomain", Message: "must be a single DNS label"})
		return
	}

	published, err := s.store.PublishCV(r.Context(), row.ID, req.Subdomain)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	if published == nil {
		s.failure(w, r, &ErrNotFound{Resource: "cv", ID: row.ID.String()})
		return
	}
	log.Printf("[cvs] published %s as %s", row.ID, req.Subdomain)
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"cv":  newCVResponse(published),
		"url": s.publishedURL(published),
	})
}

// handleAddSection appends an empty entry to a section
func (s *Server) handleAddSection(w http.ResponseWriter, r *http.Request) {
	kind, err := cv.ParseKind(r.PathValue("kind"))
	if err != nil {
		s.failure(w, r, err)
		return
	}
	var entryID string
	s.edit(w, r, http.StatusCreated, func(sess *editor.Session) error {
		id, err := sess.AddSection(kind)
		entryID = id
		return err
	}, func() string { return entryID })
}

// handleUpdateEntry merges a JSON patch into one entry
func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	kind, err := cv.ParseKind(r.PathValue("kind"))
	if err != nil {
		s.failure(w, r, err)
		return
	}
	patch, err := s.readPatch(w, r)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	entryID := r.PathValue("entry_id")
	s.edit(w, r, http.StatusOK, func(sess *editor.Session) error {
		return sess.UpdateEntry(kind, entryID, patch)
	}, nil)
}

// handleRemoveEntry removes one entry; unknown ids leave the CV unchanged
func (s *Server) handleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	kind, err := cv.ParseKind(r.PathValue("kind"))
	if err != nil {
		s.failure(w, r, err)
		return
	}
	entryID := r.PathValue("entry_id")
	s.edit(w, r, http.StatusOK, func(sess *editor.Session) error {
		sess.RemoveEntry(kind, entryID)
		return nil
	}, nil)
}

// handleRemoveSection drops an optional section entirely
func (s *Server) handleRemoveSection(w http.ResponseWriter, r *http.Request) {
	kind, err := cv.ParseKind(r.PathValue("kind"))
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.edit(w, r, http.StatusOK, func(sess *editor.Session) error {
		return sess.RemoveSection(kind)
	}, nil)
}

// handleUpdatePersonal merges a JSON patch into the personal block
func (s *Server) handleUpdatePersonal(w http.ResponseWriter, r *http.Request) {
	patch, err := s.readPatch(w, r)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.edit(w, r, http.StatusOK, func(sess *editor.Session) error {
		return sess.UpdatePersonal(patch)
	}, nil)
}

// handleSetStyle switches template and accent color
func (s *Server) handleSetStyle(w http.ResponseWriter, r *http.Request) {
	var req styleRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.failure(w, r, err)
		return
	}
	if err := s.validator.Struct(req); err != nil {
		s.failure(w, r, validationError(err))
		return
	}
	s.edit(w, r, http.StatusOK, func(sess *editor.Session) error {
		sess.SetStyle(cv.Style{TemplateID: req.TemplateID, MainColor: req.MainColor})
		// The template decides whether the CV is digital or print.
		if doc := sess.Document(); doc.TemplateType != preview.LookupTemplate(req.TemplateID).Type {
			doc.TemplateType = preview.LookupTemplate(req.TemplateID).Type
			sess.Load(doc)
		}
		return nil
	}, nil)
}

// handleSetDisplaySettings replaces the visibility toggles
func (s *Server) handleSetDisplaySettings(w http.ResponseWriter, r *http.Request) {
	var display cv.DisplaySettings
	if err := s.decodeJSON(r, &display); err != nil {
		s.failure(w, r, err)
		return
	}
	s.edit(w, r, http.StatusOK, func(sess *editor.Session) error {
		sess.SetDisplaySettings(display)
		return nil
	}, nil)
}

// edit loads the caller's CV into a session, applies op and stores the
// result. entryID, when set, supplies the id reported in the response.
func (s *Server) edit(w http.ResponseWriter, r *http.Request, status int, op func(*editor.Session) error, entryID func() string) {
	row, err := s.loadOwnedCV(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	sess := s.newSession(r, row)
	if err := op(sess); err != nil {
		s.failure(w, r, err)
		return
	}

	updated, err := s.store.UpdateCV(r.Context(), row.ID, sess.Document().Record())
	if err != nil {
		s.failure(w, r, err)
		return
	}
	if updated == nil {
		s.failure(w, r, &ErrNotFound{Resource: "cv", ID: row.ID.String()})
		return
	}

	resp := editResponse{CV: newCVResponse(updated), Preview: sess.Snapshot()}
	if entryID != nil {
		resp.ID = entryID()
	}
	s.jsonResponse(w, status, resp)
}

// newSession opens an editing session on row in the request's locale.
func (s *Server) newSession(r *http.Request, row *db.CVRow) *editor.Session {
	var listeners []editor.Listener
	if s.verbose {
		id := row.ID
		listeners = append(listeners, func(snap *preview.Snapshot) {
			log.Printf("[editor] %s: snapshot recomputed (locale=%s, experience=%d, skills=%d)",
				id, snap.Locale, len(snap.Experience), len(snap.Skills))
		})
	}
	return editor.New(row.Document(), s.catalogs, s.requestLocale(r), listeners...)
}

// handlePreview returns the reconciled snapshot as JSON
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	row, err := s.loadOwnedCV(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.newSession(r, row).Snapshot())
}

// handlePreviewHTML renders the snapshot with the CV's template
func (s *Server) handlePreviewHTML(w http.ResponseWriter, r *http.Request) {
	row, err := s.loadOwnedCV(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	page, err := s.renderPreview(r, row)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

// handlePreviewPNG screenshots the preview page
func (s *Server) handlePreviewPNG(w http.ResponseWriter, r *http.Request) {
	if s.screenshot == nil {
		s.failure(w, r, &ErrNotImplemented{Feature: "preview screenshots"})
		return
	}
	row, err := s.loadOwnedCV(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	page, err := s.renderPreview(r, row)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	png, err := s.screenshot(r.Context(), page)
	if err != nil {
		s.failure(w, r, fmt.Errorf("failed to capture preview: %w", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// handlePDF generates the PDF export. A second request for the same CV
// while one is running is rejected.
func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	row, err := s.loadOwnedCV(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	release, err := s.inFlight.Begin(row.ID.String())
	if err != nil {
		s.failure(w, r, err)
		return
	}
	defer release()

	out, err := s.generator.GenerateDocument(r.Context(), row.Document(), rendering.Options{
		PublishedURL: s.publishedURL(row),
		Locale:       s.requestLocale(r),
	})
	if err != nil {
		s.failure(w, r, err)
		return
	}

	log.Printf("[pdf] generated %s for %s (%d pages, %d bytes)", out.Filename, row.ID, out.Pages, len(out.Data))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Data)
}

// handlePublicCV serves a published CV without placeholders
func (s *Server) handlePublicCV(w http.ResponseWriter, r *http.Request) {
	row, err := s.store.GetCVBySubdomain(r.Context(), r.PathValue("subdomain"))
	if err != nil {
		s.failure(w, r, err)
		return
	}
	if row == nil {
		s.failure(w, r, &ErrNotFound{Resource: "cv", ID: r.PathValue("subdomain")})
		return
	}

	doc := row.Document()
	snap := preview.Export(doc, doc.Display)
	cat := s.catalogs.Lookup(s.requestLocale(r))
	snap.Locale = cat.Tag()

	var buf bytes.Buffer
	if err := preview.RenderHTML(&buf, snap, cat); err != nil {
		s.failure(w, r, fmt.Errorf("failed to render public page: %w", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleListTemplates lists the available templates
func (s *Server) handleListTemplates(w http.ResponseWriter, _ *http.Request) {
	type templateView struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		Type         string `json:"type"`
		DefaultColor string `json:"defaultColor"`
	}
	var out []templateView
	for _, t := range preview.Templates() {
		out = append(out, templateView{ID: t.ID, Name: t.Name, Type: t.Type, DefaultColor: t.DefaultColor})
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"templates": out, "locales": s.catalogs.Tags()})
}

func (s *Server) renderPreview(r *http.Request, row *db.CVRow) ([]byte, error) {
	sess := s.newSession(r, row)
	var buf bytes.Buffer
	if err := preview.RenderHTML(&buf, sess.Snapshot(), s.catalogs.Lookup(sess.Locale())); err != nil {
		return nil, fmt.Errorf("failed to render preview: %w", err)
	}
	return buf.Bytes(), nil
}

// loadOwnedCV fetches the CV named by the {id} path value. CVs owned by
// other users are reported as not found.
func (s *Server) loadOwnedCV(r *http.Request) (*db.CVRow, error) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		return nil, &ErrNotFound{Resource: "cv", ID: r.PathValue("id")}
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return nil, &ErrValidation{Field: "id", Message: "must be a UUID"}
	}
	row, err := s.store.GetCV(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if row == nil || row.UserID != userID {
		return nil, &ErrNotFound{Resource: "cv", ID: id.String()}
	}
	return row, nil
}

// requestLocale resolves the locale from ?locale=, then Accept-Language,
// then the server default.
func (s *Server) requestLocale(r *http.Request) string {
	if l := strings.TrimSpace(r.URL.Query().Get("locale")); l != "" {
		return l
	}
	if l := strings.TrimSpace(r.Header.Get("Accept-Language")); l != "" {
		return l
	}
	return s.defaultLocale
}

// publishedURL is the public address of a published CV, or "".
func (s *Server) publishedURL(row *db.CVRow) string {
	if row.Subdomain == nil || *row.Subdomain == "" || s.publicDomain == "" {
		return ""
	}
	return fmt.Sprintf("https://%s.%s", *row.Subdomain, s.publicDomain)
}

func (s *Server) readPatch(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, &ErrValidation{Field: "(body)", Message: err.Error()}
	}
	if !json.Valid(body) || !bytes.HasPrefix(bytes.TrimSpace(body), []byte("{")) {
		return nil, &ErrValidation{Field: "(body)", Message: "patch must be a JSON object"}
	}
	return body, nil
}

func (s *Server) decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		return &ErrValidation{Field: "(body)", Message: "invalid JSON body"}
	}
	return nil
}

// decodeOptional is decodeJSON that accepts an empty body.
func (s *Server) decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == nil || err == io.EOF {
		return nil
	}
	return &ErrValidation{Field: "(body)", Message: "invalid JSON body"}
}

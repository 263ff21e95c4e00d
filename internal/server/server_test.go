package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cv-builder/internal/cv"
	"github.com/jonathan/cv-builder/internal/db"
	"github.com/jonathan/cv-builder/internal/rendering"
	"github.com/jonathan/cv-builder/internal/server/ratelimit"
)

// mockStore implements Store in memory
type mockStore struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]*db.CVRow
	pingErr error
}

func newMockStore() *mockStore {
	return &mockStore{rows: make(map[uuid.UUID]*db.CVRow)}
}

func (m *mockStore) CreateCV(_ context.Context, userID uuid.UUID, record cv.Record) (*db.CVRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	row := &db.CVRow{ID: uuid.New(), UserID: userID, Record: record, CreatedAt: now, UpdatedAt: now}
	m.rows[row.ID] = row
	copied := *row
	return &copied, nil
}

func (m *mockStore) GetCV(_ context.Context, id uuid.UUID) (*db.CVRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}

func (m *mockStore) GetCVBySubdomain(_ context.Context, subdomain string) (*db.CVRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.Subdomain != nil && *row.Subdomain == strings.ToLower(subdomain) {
			copied := *row
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockStore) ListCVs(_ context.Context, userID uuid.UUID, limit int) ([]db.CVSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.CVSummary
	for _, row := range m.rows {
		if row.UserID == userID && len(out) < limit {
			out = append(out, db.CVSummary{ID: row.ID, Title: row.Record.Title, TemplateID: row.Record.TemplateID, UpdatedAt: row.UpdatedAt})
		}
	}
	return out, nil
}

func (m *mockStore) UpdateCV(_ context.Context, id uuid.UUID, record cv.Record) (*db.CVRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	row.Record = record
	row.UpdatedAt = time.Now()
	copied := *row
	return &copied, nil
}

func (m *mockStore) DeleteCV(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[id]
	delete(m.rows, id)
	return ok, nil
}

func (m *mockStore) PublishCV(_ context.Context, id uuid.UUID, subdomain string) (*db.CVRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for otherID, row := range m.rows {
		if otherID != id && row.Subdomain != nil && *row.Subdomain == subdomain {
			return nil, db.ErrSubdomainTaken
		}
	}
	row, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	row.Subdomain = &subdomain
	copied := *row
	return &copied, nil
}

func (m *mockStore) Ping(context.Context) error {
	return m.pingErr
}

type testServer struct {
	*Server
	store  *mockStore
	userID uuid.UUID
	token  string
}

func newTestServer(t *testing.T, cfg Config) *testServer {
	t.Helper()
	if cfg.RateLimit == nil {
		cfg.RateLimit = &ratelimit.Config{Enabled: false}
	}
	if cfg.DefaultLocale == "" {
		cfg.DefaultLocale = "en"
	}
	store := newMockStore()
	jwtService := setupTestJWTService(t, 1)
	s := New(cfg, store, jwtService, nil)
	t.Cleanup(s.rateLimiter.Stop)

	userID := uuid.New()
	token, err := jwtService.GenerateToken(userID)
	require.NoError(t, err)
	return &testServer{Server: s, store: store, userID: userID, token: token}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return ts.doAs(t, ts.token, method, path, body)
}

func (ts *testServer) doAs(t *testing.T, token, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)
	return w
}

func (ts *testServer) createCV(t *testing.T) uuid.UUID {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/cvs", map[string]string{"title": "Backend roles"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp cvResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.ID
}

func decodeEdit(t *testing.T, w *httptest.ResponseRecorder) editResponse {
	t.Helper()
	var resp editResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t, Config{})

	w := ts.doAs(t, "", http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	ts.store.pingErr = assert.AnError
	w = ts.doAs(t, "", http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t, Config{})

	w := ts.doAs(t, "", http.MethodGet, "/cvs", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.doAs(t, "garbage", http.MethodGet, "/cvs", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateAndGetCV(t *testing.T) {
	ts := newTestServer(t, Config{})

	w := ts.do(t, http.MethodPost, "/cvs", map[string]string{"title": "Platform", "templateId": "minimal", "mainColor": "#123456"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created cvResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Platform", created.Title)
	assert.Equal(t, "minimal", created.TemplateID)
	assert.Equal(t, "print", created.TemplateType)
	assert.Equal(t, "#123456", created.MainColor)
	assert.Len(t, created.CVData.Experience, 1)

	w = ts.do(t, http.MethodGet, "/cvs/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fetched cvResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, created.ID, fetched.ID)

	w = ts.do(t, http.MethodGet, "/cvs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
}

func TestCreateCV_EmptyBodyUsesDefaults(t *testing.T) {
	ts := newTestServer(t, Config{})

	w := ts.do(t, http.MethodPost, "/cvs", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created cvResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, cv.DefaultTitle, created.Title)
	assert.Equal(t, cv.DefaultTemplateID, created.TemplateID)
}

func TestCreateCV_Validation(t *testing.T) {
	ts := newTestServer(t, Config{})

	tests := []struct {
		name string
		body any
	}{
		{"unknown template", map[string]string{"templateId": "fancy"}},
		{"bad color", map[string]string{"mainColor": "blue"}},
		{"malformed json", `{"title":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/cvs", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestGetCV_OtherUserIsNotFound(t *testing.T) {
	ts := newTestServer(t, Config{})
	id := ts.createCV(t)

	other, err := ts.jwtService.GenerateToken(uuid.New())
	require.NoError(t, err)

	w := ts.doAs(t, other, http.MethodGet, "/cvs/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.doAs(t, other, http.MethodDelete, "/cvs/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/cvs/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/cvs/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteCV(t *testing.T) {
	ts := newTestServer(t, Config{})
	id := ts.createCV(t)

	w := ts.do(t, http.MethodDelete, "/cvs/"+id.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, "/cvs/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSaveCV(t *testing.T) {
	ts := newTestServer(t, Config{})
	id := ts.createCV(t)

	record := cv.NewDocument().Record()
	record.Title = "Saved"
	record.CVData.Personal.FirstName = "Ada"
	w := ts.do(t, http.MethodPut, "/cvs/"+id.String(), record)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var saved cvResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
	assert.Equal(t, "Saved", saved.Title)
	assert.Equal(t, "Ada", saved.CVData.Personal.FirstName)
}

func TestSaveCV_RejectsInvalidRecord(t *testing.T) {
	ts := newTestServer(t, Config{})
	id := ts.createCV(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing cvData", `{"title":"x"}`},
		{"bad color", `{"cvData":{"personal":{}},"mainColor":"red"}`},
		{"unknown template", `{"cvData":{"personal":{}},"templateId":"fancy"}`},
		{"not json", `nope`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPut, "/cvs/"+id.String(), tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestSectionOperations(t *testing.T) {
	ts := newTestServer(t, Config{})
	id := ts.createCV(t)
	base := "/cvs/" + id.String()

	w := ts.do(t, http.MethodPost, base+"/sections/tools", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	added := decodeEdit(t, w)
	require.NotEmpty(t, added.ID)
	require.True(t, added.CV.CVData.Tools.IsPresent())
	assert.Equal(t, 1, added.CV.CVData.Tools.Len())

	w = ts.do(t, http.MethodPatch, base+"/sections/tool/"+added.ID, map[string]string{"name": "Terraform", "level": "expert"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeEdit(t, w)
	tools := updated.CV.CVData.Tools.Items()
	require.Len(t, tools, 1)
	assert.Equal(t, "Terraform", tools[0].Name)
	require.NotNil(t, updated.Preview)

	w = ts.do(t, http.MethodDelete, base+"/sections/tool/"+added.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decodeEdit(t, w).CV.CVData.Tools.Len())

	w = ts.do(t, http.MethodDelete, base+"/sections/tools", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeEdit(t, w).CV.CVData.Tools.IsPresent())

	stored, err := ts.store.GetCV(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, stored.Record.CVData.Tools.IsPresent())
}

func TestSectionOperations_Errors(t *testing.T) {
	ts := newTestServer(t, Config{})
	id := ts.createCV(t)
	base := "/cvs/" + id.String()

	w := ts.do(t, http.MethodPost, base+"/sections/awards", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodDelete, base+"/sections/experience", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPatch, base+"/sections/skill/whatever", `["not","an","object"]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdatePersonalAndPreview(t *testing.T) {
	ts := newTestServer(t, Config{})
	id := ts.createCV(t)
	base := "/cvs/" + id.String()

	w := ts.do(t, http.MethodPatch, base+"/personal", map[string]string{"firstName": "Ada", "lastName": "Lovelace"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Ada", decodeEdit(t, w).Preview.Personal.FirstName)

	w = ts.do(t, http.MethodGet, base+"/preview?locale=fr", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap struct {
		Locale   string `json:"locale"`
		Personal struct {
			FirstName string `json:"firstName"`
		} `json:"personal"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "fr", snap.Locale)
	assert.Equal(t, "Ada", snap.Personal.FirstName)

	w = ts.do(t, http.MethodGet, base+"/preview.html", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Ada")
}

func TestSetStyleAndDisplaySettings(t *testing.T) {
	ts := newTestServer(t, Config{})
	id := ts.createCV(t)
	base := "/cvs/" + id.String()

	w := ts.do(t, http.MethodPut, base+"/style", map[string]string{"templateId": "minimal", "mainColor": "#abcdef"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	styled := decodeEdit(t, w)
	assert.Equal(t, "minimal", styled.CV.TemplateID)
	assert.Equal(t, "print", styled.CV.TemplateType)
	assert.Equal(t, "#abcdef", styled.CV.MainColor)

	w = ts.do(t, http.MethodPut, base+"/style", map[string]string{"templateId": "baroque"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPut, base+"/display-settings", cv.DisplaySettings{HidePhoto: true, HideCity: true})
	require.Equal(t, http.StatusOK, w.Code)
	display := decodeEdit(t, w).CV.DisplaySettings
	assert.True(t, display.HidePhoto)
	assert.True(t, display.HideCity)
	assert.False(t, display.HideWebsite)
}

func TestPublishCV(t *testing.T) {
	ts := newTestServer(t, Config{PublicDomain: "cv.example.com"})
	first := ts.createCV(t)
	second := ts.createCV(t)

	w := ts.do(t, http.MethodPost, "/cvs/"+first.String()+"/publish", map[string]string{"subdomain": "Ada-Lovelace"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"url":"https://ada-lovelace.cv.example.com"`)

	w = ts.do(t, http.MethodPost, "/cvs/"+second.String()+"/publish", map[string]string{"subdomain": "ada-lovelace"})
	assert.Equal(t, http.StatusConflict, w.Code)

	for _, bad := range []string{"", "has space", "a.b", strings.Repeat("x", 64)} {
		w = ts.do(t, http.MethodPost, "/cvs/"+second.String()+"/publish", map[string]string{"subdomain": bad})
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}

func TestPublicCV(t *testing.T) {
	ts := newTestServer(t, Config{})
	id := ts.createCV(t)
	base := "/cvs/" + id.String()

	w := ts.do(t, http.MethodPatch, base+"/personal", map[string]string{"firstName": "Grace"})
	require.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodPost, base+"/publish", map[string]string{"subdomain": "grace"})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.doAs(t, "", http.MethodGet, "/p/grace", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Grace")

	w = ts.doAs(t, "", http.MethodGet, "/p/nobody", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGeneratePDF(t *testing.T) {
	ts := newTestServer(t, Config{})
	id := ts.createCV(t)
	base := "/cvs/" + id.String()

	w := ts.do(t, http.MethodPatch, base+"/personal", map[string]string{"firstName": "Ada", "lastName": "Lovelace"})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, base+"/pdf", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="CV_Ada_Lovelace.pdf"`, w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
	assert.False(t, ts.inFlight.Active(id.String()))
}

func TestGeneratePDF_InProgress(t *testing.T) {
	ts := newTestServer(t, Config{})
	id := ts.createCV(t)

	release, err := ts.inFlight.Begin(id.String())
	require.NoError(t, err)
	defer release()

	w := ts.do(t, http.MethodPost, "/cvs/"+id.String()+"/pdf", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

// brokenCanvas draws normally but reports err once the layout is done.
type brokenCanvas struct {
	rendering.Canvas
	err error
}

func (c brokenCanvas) Err() error { return c.err }

func TestGeneratePDF_FailureReportsCause(t *testing.T) {
	ts := newTestServer(t, Config{})
	id := ts.createCV(t)
	ts.generator.NewCanvas = func() rendering.Canvas {
		return brokenCanvas{Canvas: rendering.NewPDFCanvas(), err: errors.New("font table corrupt")}
	}

	w := ts.do(t, http.MethodPost, "/cvs/"+id.String()+"/pdf", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "PDF generation error: font table corrupt", body["error"])
	assert.Empty(t, w.Header().Get("Content-Disposition"))

	// the in-flight guard is released after a failure
	release, err := ts.inFlight.Begin(id.String())
	require.NoError(t, err)
	release()

	ts.generator.NewCanvas = rendering.NewPDFCanvas
	w = ts.do(t, http.MethodPost, "/cvs/"+id.String()+"/pdf", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPreviewPNG(t *testing.T) {
	ts := newTestServer(t, Config{})
	id := ts.createCV(t)

	w := ts.do(t, http.MethodGet, "/cvs/"+id.String()+"/preview.png", nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	var captured []byte
	ts.screenshot = func(_ context.Context, html []byte) ([]byte, error) {
		captured = html
		return []byte("\x89PNG"), nil
	}
	w = ts.do(t, http.MethodGet, "/cvs/"+id.String()+"/preview.png", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Contains(t, string(captured), "<html")
}

func TestListTemplates(t *testing.T) {
	ts := newTestServer(t, Config{})

	w := ts.doAs(t, "", http.MethodGet, "/templates", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"classic"`)
	assert.Contains(t, w.Body.String(), `"en"`)
}

func TestWithCORS(t *testing.T) {
	ts := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodOptions, "/cvs", nil)
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	assert.Equal(t, "Content-Disposition", w.Header().Get("Access-Control-Expose-Headers"))
}

func TestWithLogging(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	ts := newTestServer(t, Config{})
	w := ts.doAs(t, "", http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, buf.String(), "[GET] /health 200 completed in")
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, Config{RateLimit: &ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		EndpointConfigs: []ratelimit.EndpointConfig{
			{Path: "/cvs", Method: "POST", Limit: 2, Window: time.Hour, Burst: 2},
		},
	}})

	for i := 0; i < 2; i++ {
		w := ts.do(t, http.MethodPost, "/cvs", nil)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := ts.do(t, http.MethodPost, "/cvs", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")

	// Other routes keep their own allowance
	w = ts.do(t, http.MethodGet, "/cvs", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestExtractClientID(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	assert.Equal(t, "192.0.2.10", s.extractClientID(req))

	req.RemoteAddr = "nonsense"
	assert.Equal(t, "nonsense", s.extractClientID(req))
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cv-builder/internal/config"
	"github.com/jonathan/cv-builder/internal/cv"
	"github.com/jonathan/cv-builder/internal/locale"
	"github.com/jonathan/cv-builder/internal/rendering"
	"github.com/jonathan/cv-builder/internal/server"
)

// execute runs the root command with args after resetting flag state left
// by earlier tests.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, verbose = "", false
	previewLocale, previewFormat, previewOutput = "", "json", ""
	tokenUserID = ""
	migratePrint = false
	renderOutDir, renderLocale, renderPublishedURL, renderWorkers, renderNoPhotos = ".", "", "", 0, false

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// writeRecord writes a CV record file for the given person.
func writeRecord(t *testing.T, dir, name, first, last string) string {
	t.Helper()
	doc := cv.NewDocument()
	doc.Personal.FirstName = first
	doc.Personal.LastName = last
	doc.Experience[0].Position = "Engineer"
	doc.Experience[0].Company = "Analytical Engines"

	data, err := json.Marshal(doc.Record())
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadRecordFile(t *testing.T) {
	dir := t.TempDir()
	path := writeRecord(t, dir, "ada.json", "Ada", "Lovelace")

	doc, err := loadRecordFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Ada", doc.Personal.FirstName)
	assert.Equal(t, cv.DefaultTemplateID, doc.Style.TemplateID)
}

func TestLoadRecordFile_Errors(t *testing.T) {
	dir := t.TempDir()

	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"title": "no data"}`), 0o644))
	_, err := loadRecordFile(invalid)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid.json")

	_, err = loadRecordFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestRenderFiles_Single(t *testing.T) {
	dir := t.TempDir()
	input := writeRecord(t, dir, "ada.json", "Ada", "Lovelace")
	gen := rendering.NewGenerator(nil, locale.MustLoad())

	jobs, err := renderFiles(context.Background(), gen, []string{input}, dir, rendering.Options{Locale: "en"}, 2)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	assert.Equal(t, filepath.Join(dir, "CV_Ada_Lovelace.pdf"), jobs[0].Output)
	data, err := os.ReadFile(jobs[0].Output)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestRenderFiles_Batch(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(outDir, 0o755))

	inputs := []string{
		writeRecord(t, dir, "first.json", "Ada", "Lovelace"),
		writeRecord(t, dir, "second.json", "Ada", "Lovelace"),
		writeRecord(t, dir, "third.json", "Grace", "Hopper"),
	}
	gen := rendering.NewGenerator(nil, locale.MustLoad())

	jobs, err := renderFiles(context.Background(), gen, inputs, outDir, rendering.Options{}, 2)
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	for i, name := range []string{"first.pdf", "second.pdf", "third.pdf"} {
		assert.Equal(t, inputs[i], jobs[i].Input)
		assert.FileExists(t, filepath.Join(outDir, name))
	}
}

func TestRenderFiles_BatchDuplicateBaseNames(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	for _, sub := range []string{"a", "b", "out"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, sub), 0o755))
	}
	inputs := []string{
		writeRecord(t, filepath.Join(dir, "a"), "cv.json", "Ada", "Lovelace"),
		writeRecord(t, filepath.Join(dir, "b"), "cv.json", "Grace", "Hopper"),
		writeRecord(t, dir, "other.json", "Alan", "Turing"),
	}
	gen := rendering.NewGenerator(nil, locale.MustLoad())

	jobs, err := renderFiles(context.Background(), gen, inputs, outDir, rendering.Options{}, 2)
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	assert.Equal(t, filepath.Join(outDir, "cv-1.pdf"), jobs[0].Output)
	assert.Equal(t, filepath.Join(outDir, "cv-2.pdf"), jobs[1].Output)
	assert.Equal(t, filepath.Join(outDir, "other.pdf"), jobs[2].Output)
	for _, job := range jobs {
		assert.FileExists(t, job.Output)
	}
}

func TestBatchOutputNames(t *testing.T) {
	names := batchOutputNames([]string{"a/cv.json", "b/cv.json", "cv-2.json", "x/resume.json"})
	assert.Equal(t, []string{"cv-1.pdf", "cv-2.pdf", "cv-2_.pdf", "resume.pdf"}, names)
}

func TestRenderFiles_InvalidInput(t *testing.T) {
	dir := t.TempDir()
	good := writeRecord(t, dir, "good.json", "Ada", "Lovelace")
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"cvData": {"skills": [{"name": "no id"}]}}`), 0o644))
	gen := rendering.NewGenerator(nil, locale.MustLoad())

	_, err := renderFiles(context.Background(), gen, []string{good, bad}, dir, rendering.Options{}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.json")
}

func TestRenderPDFCommand(t *testing.T) {
	dir := t.TempDir()
	input := writeRecord(t, dir, "ada.json", "Ada", "Lovelace")
	t.Setenv("DEFAULT_LOCALE", "")

	output, err := execute(t, "render-pdf", "--no-photos", "--out", dir, input)
	require.NoError(t, err, output)
	assert.Contains(t, output, "CV_Ada_Lovelace.pdf")
	assert.FileExists(t, filepath.Join(dir, "CV_Ada_Lovelace.pdf"))
}

func TestPreviewCommand(t *testing.T) {
	dir := t.TempDir()
	input := writeRecord(t, dir, "ada.json", "Ada", "")

	output, err := execute(t, "preview", "--locale", "fr", input)
	require.NoError(t, err, output)

	var snap struct {
		Locale   string `json:"locale"`
		Personal struct {
			FirstName string `json:"firstName"`
			LastName  string `json:"lastName"`
		} `json:"personal"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &snap))
	assert.Equal(t, "fr", snap.Locale)
	assert.Equal(t, "Ada", snap.Personal.FirstName)
	assert.NotEmpty(t, snap.Personal.LastName, "missing last name comes from the example resume")
}

func TestPreviewCommand_Formats(t *testing.T) {
	dir := t.TempDir()
	input := writeRecord(t, dir, "ada.json", "Ada", "Lovelace")

	output, err := execute(t, "preview", "--format", "summary", input)
	require.NoError(t, err, output)
	assert.Contains(t, output, "CV PREVIEW")
	assert.Contains(t, output, "Ada Lovelace")

	htmlPath := filepath.Join(dir, "preview.html")
	_, err = execute(t, "preview", "--format", "html", "--out", htmlPath, input)
	require.NoError(t, err)
	page, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<html")

	_, err = execute(t, "preview", "--format", "yaml", input)
	assert.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	const secret = "cli-test-secret-key-with-enough-bytes"
	t.Setenv("JWT_SECRET", secret)
	t.Setenv("JWT_ISSUER", "")
	t.Setenv("JWT_EXPIRATION_HOURS", "")
	userID := uuid.New()

	output, err := execute(t, "token", "--user", userID.String())
	require.NoError(t, err, output)

	service := server.NewJWTService(&config.JWTConfig{Secret: secret, ExpirationHours: 1})
	claims, err := service.ValidateToken(strings.TrimSpace(output))
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)

	_, err = execute(t, "token", "--user", "not-a-uuid")
	assert.Error(t, err)
}

func TestMigrateCommand_Print(t *testing.T) {
	output, err := execute(t, "migrate", "--print")
	require.NoError(t, err)
	assert.Contains(t, output, "CREATE TABLE IF NOT EXISTS cvs")
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"port": 7070, "public_domain": "cv.example.com", "render_workers": 2}`), 0o644))

	t.Setenv("PORT", "9090")
	t.Setenv("PUBLIC_DOMAIN", "")
	t.Setenv("IMAGE_PROXY_URL", "")
	t.Setenv("DEFAULT_LOCALE", "")
	t.Setenv("CHROME_PATH", "")
	configPath, verbose = path, true
	defer func() { configPath, verbose = "", false }()

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "cv.example.com", cfg.PublicDomain)
	assert.Equal(t, 2, cfg.RenderWorkers)
	assert.Equal(t, config.DefaultLocale, cfg.DefaultLocale)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("IMAGE_PROXY_URL", "ftp://proxy")
	t.Setenv("CHROME_PATH", "")
	configPath = ""

	_, err := loadConfig()
	assert.Error(t, err)
}

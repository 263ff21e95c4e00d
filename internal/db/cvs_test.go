package db

import (
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cv-builder/internal/cv"
)

func TestEncodeDecodeRecord_KeepsSectionPresence(t *testing.T) {
	record := cv.Record{
		CVData: cv.Content{
			Personal: cv.Personal{FirstName: "Ada", LastName: "Lovelace"},
			Tools:    cv.Present[cv.Skill](),
		},
		TemplateID:      "modern",
		DisplaySettings: cv.DisplaySettings{HideCity: true},
	}

	enc, err := encodeRecord(record)
	require.NoError(t, err)
	assert.Contains(t, string(enc.cvData), `"tools":[]`)
	assert.Contains(t, string(enc.cvData), `"hobbies":null`)

	var decoded cv.Record
	require.NoError(t, decodeRecord(&decoded, enc.cvData, enc.display))
	assert.Equal(t, "Ada", decoded.CVData.Personal.FirstName)
	assert.True(t, decoded.CVData.Tools.IsPresent())
	assert.False(t, decoded.CVData.Hobbies.IsPresent())
	assert.True(t, decoded.DisplaySettings.HideCity)
}

func TestDecodeRecord_Errors(t *testing.T) {
	var r cv.Record
	assert.Error(t, decodeRecord(&r, []byte(`{"personal":`), nil))
	assert.Error(t, decodeRecord(&r, nil, []byte(`[]`)))
	assert.NoError(t, decodeRecord(&r, nil, nil))
}

func TestCVRow_Document(t *testing.T) {
	sub := "ada"
	row := CVRow{
		Subdomain: &sub,
		Record:    cv.Record{Title: "Main", CVData: cv.Content{Personal: cv.Personal{FirstName: "Ada"}}},
	}
	doc := row.Document()
	assert.Equal(t, "ada", doc.Subdomain)
	assert.Equal(t, "Main", doc.Title)
	assert.Equal(t, cv.DefaultTemplateID, doc.Style.TemplateID)
	assert.Len(t, doc.Languages, 1)

	row.Subdomain = nil
	assert.Empty(t, row.Document().Subdomain)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(fmt.Errorf("boom")))
}

func TestSchema(t *testing.T) {
	schema := Schema()
	assert.True(t, strings.Contains(schema, "CREATE TABLE IF NOT EXISTS cvs"))
	assert.Contains(t, schema, "subdomain        TEXT UNIQUE")
	assert.Contains(t, schema, "cv_data          JSONB")
}

package preview

import (
	"bytes"
	"testing"

	"github.com/jonathan/cv-builder/internal/cv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, snap *Snapshot, tag string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, snap, catalogs.Lookup(tag)))
	return buf.String()
}

func TestRenderHTML_Examples(t *testing.T) {
	out := render(t, Reconcile(cv.NewDocument(), catalogs.Default(), cv.DisplaySettings{}), "en")

	assert.Contains(t, out, `lang="en"`)
	assert.Contains(t, out, "EXPERIENCE")
	assert.Contains(t, out, "Brightline Studio")
	assert.Contains(t, out, "March 2020 – Present")
	assert.Contains(t, out, `<img src="/assets/placeholders/classic-avatar.png"`)
	assert.NotContains(t, out, `data-kind="tool"`)
}

func TestRenderHTML_French(t *testing.T) {
	out := render(t, Reconcile(cv.NewDocument(), catalogs.Lookup("fr"), cv.DisplaySettings{}), "fr")
	assert.Contains(t, out, "FORMATION")
	assert.Contains(t, out, "Studio Lumière")
}

func TestRenderHTML_DisplaySettings(t *testing.T) {
	doc := cv.NewDocument()
	doc.Personal.City = "London"
	doc.Personal.Country = "United Kingdom"
	doc.Personal.LinkedIn = "linkedin.com/in/ada"
	doc.Languages[0].Name = "English"
	display := cv.DisplaySettings{HidePhoto: true, HideCity: true, HideLinkedIn: true, HideLanguageLevels: true}

	out := render(t, Reconcile(doc, catalogs.Default(), display), "en")

	assert.NotContains(t, out, "<img")
	assert.NotContains(t, out, "London")
	assert.Contains(t, out, "United Kingdom")
	assert.NotContains(t, out, "linkedin.com/in/ada")
	assert.NotContains(t, out, "Native speaker")
}

func TestRenderHTML_EmptyOptionalSectionOffersAdd(t *testing.T) {
	doc, id, err := cv.NewDocument().AddSection(cv.KindHobby)
	require.NoError(t, err)
	doc = doc.RemoveEntry(cv.KindHobby, id)

	out := render(t, Reconcile(doc, catalogs.Default(), cv.DisplaySettings{}), "en")
	assert.Contains(t, out, "INTERESTS")
	assert.Contains(t, out, `data-kind="hobby"`)
	assert.Contains(t, out, "Add section")
}

func TestRenderHTML_DataURIPhoto(t *testing.T) {
	doc := cv.NewDocument()
	doc.Personal.PhotoURL = "data:image/png;base64,AAAA"
	out := render(t, Reconcile(doc, catalogs.Default(), cv.DisplaySettings{}), "en")
	assert.Contains(t, out, `src="data:image/png;base64,AAAA"`)

	doc.Personal.PhotoURL = "javascript:alert(1)"
	out = render(t, Reconcile(doc, catalogs.Default(), cv.DisplaySettings{}), "en")
	assert.NotContains(t, out, "javascript:")
}

func TestRenderHTML_EscapesUserText(t *testing.T) {
	doc := cv.NewDocument()
	doc.Skills[0].Name = "<script>x</script>"
	out := render(t, Reconcile(doc, catalogs.Default(), cv.DisplaySettings{}), "en")
	assert.NotContains(t, out, "<script>x</script>")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestContactParts(t *testing.T) {
	p := Personal{Email: "ada@example.com", Phone: "612345678", PhoneCountryCode: "+33", City: "Paris"}
	assert.Equal(t, []string{"ada@example.com", "(+33) 612345678", "Paris"}, ContactParts(p, cv.DisplaySettings{}))
	assert.Equal(t, []string{"ada@example.com", "(+33) 612345678"}, ContactParts(p, cv.DisplaySettings{HideCity: true}))

	assert.Equal(t, "612345678", FormatPhone("", "612345678"))
	assert.Empty(t, FormatPhone("33", ""))
	assert.Equal(t, "Paris, France", FormatPlace("Paris", "France"))
	assert.Equal(t, "France", FormatPlace("", "France"))
}

func TestLookupTemplate(t *testing.T) {
	assert.Equal(t, "modern", LookupTemplate("Modern").ID)
	assert.Equal(t, "classic", LookupTemplate("unknown").ID)
	assert.Len(t, Templates(), 3)
}

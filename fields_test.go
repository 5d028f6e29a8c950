package portal

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/rehabcenter/portal/api"
	"github.com/rehabcenter/portal/locale"
	"github.com/rehabcenter/portal/views"
)

func englishTranslator(t *testing.T) *locale.Translator {
	t.Helper()
	bundle, err := locale.LoadBundle()
	require.NoError(t, err)
	return locale.New(bundle, language.English)
}

var postSpecs = []fieldSpec{
	{Name: "title", Kind: "text", Required: true},
	{Name: "status", Kind: "select", Choices: []string{"DRAFT", "PUBLISHED"}, ChoicePrefix: "Status."},
	{Name: "tagIds", Kind: "multiselect", Load: func(context.Context) ([]views.Option, error) {
		return []views.Option{{Value: "1", Label: "Amputation"}, {Value: "2", Label: "Rehab"}}, nil
	}},
	{Name: "cv", Kind: "file"},
	{Name: "createdAt", Kind: "static"},
}

func TestFieldNamesSkipFileAndStatic(t *testing.T) {
	assert.Equal(t, []string{"title", "status", "tagIds"}, fieldNames(postSpecs))
}

func TestFormValuesKeepsDeclaredFieldsOnly(t *testing.T) {
	got := formValues(url.Values{
		"title":     {"Hello"},
		"_csrf":     {"x"},
		"createdAt": {"2020-01-01"},
		"tagIds":    {"1", "2"},
	}, postSpecs)
	assert.Equal(t, url.Values{"title": {"Hello"}, "tagIds": {"1", "2"}}, got)
}

func TestBuildFieldsLabelsAndSelections(t *testing.T) {
	tr := englishTranslator(t)
	fields := buildFields(context.Background(), tr, postSpecs,
		url.Values{"title": {"Hi"}, "status": {"PUBLISHED"}, "tagIds": {"2"}},
		map[string]string{"title": "too short"})
	require.Len(t, fields, len(postSpecs))

	title := fields[0]
	assert.Equal(t, "Title", title.Label)
	assert.Equal(t, "Hi", title.Value)
	assert.Equal(t, "too short", title.Error)
	assert.True(t, title.Required)

	status := fields[1]
	require.Len(t, status.Options, 2)
	assert.Equal(t, "Published", status.Options[1].Label)
	assert.True(t, status.Options[1].Selected)
	assert.False(t, status.Options[0].Selected)

	tags := fields[2]
	assert.Equal(t, []string{"2"}, tags.Values)
	require.Len(t, tags.Options, 2)
	assert.False(t, tags.Options[0].Selected)
	assert.True(t, tags.Options[1].Selected)
}

func TestValuesOfReadsIndexedKeys(t *testing.T) {
	vals := url.Values{"tagIds": {"1"}, "tagIds[1]": {"3"}, "title": {"x"}}
	assert.ElementsMatch(t, []string{"1", "3"}, valuesOf(vals, "tagIds"))
}

func TestBindReportsDecodeAndValidationErrors(t *testing.T) {
	tr := englishTranslator(t)
	b := newBinder()

	var svc api.Service
	errs := b.bind(&svc, url.Values{"title": {""}, "orderIndex": {"first"}}, tr, "title", "orderIndex")
	assert.Equal(t, "Invalid value", errs["orderIndex"])

	svc = api.Service{}
	errs = b.bind(&svc, url.Values{"title": {""}, "orderIndex": {"3"}}, tr, "title", "orderIndex")
	assert.Equal(t, "This field is required", errs["title"])
	assert.Equal(t, 3, svc.OrderIndex)

	svc = api.Service{}
	errs = b.bind(&svc, url.Values{"title": {"Gait lab"}, "isActive": {"true"}}, tr, "title")
	assert.Empty(t, errs)
	assert.True(t, svc.IsActive)
}

func TestZeroFieldsClearsUncheckedBoxes(t *testing.T) {
	svc := api.Service{Title: "Kept", IsActive: true}
	zeroFields(&svc, []string{"isActive"})
	assert.False(t, svc.IsActive)
	assert.Equal(t, "Kept", svc.Title)
}

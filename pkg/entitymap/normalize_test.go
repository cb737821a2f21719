package entitymap

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contactMap() EntityMap {
	return EntityMap{
		SourceEntityName: "contacts",
		TargetEntityName: "People",
		Fields: []FieldMapping{
			{NormName: "email", SourcePath: "contact.['Email Address']", TargetPath: "fields.['Email']"},
			{NormName: "first", SourcePath: "name.first", TargetPath: "fields.Person.First"},
			{NormName: "last", SourcePath: "name.last", TargetPath: "fields.Person.Last"},
			{NormName: "tags", SourcePath: "tags.[x].label", TargetPath: "fields.Tags.[x].['Name']"},
			{NormName: "internal_id", SourcePath: "id"},
			{NormName: "airtable_only", TargetPath: "fields.Notes"},
		},
	}
}

func TestNormalize_SourceSide(t *testing.T) {
	raw := map[string]any{
		"id":      "src-1",
		"contact": map[string]any{"Email Address": "a@b.com"},
		"name":    map[string]any{"first": "Ada"},
		"tags":    []any{map[string]any{"label": "x"}, map[string]any{}, map[string]any{"label": "y"}},
	}

	rec := Normalize(raw, contactMap(), SideSource)

	assert.Equal(t, []string{"email", "first", "last", "tags", "internal_id"}, rec.Keys())
	assert.Equal(t, map[string]any{
		"email":       "a@b.com",
		"first":       "Ada",
		"last":        nil,
		"tags":        []any{"x", "y"},
		"internal_id": "src-1",
	}, rec.ToMap())
	assert.False(t, rec.Has("airtable_only"), "fields without a source path must be absent")
}

func TestNormalize_WildcardNullBecomesEmptyList(t *testing.T) {
	rec := Normalize(map[string]any{}, contactMap(), SideSource)

	v, ok := rec.Get("tags")
	require.True(t, ok)
	assert.Equal(t, []any{}, v)

	v, ok = rec.Get("email")
	require.True(t, ok)
	assert.Nil(t, v)
}

func TestNormalize_TargetSide(t *testing.T) {
	raw := map[string]any{
		"id": "rec123",
		"fields": map[string]any{
			"Email":  "a@b.com",
			"Person": map[string]any{"First": "Ada", "Last": "Lovelace"},
			"Notes":  "hello",
		},
	}

	rec := Normalize(raw, contactMap(), SideTarget)

	assert.Equal(t, []string{"email", "first", "last", "tags", "airtable_only"}, rec.Keys())
	assert.Equal(t, "hello", rec.ToMap()["airtable_only"])
	assert.Equal(t, []any{}, rec.ToMap()["tags"])
}

func TestNormalize_NilRaw(t *testing.T) {
	rec := Normalize(nil, contactMap(), SideSource)
	assert.Equal(t, 5, rec.Len())
	assert.Equal(t, []any{}, rec.ToMap()["tags"])
}

func TestNormalize_EmailScenario(t *testing.T) {
	em := EntityMap{
		SourceEntityName: "contacts",
		TargetEntityName: "People",
		Fields: []FieldMapping{
			{NormName: "email", SourcePath: "contact.['Email Address']", TargetPath: "fields.['Email']"},
		},
	}
	var raw any
	require.NoError(t, json.Unmarshal([]byte(`{"contact":{"Email Address":"a@b.com"}}`), &raw))

	norm := Normalize(raw, em, SideSource)
	b, err := json.Marshal(norm)
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"a@b.com"}`, string(b))

	payload := BuildPayload(norm, em, PayloadOptions{StripPrefix: DefaultFieldsKey})
	pb, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Email":"a@b.com"}`, string(pb))
}

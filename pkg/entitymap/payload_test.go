package entitymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var fieldsPrefix = PayloadOptions{StripPrefix: DefaultFieldsKey}

func TestBuildPayload_SiblingKeysShareParent(t *testing.T) {
	norm := NewRecord()
	norm.Set("last", "Lovelace")
	norm.Set("first", "Ada")

	for _, fields := range [][]FieldMapping{
		{{NormName: "first", TargetPath: "fields.Person.First"}, {NormName: "last", TargetPath: "fields.Person.Last"}},
		{{NormName: "last", TargetPath: "fields.Person.Last"}, {NormName: "first", TargetPath: "fields.Person.First"}},
	} {
		got := BuildPayload(norm, EntityMap{Fields: fields}, fieldsPrefix)
		assert.Equal(t, map[string]any{
			"Person": map[string]any{"First": "Ada", "Last": "Lovelace"},
		}, got)
	}
}

func TestBuildPayload_FanOut(t *testing.T) {
	norm := NewRecord()
	norm.Set("names", []any{"a", "b", "c"})
	em := EntityMap{Fields: []FieldMapping{{NormName: "names", TargetPath: "Items.[x].['Name']"}}}

	got := BuildPayload(norm, em, PayloadOptions{})

	assert.Equal(t, map[string]any{
		"Items": []any{
			map[string]any{"Name": "a"},
			map[string]any{"Name": "b"},
			map[string]any{"Name": "c"},
		},
	}, got)
}

func TestBuildPayload_NullIsNeverWritten(t *testing.T) {
	norm := NewRecord()
	norm.Set("email", nil)
	norm.Set("first", "Ada")
	em := EntityMap{Fields: []FieldMapping{
		{NormName: "email", TargetPath: "fields.Email"},
		{NormName: "first", TargetPath: "fields.First"},
	}}

	got := BuildPayload(norm, em, fieldsPrefix)

	assert.Equal(t, map[string]any{"First": "Ada"}, got)
	_, exists := got["Email"]
	assert.False(t, exists)
}

func TestBuildPayload_SkipsMissingAndSourceOnlyFields(t *testing.T) {
	norm := NewRecord()
	norm.Set("internal_id", "x")
	em := EntityMap{Fields: []FieldMapping{
		{NormName: "internal_id", SourcePath: "id"},
		{NormName: "absent", TargetPath: "fields.Absent"},
	}}

	assert.Equal(t, map[string]any{}, BuildPayload(norm, em, fieldsPrefix))
}

func TestBuildPayload_TypeMismatchDropsOnlyThatField(t *testing.T) {
	norm := NewRecord()
	norm.Set("tags", "not-a-list")
	norm.Set("first", "Ada")
	em := EntityMap{Fields: []FieldMapping{
		{NormName: "tags", TargetPath: "fields.Tags.[x].Name"},
		{NormName: "first", TargetPath: "fields.First"},
	}}

	assert.Equal(t, map[string]any{"First": "Ada"}, BuildPayload(norm, em, fieldsPrefix))
}

func TestBuildPayload_PrefixIsConfigurable(t *testing.T) {
	norm := NewRecord()
	norm.Set("email", "a@b.com")
	em := EntityMap{Fields: []FieldMapping{{NormName: "email", TargetPath: "data.attributes.email"}}}

	assert.Equal(t,
		map[string]any{"attributes": map[string]any{"email": "a@b.com"}},
		BuildPayload(norm, em, PayloadOptions{StripPrefix: "data"}),
	)
	assert.Equal(t,
		map[string]any{"data": map[string]any{"attributes": map[string]any{"email": "a@b.com"}}},
		BuildPayload(norm, em, fieldsPrefix),
	)
}

func TestBuildPayload_IndexRootedPathIsDropped(t *testing.T) {
	norm := NewRecord()
	norm.Set("v", "x")
	em := EntityMap{Fields: []FieldMapping{{NormName: "v", TargetPath: "fields.[0]"}}}

	assert.Equal(t, map[string]any{}, BuildPayload(norm, em, fieldsPrefix))
}

func TestBuildPayload_NilRecord(t *testing.T) {
	assert.Equal(t, map[string]any{}, BuildPayload(nil, contactMap(), fieldsPrefix))
}

func TestRoundTrip_ScalarsSurviveNormalizeAndBuild(t *testing.T) {
	em := contactMap()
	raw := map[string]any{
		"contact": map[string]any{"Email Address": "a@b.com"},
		"name":    map[string]any{"first": "Ada", "last": "Lovelace"},
		"tags":    []any{map[string]any{"label": "x"}},
	}

	payload := BuildPayload(Normalize(raw, em, SideSource), em, fieldsPrefix)

	target := map[string]any{"fields": payload}
	back := Normalize(target, em, SideTarget)
	assert.Equal(t, "a@b.com", back.ToMap()["email"])
	assert.Equal(t, "Ada", back.ToMap()["first"])
	assert.Equal(t, "Lovelace", back.ToMap()["last"])
	assert.Equal(t, map[string]any{"Name": "x"}, payload["Tags"].([]any)[0])
}

func TestBuildPayload_IndexAboveLimitDropsOnlyThatField(t *testing.T) {
	norm := NewRecord()
	norm.Set("list", "v")
	norm.Set("first", "Ada")
	em := EntityMap{Fields: []FieldMapping{
		{NormName: "list", TargetPath: "fields.List.[99999999999]"},
		{NormName: "first", TargetPath: "fields.First"},
	}}

	assert.Equal(t, map[string]any{"First": "Ada"}, BuildPayload(norm, em, fieldsPrefix))
}

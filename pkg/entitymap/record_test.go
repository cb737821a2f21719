package entitymap

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_MarshalKeepsInsertionOrder(t *testing.T) {
	r := NewRecord()
	r.Set("zeta", 1)
	r.Set("alpha", []any{"x"})
	r.Set("mid", nil)
	r.Set("zeta", 2)

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":2,"alpha":["x"],"mid":null}`, string(b))
}

func TestRecord_UnmarshalKeepsDocumentOrder(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{"b": 1, "a": {"k": [1, 2]}, "c": null}`), &r))

	assert.Equal(t, []string{"b", "a", "c"}, r.Keys())
	v, ok := r.Get("b")
	require.True(t, ok)
	assert.Equal(t, json.Number("1"), v)
	assert.True(t, r.Has("c"))
}

func TestRecord_UnmarshalRejectsNonObject(t *testing.T) {
	var r Record
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &r))
}

func TestRecord_EmptyMarshalsAsObject(t *testing.T) {
	b, err := json.Marshal(NewRecord())
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(b))
}

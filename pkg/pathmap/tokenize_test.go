package pathmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize_ReadMode(t *testing.T) {
	cases := []struct {
		name string
		path string
		want []Token
	}{
		{name: "empty", path: "", want: nil},
		{name: "single key", path: "email", want: []Token{Key("email")}},
		{name: "nested keys", path: "contact.primary_email", want: []Token{Key("contact"), Key("primary_email")}},
		{name: "hyphen and digits", path: "x-1.v2", want: []Token{Key("x-1"), Key("v2")}},
		{
			name: "literal key",
			path: "contact.['Email Address']",
			want: []Token{Key("contact"), LiteralKey("Email Address")},
		},
		{
			name: "wildcard",
			path: "items.[x].['Name']",
			want: []Token{Key("items"), Wildcard(), LiteralKey("Name")},
		},
		{
			name: "literal keeps punctuation verbatim",
			path: `['a.b [c] \n']`,
			want: []Token{LiteralKey(`a.b [c] \n`)},
		},
		{
			name: "spaces split bare keys in read mode",
			path: "First Name",
			want: []Token{Key("First"), Key("Name")},
		},
		{
			name: "index is not a read segment",
			path: "items.[0].name",
			want: []Token{Key("items"), Key("0"), Key("name")},
		},
		{name: "only junk", path: "...!!", want: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Tokenize(tc.path, ReadMode))
		})
	}
}

func TestTokenize_WriteMode(t *testing.T) {
	cases := []struct {
		name string
		path string
		want []Token
	}{
		{name: "spaces allowed", path: "First Name", want: []Token{Key("First Name")}},
		{name: "index", path: "Items.[2].Name", want: []Token{Key("Items"), Index(2), Key("Name")}},
		{
			name: "wildcard and literal",
			path: "Items.[x].['Name']",
			want: []Token{Key("Items"), Wildcard(), LiteralKey("Name")},
		},
		{name: "multi digit index", path: "[10]", want: []Token{Index(10)}},
		{name: "unmatched characters dropped", path: "a.$b", want: []Token{Key("a"), Key("b")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Tokenize(tc.path, WriteMode))
		})
	}
}

func TestTokenize_NeverPanicsOnMalformedInput(t *testing.T) {
	inputs := []string{"[", "]", "['", "'']", "[x", "x]", "['']", "[[x]]", ".", "[-1]", "[99999999999999999999999]"}
	for _, in := range inputs {
		require.NotPanics(t, func() {
			_ = Tokenize(in, ReadMode)
			_ = Tokenize(in, WriteMode)
		}, "input %q", in)
	}
	assert.Equal(t, []Token{Wildcard()}, Tokenize("[[x]]", ReadMode))
}

func TestFormat_RoundTripsCanonicalPaths(t *testing.T) {
	for _, p := range []string{
		"contact.['Email Address']",
		"Items.[x].['Name']",
		"Items.[3].Name",
		"a.b.c",
	} {
		assert.Equal(t, p, Format(Tokenize(p, WriteMode)))
	}
}

func TestHasWildcard(t *testing.T) {
	assert.True(t, HasWildcard(Tokenize("a.[x].b", ReadMode)))
	assert.False(t, HasWildcard(Tokenize("a.['[x]']", ReadMode)))
	assert.False(t, HasWildcard(nil))
}

package pathmap

import (
	"strconv"
	"strings"
)

type TokenKind int

const (
	KindKey TokenKind = iota
	KindIndex
	KindWildcard
)

func (k TokenKind) String() string {
	switch k {
	case KindKey:
		return "key"
	case KindIndex:
		return "index"
	case KindWildcard:
		return "wildcard"
	default:
		return "unknown"
	}
}

// Token is one parsed path segment.
type Token struct {
	Kind TokenKind
	// Name is the object key for KindKey tokens.
	Name string
	// Index is the array position for KindIndex tokens.
	Index int
	// Literal is set when the key was written as ['...'].
	Literal bool
}

func Key(name string) Token {
	return Token{Kind: KindKey, Name: name}
}

func LiteralKey(name string) Token {
	return Token{Kind: KindKey, Name: name, Literal: true}
}

func Index(i int) Token {
	return Token{Kind: KindIndex, Index: i}
}

func Wildcard() Token {
	return Token{Kind: KindWildcard}
}

// String renders the token in path syntax.
func (t Token) String() string {
	switch t.Kind {
	case KindIndex:
		return "[" + strconv.Itoa(t.Index) + "]"
	case KindWildcard:
		return "[x]"
	default:
		if t.Literal {
			return "['" + t.Name + "']"
		}
		return t.Name
	}
}

// Format joins tokens back into a dotted path.
func Format(tokens []Token) string {
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, ".")
}

// HasWildcard reports whether any token fans out over an array.
func HasWildcard(tokens []Token) bool {
	for _, t := range tokens {
		if t.Kind == KindWildcard {
			return true
		}
	}
	return false
}

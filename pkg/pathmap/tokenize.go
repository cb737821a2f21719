package pathmap

import (
	"regexp"
	"strconv"
	"strings"
)

// Mode selects the segment grammar.
//
// Read paths address existing documents and never carry positional indexes.
// Write paths allow spaces inside bare identifiers and accept [N].
type Mode int

const (
	ReadMode Mode = iota
	WriteMode
)

func (m Mode) String() string {
	if m == WriteMode {
		return "write"
	}
	return "read"
}

var (
	readSegmentPattern  = regexp.MustCompile(`[A-Za-z0-9_-]+|\['[^']+'\]|\[x\]`)
	writeSegmentPattern = regexp.MustCompile(`[A-Za-z0-9_ -]+|\['[^']+'\]|\[[0-9]+\]|\[x\]`)
)

func segmentPattern(mode Mode) *regexp.Regexp {
	if mode == WriteMode {
		return writeSegmentPattern
	}
	return readSegmentPattern
}

// Tokenize splits path into tokens using the grammar for mode.
// Characters outside any segment match are dropped.
func Tokenize(path string, mode Mode) []Token {
	if path == "" {
		return nil
	}
	matches := segmentPattern(mode).FindAllString(path, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]Token, 0, len(matches))
	for _, m := range matches {
		out = append(out, segmentToken(m))
	}
	return out
}

func segmentToken(seg string) Token {
	switch {
	case seg == "[x]":
		return Wildcard()
	case strings.HasPrefix(seg, "['") && strings.HasSuffix(seg, "']") && len(seg) > 4:
		return LiteralKey(seg[2 : len(seg)-2])
	case strings.HasPrefix(seg, "[") && strings.HasSuffix(seg, "]"):
		n, err := strconv.Atoi(seg[1 : len(seg)-1])
		if err != nil {
			// Overflows int; Write drops negative indexes.
			return Index(-1)
		}
		return Index(n)
	default:
		return Key(seg)
	}
}

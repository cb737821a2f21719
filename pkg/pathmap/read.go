package pathmap

import "strconv"

// ResolvePath tokenizes path in ReadMode and resolves it against data.
// An empty path resolves to nil.
func ResolvePath(data any, path string) any {
	if path == "" {
		return nil
	}
	return Resolve(data, Tokenize(path, ReadMode))
}

// Resolve returns the value addressed by tokens inside data.
//
// A nil node resolves to nil whatever tokens remain. A wildcard over a node
// that is not an array resolves to an empty []any; over an array it
// resolves the remaining tokens against every element and keeps the non-nil
// results in element order. Index tokens are skipped.
func Resolve(data any, tokens []Token) any {
	cur := data
	for i := 0; i < len(tokens); i++ {
		if cur == nil {
			return nil
		}
		tok := tokens[i]
		switch tok.Kind {
		case KindWildcard:
			return resolveEach(cur, tokens[i+1:])
		case KindIndex:
			continue
		default:
			cur = lookupKey(cur, tok.Name)
		}
	}
	return cur
}

func resolveEach(node any, rest []Token) []any {
	arr, ok := node.([]any)
	if !ok {
		return []any{}
	}
	out := make([]any, 0, len(arr))
	for _, item := range arr {
		if v := Resolve(item, rest); v != nil {
			out = append(out, v)
		}
	}
	return out
}

// lookupKey reads name from an object. Arrays accept decimal keys as
// positions so that items.0.name keeps working against list documents.
func lookupKey(node any, name string) any {
	switch n := node.(type) {
	case map[string]any:
		return n[name]
	case []any:
		i, err := strconv.Atoi(name)
		if err != nil || i < 0 || i >= len(n) || strconv.Itoa(i) != name {
			return nil
		}
		return n[i]
	default:
		return nil
	}
}

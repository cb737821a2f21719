package pathmap

import "reflect"

// MaxIndex is the largest [N] a write honours. Larger indexes drop the field
// instead of allocating the array.
const MaxIndex = 1<<16 - 1

// Write stores value at the location addressed by tokens inside acc and
// returns the resulting document.
//
// Containers on the way are created as needed: a key token requires an
// object and an index or wildcard token requires an array. A slot holding
// the wrong kind of container (or a scalar) is replaced by a fresh one,
// never merged. A wildcard distributes a sequence value element by element
// onto the same positions of the destination array.
//
// Write copies every container it changes, so acc itself is never modified.
// The second result is false when the write was dropped: no tokens, an
// index above MaxIndex, or a wildcard reached with a value that is not a
// sequence. A dropped write
// returns acc unchanged, leaving no partial structure behind.
func Write(acc any, tokens []Token, value any) (any, bool) {
	if len(tokens) == 0 {
		return acc, false
	}
	return write(acc, tokens, value)
}

// WritePath tokenizes path in WriteMode and writes value into acc.
func WritePath(acc any, path string, value any) (any, bool) {
	return Write(acc, Tokenize(path, WriteMode), value)
}

func write(node any, tokens []Token, value any) (any, bool) {
	tok, rest := tokens[0], tokens[1:]
	switch tok.Kind {
	case KindWildcard:
		items, ok := asSequence(value)
		if !ok {
			return node, false
		}
		arr := growArray(node, len(items))
		for i, item := range items {
			if len(rest) == 0 {
				arr[i] = item
				continue
			}
			child, ok := write(arr[i], rest, item)
			if !ok {
				return node, false
			}
			arr[i] = child
		}
		return arr, true

	case KindIndex:
		if tok.Index < 0 || tok.Index > MaxIndex {
			return node, false
		}
		arr := growArray(node, tok.Index+1)
		if len(rest) == 0 {
			arr[tok.Index] = value
			return arr, true
		}
		child, ok := write(arr[tok.Index], rest, value)
		if !ok {
			return node, false
		}
		arr[tok.Index] = child
		return arr, true

	default:
		obj := cloneObject(node)
		if len(rest) == 0 {
			obj[tok.Name] = value
			return obj, true
		}
		child, ok := write(obj[tok.Name], rest, value)
		if !ok {
			return node, false
		}
		obj[tok.Name] = child
		return obj, true
	}
}

// cloneObject returns a shallow copy of node when it is an object and a new
// empty object otherwise.
func cloneObject(node any) map[string]any {
	src, _ := node.(map[string]any)
	out := make(map[string]any, len(src)+1)
	for k, v := range src {
		out[k] = v
	}
	return out
}

// growArray returns a copy of node with at least n slots. Non-array nodes
// are replaced; new slots hold nil.
func growArray(node any, n int) []any {
	src, _ := node.([]any)
	size := len(src)
	if n > size {
		size = n
	}
	out := make([]any, size)
	copy(out, src)
	return out
}

func asSequence(v any) ([]any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case []any:
		return t, true
	case []byte:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

package entitymap

import "github.com/r9s-ai/open-sync-router/pkg/pathmap"

// Normalize reads raw through the paths defined for side.
//
// Fields without a path on side are left out of the record. A field whose
// path fans out with [x] never normalizes to nil: absent data becomes an
// empty list.
func Normalize(raw any, em EntityMap, side Side) *Record {
	out := NewRecord()
	for _, f := range em.Fields {
		path, ok := f.Path(side)
		if !ok {
			continue
		}
		tokens := pathmap.Tokenize(path, pathmap.ReadMode)
		v := pathmap.Resolve(raw, tokens)
		if v == nil && pathmap.HasWildcard(tokens) {
			v = []any{}
		}
		out.Set(f.NormName, v)
	}
	return out
}

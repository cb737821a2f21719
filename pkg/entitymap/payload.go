package entitymap

import (
	"strings"

	"github.com/r9s-ai/open-sync-router/pkg/pathmap"
)

// DefaultFieldsKey is the namespace most target systems wrap record fields in.
const DefaultFieldsKey = "fields"

type PayloadOptions struct {
	// StripPrefix is removed (with its trailing dot) from target paths before
	// they are tokenized for writing. Empty keeps paths unchanged.
	StripPrefix string
}

func (o PayloadOptions) writePath(targetPath string) string {
	prefix := strings.TrimSpace(o.StripPrefix)
	if prefix == "" {
		return targetPath
	}
	return strings.TrimPrefix(targetPath, prefix+".")
}

// WriteTokens returns the tokens BuildPayload writes for a target path.
func (o PayloadOptions) WriteTokens(targetPath string) []pathmap.Token {
	return pathmap.Tokenize(o.writePath(targetPath), pathmap.WriteMode)
}

// BuildPayload writes norm into a new object through the target paths of em.
//
// Fields are written in declaration order into one shared accumulator, so
// fields addressing sibling keys end up in the same parent object. A field
// is skipped when its name is missing from norm, it has no target path, or
// its value is nil. Writes the engine drops (a wildcard fed a non-list, a
// path rooted at an index) leave nothing behind for that field.
func BuildPayload(norm *Record, em EntityMap, opts PayloadOptions) map[string]any {
	var acc any = map[string]any{}
	for _, f := range em.Fields {
		if f.TargetPath == "" {
			continue
		}
		v, ok := norm.Get(f.NormName)
		if !ok || v == nil {
			continue
		}
		tokens := opts.WriteTokens(f.TargetPath)
		if len(tokens) == 0 || tokens[0].Kind != pathmap.KindKey {
			continue
		}
		if next, ok := pathmap.Write(acc, tokens, v); ok {
			acc = next
		}
	}
	return acc.(map[string]any)
}

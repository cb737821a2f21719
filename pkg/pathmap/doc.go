// Package pathmap implements the path expressions used by entity maps to
// address locations inside decoded JSON documents.
//
// # Syntax
//
// A path is a list of dot separated segments:
//
//   - bare identifiers: contact.email
//   - quoted literal keys: contact.['Email Address']
//   - positional indexes (write paths only, up to MaxIndex): items.[0].name
//   - the wildcard: items.[x].name
//
// Paths are parsed once into a []Token. Tokenize is permissive: characters
// that do not belong to any segment are dropped instead of rejected. Lint
// reports what Tokenize would silently discard.
//
// # Documents
//
// Documents use the encoding/json data model: map[string]any, []any,
// string, float64 or json.Number, bool and nil. Resolve and Write switch on
// these types and treat anything else as a scalar.
//
// Resolve (read) and Write (build) never return errors. Absent data reads as
// nil and a value of the wrong shape for a wildcard write drops the write.
package pathmap

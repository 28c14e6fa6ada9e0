package models

import "strings"

// NormalizeQuery returns the canonical form of a user query: surrounding
// whitespace is trimmed and the result is lowercased. The normalized form
// is the cache key and the query field of audit records, so two queries
// that normalize to the same string share one cache entry.
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

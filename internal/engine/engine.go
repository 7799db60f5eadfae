// ABOUTME: Query engine that filters vulnerability rows by multi-token keyword queries.
// ABOUTME: Pure functions for tokenization, case folding, per-row matching, and truncation.

package engine

import (
	"strings"

	"golang.org/x/text/cases"
)

// SearchableFields lists the record fields scanned by a query, in the order
// callers must supply them to Match.
var SearchableFields = []string{"software", "version", "description", "name", "vendor"}

// Fold returns the Unicode case-folded form of s.
// A Caser carries state, so a fresh one is created per call.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// Tokenize splits query on whitespace runs and case-folds every token.
// A query with no non-whitespace content yields no tokens.
func Tokenize(query string) []string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return nil
	}

	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		tokens = append(tokens, Fold(field))
	}
	return tokens
}

// Match reports whether every token is a substring of at least one of the
// already-folded fields. No tokens never match.
func Match(folded []string, tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}

	for _, token := range tokens {
		found := false
		for _, field := range folded {
			if strings.Contains(field, token) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Select scans rows 0..n-1 in order and returns the indices of the first
// limit rows whose folded fields match tokens. fields(i) must return the
// folded searchable fields of row i.
func Select(n, limit int, tokens []string, fields func(i int) []string) []int {
	if limit <= 0 || len(tokens) == 0 {
		return nil
	}

	var matches []int
	for i := 0; i < n; i++ {
		if !Match(fields(i), tokens) {
			continue
		}
		matches = append(matches, i)
		if len(matches) == limit {
			break
		}
	}
	return matches
}

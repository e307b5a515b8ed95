// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package cache

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// NormalizeTerm canonicalizes a search term for fingerprinting: leading
// and trailing whitespace is trimmed, the term is lowercased, and runs of
// inner whitespace collapse to a single space. "  The  DISPOSSESSED " and
// "the dispossessed" produce the same fingerprint.
func NormalizeTerm(term string) string {
	return strings.Join(strings.Fields(strings.ToLower(term)), " ")
}

// Fingerprint derives the cache key for a query. The key covers the
// normalized search term and the tier, so the same term requested at a
// different tier occupies a different slot. When personalized is true the
// user ID is mixed in as well and users never share cached results.
func Fingerprint(userID, term, tier string, personalized bool) string {
	composite := tier + "|" + NormalizeTerm(term)
	if personalized {
		composite = userID + "|" + composite
	}

	hash := sha256.Sum256([]byte(composite))
	return fmt.Sprintf("%x", hash[:16])
}

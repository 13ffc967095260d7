// Package phone canonicalizes WhatsApp contact identifiers and
// user-typed phone strings into comparable digit strings.
//
// Stored whatsapp_number values were populated inconsistently over
// time (with or without the Brazilian mobile "9" prefix digit), so
// lookups compensate at read time by trying a fixed chain of
// candidate forms instead of rewriting historical records.
package phone

import "strings"

const countryCodePrefix = "55"

// FromJID extracts the raw phone number from a messaging-platform
// JID of the form "<number>@<domain>" and normalizes it. Plain
// numbers without the "@" part are accepted as well.
func FromJID(jid string) string {
	number, _, _ := strings.Cut(jid, "@")
	return Normalize(number)
}

// Normalize strips the "55" country code prefix when present and
// removes every non-digit character.
func Normalize(number string) string {
	number = strings.TrimPrefix(number, countryCodePrefix)
	return Digits(number)
}

// Digits removes every non-digit character from s.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Candidates returns the lookup forms for a normalized number, in
// the exact order they must be tried against stored records:
//
//  1. the number itself;
//  2. with the leading "9" removed, when it is 12 digits long and
//     starts with "9" (over-inserted mobile prefix);
//  3. with a "9" prepended, when it is 11 digits long and does not
//     start with "9" (missing mobile prefix).
//
// The order is load-bearing: an ambiguous number could match the
// wrong account under a different search order.
func Candidates(clean string) []string {
	candidates := []string{clean}
	if len(clean) == 12 && strings.HasPrefix(clean, "9") {
		candidates = append(candidates, clean[1:])
	}
	if len(clean) == 11 && !strings.HasPrefix(clean, "9") {
		candidates = append(candidates, "9"+clean)
	}
	return candidates
}

// FallbackCandidates returns the broad last-resort forms matched in
// a single query once the ordered Candidates chain is exhausted.
func FallbackCandidates(clean string) []string {
	if clean == "" {
		return nil
	}
	return []string{clean, "9" + clean, clean[1:]}
}

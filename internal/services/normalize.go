package services

import (
	"sort"
	"strings"
)

// NormalizePhone strips formatting so lookups stay exact-match: spaces,
// dashes, dots and parentheses go, digits stay, a single leading + is kept.
// Applied at write time too, so stored values and match keys never diverge.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	var b strings.Builder
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeEmail trims and lowercases.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// LockKeys derives the reconciliation lock keys for a contact pair. Each
// non-empty identity field locks independently, so an event carrying only a
// phone and one carrying phone+email for the same person still serialize.
// Sorted so concurrent multi-key acquisition cannot deadlock.
func LockKeys(phone, email string) []string {
	var keys []string
	if phone != "" {
		keys = append(keys, "phone:"+phone)
	}
	if email != "" {
		keys = append(keys, "email:"+email)
	}
	sort.Strings(keys)
	return keys
}

// Package displayid produces the human-facing certificate identifiers of the
// form CERT-<year>-<NNNN>.
//
// The sequence is max+1 over the identifiers that currently exist for the
// year. Deleting the highest-numbered record therefore frees its number for
// the next issuance.
package displayid

import (
	"fmt"
	"strconv"
	"strings"
)

// Prefix starts every display id.
const Prefix = "CERT"

// YearPrefix returns the "CERT-<year>-" prefix that scopes a sequence.
func YearPrefix(year int) string {
	return fmt.Sprintf("%s-%d-", Prefix, year)
}

// Next returns the identifier following the highest sequence issued for year.
// Identifiers from other years and malformed suffixes are ignored.
func Next(existing []string, year int) string {
	prefix := YearPrefix(year)
	highest := 0
	for _, displayID := range existing {
		if !strings.HasPrefix(displayID, prefix) {
			continue
		}
		if n := Suffix(displayID); n > highest {
			highest = n
		}
	}
	return Format(year, highest+1)
}

// Format assembles an identifier from its parts.
func Format(year, seq int) string {
	return fmt.Sprintf("%s%04d", YearPrefix(year), seq)
}

// Suffix parses the trailing "-"-delimited segment as a sequence number.
// Non-numeric or malformed suffixes yield 0.
func Suffix(displayID string) int {
	i := strings.LastIndexByte(displayID, '-')
	if i < 0 || i == len(displayID)-1 {
		return 0
	}
	tail := displayID[i+1:]
	if !isDigits(tail) {
		return 0
	}
	n, err := strconv.Atoi(tail)
	if err != nil {
		return 0
	}
	return n
}

// Parse splits a well-formed identifier into year and sequence.
func Parse(displayID string) (year, seq int, ok bool) {
	parts := strings.Split(displayID, "-")
	if len(parts) != 3 || parts[0] != Prefix || !isDigits(parts[1]) || !isDigits(parts[2]) {
		return 0, 0, false
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	seq, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, false
	}
	return year, seq, true
}

// LooksLike reports whether token has the shape of a display id, letting
// lookups skip the opaque-id probe for obvious display ids.
func LooksLike(token string) bool {
	_, _, ok := Parse(token)
	return ok
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

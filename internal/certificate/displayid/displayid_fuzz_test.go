package displayid

import (
	"strings"
	"testing"
)

// FuzzSuffix checks that suffix parsing never panics and never goes negative.
func FuzzSuffix(f *testing.F) {
	f.Add("")
	f.Add("CERT-2024-0001")
	f.Add("CERT-2024-")
	f.Add("-")
	f.Add("CERT-2024-99999999999999999999999")
	f.Add(string([]byte{0x00, '-', '1'}))

	f.Fuzz(func(t *testing.T, input string) {
		if n := Suffix(input); n < 0 {
			t.Errorf("negative suffix %d for %q", n, input)
		}
	})
}

// FuzzNext checks that the generated id always carries the year prefix and
// outranks every well-formed id of that year.
func FuzzNext(f *testing.F) {
	f.Add("CERT-2024-0001", 2024)
	f.Add("garbage", 1999)
	f.Add("CERT-2024-0009", 2025)

	f.Fuzz(func(t *testing.T, existing string, year int) {
		if year < 0 || year > 9999 {
			return
		}
		next := Next([]string{existing}, year)
		if !strings.HasPrefix(next, YearPrefix(year)) {
			t.Fatalf("missing prefix: %q", next)
		}
		if strings.HasPrefix(existing, YearPrefix(year)) && Suffix(existing) < 1<<30 && Suffix(next) <= Suffix(existing) {
			t.Fatalf("next %q does not outrank %q", next, existing)
		}
	})
}

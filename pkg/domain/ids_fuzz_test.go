//go:build go1.18

package domain

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// FuzzParseCertificateID checks that parsing never panics and that accepted
// ids are stable under re-parsing.
func FuzzParseCertificateID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("8fQk2LmZx1aB9cD0eF3g")
	f.Add("'; DROP TABLE certificates;--")
	f.Add("../admin")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseCertificateID(input)
		if err != nil {
			return
		}
		if id.IsNil() {
			t.Fatal("accepted an empty id")
		}
		if strings.Contains(id.String(), "/") {
			t.Errorf("accepted id with a slash: %q", id)
		}
		if !utf8.ValidString(id.String()) {
			t.Errorf("accepted non-UTF8 id: %q", id)
		}
		again, err := ParseCertificateID(id.String())
		if err != nil {
			t.Errorf("accepted id failed to re-parse: %v", err)
		}
		if again != id {
			t.Errorf("re-parse changed id: %q -> %q", id, again)
		}
	})
}

package testutil

import "testing"

// Given, When and Then name nested subtests after a scenario's clauses, so a
// failure reads as "Given .../When .../Then ...".
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "Given", desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "When", desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "Then", desc, fn)
}

func step(t *testing.T, clause, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run(clause+" "+desc, fn)
}

package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"nil slice", nil, nil},
		{"empty slice", []string{}, []string{}},
		{"keeps course order", []string{"Safety", "Wiring", "Earthing"}, []string{"Safety", "Wiring", "Earthing"}},
		{"trims and collapses", []string{"  Safety ", "Cable   Sizing"}, []string{"Safety", "Cable Sizing"}},
		{"drops repeats after collapsing", []string{"Cable Sizing", "Cable  Sizing", "Safety", "Safety"}, []string{"Cable Sizing", "Safety"}},
		{"drops blanks", []string{"", "  ", "Safety"}, []string{"Safety"}},
		{"case is significant", []string{"safety", "Safety"}, []string{"safety", "Safety"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestCollapseSpace(t *testing.T) {
	assert.Equal(t, "Solar PV Installation", CollapseSpace("\tSolar  PV\nInstallation "))
	assert.Equal(t, "", CollapseSpace(" \t "))
}

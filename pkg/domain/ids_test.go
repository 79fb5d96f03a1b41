package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "trainingcenter/pkg/domain-errors"
)

func TestParseCertificateID(t *testing.T) {
	t.Run("accepts generated ids", func(t *testing.T) {
		generated := NewCertificateID()
		parsed, err := ParseCertificateID(generated.String())
		require.NoError(t, err)
		assert.Equal(t, generated, parsed)
		_, err = uuid.Parse(parsed.String())
		assert.NoError(t, err)
	})

	t.Run("accepts migrated document keys", func(t *testing.T) {
		parsed, err := ParseCertificateID("  8fQk2LmZx1aB9cD0eF3g ")
		require.NoError(t, err)
		assert.Equal(t, CertificateID("8fQk2LmZx1aB9cD0eF3g"), parsed)
	})
}

// Certificate ids arrive as URL path segments on admin routes.
func TestParseCertificateID_RejectsHostileInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"path traversal", "../../../etc/passwd"},
		{"null byte", "abc\x00def"},
		{"embedded space", "abc def"},
		{"zero-width space", "abc\u200Bdef"},
		{"invalid utf8", string([]byte{0xff, 0xfe, 0xfd})},
		{"oversized", strings.Repeat("a", maxCertificateIDLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCertificateID(tt.input)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestIDsReportNil(t *testing.T) {
	assert.True(t, CertificateID("").IsNil())
	assert.True(t, StudentID("").IsNil())
	assert.True(t, CourseID("").IsNil())
	assert.False(t, StudentID("stu-0001").IsNil())
	assert.Equal(t, "electrical-basics", CourseID("electrical-basics").String())
}

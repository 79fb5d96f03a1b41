package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "trainingcenter/pkg/domain-errors"
)

// CertificateID is the store-assigned opaque identifier of a certificate record.
type CertificateID string

// StudentID references a student owned by the external student directory.
// Empty on legacy records.
type StudentID string

// CourseID references a course owned by the external course catalogue.
// Empty on legacy records.
type CourseID string

const maxCertificateIDLength = 128

// NewCertificateID returns a fresh opaque identifier.
func NewCertificateID() CertificateID {
	return CertificateID(uuid.NewString())
}

// ParseCertificateID trims and validates a caller-supplied certificate id.
// Opaque ids are not required to be UUIDs; records migrated from the previous
// document store keep their original keys.
func ParseCertificateID(s string) (CertificateID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "certificate id is required")
	}
	if len(s) > maxCertificateIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "certificate id is too long")
	}
	if !utf8.ValidString(s) || strings.IndexFunc(s, invalidIDRune) >= 0 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "certificate id contains invalid characters")
	}
	return CertificateID(s), nil
}

func (id CertificateID) String() string { return string(id) }
func (id StudentID) String() string     { return string(id) }
func (id CourseID) String() string      { return string(id) }

func (id CertificateID) IsNil() bool { return id == "" }
func (id StudentID) IsNil() bool     { return id == "" }
func (id CourseID) IsNil() bool      { return id == "" }

func invalidIDRune(r rune) bool {
	return r == '/' || unicode.IsSpace(r) || !unicode.IsPrint(r)
}

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "trainingcenter/pkg/domain-errors"
)

func TestApplyLeavesIdentityUntouched(t *testing.T) {
	issued := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	c := &Certificate{
		ID:        "abc",
		DisplayID: "CERT-2024-0007",
		StudentID: "S",
		CourseID:  "C",
		Version:   3,
		CreatedAt: issued,
	}

	c.Apply(MutableFields{
		Marks:       Marks{{Subject: "Safety", Obtained: 80, Total: 100}},
		StudentName: "Asha",
		CourseName:  "Electrician",
		IssueDate:   issued.AddDate(0, 1, 0),
		Status:      StatusPending,
		UpdatedAt:   issued.Add(time.Hour),
	})

	assert.Equal(t, "CERT-2024-0007", c.DisplayID)
	assert.Equal(t, 3, c.Version)
	assert.Equal(t, issued, c.CreatedAt)
	assert.Equal(t, StatusPending, c.Status)
	assert.Equal(t, "Asha", c.StudentName)
}

func TestCloneDoesNotAliasMarks(t *testing.T) {
	c := &Certificate{Marks: Marks{{Subject: "Safety", Obtained: 1, Total: 2}}}
	cp := c.Clone()
	cp.Marks[0].Obtained = 2

	assert.Equal(t, float64(1), c.Marks[0].Obtained)
}

func TestPairKey(t *testing.T) {
	t.Run("keyed by references", func(t *testing.T) {
		a := &Certificate{StudentID: "S1", CourseID: "C1", StudentName: "x"}
		b := &Certificate{StudentID: "S1", CourseID: "C1", StudentName: "y"}
		assert.Equal(t, a.Pair(), b.Pair())
		assert.False(t, a.Pair().IsLegacy())
	})

	t.Run("legacy records keyed by snapshots", func(t *testing.T) {
		a := &Certificate{StudentName: "Ravi", CourseName: "Welding"}
		b := &Certificate{StudentName: "Ravi", CourseName: "Plumbing"}
		assert.True(t, a.Pair().IsLegacy())
		assert.NotEqual(t, a.Pair(), b.Pair())
		assert.Equal(t, "legacy:Ravi|Welding", a.Pair().String())
	})
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("")
	require.NoError(t, err)
	assert.Equal(t, StatusIssued, s)

	s, err = ParseStatus(" pending ")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, s)

	_, err = ParseStatus("revoked")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestIssueRequestValidate(t *testing.T) {
	base := func() IssueRequest {
		return IssueRequest{StudentID: " S ", CourseID: "C", IssueDate: time.Now()}
	}

	t.Run("normalizes and accepts", func(t *testing.T) {
		req := base()
		req.Normalize()
		require.NoError(t, req.Validate())
		assert.Equal(t, StatusIssued, req.Status)
		assert.Equal(t, "S", req.StudentID.String())
	})

	t.Run("requires course", func(t *testing.T) {
		req := base()
		req.CourseID = ""
		req.Normalize()
		assert.True(t, dErrors.HasCode(req.Validate(), dErrors.CodeValidation))
	})

	t.Run("requires issue date", func(t *testing.T) {
		req := base()
		req.IssueDate = time.Time{}
		req.Normalize()
		assert.True(t, dErrors.HasCode(req.Validate(), dErrors.CodeValidation))
	})
}

func TestQueryMatches(t *testing.T) {
	c := &Certificate{DisplayID: "CERT-2024-0001", StudentID: "S", CourseID: "C", StudentName: "Asha"}

	assert.True(t, All().Matches(c))
	assert.True(t, ByField(FieldDisplayID, "CERT-2024-0001").Matches(c))
	assert.True(t, ByField(FieldStudentName, "Asha").Matches(c))
	assert.False(t, ByField(FieldCourseID, "other").Matches(c))
	assert.False(t, ByField(Field("bogus"), "C").Matches(c))
}

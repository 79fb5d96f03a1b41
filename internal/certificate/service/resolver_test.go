package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"trainingcenter/internal/certificate/metrics"
	"trainingcenter/internal/certificate/models"
	"trainingcenter/internal/certificate/service/mocks"
	"trainingcenter/internal/certificate/store"
	"trainingcenter/internal/directory"
	id "trainingcenter/pkg/domain"
	dErrors "trainingcenter/pkg/domain-errors"
	"trainingcenter/pkg/platform/sentinel"
)

type ResolverSuite struct {
	suite.Suite
	ctx       context.Context
	store     *store.InMemory
	directory *directory.InMemory
	metrics   *metrics.Metrics
	resolver  *Resolver
	issued    *models.Certificate
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
	s.directory = directory.NewInMemory()
	s.metrics = metrics.New(prometheus.NewRegistry())

	s.issued = &models.Certificate{
		DisplayID:        "CERT-2024-0007",
		StudentID:        "S",
		CourseID:         "C",
		StudentName:      "Ada Lovelace",
		CourseName:       "Electrical Basics",
		CourseDuration:   "6 weeks",
		InstructorName:   "Grace Hopper",
		Marks:            models.Marks{{Subject: "Safety", Obtained: 90, Total: 100}},
		IssueDate:        issueDay,
		IssueDateDisplay: "March 14, 2024",
		Status:           models.StatusIssued,
		Version:          1,
	}
	certID, err := s.store.Create(s.ctx, s.issued)
	s.Require().NoError(err)
	s.issued.ID = certID

	s.resolver = NewResolver(s.store, s.directory, s.directory,
		WithLogger(discardLogger()),
		WithMetrics(s.metrics),
	)
}

func (s *ResolverSuite) TestResolveByOpaqueID() {
	view, err := s.resolver.Resolve(s.ctx, s.issued.ID.String())
	s.Require().NoError(err)
	s.Equal("CERT-2024-0007", view.CertificateID)
	s.Equal(s.issued.ID.String(), view.ID)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.Lookups.WithLabelValues("id")))
}

func (s *ResolverSuite) TestResolveFallsBackToDisplayID() {
	view, err := s.resolver.Resolve(s.ctx, " CERT-2024-0007 ")
	s.Require().NoError(err)
	s.Equal(s.issued.ID.String(), view.ID)
	s.Equal([]models.MarkRow{{Subject: "Safety", Score: "90 / 100"}}, view.Marks)
	s.Equal("March 14, 2024", view.IssueDate)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.Lookups.WithLabelValues("display_id")))
}

func (s *ResolverSuite) TestResolveMiss() {
	_, err := s.resolver.Resolve(s.ctx, "abc")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Equal(1.0, promtest.ToFloat64(s.metrics.Lookups.WithLabelValues("not_found")))

	_, err = s.resolver.Resolve(s.ctx, "   ")
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *ResolverSuite) TestSnapshotsWhenEntitiesAreGone() {
	view, err := s.resolver.Resolve(s.ctx, "CERT-2024-0007")
	s.Require().NoError(err)

	s.Equal("Ada Lovelace", view.StudentName)
	s.Equal("Electrical Basics", view.CourseName)
	s.Equal("6 weeks", view.CourseDuration)
	s.Equal("Grace Hopper", view.InstructorName)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.EnrichmentFailures.WithLabelValues("student")))
	s.Equal(1.0, promtest.ToFloat64(s.metrics.EnrichmentFailures.WithLabelValues("course")))
}

func (s *ResolverSuite) TestLiveEntitiesWin() {
	s.Require().NoError(s.directory.PutStudent(s.ctx, directory.Student{ID: "S", DisplayName: "Augusta Ada King"}))
	s.Require().NoError(s.directory.PutCourse(s.ctx, directory.Course{
		ID:         "C",
		Name:       "Electrical Installation",
		Duration:   "8 weeks",
		Instructor: "Katherine Johnson",
	}))

	view, err := s.resolver.Resolve(s.ctx, "CERT-2024-0007")
	s.Require().NoError(err)
	s.Equal("Augusta Ada King", view.StudentName)
	s.Equal("Electrical Installation", view.CourseName)
	s.Equal("8 weeks", view.CourseDuration)
	s.Equal("Katherine Johnson", view.InstructorName)
}

func (s *ResolverSuite) TestLiveCourseWithBlankFieldsKeepsSnapshots() {
	s.Require().NoError(s.directory.PutCourse(s.ctx, directory.Course{ID: "C", Name: "Electrical Installation"}))

	view, err := s.resolver.Resolve(s.ctx, "CERT-2024-0007")
	s.Require().NoError(err)
	s.Equal("Electrical Installation", view.CourseName)
	s.Equal("6 weeks", view.CourseDuration)
	s.Equal("Grace Hopper", view.InstructorName)
}

func (s *ResolverSuite) TestResolveByNamesReturnsLatest() {
	for v := 1; v <= 2; v++ {
		_, err := s.store.Create(s.ctx, &models.Certificate{
			DisplayID:   fmt.Sprintf("CERT-2021-%04d", v),
			StudentName: "Grace Hopper",
			CourseName:  "Old Wiring Course",
			IssueDate:   time.Date(2021, 1, v, 0, 0, 0, 0, time.UTC),
			Status:      models.StatusIssued,
			Version:     v,
		})
		s.Require().NoError(err)
	}

	view, err := s.resolver.ResolveByNames(s.ctx, "Grace Hopper", "Old Wiring Course")
	s.Require().NoError(err)
	s.Equal(2, view.Version)
	s.Equal("CERT-2021-0002", view.CertificateID)
	s.Equal("January 2, 2021", view.IssueDate)

	view, err = s.resolver.ResolveByNames(s.ctx, " Grace Hopper ", "\tOld Wiring Course ")
	s.Require().NoError(err)
	s.Equal(2, view.Version)

	for _, names := range [][2]string{
		{"grace hopper", "Old Wiring Course"},
		{"Grace Hopper", "old wiring course"},
		{"Grace  Hopper", "Old Wiring Course"},
		{"Grace Hopper", "Old  Wiring Course"},
	} {
		_, err = s.resolver.ResolveByNames(s.ctx, names[0], names[1])
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound), "%q / %q", names[0], names[1])
	}

	_, err = s.resolver.ResolveByNames(s.ctx, "Grace Hopper", "Another Course")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.resolver.ResolveByNames(s.ctx, "", "Old Wiring Course")
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestResolverStoreFailures(t *testing.T) {
	t.Run("id lookup failure is not a miss", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		st := mocks.NewMockStore(ctrl)
		boom := errors.New("store offline")
		st.EXPECT().FindByID(gomock.Any(), id.CertificateID("abc")).Return(nil, boom)

		r := NewResolver(st, mocks.NewMockStudentReader(ctrl), mocks.NewMockCourseReader(ctrl), WithLogger(discardLogger()))
		_, err := r.Resolve(context.Background(), "abc")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("display id lookup failure is not a miss", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		st := mocks.NewMockStore(ctrl)
		st.EXPECT().FindByID(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)
		st.EXPECT().FindByField(gomock.Any(), models.FieldDisplayID, "CERT-2024-0007").Return(nil, sentinel.ErrUnavailable)

		r := NewResolver(st, mocks.NewMockStudentReader(ctrl), mocks.NewMockCourseReader(ctrl), WithLogger(discardLogger()))
		_, err := r.Resolve(context.Background(), "CERT-2024-0007")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("reader errors fall back to snapshots", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		st := mocks.NewMockStore(ctrl)
		students := mocks.NewMockStudentReader(ctrl)
		courses := mocks.NewMockCourseReader(ctrl)
		st.EXPECT().FindByID(gomock.Any(), id.CertificateID("cert-1")).Return(&models.Certificate{
			ID:          "cert-1",
			DisplayID:   "CERT-2024-0001",
			StudentID:   "S",
			CourseID:    "C",
			StudentName: "Snapshot Student",
			CourseName:  "Snapshot Course",
			Version:     1,
		}, nil)
		students.EXPECT().GetStudent(gomock.Any(), id.StudentID("S")).Return(nil, errors.New("timeout"))
		courses.EXPECT().GetCourse(gomock.Any(), id.CourseID("C")).Return(nil, errors.New("timeout"))

		r := NewResolver(st, students, courses, WithLogger(discardLogger()))
		view, err := r.Resolve(context.Background(), "cert-1")
		require.NoError(t, err)
		assert.Equal(t, "Snapshot Student", view.StudentName)
		assert.Equal(t, "Snapshot Course", view.CourseName)
		assert.Empty(t, view.Marks)
	})
}

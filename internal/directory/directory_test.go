package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"trainingcenter/internal/platform/database"
	"trainingcenter/pkg/platform/sentinel"
)

type store interface {
	Reader
	Writer
}

type DirectorySuite struct {
	suite.Suite
	newStore func(t *testing.T) store
	store    store
	ctx      context.Context
}

func TestInMemoryDirectorySuite(t *testing.T) {
	suite.Run(t, &DirectorySuite{newStore: func(*testing.T) store { return NewInMemory() }})
}

func TestSQLiteDirectorySuite(t *testing.T) {
	suite.Run(t, &DirectorySuite{newStore: func(t *testing.T) store {
		ctx := context.Background()
		db, err := database.Open(ctx, database.DriverSQLite, ":memory:", database.Options{})
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })
		if err := database.Migrate(ctx, db, Schema(database.DialectSQLite)...); err != nil {
			t.Fatalf("migrate: %v", err)
		}
		return NewSQL(db, database.DialectSQLite)
	}})
}

func (s *DirectorySuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.newStore(s.T())
	s.Require().NoError(SeedDemo(s.ctx, s.store))
}

func (s *DirectorySuite) TestStudents() {
	s.Run("finds a seeded student", func() {
		st, err := s.store.GetStudent(s.ctx, "stu-0001")
		s.Require().NoError(err)
		s.Equal("Ada Lovelace", st.DisplayName)
	})

	s.Run("upsert renames", func() {
		s.Require().NoError(s.store.PutStudent(s.ctx, Student{ID: "stu-0001", DisplayName: "Ada King"}))
		st, err := s.store.GetStudent(s.ctx, "stu-0001")
		s.Require().NoError(err)
		s.Equal("Ada King", st.DisplayName)
	})

	s.Run("unknown student", func() {
		_, err := s.store.GetStudent(s.ctx, "nobody")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *DirectorySuite) TestCourses() {
	s.Run("subjects keep course order", func() {
		c, err := s.store.GetCourse(s.ctx, "solar-pv")
		s.Require().NoError(err)
		s.Equal("Solar PV Installation", c.Name)
		s.Equal("4 weeks", c.Duration)
		s.Equal([]string{"Theory", "Mounting", "Commissioning"}, c.SubjectNames())
	})

	s.Run("upsert replaces the subject list", func() {
		s.Require().NoError(s.store.PutCourse(s.ctx, Course{
			ID:         "solar-pv",
			Name:       "Solar PV Installation",
			Instructor: "Marie Curie",
			Subjects:   []Subject{{Name: "Mounting"}},
		}))
		c, err := s.store.GetCourse(s.ctx, "solar-pv")
		s.Require().NoError(err)
		s.Equal("Marie Curie", c.Instructor)
		s.Equal([]string{"Mounting"}, c.SubjectNames())
	})

	s.Run("unknown course", func() {
		_, err := s.store.GetCourse(s.ctx, "nope")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

package directory

import (
	"context"
	"sync"

	id "trainingcenter/pkg/domain"
	"trainingcenter/pkg/platform/sentinel"
)

// InMemory holds students and courses in process memory.
type InMemory struct {
	mu       sync.RWMutex
	students map[id.StudentID]Student
	courses  map[id.CourseID]Course
}

func NewInMemory() *InMemory {
	return &InMemory{
		students: make(map[id.StudentID]Student),
		courses:  make(map[id.CourseID]Course),
	}
}

func (s *InMemory) PutStudent(_ context.Context, st Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[st.ID] = st
	return nil
}

func (s *InMemory) PutCourse(_ context.Context, c Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Subjects = append([]Subject(nil), c.Subjects...)
	s.courses[c.ID] = c
	return nil
}

func (s *InMemory) GetStudent(_ context.Context, studentID id.StudentID) (*Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.students[studentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &st, nil
}

func (s *InMemory) GetCourse(_ context.Context, courseID id.CourseID) (*Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[courseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c.Subjects = append([]Subject(nil), c.Subjects...)
	return &c, nil
}

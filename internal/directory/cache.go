package directory

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	id "trainingcenter/pkg/domain"
)

// Reader is the read side of the directory.
type Reader interface {
	GetStudent(ctx context.Context, studentID id.StudentID) (*Student, error)
	GetCourse(ctx context.Context, courseID id.CourseID) (*Course, error)
}

// Cached fronts a Reader with a short-lived cache. Concurrent misses for the
// same key share one backend read. Errors are not cached.
type Cached struct {
	next  Reader
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu       sync.Mutex
	students map[id.StudentID]cacheEntry[Student]
	courses  map[id.CourseID]cacheEntry[Course]
}

type cacheEntry[T any] struct {
	value     T
	expiresAt time.Time
}

type CacheOption func(*Cached)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cached) {
		c.now = now
	}
}

func NewCached(next Reader, ttl time.Duration, opts ...CacheOption) *Cached {
	c := &Cached{
		next:     next,
		ttl:      ttl,
		now:      time.Now,
		students: make(map[id.StudentID]cacheEntry[Student]),
		courses:  make(map[id.CourseID]cacheEntry[Course]),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cached) GetStudent(ctx context.Context, studentID id.StudentID) (*Student, error) {
	c.mu.Lock()
	if e, ok := c.students[studentID]; ok && c.now().Before(e.expiresAt) {
		c.mu.Unlock()
		st := e.value
		return &st, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do("student:"+studentID.String(), func() (any, error) {
		st, err := c.next.GetStudent(ctx, studentID)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.students[studentID] = cacheEntry[Student]{value: *st, expiresAt: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return *st, nil
	})
	if err != nil {
		return nil, err
	}
	st := v.(Student)
	return &st, nil
}

func (c *Cached) GetCourse(ctx context.Context, courseID id.CourseID) (*Course, error) {
	c.mu.Lock()
	if e, ok := c.courses[courseID]; ok && c.now().Before(e.expiresAt) {
		c.mu.Unlock()
		return cloneCourse(e.value), nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do("course:"+courseID.String(), func() (any, error) {
		course, err := c.next.GetCourse(ctx, courseID)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.courses[courseID] = cacheEntry[Course]{value: *cloneCourse(*course), expiresAt: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return *course, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneCourse(v.(Course)), nil
}

// Invalidate drops every cached entry.
func (c *Cached) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.students)
	clear(c.courses)
}

func cloneCourse(c Course) *Course {
	c.Subjects = append([]Subject(nil), c.Subjects...)
	return &c
}

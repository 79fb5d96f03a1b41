package directory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "trainingcenter/pkg/domain"
)

type countingReader struct {
	*InMemory
	studentReads atomic.Int32
	courseReads  atomic.Int32
	gate         chan struct{}
	err          error
}

func (r *countingReader) GetStudent(ctx context.Context, studentID id.StudentID) (*Student, error) {
	r.studentReads.Add(1)
	if r.gate != nil {
		<-r.gate
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.InMemory.GetStudent(ctx, studentID)
}

func (r *countingReader) GetCourse(ctx context.Context, courseID id.CourseID) (*Course, error) {
	r.courseReads.Add(1)
	return r.InMemory.GetCourse(ctx, courseID)
}

func newCountingReader(t *testing.T) *countingReader {
	mem := NewInMemory()
	require.NoError(t, SeedDemo(context.Background(), mem))
	return &countingReader{InMemory: mem}
}

func TestCached(t *testing.T) {
	ctx := context.Background()

	t.Run("serves repeat reads from cache until expiry", func(t *testing.T) {
		backend := newCountingReader(t)
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		c := NewCached(backend, time.Minute, WithClock(func() time.Time { return now }))

		for range 3 {
			st, err := c.GetStudent(ctx, "stu-0001")
			require.NoError(t, err)
			assert.Equal(t, "Ada Lovelace", st.DisplayName)
		}
		assert.Equal(t, int32(1), backend.studentReads.Load())

		now = now.Add(2 * time.Minute)
		_, err := c.GetStudent(ctx, "stu-0001")
		require.NoError(t, err)
		assert.Equal(t, int32(2), backend.studentReads.Load())
	})

	t.Run("collapses concurrent misses", func(t *testing.T) {
		backend := newCountingReader(t)
		backend.gate = make(chan struct{})
		c := NewCached(backend, time.Minute)

		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = c.GetStudent(ctx, "stu-0002")
			}()
		}
		require.Eventually(t, func() bool { return backend.studentReads.Load() >= 1 }, time.Second, time.Millisecond)
		time.Sleep(10 * time.Millisecond)
		close(backend.gate)
		wg.Wait()

		assert.Less(t, backend.studentReads.Load(), int32(10))
	})

	t.Run("does not cache errors", func(t *testing.T) {
		backend := newCountingReader(t)
		backend.err = errors.New("db down")
		c := NewCached(backend, time.Minute)

		_, err := c.GetStudent(ctx, "stu-0001")
		require.Error(t, err)
		backend.err = nil
		st, err := c.GetStudent(ctx, "stu-0001")
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", st.DisplayName)
	})

	t.Run("course copies are independent", func(t *testing.T) {
		backend := newCountingReader(t)
		c := NewCached(backend, time.Minute)

		first, err := c.GetCourse(ctx, "electrical-basics")
		require.NoError(t, err)
		first.Subjects[0].Name = "mutated"

		second, err := c.GetCourse(ctx, "electrical-basics")
		require.NoError(t, err)
		assert.Equal(t, "Safety", second.Subjects[0].Name)
		assert.Equal(t, int32(1), backend.courseReads.Load())

		c.Invalidate()
		_, err = c.GetCourse(ctx, "electrical-basics")
		require.NoError(t, err)
		assert.Equal(t, int32(2), backend.courseReads.Load())
	})
}

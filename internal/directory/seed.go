package directory

import (
	"context"
	"fmt"
)

// Writer is implemented by the directory stores.
type Writer interface {
	PutStudent(ctx context.Context, st Student) error
	PutCourse(ctx context.Context, c Course) error
}

// SeedDemo loads a small set of students and courses for local development.
func SeedDemo(ctx context.Context, w Writer) error {
	courses := []Course{
		{
			ID:         "electrical-basics",
			Name:       "Electrical Installation Basics",
			Duration:   "6 weeks",
			Instructor: "Grace Hopper",
			Subjects:   []Subject{{Name: "Safety"}, {Name: "Wiring"}},
		},
		{
			ID:         "solar-pv",
			Name:       "Solar PV Installation",
			Duration:   "4 weeks",
			Instructor: "Nikola Tesla",
			Subjects:   []Subject{{Name: "Theory"}, {Name: "Mounting"}, {Name: "Commissioning"}},
		},
	}
	students := []Student{
		{ID: "stu-0001", DisplayName: "Ada Lovelace"},
		{ID: "stu-0002", DisplayName: "Alan Turing"},
	}
	for _, c := range courses {
		if err := w.PutCourse(ctx, c); err != nil {
			return fmt.Errorf("seed course %s: %w", c.ID, err)
		}
	}
	for _, st := range students {
		if err := w.PutStudent(ctx, st); err != nil {
			return fmt.Errorf("seed student %s: %w", st.ID, err)
		}
	}
	return nil
}

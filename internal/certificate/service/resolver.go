package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"trainingcenter/internal/certificate/marks"
	"trainingcenter/internal/certificate/metrics"
	"trainingcenter/internal/certificate/models"
	"trainingcenter/internal/directory"
	id "trainingcenter/pkg/domain"
	dErrors "trainingcenter/pkg/domain-errors"
	"trainingcenter/pkg/platform/sentinel"
	"trainingcenter/pkg/requestcontext"
)

const (
	lookupByID        = "id"
	lookupByDisplayID = "display_id"
	lookupByNames     = "names"
	lookupNotFound    = "not_found"
)

// Resolver serves public certificate lookups.
type Resolver struct {
	store    Store
	students StudentReader
	courses  CourseReader
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

func NewResolver(store Store, students StudentReader, courses CourseReader, opts ...Option) *Resolver {
	o := newOptions(opts)
	return &Resolver{
		store:    store,
		students: students,
		courses:  courses,
		logger:   o.logger,
		metrics:  o.metrics,
		tracer:   o.tracer,
	}
}

// Resolve finds a certificate by opaque id, then by display id. The first
// match wins. Store failures are surfaced as unavailable, never as a miss.
func (r *Resolver) Resolve(ctx context.Context, token string) (*models.CertificateView, error) {
	start := time.Now()
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "certificate token is required")
	}

	ctx, span := r.tracer.Start(ctx, "certificate.Resolve", trace.WithAttributes(
		attribute.String("token", token),
	))
	defer span.End()
	defer r.observe(start)

	record, err := r.store.FindByID(ctx, id.CertificateID(token))
	switch {
	case err == nil:
		span.SetAttributes(attribute.String("matched_by", lookupByID))
		r.count(lookupByID)
		return r.enrich(ctx, record), nil
	case !errors.Is(err, sentinel.ErrNotFound):
		failSpan(span, err, "lookup by id failed")
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to look up certificate")
	}

	matches, err := r.store.FindByField(ctx, models.FieldDisplayID, token)
	if err != nil {
		failSpan(span, err, "lookup by display id failed")
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to look up certificate")
	}
	if len(matches) > 0 {
		span.SetAttributes(attribute.String("matched_by", lookupByDisplayID))
		r.count(lookupByDisplayID)
		return r.enrich(ctx, matches[0]), nil
	}

	r.count(lookupNotFound)
	return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
}

// ResolveByNames finds the latest version whose name snapshots match. It
// serves records issued before student and course references existed.
// Both names must equal the stored snapshots exactly once surrounding
// whitespace is trimmed.
func (r *Resolver) ResolveByNames(ctx context.Context, studentName, courseName string) (*models.CertificateView, error) {
	start := time.Now()
	studentName = strings.TrimSpace(studentName)
	courseName = strings.TrimSpace(courseName)
	if studentName == "" || courseName == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "student and course names are required")
	}

	ctx, span := r.tracer.Start(ctx, "certificate.ResolveByNames")
	defer span.End()
	defer r.observe(start)

	records, err := r.store.FindByField(ctx, models.FieldStudentName, studentName)
	if err != nil {
		failSpan(span, err, "lookup by names failed")
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to look up certificate")
	}
	var latest *models.Certificate
	for _, rec := range records {
		if rec.CourseName != courseName {
			continue
		}
		if latest == nil || rec.Version > latest.Version {
			latest = rec
		}
	}
	if latest == nil {
		r.count(lookupNotFound)
		return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
	}
	r.count(lookupByNames)
	return r.enrich(ctx, latest), nil
}

// enrich prefers live student and course data over the record's snapshots.
// Reader failures fall back to the snapshot and are never returned.
func (r *Resolver) enrich(ctx context.Context, rec *models.Certificate) *models.CertificateView {
	view := &models.CertificateView{
		ID:             rec.ID.String(),
		CertificateID:  rec.DisplayID,
		StudentName:    rec.StudentName,
		CourseName:     rec.CourseName,
		CourseDuration: rec.CourseDuration,
		InstructorName: rec.InstructorName,
		IssueDate:      rec.IssueDateDisplay,
		Status:         rec.Status,
		Version:        rec.Version,
		Marks:          marks.Decode(rec.Marks),
	}
	if view.IssueDate == "" && !rec.IssueDate.IsZero() {
		view.IssueDate = models.FormatIssueDate(rec.IssueDate)
	}

	var (
		student *directory.Student
		course  *directory.Course
	)
	// Failures are absorbed per goroutine, so Wait never returns an error.
	var g errgroup.Group
	if !rec.StudentID.IsNil() {
		g.Go(func() error {
			s, err := r.students.GetStudent(ctx, rec.StudentID)
			if err != nil {
				r.enrichmentFailed(ctx, "student", rec, err)
				return nil
			}
			student = s
			return nil
		})
	}
	if !rec.CourseID.IsNil() {
		g.Go(func() error {
			c, err := r.courses.GetCourse(ctx, rec.CourseID)
			if err != nil {
				r.enrichmentFailed(ctx, "course", rec, err)
				return nil
			}
			course = c
			return nil
		})
	}
	_ = g.Wait()

	if student != nil {
		view.StudentName = preferLive(student.DisplayName, view.StudentName)
	}
	if course != nil {
		view.CourseName = preferLive(course.Name, view.CourseName)
		view.CourseDuration = preferLive(course.Duration, view.CourseDuration)
		view.InstructorName = preferLive(course.Instructor, view.InstructorName)
	}
	return view
}

func (r *Resolver) enrichmentFailed(ctx context.Context, entity string, rec *models.Certificate, err error) {
	if r.metrics != nil {
		r.metrics.IncrementEnrichmentFailure(entity)
	}
	r.logger.DebugContext(ctx, "enrichment failed, using snapshot",
		"request_id", requestcontext.RequestID(ctx),
		"entity", entity,
		"certificate_id", rec.ID,
		"error", err,
	)
}

func (r *Resolver) count(result string) {
	if r.metrics != nil {
		r.metrics.IncrementLookup(result)
	}
}

func (r *Resolver) observe(start time.Time) {
	if r.metrics != nil {
		r.metrics.ObserveLookup(start)
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"trainingcenter/internal/certificate/displayid"
	"trainingcenter/internal/certificate/marks"
	"trainingcenter/internal/certificate/metrics"
	"trainingcenter/internal/certificate/models"
	"trainingcenter/internal/certificate/notify"
	"trainingcenter/internal/certificate/versioning"
	"trainingcenter/internal/directory"
	"trainingcenter/internal/platform/lock"
	id "trainingcenter/pkg/domain"
	dErrors "trainingcenter/pkg/domain-errors"
	audit "trainingcenter/pkg/platform/audit"
	"trainingcenter/pkg/platform/sentinel"
	"trainingcenter/pkg/requestcontext"
)

// Composer builds new certificate records and edits existing ones.
type Composer struct {
	store    Store
	students StudentReader
	courses  CourseReader
	notifier Notifier
	locker   Locker
	auditor  Auditor
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

func NewComposer(store Store, students StudentReader, courses CourseReader, opts ...Option) *Composer {
	o := newOptions(opts)
	return &Composer{
		store:    store,
		students: students,
		courses:  courses,
		notifier: o.notifier,
		locker:   o.locker,
		auditor:  o.auditor,
		logger:   o.logger,
		metrics:  o.metrics,
		tracer:   o.tracer,
	}
}

// Create composes and persists the next version of a certificate for the
// request's student and course. A duplicate warning is returned alongside the
// record when the pair already held certificates; it never blocks creation.
func (c *Composer) Create(ctx context.Context, req models.IssueRequest) (*models.IssueResult, error) {
	start := time.Now()
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "certificate.Create", trace.WithAttributes(
		attribute.String("student_id", req.StudentID.String()),
		attribute.String("course_id", req.CourseID.String()),
	))
	defer span.End()

	course, err := c.courses.GetCourse(ctx, req.CourseID)
	if err != nil {
		failSpan(span, err, "course lookup failed")
		return nil, readerError(err, "course not found", "failed to load course")
	}
	student, err := c.students.GetStudent(ctx, req.StudentID)
	if err != nil {
		failSpan(span, err, "student lookup failed")
		return nil, readerError(err, "student not found", "failed to load student")
	}

	encoded, err := marks.Encode(course.SubjectNames(), req.Scores)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	year := now.Year()

	release, err := c.acquire(ctx, pairLockKey(req.StudentID, req.CourseID), displayIDLockKey(year))
	if err != nil {
		failSpan(span, err, "lock not acquired")
		return nil, err
	}
	defer release()

	existing, err := c.store.FindByField(ctx, models.FieldStudentID, req.StudentID.String())
	if err != nil {
		failSpan(span, err, "pair query failed")
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read existing certificates")
	}
	forPair := versioning.ForPair(existing, models.PairKey{StudentID: req.StudentID, CourseID: req.CourseID})
	duplicate := versioning.DetectDuplicate(forPair)

	all, err := c.store.ListAll(ctx)
	if err != nil {
		failSpan(span, err, "display id query failed")
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read existing display ids")
	}
	ids := make([]string, 0, len(all))
	for _, r := range all {
		ids = append(ids, r.DisplayID)
	}

	instructor := req.InstructorName
	if instructor == "" {
		instructor = course.Instructor
	}
	record := &models.Certificate{
		DisplayID:        displayid.Next(ids, year),
		StudentID:        req.StudentID,
		CourseID:         req.CourseID,
		StudentName:      student.DisplayName,
		CourseName:       course.Name,
		CourseDuration:   course.Duration,
		InstructorName:   instructor,
		Marks:            encoded,
		IssueDate:        req.IssueDate,
		IssueDateDisplay: models.FormatIssueDate(req.IssueDate),
		Status:           req.Status,
		Version:          versioning.NextVersion(forPair),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	certID, err := c.store.Create(ctx, record)
	if err != nil {
		failSpan(span, err, "create failed")
		if errors.Is(err, sentinel.ErrConflict) {
			c.incrementStoreConflict()
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "certificate version or display id already taken")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to create certificate")
	}
	record.ID = certID
	release()

	if c.notifier != nil {
		c.notifier.Notify(ctx, notify.Issued(record))
	}
	c.audit(ctx, audit.Event{
		Action:        audit.ActionCertificateIssued,
		CertificateID: certID,
		DisplayID:     record.DisplayID,
		Version:       record.Version,
	})

	span.SetAttributes(
		attribute.String("certificate_id", certID.String()),
		attribute.String("display_id", record.DisplayID),
		attribute.Int("version", record.Version),
	)
	if c.metrics != nil {
		c.metrics.IncrementIssued(string(record.Status))
		c.metrics.ObserveCompose("create", start)
		if duplicate != nil {
			c.metrics.IncrementDuplicateWarning()
		}
	}
	if duplicate != nil {
		c.logger.InfoContext(ctx, "certificate reissued for existing pair",
			"request_id", requestcontext.RequestID(ctx),
			"student_id", req.StudentID,
			"course_id", req.CourseID,
			"existing_count", duplicate.ExistingCount,
		)
	}
	c.logger.InfoContext(ctx, "certificate issued",
		"request_id", requestcontext.RequestID(ctx),
		"certificate_id", certID,
		"display_id", record.DisplayID,
		"version", record.Version,
		"student_id", req.StudentID,
		"course_id", req.CourseID,
	)

	return &models.IssueResult{Certificate: record, Duplicate: duplicate}, nil
}

// CheckDuplicate reports the warning a create for the pair would raise.
func (c *Composer) CheckDuplicate(ctx context.Context, studentID id.StudentID, courseID id.CourseID) (*models.DuplicateInfo, error) {
	if studentID.IsNil() || courseID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "student_id and course_id are required")
	}
	existing, err := c.store.FindByField(ctx, models.FieldStudentID, studentID.String())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read existing certificates")
	}
	return versioning.DetectDuplicate(versioning.ForPair(existing, models.PairKey{StudentID: studentID, CourseID: courseID})), nil
}

// Update rewrites the mutable fields of an existing record. Version and
// display id are never part of the write.
func (c *Composer) Update(ctx context.Context, certID id.CertificateID, req models.UpdateRequest) (*models.Certificate, error) {
	start := time.Now()
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "certificate.Update", trace.WithAttributes(
		attribute.String("certificate_id", certID.String()),
	))
	defer span.End()

	existing, err := c.store.FindByID(ctx, certID)
	if err != nil {
		failSpan(span, err, "certificate lookup failed")
		return nil, storeError(err, "certificate not found", "failed to load certificate")
	}

	fields := models.MutableFields{
		StudentName:    existing.StudentName,
		CourseName:     existing.CourseName,
		CourseDuration: existing.CourseDuration,
		InstructorName: existing.InstructorName,
	}
	subjects := existing.Marks.Subjects()
	if course := c.liveCourse(ctx, existing.CourseID); course != nil {
		subjects = course.SubjectNames()
		fields.CourseName = preferLive(course.Name, fields.CourseName)
		fields.CourseDuration = preferLive(course.Duration, fields.CourseDuration)
		fields.InstructorName = preferLive(course.Instructor, fields.InstructorName)
	}
	if student := c.liveStudent(ctx, existing.StudentID); student != nil {
		fields.StudentName = preferLive(student.DisplayName, fields.StudentName)
	}
	if req.InstructorName != "" {
		fields.InstructorName = req.InstructorName
	}

	encoded, err := marks.Encode(subjects, req.Scores)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	fields.Marks = encoded
	fields.IssueDate = req.IssueDate
	fields.IssueDateDisplay = models.FormatIssueDate(req.IssueDate)
	fields.Status = req.Status
	fields.UpdatedAt = now

	if err := c.store.Update(ctx, certID, fields); err != nil {
		failSpan(span, err, "update failed")
		return nil, storeError(err, "certificate not found", "failed to update certificate")
	}

	updated := existing.Clone()
	updated.Apply(fields)
	c.audit(ctx, audit.Event{
		Action:        audit.ActionCertificateUpdated,
		CertificateID: certID,
		DisplayID:     updated.DisplayID,
		Version:       updated.Version,
	})

	if c.metrics != nil {
		c.metrics.IncrementUpdated()
		c.metrics.ObserveCompose("update", start)
	}
	c.logger.InfoContext(ctx, "certificate updated",
		"request_id", requestcontext.RequestID(ctx),
		"certificate_id", certID,
		"display_id", updated.DisplayID,
		"version", updated.Version,
	)
	return updated, nil
}

// Delete removes one record. Sibling versions keep their numbers.
func (c *Composer) Delete(ctx context.Context, certID id.CertificateID) error {
	existing, err := c.store.FindByID(ctx, certID)
	if err != nil {
		return storeError(err, "certificate not found", "failed to load certificate")
	}
	if err := c.store.Delete(ctx, certID); err != nil {
		return storeError(err, "certificate not found", "failed to delete certificate")
	}
	c.audit(ctx, audit.Event{
		Action:        audit.ActionCertificateDeleted,
		CertificateID: certID,
		DisplayID:     existing.DisplayID,
		Version:       existing.Version,
	})
	if c.metrics != nil {
		c.metrics.IncrementDeleted()
	}
	c.logger.InfoContext(ctx, "certificate deleted",
		"request_id", requestcontext.RequestID(ctx),
		"certificate_id", certID,
		"display_id", existing.DisplayID,
	)
	return nil
}

// liveCourse returns the current course, or nil when it cannot be read.
func (c *Composer) liveCourse(ctx context.Context, courseID id.CourseID) *directory.Course {
	if courseID.IsNil() {
		return nil
	}
	course, err := c.courses.GetCourse(ctx, courseID)
	if err != nil {
		c.logger.DebugContext(ctx, "course unavailable, keeping snapshot",
			"course_id", courseID,
			"error", err,
		)
		return nil
	}
	return course
}

func (c *Composer) liveStudent(ctx context.Context, studentID id.StudentID) *directory.Student {
	if studentID.IsNil() {
		return nil
	}
	student, err := c.students.GetStudent(ctx, studentID)
	if err != nil {
		c.logger.DebugContext(ctx, "student unavailable, keeping snapshot",
			"student_id", studentID,
			"error", err,
		)
		return nil
	}
	return student
}

// acquire takes every key in order and returns a release that is safe to
// call more than once.
func (c *Composer) acquire(ctx context.Context, keys ...string) (func(), error) {
	if c.locker == nil {
		return func() {}, nil
	}
	releases := make([]func(), 0, len(keys))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
		releases = releases[:0]
	}
	for _, key := range keys {
		release, err := c.locker.Acquire(ctx, key)
		if err != nil {
			releaseAll()
			if errors.Is(err, lock.ErrNotAcquired) || errors.Is(err, context.DeadlineExceeded) {
				return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "certificate composition is busy, retry shortly")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to serialize certificate composition")
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}

func (c *Composer) audit(ctx context.Context, event audit.Event) {
	if c.auditor == nil {
		return
	}
	if err := c.auditor.Emit(ctx, event); err != nil {
		c.logger.ErrorContext(ctx, "certificate change not audited",
			"request_id", requestcontext.RequestID(ctx),
			"action", event.Action,
			"certificate_id", event.CertificateID,
			"error", err,
		)
	}
}

func (c *Composer) incrementStoreConflict() {
	if c.metrics != nil {
		c.metrics.IncrementStoreConflict()
	}
}

func pairLockKey(studentID id.StudentID, courseID id.CourseID) string {
	return fmt.Sprintf("pair:%s:%s", studentID, courseID)
}

func displayIDLockKey(year int) string {
	return fmt.Sprintf("displayid:%d", year)
}

// readerError maps a directory failure during composition. Unlike lookups,
// composition cannot fall back to snapshots.
func readerError(err error, notFoundMsg, failMsg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, notFoundMsg)
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, failMsg)
}

func preferLive(live, snapshot string) string {
	if live != "" {
		return live
	}
	return snapshot
}

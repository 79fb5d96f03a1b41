// Package service implements certificate issuance, editing, lookup and
// listing on top of an injected record store and directory readers.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"trainingcenter/internal/certificate/metrics"
	"trainingcenter/internal/certificate/models"
	"trainingcenter/internal/certificate/notify"
	"trainingcenter/internal/directory"
	id "trainingcenter/pkg/domain"
	dErrors "trainingcenter/pkg/domain-errors"
	audit "trainingcenter/pkg/platform/audit"
	"trainingcenter/pkg/platform/sentinel"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// Store persists certificate records.
type Store interface {
	Create(ctx context.Context, c *models.Certificate) (id.CertificateID, error)
	Update(ctx context.Context, certID id.CertificateID, f models.MutableFields) error
	FindByID(ctx context.Context, certID id.CertificateID) (*models.Certificate, error)
	FindByField(ctx context.Context, field models.Field, value string) ([]*models.Certificate, error)
	ListAll(ctx context.Context) ([]*models.Certificate, error)
	Delete(ctx context.Context, certID id.CertificateID) error
}

// Subscriber streams refreshed query results.
type Subscriber interface {
	Subscribe(ctx context.Context, q models.Query) (<-chan []*models.Certificate, error)
}

type StudentReader interface {
	GetStudent(ctx context.Context, studentID id.StudentID) (*directory.Student, error)
}

type CourseReader interface {
	GetCourse(ctx context.Context, courseID id.CourseID) (*directory.Course, error)
}

// Notifier receives certificate-issued events. It must not block.
type Notifier interface {
	Notify(ctx context.Context, ev notify.Event)
}

// Auditor records admin mutations. A failed write is logged; the mutation
// it describes has already happened.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Locker serializes composition per key.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type options struct {
	logger   *slog.Logger
	metrics  *metrics.Metrics
	notifier Notifier
	locker   Locker
	auditor  Auditor
	tracer   trace.Tracer
}

// Option configures a Composer, Resolver or Lister.
type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func WithNotifier(n Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithLocker enables per-pair and per-year serialization of creates.
func WithLocker(l Locker) Option {
	return func(o *options) {
		o.locker = l
	}
}

func WithAuditor(a Auditor) Option {
	return func(o *options) {
		o.auditor = a
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger: slog.Default(),
		tracer: otel.Tracer("trainingcenter/certificate"),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// storeError translates a store failure into a coded error. Misses become
// not_found; anything else is unavailable with the cause kept verbatim.
func storeError(err error, notFoundMsg, failMsg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, notFoundMsg)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, failMsg)
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, failMsg)
	}
}

func failSpan(span trace.Span, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}

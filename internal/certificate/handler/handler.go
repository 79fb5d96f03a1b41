// Package handler exposes certificate lookup publicly and issuance, editing
// and listing to admins.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"trainingcenter/internal/certificate/models"
	id "trainingcenter/pkg/domain"
	dErrors "trainingcenter/pkg/domain-errors"
	audit "trainingcenter/pkg/platform/audit"
	"trainingcenter/pkg/platform/httputil"
	"trainingcenter/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

// Composer issues, edits and deletes certificates.
type Composer interface {
	Create(ctx context.Context, req models.IssueRequest) (*models.IssueResult, error)
	CheckDuplicate(ctx context.Context, studentID id.StudentID, courseID id.CourseID) (*models.DuplicateInfo, error)
	Update(ctx context.Context, certID id.CertificateID, req models.UpdateRequest) (*models.Certificate, error)
	Delete(ctx context.Context, certID id.CertificateID) error
}

// Resolver serves public lookups.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*models.CertificateView, error)
	ResolveByNames(ctx context.Context, studentName, courseName string) (*models.CertificateView, error)
}

// Lister serves the grouped listing.
type Lister interface {
	Groups(ctx context.Context) ([]models.Group, error)
	Watch(ctx context.Context) (<-chan []models.Group, error)
}

// AuditTrail reads a certificate's change history.
type AuditTrail interface {
	ListByCertificate(ctx context.Context, certID id.CertificateID) ([]audit.Event, error)
}

// Handler wires certificate endpoints to the certificate services.
type Handler struct {
	composer  Composer
	resolver  Resolver
	lister    Lister
	trail     AuditTrail
	logger    *slog.Logger
	heartbeat time.Duration
}

// Option configures a Handler.
type Option func(*Handler)

// WithHeartbeat sets the comment interval that keeps idle event streams open.
func WithHeartbeat(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.heartbeat = d
		}
	}
}

// WithAuditTrail exposes the change history of each certificate to admins.
func WithAuditTrail(t AuditTrail) Option {
	return func(h *Handler) {
		h.trail = t
	}
}

func New(composer Composer, resolver Resolver, lister Lister, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		composer:  composer,
		resolver:  resolver,
		lister:    lister,
		logger:    logger,
		heartbeat: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterPublic mounts the unauthenticated lookup endpoints.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/certificates", h.HandleLookupByNames)
	r.Get("/certificates/{token}", h.HandleLookup)
}

// RegisterAdmin mounts the admin endpoints. The caller is responsible for
// the authentication and role middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/certificates", h.HandleIssue)
	r.Get("/admin/certificates", h.HandleList)
	r.Get("/admin/certificates/duplicates", h.HandleCheckDuplicate)
	r.Get("/admin/certificates/stream", h.HandleStream)
	r.Put("/admin/certificates/{id}", h.HandleUpdate)
	r.Delete("/admin/certificates/{id}", h.HandleDelete)
	if h.trail != nil {
		r.Get("/admin/certificates/{id}/audit", h.HandleAuditTrail)
	}
}

// HandleLookup handles GET /certificates/{token}.
func (h *Handler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := chi.URLParam(r, "token")

	view, err := h.resolver.Resolve(ctx, token)
	if err != nil {
		h.logFailure(ctx, "certificate lookup failed", err, "token", token)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleLookupByNames handles GET /certificates?student=&course=.
func (h *Handler) HandleLookupByNames(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	view, err := h.resolver.ResolveByNames(ctx, q.Get("student"), q.Get("course"))
	if err != nil {
		h.logFailure(ctx, "certificate name lookup failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleIssue handles POST /admin/certificates.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[IssueCertificateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.composer.Create(ctx, req.ToModel())
	if err != nil {
		h.logFailure(ctx, "certificate issue failed", err,
			"student_id", req.StudentID,
			"course_id", req.CourseID,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, &IssueResponse{
		Certificate: toCertificateResponse(result.Certificate),
		Duplicate:   result.Duplicate,
	})
}

// HandleCheckDuplicate handles GET /admin/certificates/duplicates.
func (h *Handler) HandleCheckDuplicate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	studentID := id.StudentID(strings.TrimSpace(q.Get("student_id")))
	courseID := id.CourseID(strings.TrimSpace(q.Get("course_id")))

	dup, err := h.composer.CheckDuplicate(ctx, studentID, courseID)
	if err != nil {
		h.logFailure(ctx, "duplicate check failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &DuplicateResponse{Duplicate: dup})
}

// HandleUpdate handles PUT /admin/certificates/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	certID, err := id.ParseCertificateID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateCertificateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	updated, err := h.composer.Update(ctx, certID, req.ToModel())
	if err != nil {
		h.logFailure(ctx, "certificate update failed", err, "certificate_id", certID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCertificateResponse(updated))
}

// HandleDelete handles DELETE /admin/certificates/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	certID, err := id.ParseCertificateID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.composer.Delete(ctx, certID); err != nil {
		h.logFailure(ctx, "certificate delete failed", err, "certificate_id", certID)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleList handles GET /admin/certificates.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	groups, err := h.lister.Groups(ctx)
	if err != nil {
		h.logFailure(ctx, "certificate listing failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toGroupsResponse(groups))
}

// HandleStream handles GET /admin/certificates/stream. Each store change
// produces one "groups" server-sent event carrying the full listing.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "streaming unsupported"))
		return
	}
	stream, err := h.lister.Watch(ctx)
	if err != nil {
		h.logFailure(ctx, "certificate stream failed", err)
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.logger.InfoContext(ctx, "certificate stream opened", "request_id", requestID)
	defer h.logger.InfoContext(ctx, "certificate stream closed", "request_id", requestID)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case groups, open := <-stream:
			if !open {
				return
			}
			if err := writeEvent(w, "groups", toGroupsResponse(groups)); err != nil {
				h.logger.WarnContext(ctx, "certificate stream write failed",
					"request_id", requestID,
					"error", err,
				)
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

// HandleAuditTrail handles GET /admin/certificates/{id}/audit. The trail of a
// deleted certificate remains readable.
func (h *Handler) HandleAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	certID, err := id.ParseCertificateID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	events, err := h.trail.ListByCertificate(ctx, certID)
	if err != nil {
		err = dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read audit trail")
		h.logFailure(ctx, "audit trail read failed", err, "certificate_id", certID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &AuditTrailResponse{Events: events, Count: len(events)})
}

// logFailure logs client errors at warn and everything else at error.
func (h *Handler) logFailure(ctx context.Context, msg string, err error, attrs ...any) {
	attrs = append(attrs, "request_id", requestcontext.RequestID(ctx), "error", err)
	if dErrors.ToHTTPStatus(dErrors.CodeOf(err)) < http.StatusInternalServerError {
		h.logger.WarnContext(ctx, msg, attrs...)
		return
	}
	h.logger.ErrorContext(ctx, msg, attrs...)
}

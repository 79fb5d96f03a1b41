package httputil

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "trainingcenter/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("not found includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeNotFound, "certificate not found"))

		if w.Code != http.StatusNotFound {
			t.Fatalf("expected status %d, got %d", http.StatusNotFound, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "not_found" {
			t.Fatalf("expected error code not_found, got %q", body["error"])
		}
		if body["error_description"] != "certificate not found" {
			t.Fatalf("expected error_description to be returned for not found")
		}
	})

	t.Run("uncoded errors are internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, io.ErrUnexpectedEOF)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

type sampleRequest struct {
	Name   string `json:"name" validate:"required,max=8"`
	Status string `json:"status" validate:"omitempty,oneof=Issued Pending"`
}

func (r *sampleRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
}

func (r *sampleRequest) Validate() error {
	if r.Name == "reserved" {
		return dErrors.New(dErrors.CodeValidation, "name is reserved")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	decode := func(body string) (*sampleRequest, *httptest.ResponseRecorder, bool) {
		r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		req, ok := DecodeAndPrepare[sampleRequest](w, r, logger, r.Context(), "req-1")
		return req, w, ok
	}

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"empty body", "", "request body is required"},
		{"malformed", "{", "invalid JSON body"},
		{"unknown field", `{"name":"a","extra":1}`, "invalid JSON body"},
		{"required after trim", `{"name":"   "}`, "name is required"},
		{"too long", `{"name":"abcdefghij"}`, "name must be at most 8 characters"},
		{"oneof", `{"name":"a","status":"Revoked"}`, "status must be one of [Issued Pending]"},
		{"custom rule", `{"name":"reserved"}`, "name is reserved"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, w, ok := decode(tc.body)
			require.False(t, ok)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			var body map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tc.wantMsg, body["error_description"])
		})
	}

	t.Run("valid body is normalized", func(t *testing.T) {
		req, _, ok := decode(`{"name":"  ada  ","status":"Issued"}`)
		require.True(t, ok)
		assert.Equal(t, "ada", req.Name)
	})
}

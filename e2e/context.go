package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultBaseURL = "http://localhost:8080"

// TestContext carries the HTTP client and the last response across the steps
// of one scenario.
type TestContext struct {
	baseURL     string
	client      *http.Client
	accessToken string
	clientIP    string
	saved       map[string]string

	lastStatus  int
	lastHeaders http.Header
	lastBody    []byte
}

// NewTestContext reads E2E_BASE_URL and E2E_ADMIN_TOKEN from the environment.
// The admin token is minted with `server token --role admin`.
func NewTestContext() *TestContext {
	base := os.Getenv("E2E_BASE_URL")
	if base == "" {
		base = defaultBaseURL
	}
	return &TestContext{
		baseURL:     strings.TrimRight(base, "/"),
		client:      &http.Client{Timeout: 10 * time.Second},
		accessToken: os.Getenv("E2E_ADMIN_TOKEN"),
		saved:       make(map[string]string),
	}
}

// Reset clears per-scenario state. The admin token survives.
func (tc *TestContext) Reset() {
	tc.clientIP = ""
	tc.saved = make(map[string]string)
	tc.lastStatus = 0
	tc.lastHeaders = nil
	tc.lastBody = nil
}

func (tc *TestContext) BaseURL() string { return tc.baseURL }

func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, headers)
}

func (tc *TestContext) POST(path string, body interface{}) error {
	return tc.do(http.MethodPost, path, body, tc.authHeaders())
}

func (tc *TestContext) PUT(path string, body interface{}) error {
	return tc.do(http.MethodPut, path, body, tc.authHeaders())
}

func (tc *TestContext) DELETE(path string) error {
	return tc.do(http.MethodDelete, path, nil, tc.authHeaders())
}

// AdminGET issues an authenticated GET.
func (tc *TestContext) AdminGET(path string) error {
	return tc.GET(path, tc.authHeaders())
}

func (tc *TestContext) GetAccessToken() string { return tc.accessToken }
func (tc *TestContext) SetAccessToken(token string) { tc.accessToken = token }
func (tc *TestContext) SetClientIP(ip string) { tc.clientIP = ip }
func (tc *TestContext) GetLastResponseStatus() int { return tc.lastStatus }
func (tc *TestContext) GetLastResponseBody() []byte { return tc.lastBody }
func (tc *TestContext) GetLastHeader(k string) string { return tc.lastHeaders.Get(k) }

// Save remembers a value for later steps of the same scenario.
func (tc *TestContext) Save(key, value string) { tc.saved[key] = value }

func (tc *TestContext) Recall(key string) (string, error) {
	v, ok := tc.saved[key]
	if !ok {
		return "", fmt.Errorf("nothing saved as %q", key)
	}
	return v, nil
}

// GetResponseField resolves a dotted path like "certificate.display_id" in
// the last JSON response body.
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	var doc interface{}
	if err := json.Unmarshal(tc.lastBody, &doc); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	cur := doc
	for _, part := range strings.Split(field, ".") {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", field, part)
		}
		cur, ok = obj[part]
		if !ok {
			return nil, fmt.Errorf("field %q not found in response: %s", field, string(tc.lastBody))
		}
	}
	return cur, nil
}

func (tc *TestContext) authHeaders() map[string]string {
	if tc.accessToken == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + tc.accessToken}
}

func (tc *TestContext) do(method, path string, body interface{}, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.clientIP != "" {
		req.Header.Set("X-Forwarded-For", tc.clientIP)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	tc.lastStatus = resp.StatusCode
	tc.lastHeaders = resp.Header
	return nil
}

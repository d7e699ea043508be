package web

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/abgdnv/storefront/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func Test_UserHeaderMiddleware(t *testing.T) {
	testCases := []struct {
		name           string
		header         string
		expectedStatus int
		expectedUserID string
	}{
		{name: "header present", header: "5f0d3c54-3f1e-4a43-9d7c-1e6f1c4b7a10", expectedStatus: http.StatusOK, expectedUserID: "5f0d3c54-3f1e-4a43-9d7c-1e6f1c4b7a10"},
		{name: "header missing", expectedStatus: http.StatusUnauthorized},
		{name: "header not a uuid", header: "alice", expectedStatus: http.StatusUnauthorized},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			var seen string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = UserIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(XUserId, tc.header)
			}
			rr := httptest.NewRecorder()

			// when
			UserHeaderMiddleware(next).ServeHTTP(rr, req)

			// then
			assert.Equal(t, tc.expectedStatus, rr.Code)
			assert.Equal(t, tc.expectedUserID, seen)
		})
	}
}

func Test_Recoverer(t *testing.T) {
	// given
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	rr := httptest.NewRecorder()

	// when
	Recoverer(discard)(panicking).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	// then
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func Test_RequestIDInjector(t *testing.T) {
	// given
	var id string
	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		id, _ = GetRequestID(r.Context())
	})
	rr := httptest.NewRecorder()

	// when
	RequestIDInjector(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	// then
	assert.NotEmpty(t, id)
	assert.Equal(t, id, rr.Header().Get("X-Request-Id"))
}

func Test_DecodeValid(t *testing.T) {
	type payload struct {
		Name     string `json:"name" validate:"required"`
		Quantity int32  `json:"quantity" validate:"min=1"`
	}
	testCases := []struct {
		name           string
		body           string
		expectedOK     bool
		expectedStatus int
		expectedBody   string
	}{
		{name: "valid", body: `{"name":"tee","quantity":2}`, expectedOK: true, expectedStatus: http.StatusOK},
		{name: "malformed json", body: `{"name":`, expectedStatus: http.StatusBadRequest, expectedBody: "Invalid request body"},
		{name: "validation failure", body: `{"name":"tee","quantity":0}`, expectedStatus: http.StatusBadRequest, expectedBody: "Quantity"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			var dst payload

			// when
			ok := DecodeValid(rr, req, discard, validator.New(), &dst)

			// then
			assert.Equal(t, tc.expectedOK, ok)
			assert.Equal(t, tc.expectedStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tc.expectedBody)
		})
	}
}

func Test_QueryInt32(t *testing.T) {
	testCases := []struct {
		name       string
		query      string
		expectedOK bool
		expected   int32
	}{
		{name: "valid", query: "?version=3", expectedOK: true, expected: 3},
		{name: "missing", query: "", expectedOK: false},
		{name: "below minimum", query: "?version=0", expectedOK: false},
		{name: "not a number", query: "?version=abc", expectedOK: false},
		{name: "overflows int32", query: "?version=4294967296", expectedOK: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			req := httptest.NewRequest(http.MethodGet, "/"+tc.query, nil)
			rr := httptest.NewRecorder()

			// when
			value, ok := QueryInt32(rr, req, discard, "version", 1)

			// then
			assert.Equal(t, tc.expectedOK, ok)
			assert.Equal(t, tc.expected, value)
			if !ok {
				assert.Equal(t, http.StatusBadRequest, rr.Code)
			}
		})
	}
}

func Test_Page(t *testing.T) {
	testCases := []struct {
		name           string
		query          string
		expectedOK     bool
		expectedOffset int32
		expectedLimit  int32
	}{
		{name: "defaults", query: "", expectedOK: true, expectedLimit: DefaultPageLimit},
		{name: "explicit", query: "?offset=40&limit=10", expectedOK: true, expectedOffset: 40, expectedLimit: 10},
		{name: "limit at cap", query: "?limit=100", expectedOK: true, expectedLimit: MaxPageLimit},
		{name: "limit above cap", query: "?limit=101"},
		{name: "zero limit", query: "?limit=0"},
		{name: "negative offset", query: "?offset=-1"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			req := httptest.NewRequest(http.MethodGet, "/"+tc.query, nil)
			rr := httptest.NewRecorder()

			// when
			offset, limit, ok := Page(rr, req, discard)

			// then
			assert.Equal(t, tc.expectedOK, ok)
			assert.Equal(t, tc.expectedOffset, offset)
			assert.Equal(t, tc.expectedLimit, limit)
		})
	}
}

func Test_accessLevel(t *testing.T) {
	testCases := []struct {
		status   int
		expected slog.Level
	}{
		{status: http.StatusOK, expected: slog.LevelInfo},
		{status: http.StatusNoContent, expected: slog.LevelInfo},
		{status: http.StatusConflict, expected: slog.LevelWarn},
		{status: http.StatusBadGateway, expected: slog.LevelError},
	}
	for _, tc := range testCases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			assert.Equal(t, tc.expected, accessLevel(tc.status))
		})
	}
}

func Test_StructuredLogger_CarriesUserID(t *testing.T) {
	// given
	var buf strings.Builder
	log := slog.New(logger.NewContextHandler(slog.NewJSONHandler(&buf, nil)))
	handler := UserHeaderMiddleware(StructuredLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/", nil)
	req.Header.Set(XUserId, "5f0d3c54-3f1e-4a43-9d7c-1e6f1c4b7a10")

	// when
	handler.ServeHTTP(httptest.NewRecorder(), req)

	// then
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), `"status":409`)
	assert.Contains(t, buf.String(), `"user_id":"5f0d3c54-3f1e-4a43-9d7c-1e6f1c4b7a10"`)
}

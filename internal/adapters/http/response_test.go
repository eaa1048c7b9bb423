package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteErrorMarksRetryableOutcomes(t *testing.T) {
	t.Parallel()
	cases := []struct {
		code          string
		wantRetryable bool
	}{
		{"NETWORK_UNAVAILABLE", true},
		{"STATUS_UNKNOWN", false},
		{"IDEMPOTENCY_CONFLICT", false},
		{"VALIDATION_ERROR", false},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, http.StatusServiceUnavailable, tc.code, "msg")

		var body apiError
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode error body: %v", err)
		}
		if body.Retryable != tc.wantRetryable {
			t.Errorf("code %s: retryable = %v, want %v", tc.code, body.Retryable, tc.wantRetryable)
		}
	}
}

func TestParsePageWindowClampsLimit(t *testing.T) {
	t.Parallel()
	cases := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", 20, 0},
		{"?limit=50&offset=10", 50, 10},
		{"?limit=1000", 100, 0},
		{"?limit=-5&offset=-3", 20, 0},
		{"?limit=abc", 20, 0},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/tips/v1/profiles"+tc.query, nil)
		limit, offset := parsePageWindow(req, 20, 100)
		if limit != tc.wantLimit || offset != tc.wantOffset {
			t.Errorf("query %q: got (%d, %d), want (%d, %d)", tc.query, limit, offset, tc.wantLimit, tc.wantOffset)
		}
	}
}

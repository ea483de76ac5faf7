package server

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestHealth(t *testing.T) {
	h := &Handler{}
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	h.Health(w, req)

	if w.Code != 200 {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/job/all-jobs", "/job/all-jobs"},
		{"/job/update/job-abc123", "/job/update/:id"},
		{"/job/delete/job-abc123", "/job/delete/:id"},
		{"/applications/withdraw/app-abc123", "/applications/withdraw/:id"},
		{"/applications/job/job-abc123", "/applications/job/:id"},
		{"/applications/update-status/app-abc123", "/applications/update-status/:id"},
		{"/user/login-user", "/user/login-user"},
	}
	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

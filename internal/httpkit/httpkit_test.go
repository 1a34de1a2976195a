package httpkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestWriteErr(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErr(rec, http.StatusBadRequest, "BAD_REQUEST", "No files were uploaded", nil)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["success"] != false || body["error"] != "No files were uploaded" {
		t.Errorf("unexpected body: %v", body)
	}
	if _, ok := body["details"]; ok {
		t.Error("empty details should be omitted")
	}
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	tests := []struct {
		name       string
		allowed    []string
		origin     string
		preflight  bool
		wantOrigin string
		wantStatus int
	}{
		{"wildcard", []string{"*"}, "http://ui.test", false, "http://ui.test", http.StatusTeapot},
		{"listed", []string{" http://a.test ", "http://b.test"}, "http://a.test", false, "http://a.test", http.StatusTeapot},
		{"not listed", []string{"http://a.test"}, "http://evil.test", false, "", http.StatusTeapot},
		{"preflight", []string{"*"}, "http://ui.test", true, "http://ui.test", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := CORS(CORSOptions{AllowedOrigins: tt.allowed})(next)

			method := http.MethodGet
			if tt.preflight {
				method = http.MethodOptions
			}
			req := httptest.NewRequest(method, "/api/brands", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", "POST")
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestIsUndefinedTable(t *testing.T) {
	if !IsUndefinedTable(&pgconn.PgError{Code: "42P01"}) {
		t.Error("42P01 should be undefined_table")
	}
	if IsUndefinedTable(&pgconn.PgError{Code: "23505"}) || IsUndefinedTable(nil) {
		t.Error("other codes are not undefined_table")
	}
}

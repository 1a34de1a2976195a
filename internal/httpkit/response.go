package httpkit

import (
	"encoding/json"
	"net/http"
)

// Failure is the error body of every brandgen endpoint:
// {"success": false, "error": "..."} plus an optional code and details.
type Failure struct {
	Success bool           `json:"success"`
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func WriteErr(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	WriteJSON(w, status, Failure{
		Success: false,
		Error:   msg,
		Code:    code,
		Details: details,
	})
}

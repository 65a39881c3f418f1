// Package httpx provides the JSON response envelope shared by every API
// endpoint: {code, success, message, data}. The business code mirrors the
// HTTP status for plain outcomes; reserved codes (for example the
// session-invalid pair) ride in the body of a 200 response.
package httpx

import (
	"encoding/json"
	"net/http"
)

// Envelope is the wire format for every API response.
type Envelope struct {
	Code    int    `json:"code"`
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// Success sends a success envelope with the given business code.
func Success(w http.ResponseWriter, data any, message string, code int) {
	writeEnvelope(w, Envelope{Code: code, Success: true, Message: message, Data: data})
}

// Error sends a failure envelope. Codes in the HTTP status range become the
// response status; larger reserved codes are delivered inside a 200 body so
// the client can classify them as business failures.
func Error(w http.ResponseWriter, message string, code int) {
	writeEnvelope(w, Envelope{Code: code, Success: false, Message: message})
}

// NoStore disables caching for responses carrying volatile data such as the
// aggregated permission set.
func NoStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}

// DecodeJSON decodes JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}

func writeEnvelope(w http.ResponseWriter, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus(env.Code))
	_ = json.NewEncoder(w).Encode(env)
}

func httpStatus(code int) int {
	if code >= 100 && code < 600 {
		return code
	}
	return http.StatusOK
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/TimurManjosov/flagprops/internal/properties"
)

// ===== HTTP Helpers =====

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeBody decodes a size-limited JSON body into dst and writes the error
// response itself. It returns false if the handler should stop.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			RequestTooLargeError(w, r, "Request body too large")
			return false
		}
		if errors.Is(err, properties.ErrInvalidOperator) {
			BadRequestError(w, r, ErrCodeInvalidOperator, err.Error())
			return false
		}
		BadRequestError(w, r, ErrCodeInvalidJSON, "Request body must be valid JSON: "+err.Error())
		return false
	}
	return true
}

func (s *Server) partial(requested *bool) bool {
	if requested != nil {
		return *requested
	}
	return s.opts.DefaultPartial
}

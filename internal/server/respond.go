package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kapu/koreanow-go/pkg/errors"
)

// APIResponse is the JSON envelope of every API response.
type APIResponse struct {
	Data  any       `json:"data,omitempty"`
	Meta  *Meta     `json:"meta,omitempty"`
	Error *APIError `json:"error,omitempty"`
}

type Meta struct {
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, logger *zap.Logger, status int, response *APIResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		logger.Error("Failed to marshal JSON response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Vary", "Accept-Encoding")

	// Only successful reads are cacheable.
	if r != nil && r.Method == http.MethodGet && status == http.StatusOK && response.Error == nil {
		etag := `"` + generateETag(data) + `"`
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "public, max-age=60")
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logger.Debug("Failed to write JSON response", zap.Error(err))
	}
}

// respondData wraps data in the envelope. Slices also report their length.
func respondData(w http.ResponseWriter, r *http.Request, logger *zap.Logger, data any, count int) {
	resp := &APIResponse{Data: data}
	if count >= 0 {
		resp.Meta = &Meta{Count: count, Timestamp: time.Now().UTC()}
	}
	respondJSON(w, r, logger, http.StatusOK, resp)
}

// generateETag is FNV-1a over the encoded body.
func generateETag(data []byte) string {
	hash := uint32(2166136261)
	for _, b := range data {
		hash ^= uint32(b)
		hash *= 16777619
	}
	return strconv.FormatUint(uint64(hash), 16)
}

func respondError(w http.ResponseWriter, logger *zap.Logger, status int, code, message string, err error) {
	if err != nil && status >= http.StatusInternalServerError {
		logger.Error("API error", zap.String("code", code), zap.Error(err))
	}
	respondJSON(w, nil, logger, status, &APIResponse{Error: &APIError{Code: code, Message: message}})
}

// respondErr maps a typed error to its status and code.
func (s *Server) respondErr(w http.ResponseWriter, err error) {
	status := errors.StatusCode(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = "internal error"
	}
	if status == http.StatusServiceUnavailable {
		message = "service temporarily unavailable"
	}
	respondError(w, s.logger, status, errors.Code(err), message, err)
}

func (s *Server) respondNotFound(w http.ResponseWriter, resource, id string) {
	s.respondErr(w, errors.NewNotFoundError(resource, id))
}

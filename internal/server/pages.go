package server

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kapu/koreanow-go/internal/render"
	"github.com/kapu/koreanow-go/pkg/errors"
)

func (s *Server) handleEditorialHTML(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := s.deps.Pages.EditorialPage(r.Context(), id)
	if err != nil {
		s.respondHTMLError(w, err)
		return
	}
	if p == nil {
		s.respondHTMLError(w, errors.NewNotFoundError("editorial", id))
		return
	}

	var buf bytes.Buffer
	if err := render.Editorial(&buf, p); err != nil {
		s.respondHTMLError(w, err)
		return
	}
	writeHTML(w, buf.Bytes())
}

func (s *Server) handleRestaurantHTML(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	p, err := s.deps.Pages.RestaurantPage(r.Context(), slug)
	if err != nil {
		s.respondHTMLError(w, err)
		return
	}
	if p == nil {
		s.respondHTMLError(w, errors.NewNotFoundError("restaurant", slug))
		return
	}

	var buf bytes.Buffer
	if err := render.Restaurant(&buf, p); err != nil {
		s.respondHTMLError(w, err)
		return
	}
	writeHTML(w, buf.Bytes())
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) respondHTMLError(w http.ResponseWriter, err error) {
	status := errors.StatusCode(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Page rendering failed", zap.Error(err))
	}
	http.Error(w, http.StatusText(status), status)
}

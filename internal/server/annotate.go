package server

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kapu/koreanow-go/internal/constants"
	"github.com/kapu/koreanow-go/internal/glossary"
	"github.com/kapu/koreanow-go/internal/render"
	"github.com/kapu/koreanow-go/pkg/errors"
)

const wsIdleTimeout = 2 * time.Minute

// annotateRequest carries text and glossaries in priority order. Each glossary
// may use either stored shape.
type annotateRequest struct {
	ID         string            `json:"id,omitempty"`
	Text       string            `json:"text"`
	Glossaries []json.RawMessage `json:"glossaries"`
	Format     string            `json:"format,omitempty"`
}

type annotateResponse struct {
	ID       string            `json:"id,omitempty"`
	Document glossary.Document `json:"document"`
	Terms    int               `json:"terms"`
	HTML     string            `json:"html,omitempty"`
	Error    *APIError         `json:"error,omitempty"`
}

func (s *Server) annotate(req *annotateRequest) (*annotateResponse, error) {
	if int64(len(req.Text)) > constants.ListingLimits.MaxAnnotateBytes {
		return nil, errors.NewValidationError("text is too large", "text", len(req.Text))
	}

	sources := make([]glossary.Source, 0, len(req.Glossaries))
	for _, raw := range req.Glossaries {
		src, err := glossary.ParseSource(raw)
		if err != nil {
			return nil, errors.NewValidationError("glossary must be an object or a list of terms", "glossaries", string(raw))
		}
		sources = append(sources, src)
	}

	doc, err := s.deps.Pages.Annotate(req.Text, sources...)
	if err != nil {
		return nil, err
	}

	resp := &annotateResponse{ID: req.ID, Document: doc, Terms: doc.Terms()}
	if req.Format == "html" {
		html, err := render.Fragment(doc)
		if err != nil {
			return nil, err
		}
		resp.HTML = string(html)
	}
	return resp, nil
}

func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 2*constants.ListingLimits.MaxAnnotateBytes)

	var req annotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondErr(w, errors.NewValidationError("invalid JSON body", "body", nil))
		return
	}

	resp, err := s.annotate(&req)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, r, s.logger, http.StatusOK, &APIResponse{Data: resp})
}

// handleAnnotateWebSocket answers each JSON request message with one response
// message carrying the same id, for live previews while editing.
func (s *Server) handleAnnotateWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(2 * constants.ListingLimits.MaxAnnotateBytes)
	_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("WebSocket closed unexpectedly", zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))

		var resp *annotateResponse
		var req annotateRequest
		if err := json.Unmarshal(data, &req); err != nil {
			resp = &annotateResponse{Error: &APIError{Code: errors.CodeValidation, Message: "invalid JSON message"}}
		} else if resp, err = s.annotate(&req); err != nil {
			message := err.Error()
			if errors.StatusCode(err) >= http.StatusInternalServerError {
				message = "internal error"
			}
			resp = &annotateResponse{ID: req.ID, Error: &APIError{Code: errors.Code(err), Message: message}}
		}

		out, err := json.Marshal(resp)
		if err != nil {
			s.logger.Error("Failed to encode annotation", zap.Error(err))
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
			return
		}
	}
}

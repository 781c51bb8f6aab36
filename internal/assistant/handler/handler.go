// Package handler serves one domain's responder role over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lucy/internal/domains"
	"lucy/internal/responder"
	"lucy/pkg/platform/httputil"
	"lucy/pkg/requestcontext"
)

type Service interface {
	Domain() domains.Domain
	Answer(ctx context.Context, query string, qctx map[string]any) (*responder.Result, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Post("/query", h.HandleQuery)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"assistant": string(h.service.Domain()),
	})
}

type queryResponse struct {
	Response   string             `json:"response"`
	Confidence float64            `json:"confidence"`
	Sources    []responder.Source `json:"sources"`
	Reasoning  string             `json:"reasoning"`
	Metadata   map[string]string  `json:"metadata,omitempty"`
}

// HandleQuery handles POST /query.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[QueryRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.Answer(ctx, req.Query, req.Context)
	if err != nil {
		h.logger.ErrorContext(ctx, "query failed",
			"request_id", requestID,
			"domain", h.service.Domain(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	sources := res.Sources
	if sources == nil {
		sources = []responder.Source{}
	}
	httputil.WriteJSON(w, http.StatusOK, queryResponse{
		Response:   res.Response,
		Confidence: res.Confidence,
		Sources:    sources,
		Reasoning:  res.Reasoning,
		Metadata:   res.Metadata,
	})
}

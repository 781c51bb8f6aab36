// Package handler exposes the orchestrator over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lucy/internal/execution"
	"lucy/internal/orchestrator"
	dErrors "lucy/pkg/domain-errors"
	"lucy/pkg/platform/httputil"
	"lucy/pkg/requestcontext"
)

type Service interface {
	Query(ctx context.Context, req orchestrator.QueryRequest) (*orchestrator.QueryResponse, error)
	Briefing(ctx context.Context, userID string) (*execution.AggregatedResult, error)
	Health(ctx context.Context) orchestrator.HealthReport
	Stats(ctx context.Context) (*orchestrator.Stats, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/query", h.HandleQuery)
	r.Get("/health", h.HandleHealth)
	r.Post("/briefing", h.HandleBriefing)
	r.Get("/stats", h.HandleStats)
}

// HandleQuery handles POST /query.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[QueryRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	resp, err := h.service.Query(ctx, orchestrator.QueryRequest{
		Query:   req.Query,
		UserID:  req.UserID,
		Context: req.Context,
	})
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toQueryResponse(resp))
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.service.Health(r.Context()))
}

// HandleBriefing handles POST /briefing. The user can be named in the body
// or the user_id query parameter; an empty body is allowed.
func (h *Handler) HandleBriefing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.URL.Query().Get("user_id")
	if r.ContentLength > 0 {
		req, ok := httputil.DecodeAndPrepare[BriefingRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
		if !ok {
			return
		}
		if req.UserID != "" {
			userID = req.UserID
		}
	}

	res, err := h.service.Briefing(ctx, userID)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toBriefingResponse(res))
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	qe, ok := orchestrator.AsQueryError(err)
	if !ok {
		httputil.WriteError(w, err)
		return
	}
	h.logger.ErrorContext(ctx, "query failed",
		"request_id", requestcontext.RequestID(ctx),
		"query", qe.Query,
		"error", qe.Err,
	)
	httputil.WriteJSON(w, httputil.StatusFor(dErrors.CodeBadGateway), queryErrorResponse{
		Error:            string(dErrors.CodeBadGateway),
		ErrorDescription: qe.Message,
		Query:            qe.Query,
	})
}

// Package handler serves the evaluator role over HTTP.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lucy/internal/responder"
	"lucy/pkg/platform/httputil"
	"lucy/pkg/requestcontext"
)

// Scorer rates a candidate answer.
type Scorer interface {
	Score(req responder.EvaluationRequest) responder.Verdict
}

type Handler struct {
	scorer Scorer
	logger *slog.Logger
}

func New(scorer Scorer, logger *slog.Logger) *Handler {
	return &Handler{scorer: scorer, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Post("/evaluate", h.HandleEvaluate)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"assistant": "evaluator",
	})
}

// HandleEvaluate handles POST /evaluate.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[EvaluateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	verdict := h.scorer.Score(req.toDomain())
	if verdict.Issues == nil {
		verdict.Issues = []string{}
	}
	if verdict.Suggestions == nil {
		verdict.Suggestions = []string{}
	}

	h.logger.InfoContext(ctx, "response evaluated",
		"request_id", requestID,
		"agent", req.Agent,
		"quality_score", verdict.QualityScore,
		"passed", verdict.Passed,
	)
	httputil.WriteJSON(w, http.StatusOK, verdict)
}

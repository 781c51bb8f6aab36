// Package handler exposes error learning over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lucy/internal/errorlearning"
	"lucy/internal/errorlearning/models"
	"lucy/pkg/platform/httputil"
	"lucy/pkg/requestcontext"
)

// Service defines the error-learning operations served here.
type Service interface {
	RecordError(ctx context.Context, req models.RecordRequest) (string, error)
	CheckBeforeAction(ctx context.Context, actionType string, actionContext map[string]any) (*models.Warning, error)
	Stats(ctx context.Context) (*models.Stats, error)
	Get(ctx context.Context, errorID string) (*models.Record, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/errors", func(r chi.Router) {
		r.Post("/", h.HandleRecord)
		r.Post("/check", h.HandleCheck)
		r.Get("/stats", h.HandleStats)
		r.Get("/{id}", h.HandleGet)
	})
}

type recordResponse struct {
	ErrorID string `json:"error_id"`
	Durable bool   `json:"durable"`
}

type checkResponse struct {
	Warning        bool              `json:"warning"`
	Message        string            `json:"message,omitempty"`
	PreviousErrors []models.Previous `json:"previous_errors"`
	Recommendation string            `json:"recommendation,omitempty"`
}

func toCheckResponse(w *models.Warning) checkResponse {
	if w == nil {
		return checkResponse{PreviousErrors: []models.Previous{}}
	}
	return checkResponse{
		Warning:        true,
		Message:        w.Message,
		PreviousErrors: w.PreviousErrors,
		Recommendation: w.Recommendation,
	}
}

// HandleRecord handles POST /errors.
func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[RecordErrorRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	id, err := h.service.RecordError(ctx, req.toDomain())
	if err != nil && !(id != "" && errors.Is(err, errorlearning.ErrPersistence)) {
		h.logger.ErrorContext(ctx, "record error failed",
			"request_id", requestID,
			"error_type", req.ErrorType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	status := http.StatusCreated
	if err != nil {
		status = http.StatusAccepted
	}
	httputil.WriteJSON(w, status, recordResponse{ErrorID: id, Durable: err == nil})
}

// HandleCheck handles POST /errors/check.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CheckActionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	warning, err := h.service.CheckBeforeAction(ctx, req.ActionType, req.ActionContext)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCheckResponse(warning))
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

// Package handler exposes the memory store and learning system over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"lucy/internal/memory"
	"lucy/internal/memory/models"
	dErrors "lucy/pkg/domain-errors"
	"lucy/pkg/platform/httputil"
	"lucy/pkg/requestcontext"
)

// Service defines the memory operations served here.
type Service interface {
	Add(ctx context.Context, namespace, content, category string, metadata map[string]any) (*models.Record, error)
	Search(ctx context.Context, q models.Query) ([]models.Record, error)
	Update(ctx context.Context, namespace, id, content string, metadata map[string]any) (*models.Record, error)
	Delete(ctx context.Context, namespace, id string) error
	Stats(ctx context.Context, namespace string) (*models.Stats, error)
	AllStats(ctx context.Context) (map[string]models.Stats, error)
	SearchAcross(ctx context.Context, text string, namespaces []string, perNamespace int) (map[string][]models.Record, error)
	Export(ctx context.Context, namespace string) (*models.Snapshot, error)
	Import(ctx context.Context, namespace string, snap models.Snapshot) (*models.Snapshot, error)
}

// LearningService defines the learning operations served here.
type LearningService interface {
	SaveCorrection(ctx context.Context, namespace string, c memory.Correction) (*models.Record, error)
	SaveSuccessfulPattern(ctx context.Context, namespace string, p memory.Pattern) (*models.Record, error)
	SaveUserPreference(ctx context.Context, namespace string, p memory.Preference) (*models.Record, error)
	RelevantLearnings(ctx context.Context, namespace, query string, limit int) ([]models.Record, error)
}

type Handler struct {
	memory   Service
	learning LearningService
	logger   *slog.Logger
}

func New(memory Service, learning LearningService, logger *slog.Logger) *Handler {
	return &Handler{memory: memory, learning: learning, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/memory", func(r chi.Router) {
		r.Get("/stats", h.HandleAllStats)
		r.Post("/search", h.HandleSearchAcross)
		r.Post("/{namespace}", h.HandleAdd)
		r.Get("/{namespace}", h.HandleSearch)
		r.Get("/{namespace}/stats", h.HandleStats)
		r.Get("/{namespace}/export", h.HandleExport)
		r.Put("/{namespace}/import", h.HandleImport)
		r.Patch("/{namespace}/{id}", h.HandleUpdate)
		r.Delete("/{namespace}/{id}", h.HandleDelete)
	})
	r.Route("/learning/{namespace}", func(r chi.Router) {
		r.Get("/", h.HandleRelevantLearnings)
		r.Post("/corrections", h.HandleSaveCorrection)
		r.Post("/patterns", h.HandleSavePattern)
		r.Post("/preferences", h.HandleSavePreference)
	})
}

// writeRecord answers a write. A record that is stored but not yet durable
// is reported with 202.
func (h *Handler) writeRecord(w http.ResponseWriter, r *http.Request, status int, rec *models.Record, err error) {
	ctx := r.Context()
	if err != nil && !(rec != nil && errors.Is(err, memory.ErrPersistence)) {
		h.logger.ErrorContext(ctx, "memory write failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	resp := recordResponse{Record: *rec, Durable: err == nil}
	if err != nil {
		status = http.StatusAccepted
	}
	httputil.WriteJSON(w, status, resp)
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[AddMemoryRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	rec, err := h.memory.Add(ctx, chi.URLParam(r, "namespace"), req.Content, req.Category, req.Metadata)
	h.writeRecord(w, r, http.StatusCreated, rec, err)
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	records, err := h.memory.Search(r.Context(), models.Query{
		Namespace: chi.URLParam(r, "namespace"),
		Text:      r.URL.Query().Get("q"),
		Category:  r.URL.Query().Get("category"),
		Limit:     limit,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, recordsResponse{Memories: records, Count: len(records)})
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[UpdateMemoryRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	rec, err := h.memory.Update(ctx, chi.URLParam(r, "namespace"), chi.URLParam(r, "id"), req.Content, req.Metadata)
	h.writeRecord(w, r, http.StatusOK, rec, err)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	err := h.memory.Delete(r.Context(), chi.URLParam(r, "namespace"), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, memory.ErrPersistence):
		w.WriteHeader(http.StatusAccepted)
	default:
		httputil.WriteError(w, err)
	}
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.memory.Stats(r.Context(), chi.URLParam(r, "namespace"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) HandleAllStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.memory.AllStats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) HandleSearchAcross(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[SearchAcrossRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	results, err := h.memory.SearchAcross(ctx, req.Query, req.Namespaces, req.LimitPerNamespace)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, results)
}

func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	snap, err := h.memory.Export(r.Context(), chi.URLParam(r, "namespace"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[ImportRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	snap, err := h.memory.Import(ctx, chi.URLParam(r, "namespace"), req.Snapshot)
	switch {
	case err == nil:
		httputil.WriteJSON(w, http.StatusOK, snap)
	case snap != nil && errors.Is(err, memory.ErrPersistence):
		httputil.WriteJSON(w, http.StatusAccepted, snap)
	default:
		httputil.WriteError(w, err)
	}
}

func (h *Handler) HandleSaveCorrection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CorrectionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	rec, err := h.learning.SaveCorrection(ctx, chi.URLParam(r, "namespace"), req.toDomain())
	h.writeRecord(w, r, http.StatusCreated, rec, err)
}

func (h *Handler) HandleSavePattern(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[PatternRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	rec, err := h.learning.SaveSuccessfulPattern(ctx, chi.URLParam(r, "namespace"), req.toDomain())
	h.writeRecord(w, r, http.StatusCreated, rec, err)
}

func (h *Handler) HandleSavePreference(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[PreferenceRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	rec, err := h.learning.SaveUserPreference(ctx, chi.URLParam(r, "namespace"), req.toDomain())
	h.writeRecord(w, r, http.StatusCreated, rec, err)
}

func (h *Handler) HandleRelevantLearnings(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	records, err := h.learning.RelevantLearnings(r.Context(), chi.URLParam(r, "namespace"), r.URL.Query().Get("q"), limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, recordsResponse{Memories: records, Count: len(records)})
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, dErrors.New(dErrors.CodeValidation, key+" must be a non-negative integer")
	}
	return n, nil
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"lucy/internal/domains"
	"lucy/internal/execution"
	"lucy/internal/orchestrator"
	"lucy/internal/responder"
	"lucy/internal/routing"
	dErrors "lucy/pkg/domain-errors"
)

type stubService struct {
	query    func(orchestrator.QueryRequest) (*orchestrator.QueryResponse, error)
	briefed  string
	briefErr error
	stats    *orchestrator.Stats
}

func (s *stubService) Query(_ context.Context, req orchestrator.QueryRequest) (*orchestrator.QueryResponse, error) {
	return s.query(req)
}

func (s *stubService) Briefing(_ context.Context, userID string) (*execution.AggregatedResult, error) {
	s.briefed = userID
	if s.briefErr != nil {
		return nil, s.briefErr
	}
	return &execution.AggregatedResult{Response: "agenda", Domains: []domains.Domain{domains.Personal}, Confidence: 0.7}, nil
}

func (s *stubService) Health(context.Context) orchestrator.HealthReport {
	return orchestrator.HealthReport{
		Status:       orchestrator.StatusDegraded,
		Orchestrator: orchestrator.StatusHealthy,
		Assistants:   map[string]string{"data": orchestrator.StatusUnreachable},
		Timestamp:    time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (s *stubService) Stats(context.Context) (*orchestrator.Stats, error) {
	if s.stats == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "boom")
	}
	return s.stats, nil
}

type HandlerSuite struct {
	suite.Suite
	service *stubService
	router  http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.service = &stubService{}
	r := chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	s.router = r
}

func (s *HandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(method, path, reader))
	return rec
}

func (s *HandlerSuite) TestQuery() {
	s.service.query = func(req orchestrator.QueryRequest) (*orchestrator.QueryResponse, error) {
		s.Equal("Show me emails", req.Query)
		s.Equal("en", req.Context["language"])
		return &orchestrator.QueryResponse{
			Response:        "3 emails",
			Agent:           "communications",
			Domains:         []domains.Domain{domains.Communications},
			Strategy:        routing.StrategySingle,
			Confidence:      0.9,
			Sources:         []responder.Source{},
			QualityScore:    0.7,
			NeedsRefinement: true,
			Routing: routing.Decision{
				Primary: domains.Communications, Strategy: routing.StrategySingle, Confidence: 0.8, Reasoning: "matched keywords: email",
			},
			Errors: map[domains.Domain]string{},
		}, nil
	}

	rec := s.do(http.MethodPost, "/query", `{"query":"Show me emails","language":"en"}`)
	s.Require().Equal(http.StatusOK, rec.Code)

	var body map[string]any
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
	for _, key := range []string{"response", "agent", "domains", "strategy", "confidence", "sources", "quality_score", "evaluated", "needs_refinement", "suggestions", "issues", "routing"} {
		s.Contains(body, key)
	}
	s.NotContains(body, "errors", "empty diagnostics are omitted")
	s.Equal(true, body["needs_refinement"])
	s.Equal([]any{}, body["suggestions"])
	routingBody := body["routing"].(map[string]any)
	s.Equal("communications", routingBody["primary"])
	s.Equal([]any{}, routingBody["secondary"])
}

func (s *HandlerSuite) TestQueryFailureIsBadGateway() {
	s.service.query = func(req orchestrator.QueryRequest) (*orchestrator.QueryResponse, error) {
		return nil, &orchestrator.QueryError{Query: req.Query, Message: "no responder could answer", Err: errors.New("all down")}
	}

	rec := s.do(http.MethodPost, "/query", `{"query":"hello"}`)
	s.Require().Equal(http.StatusBadGateway, rec.Code)
	var body queryErrorResponse
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
	s.Equal("bad_gateway", body.Error)
	s.Equal("hello", body.Query)
	s.NotContains(rec.Body.String(), "all down")
}

func (s *HandlerSuite) TestQueryValidation() {
	for _, body := range []string{`{`, `{"query":""}`, `{"query":"` + strings.Repeat("x", maxQueryLength+1) + `"}`} {
		rec := s.do(http.MethodPost, "/query", body)
		s.Equal(http.StatusBadRequest, rec.Code)
	}
}

func (s *HandlerSuite) TestBriefing() {
	s.Run("query parameter", func() {
		rec := s.do(http.MethodPost, "/briefing?user_id=petr", "")
		s.Require().Equal(http.StatusOK, rec.Code)
		s.Equal("petr", s.service.briefed)
		var body briefingResponse
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
		s.Equal("agenda", body.Response)
		s.Equal("personal", body.Agent)
		s.NotNil(body.Sources)
	})

	s.Run("body wins", func() {
		rec := s.do(http.MethodPost, "/briefing?user_id=petr", `{"user_id":"jana"}`)
		s.Require().Equal(http.StatusOK, rec.Code)
		s.Equal("jana", s.service.briefed)
	})

	s.Run("failure", func() {
		s.service.briefErr = &orchestrator.QueryError{Query: orchestrator.BriefingQuery, Message: "down", Err: errors.New("x")}
		rec := s.do(http.MethodPost, "/briefing", "")
		s.Equal(http.StatusBadGateway, rec.Code)
	})
}

func (s *HandlerSuite) TestHealthAndStats() {
	rec := s.do(http.MethodGet, "/health", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"status":"degraded"`)
	s.Contains(rec.Body.String(), `"data":"unreachable"`)

	rec = s.do(http.MethodGet, "/stats", "")
	s.Equal(http.StatusInternalServerError, rec.Code)

	s.service.stats = &orchestrator.Stats{QueriesServed: 4, ActiveAssistants: []domains.Domain{domains.Data}}
	rec = s.do(http.MethodGet, "/stats", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"queries_served":4`)
}

package assistant

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"lucy/internal/domains"
	"lucy/internal/execution"
	"lucy/internal/memory"
	memmodels "lucy/internal/memory/models"
	"lucy/internal/memory/store"
	dErrors "lucy/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	memory   *memory.Service
	learning *memory.Learning
	service  *Service
	ctx      context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.memory = memory.NewService(store.NewInMemoryStore())
	s.learning = memory.NewLearning(s.memory)
	cfg := domains.Config{Domain: domains.Dev, Name: "Lucy-Dev", Namespace: "lucy_dev"}
	s.service = NewService(cfg, s.memory, s.learning, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (s *ServiceSuite) add(content, category string) {
	_, err := s.memory.Add(s.ctx, "lucy_dev", content, category, nil)
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestAnswersFromMemories() {
	s.add("Docker builds use the buildx cache mount", "docker_setups")
	s.add("VSCode devcontainer pins Go 1.25", "dev_configs")
	s.add("Unrelated note about invoices", "dev_configs")

	res, err := s.service.Answer(s.ctx, "How do I speed up docker builds?", nil)
	s.Require().NoError(err)
	s.Equal(domains.Dev, res.Domain)
	s.Equal(matchedConfidence, res.Confidence)
	s.Contains(res.Response, "buildx cache mount")
	s.NotContains(res.Response, "invoices")
	s.Require().Len(res.Sources, 1)
	s.Equal("lucy_dev_1", res.Sources[0]["memory_id"])
	s.NotEmpty(res.Sources[0]["date"])
	s.Equal("1", res.Metadata["memories"])
}

func (s *ServiceSuite) TestDeduplicatesAcrossTerms() {
	s.add("docker compose watch rebuilds on save", "docker_setups")

	res, err := s.service.Answer(s.ctx, "docker compose", nil)
	s.Require().NoError(err)
	s.Len(res.Sources, 1)
}

func (s *ServiceSuite) TestIncludesLearnings() {
	_, err := s.learning.SaveCorrection(s.ctx, "lucy_dev", memory.Correction{
		Query:     "restart the dev stack",
		Incorrect: "docker system prune",
		Correct:   "docker compose restart",
	})
	s.Require().NoError(err)

	res, err := s.service.Answer(s.ctx, "restart the dev stack", nil)
	s.Require().NoError(err)
	s.Equal(learnedConfidence, res.Confidence, "corrections are not counted as plain memories")
	s.Contains(res.Response, "Learned (correction)")
	s.Contains(res.Response, "docker compose restart")
	s.Empty(res.Sources)
}

func (s *ServiceSuite) TestFallback() {
	res, err := s.service.Answer(s.ctx, "anything at all", nil)
	s.Require().NoError(err)
	s.Equal(fallbackConfidence, res.Confidence)
	s.Equal("Fallback handler", res.Reasoning)
	s.NotNil(res.Sources)
}

func (s *ServiceSuite) TestBuildsOnPrimaryResult() {
	res, err := s.service.Answer(s.ctx, "summarize", map[string]any{
		execution.PrimaryResultKey: map[string]any{"domain": "communications", "response": "2 emails"},
	})
	s.Require().NoError(err)
	s.Contains(res.Response, "Building on communications: 2 emails")
}

func (s *ServiceSuite) TestEmptyQuery() {
	_, err := s.service.Answer(s.ctx, "  ", nil)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

type failingMemory struct{}

func (failingMemory) Search(context.Context, memmodels.Query) ([]memmodels.Record, error) {
	return nil, errors.New("store offline")
}

func (s *ServiceSuite) TestMemoryFailure() {
	svc := NewService(domains.Config{Domain: domains.Dev, Namespace: "lucy_dev"}, failingMemory{}, s.learning, nil)
	_, err := svc.Answer(s.ctx, "docker builds", nil)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func TestTerms(t *testing.T) {
	got := terms("How do I build the Docker image? docker-compose, build!")
	want := []string{"build", "docker", "image", "docker-compose"}
	if len(got) != len(want) {
		t.Fatalf("terms = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("terms = %v, want %v", got, want)
		}
	}
}

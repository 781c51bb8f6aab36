package execution

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"lucy/internal/domains"
	"lucy/internal/execution/metrics"
	"lucy/internal/responder"
	"lucy/internal/responder/mocks"
	"lucy/internal/routing"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type source map[domains.Domain]responder.Responder

func (s source) Get(d domains.Domain) (responder.Responder, bool) {
	r, ok := s[d]
	return r, ok
}

type EngineSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	comms   *mocks.MockResponder
	data    *mocks.MockResponder
	know    *mocks.MockResponder
	metrics *metrics.Metrics
	engine  *Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.comms = mocks.NewMockResponder(s.ctrl)
	s.data = mocks.NewMockResponder(s.ctrl)
	s.know = mocks.NewMockResponder(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())

	var err error
	s.engine, err = New(s.source(),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
		WithCallTimeout(time.Second),
	)
	s.Require().NoError(err)
}

func (s *EngineSuite) source() source {
	return source{
		domains.Communications: s.comms,
		domains.Data:           s.data,
		domains.Knowledge:      s.know,
	}
}

func (s *EngineSuite) TearDownTest() {
	s.ctrl.Finish()
}

func single(d domains.Domain) routing.Decision {
	return routing.Decision{Primary: d, Strategy: routing.StrategySingle, Confidence: routing.KeywordConfidence}
}

func multi(strategy routing.Strategy, primary domains.Domain, secondary ...domains.Domain) routing.Decision {
	return routing.Decision{Primary: primary, Secondary: secondary, Strategy: strategy, Confidence: routing.PatternConfidence}
}

// =============================================================================
// Single
// =============================================================================

func (s *EngineSuite) TestSingleReturnsResponseVerbatim() {
	s.know.EXPECT().Query(gomock.Any(), "what is RAG", gomock.Nil()).Return(&responder.Result{
		Response:   "Retrieval augmented generation.",
		Confidence: 0.9,
		Sources:    []responder.Source{{"doc": "rag.md"}},
	}, nil)

	res, err := s.engine.Execute(context.Background(), single(domains.Knowledge), "what is RAG", nil)
	s.Require().NoError(err)
	s.Equal("Retrieval augmented generation.", res.Response)
	s.Equal([]domains.Domain{domains.Knowledge}, res.Domains)
	s.Equal(0.9, res.Confidence)
	s.Len(res.Sources, 1)
	s.Equal("knowledge", res.Agent())
	s.False(res.Partial())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Executions.WithLabelValues("single", "complete")))
}

func (s *EngineSuite) TestSingleFailureIsFatal() {
	s.know.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("boom"))

	res, err := s.engine.Execute(context.Background(), single(domains.Knowledge), "q", nil)
	s.Nil(res)
	s.Require().Error(err)
	s.ErrorIs(err, responder.ErrResponderUnavailable)

	var ue *UnavailableError
	s.Require().ErrorAs(err, &ue)
	s.Contains(ue.Errors, domains.Knowledge)
	s.Equal(responder.CategoryInternal, responder.CategoryOf(ue.Errors[domains.Knowledge]))
}

func (s *EngineSuite) TestUnregisteredDomainIsNotConfigured() {
	_, err := s.engine.Execute(context.Background(), single(domains.Business), "q", nil)
	s.Require().Error(err)

	var ue *UnavailableError
	s.Require().ErrorAs(err, &ue)
	s.Equal(responder.CategoryNotConfigured, responder.CategoryOf(ue.Errors[domains.Business]))
	s.ErrorIs(err, responder.ErrNotConfigured)
}

func (s *EngineSuite) TestNilResultIsBadResponse() {
	s.know.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	_, err := s.engine.Execute(context.Background(), single(domains.Knowledge), "q", nil)
	s.Require().Error(err)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ResponderFailures.WithLabelValues("knowledge", "bad_response")))
}

func (s *EngineSuite) TestResultDomainIsStampedByEngine() {
	s.know.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).Return(&responder.Result{
		Domain: domains.Dev, Response: "x", Confidence: 0.5,
	}, nil)

	res, err := s.engine.Execute(context.Background(), single(domains.Knowledge), "q", nil)
	s.Require().NoError(err)
	s.Equal([]domains.Domain{domains.Knowledge}, res.Domains)
}

// =============================================================================
// Sequential
// =============================================================================

func (s *EngineSuite) TestSequentialPassesPrimaryResult() {
	qctx := map[string]any{"user_id": "u1"}
	first := s.comms.EXPECT().Query(gomock.Any(), "emails about Qdrant", qctx).Return(&responder.Result{
		Response: "2 emails", Confidence: 0.6, Sources: []responder.Source{{"id": "m1"}},
	}, nil)
	s.data.EXPECT().Query(gomock.Any(), "emails about Qdrant", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, got map[string]any) (*responder.Result, error) {
			s.Equal("u1", got["user_id"])
			primary, ok := got[PrimaryResultKey].(map[string]any)
			s.Require().True(ok)
			s.Equal("2 emails", primary["response"])
			s.Equal("communications", primary["domain"])
			return &responder.Result{Response: "1 collection", Confidence: 0.8}, nil
		}).After(first)

	res, err := s.engine.Execute(context.Background(),
		multi(routing.StrategySequential, domains.Communications, domains.Data), "emails about Qdrant", qctx)
	s.Require().NoError(err)
	s.Equal("**COMMUNICATIONS:**\n2 emails\n\n**DATA:**\n1 collection", res.Response)
	s.Equal([]domains.Domain{domains.Communications, domains.Data}, res.Domains)
	s.InDelta(0.7, res.Confidence, 1e-9)
	s.Equal("multi-agent", res.Agent())
	s.NotContains(qctx, PrimaryResultKey, "caller context must not be mutated")
}

func (s *EngineSuite) TestSequentialContinuesWithoutFailedPrimary() {
	s.comms.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("down"))
	s.data.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, got map[string]any) (*responder.Result, error) {
			s.NotContains(got, PrimaryResultKey)
			return &responder.Result{Response: "only data", Confidence: 0.8}, nil
		})

	res, err := s.engine.Execute(context.Background(),
		multi(routing.StrategySequential, domains.Communications, domains.Data), "q", nil)
	s.Require().NoError(err)
	s.Equal("only data", res.Response)
	s.True(res.Partial())
	s.Contains(res.Errors, domains.Communications)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Executions.WithLabelValues("sequential", "partial")))
}

// =============================================================================
// Parallel
// =============================================================================

func (s *EngineSuite) TestParallelAveragesConfidence() {
	s.comms.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&responder.Result{Response: "mail", Confidence: 0.6, Sources: []responder.Source{{"id": "a"}}}, nil)
	s.data.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&responder.Result{Response: "rows", Confidence: 0.8, Sources: []responder.Source{{"id": "b"}}}, nil)

	res, err := s.engine.Execute(context.Background(),
		multi(routing.StrategyParallel, domains.Communications, domains.Data), "q", nil)
	s.Require().NoError(err)
	s.InDelta(0.7, res.Confidence, 1e-9)
	s.ElementsMatch([]domains.Domain{domains.Communications, domains.Data}, res.Domains)
	s.Len(res.Sources, 2)
	s.Contains(res.Response, "**COMMUNICATIONS:**\nmail")
	s.Contains(res.Response, "**DATA:**\nrows")
	s.Len(res.Latencies, 2)
}

func (s *EngineSuite) TestEveryResponderCallIsTraced() {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { s.NoError(tp.Shutdown(context.Background())) }()

	engine, err := New(s.source(),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithTracer(tp.Tracer("lucy/execution")),
		WithCallTimeout(time.Second),
	)
	s.Require().NoError(err)

	s.comms.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).Return(&responder.Result{Response: "mail", Confidence: 0.6}, nil)
	s.data.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("boom"))

	_, _ = engine.Execute(context.Background(),
		multi(routing.StrategyParallel, domains.Communications, domains.Data), "q", nil)

	ended := recorder.Ended()
	s.Require().Len(ended, 2)
	byDomain := map[string]sdktrace.ReadOnlySpan{}
	for _, span := range ended {
		s.Equal("responder.query", span.Name())
		s.True(span.SpanContext().IsValid())
		attrs := map[attribute.Key]string{}
		for _, kv := range span.Attributes() {
			attrs[kv.Key] = kv.Value.Emit()
		}
		s.Equal("parallel", attrs["lucy.strategy"])
		byDomain[attrs["lucy.domain"]] = span
	}
	s.Require().Contains(byDomain, "communications")
	s.Require().Contains(byDomain, "data")
	s.Equal(codes.Unset, byDomain["communications"].Status().Code)
	s.Equal(codes.Error, byDomain["data"].Status().Code)
	s.Equal(string(responder.CategoryInternal), byDomain["data"].Status().Description)
}

func (s *EngineSuite) TestParallelMergesInCompletionOrder() {
	s.comms.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string, _ map[string]any) (*responder.Result, error) {
			time.Sleep(50 * time.Millisecond)
			return &responder.Result{Response: "slow", Confidence: 0.5}, nil
		})
	s.data.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&responder.Result{Response: "fast", Confidence: 0.5}, nil)

	res, err := s.engine.Execute(context.Background(),
		multi(routing.StrategyParallel, domains.Communications, domains.Data), "q", nil)
	s.Require().NoError(err)
	s.Equal([]domains.Domain{domains.Data, domains.Communications}, res.Domains)
	s.Equal("**DATA:**\nfast\n\n**COMMUNICATIONS:**\nslow", res.Response)
}

func (s *EngineSuite) TestParallelPartialFailureDoesNotCancelSiblings() {
	s.comms.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("down"))
	s.data.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string, _ map[string]any) (*responder.Result, error) {
			time.Sleep(20 * time.Millisecond)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return &responder.Result{Response: "rows", Confidence: 0.8}, nil
		})

	res, err := s.engine.Execute(context.Background(),
		multi(routing.StrategyParallel, domains.Communications, domains.Data), "q", nil)
	s.Require().NoError(err)
	s.Equal("rows", res.Response)
	s.Equal(0.8, res.Confidence)
	s.True(res.Partial())
}

func (s *EngineSuite) TestParallelTotalFailure() {
	s.comms.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("down"))
	s.data.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("down too"))

	_, err := s.engine.Execute(context.Background(),
		multi(routing.StrategyParallel, domains.Communications, domains.Data), "q", nil)
	s.Require().Error(err)
	s.ErrorIs(err, responder.ErrResponderUnavailable)
	s.Contains(err.Error(), "communications, data")
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Executions.WithLabelValues("parallel", "failed")))
}

// =============================================================================
// Deadlines and cancellation
// =============================================================================

func (s *EngineSuite) TestCallTimeoutIsClassified() {
	engine, err := New(source{domains.Knowledge: s.know},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithCallTimeout(20*time.Millisecond),
	)
	s.Require().NoError(err)
	s.know.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string, _ map[string]any) (*responder.Result, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	_, err = engine.Execute(context.Background(), single(domains.Knowledge), "q", nil)
	s.Require().Error(err)
	var ue *UnavailableError
	s.Require().ErrorAs(err, &ue)
	s.Equal(responder.CategoryTimeout, responder.CategoryOf(ue.Errors[domains.Knowledge]))
	s.ErrorIs(err, context.DeadlineExceeded)
}

func (s *EngineSuite) TestCanceledRequestStopsAllCalls() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	wait := func(ctx context.Context, _ string, _ map[string]any) (*responder.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	s.comms.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(wait)
	s.data.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(wait)

	_, err := s.engine.Execute(ctx, multi(routing.StrategyParallel, domains.Communications, domains.Data), "q", nil)
	s.Require().Error(err)
	var ue *UnavailableError
	s.Require().ErrorAs(err, &ue)
	for _, d := range []domains.Domain{domains.Communications, domains.Data} {
		s.Equal(responder.CategoryCanceled, responder.CategoryOf(ue.Errors[d]))
	}
}

func (s *EngineSuite) TestUnknownStrategy() {
	_, err := s.engine.Execute(context.Background(), routing.Decision{Primary: domains.Knowledge, Strategy: "broadcast"}, "q", nil)
	s.Require().Error(err)
	s.NotErrorIs(err, responder.ErrResponderUnavailable)
}

func TestNewRequiresSource(t *testing.T) {
	_, err := New(nil)
	if err == nil {
		t.Fatal("expected error for nil source")
	}
}

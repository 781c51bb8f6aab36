package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"lucy/internal/assistant"
	assistanthandler "lucy/internal/assistant/handler"
	"lucy/internal/domains"
	"lucy/internal/errorlearning"
	"lucy/internal/errorlearning/alert"
	errorhandler "lucy/internal/errorlearning/handler"
	errormetrics "lucy/internal/errorlearning/metrics"
	errorstore "lucy/internal/errorlearning/store"
	"lucy/internal/evaluation"
	evalhandler "lucy/internal/evaluation/handler"
	evalmetrics "lucy/internal/evaluation/metrics"
	"lucy/internal/execution"
	execmetrics "lucy/internal/execution/metrics"
	"lucy/internal/memory"
	memhandler "lucy/internal/memory/handler"
	memmetrics "lucy/internal/memory/metrics"
	memstore "lucy/internal/memory/store"
	"lucy/internal/orchestrator"
	orchhandler "lucy/internal/orchestrator/handler"
	orchmetrics "lucy/internal/orchestrator/metrics"
	"lucy/internal/platform/config"
	"lucy/internal/platform/kafka"
	"lucy/internal/platform/postgres"
	"lucy/internal/platform/redis"
	"lucy/internal/responder"
	"lucy/internal/routing"
	"lucy/pkg/platform/circuit"
	"lucy/pkg/platform/replay"
)

type registrar interface {
	Register(r chi.Router)
}

// role is everything one LUCY_MODE needs at runtime.
type role struct {
	handlers   []registrar
	background []func(ctx context.Context) error
	closers    []func()
}

func (r *role) close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

func evaluatorRole(log *slog.Logger) *role {
	return &role{handlers: []registrar{evalhandler.New(evaluation.Scorer{}, log)}}
}

func assistantRole(ctx context.Context, cfg config.Server, reg prometheus.Registerer, log *slog.Logger) (*role, error) {
	registry, err := domains.DefaultRegistry()
	if err != nil {
		return nil, err
	}
	dc, ok := registry.Get(cfg.Assistant)
	if !ok {
		return nil, fmt.Errorf("assistant %s is not configured", cfg.Assistant)
	}

	app := &role{}
	mem, err := setupMemory(ctx, cfg, reg, log, app)
	if err != nil {
		app.close()
		return nil, err
	}
	if _, err := mem.CreateNamespace(ctx, dc.Namespace, dc.Description); err != nil {
		log.Warn("namespace not persisted", "namespace", dc.Namespace, "error", err)
	}
	learning := memory.NewLearning(mem)

	svc := assistant.NewService(dc, mem, learning, log)
	app.handlers = append(app.handlers,
		assistanthandler.New(svc, log),
		memhandler.New(mem, learning, log),
	)
	return app, nil
}

func orchestratorRole(ctx context.Context, cfg config.Server, reg prometheus.Registerer, log *slog.Logger) (*role, error) {
	registry, err := domains.DefaultRegistry()
	if err != nil {
		return nil, err
	}

	app := &role{}
	fail := func(err error) (*role, error) {
		app.close()
		return nil, err
	}

	mem, err := setupMemory(ctx, cfg, reg, log, app)
	if err != nil {
		return fail(err)
	}
	for _, dc := range registry.All() {
		if _, err := mem.CreateNamespace(ctx, dc.Namespace, dc.Description); err != nil {
			log.Warn("namespace not persisted", "namespace", dc.Namespace, "error", err)
		}
	}
	learning := memory.NewLearning(mem)

	errs, err := setupErrorLearning(ctx, cfg, reg, log, mem, app)
	if err != nil {
		return fail(err)
	}

	responders := responder.NewRegistry()
	for _, d := range domains.Routable {
		url, ok := cfg.Responder.URLs[d]
		if !ok {
			continue
		}
		responders.Register(responder.NewHTTPResponder(d, url, breaker(cfg, string(d))))
	}
	var evaluator responder.Evaluator
	if cfg.Responder.EvaluatorURL != "" {
		evaluator = responder.NewHTTPEvaluator(cfg.Responder.EvaluatorURL, breaker(cfg, "evaluator"))
	}

	table, err := routing.DefaultTable()
	if err != nil {
		return fail(err)
	}
	router, err := routing.New(table, cfg.DefaultDomain)
	if err != nil {
		return fail(err)
	}
	engine, err := execution.New(responders,
		execution.WithLogger(log),
		execution.WithMetrics(execmetrics.New(reg)),
		execution.WithCallTimeout(cfg.Responder.CallTimeout),
	)
	if err != nil {
		return fail(err)
	}
	gate := evaluation.NewGate(evaluator,
		evaluation.WithTimeout(cfg.Responder.EvaluatorTimeout),
		evaluation.WithLogger(log),
		evaluation.WithMetrics(evalmetrics.New(reg)),
	)

	svc := orchestrator.New(router, engine, gate, mem,
		orchestrator.WithLogger(log),
		orchestrator.WithMetrics(orchmetrics.New(reg)),
		orchestrator.WithHealth(responders, evaluator, cfg.Responder.HealthTimeout),
		orchestrator.WithErrorStats(errs),
	)

	app.handlers = append(app.handlers,
		orchhandler.New(svc, log),
		errorhandler.New(errs, log),
		memhandler.New(mem, learning, log),
	)
	return app, nil
}

func breaker(cfg config.Server, name string) responder.Option {
	b := circuit.New(name, circuit.WithFailureThreshold(cfg.Responder.BreakerThreshold))
	return responder.WithBreaker(b, cfg.Responder.BreakerCooldown)
}

// setupMemory keeps memories in process and mirrors them to Redis when a URL
// is configured. The replay loop is registered as a background task.
func setupMemory(ctx context.Context, cfg config.Server, reg prometheus.Registerer, log *slog.Logger, app *role) (*memory.Service, error) {
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if client == nil {
		m := memmetrics.New(reg, func() int { return 0 })
		log.Info("redis not configured, memories are kept in process only")
		return memory.NewService(memstore.NewInMemoryStore(), memory.WithLogger(log), memory.WithMetrics(m)), nil
	}
	app.closers = append(app.closers, func() { closeRedis(client, log) })

	queue := replay.New(
		replay.WithCapacity(cfg.Replay.Capacity),
		replay.WithInterval(cfg.Replay.Interval),
		replay.WithLogger(log),
	)
	mem := memory.NewService(memstore.NewInMemoryStore(),
		memory.WithDurable(memstore.NewRedis(client), queue),
		memory.WithLogger(log),
		memory.WithMetrics(memmetrics.New(reg, queue.Len)),
	)
	n, err := mem.Warm(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("memory warmed from redis", "namespaces", n)
	app.background = append(app.background, queue.Run)
	return mem, nil
}

// setupErrorLearning stores error records in Postgres when a DSN is set and
// publishes repeated-error alerts to Kafka when brokers are set. Observations
// the store cannot take are replayed in the background.
func setupErrorLearning(ctx context.Context, cfg config.Server, reg prometheus.Registerer, log *slog.Logger, mem *memory.Service, app *role) (*errorlearning.Service, error) {
	var store errorlearning.Store = errorstore.NewInMemoryStore()
	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	if db != nil {
		app.closers = append(app.closers, func() { closeDB(db, log) })
		pg := errorstore.NewPostgres(db)
		if err := pg.Migrate(ctx); err != nil {
			return nil, err
		}
		store = pg
	}

	queue := replay.New(
		replay.WithCapacity(cfg.Replay.Capacity),
		replay.WithInterval(cfg.Replay.Interval),
		replay.WithLogger(log),
	)
	app.background = append(app.background, queue.Run)

	opts := []errorlearning.Option{
		errorlearning.WithReplay(queue),
		errorlearning.WithLogger(log),
		errorlearning.WithMetrics(errormetrics.New(reg)),
	}
	client, err := kafka.New(cfg.Kafka)
	if err != nil {
		return nil, err
	}
	if client != nil {
		app.closers = append(app.closers, client.Close)
		if err := kafka.EnsureTopic(ctx, client, cfg.Kafka); err != nil {
			return nil, err
		}
		opts = append(opts, errorlearning.WithAlertPublisher(alert.NewKafkaPublisher(client, cfg.Kafka.AlertTopic)))
	}
	return errorlearning.NewService(store, mem, opts...), nil
}

func closeRedis(client *goredis.Client, log *slog.Logger) {
	if err := client.Close(); err != nil {
		log.Warn("closing redis", "error", err)
	}
}

func closeDB(db *sql.DB, log *slog.Logger) {
	if err := db.Close(); err != nil {
		log.Warn("closing postgres", "error", err)
	}
}

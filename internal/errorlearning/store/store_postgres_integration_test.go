//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"lucy/internal/errorlearning/models"
	"lucy/internal/errorlearning/store"
	"lucy/pkg/platform/sentinel"
	"lucy/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	t0       time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
	s.t0 = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "error_records"))
}

func (s *PostgresStoreSuite) record(id string, sev models.Severity, at time.Time) models.Record {
	return models.Record{
		ErrorID:       id,
		ErrorType:     "deploy",
		WhatHappened:  "what " + id,
		WhyHappened:   "why " + id,
		HowToFix:      "fix " + id,
		Severity:      sev,
		Context:       map[string]any{"service": "api", "attempt": "1"},
		FirstOccurred: at,
		LastOccurred:  at,
	}
}

func (s *PostgresStoreSuite) TestMigrateIsRepeatable() {
	s.NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresStoreSuite) TestUpsertKeepsFirstSeenFields() {
	ctx := context.Background()
	first, err := s.store.Upsert(ctx, s.record("a", models.SeverityHigh, s.t0))
	s.Require().NoError(err)
	s.Equal(1, first.OccurrenceCount)
	s.Equal(map[string]any{"service": "api", "attempt": "1"}, first.Context)

	later := s.record("a", models.SeverityLow, s.t0.Add(time.Hour))
	later.WhatHappened = "changed"
	second, err := s.store.Upsert(ctx, later)
	s.Require().NoError(err)
	s.Equal(2, second.OccurrenceCount)
	s.Equal(models.SeverityHigh, second.Severity)
	s.Equal("what a", second.WhatHappened)
	s.True(s.t0.Equal(second.FirstOccurred))
	s.True(s.t0.Add(time.Hour).Equal(second.LastOccurred))

	s.Run("an older observation does not move last occurred back", func() {
		third, err := s.store.Upsert(ctx, s.record("a", models.SeverityHigh, s.t0))
		s.Require().NoError(err)
		s.Equal(3, third.OccurrenceCount)
		s.True(s.t0.Add(time.Hour).Equal(third.LastOccurred))
	})
}

func (s *PostgresStoreSuite) TestGet() {
	ctx := context.Background()
	_, err := s.store.Upsert(ctx, s.record("a", models.SeverityMedium, s.t0))
	s.Require().NoError(err)

	got, err := s.store.Get(ctx, "a")
	s.Require().NoError(err)
	s.Equal("fix a", got.HowToFix)

	_, err = s.store.Get(ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListOrdering() {
	ctx := context.Background()
	upsert := func(id string, sev models.Severity, at time.Time, times int) {
		for range times {
			_, err := s.store.Upsert(ctx, s.record(id, sev, at))
			s.Require().NoError(err)
		}
	}
	upsert("a", models.SeverityLow, s.t0, 2)
	upsert("b", models.SeverityCritical, s.t0.Add(time.Minute), 1)
	upsert("c", models.SeverityCritical, s.t0.Add(2*time.Minute), 3)

	byCount, err := s.store.ListByCount(ctx)
	s.Require().NoError(err)
	s.Equal([]string{"c", "a", "b"}, ids(byCount))

	critical, err := s.store.ListBySeverity(ctx, models.SeverityCritical)
	s.Require().NoError(err)
	s.Equal([]string{"c", "b"}, ids(critical))

	none, err := s.store.ListBySeverity(ctx, models.SeverityMedium)
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *PostgresStoreSuite) TestConcurrentUpsertsLoseNoCount() {
	ctx := context.Background()
	const writers = 100

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := range writers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.store.Upsert(ctx, s.record("hot", models.SeverityHigh, s.t0.Add(time.Duration(i)*time.Second)))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	got, err := s.store.Get(ctx, "hot")
	s.Require().NoError(err)
	s.Equal(writers, got.OccurrenceCount)
	s.True(s.t0.Add((writers - 1) * time.Second).Equal(got.LastOccurred))
}

func ids(recs []models.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ErrorID
	}
	return out
}

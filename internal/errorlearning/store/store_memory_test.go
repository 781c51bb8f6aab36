package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"lucy/internal/errorlearning/models"
	"lucy/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	t0    time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
	s.t0 = time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) record(id string, sev models.Severity, at time.Time) models.Record {
	return models.Record{
		ErrorID:       id,
		ErrorType:     "type_" + id,
		WhatHappened:  "what " + id,
		Severity:      sev,
		Context:       map[string]any{"k": "v"},
		FirstOccurred: at,
		LastOccurred:  at,
	}
}

func (s *InMemoryStoreSuite) TestUpsert() {
	first, err := s.store.Upsert(s.ctx, s.record("a", models.SeverityLow, s.t0))
	s.Require().NoError(err)
	s.Equal(1, first.OccurrenceCount)

	later := s.record("a", models.SeverityCritical, s.t0.Add(time.Minute))
	later.WhatHappened = "changed"
	second, err := s.store.Upsert(s.ctx, later)
	s.Require().NoError(err)
	s.Equal(2, second.OccurrenceCount)
	s.Equal(models.SeverityLow, second.Severity)
	s.Equal("what a", second.WhatHappened)
	s.Equal(s.t0, second.FirstOccurred)
	s.Equal(s.t0.Add(time.Minute), second.LastOccurred)

	s.Run("an older observation does not move last occurred back", func() {
		third, err := s.store.Upsert(s.ctx, s.record("a", models.SeverityLow, s.t0))
		s.Require().NoError(err)
		s.Equal(3, third.OccurrenceCount)
		s.Equal(s.t0.Add(time.Minute), third.LastOccurred)
	})
}

func (s *InMemoryStoreSuite) TestGetReturnsCopy() {
	_, err := s.store.Get(s.ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.Upsert(s.ctx, s.record("a", models.SeverityLow, s.t0))
	s.Require().NoError(err)
	got, err := s.store.Get(s.ctx, "a")
	s.Require().NoError(err)
	got.Context["k"] = "mutated"

	again, err := s.store.Get(s.ctx, "a")
	s.Require().NoError(err)
	s.Equal("v", again.Context["k"])
}

func (s *InMemoryStoreSuite) TestListing() {
	for i, id := range []string{"a", "b", "c"} {
		sev := models.SeverityLow
		if id != "a" {
			sev = models.SeverityCritical
		}
		_, err := s.store.Upsert(s.ctx, s.record(id, sev, s.t0.Add(time.Duration(i)*time.Minute)))
		s.Require().NoError(err)
	}
	_, err := s.store.Upsert(s.ctx, s.record("c", models.SeverityCritical, s.t0))
	s.Require().NoError(err)

	byCount, err := s.store.ListByCount(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(byCount, 3)
	s.Equal([]string{"c", "a", "b"}, ids(byCount))

	critical, err := s.store.ListBySeverity(s.ctx, models.SeverityCritical)
	s.Require().NoError(err)
	s.Equal([]string{"c", "b"}, ids(critical))

	none, err := s.store.ListBySeverity(s.ctx)
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *InMemoryStoreSuite) TestConcurrentUpsertsCountEveryObservation() {
	const n = 200
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := "a"
			if i%2 == 1 {
				id = "b"
			}
			_, err := s.store.Upsert(s.ctx, s.record(id, models.SeverityLow, s.t0))
			s.NoError(err)
		}()
	}
	wg.Wait()

	for _, id := range []string{"a", "b"} {
		rec, err := s.store.Get(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(n/2, rec.OccurrenceCount)
	}
}

func ids(records []models.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ErrorID
	}
	return out
}

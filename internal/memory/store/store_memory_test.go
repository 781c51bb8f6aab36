package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"lucy/internal/memory/models"
	"lucy/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) add(ns, content, category string) models.Record {
	rec, err := s.store.Add(s.ctx, ns, content, category, nil)
	s.Require().NoError(err)
	return rec
}

func (s *InMemoryStoreSuite) TestAddAssignsSequentialIDs() {
	a := s.add("lucy_knowledge", "Qdrant filters use FieldCondition", "technical_knowledge")
	b := s.add("lucy_knowledge", "Use MatchValue for exact matches", "technical_knowledge")
	c := s.add("lucy_projects", "Linear tasks default to active", "user_preference")

	s.Equal("lucy_knowledge_1", a.ID)
	s.Equal("lucy_knowledge_2", b.ID)
	s.Equal("lucy_projects_1", c.ID)
	s.NotNil(a.Metadata)
	s.False(a.CreatedAt.IsZero())
}

func (s *InMemoryStoreSuite) TestIDsAreNotReusedAfterDelete() {
	s.add("ns", "one", "c")
	second := s.add("ns", "two", "c")
	_, err := s.store.Delete(s.ctx, "ns", second.ID)
	s.Require().NoError(err)

	third := s.add("ns", "three", "c")
	s.Equal("ns_3", third.ID)
}

func (s *InMemoryStoreSuite) TestSearch() {
	s.add("ns", "User prefers CONCISE email summaries", "user_preference")
	s.add("ns", "Qdrant filters", "technical_knowledge")
	s.add("ns", "Concise answers for data queries", "correction")
	s.add("ns", "Another concise note", "user_preference")

	s.Run("case-insensitive substring in append order", func() {
		got, err := s.store.Search(s.ctx, models.Query{Namespace: "ns", Text: "concise"})
		s.Require().NoError(err)
		s.Require().Len(got, 3)
		s.Equal("ns_1", got[0].ID)
		s.Equal("ns_3", got[1].ID)
		s.Equal("ns_4", got[2].ID)
	})

	s.Run("category filter", func() {
		got, err := s.store.Search(s.ctx, models.Query{Namespace: "ns", Text: "concise", Category: "user_preference"})
		s.Require().NoError(err)
		s.Len(got, 2)
	})

	s.Run("limit", func() {
		got, err := s.store.Search(s.ctx, models.Query{Namespace: "ns", Limit: 2})
		s.Require().NoError(err)
		s.Len(got, 2)
	})

	s.Run("unknown namespace is empty", func() {
		got, err := s.store.Search(s.ctx, models.Query{Namespace: "missing", Text: "x"})
		s.Require().NoError(err)
		s.NotNil(got)
		s.Empty(got)
	})
}

func (s *InMemoryStoreSuite) TestSearchDefaultLimit() {
	for i := range 15 {
		s.add("ns", fmt.Sprintf("note %d", i), "c")
	}
	got, err := s.store.Search(s.ctx, models.Query{Namespace: "ns"})
	s.Require().NoError(err)
	s.Len(got, models.DefaultSearchLimit)
}

func (s *InMemoryStoreSuite) TestReturnedRecordsAreCopies() {
	rec, err := s.store.Add(s.ctx, "ns", "content", "c", map[string]any{"k": "v"})
	s.Require().NoError(err)
	rec.Metadata["k"] = "changed"

	got, err := s.store.Get(s.ctx, "ns", rec.ID)
	s.Require().NoError(err)
	s.Equal("v", got.Metadata["k"])
}

func (s *InMemoryStoreSuite) TestUpdate() {
	rec, err := s.store.Add(s.ctx, "ns", "old", "c", map[string]any{"a": 1})
	s.Require().NoError(err)

	s.Run("merges metadata and keeps content when empty", func() {
		got, err := s.store.Update(s.ctx, "ns", rec.ID, "", map[string]any{"b": 2})
		s.Require().NoError(err)
		s.Equal("old", got.Content)
		s.Equal(map[string]any{"a": 1, "b": 2}, got.Metadata)
	})

	s.Run("replaces content", func() {
		got, err := s.store.Update(s.ctx, "ns", rec.ID, "new", nil)
		s.Require().NoError(err)
		s.Equal("new", got.Content)
	})

	s.Run("missing record", func() {
		_, err := s.store.Update(s.ctx, "ns", "ns_99", "x", nil)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryStoreSuite) TestStatsTrackCategories() {
	s.add("ns", "a", "correction")
	s.add("ns", "b", "correction")
	rec := s.add("ns", "c", "user_preference")

	stats, err := s.store.Stats(s.ctx, "ns")
	s.Require().NoError(err)
	s.Equal(3, stats.TotalMemories)
	s.Equal(map[string]int{"correction": 2, "user_preference": 1}, stats.Categories)

	_, err = s.store.Delete(s.ctx, "ns", rec.ID)
	s.Require().NoError(err)
	stats, err = s.store.Stats(s.ctx, "ns")
	s.Require().NoError(err)
	s.Equal(map[string]int{"correction": 2}, stats.Categories)

	_, err = s.store.Stats(s.ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestCreateNamespace() {
	info, created, err := s.store.CreateNamespace(s.ctx, "lucy_dev", "dev memories")
	s.Require().NoError(err)
	s.True(created)
	s.Equal("dev memories", info.Description)

	_, created, err = s.store.CreateNamespace(s.ctx, "lucy_dev", "other")
	s.Require().NoError(err)
	s.False(created)

	names, err := s.store.Namespaces(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"lucy_dev"}, names)
}

func (s *InMemoryStoreSuite) TestExportImportRoundTrip() {
	s.add("src", "one", "a")
	s.add("src", "two", "b")
	snap, err := s.store.Export(s.ctx, "src")
	s.Require().NoError(err)
	s.Equal(uint64(2), snap.Seq)

	snap.Name = "dst"
	imported, err := s.store.Import(s.ctx, snap)
	s.Require().NoError(err)
	s.Len(imported.Memories, 2)
	s.Equal("dst_3", imported.Memories[0].ID, "foreign ids are reassigned past the snapshot sequence")
	s.Equal("dst_4", imported.Memories[1].ID)
	s.Equal("one", imported.Memories[0].Content)
	s.Equal(map[string]int{"a": 1, "b": 1}, imported.Categories)

	next := s.add("dst", "three", "a")
	s.Equal("dst_5", next.ID)
}

func (s *InMemoryStoreSuite) TestImportNeverRewindsSequence() {
	for range 5 {
		s.add("ns", "x", "c")
	}
	_, err := s.store.Import(s.ctx, models.Snapshot{
		Namespace: models.Namespace{Name: "ns"},
		Memories:  []models.Record{{ID: "ns_1", Content: "kept", Category: "c"}},
	})
	s.Require().NoError(err)

	next := s.add("ns", "y", "c")
	s.Equal("ns_6", next.ID)
}

func (s *InMemoryStoreSuite) TestConcurrentAddsKeepCountersConsistent() {
	const writers, perWriter = 8, 50
	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ns := "shared"
			if w%2 == 1 {
				ns = "other"
			}
			for i := range perWriter {
				_, err := s.store.Add(s.ctx, ns, fmt.Sprintf("w%d-%d", w, i), "c", nil)
				s.NoError(err)
			}
		}()
	}
	wg.Wait()

	all, err := s.store.AllStats(s.ctx)
	s.Require().NoError(err)
	for _, ns := range []string{"shared", "other"} {
		s.Equal(writers/2*perWriter, all[ns].TotalMemories)
		s.Equal(writers/2*perWriter, all[ns].Categories["c"])
	}

	snap, err := s.store.Export(s.ctx, "shared")
	s.Require().NoError(err)
	seen := make(map[string]bool, len(snap.Memories))
	for _, rec := range snap.Memories {
		s.False(seen[rec.ID], "duplicate id %s", rec.ID)
		seen[rec.ID] = true
	}
}

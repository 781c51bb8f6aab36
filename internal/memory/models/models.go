// Package models holds the memory record types shared by the stores, the
// service, and the HTTP layer.
package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Categories written by the system itself.
const (
	CategoryCorrection        = "correction"
	CategorySuccessfulPattern = "successful_pattern"
	CategoryUserPreference    = "user_preference"
	CategoryErrorLearning     = "error_learning"
	CategoryRoutingDecision   = "routing_decision"
)

// DefaultSearchLimit applies when a query does not set one.
const DefaultSearchLimit = 10

// Record is one memory entry. Records are append-only except through
// explicit Update and Delete.
type Record struct {
	ID        string         `json:"memory_id"`
	Namespace string         `json:"namespace"`
	Content   string         `json:"content"`
	Category  string         `json:"category"`
	CreatedAt time.Time      `json:"created_at"`
	Metadata  map[string]any `json:"metadata"`
}

// RecordID formats the id for the seq-th record of a namespace.
func RecordID(namespace string, seq uint64) string {
	return namespace + "_" + strconv.FormatUint(seq, 10)
}

// SeqOf recovers the sequence number from a record id.
func SeqOf(namespace, id string) (uint64, error) {
	rest, ok := strings.CutPrefix(id, namespace+"_")
	if !ok {
		return 0, fmt.Errorf("id %q does not belong to namespace %q", id, namespace)
	}
	return strconv.ParseUint(rest, 10, 64)
}

// Clone returns a copy that shares no maps with r.
func (r Record) Clone() Record {
	if r.Metadata != nil {
		meta := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			meta[k] = v
		}
		r.Metadata = meta
	}
	return r
}

// Query selects records within one namespace.
type Query struct {
	Namespace string
	// Text is matched case-insensitively as a substring of the content.
	Text     string
	Category string
	Limit    int
}

// Namespace describes a memory namespace.
type Namespace struct {
	Name        string    `json:"namespace"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Stats summarizes a namespace.
type Stats struct {
	Namespace     string         `json:"namespace"`
	Description   string         `json:"description"`
	TotalMemories int            `json:"total_memories"`
	Categories    map[string]int `json:"categories"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Snapshot is the portable form of a namespace, used for export, import, and
// warming the cache from durable storage.
type Snapshot struct {
	Namespace
	Memories   []Record       `json:"memories"`
	Categories map[string]int `json:"categories"`
	Seq        uint64         `json:"seq"`
}

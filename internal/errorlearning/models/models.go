// Package models holds the error-learning record types.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Severity ranks how much a recorded error hurt.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ParseSeverity accepts a case-insensitive severity. Empty means medium.
func ParseSeverity(s string) (Severity, error) {
	switch sev := Severity(strings.ToLower(strings.TrimSpace(s))); sev {
	case "":
		return SeverityMedium, nil
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return sev, nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// Record is the durable state of one fingerprint. The descriptive fields
// and FirstOccurred are fixed by the first observation; later observations
// only move OccurrenceCount and LastOccurred.
type Record struct {
	ErrorID         string         `json:"error_id"`
	ErrorType       string         `json:"error_type"`
	WhatHappened    string         `json:"what_happened"`
	WhyHappened     string         `json:"why_happened"`
	HowToFix        string         `json:"how_to_fix"`
	HowToPrevent    string         `json:"how_to_prevent"`
	Context         map[string]any `json:"context"`
	Severity        Severity       `json:"severity"`
	OccurrenceCount int            `json:"occurrence_count"`
	FirstOccurred   time.Time      `json:"first_occurred"`
	LastOccurred    time.Time      `json:"last_occurred"`
}

// Repeated reports whether the fingerprint has been seen more than once.
func (r Record) Repeated() bool {
	return r.OccurrenceCount > 1
}

// RecordRequest describes one observed error.
type RecordRequest struct {
	ErrorType    string
	WhatHappened string
	WhyHappened  string
	HowToFix     string
	HowToPrevent string
	Context      map[string]any
	Severity     Severity
}

// Warning is returned by the pre-action check when earlier errors look
// related to the planned action.
type Warning struct {
	Message        string     `json:"message"`
	PreviousErrors []Previous `json:"previous_errors"`
	Recommendation string     `json:"recommendation"`
}

// Previous is a memory snapshot of an earlier error.
type Previous struct {
	MemoryID        string   `json:"memory_id"`
	ErrorID         string   `json:"error_id"`
	Content         string   `json:"content"`
	Severity        Severity `json:"severity"`
	OccurrenceCount int      `json:"occurrence_count"`
}

// Stats summarizes the recorded fingerprints.
type Stats struct {
	TotalErrors        int      `json:"total_errors"`
	RepeatedErrors     int      `json:"repeated_errors"`
	MostRepeated       []Record `json:"most_repeated"`
	CriticalUnresolved []Record `json:"critical_unresolved"`
}

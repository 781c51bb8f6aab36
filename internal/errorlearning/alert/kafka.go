// Package alert publishes repeated-error notifications to Kafka.
package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"lucy/internal/errorlearning/models"
	"lucy/pkg/requestcontext"
)

// EventType marks the payload kind in the record headers.
const EventType = "error.repeated"

// Event is the JSON payload of a repeated-error alert.
type Event struct {
	Type            string          `json:"type"`
	ErrorID         string          `json:"error_id"`
	ErrorType       string          `json:"error_type"`
	WhatHappened    string          `json:"what_happened"`
	HowToPrevent    string          `json:"how_to_prevent"`
	Severity        models.Severity `json:"severity"`
	OccurrenceCount int             `json:"occurrence_count"`
	FirstOccurred   time.Time       `json:"first_occurred"`
	LastOccurred    time.Time       `json:"last_occurred"`
	RequestID       string          `json:"request_id,omitempty"`
}

// Producer is the part of *kgo.Client the publisher uses.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaPublisher writes one record per repeat, keyed by fingerprint so all
// alerts for an error land on the same partition in order.
type KafkaPublisher struct {
	producer Producer
	topic    string
}

func NewKafkaPublisher(producer Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishRepeated(ctx context.Context, rec models.Record) error {
	payload, err := json.Marshal(Event{
		Type:            EventType,
		ErrorID:         rec.ErrorID,
		ErrorType:       rec.ErrorType,
		WhatHappened:    rec.WhatHappened,
		HowToPrevent:    rec.HowToPrevent,
		Severity:        rec.Severity,
		OccurrenceCount: rec.OccurrenceCount,
		FirstOccurred:   rec.FirstOccurred,
		LastOccurred:    rec.LastOccurred,
		RequestID:       requestcontext.RequestID(ctx),
	})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(rec.ErrorID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(EventType)},
			{Key: "severity", Value: []byte(rec.Severity)},
		},
	}
	if err := p.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce alert for %s: %w", rec.ErrorID, err)
	}
	return nil
}

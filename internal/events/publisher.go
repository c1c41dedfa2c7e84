// Package events provides event publishing functionality.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"ai-speech-blockifier/internal/models"
	"ai-speech-blockifier/internal/observability/metrics"
)

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher publishes job outcome events to separate Kafka topics.
type Publisher struct {
	writerDocuments messageWriter
	writerFailures  messageWriter
	principal       string
	topicDocuments  string
	topicFailures   string
	enabled         bool
	metrics         *metrics.Metrics
	now             func() time.Time
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers        []string
	TopicDocuments string
	TopicFailures  string
	Principal      string
	Enabled        bool
}

// New creates a Kafka event publisher with separate topics for completed
// documents and job failures.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	// Handle nil config case
	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
			now:     time.Now,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:      cfg.Principal,
			topicDocuments: cfg.TopicDocuments,
			topicFailures:  cfg.TopicFailures,
			enabled:        false,
			metrics:        m,
			now:            time.Now,
		}
	}

	// Longer dial timeout for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicDocuments", cfg.TopicDocuments).
		Str("topicFailures", cfg.TopicFailures).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerDocuments: newWriter(cfg.TopicDocuments),
		writerFailures:  newWriter(cfg.TopicFailures),
		principal:       cfg.Principal,
		topicDocuments:  cfg.TopicDocuments,
		topicFailures:   cfg.TopicFailures,
		enabled:         true,
		metrics:         m,
		now:             time.Now,
	}
}

// PublishDocument publishes a completed document, keyed by transcription id.
func (p *Publisher) PublishDocument(ctx context.Context, provider, transcriptionID string, doc *models.Document) error {
	event := models.DocumentCompleted{
		EventID:         uuid.NewString(),
		EventType:       models.EventDocumentCompleted,
		TranscriptionID: transcriptionID,
		Provider:        provider,
		Timestamp:       p.now().UnixMilli(),
		TagCount:        len(doc.Tags()),
		Document:        doc,
	}
	return p.publish(ctx, p.writerDocuments, p.topicDocuments, event.EventType, transcriptionID, event)
}

// PublishFailure publishes a terminal job failure, keyed by transcription id.
func (p *Publisher) PublishFailure(ctx context.Context, provider, transcriptionID, reason string) error {
	event := models.JobFailed{
		EventID:         uuid.NewString(),
		EventType:       models.EventJobFailed,
		TranscriptionID: transcriptionID,
		Provider:        provider,
		Timestamp:       p.now().UnixMilli(),
		Reason:          reason,
	}
	return p.publish(ctx, p.writerFailures, p.topicFailures, event.EventType, transcriptionID, event)
}

// publish writes one event to a specific Kafka writer.
func (p *Publisher) publish(ctx context.Context, writer messageWriter, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		Int("bytes", len(payload)).
		Msg("Publishing event")

	// If Kafka is disabled, just log
	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerDocuments != nil {
		if e := p.writerDocuments.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing documents writer")
			err = e
		}
	}
	if p.writerFailures != nil {
		if e := p.writerFailures.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing failures writer")
			err = e
		}
	}
	return err
}

package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type Sink interface {
	Emit(ctx context.Context, event Event)
}

type NopSink struct{}

func (NopSink) Emit(context.Context, Event) {}

// HTTPSink posts events to an audit endpoint such as POST /api/audit.
type HTTPSink struct {
	endpoint string
	client   *http.Client
	log      zerolog.Logger
}

func NewHTTPSink(endpoint string, timeout time.Duration, log zerolog.Logger) *HTTPSink {
	return &HTTPSink{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		log:      log,
	}
}

func (s *HTTPSink) Emit(ctx context.Context, event Event) {
	if err := s.post(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("action", event.Action).Msg("audit endpoint failed")
	}
}

func (s *HTTPSink) post(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("audit endpoint status %d", resp.StatusCode)
	}
	return nil
}

// StreamSink appends events to a redis stream consumed by the archive worker.
type StreamSink struct {
	client  redis.UniversalClient
	stream  string
	timeout time.Duration
	log     zerolog.Logger
}

func NewStreamSink(client redis.UniversalClient, stream string, timeout time.Duration, log zerolog.Logger) *StreamSink {
	return &StreamSink{
		client:  client,
		stream:  stream,
		timeout: timeout,
		log:     log,
	}
}

func (s *StreamSink) Emit(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.log.Warn().Err(err).Msg("marshal audit event")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"type":  "audit",
			"event": string(payload),
		},
	}).Err(); err != nil {
		s.log.Warn().Err(err).Str("stream", s.stream).Msg("audit stream append failed")
	}
}

// MultiSink fans an event out to every sink in order.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, event Event) {
	for _, s := range m {
		s.Emit(ctx, event)
	}
}

// RecordingSink keeps events in memory; handy in tests and dev tooling.
type RecordingSink struct {
	ch chan Event
}

func NewRecordingSink(buffer int) *RecordingSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &RecordingSink{ch: make(chan Event, buffer)}
}

func (s *RecordingSink) Emit(ctx context.Context, event Event) {
	select {
	case s.ch <- event:
	case <-ctx.Done():
	}
}

func (s *RecordingSink) Events() <-chan Event {
	return s.ch
}

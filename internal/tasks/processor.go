package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"homecare/portal/internal/audit"
)

// Archiver is satisfied by *storage.ObjectStore.
type Archiver interface {
	PutAuditArchive(ctx context.Context, objectKey string, data []byte) error
}

// Processor archives audit events read from the stream. Each event is
// written under a key derived from its timestamp and id, so redelivery
// overwrites rather than duplicates.
type Processor struct {
	archiver Archiver
	logger   zerolog.Logger
}

func NewProcessor(archiver Archiver, logger zerolog.Logger) *Processor {
	return &Processor{
		archiver: archiver,
		logger:   logger,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	kind, _ := msg.Values["type"].(string)
	switch kind {
	case "audit":
		return p.handleAudit(ctx, msg)
	default:
		p.logger.Warn().Str("type", kind).Str("message_id", msg.ID).Msg("unknown task type")
		return nil
	}
}

func (p *Processor) handleAudit(ctx context.Context, msg redis.XMessage) error {
	raw, _ := msg.Values["event"].(string)
	var event audit.Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		// a malformed entry can never succeed; drop it
		p.logger.Error().Err(err).Str("message_id", msg.ID).Msg("discarding undecodable audit event")
		return nil
	}

	id := event.ID
	if id == "" {
		id = msg.ID
	}
	key := ArchiveKey(event.Timestamp.UTC().Format("2006/01/02"), id)

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	if err := p.archiver.PutAuditArchive(ctx, key, append(line, '\n')); err != nil {
		return err
	}

	p.logger.Debug().Str("key", key).Str("action", event.Action).Msg("audit event archived")
	return nil
}

func ArchiveKey(day string, id string) string {
	return path.Join("audit", day, id+".json")
}

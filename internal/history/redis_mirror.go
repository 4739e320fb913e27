package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/halfpoint/medianengine/internal/models"
)

const defaultMirrorKey = "medianengine:history"

// RedisMirror keeps a capped copy of recent history records in a Redis list
// so dashboards and other processes can read them without touching the
// engine. Best-effort: a mirror failure is logged and never fails the
// calculation that produced the record.
type RedisMirror struct {
	client   *redis.Client
	key      string
	capacity int
	timeout  time.Duration
}

// NewRedisMirror creates a mirror writing to key (defaultMirrorKey when
// empty), trimmed to capacity entries.
func NewRedisMirror(client *redis.Client, key string, capacity int) *RedisMirror {
	if key == "" {
		key = defaultMirrorKey
	}
	if capacity < 1 {
		capacity = 1
	}
	return &RedisMirror{
		client:   client,
		key:      key,
		capacity: capacity,
		timeout:  2 * time.Second,
	}
}

// Append pushes the record to the head of the list and trims to capacity.
func (m *RedisMirror) Append(ctx context.Context, rec models.HistoryRecord) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal history record: %w", err)
	}

	pipe := m.client.TxPipeline()
	pipe.LPush(ctx, m.key, payload)
	pipe.LTrim(ctx, m.key, 0, int64(m.capacity-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mirror history record: %w", err)
	}
	return nil
}

// Recent reads up to n mirrored records, newest-first.
func (m *RedisMirror) Recent(ctx context.Context, n int) ([]models.HistoryRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	raw, err := m.client.LRange(ctx, m.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read mirrored history: %w", err)
	}

	out := make([]models.HistoryRecord, 0, len(raw))
	for _, item := range raw {
		var rec models.HistoryRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			log.Warn().Err(err).Str("key", m.key).Msg("skipping malformed mirrored record")
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Ping verifies connectivity for health checks.
func (m *RedisMirror) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.client.Ping(ctx).Err()
}

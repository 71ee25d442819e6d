package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"pulseboard/internal/models"
)

// Write-time bounds for stored interactions. Applying them on append keeps
// memory pressure constant no matter how large the original result was.
const (
	DefaultMaxInteractions = 20
	maxStoredRows          = 50
	maxScalarChars         = 500
	maxResponseChars       = 1500
)

// ConversationStore is the bounded per-session memory behind follow-up
// questions. Sessions expire wholesale after the TTL from last write.
type ConversationStore interface {
	Append(ctx context.Context, sessionID string, interaction models.Interaction) error
	Interactions(ctx context.Context, sessionID string) ([]models.Interaction, error)
	LastAnalytics(ctx context.Context, sessionID string) (*models.Interaction, error)
	Clear(ctx context.Context, sessionID string) error
}

// MemoryStore is the in-process ConversationStore, a TTL cache of bounded
// interaction rings keyed by session id.
type MemoryStore struct {
	cache *cache.Cache
	max   int
	mu    sync.Mutex // serializes read-modify-write per store
}

// NewMemoryStore creates an in-process conversation store
func NewMemoryStore(maxInteractions int, ttl time.Duration) *MemoryStore {
	if maxInteractions <= 0 {
		maxInteractions = DefaultMaxInteractions
	}
	return &MemoryStore{
		cache: cache.New(ttl, 10*time.Minute),
		max:   maxInteractions,
	}
}

// Append sanitizes and appends an interaction, truncating the ring to the
// most recent entries and resetting the session TTL.
func (s *MemoryStore) Append(_ context.Context, sessionID string, interaction models.Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []models.Interaction
	if cached, found := s.cache.Get(sessionID); found {
		entries = cached.([]models.Interaction)
	}

	entries = append(entries, sanitizeInteraction(interaction))
	if len(entries) > s.max {
		entries = entries[len(entries)-s.max:]
	}

	s.cache.Set(sessionID, entries, cache.DefaultExpiration)
	return nil
}

// Interactions returns the session's stored interactions, oldest first.
func (s *MemoryStore) Interactions(_ context.Context, sessionID string) ([]models.Interaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached, found := s.cache.Get(sessionID)
	if !found {
		return nil, nil
	}
	entries := cached.([]models.Interaction)
	out := make([]models.Interaction, len(entries))
	copy(out, entries)
	return out, nil
}

// LastAnalytics scans from the end for the most recent analytics-typed
// interaction. Returns nil when the session has none.
func (s *MemoryStore) LastAnalytics(ctx context.Context, sessionID string) (*models.Interaction, error) {
	entries, err := s.Interactions(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return lastAnalytics(entries), nil
}

// Clear evicts the whole session.
func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Delete(sessionID)
	return nil
}

// RedisStore is the Redis-backed ConversationStore used when the assistant
// runs with more than one instance. RPUSH+LTRIM keep the ring bounded
// atomically per command.
type RedisStore struct {
	client *redis.Client
	max    int
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed conversation store
func NewRedisStore(client *redis.Client, maxInteractions int, ttl time.Duration) *RedisStore {
	if maxInteractions <= 0 {
		maxInteractions = DefaultMaxInteractions
	}
	return &RedisStore{client: client, max: maxInteractions, ttl: ttl}
}

func (s *RedisStore) key(sessionID string) string {
	return "assistant:session:" + sessionID
}

// Append sanitizes and appends an interaction to the session list.
func (s *RedisStore) Append(ctx context.Context, sessionID string, interaction models.Interaction) error {
	data, err := json.Marshal(sanitizeInteraction(interaction))
	if err != nil {
		return fmt.Errorf("failed to marshal interaction: %w", err)
	}

	key := s.key(sessionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-s.max), -1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append interaction: %w", err)
	}
	return nil
}

// Interactions returns the session's stored interactions, oldest first.
func (s *RedisStore) Interactions(ctx context.Context, sessionID string) ([]models.Interaction, error) {
	raw, err := s.client.LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	entries := make([]models.Interaction, 0, len(raw))
	for _, item := range raw {
		var interaction models.Interaction
		if err := json.Unmarshal([]byte(item), &interaction); err != nil {
			continue // skip corrupt entries rather than failing the session
		}
		entries = append(entries, interaction)
	}
	return entries, nil
}

// LastAnalytics scans from the end for the most recent analytics-typed
// interaction.
func (s *RedisStore) LastAnalytics(ctx context.Context, sessionID string) (*models.Interaction, error) {
	entries, err := s.Interactions(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return lastAnalytics(entries), nil
}

// Clear evicts the whole session.
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}

func lastAnalytics(entries []models.Interaction) *models.Interaction {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Type == models.InteractionAnalytics {
			entry := entries[i]
			return &entry
		}
	}
	return nil
}

// sanitizeInteraction applies all size caps at write time: row count,
// scalar length, response length. Nested row values are serialized to JSON
// before truncation.
func sanitizeInteraction(interaction models.Interaction) models.Interaction {
	interaction.Query = truncate(interaction.Query, maxScalarChars)
	interaction.Response = truncate(interaction.Response, maxResponseChars)

	if len(interaction.Rows) > maxStoredRows {
		interaction.Rows = interaction.Rows[:maxStoredRows]
	}

	sanitized := make([]map[string]interface{}, 0, len(interaction.Rows))
	for _, row := range interaction.Rows {
		clean := make(map[string]interface{}, len(row))
		for col, value := range row {
			clean[col] = sanitizeValue(value)
		}
		sanitized = append(sanitized, clean)
	}
	interaction.Rows = sanitized

	if interaction.CreatedAt.IsZero() {
		interaction.CreatedAt = time.Now()
	}
	return interaction
}

func sanitizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case nil, bool, int, int64, float64:
		return v
	case string:
		return truncate(v, maxScalarChars)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return truncate(fmt.Sprintf("%v", v), maxScalarChars)
		}
		return truncate(string(data), maxScalarChars)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

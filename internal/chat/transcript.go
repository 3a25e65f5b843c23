package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dgarridoc/citabot/internal/llm"
	"github.com/dgarridoc/citabot/internal/payload"
)

// Turn is one user/assistant exchange as stored in the transcript.
type Turn struct {
	User      string    `json:"user"`
	Assistant string    `json:"assistant"`
	At        time.Time `json:"at"`
}

// TranscriptStore keeps per-session conversation transcripts and uploaded
// document text in redis, expiring after the configured TTL.
type TranscriptStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewTranscriptStore creates a store. ttl defaults to 24h.
func NewTranscriptStore(client *redis.Client, ttl time.Duration) *TranscriptStore {
	if client == nil {
		panic("chat: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TranscriptStore{redis: client, ttl: ttl}
}

// Append stores one completed turn and refreshes the transcript TTL.
func (s *TranscriptStore) Append(ctx context.Context, sessionID string, turn Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("chat: failed to marshal turn: %w", err)
	}
	key := transcriptKey(sessionID)
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("chat: failed to persist turn: %w", err)
	}
	return nil
}

// Turns returns the raw stored transcript in order.
func (s *TranscriptStore) Turns(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := s.redis.LRange(ctx, transcriptKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("chat: failed to load transcript: %w", err)
	}
	turns := make([]Turn, 0, len(rows))
	for _, row := range rows {
		var t Turn
		if err := json.Unmarshal([]byte(row), &t); err != nil {
			return nil, fmt.Errorf("chat: failed to decode turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// History renders the transcript as model messages. Assistant replies are
// stripped of JSON blocks; turns whose reply was pure JSON are dropped so
// stale payloads never re-enter the prompt.
func (s *TranscriptStore) History(ctx context.Context, sessionID string) ([]llm.Message, error) {
	turns, err := s.Turns(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	var out []llm.Message
	for _, t := range turns {
		cleaned := payload.StripBlocks(t.Assistant)
		if cleaned == "" {
			continue
		}
		out = append(out,
			llm.Message{Role: llm.RoleUser, Content: t.User},
			llm.Message{Role: llm.RoleAssistant, Content: cleaned},
		)
	}
	return out, nil
}

// Clear drops the session's transcript.
func (s *TranscriptStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, transcriptKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("chat: failed to clear transcript: %w", err)
	}
	return nil
}

// SaveDocument stores uploaded document text for the session.
func (s *TranscriptStore) SaveDocument(ctx context.Context, sessionID, text string) error {
	if err := s.redis.Set(ctx, documentKey(sessionID), text, s.ttl).Err(); err != nil {
		return fmt.Errorf("chat: failed to persist document: %w", err)
	}
	return nil
}

// Document returns the stored document text, or "" when none was uploaded.
func (s *TranscriptStore) Document(ctx context.Context, sessionID string) (string, error) {
	text, err := s.redis.Get(ctx, documentKey(sessionID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("chat: failed to load document: %w", err)
	}
	return text, nil
}

func transcriptKey(id string) string { return fmt.Sprintf("transcript:%s", id) }
func documentKey(id string) string   { return fmt.Sprintf("document:%s", id) }

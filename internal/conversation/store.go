// internal/conversation/store.go
package conversation

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"mfg-orchestrator/internal/common/errors"
	"mfg-orchestrator/internal/common/logger"
	"mfg-orchestrator/internal/models"

	"github.com/redis/go-redis/v9"
)

// HistoryLimit is the number of messages kept per thread.
const HistoryLimit = 20

// Store keeps per-thread conversation state in Redis: the last unaccepted
// quote and a short message history.
type Store struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewStore(rdb *redis.Client, ttl time.Duration, log logger.Logger) *Store {
	return &Store{
		rdb:    rdb,
		ttl:    ttl,
		logger: log.With(map[string]interface{}{"component": "conversation-store"}),
	}
}

func pendingKey(threadID string) string { return "conv:" + threadID + ":pending" }

func historyKey(threadID string) string { return "conv:" + threadID + ":history" }

// Get returns the pending quote of a thread, or nil when there is none.
func (s *Store) Get(ctx context.Context, threadID string) (*models.PendingQuote, error) {
	raw, err := s.rdb.Get(ctx, pendingKey(threadID)).Bytes()
	return s.decode(threadID, raw, err, "get")
}

// Save overwrites the pending quote of a thread. The last writer wins.
func (s *Store) Save(ctx context.Context, pq models.PendingQuote) error {
	data, err := json.Marshal(pq)
	if err != nil {
		return fmt.Errorf("marshal pending quote: %w", err)
	}
	if err := s.rdb.Set(ctx, pendingKey(pq.ThreadID), data, s.ttl).Err(); err != nil {
		return errors.NewCacheFailedError("save", err)
	}
	s.logger.Debug("pending quote saved", map[string]interface{}{"threadId": pq.ThreadID})
	return nil
}

// Consume atomically reads and deletes the pending quote, so concurrent
// accepts of the same quote see it at most once.
func (s *Store) Consume(ctx context.Context, threadID string) (*models.PendingQuote, error) {
	raw, err := s.rdb.GetDel(ctx, pendingKey(threadID)).Bytes()
	return s.decode(threadID, raw, err, "consume")
}

func (s *Store) Clear(ctx context.Context, threadID string) error {
	if err := s.rdb.Del(ctx, pendingKey(threadID)).Err(); err != nil {
		return errors.NewCacheFailedError("clear", err)
	}
	return nil
}

func (s *Store) decode(threadID string, raw []byte, err error, op string) (*models.PendingQuote, error) {
	if stderrors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewCacheFailedError(op, err)
	}

	var pq models.PendingQuote
	if err := json.Unmarshal(raw, &pq); err != nil {
		s.logger.Warn("discarding unreadable pending quote", map[string]interface{}{
			"threadId": threadID,
			"error":    err,
		})
		return nil, nil
	}
	return &pq, nil
}

// AppendMessage records a message and trims the thread to HistoryLimit entries.
func (s *Store) AppendMessage(ctx context.Context, threadID string, msg models.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	key := historyKey(threadID)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, HistoryLimit-1)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return errors.NewCacheFailedError("append_history", err)
	}
	return nil
}

// History returns up to limit recent messages, oldest first.
func (s *Store) History(ctx context.Context, threadID string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 || limit > HistoryLimit {
		limit = HistoryLimit
	}
	raw, err := s.rdb.LRange(ctx, historyKey(threadID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, errors.NewCacheFailedError("history", err)
	}

	out := make([]models.ChatMessage, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var msg models.ChatMessage
		if err := json.Unmarshal([]byte(raw[i]), &msg); err != nil {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

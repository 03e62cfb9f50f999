package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Mindburn-Labs/riskgov/pkg/risk"
)

// appendIfLatestScript appends to a target's history list atomically.
// KEYS[1] = history list key
// ARGV[1] = expected length (the caller's latest seq)
// ARGV[2] = encoded entry
var appendIfLatestScript = redis.NewScript(`
local key = KEYS[1]
local expected = tonumber(ARGV[1])

if redis.call("LLEN", key) ~= expected then
    return 0
end

redis.call("RPUSH", key, ARGV[2])
return 1
`)

// RedisStore implements Store on Redis. Each target's history is a list whose
// length is the latest seq. Decisions are string keys indexed by sorted sets
// scored by creation time.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "riskgov"}
}

// OpenRedis connects and verifies the server is reachable.
func OpenRedis(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return NewRedisStore(rdb), nil
}

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) historyKey(t risk.Target) string {
	return fmt.Sprintf("%s:history:%s:%s:%s", s.prefix,
		url.QueryEscape(t.CompanyID), url.QueryEscape(t.TargetType), url.QueryEscape(t.TargetID))
}

func (s *RedisStore) decisionKey(id string) string {
	return fmt.Sprintf("%s:decision:%s", s.prefix, url.QueryEscape(id))
}

func (s *RedisStore) decisionIndexKey(companyID, targetID string) string {
	if targetID == "" {
		return fmt.Sprintf("%s:decisions:%s", s.prefix, url.QueryEscape(companyID))
	}
	return fmt.Sprintf("%s:decisions:%s:%s", s.prefix, url.QueryEscape(companyID), url.QueryEscape(targetID))
}

func (s *RedisStore) Latest(ctx context.Context, target risk.Target) (risk.HistoryEntry, bool, error) {
	raw, err := s.client.LIndex(ctx, s.historyKey(target), -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return risk.HistoryEntry{}, false, nil
		}
		return risk.HistoryEntry{}, false, fmt.Errorf("latest history for %s: %w", target, err)
	}
	var entry risk.HistoryEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return risk.HistoryEntry{}, false, fmt.Errorf("decode history for %s: %w", target, err)
	}
	return entry, true, nil
}

func (s *RedisStore) AppendIfLatest(ctx context.Context, entry risk.HistoryEntry, expectedSeq int64) (risk.HistoryEntry, error) {
	entry.Seq = expectedSeq + 1
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = entry.CreatedAt.UTC()

	payload, err := json.Marshal(entry)
	if err != nil {
		return risk.HistoryEntry{}, fmt.Errorf("encode history: %w", err)
	}

	res, err := appendIfLatestScript.Run(ctx, s.client, []string{s.historyKey(entry.Target())}, expectedSeq, string(payload)).Int64()
	if err != nil {
		return risk.HistoryEntry{}, fmt.Errorf("redis append error: %w", err)
	}
	if res != 1 {
		return risk.HistoryEntry{}, fmt.Errorf("%w: %s moved past seq %d", ErrConflict, entry.Target(), expectedSeq)
	}
	return entry, nil
}

func (s *RedisStore) ListHistory(ctx context.Context, target risk.Target, limit int) ([]risk.HistoryEntry, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	raws, err := s.client.LRange(ctx, s.historyKey(target), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list history for %s: %w", target, err)
	}

	result := make([]risk.HistoryEntry, 0, len(raws))
	for i := len(raws) - 1; i >= 0; i-- {
		var entry risk.HistoryEntry
		if err := json.Unmarshal([]byte(raws[i]), &entry); err != nil {
			return nil, fmt.Errorf("decode history for %s: %w", target, err)
		}
		result = append(result, entry)
	}
	return result, nil
}

func (s *RedisStore) PutDecision(ctx context.Context, rec risk.DecisionRecord) error {
	rec.CreatedAt = rec.CreatedAt.UTC()
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode decision: %w", err)
	}

	created, err := s.client.SetNX(ctx, s.decisionKey(rec.ID), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to store decision: %w", err)
	}
	if !created {
		return fmt.Errorf("decision %s already recorded", rec.ID)
	}

	score := float64(rec.CreatedAt.UnixNano())
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, s.decisionIndexKey(rec.CompanyID, ""), redis.Z{Score: score, Member: rec.ID})
		pipe.ZAdd(ctx, s.decisionIndexKey(rec.CompanyID, rec.TargetID), redis.Z{Score: score, Member: rec.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("index decision %s: %w", rec.ID, err)
	}
	return nil
}

func (s *RedisStore) GetDecision(ctx context.Context, id string) (risk.DecisionRecord, error) {
	raw, err := s.client.Get(ctx, s.decisionKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return risk.DecisionRecord{}, fmt.Errorf("decision %s: %w", id, ErrNotFound)
		}
		return risk.DecisionRecord{}, err
	}
	var rec risk.DecisionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return risk.DecisionRecord{}, fmt.Errorf("decode decision %s: %w", id, err)
	}
	return rec, nil
}

func (s *RedisStore) ListDecisions(ctx context.Context, companyID, targetID string, limit int) ([]risk.DecisionRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := s.client.ZRevRange(ctx, s.decisionIndexKey(companyID, targetID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}

	result := make([]risk.DecisionRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.GetDecision(ctx, id)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, nil
}

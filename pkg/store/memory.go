package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Mindburn-Labs/riskgov/pkg/risk"
)

// MemoryStore is an in-process Store. It is safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	history   map[risk.Target][]risk.HistoryEntry
	decisions map[string]risk.DecisionRecord
	order     []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		history:   make(map[risk.Target][]risk.HistoryEntry),
		decisions: make(map[string]risk.DecisionRecord),
	}
}

func (m *MemoryStore) Latest(_ context.Context, target risk.Target) (risk.HistoryEntry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := m.history[target]
	if len(rows) == 0 {
		return risk.HistoryEntry{}, false, nil
	}
	return rows[len(rows)-1], true, nil
}

func (m *MemoryStore) AppendIfLatest(_ context.Context, entry risk.HistoryEntry, expectedSeq int64) (risk.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	target := entry.Target()
	rows := m.history[target]
	if int64(len(rows)) != expectedSeq {
		return risk.HistoryEntry{}, fmt.Errorf("%w: %s at seq %d, expected %d", ErrConflict, target, len(rows), expectedSeq)
	}

	entry.Seq = expectedSeq + 1
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	m.history[target] = append(rows, entry)
	return entry, nil
}

func (m *MemoryStore) ListHistory(_ context.Context, target risk.Target, limit int) ([]risk.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := m.history[target]
	out := make([]risk.HistoryEntry, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, rows[i])
	}
	return out, nil
}

func (m *MemoryStore) PutDecision(_ context.Context, rec risk.DecisionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.decisions[rec.ID]; exists {
		return fmt.Errorf("decision %s already recorded", rec.ID)
	}
	rec.Explanation = rec.Explanation.Clone()
	m.decisions[rec.ID] = rec
	m.order = append(m.order, rec.ID)
	return nil
}

func (m *MemoryStore) GetDecision(_ context.Context, id string) (risk.DecisionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.decisions[id]
	if !ok {
		return risk.DecisionRecord{}, fmt.Errorf("decision %s: %w", id, ErrNotFound)
	}
	rec.Explanation = rec.Explanation.Clone()
	return rec, nil
}

func (m *MemoryStore) ListDecisions(_ context.Context, companyID, targetID string, limit int) ([]risk.DecisionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]risk.DecisionRecord, 0)
	for i := len(m.order) - 1; i >= 0; i-- {
		rec := m.decisions[m.order[i]]
		if rec.CompanyID != companyID {
			continue
		}
		if targetID != "" && rec.TargetID != targetID {
			continue
		}
		rec.Explanation = rec.Explanation.Clone()
		out = append(out, rec)
	}
	// newest first; ties keep reverse insertion order
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

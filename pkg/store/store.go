// Package store persists the risk state-history ledger and decision records.
//
// History rows are append-only and ordered per target by a 1-based sequence
// number. AppendIfLatest is the only write path for history: it succeeds only
// when the caller's view of the latest row is still current, which serializes
// concurrent assessments of the same target without a global lock.
package store

import (
	"context"
	"errors"

	"github.com/Mindburn-Labs/riskgov/pkg/risk"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an append raced with another writer.
	ErrConflict = errors.New("history append conflict")
)

// HistoryStore is the per-target, append-only state ledger.
type HistoryStore interface {
	// Latest returns the most recent row for target. found is false when the
	// target has no history yet.
	Latest(ctx context.Context, target risk.Target) (entry risk.HistoryEntry, found bool, err error)
	// AppendIfLatest writes entry with Seq = expectedSeq+1, but only if the
	// target's latest row still has Seq == expectedSeq (0 for an empty ledger).
	// Otherwise it returns ErrConflict and writes nothing.
	AppendIfLatest(ctx context.Context, entry risk.HistoryEntry, expectedSeq int64) (risk.HistoryEntry, error)
	// ListHistory returns rows newest first. limit <= 0 means no limit.
	ListHistory(ctx context.Context, target risk.Target, limit int) ([]risk.HistoryEntry, error)
}

// DecisionStore holds immutable decision records.
type DecisionStore interface {
	PutDecision(ctx context.Context, rec risk.DecisionRecord) error
	GetDecision(ctx context.Context, id string) (risk.DecisionRecord, error)
	// ListDecisions returns records newest first. An empty targetID lists the
	// whole company. limit <= 0 means no limit.
	ListDecisions(ctx context.Context, companyID, targetID string, limit int) ([]risk.DecisionRecord, error)
}

// Store is the full persistence surface used by the aggregator.
type Store interface {
	HistoryStore
	DecisionStore
	Close() error
}

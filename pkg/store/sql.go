package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Mindburn-Labs/riskgov/pkg/risk"
)

// Dialect names the SQL backend behind a SQLStore.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// timeLayout is fixed-width so lexical order matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS risk_history (
	id TEXT PRIMARY KEY,
	company_id TEXT NOT NULL,
	target_type TEXT NOT NULL,
	target_id TEXT NOT NULL,
	seq BIGINT NOT NULL,
	from_state TEXT NOT NULL,
	to_state TEXT NOT NULL,
	reason TEXT NOT NULL,
	signal_count INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE (company_id, target_type, target_id, seq)
);

CREATE TABLE IF NOT EXISTS risk_decisions (
	id TEXT PRIMARY KEY,
	company_id TEXT NOT NULL,
	action_type TEXT NOT NULL,
	target_type TEXT NOT NULL,
	target_id TEXT NOT NULL,
	risk_verdict TEXT NOT NULL,
	risk_state TEXT NOT NULL,
	explanation TEXT NOT NULL,
	explanation_digest TEXT NOT NULL,
	trace_id TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS risk_decisions_company_target ON risk_decisions (company_id, target_id);
`

// SQLStore implements Store using database/sql.
// It supports both Postgres and SQLite via standard drivers.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// OpenSQLite opens (creating if needed) a SQLite database and applies the schema.
func OpenSQLite(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows one writer; a single connection also serializes the
	// read-then-insert in AppendIfLatest.
	db.SetMaxOpenConns(1)
	return initStore(ctx, db, DialectSQLite)
}

// OpenPostgres connects to Postgres and applies the schema.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return initStore(ctx, db, DialectPostgres)
}

func initStore(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLStore, error) {
	s := NewSQLStore(db, dialect)
	if err := s.Init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Init creates the tables if they do not exist.
func (s *SQLStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init %s schema: %w", s.dialect, err)
	}
	return nil
}

func (s *SQLStore) Dialect() Dialect { return s.dialect }

func (s *SQLStore) Close() error { return s.db.Close() }

const historyColumns = `id, company_id, target_type, target_id, seq, from_state, to_state, reason, signal_count, created_at`

func (s *SQLStore) Latest(ctx context.Context, target risk.Target) (risk.HistoryEntry, bool, error) {
	query := `SELECT ` + historyColumns + ` FROM risk_history
		WHERE company_id = $1 AND target_type = $2 AND target_id = $3
		ORDER BY seq DESC LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, target.CompanyID, target.TargetType, target.TargetID)

	entry, err := scanHistory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return risk.HistoryEntry{}, false, nil
		}
		return risk.HistoryEntry{}, false, fmt.Errorf("latest history for %s: %w", target, err)
	}
	return entry, true, nil
}

func (s *SQLStore) AppendIfLatest(ctx context.Context, entry risk.HistoryEntry, expectedSeq int64) (risk.HistoryEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return risk.HistoryEntry{}, fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var latest int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM risk_history WHERE company_id = $1 AND target_type = $2 AND target_id = $3`,
		entry.CompanyID, entry.TargetType, entry.TargetID,
	).Scan(&latest)
	if err != nil {
		return risk.HistoryEntry{}, fmt.Errorf("read latest seq: %w", err)
	}
	if latest != expectedSeq {
		return risk.HistoryEntry{}, fmt.Errorf("%w: %s at seq %d, expected %d", ErrConflict, entry.Target(), latest, expectedSeq)
	}

	entry.Seq = expectedSeq + 1
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	query := `INSERT INTO risk_history (` + historyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = tx.ExecContext(ctx, query,
		entry.ID, entry.CompanyID, entry.TargetType, entry.TargetID, entry.Seq,
		string(entry.FromState), string(entry.ToState), entry.Reason, entry.SignalCount,
		formatTime(entry.CreatedAt),
	)
	if err != nil {
		if s.isUniqueViolation(err) {
			return risk.HistoryEntry{}, fmt.Errorf("%w: %s seq %d taken", ErrConflict, entry.Target(), entry.Seq)
		}
		return risk.HistoryEntry{}, fmt.Errorf("insert history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if s.isUniqueViolation(err) {
			return risk.HistoryEntry{}, fmt.Errorf("%w: %s seq %d taken", ErrConflict, entry.Target(), entry.Seq)
		}
		return risk.HistoryEntry{}, fmt.Errorf("commit append: %w", err)
	}
	return entry, nil
}

func (s *SQLStore) ListHistory(ctx context.Context, target risk.Target, limit int) ([]risk.HistoryEntry, error) {
	query := `SELECT ` + historyColumns + ` FROM risk_history
		WHERE company_id = $1 AND target_type = $2 AND target_id = $3
		ORDER BY seq DESC`
	args := []any{target.CompanyID, target.TargetType, target.TargetID}
	if limit > 0 {
		query += ` LIMIT $4`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history for %s: %w", target, err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]risk.HistoryEntry, 0)
	for rows.Next() {
		entry, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

const decisionColumns = `id, company_id, action_type, target_type, target_id, risk_verdict, risk_state, explanation, explanation_digest, trace_id, created_at`

func (s *SQLStore) PutDecision(ctx context.Context, rec risk.DecisionRecord) error {
	explanation, err := json.Marshal(rec.Explanation)
	if err != nil {
		return fmt.Errorf("encode explanation: %w", err)
	}

	query := `INSERT INTO risk_decisions (` + decisionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = s.db.ExecContext(ctx, query,
		rec.ID, rec.CompanyID, rec.ActionType, rec.TargetType, rec.TargetID,
		string(rec.RiskVerdict), string(rec.RiskState), string(explanation), rec.ExplanationDigest,
		rec.TraceID, formatTime(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert decision: %w", err)
	}
	return nil
}

func (s *SQLStore) GetDecision(ctx context.Context, id string) (risk.DecisionRecord, error) {
	query := `SELECT ` + decisionColumns + ` FROM risk_decisions WHERE id = $1`
	rec, err := scanDecision(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return risk.DecisionRecord{}, fmt.Errorf("decision %s: %w", id, ErrNotFound)
		}
		return risk.DecisionRecord{}, err
	}
	return rec, nil
}

func (s *SQLStore) ListDecisions(ctx context.Context, companyID, targetID string, limit int) ([]risk.DecisionRecord, error) {
	query := `SELECT ` + decisionColumns + ` FROM risk_decisions WHERE company_id = $1`
	args := []any{companyID}
	if targetID != "" {
		args = append(args, targetID)
		query += fmt.Sprintf(` AND target_id = $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]risk.DecisionRecord, 0)
	for rows.Next() {
		rec, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanHistory(row scanner) (risk.HistoryEntry, error) {
	var (
		e          risk.HistoryEntry
		from, to   string
		createdRaw string
	)
	if err := row.Scan(&e.ID, &e.CompanyID, &e.TargetType, &e.TargetID, &e.Seq, &from, &to, &e.Reason, &e.SignalCount, &createdRaw); err != nil {
		return risk.HistoryEntry{}, err
	}
	// States are returned verbatim; an unknown value is the caller's to reject.
	e.FromState = risk.State(from)
	e.ToState = risk.State(to)

	created, err := parseTime(createdRaw)
	if err != nil {
		return risk.HistoryEntry{}, fmt.Errorf("history %s: %w", e.ID, err)
	}
	e.CreatedAt = created
	return e, nil
}

func scanDecision(row scanner) (risk.DecisionRecord, error) {
	var (
		r                    risk.DecisionRecord
		verdict, state       string
		explanation, created string
	)
	err := row.Scan(&r.ID, &r.CompanyID, &r.ActionType, &r.TargetType, &r.TargetID,
		&verdict, &state, &explanation, &r.ExplanationDigest, &r.TraceID, &created)
	if err != nil {
		return risk.DecisionRecord{}, err
	}
	r.RiskVerdict = risk.Verdict(verdict)
	r.RiskState = risk.State(state)

	if err := json.Unmarshal([]byte(explanation), &r.Explanation); err != nil {
		return risk.DecisionRecord{}, fmt.Errorf("decision %s: decode explanation: %w", r.ID, err)
	}
	if r.CreatedAt, err = parseTime(created); err != nil {
		return risk.DecisionRecord{}, fmt.Errorf("decision %s: %w", r.ID, err)
	}
	return r, nil
}

func (s *SQLStore) isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// rows written by other tools may carry plain RFC 3339
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
		}
	}
	return t.UTC(), nil
}

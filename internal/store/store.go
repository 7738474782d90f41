// Package store persists reconciliation runs to Postgres. A run is written
// in one transaction covering the summary row and every match, exception,
// and unmatched record, so a stored run is always complete.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"payment-recon-service/internal/recon"
	"payment-recon-service/pkg/errors"
	"payment-recon-service/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS recon_runs (
	run_id          UUID PRIMARY KEY,
	cycle_date      DATE NOT NULL,
	total_pg        INT NOT NULL,
	total_bank      INT NOT NULL,
	matched         INT NOT NULL,
	unmatched_pg    INT NOT NULL,
	unmatched_bank  INT NOT NULL,
	exceptions      INT NOT NULL,
	match_rate_pct  NUMERIC(5,2) NOT NULL,
	top_reasons     JSONB NOT NULL DEFAULT '[]',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS recon_matches (
	run_id            UUID NOT NULL REFERENCES recon_runs(run_id) ON DELETE CASCADE,
	pg_utr            TEXT NOT NULL,
	bank_utr          TEXT NOT NULL,
	tier              TEXT NOT NULL,
	matched_fields    TEXT NOT NULL,
	amount_delta_paise BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS recon_exceptions (
	run_id          UUID NOT NULL REFERENCES recon_runs(run_id) ON DELETE CASCADE,
	side            TEXT NOT NULL,
	reason_code     TEXT NOT NULL,
	severity        TEXT NOT NULL,
	detail          TEXT NOT NULL,
	resolution_hint TEXT NOT NULL,
	pg_utr          TEXT,
	bank_utr        TEXT,
	pg_amount_paise   BIGINT,
	bank_amount_paise BIGINT
);

CREATE TABLE IF NOT EXISTS recon_unmatched (
	run_id       UUID NOT NULL REFERENCES recon_runs(run_id) ON DELETE CASCADE,
	side         TEXT NOT NULL,
	reason_code  TEXT NOT NULL,
	detail       TEXT NOT NULL,
	utr          TEXT NOT NULL,
	amount_paise BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_recon_runs_cycle_date ON recon_runs(cycle_date);
`

// RunSummary is the stored header of one reconciliation run.
type RunSummary struct {
	RunID      string            `json:"run_id"`
	CycleDate  string            `json:"cycle_date"`
	Stats      recon.Stats       `json:"stats"`
	TopReasons []recon.TopReason `json:"top_reasons"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Store wraps a Postgres connection.
type Store struct {
	db  *sql.DB
	log logger.Logger
}

// New wraps an existing connection, which the caller owns.
func New(db *sql.DB, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{db: db, log: log.WithComponent("store")}
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string, log logger.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.StorageError(errors.CodeStorageUnavailable,
			"cannot open postgres connection", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.StorageError(errors.CodeStorageUnavailable,
			"cannot reach postgres", err).
			WithSuggestion("Check the database DSN and that Postgres is running")
	}
	return New(db, log), nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the run tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errors.StorageError(errors.CodeStorageUnavailable,
			"cannot create run tables", err)
	}
	return nil
}

// SaveRun stores a complete run and returns its generated ID. The write is
// all-or-nothing: any failure rolls back the whole run.
func (s *Store) SaveRun(ctx context.Context, result *recon.Result) (string, error) {
	if result == nil {
		return "", errors.InputError(errors.CodeInvalidInput, "result must not be nil", nil)
	}

	runID := uuid.New().String()
	topReasonsJSON, err := json.Marshal(result.TopReasons)
	if err != nil {
		return "", errors.InternalError("cannot encode top reasons", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", errors.StorageError(errors.CodeTxFailed, "cannot begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO recon_runs(
			run_id, cycle_date, total_pg, total_bank, matched,
			unmatched_pg, unmatched_bank, exceptions, match_rate_pct, top_reasons
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		runID, result.CycleDate, result.Stats.TotalPG, result.Stats.TotalBank,
		result.Stats.Matched, result.Stats.UnmatchedPG, result.Stats.UnmatchedBank,
		result.Stats.Exceptions, result.Stats.MatchRatePct, topReasonsJSON,
	)
	if err != nil {
		return "", errors.StorageError(errors.CodeTxFailed, "cannot insert run row", err)
	}

	for i := range result.Matched {
		m := &result.Matched[i]
		_, err = tx.ExecContext(ctx,
			`INSERT INTO recon_matches(
				run_id, pg_utr, bank_utr, tier, matched_fields, amount_delta_paise
			) VALUES ($1, $2, $3, $4, $5, $6)`,
			runID, m.PG.NormalizedUTR(), m.Bank.NormalizedUTR(),
			string(m.Tier), strings.Join(m.MatchedFields, ","), m.AmountDeltaPaise,
		)
		if err != nil {
			return "", errors.StorageError(errors.CodeTxFailed, "cannot insert match row", err)
		}
	}

	for i := range result.Exceptions {
		e := &result.Exceptions[i]
		var pgUTR, bankUTR sql.NullString
		var pgAmount, bankAmount sql.NullInt64
		if e.PG != nil {
			pgUTR = sql.NullString{String: e.PG.NormalizedUTR(), Valid: true}
			pgAmount = sql.NullInt64{Int64: e.PG.AmountPaise, Valid: true}
		}
		if e.Bank != nil {
			bankUTR = sql.NullString{String: e.Bank.NormalizedUTR(), Valid: true}
			bankAmount = sql.NullInt64{Int64: e.Bank.AmountPaise, Valid: true}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO recon_exceptions(
				run_id, side, reason_code, severity, detail, resolution_hint,
				pg_utr, bank_utr, pg_amount_paise, bank_amount_paise
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			runID, string(e.Side), string(e.ReasonCode), string(e.Severity),
			e.Detail, e.ResolutionHint, pgUTR, bankUTR, pgAmount, bankAmount,
		)
		if err != nil {
			return "", errors.StorageError(errors.CodeTxFailed, "cannot insert exception row", err)
		}
	}

	for i := range result.Unmatched {
		u := &result.Unmatched[i]
		utr, amount := "", int64(0)
		if u.PG != nil {
			utr, amount = u.PG.NormalizedUTR(), u.PG.AmountPaise
		} else if u.Bank != nil {
			utr, amount = u.Bank.NormalizedUTR(), u.Bank.AmountPaise
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO recon_unmatched(
				run_id, side, reason_code, detail, utr, amount_paise
			) VALUES ($1, $2, $3, $4, $5, $6)`,
			runID, string(u.Side), string(u.ReasonCode), u.Detail, utr, amount,
		)
		if err != nil {
			return "", errors.StorageError(errors.CodeTxFailed, "cannot insert unmatched row", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", errors.StorageError(errors.CodeTxFailed, "cannot commit run", err)
	}

	s.log.WithFields(logger.Fields{
		"run_id":     runID,
		"cycle_date": result.CycleDate,
		"matched":    result.Stats.Matched,
		"exceptions": result.Stats.Exceptions,
	}).Info("Reconciliation run stored")

	return runID, nil
}

// GetRun fetches a stored run summary by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*RunSummary, error) {
	summary := &RunSummary{RunID: runID}
	summary.Stats.ReasonCounts = make(map[recon.ReasonCode]int)

	var cycleDate time.Time
	var topReasonsJSON []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT cycle_date, total_pg, total_bank, matched,
			unmatched_pg, unmatched_bank, exceptions, match_rate_pct,
			top_reasons, created_at
		FROM recon_runs
		WHERE run_id = $1
	`, runID).Scan(
		&cycleDate, &summary.Stats.TotalPG, &summary.Stats.TotalBank,
		&summary.Stats.Matched, &summary.Stats.UnmatchedPG,
		&summary.Stats.UnmatchedBank, &summary.Stats.Exceptions,
		&summary.Stats.MatchRatePct, &topReasonsJSON, &summary.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.StorageError(errors.CodeNotFound,
			"reconciliation run not found", err)
	}
	if err != nil {
		return nil, errors.StorageError(errors.CodeStorageUnavailable,
			"cannot fetch run", err)
	}

	summary.CycleDate = cycleDate.Format("2006-01-02")
	if err := json.Unmarshal(topReasonsJSON, &summary.TopReasons); err != nil {
		return nil, errors.InternalError("cannot decode top reasons", err)
	}
	return summary, nil
}

// ListRuns returns the most recent run summaries, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, cycle_date, total_pg, total_bank, matched,
			unmatched_pg, unmatched_bank, exceptions, match_rate_pct,
			top_reasons, created_at
		FROM recon_runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, errors.StorageError(errors.CodeStorageUnavailable,
			"cannot list runs", err)
	}
	defer rows.Close()

	var summaries []*RunSummary
	for rows.Next() {
		summary := &RunSummary{}
		var cycleDate time.Time
		var topReasonsJSON []byte
		err = rows.Scan(
			&summary.RunID, &cycleDate, &summary.Stats.TotalPG,
			&summary.Stats.TotalBank, &summary.Stats.Matched,
			&summary.Stats.UnmatchedPG, &summary.Stats.UnmatchedBank,
			&summary.Stats.Exceptions, &summary.Stats.MatchRatePct,
			&topReasonsJSON, &summary.CreatedAt,
		)
		if err != nil {
			return nil, errors.StorageError(errors.CodeStorageUnavailable,
				"cannot scan run row", err)
		}
		summary.CycleDate = cycleDate.Format("2006-01-02")
		if err := json.Unmarshal(topReasonsJSON, &summary.TopReasons); err != nil {
			return nil, errors.InternalError("cannot decode top reasons", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError(errors.CodeStorageUnavailable,
			"cannot read run rows", err)
	}
	return summaries, nil
}

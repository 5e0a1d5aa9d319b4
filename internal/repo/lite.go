package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vbncursed/vkr/intent-gate/internal/models"
	"github.com/vbncursed/vkr/intent-gate/internal/service"
)

// LiteStore is the single-node SQLite adapter. It serves the same ports as
// Store for deployments without Postgres.
type LiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenLite opens (creating if needed) a SQLite database at path and applies
// the schema. ":memory:" gives a throwaway database.
func OpenLite(ctx context.Context, path string) (*LiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	s, err := NewLiteStore(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func NewLiteStore(ctx context.Context, db *sql.DB) (*LiteStore, error) {
	if err := runLiteMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	return &LiteStore{db: db, now: time.Now}, nil
}

func (s *LiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *LiteStore) Close() error                   { return s.db.Close() }

func (s *LiteStore) InsertIntent(ctx context.Context, r models.IntentRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO `+tableIntents+` (`+intentColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		r.Reference, r.Goal, r.PlanHash, r.PolicyDigest,
		r.Identity.UserID, r.Identity.AgentID, r.Identity.ContextID,
		r.StepCount, formatTime(r.IssuedAt), formatTime(r.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("insert intent: %w", err)
	}
	return nil
}

func (s *LiteStore) GetIntent(ctx context.Context, reference string) (models.IntentRecord, error) {
	var (
		r                   models.IntentRecord
		issuedAt, expiresAt string
	)
	err := s.db.QueryRowContext(ctx, `SELECT `+intentColumns+` FROM `+tableIntents+` WHERE `+colReference+`=?`, reference).
		Scan(&r.Reference, &r.Goal, &r.PlanHash, &r.PolicyDigest,
			&r.Identity.UserID, &r.Identity.AgentID, &r.Identity.ContextID,
			&r.StepCount, &issuedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.IntentRecord{}, service.ErrNotFound
		}
		return models.IntentRecord{}, err
	}
	if r.IssuedAt, err = parseTime(issuedAt); err != nil {
		return models.IntentRecord{}, err
	}
	if r.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return models.IntentRecord{}, err
	}
	return r, nil
}

func (s *LiteStore) Consume(ctx context.Context, key string, until time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO `+tableConsumedTokens+` (`+colReplayKey+`, `+colExpiresAt+`) VALUES (?,?)
		ON CONFLICT (`+colReplayKey+`) DO UPDATE SET `+colExpiresAt+`=excluded.`+colExpiresAt+`
		WHERE `+tableConsumedTokens+`.`+colExpiresAt+` <= ?`, key, until.Unix(), s.now().Unix())
	if err != nil {
		return false, fmt.Errorf("consume token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *LiteStore) PurgeConsumed(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+tableConsumedTokens+` WHERE `+colExpiresAt+` <= ?`, s.now().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *LiteStore) Record(ctx context.Context, rec models.AuditRecord) error {
	params, err := json.Marshal(rec.Params)
	if err != nil {
		return fmt.Errorf("audit params: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO `+tableAuditLog+` (`+auditColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.Action, string(params),
		rec.Identity.UserID, rec.Identity.AgentID, rec.Identity.ContextID,
		string(rec.Outcome), string(rec.State), rec.Reason, rec.TokenFingerprint, formatTime(rec.At),
	)
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

func (s *LiteStore) Recent(ctx context.Context, limit int) ([]models.AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+auditColumns+` FROM `+tableAuditLog+` ORDER BY rowid DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.AuditRecord
	for rows.Next() {
		var (
			rec                        models.AuditRecord
			params, outcome, state, at string
		)
		if err := rows.Scan(&rec.ID, &rec.Action, &params,
			&rec.Identity.UserID, &rec.Identity.AgentID, &rec.Identity.ContextID,
			&outcome, &state, &rec.Reason, &rec.TokenFingerprint, &at); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(params), &rec.Params); err != nil {
			return nil, fmt.Errorf("audit %s params: %w", rec.ID, err)
		}
		if rec.At, err = parseTime(at); err != nil {
			return nil, err
		}
		rec.Outcome, rec.State = models.Outcome(outcome), models.GateState(state)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}

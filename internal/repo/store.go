package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vbncursed/vkr/intent-gate/internal/models"
	"github.com/vbncursed/vkr/intent-gate/internal/service"
)

// Store is the Postgres adapter for the intent ledger, the replay guard and
// the audit log.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

func NewPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 5 * time.Minute
	return pgxpool.NewWithConfig(ctx, cfg)
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// InsertIntent records an issued intent.
func (s *Store) InsertIntent(ctx context.Context, r models.IntentRecord) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO `+tableIntents+` (`+intentColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		r.Reference, r.Goal, r.PlanHash, r.PolicyDigest,
		r.Identity.UserID, r.Identity.AgentID, r.Identity.ContextID,
		r.StepCount, r.IssuedAt, r.ExpiresAt,
	)
	return err
}

// GetIntent returns the intent or service.ErrNotFound.
func (s *Store) GetIntent(ctx context.Context, reference string) (models.IntentRecord, error) {
	var r models.IntentRecord
	err := s.pool.QueryRow(ctx, `SELECT `+intentColumns+` FROM `+tableIntents+` WHERE `+colReference+`=$1`, reference).
		Scan(&r.Reference, &r.Goal, &r.PlanHash, &r.PolicyDigest,
			&r.Identity.UserID, &r.Identity.AgentID, &r.Identity.ContextID,
			&r.StepCount, &r.IssuedAt, &r.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.IntentRecord{}, service.ErrNotFound
		}
		return models.IntentRecord{}, err
	}
	r.IssuedAt, r.ExpiresAt = r.IssuedAt.UTC(), r.ExpiresAt.UTC()
	return r, nil
}

// Consume marks a token as used. A row whose expiry has passed may be
// claimed again; a live row may not.
func (s *Store) Consume(ctx context.Context, key string, until time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `INSERT INTO `+tableConsumedTokens+` (`+colReplayKey+`, `+colExpiresAt+`) VALUES ($1,$2)
		ON CONFLICT (`+colReplayKey+`) DO UPDATE SET `+colExpiresAt+`=EXCLUDED.`+colExpiresAt+`
		WHERE `+tableConsumedTokens+`.`+colExpiresAt+` <= now()`, key, until)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// PurgeConsumed drops replay entries that expired before now.
func (s *Store) PurgeConsumed(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+tableConsumedTokens+` WHERE `+colExpiresAt+` <= now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Record appends an audit record.
func (s *Store) Record(ctx context.Context, rec models.AuditRecord) error {
	params, err := json.Marshal(rec.Params)
	if err != nil {
		return fmt.Errorf("audit params: %w", err)
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO `+tableAuditLog+` (`+auditColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		rec.ID, rec.Action, string(params),
		rec.Identity.UserID, rec.Identity.AgentID, rec.Identity.ContextID,
		string(rec.Outcome), string(rec.State), rec.Reason, rec.TokenFingerprint, rec.At,
	)
	return err
}

// Recent lists audit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]models.AuditRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+auditColumns+` FROM `+tableAuditLog+` ORDER BY `+colAt+` DESC LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.AuditRecord
	for rows.Next() {
		var (
			rec            models.AuditRecord
			params         []byte
			outcome, state string
		)
		if err := rows.Scan(&rec.ID, &rec.Action, &params,
			&rec.Identity.UserID, &rec.Identity.AgentID, &rec.Identity.ContextID,
			&outcome, &state, &rec.Reason, &rec.TokenFingerprint, &rec.At); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(params, &rec.Params); err != nil {
			return nil, fmt.Errorf("audit %s params: %w", rec.ID, err)
		}
		rec.Outcome, rec.State, rec.At = models.Outcome(outcome), models.GateState(state), rec.At.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

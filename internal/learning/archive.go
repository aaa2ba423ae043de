package learning

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGArchive writes events into the learning_events table so the audit trail
// survives restarts. The in-memory log stays the source of truth for queries;
// the archive is write-only from this process.
type PGArchive struct {
	pool *pgxpool.Pool
}

// NewPGArchive returns an archive backed by the given pool.
func NewPGArchive(pool *pgxpool.Pool) *PGArchive {
	return &PGArchive{pool: pool}
}

// Archive implements Archiver.
func (a *PGArchive) Archive(ctx context.Context, event Event) error {
	if a == nil || a.pool == nil {
		return errors.New("learning archive not initialised")
	}
	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return err
	}
	_, err = a.pool.Exec(ctx, `INSERT INTO learning_events (id, occurred_at, module, event_type, category, severity, data, tags) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.ID, event.Timestamp, event.Module, event.EventType, event.Category, string(event.Severity), dataJSON, event.Tags)
	return err
}

// PruneBefore deletes archived events older than cutoff. Used by the digest
// job to keep the table bounded.
func (a *PGArchive) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if a == nil || a.pool == nil {
		return 0, errors.New("learning archive not initialised")
	}
	tag, err := a.pool.Exec(ctx, `DELETE FROM learning_events WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

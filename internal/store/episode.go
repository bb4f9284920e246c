package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrEpisodeNotFound is returned when an episode does not exist.
var ErrEpisodeNotFound = errors.New("episode not found")

// Episode is one stretch of time during which an alert was active.
type Episode struct {
	ID        string     `json:"id"`
	Alert     string     `json:"alert"`
	Since     time.Time  `json:"since"`
	RaisedAt  time.Time  `json:"raised_at"`
	ClearedAt *time.Time `json:"cleared_at,omitempty"`
	// DurationMS runs from Since to ClearedAt; zero while the episode is open.
	DurationMS int64 `json:"duration_ms"`
}

// Duration returns DurationMS as a time.Duration.
func (e *Episode) Duration() time.Duration {
	return time.Duration(e.DurationMS) * time.Millisecond
}

// Open reports whether the alert is still active.
func (e *Episode) Open() bool {
	return e.ClearedAt == nil
}

// EpisodeRepository provides access to the alert journal.
type EpisodeRepository struct {
	db *sql.DB
}

// Episodes returns the episode repository for this store.
func (s *Store) Episodes() *EpisodeRepository {
	return &EpisodeRepository{db: s.db}
}

// Create inserts a new open episode.
func (r *EpisodeRepository) Create(ctx context.Context, e *Episode) error {
	if e.ID == "" {
		return fmt.Errorf("create episode: empty id")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO alert_episodes (id, alert, since, raised_at) VALUES (?, ?, ?, ?)`,
		e.ID, e.Alert, e.Since.UnixMilli(), e.RaisedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("create episode %s: %w", e.ID, err)
	}
	return nil
}

// Clear closes the episode at the given time. Clearing an episode that is
// already closed keeps the first clear time.
func (r *EpisodeRepository) Clear(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE alert_episodes SET cleared_at = ?, duration_ms = ? - since
		 WHERE id = ? AND cleared_at IS NULL`,
		at.UnixMilli(), at.UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("clear episode %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected > 0 {
		return nil
	}

	// Distinguish "already closed" from "never existed".
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return nil
}

// Get retrieves an episode by ID.
func (r *EpisodeRepository) Get(ctx context.Context, id string) (*Episode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, alert, since, raised_at, cleared_at, duration_ms
		 FROM alert_episodes WHERE id = ?`,
		id,
	)
	e, err := scanEpisode(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEpisodeNotFound
		}
		return nil, err
	}
	return e, nil
}

// List returns up to limit episodes, most recently raised first.
func (r *EpisodeRepository) List(ctx context.Context, limit int) ([]*Episode, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, alert, since, raised_at, cleared_at, duration_ms
		 FROM alert_episodes ORDER BY raised_at DESC, id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var episodes []*Episode
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return episodes, nil
}

// CloseOpen clears every episode still open, such as those left behind when
// the process was killed while an alert was active. It returns how many were closed.
func (r *EpisodeRepository) CloseOpen(ctx context.Context, at time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE alert_episodes SET cleared_at = ?, duration_ms = ? - since
		 WHERE cleared_at IS NULL`,
		at.UnixMilli(), at.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("close open episodes: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEpisode(row scanner) (*Episode, error) {
	var (
		e                Episode
		since, raisedAt  int64
		clearedAt, durMS sql.NullInt64
	)
	if err := row.Scan(&e.ID, &e.Alert, &since, &raisedAt, &clearedAt, &durMS); err != nil {
		return nil, err
	}

	e.Since = time.UnixMilli(since)
	e.RaisedAt = time.UnixMilli(raisedAt)
	if clearedAt.Valid {
		t := time.UnixMilli(clearedAt.Int64)
		e.ClearedAt = &t
	}
	if durMS.Valid {
		e.DurationMS = durMS.Int64
	}
	return &e, nil
}

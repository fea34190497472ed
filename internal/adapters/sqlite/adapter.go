// Package sqlite provides the SQLite-backed local track store used to
// supplement short mixes and as the target of background enrichment.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // driver

	"github.com/soundslike-labs/moodqueue/internal/core/domain"
	"github.com/soundslike-labs/moodqueue/internal/core/ports"
)

// Adapter implements the local library port on SQLite.
type Adapter struct {
	db *sql.DB
}

var _ ports.LocalLibrary = (*Adapter)(nil)

// NewAdapter opens the database and runs the schema migration.
func NewAdapter(storagePath string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	a := &Adapter{db: db}
	if err := a.migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return a, nil
}

// Close releases the database connection.
func (a *Adapter) Close() error {
	return a.db.Close()
}

func (a *Adapter) migrate() error {
	_, err := a.db.Exec(`
		CREATE TABLE IF NOT EXISTS tracks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			artist TEXT NOT NULL,
			album TEXT,
			genre TEXT,
			duration_ms INTEGER,
			cover_url TEXT,
			preview_url TEXT,
			danceability REAL,
			energy REAL,
			valence REAL,
			acousticness REAL,
			instrumentalness REAL,
			liveness REAL,
			speechiness REAL,
			tempo REAL,
			analyzed_at TIMESTAMP
		)
	`)
	return err
}

// SaveTracks upserts tracks, preserving any analyzed features already stored.
func (a *Adapter) SaveTracks(ctx context.Context, tracks []domain.Track) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tracks (id, title, artist, album, genre, duration_ms, cover_url, preview_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			artist = excluded.artist,
			album = excluded.album,
			genre = excluded.genre,
			duration_ms = excluded.duration_ms,
			cover_url = excluded.cover_url,
			preview_url = excluded.preview_url
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, t := range tracks {
		if t.ID == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, t.ID, t.Title, t.Artist, t.Album, t.Genre,
			t.DurationMs, t.CoverURL, t.PreviewURL); err != nil {
			return fmt.Errorf("failed to upsert track %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

// RandomSample returns up to n random tracks whose ids are not in exclude.
func (a *Adapter) RandomSample(ctx context.Context, n int, exclude []string) ([]domain.Track, error) {
	if n <= 0 {
		return nil, nil
	}

	query := `
		SELECT id, title, artist, IFNULL(album, ''), IFNULL(genre, ''),
			IFNULL(duration_ms, 0), IFNULL(cover_url, ''), IFNULL(preview_url, ''),
			IFNULL(danceability, 0), IFNULL(energy, 0), IFNULL(valence, 0),
			IFNULL(acousticness, 0), IFNULL(instrumentalness, 0),
			IFNULL(liveness, 0), IFNULL(speechiness, 0), IFNULL(tempo, 0)
		FROM tracks
	`
	args := make([]any, 0, len(exclude)+1)
	if len(exclude) > 0 {
		placeholders := strings.Repeat("?,", len(exclude))
		query += " WHERE id NOT IN (" + placeholders[:len(placeholders)-1] + ")"
		for _, id := range exclude {
			args = append(args, id)
		}
	}
	query += " ORDER BY RANDOM() LIMIT ?"
	args = append(args, n)

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to sample tracks: %w", err)
	}
	defer rows.Close()

	return scanTracks(rows)
}

// MissingFeatures lists up to limit tracks awaiting analysis.
func (a *Adapter) MissingFeatures(ctx context.Context, limit int) ([]domain.Track, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, title, artist, IFNULL(album, ''), IFNULL(genre, ''),
			IFNULL(duration_ms, 0), IFNULL(cover_url, ''), IFNULL(preview_url, ''),
			IFNULL(danceability, 0), IFNULL(energy, 0), IFNULL(valence, 0),
			IFNULL(acousticness, 0), IFNULL(instrumentalness, 0),
			IFNULL(liveness, 0), IFNULL(speechiness, 0), IFNULL(tempo, 0)
		FROM tracks
		WHERE analyzed_at IS NULL
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unanalyzed tracks: %w", err)
	}
	defer rows.Close()

	return scanTracks(rows)
}

// UpdateFeatures stores analyzed features for one track.
func (a *Adapter) UpdateFeatures(ctx context.Context, trackID string, f domain.AudioFeatures) error {
	res, err := a.db.ExecContext(ctx, `
		UPDATE tracks SET
			danceability = ?, energy = ?, valence = ?, acousticness = ?,
			instrumentalness = ?, liveness = ?, speechiness = ?, tempo = ?,
			analyzed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, f.Danceability, f.Energy, f.Valence, f.Acousticness,
		f.Instrumentalness, f.Liveness, f.Speechiness, f.Tempo, trackID)
	if err != nil {
		return fmt.Errorf("failed to update track features: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanTracks(rows *sql.Rows) ([]domain.Track, error) {
	var tracks []domain.Track
	for rows.Next() {
		var t domain.Track
		if err := rows.Scan(
			&t.ID, &t.Title, &t.Artist, &t.Album, &t.Genre,
			&t.DurationMs, &t.CoverURL, &t.PreviewURL,
			&t.Features.Danceability, &t.Features.Energy, &t.Features.Valence,
			&t.Features.Acousticness, &t.Features.Instrumentalness,
			&t.Features.Liveness, &t.Features.Speechiness, &t.Features.Tempo,
		); err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/shared"
)

// PlaylistRepository persists playlists together with their tracks and tags.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Save inserts or replaces the playlist, its tracks and its tags in one transaction.
//
// New playlists get the next sequence number; existing ones keep theirs. Saving a soft-deleted id restores it.
func (r *PlaylistRepository) Save(playlist *models.Playlist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	platformIDs, err := encodeColumn(playlist.PlatformIDs, "{}")
	if err != nil {
		return err
	}
	metadata, err := encodeColumn(playlist.Metadata, "{}")
	if err != nil {
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var sequence int
	err = tx.QueryRow("SELECT sequence FROM playlists WHERE id = ?", playlist.ID).Scan(&sequence)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if sequence, err = nextSequence(tx, "playlists"); err != nil {
			return fmt.Errorf("failed to generate sequence: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to look up playlist: %w", err)
	}

	query := `
		INSERT INTO playlists (id, sequence, name, description, platform_ids, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			platform_ids = excluded.platform_ids,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at,
			deleted_at = NULL
	`

	_, err = tx.Exec(query,
		playlist.ID,
		sequence,
		playlist.Name,
		playlist.Description,
		platformIDs,
		metadata,
		playlist.CreatedAt,
		playlist.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save playlist: %w", err)
	}

	if err := replaceTracks(tx, playlist.ID, playlist.Tracks); err != nil {
		return err
	}
	if err := replaceTags(tx, playlist.ID, playlist.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit playlist: %w", err)
	}
	return nil
}

// Get retrieves a playlist with its tracks and tags, excluding soft-deleted playlists
func (r *PlaylistRepository) Get(id string) (*models.Playlist, error) {
	query := `
		SELECT id, name, description, platform_ids, metadata, created_at, updated_at
		FROM playlists
		WHERE id = ? AND deleted_at IS NULL
	`

	playlist, err := r.scanOne(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if playlist.Tracks, err = listTracks(r.db, id); err != nil {
		return nil, err
	}
	if playlist.Tags, err = listTags(r.db, id); err != nil {
		return nil, err
	}
	return playlist, nil
}

// Delete soft-deletes a playlist by ID
func (r *PlaylistRepository) Delete(id string) error {
	query := `
		UPDATE playlists
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}

	return nil
}

// List returns summaries of live playlists in creation order.
//
// A non-empty query keeps playlists whose name contains it, ignoring case.
// Non-empty tags keep playlists carrying any of them.
func (r *PlaylistRepository) List(query string, tags []string) ([]models.PlaylistSummary, error) {
	stmt := `
		SELECT p.id, p.name, p.created_at, p.updated_at,
			(SELECT COUNT(*) FROM playlist_tracks t WHERE t.playlist_id = p.id) AS track_count
		FROM playlists p
		WHERE p.deleted_at IS NULL
	`

	args := []any{}

	if query = strings.TrimSpace(query); query != "" {
		stmt += " AND instr(lower(p.name), lower(?)) > 0"
		args = append(args, query)
	}

	if len(tags) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tags)), ",")
		stmt += fmt.Sprintf(" AND EXISTS (SELECT 1 FROM playlist_tags g WHERE g.playlist_id = p.id AND g.tag IN (%s))", placeholders)
		for _, tag := range tags {
			args = append(args, tag)
		}
	}

	stmt += " ORDER BY p.sequence ASC"

	rows, err := r.db.Query(stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}

	summaries := []models.PlaylistSummary{}
	for rows.Next() {
		var s models.PlaylistSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt, &s.TrackCount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	// tags are read after the cursor is closed; an in-memory database has a single connection
	for i := range summaries {
		if summaries[i].Tags, err = listTags(r.db, summaries[i].ID); err != nil {
			return nil, err
		}
	}

	return summaries, nil
}

// Count returns the number of live playlists.
func (r *PlaylistRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM playlists WHERE deleted_at IS NULL").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count playlists: %w", err)
	}
	return n, nil
}

// scanOne scans a single row into a [models.Playlist] without tracks or tags
func (r *PlaylistRepository) scanOne(row *sql.Row) (*models.Playlist, error) {
	var (
		id          string
		name        string
		description string
		platformIDs string
		metadata    string
		createdAt   time.Time
		updatedAt   time.Time
	)

	err := row.Scan(&id, &name, &description, &platformIDs, &metadata, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	playlist := &models.Playlist{
		ID:          id,
		Name:        name,
		Description: description,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
		PlatformIDs: map[string]string{},
		Metadata:    models.Metadata{},
	}
	if err := decodeColumn(platformIDs, &playlist.PlatformIDs); err != nil {
		return nil, err
	}
	if err := decodeColumn(metadata, &playlist.Metadata); err != nil {
		return nil, err
	}

	return playlist, nil
}

func replaceTags(tx *sql.Tx, playlistID string, tags []string) error {
	if _, err := tx.Exec("DELETE FROM playlist_tags WHERE playlist_id = ?", playlistID); err != nil {
		return fmt.Errorf("failed to clear tags: %w", err)
	}
	for i, tag := range tags {
		if _, err := tx.Exec("INSERT INTO playlist_tags (playlist_id, position, tag) VALUES (?, ?, ?)", playlistID, i, tag); err != nil {
			return fmt.Errorf("failed to insert tag %q: %w", tag, err)
		}
	}
	return nil
}

func listTags(q queryer, playlistID string) ([]string, error) {
	rows, err := q.Query("SELECT tag FROM playlist_tags WHERE playlist_id = ? ORDER BY position ASC", playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

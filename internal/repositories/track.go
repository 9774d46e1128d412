package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/plylist/internal/models"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// TrackRepository persists the ordered track rows of a playlist.
//
// Tracks have no life outside their playlist: rows are replaced wholesale whenever the playlist is saved.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// ListByPlaylist returns the playlist's tracks in position order.
func (r *TrackRepository) ListByPlaylist(playlistID string) ([]*models.Track, error) {
	return listTracks(r.db, playlistID)
}

// FindByISRC returns every stored track with isrc across live playlists.
func (r *TrackRepository) FindByISRC(isrc string) ([]*models.Track, error) {
	query := `
		SELECT t.track_id, t.title, t.artist, t.album, t.duration_ms, t.isrc,
			t.platform_ids, t.additional_artists, t.metadata, t.added_at
		FROM playlist_tracks t
		JOIN playlists p ON p.id = t.playlist_id
		WHERE t.isrc = ? AND p.deleted_at IS NULL
		ORDER BY p.sequence ASC, t.position ASC
	`

	rows, err := r.db.Query(query, isrc)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	return scanTracks(rows)
}

// Count returns the number of track rows across live playlists.
func (r *TrackRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM playlist_tracks t
		JOIN playlists p ON p.id = t.playlist_id
		WHERE p.deleted_at IS NULL
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count tracks: %w", err)
	}
	return n, nil
}

// replaceTracks rewrites the playlist's track rows inside tx.
func replaceTracks(tx *sql.Tx, playlistID string, tracks []*models.Track) error {
	if _, err := tx.Exec("DELETE FROM playlist_tracks WHERE playlist_id = ?", playlistID); err != nil {
		return fmt.Errorf("failed to clear tracks: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO playlist_tracks (
			playlist_id, position, track_id, title, artist, album, duration_ms, isrc,
			platform_ids, additional_artists, metadata, added_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare track insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range tracks {
		platformIDs, err := encodeColumn(t.PlatformIDs, "{}")
		if err != nil {
			return err
		}
		artists, err := encodeColumn(t.AdditionalArtists, "[]")
		if err != nil {
			return err
		}
		metadata, err := encodeColumn(t.Metadata, "{}")
		if err != nil {
			return err
		}

		var duration any
		if t.DurationMs > 0 {
			duration = t.DurationMs
		}

		if _, err := stmt.Exec(
			playlistID, i, t.ID, t.Title, t.Artist, t.Album, duration, t.ISRC,
			platformIDs, artists, metadata, t.AddedAt,
		); err != nil {
			return fmt.Errorf("failed to insert track %d: %w", i, err)
		}
	}

	return nil
}

func listTracks(q queryer, playlistID string) ([]*models.Track, error) {
	query := `
		SELECT track_id, title, artist, album, duration_ms, isrc,
			platform_ids, additional_artists, metadata, added_at
		FROM playlist_tracks
		WHERE playlist_id = ?
		ORDER BY position ASC
	`

	rows, err := q.Query(query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	return scanTracks(rows)
}

func scanTracks(rows *sql.Rows) ([]*models.Track, error) {
	tracks := []*models.Track{}
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// scanTrack scans a row from [sql.Rows] into a [models.Track]
func scanTrack(rows *sql.Rows) (*models.Track, error) {
	var (
		id          string
		title       string
		artist      string
		album       string
		duration    sql.NullInt64
		isrc        string
		platformIDs string
		artists     string
		metadata    string
		addedAt     time.Time
	)

	err := rows.Scan(&id, &title, &artist, &album, &duration, &isrc, &platformIDs, &artists, &metadata, &addedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}

	track := &models.Track{
		ID:                id,
		Title:             title,
		Artist:            artist,
		Album:             album,
		ISRC:              isrc,
		AddedAt:           addedAt,
		PlatformIDs:       map[string]string{},
		AdditionalArtists: []string{},
		Metadata:          models.Metadata{},
	}
	if duration.Valid {
		track.DurationMs = int(duration.Int64)
	}
	if err := decodeColumn(platformIDs, &track.PlatformIDs); err != nil {
		return nil, err
	}
	if err := decodeColumn(artists, &track.AdditionalArtists); err != nil {
		return nil, err
	}
	if err := decodeColumn(metadata, &track.Metadata); err != nil {
		return nil, err
	}

	return track, nil
}

package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/plylist/internal/models"
)

// SyncHistoryRepository records pushes and pulls. Records are never updated or deleted.
type SyncHistoryRepository struct {
	db *sql.DB
}

// NewSyncHistoryRepository creates a new SyncHistoryRepository with the given database connection
func NewSyncHistoryRepository(db *sql.DB) *SyncHistoryRepository {
	return &SyncHistoryRepository{db: db}
}

// Create inserts a sync record
func (r *SyncHistoryRepository) Create(record *models.SyncRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO sync_history (
			id, playlist_id, platform, direction, platform_playlist_id,
			tracks_total, tracks_missing, error_message, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var errorMessage any = record.Error
	if record.Error == "" {
		errorMessage = nil
	}

	_, err := r.db.Exec(query,
		record.ID,
		record.PlaylistID,
		record.Platform,
		string(record.Direction),
		record.PlatformPlaylistID,
		record.TracksTotal,
		record.TracksMissing,
		errorMessage,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync record: %w", err)
	}

	return nil
}

// List retrieves sync records newest first. Empty playlistID or platform match everything.
func (r *SyncHistoryRepository) List(playlistID, platform string) ([]*models.SyncRecord, error) {
	query := `
		SELECT
			id, playlist_id, platform, direction, platform_playlist_id,
			tracks_total, tracks_missing, error_message, created_at
		FROM sync_history
		WHERE 1 = 1
	`

	args := []any{}

	if playlistID != "" {
		query += " AND playlist_id = ?"
		args = append(args, playlistID)
	}

	if platform != "" {
		query += " AND platform = ?"
		args = append(args, platform)
	}

	query += " ORDER BY created_at DESC, rowid DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync history: %w", err)
	}
	defer rows.Close()

	records := []*models.SyncRecord{}
	for rows.Next() {
		record, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// Latest returns the most recent record for a playlist on a platform, or nil when it was never synced.
func (r *SyncHistoryRepository) Latest(playlistID, platform string) (*models.SyncRecord, error) {
	records, err := r.List(playlistID, platform)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// scanRow scans a row from [sql.Rows] into a [models.SyncRecord]
func (r *SyncHistoryRepository) scanRow(rows *sql.Rows) (*models.SyncRecord, error) {
	var (
		id                 string
		playlistID         string
		platform           string
		direction          string
		platformPlaylistID string
		tracksTotal        int
		tracksMissing      int
		errorMessage       sql.NullString
		createdAt          time.Time
	)

	err := rows.Scan(
		&id, &playlistID, &platform, &direction, &platformPlaylistID,
		&tracksTotal, &tracksMissing, &errorMessage, &createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync record: %w", err)
	}

	return &models.SyncRecord{
		ID:                 id,
		PlaylistID:         playlistID,
		Platform:           platform,
		Direction:          models.SyncDirection(direction),
		PlatformPlaylistID: platformPlaylistID,
		TracksTotal:        tracksTotal,
		TracksMissing:      tracksMissing,
		Error:              errorMessage.String,
		CreatedAt:          createdAt,
	}, nil
}

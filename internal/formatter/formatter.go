// package formatter reads and writes playlists as JSON and CSV, and writes Markdown and plain text for reading
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/shared"
)

// Format names a file format.
type Format string

const (
	JSON     Format = "json"
	CSV      Format = "csv"
	Markdown Format = "markdown"
	Text     Format = "text"
)

// CSVHeader is the first row of every CSV export.
var CSVHeader = []string{"Title", "Artist", "Album", "Duration (ms)", "ISRC", "Additional Artists"}

// ParseFormat accepts a format name or common alias ("md", "txt").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	case "text", "txt":
		return Text, nil
	default:
		return "", fmt.Errorf("%w: %q", shared.ErrUnsupportedFormat, s)
	}
}

// FormatFromPath infers the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", shared.ErrUnsupportedFormat, path)
	}
	return ParseFormat(ext)
}

// Importable reports whether playlists can be read back from f.
func (f Format) Importable() bool {
	return f == JSON || f == CSV
}

// Extension returns the conventional file extension without the dot.
func (f Format) Extension() string {
	switch f {
	case Markdown:
		return "md"
	case Text:
		return "txt"
	default:
		return string(f)
	}
}

// Export renders playlist in format f.
func Export(playlist *models.Playlist, f Format) ([]byte, error) {
	switch f {
	case JSON:
		return ExportToJSON(playlist)
	case CSV:
		return ExportToCSV(playlist)
	case Markdown:
		return ExportToMarkdown(playlist, "")
	case Text:
		return ExportToText(playlist)
	default:
		return nil, fmt.Errorf("%w: %q", shared.ErrUnsupportedFormat, f)
	}
}

// WriteFile exports playlist to path, creating parent directories.
func WriteFile(playlist *models.Playlist, path string, f Format) error {
	data, err := Export(playlist, f)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s export: %w", f, err)
	}
	return nil
}

// ReadFile imports a playlist from path. CSV playlists are named after the file.
func ReadFile(path string, f Format) (*models.Playlist, error) {
	if !f.Importable() {
		return nil, fmt.Errorf("%w: cannot import %s", shared.ErrUnsupportedFormat, f)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	if f == CSV {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		return ImportCSV(file, name)
	}
	return ImportJSON(file)
}

// ExportToJSON serializes the full playlist with nested tracks, indented two spaces.
func ExportToJSON(playlist *models.Playlist) ([]byte, error) {
	return shared.MarshalJSON(playlist, true)
}

// ImportJSON decodes a playlist document. Missing ids and timestamps are filled in.
func ImportJSON(r io.Reader) (*models.Playlist, error) {
	var playlist models.Playlist
	if err := json.NewDecoder(r).Decode(&playlist); err != nil {
		return nil, fmt.Errorf("%w: invalid playlist JSON: %v", shared.ErrInvalidInput, err)
	}
	if err := playlist.Validate(); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// ExportToCSV writes one row per track under [CSVHeader]. Unknown durations are left empty.
func ExportToCSV(playlist *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(CSVHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range playlist.Tracks {
		duration := ""
		if track.DurationMs > 0 {
			duration = strconv.Itoa(track.DurationMs)
		}
		record := []string{
			track.Title,
			track.Artist,
			track.Album,
			duration,
			track.ISRC,
			strings.Join(track.AdditionalArtists, ", "),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ImportCSV reads tracks from CSV with a header row into a new playlist called name.
//
// Columns are located by header name, so extra or reordered columns are fine. Rows without a
// title or artist are skipped, as are unparseable durations (the track is kept without one).
func ImportCSV(r io.Reader, name string) (*models.Playlist, error) {
	playlist, err := models.NewPlaylist(name, "")
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty CSV", shared.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV header: %v", shared.ErrInvalidInput, err)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := columns["title"]; !ok {
		return nil, fmt.Errorf("%w: CSV has no Title column", shared.ErrInvalidInput)
	}
	if _, ok := columns["artist"]; !ok {
		return nil, fmt.Errorf("%w: CSV has no Artist column", shared.ErrInvalidInput)
	}

	field := func(record []string, column string) string {
		i, ok := columns[column]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read CSV: %v", shared.ErrInvalidInput, err)
		}

		track, err := models.NewTrack(field(record, "title"), field(record, "artist"))
		if err != nil {
			continue
		}
		track.Album = field(record, "album")
		track.ISRC = field(record, "isrc")
		if ms, err := strconv.Atoi(field(record, "duration (ms)")); err == nil && ms > 0 {
			track.DurationMs = ms
		}
		for _, extra := range strings.Split(field(record, "additional artists"), ",") {
			if extra = strings.TrimSpace(extra); extra != "" {
				track.AdditionalArtists = append(track.AdditionalArtists, extra)
			}
		}

		if err := playlist.AddTrack(track); err != nil {
			return nil, err
		}
	}

	return playlist, nil
}

// ExportToMarkdown renders the playlist as a Markdown document with an optional cover image.
func ExportToMarkdown(playlist *models.Playlist, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", playlist.Name)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	if playlist.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", playlist.Description)
	}

	fmt.Fprintf(&buf, "**Tracks**: %d\n", playlist.TrackCount())
	fmt.Fprintf(&buf, "**Duration**: %s\n", playlist.DurationString())
	if len(playlist.Tags) > 0 {
		fmt.Fprintf(&buf, "**Tags**: %s\n", strings.Join(playlist.Tags, ", "))
	}
	fmt.Fprintf(&buf, "**Updated**: %s\n\n", playlist.UpdatedAt.Format(time.DateOnly))

	buf.WriteString("## Tracks\n\n")
	for i, track := range playlist.Tracks {
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, strings.Join(track.Artists(), ", "), track.Title, albumPart, shared.FormatDuration(track.DurationMs))
	}

	return buf.Bytes(), nil
}

// ExportToText renders the playlist as plain text
func ExportToText(playlist *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", playlist.Name)
	if playlist.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", playlist.Description)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n", playlist.TrackCount())
	fmt.Fprintf(&buf, "Duration: %s\n\n", playlist.DurationString())

	for i, track := range playlist.Tracks {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, track.String())
	}

	return buf.Bytes(), nil
}

// CoverURL returns the first artwork URL any track carries in its platform metadata.
func CoverURL(playlist *models.Playlist) string {
	for _, track := range playlist.Tracks {
		for platform := range track.PlatformIDs {
			if u := track.Metadata.Section(platform).String("artwork"); u != "" {
				return u
			}
		}
	}
	return ""
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL provided", shared.ErrInvalidArgument)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
	CoverError error // set when a cover was requested but could not be saved
}

// WriteMarkdownExport exports a playlist to Markdown format in a dedicated directory.
//
// Directory name defaults to the playlist ID. When imageURL is set the cover is downloaded next
// to the document; a failed download still writes the document and is reported in CoverError.
// Creates a directory structure: {dir}/README.md and optionally {dir}/cover.jpg
func WriteMarkdownExport(client *http.Client, playlist *models.Playlist, outputDir, imageURL string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = playlist.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if imageURL != "" {
		imageData, err := DownloadImage(client, imageURL)
		if err != nil {
			result.CoverError = err
		} else {
			coverImagePath := filepath.Join(outputDir, "cover.jpg")
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				result.CoverError = fmt.Errorf("failed to save cover image: %w", err)
			} else {
				coverImageFilename = "cover.jpg"
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(playlist, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// Apple Music API implementation of [Platform]
//
// Response types based on https://developer.apple.com/documentation/applemusicapi
package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/shared"
)

const (
	appleMusicBaseURL     = "https://api.music.apple.com/v1"
	appleMusicSearchLimit = 5
	appleMusicPageLimit   = 100
	artworkSize           = "600"
)

type amArtwork struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type amPreview struct {
	URL string `json:"url"`
}

type amPlayParams struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	CatalogID string `json:"catalogId"`
}

// amSong is a catalog song or a library song; library songs point back to the catalog via playParams.
type amSong struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		Name             string       `json:"name"`
		ArtistName       string       `json:"artistName"`
		AlbumName        string       `json:"albumName"`
		DurationInMillis int          `json:"durationInMillis"`
		ISRC             string       `json:"isrc"`
		URL              string       `json:"url"`
		GenreNames       []string     `json:"genreNames"`
		Previews         []amPreview  `json:"previews"`
		Artwork          amArtwork    `json:"artwork"`
		PlayParams       amPlayParams `json:"playParams"`
	} `json:"attributes"`
}

type amDescription struct {
	Standard string `json:"standard"`
	Short    string `json:"short,omitempty"`
}

type amPlaylist struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		Name        string        `json:"name"`
		Description amDescription `json:"description"`
		CanEdit     bool          `json:"canEdit"`
		DateAdded   string        `json:"dateAdded"`
	} `json:"attributes"`
}

type amStorefront struct {
	ID string `json:"id"`
}

// amResponse is the {data: [...]} envelope; next is set on paginated collections.
type amResponse[T any] struct {
	Data []T    `json:"data"`
	Next string `json:"next,omitempty"`
}

type amSearchResponse struct {
	Results struct {
		Songs *amResponse[amSong] `json:"songs"`
	} `json:"results"`
}

type amResourceRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type amPlaylistAttributes struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type amCreatePlaylistRequest struct {
	Attributes    amPlaylistAttributes `json:"attributes"`
	Relationships struct {
		Tracks amResponse[amResourceRef] `json:"tracks"`
	} `json:"relationships"`
}

type amUpdatePlaylistRequest struct {
	Attributes amPlaylistAttributes `json:"attributes"`
}

// apiError is a non-2xx response from a platform API.
type apiError struct {
	platform string
	method   string
	endpoint string
	status   int
	body     string
}

func (e *apiError) Error() string {
	msg := fmt.Sprintf("%s %s %s: status %d", e.platform, e.method, e.endpoint, e.status)
	if e.body != "" {
		msg += ": " + e.body
	}
	return msg
}

func (e *apiError) Unwrap() []error {
	if e.status == http.StatusUnauthorized || e.status == http.StatusForbidden {
		return []error{shared.ErrAPIRequest, shared.ErrAuthFailed}
	}
	return []error{shared.ErrAPIRequest}
}

func hasStatus(err error, status int) bool {
	var apiErr *apiError
	return errors.As(err, &apiErr) && apiErr.status == status
}

// AppleMusicOpts configures [NewAppleMusic].
type AppleMusicOpts struct {
	DeveloperToken string
	UserToken      string
	Storefront     string // defaults to "us"
	BaseURL        string // defaults to the public API
	HTTPClient     *http.Client
	Logger         *log.Logger
	Metrics        *Metrics
	MemoSize       int
}

// AppleMusic implements [Platform] against the Apple Music API.
type AppleMusic struct {
	Base
	baseURL        string
	storefront     string
	developerToken string
	userToken      string
	httpClient     *http.Client
	logger         *log.Logger
	metrics        *Metrics
	memo           *searchMemo
}

// NewAppleMusic creates an unauthenticated adapter. Call Authenticate before anything else.
func NewAppleMusic(opts AppleMusicOpts) *AppleMusic {
	if opts.BaseURL == "" {
		opts.BaseURL = appleMusicBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &AppleMusic{
		Base:           Base{platform: AppleMusicType},
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		storefront:     opts.Storefront,
		developerToken: opts.DeveloperToken,
		userToken:      opts.UserToken,
		httpClient:     opts.HTTPClient,
		logger:         shared.WithLogger(opts.Logger, "platform", AppleMusicType),
		metrics:        opts.Metrics,
		memo:           newSearchMemo(opts.MemoSize),
	}
}

// Storefront returns the catalog region used for searches.
func (a *AppleMusic) Storefront() string {
	return a.storefront
}

// Authenticate validates both tokens by fetching the user's storefront.
// When no storefront was configured the user's own is adopted.
func (a *AppleMusic) Authenticate(ctx context.Context) error {
	a.setAuthenticated(false)
	if a.developerToken == "" {
		return fmt.Errorf("%w: %w: developer token", shared.ErrAuthFailed, shared.ErrMissingCredentials)
	}
	if a.userToken == "" {
		return fmt.Errorf("%w: %w: music user token", shared.ErrAuthFailed, shared.ErrMissingCredentials)
	}

	var resp amResponse[amStorefront]
	if err := a.doRequest(ctx, http.MethodGet, "/me/storefront", nil, &resp); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	if a.storefront == "" {
		a.storefront = "us"
		if len(resp.Data) > 0 && resp.Data[0].ID != "" {
			a.storefront = resp.Data[0].ID
		}
	}

	a.setAuthenticated(true)
	a.logger.Debug("authenticated", "storefront", a.storefront)
	return nil
}

// doRequest performs an authenticated request against the API. Endpoints under /me carry the user token.
func (a *AppleMusic) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+a.developerToken)
	if strings.HasPrefix(endpoint, "/me") {
		req.Header.Set("Music-User-Token", a.userToken)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &apiError{
			platform: a.Name(),
			method:   method,
			endpoint: endpoint,
			status:   resp.StatusCode,
			body:     strings.TrimSpace(string(snippet)),
		}
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

// SearchTrack returns the first of the top catalog songs whose title and artist contain the query's.
func (a *AppleMusic) SearchTrack(ctx context.Context, title, artist string) (*models.Track, error) {
	if err := a.CheckAuth(); err != nil {
		return nil, err
	}

	if cached, ok := a.memo.get(title, artist); ok {
		a.metrics.observeSearch(a.Name(), searchCached)
		if cached == nil {
			return nil, fmt.Errorf("%w: %s by %s", shared.ErrTrackNotFound, title, artist)
		}
		return cached, nil
	}

	query := url.Values{}
	query.Set("term", searchTerm(title, artist))
	query.Set("types", "songs")
	query.Set("limit", strconv.Itoa(appleMusicSearchLimit))
	endpoint := fmt.Sprintf("/catalog/%s/search?%s", url.PathEscape(a.storefront), query.Encode())

	var resp amSearchResponse
	if err := a.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		a.metrics.observeSearch(a.Name(), searchError)
		return nil, err
	}

	if resp.Results.Songs != nil {
		for _, song := range resp.Results.Songs.Data {
			if !acceptCandidate(song.Attributes.Name, song.Attributes.ArtistName, title, artist) {
				continue
			}
			track, err := a.songToTrack(song)
			if err != nil {
				continue
			}
			a.memo.put(title, artist, track)
			a.metrics.observeSearch(a.Name(), searchHit)
			return track, nil
		}
	}

	a.memo.put(title, artist, nil)
	a.metrics.observeSearch(a.Name(), searchMiss)
	return nil, fmt.Errorf("%w: %s by %s", shared.ErrTrackNotFound, title, artist)
}

// GetTrack fetches a catalog song by id.
func (a *AppleMusic) GetTrack(ctx context.Context, platformID string) (*models.Track, error) {
	if err := a.CheckAuth(); err != nil {
		return nil, err
	}

	var resp amResponse[amSong]
	endpoint := fmt.Sprintf("/catalog/%s/songs/%s", url.PathEscape(a.storefront), url.PathEscape(platformID))
	if err := a.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		if hasStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, platformID)
		}
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, platformID)
	}
	return a.songToTrack(resp.Data[0])
}

// CreatePlaylist creates a library playlist holding every track that resolves in the catalog.
func (a *AppleMusic) CreatePlaylist(ctx context.Context, playlist *models.Playlist) (string, error) {
	if err := a.CheckAuth(); err != nil {
		return "", err
	}

	res, err := Resolve(ctx, a, playlist.Tracks, a.logger)
	if err != nil {
		return "", err
	}
	a.metrics.observeUnresolved(a.Name(), len(res.Missing))

	var body amCreatePlaylistRequest
	body.Attributes = amPlaylistAttributes{Name: playlist.Name, Description: playlist.Description}
	body.Relationships.Tracks.Data = songRefs(res.IDs)

	var resp amResponse[amPlaylist]
	if err := a.doRequest(ctx, http.MethodPost, "/me/library/playlists", body, &resp); err != nil {
		return "", err
	}
	if len(resp.Data) == 0 || resp.Data[0].ID == "" {
		return "", fmt.Errorf("%w: create response contained no playlist", shared.ErrAPIRequest)
	}

	a.logger.Info("created playlist", "name", playlist.Name, "remote_id", resp.Data[0].ID, "tracks", len(res.IDs), "missing", len(res.Missing))
	return resp.Data[0].ID, nil
}

// UpdatePlaylist pushes name and description, then replaces the remote track list with the resolvable local tracks.
func (a *AppleMusic) UpdatePlaylist(ctx context.Context, playlist *models.Playlist) error {
	if err := a.CheckAuth(); err != nil {
		return err
	}

	remoteID, ok := playlist.PlatformID(a.Name())
	if !ok {
		return fmt.Errorf("%w: playlist %s has no %s id", shared.ErrInvalidInput, playlist.ID, a.Name())
	}

	res, err := Resolve(ctx, a, playlist.Tracks, a.logger)
	if err != nil {
		return err
	}
	a.metrics.observeUnresolved(a.Name(), len(res.Missing))

	body := amUpdatePlaylistRequest{Attributes: amPlaylistAttributes{Name: playlist.Name, Description: playlist.Description}}
	if err := a.doRequest(ctx, http.MethodPatch, playlistEndpoint(remoteID), body, nil); err != nil {
		if hasStatus(err, http.StatusNotFound) {
			return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, remoteID)
		}
		return err
	}

	return a.replaceTracks(ctx, remoteID, res.IDs)
}

// DeletePlaylist removes a library playlist.
func (a *AppleMusic) DeletePlaylist(ctx context.Context, platformID string) error {
	if err := a.CheckAuth(); err != nil {
		return err
	}
	if err := a.doRequest(ctx, http.MethodDelete, playlistEndpoint(platformID), nil, nil); err != nil {
		if hasStatus(err, http.StatusNotFound) {
			return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, platformID)
		}
		return err
	}
	return nil
}

// GetPlaylist fetches a library playlist and all of its tracks as a new local playlist.
func (a *AppleMusic) GetPlaylist(ctx context.Context, platformID string) (*models.Playlist, error) {
	if err := a.CheckAuth(); err != nil {
		return nil, err
	}

	var resp amResponse[amPlaylist]
	if err := a.doRequest(ctx, http.MethodGet, playlistEndpoint(platformID), nil, &resp); err != nil {
		if hasStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, platformID)
		}
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, platformID)
	}

	playlist, err := a.toPlaylist(resp.Data[0])
	if err != nil {
		return nil, err
	}

	songs, err := a.playlistSongs(ctx, platformID)
	if err != nil {
		return nil, err
	}
	for _, song := range songs {
		track, err := a.songToTrack(song)
		if err != nil {
			a.logger.Debug("skipping library song without title or artist", "id", song.ID)
			continue
		}
		playlist.Tracks = append(playlist.Tracks, track)
	}

	return playlist, nil
}

// GetUserPlaylists lists the user's library playlists without their tracks.
func (a *AppleMusic) GetUserPlaylists(ctx context.Context) ([]*models.Playlist, error) {
	if err := a.CheckAuth(); err != nil {
		return nil, err
	}

	var playlists []*models.Playlist
	endpoint := fmt.Sprintf("/me/library/playlists?limit=%d", appleMusicPageLimit)
	for endpoint != "" {
		var resp amResponse[amPlaylist]
		if err := a.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
			return nil, err
		}
		for _, item := range resp.Data {
			p, err := a.toPlaylist(item)
			if err != nil {
				continue
			}
			playlists = append(playlists, p)
		}
		endpoint = a.nextEndpoint(resp.Next)
	}

	return playlists, nil
}

// AddTracksToPlaylist appends catalog songs to a library playlist.
func (a *AppleMusic) AddTracksToPlaylist(ctx context.Context, platformPlaylistID string, trackIDs []string) error {
	if err := a.CheckAuth(); err != nil {
		return err
	}
	if len(trackIDs) == 0 {
		return nil
	}

	body := amResponse[amResourceRef]{Data: songRefs(trackIDs)}
	if err := a.doRequest(ctx, http.MethodPost, playlistEndpoint(platformPlaylistID)+"/tracks", body, nil); err != nil {
		if hasStatus(err, http.StatusNotFound) {
			return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, platformPlaylistID)
		}
		return err
	}
	return nil
}

// RemoveTracksFromPlaylist drops every occurrence of trackIDs by rewriting the remote track list.
func (a *AppleMusic) RemoveTracksFromPlaylist(ctx context.Context, platformPlaylistID string, trackIDs []string) error {
	if err := a.CheckAuth(); err != nil {
		return err
	}
	if len(trackIDs) == 0 {
		return nil
	}

	songs, err := a.playlistSongs(ctx, platformPlaylistID)
	if err != nil {
		return err
	}

	drop := make(map[string]struct{}, len(trackIDs))
	for _, id := range trackIDs {
		drop[id] = struct{}{}
	}

	kept := make([]string, 0, len(songs))
	for _, song := range songs {
		id := catalogID(song)
		if _, ok := drop[id]; ok {
			continue
		}
		kept = append(kept, id)
	}

	return a.replaceTracks(ctx, platformPlaylistID, kept)
}

// replaceTracks sets the remote track list to exactly ids.
func (a *AppleMusic) replaceTracks(ctx context.Context, platformPlaylistID string, ids []string) error {
	body := amResponse[amResourceRef]{Data: songRefs(ids)}
	if err := a.doRequest(ctx, http.MethodPut, playlistEndpoint(platformPlaylistID)+"/tracks", body, nil); err != nil {
		if hasStatus(err, http.StatusNotFound) {
			return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, platformPlaylistID)
		}
		return err
	}
	return nil
}

// playlistSongs pages through a library playlist's tracks. An empty playlist answers 404.
func (a *AppleMusic) playlistSongs(ctx context.Context, platformPlaylistID string) ([]amSong, error) {
	var songs []amSong
	endpoint := fmt.Sprintf("%s/tracks?limit=%d", playlistEndpoint(platformPlaylistID), appleMusicPageLimit)
	for endpoint != "" {
		var resp amResponse[amSong]
		if err := a.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
			if hasStatus(err, http.StatusNotFound) {
				return songs, nil
			}
			return nil, err
		}
		songs = append(songs, resp.Data...)
		endpoint = a.nextEndpoint(resp.Next)
	}
	return songs, nil
}

// nextEndpoint turns a "next" link such as "/v1/me/library/playlists?offset=100" into an endpoint relative to baseURL.
func (a *AppleMusic) nextEndpoint(next string) string {
	if next == "" {
		return ""
	}
	if u, err := url.Parse(a.baseURL); err == nil && u.Path != "" {
		next = strings.TrimPrefix(next, u.Path)
	}
	return next
}

func (a *AppleMusic) toPlaylist(item amPlaylist) (*models.Playlist, error) {
	p, err := models.NewPlaylist(item.Attributes.Name, item.Attributes.Description.Standard)
	if err != nil {
		return nil, err
	}
	p.SetPlatformID(a.Name(), item.ID)
	return p, nil
}

func (a *AppleMusic) songToTrack(song amSong) (*models.Track, error) {
	attrs := song.Attributes
	track, err := models.NewTrack(attrs.Name, attrs.ArtistName)
	if err != nil {
		return nil, err
	}

	track.Album = attrs.AlbumName
	track.DurationMs = attrs.DurationInMillis
	track.ISRC = attrs.ISRC
	track.SetPlatformID(a.Name(), catalogID(song))

	extras := map[string]any{}
	if attrs.URL != "" {
		extras["url"] = attrs.URL
	}
	if len(attrs.Previews) > 0 && attrs.Previews[0].URL != "" {
		extras["preview_url"] = attrs.Previews[0].URL
	}
	if attrs.Artwork.URL != "" {
		artwork := strings.NewReplacer("{w}", artworkSize, "{h}", artworkSize).Replace(attrs.Artwork.URL)
		extras["artwork"] = artwork
	}
	if len(attrs.GenreNames) > 0 {
		extras["genres"] = append([]string{}, attrs.GenreNames...)
	}
	if len(extras) > 0 {
		track.Metadata[a.Name()] = extras
	}

	return track, nil
}

// catalogID prefers the catalog id a library song points at.
func catalogID(song amSong) string {
	if song.Attributes.PlayParams.CatalogID != "" {
		return song.Attributes.PlayParams.CatalogID
	}
	return song.ID
}

func songRefs(ids []string) []amResourceRef {
	refs := make([]amResourceRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, amResourceRef{ID: id, Type: "songs"})
	}
	return refs
}

func playlistEndpoint(platformID string) string {
	return "/me/library/playlists/" + url.PathEscape(platformID)
}

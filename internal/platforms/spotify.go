// Spotify Web API implementation of [Platform] backed by github.com/zmb3/spotify/v2.
package platforms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/shared"
)

const (
	spotifyAuthURL     = "https://accounts.spotify.com/authorize"
	spotifyTokenURL    = "https://accounts.spotify.com/api/token"
	spotifySearchLimit = 5
	spotifyPageLimit   = 50
	spotifyBatchSize   = 100 // max tracks per playlist write
)

// SpotifyScopes are requested during the authorization code flow.
var SpotifyScopes = []string{
	"playlist-read-private",
	"playlist-read-collaborative",
	"playlist-modify-public",
	"playlist-modify-private",
	"user-read-private",
}

// SpotifyOAuthConfig builds the oauth2 config for the authorization code flow.
func SpotifyOAuthConfig(clientID, clientSecret, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       SpotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}
}

// SpotifyOpts configures [NewSpotify].
//
// When HTTPClient is set it is used as-is and OAuth/Token are ignored.
type SpotifyOpts struct {
	OAuth      *oauth2.Config
	Token      *oauth2.Token
	HTTPClient *http.Client
	BaseURL    string
	Logger     *log.Logger
	Metrics    *Metrics
	MemoSize   int
}

// Spotify implements [Platform] for a Spotify user session.
type Spotify struct {
	Base
	opts        SpotifyOpts
	client      *spotify.Client
	tokenSource oauth2.TokenSource
	userID      string
	logger      *log.Logger
	metrics     *Metrics
	memo        *searchMemo
}

// NewSpotify creates an unauthenticated adapter.
func NewSpotify(opts SpotifyOpts) *Spotify {
	return &Spotify{
		Base:    Base{platform: SpotifyType},
		opts:    opts,
		logger:  shared.WithLogger(opts.Logger, "platform", SpotifyType),
		metrics: opts.Metrics,
		memo:    newSearchMemo(opts.MemoSize),
	}
}

// Authenticate builds the API client from the stored token (refreshing it when expired)
// and confirms it by fetching the current user.
func (s *Spotify) Authenticate(ctx context.Context) error {
	s.setAuthenticated(false)

	httpClient := s.opts.HTTPClient
	if httpClient == nil {
		if s.opts.OAuth == nil || s.opts.Token == nil || (s.opts.Token.AccessToken == "" && s.opts.Token.RefreshToken == "") {
			return fmt.Errorf("%w: %w: run `plylist spotify auth` first", shared.ErrAuthFailed, shared.ErrMissingCredentials)
		}
		s.tokenSource = s.opts.OAuth.TokenSource(context.WithoutCancel(ctx), s.opts.Token)
		httpClient = oauth2.NewClient(context.WithoutCancel(ctx), s.tokenSource)
	}

	var clientOpts []spotify.ClientOption
	if s.opts.BaseURL != "" {
		clientOpts = append(clientOpts, spotify.WithBaseURL(strings.TrimRight(s.opts.BaseURL, "/")+"/"))
	}
	s.client = spotify.New(httpClient, clientOpts...)

	user, err := s.client.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	s.userID = user.ID
	s.setAuthenticated(true)
	s.logger.Debug("authenticated", "user", user.ID)
	return nil
}

// Token returns the current, possibly refreshed, token so callers can persist it.
func (s *Spotify) Token() (*oauth2.Token, error) {
	if s.tokenSource == nil {
		return nil, fmt.Errorf("%w: no token source", shared.ErrNotAuthenticated)
	}
	return s.tokenSource.Token()
}

// UserID returns the authenticated user's id.
func (s *Spotify) UserID() string {
	return s.userID
}

// SearchTrack returns the first of the top catalog tracks whose title and any artist contain the query's.
func (s *Spotify) SearchTrack(ctx context.Context, title, artist string) (*models.Track, error) {
	if err := s.CheckAuth(); err != nil {
		return nil, err
	}

	if cached, ok := s.memo.get(title, artist); ok {
		s.metrics.observeSearch(s.Name(), searchCached)
		if cached == nil {
			return nil, fmt.Errorf("%w: %s by %s", shared.ErrTrackNotFound, title, artist)
		}
		return cached, nil
	}

	query := fmt.Sprintf("track:%s artist:%s", strings.TrimSpace(title), strings.TrimSpace(artist))
	results, err := s.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(spotifySearchLimit))
	if err != nil {
		s.metrics.observeSearch(s.Name(), searchError)
		return nil, s.wrapError(err, shared.ErrTrackNotFound, query)
	}

	if results.Tracks != nil {
		for i := range results.Tracks.Tracks {
			candidate := &results.Tracks.Tracks[i]
			if !acceptCandidate(candidate.Name, joinArtists(candidate.Artists), title, artist) {
				continue
			}
			track, err := s.toTrack(candidate)
			if err != nil {
				continue
			}
			s.memo.put(title, artist, track)
			s.metrics.observeSearch(s.Name(), searchHit)
			return track, nil
		}
	}

	s.memo.put(title, artist, nil)
	s.metrics.observeSearch(s.Name(), searchMiss)
	return nil, fmt.Errorf("%w: %s by %s", shared.ErrTrackNotFound, title, artist)
}

// GetTrack fetches a catalog track by id.
func (s *Spotify) GetTrack(ctx context.Context, platformID string) (*models.Track, error) {
	if err := s.CheckAuth(); err != nil {
		return nil, err
	}

	full, err := s.client.GetTrack(ctx, spotify.ID(platformID))
	if err != nil {
		return nil, s.wrapError(err, shared.ErrTrackNotFound, platformID)
	}
	return s.toTrack(full)
}

// CreatePlaylist creates a private playlist owned by the user holding every resolvable track.
func (s *Spotify) CreatePlaylist(ctx context.Context, playlist *models.Playlist) (string, error) {
	if err := s.CheckAuth(); err != nil {
		return "", err
	}

	res, err := Resolve(ctx, s, playlist.Tracks, s.logger)
	if err != nil {
		return "", err
	}
	s.metrics.observeUnresolved(s.Name(), len(res.Missing))

	created, err := s.client.CreatePlaylistForUser(ctx, s.userID, playlist.Name, playlist.Description, false, false)
	if err != nil {
		return "", s.wrapError(err, shared.ErrPlaylistNotFound, playlist.Name)
	}

	remoteID := string(created.ID)
	if err := s.addInBatches(ctx, created.ID, toSpotifyIDs(res.IDs)); err != nil {
		return "", err
	}

	s.logger.Info("created playlist", "name", playlist.Name, "remote_id", remoteID, "tracks", len(res.IDs), "missing", len(res.Missing))
	return remoteID, nil
}

// UpdatePlaylist pushes name and description and replaces the remote track list.
func (s *Spotify) UpdatePlaylist(ctx context.Context, playlist *models.Playlist) error {
	if err := s.CheckAuth(); err != nil {
		return err
	}

	remoteID, ok := playlist.PlatformID(s.Name())
	if !ok {
		return fmt.Errorf("%w: playlist %s has no %s id", shared.ErrInvalidInput, playlist.ID, s.Name())
	}

	res, err := Resolve(ctx, s, playlist.Tracks, s.logger)
	if err != nil {
		return err
	}
	s.metrics.observeUnresolved(s.Name(), len(res.Missing))

	id := spotify.ID(remoteID)
	if err := s.client.ChangePlaylistName(ctx, id, playlist.Name); err != nil {
		return s.wrapError(err, shared.ErrPlaylistNotFound, remoteID)
	}
	if err := s.client.ChangePlaylistDescription(ctx, id, playlist.Description); err != nil {
		return s.wrapError(err, shared.ErrPlaylistNotFound, remoteID)
	}

	return s.replaceTracks(ctx, id, toSpotifyIDs(res.IDs))
}

// DeletePlaylist unfollows the playlist, which is how Spotify deletes owned playlists.
func (s *Spotify) DeletePlaylist(ctx context.Context, platformID string) error {
	if err := s.CheckAuth(); err != nil {
		return err
	}
	if err := s.client.UnfollowPlaylist(ctx, spotify.ID(platformID)); err != nil {
		return s.wrapError(err, shared.ErrPlaylistNotFound, platformID)
	}
	return nil
}

// GetPlaylist fetches a playlist with all of its tracks. Episodes and local files are skipped.
func (s *Spotify) GetPlaylist(ctx context.Context, platformID string) (*models.Playlist, error) {
	if err := s.CheckAuth(); err != nil {
		return nil, err
	}

	id := spotify.ID(platformID)
	full, err := s.client.GetPlaylist(ctx, id)
	if err != nil {
		return nil, s.wrapError(err, shared.ErrPlaylistNotFound, platformID)
	}

	playlist, err := models.NewPlaylist(full.Name, full.Description)
	if err != nil {
		return nil, err
	}
	playlist.SetPlatformID(s.Name(), string(full.ID))

	tracks, err := s.playlistTracks(ctx, id)
	if err != nil {
		return nil, err
	}
	playlist.Tracks = append(playlist.Tracks, tracks...)
	return playlist, nil
}

// GetUserPlaylists lists the user's playlists without tracks.
func (s *Spotify) GetUserPlaylists(ctx context.Context) ([]*models.Playlist, error) {
	if err := s.CheckAuth(); err != nil {
		return nil, err
	}

	var playlists []*models.Playlist
	for offset := 0; ; offset += spotifyPageLimit {
		page, err := s.client.CurrentUsersPlaylists(ctx, spotify.Limit(spotifyPageLimit), spotify.Offset(offset))
		if err != nil {
			return nil, s.wrapError(err, shared.ErrPlaylistNotFound, "current user")
		}
		for _, item := range page.Playlists {
			p, err := models.NewPlaylist(item.Name, item.Description)
			if err != nil {
				continue
			}
			p.SetPlatformID(s.Name(), string(item.ID))
			playlists = append(playlists, p)
		}
		if len(page.Playlists) < spotifyPageLimit {
			break
		}
	}
	return playlists, nil
}

// AddTracksToPlaylist appends tracks in batches of 100.
func (s *Spotify) AddTracksToPlaylist(ctx context.Context, platformPlaylistID string, trackIDs []string) error {
	if err := s.CheckAuth(); err != nil {
		return err
	}
	return s.addInBatches(ctx, spotify.ID(platformPlaylistID), toSpotifyIDs(trackIDs))
}

// RemoveTracksFromPlaylist removes every occurrence of the given tracks.
func (s *Spotify) RemoveTracksFromPlaylist(ctx context.Context, platformPlaylistID string, trackIDs []string) error {
	if err := s.CheckAuth(); err != nil {
		return err
	}

	ids := toSpotifyIDs(trackIDs)
	for start := 0; start < len(ids); start += spotifyBatchSize {
		end := min(start+spotifyBatchSize, len(ids))
		if _, err := s.client.RemoveTracksFromPlaylist(ctx, spotify.ID(platformPlaylistID), ids[start:end]...); err != nil {
			return s.wrapError(err, shared.ErrPlaylistNotFound, platformPlaylistID)
		}
	}
	return nil
}

func (s *Spotify) playlistTracks(ctx context.Context, id spotify.ID) ([]*models.Track, error) {
	var tracks []*models.Track
	for offset := 0; ; offset += spotifyPageLimit {
		page, err := s.client.GetPlaylistItems(ctx, id, spotify.Limit(spotifyPageLimit), spotify.Offset(offset))
		if err != nil {
			return nil, s.wrapError(err, shared.ErrPlaylistNotFound, string(id))
		}
		for _, item := range page.Items {
			if item.Track.Track == nil {
				continue
			}
			track, err := s.toTrack(item.Track.Track)
			if err != nil {
				s.logger.Debug("skipping item without title or artist", "id", item.Track.Track.ID)
				continue
			}
			tracks = append(tracks, track)
		}
		if len(page.Items) < spotifyPageLimit {
			break
		}
	}
	return tracks, nil
}

// replaceTracks sets the playlist to exactly ids; the API caps a replace at 100, so the rest is appended.
func (s *Spotify) replaceTracks(ctx context.Context, id spotify.ID, ids []spotify.ID) error {
	first := ids[:min(spotifyBatchSize, len(ids))]
	if err := s.client.ReplacePlaylistTracks(ctx, id, first...); err != nil {
		return s.wrapError(err, shared.ErrPlaylistNotFound, string(id))
	}
	return s.addInBatches(ctx, id, ids[len(first):])
}

func (s *Spotify) addInBatches(ctx context.Context, id spotify.ID, ids []spotify.ID) error {
	for start := 0; start < len(ids); start += spotifyBatchSize {
		end := min(start+spotifyBatchSize, len(ids))
		if _, err := s.client.AddTracksToPlaylist(ctx, id, ids[start:end]...); err != nil {
			return s.wrapError(err, shared.ErrPlaylistNotFound, string(id))
		}
	}
	return nil
}

func (s *Spotify) toTrack(full *spotify.FullTrack) (*models.Track, error) {
	if len(full.Artists) == 0 {
		return nil, fmt.Errorf("%w: track %s has no artists", shared.ErrInvalidInput, full.ID)
	}

	track, err := models.NewTrack(full.Name, full.Artists[0].Name)
	if err != nil {
		return nil, err
	}
	for _, extra := range full.Artists[1:] {
		if extra.Name != "" {
			track.AdditionalArtists = append(track.AdditionalArtists, extra.Name)
		}
	}

	track.Album = full.Album.Name
	track.DurationMs = int(full.Duration)
	track.ISRC = full.ExternalIDs["isrc"]
	track.SetPlatformID(s.Name(), string(full.ID))

	extras := map[string]any{
		"popularity": int(full.Popularity),
	}
	if u := full.ExternalURLs["spotify"]; u != "" {
		extras["url"] = u
	}
	if full.PreviewURL != "" {
		extras["preview_url"] = full.PreviewURL
	}
	if len(full.Album.Images) > 0 {
		extras["artwork"] = full.Album.Images[0].URL
	}
	track.Metadata[s.Name()] = extras

	return track, nil
}

// wrapError maps Spotify API errors onto the shared sentinels; a 404 becomes notFound.
func (s *Spotify) wrapError(err error, notFound error, what string) error {
	switch spotifyStatus(err) {
	case 0:
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", shared.ErrAPIRequest, s.Name(), err)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", notFound, what)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w: %v", shared.ErrAPIRequest, shared.ErrAuthFailed, err)
	default:
		return fmt.Errorf("%w: %s: %v", shared.ErrAPIRequest, s.Name(), err)
	}
}

func spotifyStatus(err error) int {
	var value spotify.Error
	if errors.As(err, &value) {
		return value.Status
	}
	var ptr *spotify.Error
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Status
	}
	return 0
}

func joinArtists(artists []spotify.SimpleArtist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

func toSpotifyIDs(ids []string) []spotify.ID {
	out := make([]spotify.ID, 0, len(ids))
	for _, id := range ids {
		out = append(out, spotify.ID(id))
	}
	return out
}

// HTTP implementation of [Client] for the Wavelet streaming API.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/wavelet-player/wavelet/internal/catalog"
	"github.com/wavelet-player/wavelet/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

// HTTPClient implements [Client] against the streaming service's JSON API.
//
// Requests are rate limited client-side and carry a bounded timeout so a dead
// remote yields a typed failure instead of an indefinite hang.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	tokens     oauth2.TokenSource
	limiter    *rate.Limiter
	timeout    time.Duration
	logger     *log.Logger
}

// HTTPClientOpts configures a new [HTTPClient].
type HTTPClientOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
}

// NewHTTPClient creates an HTTP remote client from configuration. Authentication
// uses the configured long-lived app token when present, otherwise the OAuth2
// client-credentials flow against the service token endpoint.
func NewHTTPClient(opts HTTPClientOpts) (*HTTPClient, error) {
	if opts.Config == nil {
		return nil, shared.ErrMissingConfig
	}
	creds := opts.Config.Credentials
	if creds.BaseURL == "" {
		return nil, fmt.Errorf("%w: base_url not set", shared.ErrInvalidConfig)
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	var tokens oauth2.TokenSource
	switch {
	case creds.AppToken != "":
		tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.AppToken})
	case creds.ClientID != "" && creds.ClientSecret != "":
		cc := clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     creds.BaseURL + "/oauth/token",
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, opts.HTTPClient)
		tokens = cc.TokenSource(ctx)
	default:
		return nil, shared.ErrMissingCredentials
	}

	rps := opts.Config.Remote.RateLimitRPS
	if rps <= 0 {
		rps = 5
	}
	timeout := opts.Config.Remote.RequestTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPClient{
		baseURL:    creds.BaseURL,
		httpClient: opts.HTTPClient,
		tokens:     tokens,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		timeout:    timeout,
		logger:     opts.Logger,
	}, nil
}

// deltaResponse is the wire shape of GET /library/{class}.
type deltaResponse struct {
	Tracks     []wireTrack    `json:"tracks,omitempty"`
	Albums     []wireAlbum    `json:"albums,omitempty"`
	Artists    []wireArtist   `json:"artists,omitempty"`
	Playlists  []wirePlaylist `json:"playlists,omitempty"`
	Removed    []string       `json:"removed,omitempty"`
	Checkpoint string         `json:"checkpoint"`
}

type wireTrack struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	ArtistID    string `json:"artist_id"`
	AlbumID     string `json:"album_id"`
	TrackNumber int    `json:"track_number"`
	DurationS   int    `json:"duration"`
	ETag        string `json:"etag"`
	StreamToken string `json:"stream_token"`
}

type wireAlbum struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ArtistID string `json:"artist_id"`
	Year     int    `json:"year"`
	ETag     string `json:"etag"`
}

type wireArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	ETag string `json:"etag"`
}

type wirePlaylist struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	TrackIDs    []string `json:"track_ids"`
	ETag        string   `json:"etag"`
}

// streamResponse is the wire shape of GET /tracks/{id}/stream.
type streamResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FetchDelta implements [Client].
func (c *HTTPClient) FetchDelta(ctx context.Context, class catalog.EntityClass, since catalog.Checkpoint) (*catalog.Delta, error) {
	path := "/library/" + string(class)
	if since != "" {
		path += "?since=" + url.QueryEscape(string(since))
	}

	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var resp deltaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: malformed delta response: %v", shared.ErrNetwork, err)
	}
	if resp.Checkpoint == "" {
		return nil, fmt.Errorf("%w: delta response missing checkpoint", shared.ErrNetwork)
	}

	delta := &catalog.Delta{
		Class:      class,
		Removed:    resp.Removed,
		Checkpoint: catalog.Checkpoint(resp.Checkpoint),
	}
	for _, t := range resp.Tracks {
		delta.Tracks = append(delta.Tracks, catalog.Track{
			ID:          t.ID,
			Title:       t.Title,
			ArtistID:    t.ArtistID,
			AlbumID:     t.AlbumID,
			TrackNumber: t.TrackNumber,
			Duration:    t.DurationS,
			ETag:        t.ETag,
			StreamToken: t.StreamToken,
		})
	}
	for _, a := range resp.Albums {
		delta.Albums = append(delta.Albums, catalog.Album{
			ID: a.ID, Name: a.Name, ArtistID: a.ArtistID, Year: a.Year, ETag: a.ETag,
		})
	}
	for _, a := range resp.Artists {
		delta.Artists = append(delta.Artists, catalog.Artist{ID: a.ID, Name: a.Name, ETag: a.ETag})
	}
	for _, p := range resp.Playlists {
		delta.Playlists = append(delta.Playlists, catalog.Playlist{
			ID: p.ID, Name: p.Name, Description: p.Description, TrackIDs: p.TrackIDs, ETag: p.ETag,
		})
	}

	c.logger.Debug("fetched delta", "class", class, "records", delta.Size(), "checkpoint", resp.Checkpoint)

	return delta, nil
}

// ResolveStreamURL implements [Client].
func (c *HTTPClient) ResolveStreamURL(ctx context.Context, trackID string) (*StreamURL, error) {
	if trackID == "" {
		return nil, fmt.Errorf("%w: empty track id", shared.ErrInvalidArgument)
	}

	body, err := c.get(ctx, "/tracks/"+url.PathEscape(trackID)+"/stream")
	if err != nil {
		return nil, err
	}

	var resp streamResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: malformed stream response: %v", shared.ErrNetwork, err)
	}
	if resp.URL == "" {
		return nil, fmt.Errorf("%w: stream response missing url", shared.ErrNetwork)
	}

	return &StreamURL{URL: resp.URL, ExpiresAt: resp.ExpiresAt}, nil
}

// get performs an authenticated GET with rate limiting and a bounded timeout,
// mapping HTTP status codes to the shared error taxonomy.
func (c *HTTPClient) get(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, mapTransportErr(err)
	}

	token, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthExpired, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	token.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, mapTransportErr(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, mapTransportErr(err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", shared.ErrAuthExpired, path)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", shared.ErrRateLimited, path)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, path)
	default:
		return nil, fmt.Errorf("%w: %s returned status %d", shared.ErrNetwork, path, resp.StatusCode)
	}
}

// mapTransportErr classifies transport-level failures, keeping deadline
// exceedance distinguishable as a timeout.
func mapTransportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", shared.ErrNetwork, err)
}

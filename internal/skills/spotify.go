package skills

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ============================================================================
// SPOTIFY TRACK SEARCH
// ============================================================================

const (
	defaultSpotifyAuthEndpoint = "https://accounts.spotify.com"
	defaultSpotifyAPIEndpoint  = "https://api.spotify.com"
)

// SpotifySkill resolves searchTrack directives using the client-credentials
// flow. The access token is cached and renewed shortly before Spotify's
// stated expiry; an empty query falls back to a top-hits search.
type SpotifySkill struct {
	clientID     string
	clientSecret string
	authEndpoint string
	apiEndpoint  string
	client       *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// SpotifyOption is a functional option for configuring the Spotify skill.
type SpotifyOption func(*SpotifySkill)

// WithSpotifyEndpoints overrides the accounts and API base URLs.
func WithSpotifyEndpoints(authEndpoint, apiEndpoint string) SpotifyOption {
	return func(s *SpotifySkill) {
		s.authEndpoint = strings.TrimRight(authEndpoint, "/")
		s.apiEndpoint = strings.TrimRight(apiEndpoint, "/")
	}
}

// WithSpotifyHTTPClient sets a custom HTTP client.
func WithSpotifyHTTPClient(client *http.Client) SpotifyOption {
	return func(s *SpotifySkill) {
		s.client = client
	}
}

// NewSpotifySkill creates the track search connector. Missing credentials
// leave the skill registered but unavailable.
func NewSpotifySkill(clientID, clientSecret string, opts ...SpotifyOption) *SpotifySkill {
	s := &SpotifySkill{
		clientID:     clientID,
		clientSecret: clientSecret,
		authEndpoint: defaultSpotifyAuthEndpoint,
		apiEndpoint:  defaultSpotifyAPIEndpoint,
		client:       &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the action type this connector serves.
func (s *SpotifySkill) Name() string {
	return SearchTrack
}

// Invoke searches for a track and returns its embed URL.
func (s *SpotifySkill) Invoke(ctx context.Context, params map[string]string) (*Result, error) {
	if s.clientID == "" || s.clientSecret == "" {
		return nil, fmt.Errorf("%w: searchTrack has no Spotify credentials", ErrUpstreamUnavailable)
	}

	query := strings.TrimSpace(params["query"])
	if query == "" {
		query = "top hits"
	}

	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "track")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiEndpoint+"/v1/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building spotify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: spotify: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: spotify returned status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	var body spotifySearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding spotify response: %v", ErrUpstreamUnavailable, err)
	}
	if len(body.Tracks.Items) == 0 {
		return nil, fmt.Errorf("%w: no tracks for %q", ErrNotFound, query)
	}

	track := body.Tracks.Items[0]
	artists := make([]string, 0, len(track.Artists))
	for _, a := range track.Artists {
		artists = append(artists, a.Name)
	}

	return &Result{
		Payload: map[string]interface{}{
			"trackId":  track.ID,
			"title":    track.Name,
			"artist":   strings.Join(artists, ", "),
			"embedUrl": "https://open.spotify.com/embed/track/" + track.ID,
			"openUrl":  "https://open.spotify.com/track/" + track.ID,
		},
	}, nil
}

// token returns a cached access token, requesting a fresh one when the
// cache is empty or about to expire.
func (s *SpotifySkill) token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken != "" && time.Now().Before(s.tokenExpiry) {
		return s.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.authEndpoint+"/api/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building spotify token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.clientID, s.clientSecret)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: spotify token: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: spotify token request returned status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decoding spotify token: %v", ErrUpstreamUnavailable, err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("%w: spotify token response was empty", ErrUpstreamUnavailable)
	}

	s.accessToken = body.AccessToken
	// Renew half a minute before Spotify's stated expiry.
	s.tokenExpiry = time.Now().Add(time.Duration(body.ExpiresIn)*time.Second - 30*time.Second)
	return s.accessToken, nil
}

// spotifySearchResponse is the subset of the search output the connector
// reads.
type spotifySearchResponse struct {
	Tracks struct {
		Items []struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
		} `json:"items"`
	} `json:"tracks"`
}

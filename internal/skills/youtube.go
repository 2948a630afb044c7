package skills

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// YOUTUBE VIDEO SEARCH
// ============================================================================

const (
	defaultYouTubeEndpoint = "https://www.googleapis.com/youtube/v3"

	// maxVideoCandidates is how many search hits are checked for
	// embeddability before giving up.
	maxVideoCandidates = 5
)

// YouTubeSkill resolves searchVideo directives against the YouTube Data
// API. Search hits are filtered through videos.list so only embeddable
// videos reach the client; an empty query falls back to a trending-music
// search.
type YouTubeSkill struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// YouTubeOption is a functional option for configuring the YouTube skill.
type YouTubeOption func(*YouTubeSkill)

// WithYouTubeEndpoint overrides the API base URL.
func WithYouTubeEndpoint(endpoint string) YouTubeOption {
	return func(s *YouTubeSkill) {
		s.endpoint = strings.TrimRight(endpoint, "/")
	}
}

// WithYouTubeHTTPClient sets a custom HTTP client.
func WithYouTubeHTTPClient(client *http.Client) YouTubeOption {
	return func(s *YouTubeSkill) {
		s.client = client
	}
}

// NewYouTubeSkill creates the video search connector. An empty API key
// leaves the skill registered but unavailable.
func NewYouTubeSkill(apiKey string, opts ...YouTubeOption) *YouTubeSkill {
	s := &YouTubeSkill{
		apiKey:   apiKey,
		endpoint: defaultYouTubeEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the action type this connector serves.
func (s *YouTubeSkill) Name() string {
	return SearchVideo
}

// Invoke searches for a video and returns the first embeddable hit.
func (s *YouTubeSkill) Invoke(ctx context.Context, params map[string]string) (*Result, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("%w: searchVideo has no YouTube API key", ErrUpstreamUnavailable)
	}

	query := strings.TrimSpace(params["query"])
	if query == "" {
		query = "trending music"
	}

	candidates, err := s.search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no videos for %q", ErrNotFound, query)
	}

	playable, err := s.embeddableOnly(ctx, candidates)
	if err != nil {
		return nil, err
	}
	if len(playable) == 0 {
		return nil, fmt.Errorf("%w: no embeddable video for %q", ErrNotFound, query)
	}

	pick := playable[0]
	return &Result{
		Payload: map[string]interface{}{
			"videoId":  pick.ID,
			"title":    pick.Title,
			"embedUrl": "https://www.youtube.com/embed/" + pick.ID,
			"watchUrl": "https://www.youtube.com/watch?v=" + pick.ID,
		},
	}, nil
}

// videoCandidate is one search hit awaiting the embeddability check.
type videoCandidate struct {
	ID    string
	Title string
}

// search runs search.list and returns the top candidates in ranking order.
func (s *YouTubeSkill) search(ctx context.Context, query string) ([]videoCandidate, error) {
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("type", "video")
	q.Set("maxResults", strconv.Itoa(maxVideoCandidates))
	q.Set("q", query)
	q.Set("key", s.apiKey)

	var body youtubeSearchResponse
	if err := s.getJSON(ctx, s.endpoint+"/search?"+q.Encode(), &body); err != nil {
		return nil, err
	}

	candidates := make([]videoCandidate, 0, len(body.Items))
	for _, item := range body.Items {
		if item.ID.VideoID == "" {
			continue
		}
		candidates = append(candidates, videoCandidate{
			ID:    item.ID.VideoID,
			Title: html.UnescapeString(item.Snippet.Title),
		})
	}
	return candidates, nil
}

// embeddableOnly checks candidate statuses via videos.list and keeps the
// embeddable ones in their original order.
func (s *YouTubeSkill) embeddableOnly(ctx context.Context, candidates []videoCandidate) ([]videoCandidate, error) {
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}

	q := url.Values{}
	q.Set("part", "status")
	q.Set("id", strings.Join(ids, ","))
	q.Set("key", s.apiKey)

	var body youtubeVideosResponse
	if err := s.getJSON(ctx, s.endpoint+"/videos?"+q.Encode(), &body); err != nil {
		return nil, err
	}

	embeddable := make(map[string]bool, len(body.Items))
	for _, item := range body.Items {
		embeddable[item.ID] = item.Status.Embeddable
	}

	var kept []videoCandidate
	for _, c := range candidates {
		if embeddable[c.ID] {
			kept = append(kept, c)
		}
	}
	return kept, nil
}

// getJSON performs a GET against the API and decodes the JSON response.
func (s *YouTubeSkill) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("building youtube request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: youtube: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: youtube returned status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding youtube response: %v", ErrUpstreamUnavailable, err)
	}
	return nil
}

// youtubeSearchResponse is the subset of search.list output the connector
// reads.
type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}

// youtubeVideosResponse is the subset of videos.list output the connector
// reads.
type youtubeVideosResponse struct {
	Items []struct {
		ID     string `json:"id"`
		Status struct {
			Embeddable bool `json:"embeddable"`
		} `json:"status"`
	} `json:"items"`
}

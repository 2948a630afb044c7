package skills

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ============================================================================
// OPENWEATHER LOOKUP
// ============================================================================

const defaultOpenWeatherEndpoint = "https://api.openweathermap.org"

// WeatherSkill resolves getWeather directives against the OpenWeather
// current-conditions API, in metric units.
type WeatherSkill struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// WeatherOption is a functional option for configuring the weather skill.
type WeatherOption func(*WeatherSkill)

// WithWeatherEndpoint overrides the API base URL.
func WithWeatherEndpoint(endpoint string) WeatherOption {
	return func(s *WeatherSkill) {
		s.endpoint = strings.TrimRight(endpoint, "/")
	}
}

// WithWeatherHTTPClient sets a custom HTTP client.
func WithWeatherHTTPClient(client *http.Client) WeatherOption {
	return func(s *WeatherSkill) {
		s.client = client
	}
}

// NewWeatherSkill creates the weather connector. An empty API key leaves
// the skill registered but unavailable.
func NewWeatherSkill(apiKey string, opts ...WeatherOption) *WeatherSkill {
	s := &WeatherSkill{
		apiKey:   apiKey,
		endpoint: defaultOpenWeatherEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the action type this connector serves.
func (s *WeatherSkill) Name() string {
	return GetWeather
}

// Invoke looks up current conditions for the requested city.
func (s *WeatherSkill) Invoke(ctx context.Context, params map[string]string) (*Result, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("%w: getWeather has no OpenWeather API key", ErrUpstreamUnavailable)
	}

	city := strings.TrimSpace(params["city"])
	if city == "" {
		return nil, fmt.Errorf("%w: getWeather needs a city", ErrInvalidParams)
	}

	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", s.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"/data/2.5/weather?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building weather request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: openweather: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: unknown city %q", ErrNotFound, city)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: openweather returned status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	var body struct {
		Name    string `json:"name"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  int     `json:"humidity"`
		} `json:"main"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding openweather response: %v", ErrUpstreamUnavailable, err)
	}

	condition := ""
	if len(body.Weather) > 0 {
		condition = body.Weather[0].Description
	}
	if body.Name == "" {
		body.Name = city
	}

	return &Result{
		Payload: map[string]interface{}{
			"city":       body.Name,
			"tempC":      body.Main.Temp,
			"feelsLikeC": body.Main.FeelsLike,
			"humidity":   body.Main.Humidity,
			"condition":  condition,
		},
	}, nil
}

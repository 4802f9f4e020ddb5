package oembed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/foxseedlab/darkbot/external/cache"
	"github.com/foxseedlab/darkbot/internal/clock"
)

const DefaultSpotifyEndpoint = "https://open.spotify.com/oembed"

var (
	errEmptyTitle = errors.New("oembed response has no title")
	enDashPattern = regexp.MustCompile(`\s*–\s*`)
)

// SpotifyClient looks up track titles through Spotify's public oEmbed
// endpoint. Each lookup is bounded by a short timeout.
type SpotifyClient struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
	titles     *cache.TTLMap[string]
}

func NewSpotifyClient(endpoint string, timeout, cacheTTL time.Duration, clk clock.Clock) *SpotifyClient {
	if endpoint == "" {
		endpoint = DefaultSpotifyEndpoint
	}
	return &SpotifyClient{
		endpoint:   endpoint,
		httpClient: &http.Client{},
		timeout:    timeout,
		titles:     cache.NewTTLMap[string](cacheTTL, clk),
	}
}

type oembedResponse struct {
	Title string `json:"title"`
}

func (c *SpotifyClient) SpotifyTitle(ctx context.Context, trackURL string) (string, error) {
	if title, ok := c.titles.Get(ctx, trackURL); ok {
		return title, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?url="+url.QueryEscape(trackURL), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create oembed request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to request oembed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oembed returned status %d", resp.StatusCode)
	}

	var body oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode oembed response: %w", err)
	}

	title := strings.TrimSpace(enDashPattern.ReplaceAllString(body.Title, " "))
	if title == "" {
		return "", errEmptyTitle
	}
	c.titles.Set(ctx, trackURL, title)
	return title, nil
}

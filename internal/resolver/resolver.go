package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/foxseedlab/darkbot/internal/clock"
	"github.com/lrstanley/go-ytdlp"
	"golang.org/x/sync/singleflight"
)

const audioFormat = "bestaudio[acodec=opus][abr>=64]/bestaudio[acodec=opus]/bestaudio/best"

var errNoDirectURL = errors.New("no direct audio stream URL found")

// Result is the outcome of a single resolve. Callers must check OK.
type Result struct {
	OK         bool          `json:"ok"`
	Title      string        `json:"title,omitempty"`
	PageURL    string        `json:"page_url,omitempty"`
	StreamURL  string        `json:"stream_url,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
	Thumbnail  string        `json:"thumbnail,omitempty"`
	Error      string        `json:"error,omitempty"`
	ResolvedAt time.Time     `json:"resolved_at"`
}

// Runner executes a prepared yt-dlp command.
type Runner interface {
	Run(ctx context.Context, cmd *ytdlp.Command, args ...string) (*ytdlp.Result, error)
}

// Cache stores successful results keyed by the literal query text. Entries
// expire after a TTL owned by the implementation.
type Cache interface {
	Get(ctx context.Context, query string) (Result, bool)
	Set(ctx context.Context, query string, result Result)
}

// TitleLookup turns a Spotify track URL into searchable text.
type TitleLookup interface {
	SpotifyTitle(ctx context.Context, trackURL string) (string, error)
}

type Resolver interface {
	Resolve(ctx context.Context, query string) Result
	ExpandYouTubePlaylist(ctx context.Context, playlistURL string) ([]Stub, error)
	ExpandSpotifyPlaylist(ctx context.Context, playlistURL string) ([]Stub, error)
}

type Bridge struct {
	runner Runner
	cache  Cache
	titles TitleLookup
	clock  clock.Clock
	group  singleflight.Group
}

func NewBridge(runner Runner, cache Cache, titles TitleLookup, clk clock.Clock) *Bridge {
	return &Bridge{
		runner: runner,
		cache:  cache,
		titles: titles,
		clock:  clk,
	}
}

// Resolve turns search text or a URL into a playable stream. Concurrent
// calls for the same query share one yt-dlp invocation, and successful
// results are served from the cache until they expire.
func (b *Bridge) Resolve(ctx context.Context, query string) Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{OK: false, Error: "empty query"}
	}
	if hit, ok := b.cache.Get(ctx, query); ok {
		return hit
	}

	v, _, _ := b.group.Do(query, func() (any, error) {
		// The flight outlives any single caller's cancellation.
		flightCtx := context.WithoutCancel(ctx)
		result := b.resolve(flightCtx, query)
		if result.OK {
			b.cache.Set(flightCtx, query, result)
		}
		return result, nil
	})
	return v.(Result)
}

func (b *Bridge) resolve(ctx context.Context, query string) Result {
	basis := query
	if IsSpotifyTrack(basis) && b.titles != nil {
		if title, err := b.titles.SpotifyTitle(ctx, basis); err == nil && title != "" {
			basis = title
		} else if err != nil {
			slog.Debug("spotify title lookup failed", "url", basis, "error", err)
		}
	}

	target := basis
	if !LooksLikeURL(basis) {
		target = "ytsearch1:" + basis
	}

	cmd := ytdlp.New().
		DefaultSearch("ytsearch").
		DumpSingleJSON().
		NoPlaylist().
		Format(audioFormat).
		ExtractorArgs("youtube:player_client=android").
		NoWarnings()

	res, err := b.runner.Run(ctx, cmd, target)
	if err != nil {
		return Result{OK: false, Error: failureText(res, err)}
	}

	info, err := parseInfo(res.Stdout)
	if err != nil {
		return Result{OK: false, Error: err.Error()}
	}

	direct := info.directURL()
	if direct == "" {
		return Result{OK: false, Error: errNoDirectURL.Error()}
	}

	return Result{
		OK:         true,
		Title:      info.Title,
		PageURL:    firstNonEmpty(info.WebpageURL, info.OriginalURL, info.URL, basis),
		StreamURL:  direct,
		Duration:   time.Duration(info.Duration * float64(time.Second)),
		Thumbnail:  info.Thumbnail,
		ResolvedAt: b.clock.Now(),
	}
}

// failureText prefers the tool's stderr over the exec error.
func failureText(res *ytdlp.Result, err error) string {
	if res != nil {
		if stderr := strings.TrimSpace(res.Stderr); stderr != "" {
			return stderr
		}
		if res.ExitCode != 0 {
			return fmt.Sprintf("yt-dlp exited %d", res.ExitCode)
		}
	}
	return err.Error()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

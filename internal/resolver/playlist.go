package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lrstanley/go-ytdlp"
)

const (
	youtubePlaylistItems = "1-10000"
	spotifyPlaylistItems = "1-2000"
	spotifyExtractorArgs = "spotify:playlist_items=0-2000,album_items=0-2000"
	spotifyNoAPIArgs     = "spotify:use_api=none,playlist_items=0-2000,album_items=0-2000"
)

var ErrEmptyPlaylist = errors.New("playlist returned no entries")

// Stub is a lightweight playlist entry without a stream URL.
type Stub struct {
	Title     string
	PageURL   string
	Thumbnail string
}

// attempt is one argument variant of a playlist expansion.
type attempt struct {
	name  string
	build func() *ytdlp.Command
}

type playlistEntry struct {
	ID         string          `json:"id"`
	URL        string          `json:"url"`
	Title      string          `json:"title"`
	Track      string          `json:"track"`
	Name       string          `json:"name"`
	Artist     string          `json:"artist"`
	Uploader   string          `json:"uploader"`
	Artists    json.RawMessage `json:"artists"`
	Author     json.RawMessage `json:"author"`
	Thumbnails []struct {
		URL string `json:"url"`
	} `json:"thumbnails"`
}

type playlistInfo struct {
	Entries []*playlistEntry `json:"entries"`
}

func (b *Bridge) ExpandYouTubePlaylist(ctx context.Context, playlistURL string) ([]Stub, error) {
	target := CanonicalYouTubePlaylist(playlistURL)
	attempts := []attempt{
		{name: "flat", build: func() *ytdlp.Command {
			return ytdlp.New().
				DumpSingleJSON().
				YesPlaylist().
				FlatPlaylist().
				PlaylistItems(youtubePlaylistItems)
		}},
	}
	return b.runAttempts(ctx, target, attempts, youtubeStub)
}

func (b *Bridge) ExpandSpotifyPlaylist(ctx context.Context, playlistURL string) ([]Stub, error) {
	base := func() *ytdlp.Command {
		return ytdlp.New().IgnoreConfig().DumpSingleJSON().YesPlaylist()
	}
	attempts := []attempt{
		{name: "flat_extractor_args", build: func() *ytdlp.Command {
			return base().FlatPlaylist().ExtractorArgs(spotifyExtractorArgs)
		}},
		{name: "extractor_args", build: func() *ytdlp.Command {
			return base().ExtractorArgs(spotifyExtractorArgs)
		}},
		{name: "flat_items", build: func() *ytdlp.Command {
			return base().FlatPlaylist().PlaylistItems(spotifyPlaylistItems)
		}},
		{name: "flat_no_api", build: func() *ytdlp.Command {
			return base().FlatPlaylist().ExtractorArgs(spotifyNoAPIArgs)
		}},
		{name: "minimal", build: base},
	}
	return b.runAttempts(ctx, playlistURL, attempts, spotifyStub)
}

// runAttempts tries each variant in order. The first one yielding more than
// one item wins; otherwise the largest non-empty result is returned.
func (b *Bridge) runAttempts(ctx context.Context, target string, attempts []attempt, toStub func(*playlistEntry) (Stub, bool)) ([]Stub, error) {
	var best []Stub
	var lastErr error
	for _, a := range attempts {
		stubs, err := b.expand(ctx, a.build(), target, toStub)
		if err != nil {
			slog.Debug("playlist expansion attempt failed", "attempt", a.name, "url", target, "error", err)
			lastErr = err
			continue
		}
		if len(stubs) > 1 {
			return stubs, nil
		}
		if len(stubs) > len(best) {
			best = stubs
		}
	}
	if len(best) > 0 {
		return best, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("expand playlist: %w", lastErr)
	}
	return nil, ErrEmptyPlaylist
}

func (b *Bridge) expand(ctx context.Context, cmd *ytdlp.Command, target string, toStub func(*playlistEntry) (Stub, bool)) ([]Stub, error) {
	res, err := b.runner.Run(ctx, cmd, target)
	if err != nil {
		return nil, errors.New(failureText(res, err))
	}
	var pl playlistInfo
	if err := json.Unmarshal([]byte(strings.TrimSpace(res.Stdout)), &pl); err != nil {
		return nil, errInvalidJSON
	}
	stubs := make([]Stub, 0, len(pl.Entries))
	for _, e := range pl.Entries {
		if e == nil {
			continue
		}
		if stub, ok := toStub(e); ok {
			stubs = append(stubs, stub)
		}
	}
	return stubs, nil
}

func youtubeStub(e *playlistEntry) (Stub, bool) {
	var page string
	switch {
	case strings.HasPrefix(e.URL, "http"):
		page = e.URL
	case e.ID != "":
		page = "https://www.youtube.com/watch?v=" + e.ID
	case e.URL != "":
		page = "https://www.youtube.com/watch?v=" + e.URL
	default:
		return Stub{}, false
	}
	title := e.Title
	if title == "" {
		title = "Untitled"
	}
	var thumb string
	if len(e.Thumbnails) > 0 {
		thumb = e.Thumbnails[0].URL
	}
	return Stub{Title: title, PageURL: page, Thumbnail: thumb}, true
}

func spotifyStub(e *playlistEntry) (Stub, bool) {
	name := firstNonEmpty(e.Title, e.Track, e.Name, "Untitled")
	artist := firstNonEmpty(firstArtist(e.Artists), e.Artist, firstArtist(e.Author), e.Uploader)
	title := name
	if artist != "" {
		title = artist + " - " + name
	}

	var page string
	switch {
	case strings.HasPrefix(e.URL, "http"):
		page = e.URL
	case strings.HasPrefix(e.ID, "spotify:track:"):
		page = "https://open.spotify.com/track/" + e.ID[strings.LastIndex(e.ID, ":")+1:]
	case strings.HasPrefix(e.URL, "spotify:track:"):
		page = "https://open.spotify.com/track/" + e.URL[strings.LastIndex(e.URL, ":")+1:]
	case e.ID != "" && !strings.Contains(e.ID, ":"):
		page = "https://open.spotify.com/track/" + e.ID
	}
	return Stub{Title: title, PageURL: page}, true
}

// firstArtist accepts both [{"name":..}] and ["..."] shapes.
func firstArtist(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var named []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &named); err == nil && len(named) > 0 && named[0].Name != "" {
		return named[0].Name
	}
	var plain []string
	if err := json.Unmarshal(raw, &plain); err == nil && len(plain) > 0 {
		return plain[0]
	}
	return ""
}

package player

import (
	"sync"
	"time"
)

// Provenance tags recorded on tracks.
const (
	SourceSearch          = "search"
	SourceURL             = "url"
	SourceSpotifyTrack    = "spotify_track"
	SourceYouTubePlaylist = "youtube_playlist"
	SourceSpotifyPlaylist = "spotify_playlist"
	SourceAPI             = "api"
)

// Track is one queued item. The stream URL is a volatile field attached by
// prefetching and consumed at most once by the stream hook.
type Track struct {
	Title       string
	PageURL     string
	Query       string
	Thumbnail   string
	Duration    time.Duration
	RequestedBy string
	Source      string

	mu        sync.Mutex
	streamURL string
	streamAt  time.Time
}

// AttachStream stores a pre-resolved stream URL stamped with at.
func (t *Track) AttachStream(url string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.streamURL = url
	t.streamAt = at
}

// HasFreshStream reports whether a stream URL younger than maxAge is attached.
func (t *Track) HasFreshStream(now time.Time, maxAge time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.streamURL != "" && now.Sub(t.streamAt) < maxAge
}

// TakeStream returns the attached URL if it is younger than maxAge and
// clears it either way.
func (t *Track) TakeStream(now time.Time, maxAge time.Duration) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	url, at := t.streamURL, t.streamAt
	t.streamURL = ""
	t.streamAt = time.Time{}
	if url == "" || now.Sub(at) >= maxAge {
		return "", false
	}
	return url, true
}

// DisplayTitle falls back to the page URL, then the query.
func (t *Track) DisplayTitle() string {
	switch {
	case t.Title != "":
		return t.Title
	case t.PageURL != "":
		return t.PageURL
	case t.Query != "":
		return t.Query
	default:
		return "Unknown title"
	}
}

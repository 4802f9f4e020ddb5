package resolver

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	spotifyURLPattern      = regexp.MustCompile(`(?i)^(https?://)?(open\.)?spotify\.com/`)
	spotifyTrackPattern    = regexp.MustCompile(`(?i)/track/`)
	spotifyPlaylistPattern = regexp.MustCompile(`(?i)/(playlist|album)/`)
)

// Kind classifies user input for the play flow.
type Kind int

const (
	KindSearch Kind = iota
	KindURL
	KindSpotifyTrack
	KindSpotifyPlaylist
	KindYouTubePlaylist
)

func (k Kind) String() string {
	switch k {
	case KindURL:
		return "url"
	case KindSpotifyTrack:
		return "spotify_track"
	case KindSpotifyPlaylist:
		return "spotify_playlist"
	case KindYouTubePlaylist:
		return "youtube_playlist"
	default:
		return "search"
	}
}

func Classify(input string) Kind {
	input = strings.TrimSpace(input)
	switch {
	case IsSpotifyPlaylist(input):
		return KindSpotifyPlaylist
	case IsYouTubePlaylist(input):
		return KindYouTubePlaylist
	case IsSpotifyTrack(input):
		return KindSpotifyTrack
	case LooksLikeURL(input):
		return KindURL
	default:
		return KindSearch
	}
}

func LooksLikeURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func IsSpotifyTrack(s string) bool {
	return spotifyURLPattern.MatchString(s) && spotifyTrackPattern.MatchString(s)
}

func IsSpotifyPlaylist(s string) bool {
	return spotifyURLPattern.MatchString(s) && spotifyPlaylistPattern.MatchString(s)
}

// IsYouTubePlaylist reports whether s is a YouTube URL carrying a list id.
func IsYouTubePlaylist(s string) bool {
	_, ok := youtubeListID(s)
	return ok
}

func youtubeListID(s string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if !strings.Contains(host, "youtube.com") && !strings.Contains(host, "youtu.be") {
		return "", false
	}
	id := u.Query().Get("list")
	return id, id != ""
}

// CanonicalYouTubePlaylist rewrites watch?v=..&list=.. links to the
// playlist page so yt-dlp expands the whole list.
func CanonicalYouTubePlaylist(s string) string {
	if id, ok := youtubeListID(s); ok {
		return "https://www.youtube.com/playlist?list=" + id
	}
	return s
}

// NormalizeYouTubeURL rewrites youtu.be, shorts and embed links to the
// plain watch URL. Playlist links and other input are returned unchanged.
func NormalizeYouTubeURL(s string) string {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Host == "" {
		return s
	}
	if u.Query().Has("list") {
		return s
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	watch := func(id string) string { return "https://www.youtube.com/watch?v=" + id }

	switch {
	case host == "youtu.be":
		if len(segments) > 0 {
			return watch(segments[0])
		}
	case strings.HasSuffix(host, "youtube.com"):
		if len(segments) > 1 && (segments[0] == "shorts" || segments[0] == "embed") {
			return watch(segments[1])
		}
		if v := u.Query().Get("v"); v != "" {
			return watch(v)
		}
	}
	return s
}

package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/lrstanley/go-ytdlp"
)

func TestExpandYouTubePlaylist_MapsEntries(t *testing.T) {
	runner := &fakeRunner{respond: func(int, string) (*ytdlp.Result, error) {
		return ok(`{"entries":[
			{"url":"https://www.youtube.com/watch?v=a","title":"A","thumbnails":[{"url":"https://img/a"}]},
			{"id":"b"},
			{"title":"no id"},
			null]}`)
	}}
	b, _ := newTestBridge(runner, nil)

	stubs, err := b.ExpandYouTubePlaylist(context.Background(), "https://youtube.com/watch?v=a&list=PL123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if targets := runner.Targets(); targets[0] != "https://www.youtube.com/playlist?list=PL123" {
		t.Fatalf("expected canonical playlist url, got %v", targets)
	}
	want := []Stub{
		{Title: "A", PageURL: "https://www.youtube.com/watch?v=a", Thumbnail: "https://img/a"},
		{Title: "Untitled", PageURL: "https://www.youtube.com/watch?v=b"},
	}
	if len(stubs) != len(want) {
		t.Fatalf("unexpected stubs: %+v", stubs)
	}
	for i := range want {
		if stubs[i] != want[i] {
			t.Fatalf("stub %d = %+v, want %+v", i, stubs[i], want[i])
		}
	}
}

func TestExpandSpotifyPlaylist_FirstMultiItemAttemptWins(t *testing.T) {
	runner := &fakeRunner{respond: func(call int, _ string) (*ytdlp.Result, error) {
		switch call {
		case 0:
			return fail("ERROR: unsupported")
		case 1:
			return ok(`{"entries":[{"title":"Only","artists":[{"name":"Solo"}]}]}`)
		case 2:
			return ok(`{"entries":[
				{"title":"One","artists":["Band"],"id":"spotify:track:111"},
				{"track":"Two","artist":"Other","url":"spotify:track:222"}]}`)
		default:
			t.Fatalf("unexpected attempt %d", call)
			return nil, nil
		}
	}}
	b, _ := newTestBridge(runner, nil)

	stubs, err := b.ExpandSpotifyPlaylist(context.Background(), "https://open.spotify.com/playlist/xyz")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runner.calls.Load() != 3 {
		t.Fatalf("expected three attempts, got %d", runner.calls.Load())
	}
	if len(stubs) != 2 {
		t.Fatalf("unexpected stubs: %+v", stubs)
	}
	if stubs[0].Title != "Band - One" || stubs[0].PageURL != "https://open.spotify.com/track/111" {
		t.Fatalf("unexpected first stub: %+v", stubs[0])
	}
	if stubs[1].Title != "Other - Two" || stubs[1].PageURL != "https://open.spotify.com/track/222" {
		t.Fatalf("unexpected second stub: %+v", stubs[1])
	}
}

func TestExpandSpotifyPlaylist_FallsBackToLargestSingle(t *testing.T) {
	runner := &fakeRunner{respond: func(call int, _ string) (*ytdlp.Result, error) {
		if call == 3 {
			return ok(`{"entries":[{"title":"Lonely","id":"abc"}]}`)
		}
		return ok(`{"entries":[]}`)
	}}
	b, _ := newTestBridge(runner, nil)

	stubs, err := b.ExpandSpotifyPlaylist(context.Background(), "https://open.spotify.com/album/xyz")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runner.calls.Load() != 5 {
		t.Fatalf("expected every attempt to run, got %d", runner.calls.Load())
	}
	if len(stubs) != 1 || stubs[0].Title != "Lonely" || stubs[0].PageURL != "https://open.spotify.com/track/abc" {
		t.Fatalf("unexpected stubs: %+v", stubs)
	}
}

func TestExpandSpotifyPlaylist_AllAttemptsFail(t *testing.T) {
	runner := &fakeRunner{respond: func(int, string) (*ytdlp.Result, error) {
		return fail("ERROR: blocked")
	}}
	b, _ := newTestBridge(runner, nil)

	if _, err := b.ExpandSpotifyPlaylist(context.Background(), "https://open.spotify.com/playlist/x"); err == nil {
		t.Fatal("expected error when every attempt fails")
	}
}

func TestExpandYouTubePlaylist_Empty(t *testing.T) {
	runner := &fakeRunner{respond: func(int, string) (*ytdlp.Result, error) {
		return ok(`{"entries":[]}`)
	}}
	b, _ := newTestBridge(runner, nil)

	_, err := b.ExpandYouTubePlaylist(context.Background(), "https://www.youtube.com/playlist?list=PL1")
	if !errors.Is(err, ErrEmptyPlaylist) {
		t.Fatalf("expected ErrEmptyPlaylist, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	cases := map[string]Kind{
		"https://open.spotify.com/playlist/abc":      KindSpotifyPlaylist,
		"https://open.spotify.com/album/abc":         KindSpotifyPlaylist,
		"https://open.spotify.com/track/abc":         KindSpotifyTrack,
		"https://www.youtube.com/watch?v=x&list=PL1": KindYouTubePlaylist,
		"https://youtu.be/x?list=PL1":                KindYouTubePlaylist,
		"https://www.youtube.com/watch?v=x":          KindURL,
		"https://soundcloud.com/a/b":                 KindURL,
		"lofi hip hop":                               KindSearch,
		"Artist: Song":                               KindSearch,
	}
	for input, want := range cases {
		if got := Classify(input); got != want {
			t.Errorf("Classify(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNormalizeYouTubeURL(t *testing.T) {
	cases := map[string]string{
		"https://youtu.be/abc123":                    "https://www.youtube.com/watch?v=abc123",
		"https://www.youtube.com/shorts/abc123":      "https://www.youtube.com/watch?v=abc123",
		"https://youtube.com/embed/abc123":           "https://www.youtube.com/watch?v=abc123",
		"https://m.youtube.com/watch?v=abc123&t=42":  "https://www.youtube.com/watch?v=abc123",
		"https://www.youtube.com/watch?v=x&list=PL1": "https://www.youtube.com/watch?v=x&list=PL1",
		"https://soundcloud.com/a/b":                 "https://soundcloud.com/a/b",
		"lofi hip hop":                               "lofi hip hop",
	}
	for input, want := range cases {
		if got := NormalizeYouTubeURL(input); got != want {
			t.Errorf("NormalizeYouTubeURL(%q) = %q, want %q", input, got, want)
		}
	}
}

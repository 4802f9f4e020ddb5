package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakePlayer struct {
	calls []playRequest
	title string
	err   error
}

func (p *fakePlayer) PlayRemote(_ context.Context, guildID, channelID, userID, query string) (string, error) {
	p.calls = append(p.calls, playRequest{GuildID: guildID, ChannelID: channelID, UserID: userID, Query: query})
	return p.title, p.err
}

func post(t *testing.T, h http.Handler, secret, body string) (*httptest.ResponseRecorder, playResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/play", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("x-auth", secret)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp playResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json response %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

const playBody = `{"guildId":"g1","channelId":"v1","userId":"u1","query":"lofi beats"}`

func TestPlay_Success(t *testing.T) {
	player := &fakePlayer{title: "Lofi Beats"}
	h := NewServer(":0", "s3cret", player).Handler()

	rec, resp := post(t, h, "s3cret", playBody)
	if rec.Code != http.StatusOK || !resp.OK || resp.Title != "Lofi Beats" {
		t.Fatalf("unexpected response %d %+v", rec.Code, resp)
	}
	if len(player.calls) != 1 || player.calls[0] != (playRequest{GuildID: "g1", ChannelID: "v1", UserID: "u1", Query: "lofi beats"}) {
		t.Fatalf("unexpected calls: %+v", player.calls)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected a request id header")
	}
}

func TestPlay_Unauthorized(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		sent   string
	}{
		{name: "missing header", secret: "s3cret"},
		{name: "wrong secret", secret: "s3cret", sent: "nope"},
		{name: "api without secret", secret: "", sent: "anything"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			player := &fakePlayer{}
			rec, resp := post(t, NewServer(":0", tt.secret, player).Handler(), tt.sent, playBody)
			if rec.Code != http.StatusUnauthorized || resp.OK || resp.Error != "unauthorized" {
				t.Fatalf("unexpected response %d %+v", rec.Code, resp)
			}
			if len(player.calls) != 0 {
				t.Fatal("player must not be called")
			}
		})
	}
}

func TestPlay_PlayerError(t *testing.T) {
	player := &fakePlayer{err: errors.New("no results")}
	rec, resp := post(t, NewServer(":0", "s3cret", player).Handler(), "s3cret", playBody)
	if rec.Code != http.StatusInternalServerError || resp.OK || resp.Error != "no results" {
		t.Fatalf("unexpected response %d %+v", rec.Code, resp)
	}
}

func TestPlay_InvalidBody(t *testing.T) {
	player := &fakePlayer{}
	rec, resp := post(t, NewServer(":0", "s3cret", player).Handler(), "s3cret", "{")
	if rec.Code != http.StatusInternalServerError || resp.OK {
		t.Fatalf("unexpected response %d %+v", rec.Code, resp)
	}
	if len(player.calls) != 0 {
		t.Fatal("player must not be called")
	}
}

func TestPlay_MethodNotAllowed(t *testing.T) {
	h := NewServer(":0", "s3cret", &fakePlayer{}).Handler()
	req := httptest.NewRequest(http.MethodGet, "/api/play", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestServe_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := NewServer(ln.Addr().String(), "s3cret", &fakePlayer{title: "ok"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.serve(ctx, ln) }()

	req, err := http.NewRequest(http.MethodPost, "http://"+ln.Addr().String()+"/api/play", strings.NewReader(playBody))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("x-auth", "s3cret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

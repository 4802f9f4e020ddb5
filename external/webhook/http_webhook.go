package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/foxseedlab/darkbot/internal/webhook"
)

const (
	requestTimeout = 10 * time.Second
	userAgent      = "darkbot-guild-snapshot/1"
	errorBodyLimit = 512
)

type HTTPSender struct {
	webhookURL string
	client     *http.Client
}

func NewHTTPSender(webhookURL string) webhook.Sender {
	return &HTTPSender{
		webhookURL: strings.TrimSpace(webhookURL),
		client:     &http.Client{Timeout: requestTimeout},
	}
}

// SendGuildSnapshot posts the snapshot as JSON. It is a no-op when no URL is
// configured.
func (s *HTTPSender) SendGuildSnapshot(ctx context.Context, payload webhook.GuildSnapshotPayload) error {
	if s.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode guild snapshot: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build snapshot request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post guild snapshot: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return fmt.Errorf("snapshot webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(excerpt)))
	}
	slog.Debug("guild snapshot delivered", "count", payload.Count, "status", resp.StatusCode)
	return nil
}

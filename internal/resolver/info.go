package resolver

import (
	"encoding/json"
	"errors"
	"strings"
)

var errInvalidJSON = errors.New("invalid JSON from yt-dlp")

type format struct {
	URL    string  `json:"url"`
	ACodec string  `json:"acodec"`
	ABR    float64 `json:"abr"`
}

type info struct {
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	WebpageURL  string   `json:"webpage_url"`
	OriginalURL string   `json:"original_url"`
	Thumbnail   string   `json:"thumbnail"`
	Duration    float64  `json:"duration"`
	Formats     []format `json:"formats"`
	Entries     []info   `json:"entries"`
}

func parseInfo(stdout string) (info, error) {
	var out info
	if err := json.Unmarshal([]byte(strings.TrimSpace(stdout)), &out); err != nil {
		return info{}, errInvalidJSON
	}
	if len(out.Entries) > 0 {
		return out.Entries[0], nil
	}
	return out, nil
}

// directURL returns the top-level url, or the highest-bitrate audio format.
func (i info) directURL() string {
	if i.URL != "" {
		return i.URL
	}
	best := -1.0
	var url string
	for _, f := range i.Formats {
		if f.URL == "" || f.ACodec == "" || f.ACodec == "none" {
			continue
		}
		if f.ABR > best {
			best = f.ABR
			url = f.URL
		}
	}
	return url
}

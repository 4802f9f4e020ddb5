//go:build opus

package audio

import (
	"fmt"

	"github.com/foxseedlab/darkbot/internal/audio"
	"github.com/hraban/opus"
)

type opusEncoder struct {
	enc *opus.Encoder
}

func NewOpusEncoder() (audio.Encoder, error) {
	enc, err := opus.NewEncoder(audio.SampleRate, audio.Channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}
	if err := enc.SetBitrate(128000); err != nil {
		return nil, fmt.Errorf("failed to set opus bitrate: %w", err)
	}
	return &opusEncoder{enc: enc}, nil
}

func (e *opusEncoder) Encode(pcm []int16, out []byte) (int, error) {
	return e.enc.Encode(pcm, out)
}

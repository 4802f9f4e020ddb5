package audio

import (
	"context"
	"time"

	"github.com/foxseedlab/darkbot/internal/discord"
)

const (
	SampleRate      = 48000
	Channels        = 2
	FrameSizeMs     = 20
	SamplesPerFrame = SampleRate * FrameSizeMs * Channels / 1000
	FrameBytes      = SamplesPerFrame * 2
)

// Sink plays one stream to completion, starting offset into it. It returns
// nil when the stream ends and ctx.Err() when interrupted.
type Sink interface {
	Play(ctx context.Context, streamURL string, offset time.Duration) error
}

type SinkFactory func(voice discord.VoiceConnection, volume int) Sink

// Encoder turns one frame of interleaved PCM into an Opus packet.
type Encoder interface {
	Encode(pcm []int16, out []byte) (int, error)
}

type EncoderFactory func() (Encoder, error)

package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/foxseedlab/darkbot/internal/audio"
)

type recordingEncoder struct {
	frames [][]int16
}

func (e *recordingEncoder) Encode(pcm []int16, out []byte) (int, error) {
	e.frames = append(e.frames, append([]int16(nil), pcm...))
	out[0] = byte(len(e.frames))
	return 1, nil
}

type recordingVoice struct {
	frames  [][]byte
	sendErr error
}

func (v *recordingVoice) ChannelID() string   { return "vc" }
func (v *recordingVoice) Speaking(bool) error { return nil }
func (v *recordingVoice) Disconnect() error   { return nil }
func (v *recordingVoice) SendOpusFrame(_ context.Context, frame []byte) error {
	if v.sendErr != nil {
		return v.sendErr
	}
	v.frames = append(v.frames, frame)
	return nil
}

func pcmBytes(samples ...int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func TestStreamFrames_PadsTrailingFrame(t *testing.T) {
	samples := make([]int16, audio.SamplesPerFrame+4)
	for i := range samples {
		samples[i] = 100
	}
	enc := &recordingEncoder{}
	voice := &recordingVoice{}

	if err := streamFrames(context.Background(), bytes.NewReader(pcmBytes(samples...)), enc, voice, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(voice.frames) != 2 || len(enc.frames) != 2 {
		t.Fatalf("expected two frames, got voice=%d enc=%d", len(voice.frames), len(enc.frames))
	}
	tail := enc.frames[1]
	if tail[3] != 100 || tail[4] != 0 {
		t.Fatalf("expected silence padding after partial frame, got %v", tail[:6])
	}
}

func TestStreamFrames_StopsOnSendError(t *testing.T) {
	voice := &recordingVoice{sendErr: errors.New("closed")}
	err := streamFrames(context.Background(), bytes.NewReader(make([]byte, audio.FrameBytes*3)), &recordingEncoder{}, voice, 100)
	if err == nil {
		t.Fatal("expected send error to propagate")
	}
}

func TestDecodePCM_ScalesAndClamps(t *testing.T) {
	out := make([]int16, 3)
	n := decodePCM(pcmBytes(1000, -30000, 30000), out, 200)
	if n != 3 {
		t.Fatalf("unexpected sample count: %d", n)
	}
	if !slices.Equal(out, []int16{2000, -32768, 32767}) {
		t.Fatalf("unexpected samples: %v", out)
	}

	decodePCM(pcmBytes(1000), out, 50)
	if out[0] != 500 {
		t.Fatalf("expected halved sample, got %d", out[0])
	}
}

func TestFFmpegArgs_Offset(t *testing.T) {
	args := ffmpegArgs("https://cdn/x", 90*time.Second)
	if !slices.Contains(args, "-ss") || !slices.Contains(args, "90.000") {
		t.Fatalf("expected seek args, got %v", args)
	}
	if args[len(args)-1] != "pipe:1" {
		t.Fatalf("expected stdout output, got %v", args)
	}

	noSeek := ffmpegArgs("https://cdn/x", 0)
	if slices.Contains(noSeek, "-ss") {
		t.Fatalf("unexpected seek args: %v", noSeek)
	}
}

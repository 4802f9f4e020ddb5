package audio

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/foxseedlab/darkbot/internal/audio"
	"github.com/foxseedlab/darkbot/internal/discord"
)

const maxOpusPacketBytes = 4000

// VoiceSink decodes a remote stream with ffmpeg and sends it to a voice
// connection as 20ms Opus frames.
type VoiceSink struct {
	ffmpegPath string
	voice      discord.VoiceConnection
	newEncoder audio.EncoderFactory
	volume     int
}

func NewVoiceSink(ffmpegPath string, voice discord.VoiceConnection, newEncoder audio.EncoderFactory, volume int) *VoiceSink {
	return &VoiceSink{
		ffmpegPath: ffmpegPath,
		voice:      voice,
		newEncoder: newEncoder,
		volume:     volume,
	}
}

func ffmpegArgs(streamURL string, offset time.Duration) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
	}
	if offset > 0 {
		args = append(args, "-ss", strconv.FormatFloat(offset.Seconds(), 'f', 3, 64))
	}
	return append(args,
		"-i", streamURL,
		"-vn",
		"-f", "s16le",
		"-ar", strconv.Itoa(audio.SampleRate),
		"-ac", strconv.Itoa(audio.Channels),
		"pipe:1",
	)
}

func (s *VoiceSink) Play(ctx context.Context, streamURL string, offset time.Duration) error {
	enc, err := s.newEncoder()
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, s.ffmpegPath, ffmpegArgs(streamURL, offset)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	if err := s.voice.Speaking(true); err != nil {
		slog.Debug("failed to set speaking state", "error", err)
	}
	defer func() {
		_ = s.voice.Speaking(false)
	}()

	streamErr := streamFrames(ctx, bufio.NewReaderSize(stdout, audio.FrameBytes*4), enc, s.voice, s.volume)
	if streamErr != nil {
		_ = cmd.Process.Kill()
	}
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if streamErr != nil {
		return streamErr
	}
	if waitErr != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = waitErr.Error()
		}
		return fmt.Errorf("ffmpeg failed: %s", msg)
	}
	return nil
}

// streamFrames encodes PCM from r frame by frame until EOF. A trailing
// partial frame is padded with silence.
func streamFrames(ctx context.Context, r io.Reader, enc audio.Encoder, voice discord.VoiceConnection, volume int) error {
	buf := make([]byte, audio.FrameBytes)
	pcm := make([]int16, audio.SamplesPerFrame)
	packet := make([]byte, maxOpusPacketBytes)
	for {
		n, err := io.ReadFull(r, buf)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("failed to read pcm: %w", err)
		}
		clear(pcm)
		decodePCM(buf[:n], pcm, volume)

		size, encErr := enc.Encode(pcm, packet)
		if encErr != nil {
			return fmt.Errorf("failed to encode opus frame: %w", encErr)
		}
		frame := make([]byte, size)
		copy(frame, packet[:size])
		if sendErr := voice.SendOpusFrame(ctx, frame); sendErr != nil {
			return sendErr
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
	}
}

package audio

import (
	"github.com/foxseedlab/darkbot/internal/audio"
	"github.com/foxseedlab/darkbot/internal/config"
	"github.com/foxseedlab/darkbot/internal/discord"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.ProvideValue(injector, audio.EncoderFactory(NewOpusEncoder))
	do.Provide(injector, func(i do.Injector) (audio.SinkFactory, error) {
		cfg := do.MustInvoke[*config.Config](i)
		newEncoder := do.MustInvoke[audio.EncoderFactory](i)
		return func(voice discord.VoiceConnection, volume int) audio.Sink {
			return NewVoiceSink(cfg.FFmpegPath, voice, newEncoder, volume)
		}, nil
	})
}

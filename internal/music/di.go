package music

import (
	"github.com/foxseedlab/darkbot/internal/audio"
	"github.com/foxseedlab/darkbot/internal/clock"
	"github.com/foxseedlab/darkbot/internal/config"
	"github.com/foxseedlab/darkbot/internal/discord"
	"github.com/foxseedlab/darkbot/internal/resolver"
	"github.com/foxseedlab/darkbot/internal/session"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Service, error) {
		return NewService(
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[discord.Client](i),
			do.MustInvoke[resolver.Resolver](i),
			do.MustInvoke[session.Store](i),
			do.MustInvoke[audio.SinkFactory](i),
			do.MustInvoke[clock.Clock](i),
		), nil
	})
}

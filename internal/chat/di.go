package chat

import (
	"github.com/foxseedlab/darkbot/internal/clock"
	"github.com/foxseedlab/darkbot/internal/config"
	"github.com/foxseedlab/darkbot/internal/discord"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Service, error) {
		return NewService(
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[discord.Client](i),
			do.MustInvoke[Completer](i),
			do.MustInvoke[clock.Clock](i),
		), nil
	})
}

package session

import (
	"github.com/foxseedlab/darkbot/internal/clock"
	"github.com/foxseedlab/darkbot/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (Store, error) {
		cfg := do.MustInvoke[*config.Config](i)
		clk := do.MustInvoke[clock.Clock](i)
		return NewManager(clk, cfg.MusicInactivity, cfg.MusicLogCapacity), nil
	})
}

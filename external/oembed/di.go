package oembed

import (
	"github.com/foxseedlab/darkbot/internal/clock"
	"github.com/foxseedlab/darkbot/internal/config"
	"github.com/foxseedlab/darkbot/internal/resolver"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (resolver.TitleLookup, error) {
		c := do.MustInvoke[*config.Config](i)
		clk := do.MustInvoke[clock.Clock](i)
		return NewSpotifyClient(DefaultSpotifyEndpoint, c.OEmbedTimeout, c.OEmbedCacheTTL, clk), nil
	})
}

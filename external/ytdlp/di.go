package ytdlp

import (
	"github.com/foxseedlab/darkbot/internal/config"
	"github.com/foxseedlab/darkbot/internal/resolver"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (resolver.Runner, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewRunner(c.YtdlpPath), nil
	})
}

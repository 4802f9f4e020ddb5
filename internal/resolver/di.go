package resolver

import (
	"github.com/foxseedlab/darkbot/internal/clock"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (Resolver, error) {
		return NewBridge(
			do.MustInvoke[Runner](i),
			do.MustInvoke[Cache](i),
			do.MustInvoke[TitleLookup](i),
			do.MustInvoke[clock.Clock](i),
		), nil
	})
}

package chat

import (
	"github.com/foxseedlab/darkbot/internal/chat"
	"github.com/foxseedlab/darkbot/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (chat.Completer, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.AIProvider == config.AIProviderOpenAI {
			return NewOpenAICompleter(cfg.OpenAIAPIKey, cfg.AIBaseURL, cfg.AIModel), nil
		}
		return NewCohereCompleter(cfg.AIBaseURL, cfg.CohereAPIKey, cfg.AIModel), nil
	})
}

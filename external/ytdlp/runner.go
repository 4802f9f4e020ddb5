package ytdlp

import (
	"context"

	"github.com/lrstanley/go-ytdlp"
)

// Runner executes yt-dlp commands with the configured binary.
type Runner struct {
	executable string
}

func NewRunner(executable string) *Runner {
	return &Runner{executable: executable}
}

func (r *Runner) Run(ctx context.Context, cmd *ytdlp.Command, args ...string) (*ytdlp.Result, error) {
	if r.executable != "" {
		cmd = cmd.SetExecutable(r.executable)
	}
	return cmd.Run(ctx, args...)
}

package music

import (
	"errors"
	"log/slog"

	"github.com/foxseedlab/darkbot/internal/player"
)

// previousStrategy tries one way of going back a track. It reports false
// when it does not apply to the queue.
type previousStrategy struct {
	name  string
	apply func(q QueueHandle) (bool, error)
}

var previousStrategies = []previousStrategy{
	{name: "native_back", apply: nativeBack},
	{name: "manual_reinsert", apply: manualReinsert},
	{name: "seek_zero", apply: seekZero},
}

func nativeBack(q QueueHandle) (bool, error) {
	if !q.Capabilities().HistoryBack {
		return false, nil
	}
	if err := q.Back(); err != nil {
		if errors.Is(err, player.ErrNoHistory) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// manualReinsert puts the last history track and the current track at the
// head of the queue, then skips into them.
func manualReinsert(q QueueHandle) (bool, error) {
	if !q.Capabilities().Insert {
		return false, nil
	}
	prev, ok := q.PopHistory()
	if !ok {
		return false, nil
	}
	if cur := q.Current(); cur != nil {
		if err := q.InsertTrack(cur, 0); err != nil {
			return false, err
		}
	}
	if err := q.InsertTrack(prev, 0); err != nil {
		return false, err
	}
	if q.IsPlaying() || q.IsPaused() {
		return true, q.Skip()
	}
	return true, q.Play()
}

func seekZero(q QueueHandle) (bool, error) {
	if !q.Capabilities().Seek || q.Current() == nil {
		return false, nil
	}
	if err := q.Seek(0); err != nil {
		return false, err
	}
	return true, nil
}

// goPrevious runs the strategies in order and returns the name of the one
// that applied, or player.ErrUnsupported.
func goPrevious(q QueueHandle) (string, error) {
	for _, s := range previousStrategies {
		ok, err := s.apply(q)
		if err != nil {
			slog.Debug("previous strategy failed", "guild_id", q.GuildID(), "strategy", s.name, "error", err)
			continue
		}
		if ok {
			return s.name, nil
		}
	}
	return "", player.ErrUnsupported
}

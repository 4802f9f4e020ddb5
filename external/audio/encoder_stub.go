//go:build !opus

package audio

import (
	"errors"

	"github.com/foxseedlab/darkbot/internal/audio"
)

var errOpusUnavailable = errors.New("opus encoder unavailable: build with -tags opus")

func NewOpusEncoder() (audio.Encoder, error) {
	return nil, errOpusUnavailable
}

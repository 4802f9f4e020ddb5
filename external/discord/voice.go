package discord

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/foxseedlab/darkbot/internal/discord"
)

const opusSendTimeout = 2 * time.Second

var errVoiceNotReady = errors.New("voice connection is not ready")

func (c *Client) JoinVoiceChannel(guildID, channelID string) (discordpkg.VoiceConnection, error) {
	vc, err := c.session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, err
	}
	return &voiceConnectionImpl{vc: vc}, nil
}

type voiceConnectionImpl struct {
	vc *discordgo.VoiceConnection
}

func (v *voiceConnectionImpl) ChannelID() string {
	return v.vc.ChannelID
}

func (v *voiceConnectionImpl) Speaking(on bool) error {
	return v.vc.Speaking(on)
}

func (v *voiceConnectionImpl) SendOpusFrame(ctx context.Context, frame []byte) error {
	if v.vc.OpusSend == nil {
		return errVoiceNotReady
	}
	timer := time.NewTimer(opusSendTimeout)
	defer timer.Stop()
	select {
	case v.vc.OpusSend <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errVoiceNotReady
	}
}

func (v *voiceConnectionImpl) Disconnect() error {
	return v.vc.Disconnect()
}

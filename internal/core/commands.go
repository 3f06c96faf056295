package core

import (
	"fmt"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mikey-austin/pitv/internal/ports"
	"github.com/mikey-austin/pitv/pkg/pitv"
)

// CommandChannel encodes commands and hands them to the transport.
// It does not check authorization: callers must only send once the session is
// authorized. Client enforces that boundary for its public methods.
type CommandChannel struct {
	log       *zap.Logger
	transport ports.Transport
}

// NewCommandChannel creates a channel writing to transport.
func NewCommandChannel(log *zap.Logger, transport ports.Transport) *CommandChannel {
	if log == nil {
		log = zap.NewNop()
	}
	return &CommandChannel{log: log, transport: transport}
}

// Send encodes cmd and writes it. There is no acknowledgement.
func (c *CommandChannel) Send(cmd pitv.Command) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encode %s: %w", cmd.Name, err)
	}
	c.log.Debug("sending command", zap.String("command", cmd.Name))
	if err := c.transport.Send(string(payload)); err != nil {
		return fmt.Errorf("send %s: %w", cmd.Name, err)
	}
	return nil
}

// SetPosition seeks to an absolute position.
func (c *CommandChannel) SetPosition(seconds int64) error {
	return c.Send(pitv.PositionCommand(seconds))
}

// Seek moves relative to the current position.
func (c *CommandChannel) Seek(seconds int64) error {
	return c.Send(pitv.SeekCommand(seconds))
}

// PlayRandom asks for a random video.
func (c *CommandChannel) PlayRandom() error {
	return c.Send(pitv.PlayRandomCommand())
}

// Play plays the video at path.
func (c *CommandChannel) Play(path string) error {
	return c.Send(pitv.PlayCommand(path))
}

// Update edits a video's metadata.
func (c *CommandChannel) Update(update pitv.VideoUpdate) error {
	return c.Send(pitv.UpdateCommand(update))
}

// TogglePlayRRated toggles R-rated playback.
func (c *CommandChannel) TogglePlayRRated() error {
	return c.Send(pitv.TogglePlayRRatedCommand())
}

// ToggleMute toggles audio mute.
func (c *CommandChannel) ToggleMute() error {
	return c.Send(pitv.ToggleMuteCommand())
}

// PlayPause toggles pause.
func (c *CommandChannel) PlayPause() error {
	return c.Send(pitv.PlayPauseCommand())
}

// SearchImdb requests metadata candidates for path.
func (c *CommandChannel) SearchImdb(path, titleHint string) error {
	return c.Send(pitv.SearchImdbCommand(path, titleHint))
}

// Download asks the player to fetch and play url.
func (c *CommandChannel) Download(url string) error {
	return c.Send(pitv.DownloadCommand(url))
}

package pitv

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Command names understood by the server.
const (
	CmdPosition         = "position"
	CmdSeek             = "seek"
	CmdPlayRandom       = "playRandom"
	CmdPlay             = "play"
	CmdUpdate           = "update"
	CmdTogglePlayRRated = "togglePlayRRated"
	CmdToggleMute       = "toggleMute"
	CmdPlayPause        = "playPause"
	CmdSearchImdb       = "searchImdb"
	CmdDownload         = "download"
)

// Command is a single-key outbound JSON object.
type Command struct {
	Name  string
	Value any
}

// MarshalJSON encodes the command as {name: value}.
func (c Command) MarshalJSON() ([]byte, error) {
	if strings.TrimSpace(c.Name) == "" {
		return nil, errors.New("command name is required")
	}
	return json.Marshal(map[string]any{c.Name: c.Value})
}

// VideoUpdate is the body of an update command.
type VideoUpdate struct {
	Filename    string  `json:"filename"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	IsRRated    bool    `json:"isRRated"`
	Image       *string `json:"image"`
}

// PositionCommand sets an absolute playback position.
func PositionCommand(seconds int64) Command { return Command{Name: CmdPosition, Value: seconds} }

// SeekCommand seeks relative to the current position.
func SeekCommand(seconds int64) Command { return Command{Name: CmdSeek, Value: seconds} }

// PlayRandomCommand asks for a random video.
func PlayRandomCommand() Command { return Command{Name: CmdPlayRandom, Value: true} }

// PlayCommand plays a catalog entry.
func PlayCommand(path string) Command { return Command{Name: CmdPlay, Value: path} }

// UpdateCommand edits a catalog entry.
func UpdateCommand(update VideoUpdate) Command { return Command{Name: CmdUpdate, Value: update} }

// TogglePlayRRatedCommand toggles whether R-rated videos are played.
func TogglePlayRRatedCommand() Command { return Command{Name: CmdTogglePlayRRated, Value: true} }

// ToggleMuteCommand toggles audio mute.
func ToggleMuteCommand() Command { return Command{Name: CmdToggleMute, Value: true} }

// PlayPauseCommand toggles pause.
func PlayPauseCommand() Command { return Command{Name: CmdPlayPause, Value: true} }

// SearchImdbCommand requests external metadata candidates for a video.
func SearchImdbCommand(path, titleHint string) Command {
	return Command{Name: CmdSearchImdb, Value: []string{path, titleHint}}
}

// DownloadCommand asks the player to fetch and play a URL. Progress comes back
// in the download field.
func DownloadCommand(url string) Command { return Command{Name: CmdDownload, Value: url} }

// ParseCommand validates a single-key command object received from another
// controller (for example the MQTT bridge) and returns it in typed form.
func ParseCommand(data []byte) (Command, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Command{}, fmt.Errorf("decode command: %w", err)
	}
	if len(raw) != 1 {
		return Command{}, fmt.Errorf("command must have exactly one key, got %d", len(raw))
	}
	for name, value := range raw {
		return parseCommandValue(name, value)
	}
	return Command{}, errors.New("empty command")
}

func parseCommandValue(name string, value json.RawMessage) (Command, error) {
	switch name {
	case CmdPosition, CmdSeek:
		seconds, err := DecodeSeconds(value)
		if err != nil {
			return Command{}, fmt.Errorf("%s: %w", name, err)
		}
		if seconds == nil {
			return Command{}, fmt.Errorf("%s: seconds required", name)
		}
		return Command{Name: name, Value: *seconds}, nil
	case CmdPlay:
		var path string
		if err := json.Unmarshal(value, &path); err != nil || path == "" {
			return Command{}, fmt.Errorf("%s: path required", name)
		}
		return PlayCommand(path), nil
	case CmdDownload:
		var url string
		if err := json.Unmarshal(value, &url); err != nil || strings.TrimSpace(url) == "" {
			return Command{}, fmt.Errorf("%s: url required", name)
		}
		return DownloadCommand(url), nil
	case CmdUpdate:
		var update VideoUpdate
		if err := json.Unmarshal(value, &update); err != nil {
			return Command{}, fmt.Errorf("%s: %w", name, err)
		}
		if update.Filename == "" {
			return Command{}, fmt.Errorf("%s: filename required", name)
		}
		return UpdateCommand(update), nil
	case CmdSearchImdb:
		var args []string
		if err := json.Unmarshal(value, &args); err != nil || len(args) != 2 {
			return Command{}, fmt.Errorf("%s: expected [path, titleHint]", name)
		}
		return SearchImdbCommand(args[0], args[1]), nil
	case CmdPlayRandom, CmdTogglePlayRRated, CmdToggleMute, CmdPlayPause:
		return Command{Name: name, Value: true}, nil
	default:
		return Command{}, fmt.Errorf("unknown command %q", name)
	}
}

package core

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mikey-austin/pitv/pkg/pitv"
)

// PlayerStore is the canonical client-side player state.
// ApplyPatch is the only mutation path; the session calls it only while authorized.
type PlayerStore struct {
	log    *zap.Logger
	state  pitv.PlayerState
	alerts *NotificationQueue
}

// NewPlayerStore creates a store with nothing received yet. Notify keys are forwarded to alerts.
func NewPlayerStore(log *zap.Logger, alerts *NotificationQueue) *PlayerStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &PlayerStore{log: log, alerts: alerts}
}

// ApplyPatch overwrites every field named in patch. Keys that fail to decode
// are skipped and reported in the returned error; the rest still apply.
func (s *PlayerStore) ApplyPatch(patch pitv.Patch) error {
	keys := make([]string, 0, len(patch))
	for key := range patch {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var errs []error
	for _, key := range keys {
		if err := s.applyKey(key, patch[key]); err != nil {
			s.log.Warn("discarding patch field", zap.String("key", key), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (s *PlayerStore) applyKey(key string, raw json.RawMessage) error {
	st := &s.state
	switch key {
	case pitv.KeyNotify:
		return s.notify(raw)
	case pitv.KeyVideos:
		var videos []pitv.Video
		if err := json.Unmarshal(raw, &videos); err != nil {
			return err
		}
		st.Videos = videos
	case pitv.KeyCurrentlyPlaying:
		return decodeInto(raw, &st.CurrentlyPlaying)
	case pitv.KeyDownload:
		if isNull(raw) {
			st.Download = nil
			return nil
		}
		st.Download = append(json.RawMessage{}, raw...)
	case pitv.KeyPosition:
		v, err := pitv.DecodeSeconds(raw)
		if err != nil {
			return err
		}
		st.Position = v
	case pitv.KeyDuration:
		v, err := pitv.DecodeSeconds(raw)
		if err != nil {
			return err
		}
		st.Duration = v
	case pitv.KeyPlaying:
		return decodeInto(raw, &st.Playing)
	case pitv.KeyPlayRRated:
		return decodeInto(raw, &st.PlayRRated)
	case pitv.KeyTitle:
		return decodeInto(raw, &st.Title)
	case pitv.KeyPaused:
		return decodeInto(raw, &st.Paused)
	case pitv.KeyMuted:
		return decodeInto(raw, &st.Muted)
	case pitv.KeyImdbResults:
		return decodeInto(raw, &st.ImdbResults)
	default:
		if st.Extra == nil {
			st.Extra = make(map[string]json.RawMessage)
		}
		st.Extra[key] = append(json.RawMessage{}, raw...)
	}
	return nil
}

func (s *PlayerStore) notify(raw json.RawMessage) error {
	n, err := pitv.DecodeNotification(raw)
	if err != nil {
		return err
	}
	if n.Message == "" {
		return errors.New("notification message is empty")
	}
	if s.alerts != nil {
		s.alerts.Show(n.Message, pitv.Level(n.Level), time.Duration(n.TimeoutMS)*time.Millisecond)
	}
	return nil
}

// State returns a deep copy of the current state.
func (s *PlayerStore) State() pitv.PlayerState {
	return s.state.Clone()
}

// LookupVideo finds a catalog entry by path.
func (s *PlayerStore) LookupVideo(path string) (pitv.Video, bool) {
	return lookupVideo(s.state.Videos, path)
}

// CurrentlyPlayingVideo returns the catalog entry being played. A path missing
// from the catalog is a tolerated transient state and reports false.
func (s *PlayerStore) CurrentlyPlayingVideo() (pitv.Video, bool) {
	if s.state.CurrentlyPlaying == nil {
		return pitv.Video{}, false
	}
	return lookupVideo(s.state.Videos, *s.state.CurrentlyPlaying)
}

// PrettyDuration formats the current duration.
func (s *PlayerStore) PrettyDuration() string {
	return PrettyDuration(s.state)
}

// PrettyPosition formats the current position.
func (s *PlayerStore) PrettyPosition() string {
	return PrettyPosition(s.state)
}

// PrettyTimeleft formats the remaining time.
func (s *PlayerStore) PrettyTimeleft() string {
	return PrettyTimeleft(s.state)
}

// PrettyDuration formats state.Duration, or "" when unknown.
func PrettyDuration(state pitv.PlayerState) string {
	if state.Duration == nil {
		return ""
	}
	return FormatDuration(*state.Duration, false)
}

// PrettyPosition formats state.Position, forcing the hour digit for long videos.
func PrettyPosition(state pitv.PlayerState) string {
	if state.Position == nil {
		return ""
	}
	return FormatDuration(*state.Position, forceHour(state))
}

// PrettyTimeleft formats duration minus position.
func PrettyTimeleft(state pitv.PlayerState) string {
	if state.Position == nil || state.Duration == nil {
		return ""
	}
	left := *state.Duration - *state.Position
	if left < 0 {
		left = 0
	}
	return FormatDuration(left, forceHour(state))
}

func forceHour(state pitv.PlayerState) bool {
	return state.Duration != nil && *state.Duration > 3600
}

// FormatDuration renders seconds as H:MM:SS when over an hour (or forced), else MM:SS.
func FormatDuration(seconds int64, forceHourDigit bool) string {
	if seconds < 0 {
		seconds = 0
	}
	if seconds > 3600 || forceHourDigit {
		return fmt.Sprintf("%d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
	}
	// 3600 exactly has no hour component and renders as 60:00.
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func lookupVideo(videos []pitv.Video, path string) (pitv.Video, bool) {
	for _, video := range videos {
		if video.Path == path {
			return video, true
		}
	}
	return pitv.Video{}, false
}

func decodeInto[T any](raw json.RawMessage, dst **T) error {
	var v *T
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	*dst = v
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

package pitv

import (
	"errors"
	"fmt"
	"math"

	"github.com/goccy/go-json"
)

// Handshake tokens sent by the server in reply to a credential.
const (
	TokenAcceptedUser  = "PASSWORD_ACCEPTED_USER"
	TokenAcceptedAdmin = "PASSWORD_ACCEPTED_ADMIN"
	TokenDenied        = "PASSWORD_DENIED"
)

// Patch keys pushed by the server.
const (
	KeyVideos           = "videos"
	KeyCurrentlyPlaying = "currentlyPlaying"
	KeyDownload         = "download"
	KeyPosition         = "position"
	KeyDuration         = "duration"
	KeyPlaying          = "playing"
	KeyPlayRRated       = "playRRated"
	KeyTitle            = "title"
	KeyPaused           = "paused"
	KeyMuted            = "muted"
	KeyImdbResults      = "imdbResults"

	// KeyNotify is reserved: its value is an alert, never player state.
	KeyNotify = "notify"
)

// Video is one catalog entry. Path is the unique id.
type Video struct {
	Path        string  `json:"path"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	IsRRated    bool    `json:"isRRated"`
	Image       *string `json:"image"`
	Duration    int64   `json:"duration,omitempty"`
}

// Candidate is an external metadata search result.
type Candidate struct {
	ID          string  `json:"id"`
	Title       *string `json:"title"`
	Year        *int    `json:"year,omitempty"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
}

// ImdbResults is the server reply to a searchImdb command.
type ImdbResults struct {
	Path    string      `json:"path"`
	Results []Candidate `json:"results"`
}

// PlayerState is the client-side copy of the server player state.
// Nil fields have not been received yet.
type PlayerState struct {
	Videos           []Video                    `json:"videos"`
	CurrentlyPlaying *string                    `json:"currentlyPlaying"`
	Download         json.RawMessage            `json:"download"`
	Position         *int64                     `json:"position"`
	Duration         *int64                     `json:"duration"`
	Playing          *bool                      `json:"playing"`
	PlayRRated       *bool                      `json:"playRRated"`
	Title            *string                    `json:"title,omitempty"`
	Paused           *bool                      `json:"paused,omitempty"`
	Muted            *bool                      `json:"muted,omitempty"`
	ImdbResults      *ImdbResults               `json:"imdbResults,omitempty"`
	Extra            map[string]json.RawMessage `json:"extra,omitempty"`
}

// Clone returns a deep copy of the state.
func (s PlayerState) Clone() PlayerState {
	out := s
	if s.Videos != nil {
		out.Videos = make([]Video, len(s.Videos))
		for i, v := range s.Videos {
			out.Videos[i] = v
			out.Videos[i].Image = cloneString(v.Image)
		}
	}
	out.CurrentlyPlaying = cloneString(s.CurrentlyPlaying)
	if s.Download != nil {
		out.Download = append(json.RawMessage{}, s.Download...)
	}
	out.Position = clonePtr(s.Position)
	out.Duration = clonePtr(s.Duration)
	out.Playing = clonePtr(s.Playing)
	out.PlayRRated = clonePtr(s.PlayRRated)
	out.Title = cloneString(s.Title)
	out.Paused = clonePtr(s.Paused)
	out.Muted = clonePtr(s.Muted)
	if s.ImdbResults != nil {
		res := *s.ImdbResults
		res.Results = append([]Candidate(nil), s.ImdbResults.Results...)
		out.ImdbResults = &res
	}
	if s.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(s.Extra))
		for k, v := range s.Extra {
			out.Extra[k] = append(json.RawMessage{}, v...)
		}
	}
	return out
}

// Patch is a partial state update: present keys overwrite, absent keys are untouched.
type Patch map[string]json.RawMessage

// ParsePatch decodes a server payload. Anything other than a JSON object is rejected.
func ParsePatch(text string) (Patch, error) {
	var patch Patch
	if err := json.Unmarshal([]byte(text), &patch); err != nil {
		return nil, err
	}
	if patch == nil {
		return nil, errors.New("payload is not a json object")
	}
	return patch, nil
}

// DecodeSeconds decodes a JSON number (or null) of seconds, rounding fractions.
func DecodeSeconds(raw json.RawMessage) (*int64, error) {
	var f *float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	if f == nil {
		return nil, nil
	}
	if math.IsNaN(*f) || math.IsInf(*f, 0) {
		return nil, fmt.Errorf("invalid seconds value %v", *f)
	}
	r := math.Round(*f)
	if r < math.MinInt64 || r >= math.MaxInt64 {
		return nil, fmt.Errorf("seconds value %v out of range", *f)
	}
	v := int64(r)
	return &v, nil
}

// Notification is the value of a notify patch key.
type Notification struct {
	Message   string `json:"message"`
	Level     string `json:"level,omitempty"`
	TimeoutMS int64  `json:"timeoutMs,omitempty"`
}

// DecodeNotification accepts either a notification object or a bare string message.
func DecodeNotification(raw json.RawMessage) (Notification, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return Notification{Message: text}, nil
	}
	var n Notification
	if err := json.Unmarshal(raw, &n); err != nil {
		return Notification{}, fmt.Errorf("decode notification: %w", err)
	}
	return n, nil
}

func cloneString(s *string) *string {
	return clonePtr(s)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

package core

import (
	"fmt"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mikey-austin/pitv/internal/ports"
	"github.com/mikey-austin/pitv/pkg/pitv"
)

// AuthState is a handshake state.
type AuthState int

// Handshake states. A denial folds straight back into StateAwaitingCredential.
const (
	StateConnecting AuthState = iota
	StateAwaitingCredential
	StateAuthorizing
	StateAuthorized
	StateDisconnected
)

func (s AuthState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAwaitingCredential:
		return "awaiting_credential"
	case StateAuthorizing:
		return "authorizing"
	case StateAuthorized:
		return "authorized"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the state name.
func (s AuthState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a state name written by MarshalJSON.
func (s *AuthState) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for candidate := StateConnecting; candidate <= StateDisconnected; candidate++ {
		if candidate.String() == name {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown auth state %q", name)
}

// Role is the authorization level granted by the server.
type Role string

// Roles.
const (
	RoleNone  Role = ""
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ConnectionSession is re-derived on every connection except HasConnectedBefore, which is sticky.
type ConnectionSession struct {
	Authorized         bool `json:"authorized"`
	IsAdmin            bool `json:"isAdmin"`
	BadPassword        bool `json:"badPassword"`
	HasConnectedBefore bool `json:"hasConnectedBefore"`
	// Connected is set once the first state payload arrives after authorization.
	Connected bool `json:"connected"`
}

// Status is the connection status indicator shown while not connected.
type Status struct {
	Description string     `json:"description"`
	Severity    pitv.Level `json:"severity"`
}

// Status indicator values.
var (
	StatusConnecting        = Status{Description: "Connecting", Severity: pitv.LevelInfo}
	StatusAuthorizing       = Status{Description: "Authorizing", Severity: pitv.LevelInfo}
	StatusInitializing      = Status{Description: "Initializing", Severity: pitv.LevelSuccess}
	StatusReconnecting      = Status{Description: "Reconnecting", Severity: pitv.LevelError}
	StatusProblemConnecting = Status{Description: "Problem connecting", Severity: pitv.LevelWarning}
)

// Session drives the handshake and routes authorized payloads into the store.
// It owns the player store and the alert queue.
type Session struct {
	log       *zap.Logger
	transport ports.Transport
	prefs     *Preferences
	store     *PlayerStore
	alerts    *NotificationQueue

	state  AuthState
	role   Role
	conn   ConnectionSession
	status Status

	// onPatch runs after every applied patch.
	onPatch func(pitv.Patch)
}

// NewSession creates a session in StateConnecting.
func NewSession(log *zap.Logger, transport ports.Transport, prefs *Preferences, alerts *NotificationQueue) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		log:       log,
		transport: transport,
		prefs:     prefs,
		alerts:    alerts,
		store:     NewPlayerStore(log.With(zap.String("component", "store")), alerts),
		state:     StateConnecting,
		conn:      ConnectionSession{BadPassword: true},
		status:    StatusConnecting,
	}
}

// State returns the handshake state.
func (s *Session) State() AuthState { return s.state }

// Role returns the granted role, RoleNone unless authorized.
func (s *Session) Role() Role { return s.role }

// Connection returns the connection flags.
func (s *Session) Connection() ConnectionSession { return s.conn }

// Status returns the connection status indicator.
func (s *Session) Status() Status { return s.status }

// Store returns the player store.
func (s *Session) Store() *PlayerStore { return s.store }

// Alerts returns the alert queue.
func (s *Session) Alerts() *NotificationQueue { return s.alerts }

// HandleOpen restarts the handshake on a new connection. Nothing from a
// previous connection's authorization carries over.
func (s *Session) HandleOpen() {
	s.conn.Authorized = false
	s.conn.IsAdmin = false
	s.conn.BadPassword = false
	s.conn.Connected = false
	s.conn.HasConnectedBefore = true
	s.role = RoleNone
	s.state = StateAwaitingCredential
	s.status = StatusConnecting
	s.log.Info("connection opened")

	credential := s.prefs.Credential()
	if credential == "" {
		s.log.Info("awaiting credential")
		return
	}
	if err := s.submit(credential); err != nil {
		s.log.Warn("automatic credential submission failed", zap.Error(err))
	}
}

// SubmitCredential sends a credential. Only valid while awaiting one. The
// credential is stored once it has been sent.
func (s *Session) SubmitCredential(credential string) error {
	if s.state != StateAwaitingCredential {
		return ErrInvalidState
	}
	if credential == "" {
		s.conn.BadPassword = true
		return ErrEmptyCredential
	}
	if err := s.submit(credential); err != nil {
		return err
	}
	s.prefs.SetCredential(credential)
	return nil
}

func (s *Session) submit(credential string) error {
	if err := s.transport.Send(credential); err != nil {
		return err
	}
	s.state = StateAuthorizing
	s.status = StatusAuthorizing
	s.log.Info("credential submitted")
	return nil
}

// HandleMessage processes one inbound text frame.
func (s *Session) HandleMessage(text string) {
	switch s.state {
	case StateAuthorized:
		s.handlePayload(text)
	case StateAuthorizing:
		s.handleHandshake(text)
	default:
		s.log.Warn("ignoring message outside handshake", zap.Stringer("state", s.state))
	}
}

func (s *Session) handleHandshake(token string) {
	switch token {
	case pitv.TokenAcceptedUser, pitv.TokenAcceptedAdmin:
		s.state = StateAuthorized
		s.conn.Authorized = true
		s.conn.IsAdmin = token == pitv.TokenAcceptedAdmin
		s.role = RoleUser
		if s.conn.IsAdmin {
			s.role = RoleAdmin
		}
		s.status = StatusInitializing
		s.log.Info("credential accepted", zap.String("role", string(s.role)))
	default:
		s.log.Warn("credential denied")
		s.prefs.ClearCredential()
		s.conn.BadPassword = true
		s.state = StateAwaitingCredential
	}
}

func (s *Session) handlePayload(text string) {
	patch, err := pitv.ParsePatch(text)
	if err != nil {
		s.log.Warn("discarding server payload", zap.Error(&MalformedPayloadError{Payload: text, Err: err}))
		return
	}
	if err := s.store.ApplyPatch(patch); err != nil {
		s.log.Warn("server payload partially applied", zap.Error(err))
	}
	s.conn.Connected = true
	if s.onPatch != nil {
		s.onPatch(patch)
	}
}

// HandleClose marks the session disconnected after the transport lost its connection.
func (s *Session) HandleClose(err error) {
	s.state = StateDisconnected
	s.role = RoleNone
	s.conn.Authorized = false
	s.conn.IsAdmin = false
	s.conn.Connected = false
	if s.conn.HasConnectedBefore {
		s.status = StatusReconnecting
	} else {
		s.status = StatusProblemConnecting
	}
	s.log.Info("connection lost", zap.String("status", s.status.Description), zap.Error(err))
}

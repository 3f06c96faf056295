package core

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey-austin/pitv/internal/ports"
	"github.com/mikey-austin/pitv/pkg/pitv"
)

// Options configures a Client.
type Options struct {
	Logger      *zap.Logger
	Transport   ports.Transport
	Clock       ports.Clock
	Preferences ports.PreferencesStore
	// Endpoint keys the stored preferences.
	Endpoint string
}

// Snapshot is a read-only copy of everything the presentation layer renders.
type Snapshot struct {
	State       AuthState             `json:"state"`
	Role        Role                  `json:"role"`
	Connection  ConnectionSession     `json:"connection"`
	Status      Status                `json:"status"`
	Player      pitv.PlayerState      `json:"player"`
	Alerts      []pitv.Alert          `json:"alerts"`
	Preferences pitv.Preferences      `json:"-"`
	Edits       map[string]EditBuffer `json:"edits,omitempty"`
	Search      ImdbSearch            `json:"search"`
}

// Client is the composition root of the connection/state-synchronization core.
// It implements ports.TransportHandler. Every entry point runs under a single
// dispatcher lock, so the components it owns never see concurrent access.
type Client struct {
	log      *zap.Logger
	clock    ports.Clock
	prefs    *Preferences
	session  *Session
	commands *CommandChannel
	editor   *Editor
	search   *MetadataSearch

	mu  sync.Mutex
	seq uint64

	// deliverMu orders snapshot delivery; delivered is the newest seq handed out.
	deliverMu sync.Mutex
	delivered uint64

	subsMu  sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

// NewClient wires the session, store, alert queue, command channel and view state.
func NewClient(opts Options) (*Client, error) {
	if opts.Transport == nil {
		return nil, errors.New("transport is required")
	}
	if opts.Clock == nil {
		return nil, errors.New("clock is required")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	prefs, err := LoadPreferences(log.With(zap.String("component", "preferences")), opts.Preferences, opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}

	c := &Client{
		log:    log,
		clock:  opts.Clock,
		prefs:  prefs,
		editor: NewEditor(),
		search: &MetadataSearch{},
		subs:   make(map[int]func(Snapshot)),
	}
	alerts := NewNotificationQueue(log.With(zap.String("component", "alerts")), c.schedule)
	c.session = NewSession(log.With(zap.String("component", "session")), opts.Transport, prefs, alerts)
	c.session.onPatch = c.handlePatch
	c.commands = NewCommandChannel(log.With(zap.String("component", "commands")), opts.Transport)
	return c, nil
}

// schedule routes timer callbacks back through the dispatcher.
func (c *Client) schedule(d time.Duration, f func()) ports.Timer {
	return c.clock.AfterFunc(d, func() { c.dispatch(f) })
}

func (c *Client) dispatch(fn func()) {
	_ = c.do(func() error {
		fn()
		return nil
	})
}

func (c *Client) do(fn func() error) error {
	c.mu.Lock()
	err := fn()
	c.seq++
	seq := c.seq
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.deliver(seq, snap)
	return err
}

// deliver hands snap to subscribers in mutation order. A snapshot older than
// one already delivered is dropped.
func (c *Client) deliver(seq uint64, snap Snapshot) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	if seq <= c.delivered {
		return
	}
	c.delivered = seq

	c.subsMu.Lock()
	subs := make([]func(Snapshot), 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	c.subsMu.Unlock()

	for _, sub := range subs {
		sub(snap)
	}
}

func (c *Client) snapshotLocked() Snapshot {
	return Snapshot{
		State:       c.session.State(),
		Role:        c.session.Role(),
		Connection:  c.session.Connection(),
		Status:      c.session.Status(),
		Player:      c.session.Store().State(),
		Alerts:      c.session.Alerts().Alerts(),
		Preferences: c.prefs.Value(),
		Edits:       c.editor.All(),
		Search:      c.search.State(),
	}
}

// Snapshot returns the current state.
func (c *Client) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every mutation. It is
// called outside the dispatcher lock, one snapshot at a time and never older
// than one it already saw, so fn must not call back into the Client. The
// returned func unsubscribes.
func (c *Client) Subscribe(fn func(Snapshot)) func() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		delete(c.subs, id)
	}
}

// OnOpen implements ports.TransportHandler.
func (c *Client) OnOpen() {
	c.dispatch(c.session.HandleOpen)
}

// OnMessage implements ports.TransportHandler.
func (c *Client) OnMessage(text string) {
	c.dispatch(func() { c.session.HandleMessage(text) })
}

// OnClose implements ports.TransportHandler.
func (c *Client) OnClose(err error) {
	c.dispatch(func() { c.session.HandleClose(err) })
}

// OnError implements ports.TransportHandler.
func (c *Client) OnError(err error) {
	c.dispatch(func() { c.session.HandleClose(err) })
}

func (c *Client) handlePatch(patch pitv.Patch) {
	if _, ok := patch[pitv.KeyImdbResults]; !ok {
		return
	}
	results := c.session.Store().State().ImdbResults
	if results != nil && c.search.Receive(*results) {
		c.log.Debug("metadata results received", zap.String("path", results.Path), zap.Int("count", len(results.Results)))
	}
}

// Bootstrap applies values taken from a URL fragment.
func (c *Client) Bootstrap(boot pitv.Bootstrap) {
	c.dispatch(func() { c.prefs.Apply(boot) })
}

// SubmitCredential sends a credential typed by the user.
func (c *Client) SubmitCredential(credential string) error {
	return c.do(func() error { return c.session.SubmitCredential(credential) })
}

// Logout forgets the stored credential.
func (c *Client) Logout() {
	c.dispatch(c.prefs.ClearCredential)
}

// DismissPowerOnWarning stops showing the power-on warning.
func (c *Client) DismissPowerOnWarning() {
	c.dispatch(func() { c.prefs.SetShowPowerOnWarning(false) })
}

// DismissAlert removes an alert before it expires.
func (c *Client) DismissAlert(id int64) bool {
	var removed bool
	c.dispatch(func() { removed = c.session.Alerts().Dismiss(id) })
	return removed
}

// ShowAlert adds a local alert.
func (c *Client) ShowAlert(message string, level pitv.Level, timeout time.Duration) pitv.Alert {
	var alert pitv.Alert
	c.dispatch(func() { alert = c.session.Alerts().Show(message, level, timeout) })
	return alert
}

func (c *Client) command(fn func(*CommandChannel) error) error {
	return c.do(func() error {
		if c.session.State() != StateAuthorized {
			return ErrNotAuthorized
		}
		return fn(c.commands)
	})
}

// SendCommand sends an already-built command.
func (c *Client) SendCommand(cmd pitv.Command) error {
	return c.command(func(ch *CommandChannel) error { return ch.Send(cmd) })
}

// SetPosition seeks to an absolute position in seconds.
func (c *Client) SetPosition(seconds int64) error {
	return c.command(func(ch *CommandChannel) error { return ch.SetPosition(seconds) })
}

// Seek moves playback by seconds.
func (c *Client) Seek(seconds int64) error {
	return c.command(func(ch *CommandChannel) error { return ch.Seek(seconds) })
}

// PlayRandom plays a random video.
func (c *Client) PlayRandom() error {
	return c.command(func(ch *CommandChannel) error { return ch.PlayRandom() })
}

// Play plays the video at path.
func (c *Client) Play(path string) error {
	return c.command(func(ch *CommandChannel) error { return ch.Play(path) })
}

// TogglePlayRRated toggles R-rated playback.
func (c *Client) TogglePlayRRated() error {
	return c.command(func(ch *CommandChannel) error { return ch.TogglePlayRRated() })
}

// ToggleMute toggles mute.
func (c *Client) ToggleMute() error {
	return c.command(func(ch *CommandChannel) error { return ch.ToggleMute() })
}

// PlayPause toggles pause.
func (c *Client) PlayPause() error {
	return c.command(func(ch *CommandChannel) error { return ch.PlayPause() })
}

// Download asks the player to fetch and play url.
func (c *Client) Download(url string) error {
	return c.command(func(ch *CommandChannel) error { return ch.Download(url) })
}

// BeginEdit opens an edit buffer for path.
func (c *Client) BeginEdit(path string) (EditBuffer, error) {
	var buf EditBuffer
	err := c.do(func() error {
		video, ok := c.session.Store().LookupVideo(path)
		if !ok {
			return ErrUnknownVideo
		}
		buf = c.editor.Begin(video)
		return nil
	})
	return buf, err
}

// SetEdit replaces the scratch fields for path.
func (c *Client) SetEdit(path string, fields EditFields) error {
	return c.do(func() error { return c.editor.Set(path, fields) })
}

// CancelEdit discards the edit buffer for path without sending anything.
func (c *Client) CancelEdit(path string) bool {
	var ok bool
	c.dispatch(func() {
		ok = c.editor.Cancel(path)
		if c.search.State().Path == path {
			c.search.Reset()
		}
	})
	return ok
}

// CommitEdit sends the edited fields and leaves edit mode, whether or not the send succeeds.
func (c *Client) CommitEdit(path string) error {
	return c.command(func(ch *CommandChannel) error {
		update, err := c.editor.Commit(path)
		if err != nil {
			return err
		}
		return ch.Update(update)
	})
}

// StartImdbSearch asks the server for metadata candidates for path, opening
// an edit buffer first when none is open.
func (c *Client) StartImdbSearch(path string) error {
	return c.command(func(ch *CommandChannel) error {
		buf, ok := c.editor.Get(path)
		if !ok {
			video, found := c.session.Store().LookupVideo(path)
			if !found {
				return ErrUnknownVideo
			}
			buf = c.editor.Begin(video)
		}
		hint := buf.Fields.Title
		if hint == "" {
			hint = buf.Original.Title
		}
		if err := ch.SearchImdb(path, hint); err != nil {
			c.search.Reset()
			return err
		}
		c.search.Start(path)
		return nil
	})
}

// ImdbNext selects the next candidate.
func (c *Client) ImdbNext() bool {
	var moved bool
	c.dispatch(func() { moved = c.search.Next() })
	return moved
}

// ImdbPrev selects the previous candidate.
func (c *Client) ImdbPrev() bool {
	var moved bool
	c.dispatch(func() { moved = c.search.Prev() })
	return moved
}

// SetImdbFields chooses which fields ImdbDone copies into the edit buffer.
func (c *Client) SetImdbFields(useTitle, useDescription, useImage bool) {
	c.dispatch(func() { c.search.SetFields(useTitle, useDescription, useImage) })
}

// ImdbDone copies the selected candidate into the edit buffer and closes the search.
func (c *Client) ImdbDone() error {
	return c.do(func() error {
		path := c.search.State().Path
		if path == "" {
			return ErrNoSearch
		}
		var doneErr error
		err := c.editor.apply(path, func(fields *EditFields) {
			doneErr = c.search.Done(fields)
		})
		if err != nil {
			c.search.Reset()
			return err
		}
		return doneErr
	})
}

// ImdbReset closes the search without touching the edit buffer.
func (c *Client) ImdbReset() {
	c.dispatch(c.search.Reset)
}

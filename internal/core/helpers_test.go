package core

import (
	"sort"
	"testing"
	"time"

	"github.com/mikey-austin/pitv/internal/ports"
	"github.com/mikey-austin/pitv/pkg/pitv"
)

type fakeTransport struct {
	sent []string
	err  error
}

func (f *fakeTransport) Send(text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeTransport) last() string {
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

type fakeTimer struct {
	at      time.Duration
	seq     int
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fakeClock fires timers only from Advance.
type fakeClock struct {
	now    time.Duration
	seq    int
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) ports.Timer {
	c.seq++
	t := &fakeTimer{at: c.now + d, seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now += d
	for {
		due := make([]*fakeTimer, 0)
		for _, t := range c.timers {
			if !t.fired && !t.stopped && t.at <= c.now {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			return
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].at == due[j].at {
				return due[i].seq < due[j].seq
			}
			return due[i].at < due[j].at
		})
		due[0].fired = true
		due[0].f()
	}
}

type memoryPrefsStore struct {
	store map[string]pitv.Preferences
	puts  int
}

func newMemoryPrefsStore() *memoryPrefsStore {
	return &memoryPrefsStore{store: map[string]pitv.Preferences{}}
}

func (m *memoryPrefsStore) Get(endpoint string) (pitv.Preferences, bool, error) {
	prefs, ok := m.store[endpoint]
	return prefs, ok, nil
}

func (m *memoryPrefsStore) Put(endpoint string, prefs pitv.Preferences) error {
	m.puts++
	m.store[endpoint] = prefs
	return nil
}

func (m *memoryPrefsStore) Clear(endpoint string) error {
	delete(m.store, endpoint)
	return nil
}

const testEndpoint = "ws://pi.local/backend"

type testClient struct {
	*Client
	transport *fakeTransport
	clock     *fakeClock
	prefs     *memoryPrefsStore
}

func newTestClient(t *testing.T, stored pitv.Preferences) *testClient {
	t.Helper()
	transport := &fakeTransport{}
	clock := &fakeClock{}
	prefs := newMemoryPrefsStore()
	if stored != (pitv.Preferences{}) {
		prefs.store[testEndpoint] = stored
	}
	client, err := NewClient(Options{
		Transport:   transport,
		Clock:       clock,
		Preferences: prefs,
		Endpoint:    testEndpoint,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return &testClient{Client: client, transport: transport, clock: clock, prefs: prefs}
}

// authorize walks a client through open, credential and acceptance.
func (tc *testClient) authorize(t *testing.T, token string) {
	t.Helper()
	tc.OnOpen()
	if tc.Snapshot().State == StateAwaitingCredential {
		if err := tc.SubmitCredential("hunter2"); err != nil {
			t.Fatalf("SubmitCredential: %v", err)
		}
	}
	tc.OnMessage(token)
	if state := tc.Snapshot().State; state != StateAuthorized {
		t.Fatalf("expected authorized, got %s", state)
	}
}

const catalogPatch = `{
	"videos": [
		{"path": "alien.mp4", "title": "Alien", "description": "In space", "isRRated": true, "image": null, "duration": 7020},
		{"path": "heat.mp4", "title": "Heat", "description": "", "isRRated": true, "image": "http://img/heat.jpg", "duration": 10200}
	],
	"currentlyPlaying": "alien.mp4",
	"position": 65,
	"duration": 7020,
	"playing": true,
	"playRRated": false
}`

package mqtt

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mikey-austin/pitv/internal/core"
	"github.com/mikey-austin/pitv/pkg/pitv"
)

type fakeMQTTClient struct {
	mu        sync.Mutex
	subs      map[string]paho.MessageHandler
	published []publishedMessage
}

type publishedMessage struct {
	Topic    string
	Payload  []byte
	Retained bool
}

func (f *fakeMQTTClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishedMessage{Topic: topic, Payload: payload, Retained: retained})
	return nil
}

func (f *fakeMQTTClient) Subscribe(topic string, qos byte, handler paho.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs == nil {
		f.subs = make(map[string]paho.MessageHandler)
	}
	f.subs[topic] = handler
	return nil
}

func (f *fakeMQTTClient) Unsubscribe(topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs, topic)
	return nil
}

func (f *fakeMQTTClient) emit(topic string, payload []byte) bool {
	f.mu.Lock()
	handler := f.subs[topic]
	f.mu.Unlock()
	if handler == nil {
		return false
	}
	handler(nil, fakeMessage{topic: topic, payload: payload})
	return true
}

func (f *fakeMQTTClient) onTopic(topic string) []publishedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []publishedMessage
	for _, msg := range f.published {
		if msg.Topic == topic {
			out = append(out, msg)
		}
	}
	return out
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type fakeSource struct {
	mu   sync.Mutex
	snap core.Snapshot
	subs []func(core.Snapshot)
	sent []pitv.Command
	err  error
}

func (s *fakeSource) Snapshot() core.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *fakeSource) Subscribe(fn func(core.Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
	return func() {}
}

func (s *fakeSource) SendCommand(cmd pitv.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, cmd)
	return nil
}

func (s *fakeSource) update(snap core.Snapshot) {
	s.mu.Lock()
	s.snap = snap
	subs := append([]func(core.Snapshot){}, s.subs...)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

func (s *fakeSource) commands() []pitv.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pitv.Command(nil), s.sent...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func startBridge(t *testing.T, client *fakeMQTTClient, source *fakeSource) context.CancelFunc {
	t.Helper()
	bridge := NewBridge(zap.NewNop(), client, "home/tv", source)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = bridge.Run(ctx)
		close(done)
	}()
	waitFor(t, "initial publish", func() bool { return len(client.onTopic("home/tv/state")) == 1 })
	return func() {
		cancel()
		<-done
	}
}

func authorizedSnapshot(position int64) core.Snapshot {
	return core.Snapshot{
		State:      core.StateAuthorized,
		Role:       core.RoleAdmin,
		Connection: core.ConnectionSession{Authorized: true, IsAdmin: true, Connected: true},
		Player:     pitv.PlayerState{Position: &position},
	}
}

func TestBridgePublishesRetainedStateOnChange(t *testing.T) {
	client := &fakeMQTTClient{}
	source := &fakeSource{snap: authorizedSnapshot(10)}
	stop := startBridge(t, client, source)
	defer stop()

	state := client.onTopic("home/tv/state")[0]
	if !state.Retained || !strings.Contains(string(state.Payload), `"position":10`) {
		t.Fatalf("unexpected state message %+v", state)
	}
	conn := client.onTopic("home/tv/connection")
	if len(conn) != 1 || !conn[0].Retained {
		t.Fatalf("expected retained connection message, got %+v", conn)
	}
	var payload ConnectionPayload
	if err := json.Unmarshal(conn[0].Payload, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !payload.Online || payload.Role != core.RoleAdmin {
		t.Fatalf("unexpected connection payload %+v", payload)
	}

	// Same player state again: nothing new on the state topic.
	source.update(authorizedSnapshot(10))
	source.update(authorizedSnapshot(20))
	waitFor(t, "second state publish", func() bool { return len(client.onTopic("home/tv/state")) == 2 })
	if got := client.onTopic("home/tv/connection"); len(got) != 1 {
		t.Fatalf("unchanged connection republished: %d", len(got))
	}
}

func TestBridgePublishesNewAlertsOnce(t *testing.T) {
	client := &fakeMQTTClient{}
	source := &fakeSource{snap: authorizedSnapshot(0)}
	stop := startBridge(t, client, source)
	defer stop()

	snap := authorizedSnapshot(0)
	snap.Alerts = []pitv.Alert{{ID: 1, Message: "KEY_OK pressed", Level: pitv.LevelInfo}}
	source.update(snap)
	waitFor(t, "alert publish", func() bool { return len(client.onTopic("home/tv/alert")) == 1 })

	snap.Alerts = append(snap.Alerts, pitv.Alert{ID: 2, Message: "saved", Level: pitv.LevelSuccess})
	source.update(snap)
	waitFor(t, "second alert", func() bool { return len(client.onTopic("home/tv/alert")) == 2 })

	alerts := client.onTopic("home/tv/alert")
	if alerts[0].Retained || !strings.Contains(string(alerts[1].Payload), "saved") {
		t.Fatalf("unexpected alerts %+v", alerts)
	}
}

func TestBridgeForwardsValidCommands(t *testing.T) {
	client := &fakeMQTTClient{}
	source := &fakeSource{snap: authorizedSnapshot(0)}
	stop := startBridge(t, client, source)
	defer stop()

	if !client.emit("home/tv/cmd", []byte(`{"seek": 30}`)) {
		t.Fatalf("bridge not subscribed to cmd topic")
	}
	client.emit("home/tv/cmd", []byte(`{"seek": 30, "play": "x"}`))
	client.emit("home/tv/cmd", []byte(`not json`))

	source.err = core.ErrNotAuthorized
	client.emit("home/tv/cmd", []byte(`{"playPause": true}`))

	cmds := source.commands()
	if len(cmds) != 1 || cmds[0].Name != pitv.CmdSeek || cmds[0].Value != int64(30) {
		t.Fatalf("unexpected forwarded commands %+v", cmds)
	}
}

func TestOfflinePayload(t *testing.T) {
	var payload ConnectionPayload
	if err := json.Unmarshal(OfflinePayload(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Online {
		t.Fatalf("offline payload reports online")
	}
}

package mqtt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mikey-austin/pitv/internal/core"
	"github.com/mikey-austin/pitv/pkg/pitv"
)

type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Subscribe(topic string, qos byte, handler paho.MessageHandler) error
	Unsubscribe(topic string) error
}

// Source is the client state the bridge mirrors.
type Source interface {
	Snapshot() core.Snapshot
	Subscribe(fn func(core.Snapshot)) func()
	SendCommand(cmd pitv.Command) error
}

// Topics under a base.
func TopicState(base string) string      { return base + "/state" }
func TopicConnection(base string) string { return base + "/connection" }
func TopicAlert(base string) string      { return base + "/alert" }
func TopicCommand(base string) string    { return base + "/cmd" }

// ConnectionPayload is published retained on the connection topic.
type ConnectionPayload struct {
	Online     bool                   `json:"online"`
	State      core.AuthState         `json:"state"`
	Role       core.Role              `json:"role"`
	Status     core.Status            `json:"status"`
	Connection core.ConnectionSession `json:"connection"`
}

// OfflinePayload is the retained connection payload used as the broker will.
func OfflinePayload() []byte {
	payload, _ := json.Marshal(ConnectionPayload{State: core.StateDisconnected, Status: core.StatusConnecting})
	return payload
}

// Bridge mirrors client snapshots to MQTT and forwards commands from it.
type Bridge struct {
	log    *zap.Logger
	client mqttClient
	base   string
	source Source

	lastState []byte
	lastConn  []byte
	lastAlert int64
}

// NewBridge creates a bridge publishing under base.
func NewBridge(log *zap.Logger, client mqttClient, base string, source Source) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{log: log, client: client, base: base, source: source}
}

// Run publishes until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	cmdTopic := TopicCommand(b.base)
	handler := func(_ paho.Client, msg paho.Message) { b.handleCommand(msg.Payload()) }
	if err := b.client.Subscribe(cmdTopic, 1, handler); err != nil {
		return fmt.Errorf("subscribe cmd: %w", err)
	}
	defer b.client.Unsubscribe(cmdTopic)

	// Only the newest snapshot matters; older ones are dropped.
	updates := make(chan core.Snapshot, 1)
	var pushMu sync.Mutex
	unsubscribe := b.source.Subscribe(func(snap core.Snapshot) {
		pushMu.Lock()
		defer pushMu.Unlock()
		select {
		case <-updates:
		default:
		}
		updates <- snap
	})
	defer unsubscribe()

	b.log.Info("mqtt bridge started", zap.String("topic_base", b.base))
	b.publish(b.source.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-updates:
			b.publish(snap)
		}
	}
}

func (b *Bridge) publish(snap core.Snapshot) {
	if payload, err := json.Marshal(snap.Player); err != nil {
		b.log.Warn("encode state failed", zap.Error(err))
	} else if !bytes.Equal(payload, b.lastState) {
		if err := b.client.Publish(TopicState(b.base), 1, true, payload); err != nil {
			b.log.Warn("publish state failed", zap.Error(err))
		} else {
			b.lastState = payload
		}
	}

	conn := ConnectionPayload{
		Online:     snap.State == core.StateAuthorized,
		State:      snap.State,
		Role:       snap.Role,
		Status:     snap.Status,
		Connection: snap.Connection,
	}
	if payload, err := json.Marshal(conn); err != nil {
		b.log.Warn("encode connection failed", zap.Error(err))
	} else if !bytes.Equal(payload, b.lastConn) {
		if err := b.client.Publish(TopicConnection(b.base), 1, true, payload); err != nil {
			b.log.Warn("publish connection failed", zap.Error(err))
		} else {
			b.lastConn = payload
		}
	}

	for _, alert := range snap.Alerts {
		if alert.ID <= b.lastAlert {
			continue
		}
		b.lastAlert = alert.ID
		payload, err := json.Marshal(alert)
		if err != nil {
			continue
		}
		if err := b.client.Publish(TopicAlert(b.base), 1, false, payload); err != nil {
			b.log.Warn("publish alert failed", zap.Int64("id", alert.ID), zap.Error(err))
		}
	}
}

func (b *Bridge) handleCommand(payload []byte) {
	cmd, err := pitv.ParseCommand(payload)
	if err != nil {
		b.log.Warn("invalid command", zap.Error(err), zap.String("payload", truncatePayload(payload)))
		return
	}
	if err := b.source.SendCommand(cmd); err != nil {
		if errors.Is(err, core.ErrNotAuthorized) {
			b.log.Info("command dropped while not authorized", zap.String("command", cmd.Name))
			return
		}
		b.log.Warn("command failed", zap.String("command", cmd.Name), zap.Error(err))
		return
	}
	b.log.Debug("command forwarded", zap.String("command", cmd.Name))
}

package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Options configures the MQTT client.
type Options struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	TLSCA     string
	TLSCert   string
	TLSKey    string
	Timeout   time.Duration
	// WillTopic receives WillPayload (retained) if the client drops off the broker.
	WillTopic   string
	WillPayload []byte
	Logger      *zap.Logger
}

// Client wraps a paho connection. Subscriptions are replayed after every
// reconnect since the broker forgets them with a clean session.
type Client struct {
	client paho.Client
	log    *zap.Logger

	mu   sync.Mutex
	subs map[string]subscription
}

type subscription struct {
	qos     byte
	handler paho.MessageHandler
}

type subscriber interface {
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// NewClient creates and connects an MQTT client.
func NewClient(opts Options) (*Client, error) {
	if opts.BrokerURL == "" {
		return nil, errors.New("mqtt broker is required")
	}
	if opts.Timeout == 0 {
		opts.Timeout = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	log := opts.Logger
	c := &Client{log: log, subs: map[string]subscription{}}

	clientOpts := paho.NewClientOptions().AddBroker(opts.BrokerURL)
	clientOpts.SetClientID(opts.ClientID)
	clientOpts.SetConnectTimeout(opts.Timeout)
	clientOpts.SetAutoReconnect(true)
	clientOpts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Warn("mqtt connection lost", zap.Error(err))
	})
	clientOpts.SetOnConnectHandler(func(client paho.Client) {
		c.resubscribe(client)
	})
	if opts.WillTopic != "" {
		clientOpts.SetBinaryWill(opts.WillTopic, opts.WillPayload, 1, true)
	}

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
		clientOpts.SetPassword(opts.Password)
	}

	tlsConfig, err := buildTLSConfig(opts.TLSCA, opts.TLSCert, opts.TLSKey)
	if err != nil {
		return nil, err
	}
	if tlsConfig != nil {
		clientOpts.SetTLSConfig(tlsConfig)
	}

	c.client = paho.NewClient(clientOpts)
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return c, nil
}

// Publish publishes a message and waits for the broker.
func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	c.log.Debug("mqtt publish", zap.String("topic", topic), zap.Int("bytes", len(payload)), zap.String("payload", truncatePayload(payload)))
	token := c.client.Publish(topic, qos, retained, payload)
	token.Wait()
	return token.Error()
}

// Subscribe subscribes to a topic and keeps the subscription across reconnects.
func (c *Client) Subscribe(topic string, qos byte, handler paho.MessageHandler) error {
	c.log.Debug("mqtt subscribe", zap.String("topic", topic))
	c.remember(topic, qos, handler)
	token := c.client.Subscribe(topic, qos, handler)
	token.Wait()
	if err := token.Error(); err != nil {
		c.forget(topic)
		return err
	}
	return nil
}

// Unsubscribe unsubscribes from a topic.
func (c *Client) Unsubscribe(topic string) error {
	c.forget(topic)
	token := c.client.Unsubscribe(topic)
	token.Wait()
	return token.Error()
}

func (c *Client) remember(topic string, qos byte, handler paho.MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[topic] = subscription{qos: qos, handler: handler}
}

func (c *Client) forget(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs, topic)
}

func (c *Client) resubscribe(client subscriber) {
	c.mu.Lock()
	subs := make(map[string]subscription, len(c.subs))
	for topic, sub := range c.subs {
		subs[topic] = sub
	}
	c.mu.Unlock()

	for topic, sub := range subs {
		token := client.Subscribe(topic, sub.qos, sub.handler)
		token.Wait()
		if err := token.Error(); err != nil {
			c.log.Warn("mqtt resubscribe failed", zap.String("topic", topic), zap.Error(err))
			continue
		}
		c.log.Debug("mqtt resubscribed", zap.String("topic", topic))
	}
}

// Close disconnects, allowing quiesce ms for in-flight work.
func (c *Client) Close(quiesce uint) {
	c.client.Disconnect(quiesce)
}

func truncatePayload(payload []byte) string {
	const max = 2048
	if len(payload) <= max {
		return string(payload)
	}
	return string(payload[:max]) + "..."
}

func buildTLSConfig(caPath, certPath, keyPath string) (*tls.Config, error) {
	if caPath == "" && certPath == "" && keyPath == "" {
		return nil, nil
	}

	config := &tls.Config{}
	if caPath != "" {
		pem, err := os.ReadFile(caPath)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.New("failed to parse CA bundle")
		}
		config.RootCAs = pool
	}

	if certPath != "" || keyPath != "" {
		if certPath == "" || keyPath == "" {
			return nil, errors.New("both tls cert and key are required")
		}
		cert, err := tls.LoadX509KeyPair(certPath, keyPath)
		if err != nil {
			return nil, err
		}
		config.Certificates = []tls.Certificate{cert}
	}

	return config, nil
}

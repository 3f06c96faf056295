package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mikey-austin/pitv/internal/ports"
)

// ErrNotConnected is returned by Send while no connection is open.
var ErrNotConnected = errors.New("not connected")

// Options configures the websocket transport.
type Options struct {
	URL              string
	HandshakeTimeout time.Duration
	// Reconnect delays grow from InitialInterval by Multiplier up to MaxInterval.
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
	RandomizationFactor float64
	// PingInterval enables keepalive pings. Zero disables them.
	PingInterval time.Duration
	Header       http.Header
}

// Client is a reconnecting websocket transport. It implements ports.Transport
// and reports lifecycle events to a ports.TransportHandler.
type Client struct {
	log    *zap.Logger
	opts   Options
	dialer websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

// New creates a transport for opts.URL. Nothing is dialed until Run.
func New(log *zap.Logger, opts Options) (*Client, error) {
	if opts.URL == "" {
		return nil, errors.New("url is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = time.Second
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = 30 * time.Second
	}
	if opts.Multiplier < 1 {
		opts.Multiplier = 2
	}
	if opts.RandomizationFactor < 0 || opts.RandomizationFactor >= 1 {
		opts.RandomizationFactor = backoff.DefaultRandomizationFactor
	}
	return &Client{
		log:    log,
		opts:   opts,
		dialer: websocket.Dialer{HandshakeTimeout: opts.HandshakeTimeout},
	}, nil
}

// Send writes one text frame.
func (c *Client) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Connected reports whether a connection is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Run dials, serves and redials until ctx is done. Every failed dial calls
// OnError, every opened connection calls OnOpen, and every lost connection
// calls OnClose or OnError. Cancelling ctx closes the connection without
// further callbacks.
func (c *Client) Run(ctx context.Context, handler ports.TransportHandler) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.InitialInterval
	b.MaxInterval = c.opts.MaxInterval
	b.Multiplier = c.opts.Multiplier
	b.RandomizationFactor = c.opts.RandomizationFactor
	b.Reset()

	for {
		log := c.log.With(zap.String("conn_id", uuid.NewString()), zap.String("url", c.opts.URL))
		conn, err := c.dial(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			log.Warn("websocket dial failed", zap.Error(err))
			handler.OnError(err)
		} else {
			b.Reset()
			log.Info("websocket connected")
			err = c.serve(ctx, conn, handler, log)
			if ctx.Err() != nil {
				return nil
			}
			if isClose(err) {
				log.Info("websocket closed", zap.Error(err))
				handler.OnClose(err)
			} else {
				log.Warn("websocket failed", zap.Error(err))
				handler.OnError(err)
			}
		}

		delay := b.NextBackOff()
		log.Debug("reconnecting", zap.Duration("delay", delay))
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.opts.URL, c.opts.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

// serve owns conn until it fails or ctx is done.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn, handler ports.TransportHandler, log *zap.Logger) error {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	stop := make(chan struct{})
	defer func() {
		close(stop)
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		_ = conn.Close()
	}()

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-stop:
		}
	}()

	if c.opts.PingInterval > 0 {
		deadline := func() time.Time { return time.Now().Add(2 * c.opts.PingInterval) }
		_ = conn.SetReadDeadline(deadline())
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(deadline())
		})
		go c.pingLoop(conn, stop, log)
	}

	handler.OnOpen()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if c.opts.PingInterval > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(2 * c.opts.PingInterval))
		}
		if kind != websocket.TextMessage {
			log.Debug("ignoring non-text frame", zap.Int("type", kind))
			continue
		}
		handler.OnMessage(string(data))
	}
}

func (c *Client) pingLoop(conn *websocket.Conn, stop <-chan struct{}, log *zap.Logger) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.PingInterval)); err != nil {
				log.Debug("ping failed", zap.Error(err))
				_ = conn.Close()
				return
			}
		}
	}
}

func isClose(err error) bool {
	var closeErr *websocket.CloseError
	return errors.As(err, &closeErr)
}

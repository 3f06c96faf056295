package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/mikey-austin/pitv/internal/adapters/clock"
	"github.com/mikey-austin/pitv/internal/adapters/transport"
	"github.com/mikey-austin/pitv/internal/core"
	"github.com/mikey-austin/pitv/pkg/pitv"
)

const maxPasswordPrompts = 3

// session is one live connection driven in the background.
type session struct {
	client      *core.Client
	updates     chan struct{}
	unsubscribe func()
	cancel      context.CancelFunc
	done        chan struct{}
	err         error
}

func (a *app) connect(ctx context.Context) (*session, error) {
	tr, err := transport.New(a.log.With(zap.String("component", "transport")), transport.Options{
		URL:              a.endpoint,
		HandshakeTimeout: a.timeout,
		InitialInterval:  a.cfg.Reconnect.InitialInterval(),
		MaxInterval:      a.cfg.Reconnect.MaxInterval(),
		PingInterval:     a.cfg.Reconnect.PingInterval(),
	})
	if err != nil {
		return nil, err
	}
	client, err := core.NewClient(core.Options{
		Logger:      a.log,
		Transport:   tr,
		Clock:       clock.Clock{},
		Preferences: a.prefs,
		Endpoint:    a.endpoint,
	})
	if err != nil {
		return nil, err
	}
	if a.boot != (pitv.Bootstrap{}) {
		client.Bootstrap(a.boot)
	}

	s := &session{
		client:  client,
		updates: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	s.unsubscribe = client.Subscribe(func(core.Snapshot) {
		select {
		case s.updates <- struct{}{}:
		default:
		}
	})

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go func() {
		s.err = tr.Run(runCtx, client)
		close(s.done)
	}()
	return s, nil
}

func (s *session) close() {
	s.cancel()
	<-s.done
	s.unsubscribe()
}

// wait blocks until the transport stops or ctx is done.
func (s *session) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case <-s.done:
		return s.err
	}
}

// waitFor blocks until pred holds for the current snapshot.
func (s *session) waitFor(ctx context.Context, what string, pred func(core.Snapshot) bool) (core.Snapshot, error) {
	for {
		snap := s.client.Snapshot()
		if pred(snap) {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return snap, core.WrapError(core.ExitTimeout, fmt.Sprintf("timed out waiting for %s (%s)", what, snap.Status.Description), ctx.Err())
			}
			return snap, ctx.Err()
		case <-s.updates:
		}
	}
}

// ready waits for an authorized session with player state, prompting for a
// credential on a terminal when the server asks for one.
func (a *app) ready(ctx context.Context, s *session) (core.Snapshot, error) {
	prompts := 0
	for {
		waitCtx, cancel := context.WithTimeout(ctx, a.timeout)
		snap, err := s.waitFor(waitCtx, "player", func(snap core.Snapshot) bool {
			return snap.State == core.StateAwaitingCredential ||
				(snap.State == core.StateAuthorized && snap.Connection.Connected)
		})
		cancel()
		if err != nil {
			return snap, err
		}
		if snap.State == core.StateAuthorized {
			a.powerOnWarning(snap)
			return snap, nil
		}

		if !a.interactive() || prompts >= maxPasswordPrompts {
			if snap.Connection.BadPassword {
				return snap, core.WrapError(core.ExitAuth, "credential rejected", core.ErrNotAuthorized)
			}
			return snap, core.WrapError(core.ExitAuth, "credential required (use --password or pitv login)", core.ErrNotAuthorized)
		}
		if snap.Connection.BadPassword && prompts > 0 {
			pterm.Error.Println("Wrong password")
		}
		credential, err := promptPassword()
		if err != nil {
			return snap, err
		}
		prompts++
		err = s.client.SubmitCredential(credential)
		switch {
		case err == nil, errors.Is(err, core.ErrEmptyCredential), errors.Is(err, core.ErrInvalidState):
		default:
			a.log.Debug("credential submit failed", zap.Error(err))
		}
	}
}

func (a *app) powerOnWarning(snap core.Snapshot) {
	if snap.Preferences.ShowPowerOnWarning && !a.json {
		pterm.Warning.Println("Make sure the TV is powered on (pitv warning dismiss to hide this)")
	}
}

func (a *app) interactive() bool {
	return !a.json && term.IsTerminal(int(os.Stdin.Fd()))
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}

// withReady connects, waits for the player and runs fn.
func (a *app) withReady(ctx context.Context, fn func(s *session, snap core.Snapshot) error) error {
	s, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer s.close()
	snap, err := a.ready(ctx, s)
	if err != nil {
		return err
	}
	return fn(s, snap)
}

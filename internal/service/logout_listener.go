package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/target/identity-session/internal/domain/events"
)

// DefaultSignOutTimeout bounds the revocation call made for a forced logout.
const DefaultSignOutTimeout = 10 * time.Second

// SessionTerminator is the part of SessionService the logout listener drives.
type SessionTerminator interface {
	SignOut(ctx context.Context, refreshCredential string) bool
	Logout()
}

// LogoutListenerOptions groups dependencies for LogoutListener.
type LogoutListenerOptions struct {
	Bus     events.Subscriber // Required: process-wide signal bus
	Session SessionTerminator // Required: session to end
	Timeout time.Duration     // Optional: per-signal sign-out timeout
	Logger  *slog.Logger      // Optional: structured logger
}

// LogoutListener ends the session whenever events.Logout is published.
// Each signal runs a full sign-out and falls back to a local logout when revocation fails,
// so a forced logout never leaves the session authenticated.
type LogoutListener struct {
	bus     events.Subscriber
	session SessionTerminator
	timeout time.Duration
	logger  *slog.Logger

	mu    sync.Mutex
	ctx   context.Context
	unsub func()
	done  chan struct{}
}

// NewLogoutListener constructs a stopped listener.
func NewLogoutListener(opts LogoutListenerOptions) (*LogoutListener, error) {
	if opts.Bus == nil {
		return nil, errors.New("event bus is required")
	}
	if opts.Session == nil {
		return nil, errors.New("session is required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultSignOutTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &LogoutListener{
		bus:     opts.Bus,
		session: opts.Session,
		timeout: timeout,
		logger:  logger.With("component", "logout_listener"),
	}, nil
}

// Start installs the subscription. Calling Start on a running listener is a no-op.
// ctx scopes the sign-out calls; cancelling it stops the listener and releases the
// subscription, after which Start may be called again.
func (l *LogoutListener) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.unsub != nil {
		if l.ctx.Err() == nil {
			return
		}
		// The previous loop is exiting on its own; take the subscription from it.
		l.unsub()
		l.unsub, l.done = nil, nil
	}

	unsub, ch := l.bus.Subscribe(events.Logout)
	done := make(chan struct{})
	l.ctx = ctx
	l.unsub = unsub
	l.done = done

	go l.loop(ctx, ch, done)
	l.logger.Debug("logout listener started")
}

func (l *LogoutListener) loop(ctx context.Context, ch <-chan struct{}, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			l.release(done)
			return
		case _, ok := <-ch:
			if !ok {
				l.release(done)
				return
			}
			l.handle(ctx)
		}
	}
}

// release drops the subscription owned by the exiting loop. It does nothing when
// Stop has already claimed it.
func (l *LogoutListener) release(done chan struct{}) {
	l.mu.Lock()
	if l.done != done {
		l.mu.Unlock()
		return
	}
	unsub := l.unsub
	l.unsub, l.done = nil, nil
	l.mu.Unlock()

	unsub()
	l.logger.Debug("logout listener released after context end")
}

func (l *LogoutListener) handle(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, l.timeout)
	defer cancel()

	if l.session.SignOut(ctx, "") {
		l.logger.Info("forced logout completed")
		return
	}
	l.logger.Warn("forced logout: revocation failed, clearing session locally")
	l.session.Logout()
}

// Stop removes the subscription and waits for an in-flight sign-out to finish.
// A stopped listener can be started again.
func (l *LogoutListener) Stop() {
	l.mu.Lock()
	unsub, done := l.unsub, l.done
	l.unsub, l.done = nil, nil
	l.mu.Unlock()

	if unsub == nil {
		return
	}
	unsub()
	<-done
	l.logger.Debug("logout listener stopped")
}

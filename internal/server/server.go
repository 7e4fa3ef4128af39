// Package server owns the TCP side of hubbub: the accept loop, the
// per-connection handshake and read/write goroutines, and push delivery.
package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hubbub/internal/dispatch"
	"hubbub/internal/protocol/frame"
	"hubbub/internal/session"
	"hubbub/internal/store"
)

// Config tunes the TCP server.
type Config struct {
	// Addr is the listen address, host:port.
	Addr string
	// MaxPayload caps reassembled transaction payloads in bytes.
	MaxPayload int
	// WriteTimeout bounds a single outbound frame write. Zero disables it.
	WriteTimeout time.Duration
	// PushQueueDepth caps pending server pushes per connection.
	PushQueueDepth int
}

func (c Config) withDefaults() Config {
	if c.MaxPayload <= 0 {
		c.MaxPayload = frame.DefaultMaxPayload
	}
	if c.PushQueueDepth <= 0 {
		c.PushQueueDepth = 64
	}
	return c
}

// Server accepts protocol connections and runs them to completion.
type Server struct {
	cfg        Config
	dispatcher *dispatch.Dispatcher
	sessions   *session.Registry
	agreement  *store.Agreement
	pushes     *PushRegistry
	log        zerolog.Logger

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

// New builds a server around a ready dispatcher.
func New(cfg Config, dispatcher *dispatch.Dispatcher, sessions *session.Registry, agreement *store.Agreement, log zerolog.Logger) *Server {
	return &Server{
		cfg:        cfg.withDefaults(),
		dispatcher: dispatcher,
		sessions:   sessions,
		agreement:  agreement,
		pushes:     NewPushRegistry(),
		log:        log.With().Str("component", "server").Logger(),
	}
}

// Sessions exposes the live session registry.
func (s *Server) Sessions() *session.Registry { return s.sessions }

// Addr returns the bound listen address, or "" before Serve.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Serve listens on the configured address and accepts connections until the
// context is cancelled, then waits for live connections to finish.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.log.Info().Str("addr", ln.Addr().String()).Msg("listening")

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	err = s.acceptLoop(ctx, ln)
	s.wg.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// acceptLoop accepts until the listener closes. Transient accept failures
// back off exponentially up to one second.
func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	const (
		minBackoff = 5 * time.Millisecond
		maxBackoff = time.Second
	)
	backoff := minBackoff
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				s.log.Warn().Err(err).Dur("backoff", backoff).Msg("accept failed, retrying")
				time.Sleep(backoff)
				if backoff *= 2; backoff > maxBackoff {
					backoff = maxBackoff
				}
				continue
			}
			return err
		}
		backoff = minBackoff
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

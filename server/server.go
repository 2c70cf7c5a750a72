package server

import (
	"context"
	"net"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/framegrace/winmux/mux"
)

// Server listens on a Unix domain socket and serves control clients.
type Server struct {
	addr     string
	engine   *mux.Engine
	hub      *Hub
	logger   *zap.Logger
	listener net.Listener
	quit     chan struct{}
	wg       sync.WaitGroup
}

func NewServer(addr string, engine *mux.Engine, hub *Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		addr:   addr,
		engine: engine,
		hub:    hub,
		logger: logger,
		quit:   make(chan struct{}),
	}
}

// Hub returns the notifier to wire into the engine.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) Start(ctx context.Context) error {
	if err := os.RemoveAll(s.addr); err != nil {
		return err
	}
	l, err := net.Listen("unix", s.addr)
	if err != nil {
		return err
	}
	s.listener = l
	s.logger.Info("control socket listening", zap.String("addr", s.addr))
	s.wg.Add(1)
	go s.acceptLoop(ctx)
	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
			}
			s.logger.Warn("accept failed", zap.Error(err))
			continue
		}

		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			defer c.Close()

			// Shutdown closes the socket to unblock the read loop.
			connDone := make(chan struct{})
			defer close(connDone)
			go func() {
				select {
				case <-s.quit:
					_ = c.Close()
				case <-connDone:
				}
			}()

			client, err := handleHandshake(c)
			if err != nil {
				s.logger.Debug("handshake failed", zap.Error(err))
				return
			}
			q := s.hub.Register(client)
			defer s.hub.Unregister(client)
			// A hung client must not leave a session pinned attached.
			defer func() {
				dctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
				defer cancel()
				_ = s.engine.Detach(dctx, client)
			}()

			if err := newConnection(c, client, s.engine, q, s.logger).serve(ctx); err != nil {
				s.logger.Debug("connection closed", zap.String("client", client.String()), zap.Error(err))
			}
		}(conn)
	}
}

func (s *Server) Stop(ctx context.Context) error {
	close(s.quit)
	if s.listener != nil {
		_ = s.listener.Close()
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

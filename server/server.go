package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/moodclient/owo/config"
	"github.com/moodclient/owo/store"
	"github.com/moodclient/owo/telnet"
	"github.com/moodclient/owo/utils"
)

// Runner takes over a connection once its terminal has been set up
type Runner interface {
	RunConnection(conn *telnet.Connection)
}

// ResultSource lists finished games for the connection banner
type ResultSource interface {
	Recent(n int) ([]store.Result, error)
}

// Server accepts telnet connections, puts each remote terminal into no-echo
// single-character mode and hands it to the Runner on its own goroutine.
type Server struct {
	Session config.SessionConfig
	Runner  Runner
	Logger  *slog.Logger
	// Results may be nil, in which case no banner is shown
	Results ResultSource

	mu      sync.Mutex
	conns   map[net.Conn]struct{}
	closing bool
	wg      sync.WaitGroup
}

func New(session config.SessionConfig, runner Runner, results ResultSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		Session: session,
		Runner:  runner,
		Logger:  logger,
		Results: results,
	}
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("error listening on %s: %w", addr, err)
	}

	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln until ctx is cancelled. Cancelling closes the
// listener and every open connection, and Serve returns once their goroutines finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.Logger.Info("listening", slog.String("addr", ln.Addr().String()))

	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
		s.closeAll()
	})
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				s.Logger.Warn("error in accept", slog.Any("error", err))
				continue
			}

			_ = ln.Close()
			s.closeAll()
			s.wg.Wait()
			return fmt.Errorf("error accepting connections: %w", err)
		}

		if !s.track(conn) {
			_ = conn.Close()
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)

			s.handle(conn)
		}()
	}
}

// track records an open connection, refusing it if the server is shutting down
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing {
		return false
	}

	if s.conns == nil {
		s.conns = make(map[net.Conn]struct{})
	}

	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conns, conn)
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closing = true
	for conn := range s.conns {
		_ = conn.Close()
	}
}

func (s *Server) handle(netConn net.Conn) {
	logger := s.Logger.With(slog.String("remote", netConn.RemoteAddr().String()))
	logger.Info("new client")

	conn := telnet.NewConnection(netConn, s.Session.ConnectionConfig(logger))
	defer conn.Close()

	if s.Session.DebugProtocol {
		debugConfig := utils.DefaultDebugLogConfig()
		debugConfig.InboundCommandLevel = slog.LevelInfo
		debugConfig.OutboundCommandLevel = slog.LevelInfo
		utils.NewDebugLog(conn, logger, debugConfig)
	}

	ok, err := s.Setup(conn)
	if err != nil || !ok {
		logger.Warn("cannot set up terminal", slog.Any("error", err))

		if !errors.Is(err, io.EOF) {
			if _, err := io.WriteString(conn, s.Session.RefusalMessage); err != nil {
				logger.Debug("could not send refusal", slog.Any("error", err))
			}
		}
		return
	}

	logger.Info("terminal ready", slog.String("capabilities", conn.Capabilities().String()))

	if err := s.writeBanner(conn); err != nil {
		logger.Warn("could not send banner", slog.Any("error", err))
		return
	}

	s.Runner.RunConnection(conn)
	logger.Info("client left")
}

// Setup negotiates the remote terminal. It reports false when the remote won't stop
// echoing, since the game can't be played that way. A refused window size or line mode
// is only logged.
func (s *Server) Setup(conn *telnet.Connection) (bool, error) {
	logger := conn.Logger()

	ok, err := conn.NegotiateWinsize()
	if err != nil {
		logger.Info("no winsize", slog.Any("error", err))
	} else if !ok {
		logger.Info("no winsize")
	}

	if errors.Is(err, io.EOF) {
		return false, err
	}

	ok, err = conn.NegotiateCBreak()
	if err != nil {
		return false, err
	}

	if !ok {
		logger.Info("remote keeps line mode")
	}

	ok, err = conn.NegotiateNoEcho()
	if err != nil || !ok {
		return false, err
	}

	if s.Session.NegotiateANSI {
		ok, err := conn.NegotiateANSI()
		if err != nil {
			logger.Info("no terminal type", slog.Any("error", err))
		} else if !ok {
			logger.Info("terminal is not ANSI")
		}

		if errors.Is(err, io.EOF) {
			return false, err
		}
	}

	conn.SetTimeout(s.Session.PollTimeout.Duration)
	return true, nil
}

func (s *Server) writeBanner(w io.Writer) error {
	if s.Results == nil || s.Session.Banner <= 0 {
		return nil
	}

	results, err := s.Results.Recent(s.Session.Banner)
	if err != nil {
		s.Logger.Warn("could not list recent games", slog.Any("error", err))
		return nil
	}

	_, err = io.WriteString(w, FormatBanner(results))
	return err
}

// FormatBanner describes recent games, newest first, one per line
func FormatBanner(results []store.Result) string {
	if len(results) == 0 {
		return ""
	}

	banner := "recent games:\r\n"
	for _, result := range results {
		banner += fmt.Sprintf("  %s  %-9s %d turns, %d players\r\n",
			result.Finished.UTC().Format("2006-01-02 15:04"), result.Outcome, result.Turns, result.Players)
	}

	return banner
}

package main

import (
	"bufio"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nickyhof/mydb"
)

// Server is a TCP SQL server in front of one mydb database. Statements from
// all connections share the database and run one at a time.
type Server struct {
	listener   net.Listener
	db         *mydb.DB
	authConfig *AuthConfig
	tlsEnabled bool
	log        *zap.Logger

	mu    sync.Mutex
	conns map[net.Conn]struct{}

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewServer creates a new SQL server over db.
func NewServer(db *mydb.DB, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		db:    db,
		log:   log,
		conns: make(map[net.Conn]struct{}),
		done:  make(chan struct{}),
	}
}

// NewServerWithAuth creates a server that requires AUTH before queries when
// authConfig is enabled.
func NewServerWithAuth(db *mydb.DB, authConfig *AuthConfig, log *zap.Logger) *Server {
	s := NewServer(db, log)
	s.authConfig = authConfig
	return s
}

// Start begins listening for connections on the specified address.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener

	s.log.Info("SQL server listening", zap.String("addr", listener.Addr().String()))

	go s.acceptLoop()
	return nil
}

// StartTLS is Start with TLS using the given certificate and key files.
func (s *Server) StartTLS(addr, certFile, keyFile string) error {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	listener, err := tls.Listen("tcp", addr, &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	})
	if err != nil {
		return fmt.Errorf("failed to start TLS server: %w", err)
	}
	s.listener = listener
	s.tlsEnabled = true

	s.log.Info("SQL server listening", zap.String("addr", listener.Addr().String()), zap.Bool("tls", true))

	go s.acceptLoop()
	return nil
}

// Stop closes the listener and all open connections and waits for their
// handlers to finish. The database itself is left open. Stop may be called
// more than once.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		close(s.done)
		s.mu.Unlock()

		if s.listener != nil {
			s.listener.Close()
		}
	})

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// TLSEnabled reports whether the server was started with StartTLS.
func (s *Server) TLSEnabled() bool {
	return s.tlsEnabled
}

func (s *Server) authRequired() bool {
	return s.authConfig != nil && s.authConfig.Enabled
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				s.log.Warn("accept error", zap.Error(err))
				continue
			}
		}

		// Registered under the lock so Stop either sees the connection or
		// makes us drop it.
		s.mu.Lock()
		select {
		case <-s.done:
			s.mu.Unlock()
			conn.Close()
			return
		default:
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	state := &ConnectionState{id: uuid.NewString()}
	log := s.log.With(zap.String("conn", state.id), zap.String("remote", conn.RemoteAddr().String()))
	log.Info("client connected")

	reader := bufio.NewReader(conn)

	for {
		select {
		case <-s.done:
			return
		default:
		}

		// One query per line
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				log.Warn("read error", zap.Error(err))
			}
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)
		if lower == "quit" || lower == "exit" {
			log.Info("client disconnected")
			return
		}

		var response Response
		switch {
		case isAuthCommand(line):
			response = s.handleAuth(line, state)
			if response.Success {
				log.Info("client authenticated", zap.Stringer("identity", state.identity))
			}
		case s.authRequired() && !state.IsAuthenticated():
			response = ErrorResponse("", errors.New("authentication required: send AUTH JWT <token>"))
		default:
			response = s.executeLine(line)
		}

		data, err := EncodeResponse(response)
		if err != nil {
			log.Error("failed to encode response", zap.Error(err))
			continue
		}

		if _, err := conn.Write(data); err != nil {
			log.Warn("write error", zap.Error(err))
			return
		}
	}
}

// executeLine runs a raw query line or a JSON Request.
func (s *Server) executeLine(line string) Response {
	query := line
	if strings.HasPrefix(line, "{") {
		req, err := DecodeRequest([]byte(line))
		if err != nil {
			return ErrorResponse("", fmt.Errorf("invalid request: %w", err))
		}
		query = req.Query
	}
	return s.executeQuery(query)
}

func (s *Server) executeQuery(query string) Response {
	result, err := s.db.Execute(query)
	if result == nil {
		return ErrorResponse("", err)
	}
	return NewResultResponse(result, err)
}

package transport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/netutil"
)

// Server обслуживает киоск по одному соединению за раз
type Server struct {
	srv      *http.Server
	listener net.Listener
}

// Listen открывает порт и ограничивает его одним активным соединением
func Listen(addr string, handler http.Handler) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	srv.SetKeepAlivesEnabled(false)

	return &Server{srv: srv, listener: netutil.LimitListener(ln, 1)}, nil
}

// Addr возвращает фактический адрес прослушивания
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve блокируется до Shutdown
func (s *Server) Serve() error {
	log.Printf("[INFO] Kiosk HTTP server listening on %s", s.listener.Addr())
	if err := s.srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("kiosk HTTP server failed: %w", err)
	}
	return nil
}

// Shutdown дожидается завершения текущего ответа
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// CallbackServer receives a single OAuth authorization code on a loopback
// address. The first callback request resolves the result exactly once;
// later requests get a plain acknowledgement.
type CallbackServer struct {
	server   *http.Server
	listener net.Listener

	once sync.Once
	code chan string
	errc chan error
}

// NewCallbackServer starts listening on an ephemeral loopback port.
func NewCallbackServer() (*CallbackServer, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen on loopback: %w", err)
	}

	s := &CallbackServer{
		listener: listener,
		code:     make(chan string, 1),
		errc:     make(chan error, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", s.handleCallback)
	s.server = &http.Server{Handler: mux}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.resolveErr(fmt.Errorf("callback server failed: %w", err))
		}
	}()

	return s, nil
}

// RedirectURL returns the loopback redirect URL to register with the
// authorization request.
func (s *CallbackServer) RedirectURL() string {
	return fmt.Sprintf("http://%s/callback", s.listener.Addr().String())
}

// WaitForCode blocks until the authorization code arrives, the callback
// fails, or ctx expires. The server is shut down before returning.
func (s *CallbackServer) WaitForCode(ctx context.Context) (string, error) {
	defer s.shutdown()

	select {
	case code := <-s.code:
		return code, nil
	case err := <-s.errc:
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errCode := query.Get("error"); errCode != "" {
		s.resolveErr(fmt.Errorf("authorization denied: %s", errCode))
		http.Error(w, "authorization denied", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		s.resolveErr(fmt.Errorf("callback missing authorization code"))
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}

	s.resolveCode(code)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body>Authorized. You can close this tab.</body></html>")
}

func (s *CallbackServer) resolveCode(code string) {
	s.once.Do(func() { s.code <- code })
}

func (s *CallbackServer) resolveErr(err error) {
	s.once.Do(func() { s.errc <- err })
}

func (s *CallbackServer) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.server.Shutdown(ctx)
}

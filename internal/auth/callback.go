package auth

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// CallbackPath is the fixed path the authorization redirect lands on.
	CallbackPath = "/callback"

	// DefaultCallbackTimeout bounds the wait for the browser redirect.
	DefaultCallbackTimeout = 120 * time.Second
)

// CallbackResult is the single terminal value produced by the callback
// server: an authorization code or a failure.
type CallbackResult struct {
	Code string
	Err  error
}

// CallbackServer is a short-lived HTTP server on a loopback address that
// receives exactly one OAuth authorization redirect. It binds to an
// OS-assigned port and resolves a single CallbackResult; callers must always
// Close it, on every exit path.
type CallbackServer struct {
	listener      net.Listener
	server        *http.Server
	expectedState string
	resultChan    chan *CallbackResult
}

// StartCallbackServer binds a callback server to 127.0.0.1 on an OS-assigned
// port and starts serving. expectedState is the anti-CSRF state value the
// redirect must echo back.
func StartCallbackServer(expectedState string) (*CallbackServer, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, NewAuthenticationError(ErrServerStartFailed, err)
	}

	s := &CallbackServer{
		listener:      listener,
		expectedState: expectedState,
		resultChan:    make(chan *CallbackResult, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, s.handleCallback)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if errServe := s.server.Serve(listener); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			log.Debugf("OAuth callback server stopped: %v", errServe)
		}
	}()

	log.Debugf("OAuth callback server listening on %s", s.RedirectURI())
	return s, nil
}

// Port returns the OS-assigned port the server is listening on.
func (s *CallbackServer) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// RedirectURI returns the externally visible redirect URI for this server,
// always on host 127.0.0.1.
func (s *CallbackServer) RedirectURI() string {
	return fmt.Sprintf("http://127.0.0.1:%d%s", s.Port(), CallbackPath)
}

// WaitForCode blocks until the redirect arrives or the timeout elapses and
// returns the authorization code. The server must still be closed afterwards.
func (s *CallbackServer) WaitForCode(timeout time.Duration) (string, error) {
	select {
	case result := <-s.resultChan:
		if result.Err != nil {
			return "", result.Err
		}
		return result.Code, nil
	case <-time.After(timeout):
		return "", authErrorf(ErrCallbackTimeout,
			"Timed out waiting for browser login (waited %d seconds). Please try connecting again.", int(timeout.Seconds()))
	}
}

// Close releases the listening socket. Safe to call more than once.
func (s *CallbackServer) Close() {
	_ = s.server.Close()
}

// handleCallback validates the single redirect request. Validation order:
// provider error parameter, then state, then code. The first request decides
// the outcome; later requests find the result channel full and are dropped.
func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		errDesc := query.Get("error_description")
		if errDesc == "" {
			errDesc = "Unknown error"
		}
		s.serveFailure(w, fmt.Sprintf("%s: %s", errParam, errDesc))
		s.sendResult(&CallbackResult{Err: authErrorf(ErrCallbackFailed,
			"OAuth authorization failed: %s - %s", errParam, errDesc)})
		return
	}

	if state := query.Get("state"); state == "" || state != s.expectedState {
		s.serveFailure(w, "Invalid state parameter.")
		s.sendResult(&CallbackResult{Err: NewAuthenticationError(ErrInvalidState, nil)})
		return
	}

	code := query.Get("code")
	if code == "" {
		s.serveFailure(w, "No authorization code received.")
		s.sendResult(&CallbackResult{Err: NewAuthenticationError(ErrNoAuthorizationCode, nil)})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(loginSuccessHTML))
	s.sendResult(&CallbackResult{Code: code})
}

func (s *CallbackServer) serveFailure(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	_, _ = w.Write([]byte(loginFailureHTML("Login Failed", detail)))
}

// sendResult resolves the server's outcome. Only the first result is kept.
func (s *CallbackServer) sendResult(result *CallbackResult) {
	select {
	case s.resultChan <- result:
	default:
		log.Debug("OAuth callback result already resolved, dropping duplicate")
	}
}

package oauth2

import (
	"context"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"
)

// callbackTimeout bounds how long the interactive flow waits for the
// provider to redirect back.
const callbackTimeout = 5 * time.Minute

// portScanWindow is how many consecutive ports are tried from the
// configured base port before giving up.
const portScanWindow = 100

var callbackSuccessPage = template.Must(template.New("success").Parse(`<!DOCTYPE html>
<html>
<head><title>httpcraft</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h1>Authorization complete</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>
`))

var callbackErrorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html>
<head><title>httpcraft</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h1>Authorization failed</h1>
<p>{{.Error}}{{if .Description}}: {{.Description}}{{end}}</p>
</body>
</html>
`))

// callbackResult carries the query parameters of one authorization
// redirect.
type callbackResult struct {
	code           string
	state          string
	errCode        string
	errDescription string
}

// callbackServer is a short-lived local HTTP server that receives one
// authorization redirect and shuts down. The first redirect wins;
// repeats get a 400.
type callbackServer struct {
	path     string
	server   *http.Server
	listener net.Listener
	port     int
	resultCh chan *callbackResult
	errCh    chan error
	once     sync.Once
}

func newCallbackServer(path string) *callbackServer {
	if path == "" {
		path = defaultCallbackPath
	}
	return &callbackServer{
		path:     path,
		resultCh: make(chan *callbackResult, 1),
		errCh:    make(chan error, 1),
	}
}

// start listens on the first free port in [basePort, basePort+100) and
// returns the redirect URI to register with the provider.
func (s *callbackServer) start(basePort int) (string, error) {
	if basePort <= 0 {
		basePort = defaultCallbackPort
	}

	var listener net.Listener
	for port := basePort; port < basePort+portScanWindow; port++ {
		l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			continue
		}
		listener = l
		break
	}
	if listener == nil {
		return "", authErr("callback", "no free port between %d and %d for the callback server", basePort, basePort+portScanWindow-1)
	}
	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port

	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handle)
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			select {
			case s.errCh <- err:
			default:
			}
		}
	}()

	return fmt.Sprintf("http://localhost:%d%s", s.port, s.path), nil
}

// wait blocks until the redirect arrives, the server fails, the timeout
// elapses, or the context ends.
func (s *callbackServer) wait(ctx context.Context) (*callbackResult, error) {
	timer := time.NewTimer(callbackTimeout)
	defer timer.Stop()

	select {
	case result := <-s.resultCh:
		return result, nil
	case err := <-s.errCh:
		return nil, &AuthError{Op: "callback", Message: "callback server failed", Err: err}
	case <-timer.C:
		return nil, authErr("callback", "timed out after %s waiting for the authorization redirect", callbackTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *callbackServer) handle(w http.ResponseWriter, r *http.Request) {
	var first bool
	s.once.Do(func() {
		first = true
		s.deliver(w, r)
	})
	if !first {
		http.Error(w, "callback already processed", http.StatusBadRequest)
	}
}

// deliver records the redirect parameters and renders the response page.
// Runs exactly once, guarded by sync.Once.
func (s *callbackServer) deliver(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	result := &callbackResult{
		code:           query.Get("code"),
		state:          query.Get("state"),
		errCode:        query.Get("error"),
		errDescription: query.Get("error_description"),
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if result.errCode != "" {
		_ = callbackErrorPage.Execute(w, map[string]string{
			"Error":       result.errCode,
			"Description": result.errDescription,
		})
	} else {
		_ = callbackSuccessPage.Execute(w, nil)
	}

	select {
	case s.resultCh <- result:
	default:
	}
}

// stop shuts the server down. Safe to call more than once and before
// start.
func (s *callbackServer) stop() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

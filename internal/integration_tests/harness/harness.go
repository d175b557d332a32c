// Package harness runs the whole application against a temporary site for
// scenario tests.
package harness

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/ironrun/internal/app"
	"github.com/vk/ironrun/internal/testutil"
)

// ServerPlaceholder in a site file is replaced by the script server's URL.
const ServerPlaceholder = "{{server}}"

// Result holds the outcomes of a scenario run.
type Result struct {
	Console string
	Logs    string
	Summary *app.Summary
	Err     error
	Dir     string
}

// Lines returns the console output split into lines.
func (r *Result) Lines() []string {
	out := strings.TrimRight(r.Console, "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

// Run writes files into a temporary site and runs the application over it
// with a background context.
func Run(t *testing.T, files map[string]string, server *ScriptServer, mutate func(*app.Config)) *Result {
	t.Helper()
	return RunWithContext(context.Background(), t, files, server, mutate)
}

// RunWithContext is Run with a caller-provided context.
func RunWithContext(ctx context.Context, t *testing.T, files map[string]string, server *ScriptServer, mutate func(*app.Config)) *Result {
	t.Helper()

	if server != nil {
		for name, content := range files {
			files[name] = strings.ReplaceAll(content, ServerPlaceholder, server.URL)
		}
	}
	dir := testutil.WriteFiles(t, files)

	cfg := app.DefaultConfig()
	cfg.Paths = []string{dir}
	cfg.LogLevel = "debug"
	if mutate != nil {
		mutate(&cfg)
	}
	validated, err := app.NewConfig(cfg)
	require.NoError(t, err)

	console, logs := &testutil.SafeBuffer{}, &testutil.SafeBuffer{}
	summary, runErr := app.NewApp(console, logs, validated).Run(ctx)

	if os.Getenv("IRONRUN_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
	}

	return &Result{
		Console: console.String(),
		Logs:    logs.String(),
		Summary: summary,
		Err:     runErr,
		Dir:     dir,
	}
}

// ScriptServer serves remote IronScript files. A path can be gated so its
// response is held back until the gate is opened.
type ScriptServer struct {
	*httptest.Server

	mu    sync.Mutex
	files map[string]string
	gates    map[string]chan struct{}
	triggers map[string]string
	hits     map[string]int
}

// NewScriptServer starts a server for files (URL path -> content).
func NewScriptServer(t *testing.T, files map[string]string) *ScriptServer {
	t.Helper()
	s := &ScriptServer{
		files: files,
		gates:    make(map[string]chan struct{}),
		triggers: make(map[string]string),
		hits:     make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Gate holds back responses for path until Open(path) is called.
func (s *ScriptServer) Gate(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gates[path] = make(chan struct{})
}

// Open releases a gated path. Opening twice is a no-op.
func (s *ScriptServer) Open(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.gates[path]; ok {
		close(g)
		delete(s.gates, path)
	}
}

// OpenOn opens the gate of path once trigger is requested. Scripts use this
// to signal the server from inside a document run.
func (s *ScriptServer) OpenOn(trigger, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggers[trigger] = path
	if _, ok := s.files[trigger]; !ok {
		s.files[trigger] = ""
	}
}

// Hits returns how often path was requested.
func (s *ScriptServer) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *ScriptServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	gate := s.gates[r.URL.Path]
	body, ok := s.files[r.URL.Path]
	target, trigger := s.triggers[r.URL.Path]
	s.mu.Unlock()

	if trigger {
		s.Open(target)
	}

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/ironrun/internal/relay"
	"github.com/vk/ironrun/internal/testutil"
)

// setupApp writes files into a temporary site and returns an app over it
// together with its console and log buffers.
func setupApp(t *testing.T, files map[string]string, mutate func(*Config)) (*App, *testutil.SafeBuffer, *testutil.SafeBuffer) {
	t.Helper()

	dir := testutil.WriteFiles(t, files)
	cfg := DefaultConfig()
	cfg.Paths = []string{dir}
	cfg.LogLevel = "debug"
	if mutate != nil {
		mutate(&cfg)
	}
	validated, err := NewConfig(cfg)
	require.NoError(t, err)

	console, logs := &testutil.SafeBuffer{}, &testutil.SafeBuffer{}
	t.Cleanup(func() {
		if os.Getenv("IRONRUN_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	return NewApp(console, logs, validated), console, logs
}

func TestApp_Run_Document(t *testing.T) {
	// --- Arrange ---
	a, console, logs := setupApp(t, map[string]string{
		"index.html": `
			<html><head>
			<script type="iron">
			public script {
			  string name = "world";
			}
			</script>
			<script type="iron" src="js/hello.iron"></script>
			</head></html>
		`,
		"js/hello.iron": "printLog(`hello $_name$ from $_site$`);",
	}, func(c *Config) { c.Globals = map[string]any{"site": "ironrun"} })

	// --- Act ---
	summary, err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "hello world from ironrun\n", console.String())
	assert.Equal(t, 1, summary.Documents)
	assert.Equal(t, 2, summary.Executed)
	assert.Equal(t, 0, summary.Failed)
	assert.Contains(t, logs.String(), "Document finished.")
	assert.Contains(t, logs.String(), "run_id=")
}

func TestApp_Run_MultipleDocumentsAreIsolated(t *testing.T) {
	// --- Arrange ---
	a, console, _ := setupApp(t, map[string]string{
		"a.html": `<script type="iron">string shared = "a"; printLog("a:" + shared);</script>`,
		"b.htm":  `<script type="iron">printLog("b:" + typeof shared);</script>`,
		"c.txt":  `<script type="iron">printLog("never");</script>`,
	}, func(c *Config) { c.Workers = 1 })

	// --- Act ---
	summary, err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Documents)
	assert.Equal(t, "a:a\nb:undefined\n", console.String())
}

func TestApp_Run_FailOnError(t *testing.T) {
	files := map[string]string{
		"index.html": `
			<script type="iron">printLog("before");</script>
			<script type="iron">throw new Error("boom");</script>
			<script type="iron">printLog("after");</script>
		`,
	}

	t.Run("disabled", func(t *testing.T) {
		a, console, _ := setupApp(t, files, nil)

		summary, err := a.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 1, summary.Failed)
		assert.Equal(t, "before\nafter\n", console.String())
	})

	t.Run("enabled", func(t *testing.T) {
		a, _, _ := setupApp(t, files, func(c *Config) { c.FailOnError = true })

		summary, err := a.Run(context.Background())

		assert.ErrorIs(t, err, ErrUnitsFailed)
		assert.Equal(t, 2, summary.Executed)
	})
}

func TestApp_Run_CustomScriptType(t *testing.T) {
	a, console, _ := setupApp(t, map[string]string{
		"index.html": `
			<script type="iron">printLog("iron");</script>
			<script type="text/ironscript">printLog("custom");</script>
		`,
	}, func(c *Config) { c.ScriptType = "text/ironscript" })

	_, err := a.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "custom\n", console.String())
}

func TestApp_Run_NoDocuments(t *testing.T) {
	a, _, _ := setupApp(t, map[string]string{"readme.md": "# nothing"}, nil)

	_, err := a.Run(context.Background())

	assert.EqualError(t, err, "no host documents found")
}

func TestApp_Run_RecordsMetrics(t *testing.T) {
	// --- Arrange ---
	a, _, _ := setupApp(t, map[string]string{
		"index.html": `
			<script type="iron">printLog(1);</script>
			<script type="iron" src="missing.iron"></script>
		`,
	}, nil)

	// --- Act ---
	_, err := a.Run(context.Background())
	require.NoError(t, err)

	srv := httptest.NewServer(a.healthMux())
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	// --- Assert ---
	text := string(body)
	assert.Contains(t, text, `ironrun_documents_total{outcome="failed"} 1`)
	assert.Contains(t, text, `ironrun_units_total{mode="ordered",status="executed"} 1`)
	assert.Contains(t, text, `ironrun_units_total{mode="ordered",status="failed"} 1`)
	assert.Contains(t, text, `ironrun_fetch_duration_seconds_count{outcome="error"} 1`)
}

func TestApp_HealthHandler(t *testing.T) {
	a, _, _ := setupApp(t, map[string]string{"index.html": ""}, nil)
	srv := httptest.NewServer(a.healthMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK\n", string(body))
}

func TestApp_Run_UnreachableRelayIsSkipped(t *testing.T) {
	a, console, logs := setupApp(t, map[string]string{
		"index.html": `<script type="iron">printLog("still runs");</script>`,
	}, nil)
	a.config.Relay = &relay.Config{URL: "ftp://nowhere"}

	_, err := a.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "still runs\n", console.String())
	assert.Contains(t, logs.String(), "Console relay unavailable")
}

func TestShouldRerun(t *testing.T) {
	watched := map[string]bool{filepath.Clean("/site/index.html"): true}

	testCases := []struct {
		name string
		evt  fsnotify.Event
		want bool
	}{
		{name: "empty name", evt: fsnotify.Event{Name: "", Op: fsnotify.Write}, want: false},
		{name: "unsupported op", evt: fsnotify.Event{Name: "/site/index.html", Op: fsnotify.Chmod}, want: false},
		{name: "remove", evt: fsnotify.Event{Name: "/site/index.html", Op: fsnotify.Remove}, want: false},
		{name: "other file", evt: fsnotify.Event{Name: "/site/other.html", Op: fsnotify.Write}, want: false},
		{name: "write", evt: fsnotify.Event{Name: "/site/index.html", Op: fsnotify.Write}, want: true},
		{name: "create", evt: fsnotify.Event{Name: "/site/./index.html", Op: fsnotify.Create}, want: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, shouldRerun(tc.evt, watched))
		})
	}
}

func TestApp_Run_WatchReRunsChangedDocument(t *testing.T) {
	// --- Arrange ---
	a, console, _ := setupApp(t, map[string]string{
		"index.html": `<script type="iron">printLog("v1");</script>`,
	}, func(c *Config) {
		c.Watch = true
		c.WatchDebounce = 20 * time.Millisecond
	})
	path := filepath.Join(a.config.Paths[0], "index.html")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		_, err := a.Run(ctx)
		done <- err
	}()

	// --- Act ---
	// The watcher starts after the first run, so keep rewriting until the
	// change is picked up.
	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(console.String(), "v2") {
		if time.Now().After(deadline) {
			t.Fatalf("document was not re-run, console: %q", console.String())
		}
		if strings.Contains(console.String(), "v1") {
			require.NoError(t, os.WriteFile(path, []byte(`<script type="iron">printLog("v2");</script>`), 0o644))
		}
		time.Sleep(100 * time.Millisecond)
	}
	cancel()

	// --- Assert ---
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
	assert.True(t, strings.HasPrefix(console.String(), "v1\nv2\n"))
}

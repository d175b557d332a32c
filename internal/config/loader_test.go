package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_HCL(t *testing.T) {
	// --- Arrange ---
	path := writeConfig(t, "ironrun.hcl", `
log_level        = "debug"
log_format       = "json"
workers          = 4
healthcheck_port = 8080
script_type      = "ironscript"
fail_on_error    = true

fetch {
  timeout    = "10s"
  user_agent = "ironrun-test"
}

execution {
  timeout = "250ms"
}

globals = {
  site  = "example"
  debug = true
  ratio = 1.5
  port  = 3000
  tags  = ["a", "b"]
}

console_relay {
  url   = "http://localhost:3000/socket.io/"
  event = "out"
}
`)

	// --- Act ---
	f, err := Load(context.Background(), path)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, path, f.Path)
	assert.Equal(t, "debug", *f.LogLevel)
	assert.Equal(t, "json", *f.LogFormat)
	assert.Equal(t, 4, *f.Workers)
	assert.Equal(t, 8080, *f.HealthcheckPort)
	assert.Equal(t, "ironscript", *f.ScriptType)
	assert.True(t, *f.FailOnError)
	assert.Equal(t, 10*time.Second, *f.FetchTimeout)
	assert.Equal(t, "ironrun-test", *f.UserAgent)
	assert.Equal(t, 250*time.Millisecond, *f.ExecutionTimeout)
	assert.Equal(t, map[string]any{
		"site":  "example",
		"debug": true,
		"ratio": 1.5,
		"port":  int64(3000),
		"tags":  []any{"a", "b"},
	}, f.Globals)
	require.NotNil(t, f.Relay)
	assert.Equal(t, Relay{URL: "http://localhost:3000/socket.io/", Event: "out"}, *f.Relay)
}

func TestLoad_YAML(t *testing.T) {
	// --- Arrange ---
	path := writeConfig(t, "ironrun.yaml", `
log_level: warn
workers: 2
fetch:
  timeout: 3s
globals:
  site: example
  limits:
    max: 10
`)

	// --- Act ---
	f, err := Load(context.Background(), path)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "warn", *f.LogLevel)
	assert.Equal(t, 2, *f.Workers)
	assert.Equal(t, 3*time.Second, *f.FetchTimeout)
	assert.Nil(t, f.UserAgent)
	assert.Nil(t, f.ExecutionTimeout)
	assert.Nil(t, f.LogFormat)
	assert.Nil(t, f.Relay)
	assert.Equal(t, "example", f.Globals["site"])
	assert.Equal(t, map[string]any{"max": 10}, f.Globals["limits"])
}

func TestLoad_EmptyFilesSetNothing(t *testing.T) {
	for _, name := range []string{"empty.hcl", "empty.yml"} {
		t.Run(name, func(t *testing.T) {
			f, err := Load(context.Background(), writeConfig(t, name, ""))

			require.NoError(t, err)
			assert.Nil(t, f.LogLevel)
			assert.Nil(t, f.Workers)
			assert.Nil(t, f.Globals)
			assert.Nil(t, f.Relay)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{name: "unknown extension", file: "c.toml", content: "", wantErr: "unsupported config file extension"},
		{name: "hcl syntax", file: "c.hcl", content: "workers = ", wantErr: "failed to parse HCL file"},
		{name: "hcl unknown attribute", file: "c.hcl", content: `bogus = 1`, wantErr: "failed to decode HCL file"},
		{name: "hcl wrong type", file: "c.hcl", content: `workers = "many"`, wantErr: "failed to decode HCL file"},
		{name: "yaml unknown field", file: "c.yaml", content: "bogus: 1\n", wantErr: "failed to decode YAML file"},
		{name: "bad duration", file: "c.hcl", content: "fetch {\n  timeout = \"soon\"\n}\n", wantErr: "invalid fetch.timeout"},
		{name: "negative duration", file: "c.yaml", content: "execution:\n  timeout: -1s\n", wantErr: "must not be negative"},
		{name: "globals not an object", file: "c.hcl", content: `globals = "x"`, wantErr: "globals must be an object"},
		{name: "relay without url", file: "c.yaml", content: "console_relay:\n  event: out\n", wantErr: "console_relay.url must not be empty"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(context.Background(), writeConfig(t, tc.file, tc.content))

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.hcl"))

	assert.ErrorIs(t, err, os.ErrNotExist)
}

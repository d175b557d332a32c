package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/ironrun/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

// Load reads the configuration file at path. The format is chosen by
// extension.
func Load(ctx context.Context, path string) (*File, error) {
	logger := ctxlog.FromContext(ctx).With("path", path)
	logger.Debug("Loading configuration file.")

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var r *raw
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".hcl":
		r, err = decodeHCL(src, path)
	case ".yaml", ".yml":
		r, err = decodeYAML(src, path)
	default:
		return nil, fmt.Errorf("unsupported config file extension %q (want .hcl, .yaml or .yml)", ext)
	}
	if err != nil {
		return nil, err
	}

	f, err := r.resolve(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("Configuration file loaded.", "globals", len(f.Globals), "relay", f.Relay != nil)
	return f, nil
}

func decodeHCL(src []byte, path string) (*raw, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var r raw
	if diags := gohcl.DecodeBody(file.Body, nil, &r); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}
	return &r, nil
}

func decodeYAML(src []byte, path string) (*raw, error) {
	var r raw
	dec := yaml.NewDecoder(bytes.NewReader(src))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML file %s: %w", path, err)
	}
	return &r, nil
}

// resolve validates durations and converts globals to native values.
func (r *raw) resolve(path string) (*File, error) {
	f := &File{
		Path:            path,
		LogLevel:        r.LogLevel,
		LogFormat:       r.LogFormat,
		Workers:         r.Workers,
		HealthcheckPort: r.HealthcheckPort,
		ScriptType:      r.ScriptType,
		FailOnError:     r.FailOnError,
	}

	if r.Fetch != nil {
		d, err := parseDuration("fetch.timeout", r.Fetch.Timeout)
		if err != nil {
			return nil, err
		}
		f.FetchTimeout = d
		f.UserAgent = r.Fetch.UserAgent
	}
	if r.Execution != nil {
		d, err := parseDuration("execution.timeout", r.Execution.Timeout)
		if err != nil {
			return nil, err
		}
		f.ExecutionTimeout = d
	}

	if r.ConsoleRelay != nil {
		if r.ConsoleRelay.URL == "" {
			return nil, errors.New("console_relay.url must not be empty")
		}
		f.Relay = &Relay{
			URL:       r.ConsoleRelay.URL,
			Namespace: r.ConsoleRelay.Namespace,
			Event:     r.ConsoleRelay.Event,
		}
	}

	switch {
	case r.YAMLGlobals != nil:
		f.Globals = r.YAMLGlobals
	case !r.HCLGlobals.IsNull():
		if !r.HCLGlobals.Type().IsObjectType() && !r.HCLGlobals.Type().IsMapType() {
			return nil, fmt.Errorf("globals must be an object, got %s", r.HCLGlobals.Type().FriendlyName())
		}
		v, err := ctyToNative(r.HCLGlobals)
		if err != nil {
			return nil, fmt.Errorf("converting globals: %w", err)
		}
		f.Globals = v.(map[string]any)
	}

	return f, nil
}

func parseDuration(name string, s *string) (*time.Duration, error) {
	if s == nil {
		return nil, nil
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d < 0 {
		return nil, fmt.Errorf("invalid %s: must not be negative", name)
	}
	return &d, nil
}

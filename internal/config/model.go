package config

import (
	"time"

	"github.com/zclconf/go-cty/cty"
)

// File is the decoded configuration file.
type File struct {
	Path string

	LogLevel        *string
	LogFormat       *string
	Workers         *int
	HealthcheckPort *int
	ScriptType      *string
	FailOnError     *bool

	FetchTimeout     *time.Duration
	UserAgent        *string
	ExecutionTimeout *time.Duration

	// Globals are injected into every document's execution context.
	Globals map[string]any

	Relay *Relay
}

// Relay is the console_relay block.
type Relay struct {
	URL       string
	Namespace string
	Event     string
}

// raw mirrors the file layout for both decoders.
type raw struct {
	LogLevel        *string `hcl:"log_level,optional" yaml:"log_level"`
	LogFormat       *string `hcl:"log_format,optional" yaml:"log_format"`
	Workers         *int    `hcl:"workers,optional" yaml:"workers"`
	HealthcheckPort *int    `hcl:"healthcheck_port,optional" yaml:"healthcheck_port"`
	ScriptType      *string `hcl:"script_type,optional" yaml:"script_type"`
	FailOnError     *bool   `hcl:"fail_on_error,optional" yaml:"fail_on_error"`

	Fetch        *rawFetch     `hcl:"fetch,block" yaml:"fetch"`
	Execution    *rawExecution `hcl:"execution,block" yaml:"execution"`
	ConsoleRelay *rawRelay     `hcl:"console_relay,block" yaml:"console_relay"`

	HCLGlobals  cty.Value      `hcl:"globals,optional" yaml:"-"`
	YAMLGlobals map[string]any `yaml:"globals"`
}

type rawFetch struct {
	Timeout   *string `hcl:"timeout,optional" yaml:"timeout"`
	UserAgent *string `hcl:"user_agent,optional" yaml:"user_agent"`
}

type rawExecution struct {
	Timeout *string `hcl:"timeout,optional" yaml:"timeout"`
}

type rawRelay struct {
	URL       string `hcl:"url" yaml:"url"`
	Namespace string `hcl:"namespace,optional" yaml:"namespace"`
	Event     string `hcl:"event,optional" yaml:"event"`
}

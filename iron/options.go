package iron

import (
	"net/url"
	"time"

	"github.com/vk/ironrun/internal/executor"
	"github.com/vk/ironrun/internal/loader"
	"github.com/vk/ironrun/internal/scheduler"
)

type options struct {
	document    string
	base        *url.URL
	sinks       []executor.Sink
	globals     map[string]any
	execTimeout time.Duration
	fetch       []loader.Option
	recorder    scheduler.Recorder
}

// Option configures a Runtime.
type Option func(*options)

// WithDocument names the host document in logs and element references.
func WithDocument(name string) Option {
	return func(o *options) { o.document = name }
}

// WithBase sets the URL remote src attributes resolve against.
func WithBase(base *url.URL) Option {
	return func(o *options) { o.base = base }
}

// WithSinks adds console sinks.
func WithSinks(sinks ...executor.Sink) Option {
	return func(o *options) { o.sinks = append(o.sinks, sinks...) }
}

// WithGlobals predefines global bindings.
func WithGlobals(globals map[string]any) Option {
	return func(o *options) { o.globals = globals }
}

// WithExecutionTimeout interrupts a unit running longer than d.
func WithExecutionTimeout(d time.Duration) Option {
	return func(o *options) { o.execTimeout = d }
}

// WithFetchTimeout bounds each remote fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) { o.fetch = append(o.fetch, loader.WithTimeout(d)) }
}

// WithUserAgent sets the User-Agent of remote fetches.
func WithUserAgent(ua string) Option {
	return func(o *options) { o.fetch = append(o.fetch, loader.WithUserAgent(ua)) }
}

// WithHTTPDoer replaces the HTTP client used for remote fetches.
func WithHTTPDoer(doer loader.HTTPDoer) Option {
	return func(o *options) { o.fetch = append(o.fetch, loader.WithHTTPDoer(doer)) }
}

// WithFetchObserver reports remote fetch outcomes.
func WithFetchObserver(obs loader.FetchObserver) Option {
	return func(o *options) { o.fetch = append(o.fetch, loader.WithObserver(obs)) }
}

// WithRecorder reports finished units.
func WithRecorder(r scheduler.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

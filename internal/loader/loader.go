// Package loader resolves a script unit to its IronScript text: inline units
// read their element text, remote units are fetched over HTTP or read from
// disk relative to the host document.
package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/vk/ironrun/internal/ctxlog"
	"github.com/vk/ironrun/internal/unit"
)

// HTTPDoer captures the subset of *http.Client the loader relies on, so tests
// can inject fakes.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// FetchObserver is told about every remote fetch.
type FetchObserver interface {
	ObserveFetch(outcome string, d time.Duration)
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPDoer replaces http.DefaultClient.
func WithHTTPDoer(doer HTTPDoer) Option {
	return func(l *Loader) { l.doer = doer }
}

// WithBase sets the URL relative locations resolve against.
func WithBase(base *url.URL) Option {
	return func(l *Loader) { l.base = base }
}

// WithUserAgent sets the User-Agent header of remote fetches.
func WithUserAgent(ua string) Option {
	return func(l *Loader) { l.userAgent = ua }
}

// WithTimeout bounds each remote fetch. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) { l.timeout = d }
}

// WithObserver reports fetch outcomes to o.
func WithObserver(o FetchObserver) Option {
	return func(l *Loader) { l.observer = o }
}

// Loader loads script text.
type Loader struct {
	doer      HTTPDoer
	base      *url.URL
	userAgent string
	timeout   time.Duration
	observer  FetchObserver
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{doer: http.DefaultClient}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the unit's raw IronScript text. Inline text is returned
// verbatim.
func (l *Loader) Load(ctx context.Context, u *unit.Unit) (string, error) {
	if !u.Remote() {
		return u.Inline, nil
	}
	return l.Fetch(ctx, u.Src)
}

// Resolve turns a src attribute into an absolute location. A location
// without a scheme and without a base is a local file path.
func (l *Loader) Resolve(location string) (*url.URL, error) {
	ref, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("invalid script location %q: %w", location, err)
	}
	if l.base != nil {
		ref = l.base.ResolveReference(ref)
	}
	if ref.Scheme == "" {
		ref.Scheme = "file"
	}
	return ref, nil
}

// Fetch loads the text at location. A non-2xx status or a transport error is
// a failure; no other source is tried.
func (l *Loader) Fetch(ctx context.Context, location string) (text string, err error) {
	logger := ctxlog.FromContext(ctx)

	target, err := l.Resolve(location)
	if err != nil {
		return "", err
	}

	start := time.Now()
	defer func() {
		if l.observer == nil {
			return
		}
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		l.observer.ObserveFetch(outcome, time.Since(start))
	}()

	logger.Debug("Fetching remote script.", "url", target.String())
	switch target.Scheme {
	case "http", "https":
		return l.fetchHTTP(ctx, target)
	case "file":
		b, err := os.ReadFile(target.Path)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", target.Path, err)
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("unsupported script location scheme %q", target.Scheme)
	}
}

func (l *Loader) fetchHTTP(ctx context.Context, target *url.URL) (string, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}

	resp, err := l.doer.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return string(body), nil
}

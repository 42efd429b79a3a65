package fetcher

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/ioutil"
	"github.com/bnema/webview-adblock/internal/models"
	"github.com/c2h5oh/datasize"
)

const (
	// DefaultConnectTimeout bounds dialing and the TLS handshake
	DefaultConnectTimeout = 15 * time.Second

	// DefaultReadTimeout bounds waiting for response headers and reading the
	// body
	DefaultReadTimeout = 30 * time.Second

	// DefaultUserAgent identifies subscription downloads
	DefaultUserAgent = "webview-adblock/1.0"

	// DefaultMaxSize caps the size of a downloaded hosts file
	DefaultMaxSize = 64 * datasize.MB
)

// ErrBadStatus is returned when the server responds with a non-2xx status
const ErrBadStatus errors.Error = "bad status"

// Fetcher downloads hosts subscriptions.  It never retries: a timeout or bad
// status is a terminal failure and retry policy belongs to the caller.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	maxSize     uint64
	readTimeout time.Duration
}

// New creates a new fetcher from config
func New(cfg models.HTTPConfig) *Fetcher {
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout == 0 {
		connectTimeout = DefaultConnectTimeout
	}

	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = DefaultReadTimeout
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	maxSize := cfg.MaxSize
	if maxSize == 0 {
		maxSize = DefaultMaxSize
	}

	dialer := &net.Dialer{Timeout: connectTimeout}

	return &Fetcher{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           dialer.DialContext,
				TLSHandshakeTimeout:   connectTimeout,
				ResponseHeaderTimeout: readTimeout,
			},
		},
		userAgent:   userAgent,
		maxSize:     maxSize.Bytes(),
		readTimeout: readTimeout,
	}
}

// Fetch downloads content from a URL
func (f *Fetcher) Fetch(ctx context.Context, url string) (data []byte, err error) {
	defer func() { err = errors.Annotate(err, "fetching %q: %w", url) }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.WithDeferred(err, resp.Body.Close()) }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrBadStatus, resp.StatusCode, resp.Status)
	}

	// The body gets its own deadline, so a stalled transfer cannot hold the
	// import forever.
	timer := time.AfterFunc(f.readTimeout, cancel)
	defer timer.Stop()

	data, err = io.ReadAll(ioutil.LimitReader(resp.Body, f.maxSize))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	return data, nil
}

// Package importer feeds hosts subscriptions into the filtering engine and
// persists them between runs.
package importer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/bnema/webview-adblock/internal/engine"
	"github.com/bnema/webview-adblock/internal/parser"
	"github.com/bnema/webview-adblock/internal/storage"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
)

// ErrEmptyURL is returned when an import is requested for an empty URL
const ErrEmptyURL errors.Error = "empty source url"

// defaultParallel is the number of concurrent downloads used by ImportURLs
const defaultParallel = 4

// Fetcher downloads a hosts subscription
type Fetcher interface {
	Fetch(ctx context.Context, url string) (data []byte, err error)
}

// Config contains importer settings
type Config struct {
	// Logger for import outcomes; nil discards logs
	Logger *slog.Logger

	// Engine receives the imported hosts and must not be nil
	Engine *engine.Engine

	// Fetcher downloads remote sources; required for URL imports
	Fetcher Fetcher

	// FS is used for local file imports; nil means the OS filesystem
	FS afero.Fs

	// Store persists imported hosts; required for Save and Load
	Store storage.Store

	// Parallel limits concurrent downloads in ImportURLs
	Parallel int
}

// Importer imports hosts subscriptions into an engine.  Its methods perform
// I/O and must not be called from the request path.
type Importer struct {
	logger   *slog.Logger
	engine   *engine.Engine
	fetcher  Fetcher
	fs       afero.Fs
	store    storage.Store
	parallel int
}

// New creates a new importer
func New(c *Config) *Importer {
	l := c.Logger
	if l == nil {
		l = slogutil.NewDiscardLogger()
	}

	fsys := c.FS
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	parallel := c.Parallel
	if parallel <= 0 {
		parallel = defaultParallel
	}

	return &Importer{
		logger:   l,
		engine:   c.Engine,
		fetcher:  c.Fetcher,
		fs:       fsys,
		store:    c.Store,
		parallel: parallel,
	}
}

// parse reads hosts-file content from r
func (imp *Importer) parse(r io.Reader) (hosts []string, err error) {
	p := parser.New()
	hosts, err = p.ParseHosts(r)
	if err != nil {
		return nil, fmt.Errorf("parsing hosts: %w", err)
	}

	stats := p.Stats()
	imp.logger.Debug(
		"parsed hosts",
		"total", stats.Total,
		"accepted", stats.Accepted,
		"comments", stats.Comments,
		"skipped", stats.Skipped,
	)

	return hosts, nil
}

// ImportReader parses hosts-file content from r and merges it into the engine.
// It returns the number of accepted lines.  On error the engine is unchanged.
func (imp *Importer) ImportReader(_ context.Context, r io.Reader) (accepted int, err error) {
	hosts, err := imp.parse(r)
	if err != nil {
		return 0, err
	}

	imp.engine.MergeImported(hosts)

	return len(hosts), nil
}

// ImportFile imports a local hosts file
func (imp *Importer) ImportFile(ctx context.Context, path string) (accepted int, err error) {
	defer func() { err = errors.Annotate(err, "importing file %q: %w", path) }()

	f, err := imp.fs.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { err = errors.WithDeferred(err, f.Close()) }()

	accepted, err = imp.ImportReader(ctx, f)
	if err != nil {
		return 0, err
	}

	imp.logger.Info("imported hosts file", "path", path, "accepted", accepted)

	return accepted, nil
}

// ImportURL downloads a hosts subscription, merges it into the engine, and
// marks url as an enabled source.  Network, status, and parse failures are all
// reported as the returned error, with the engine left unchanged.
func (imp *Importer) ImportURL(ctx context.Context, url string) (accepted int, err error) {
	defer func() { err = errors.Annotate(err, "importing url %q: %w", url) }()

	if url == "" {
		return 0, ErrEmptyURL
	}

	data, err := imp.fetcher.Fetch(ctx, url)
	if err != nil {
		return 0, err
	}

	hosts, err := imp.parse(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}

	added := imp.engine.MergeImported(hosts, url)
	imp.logger.Info("imported hosts source", "url", url, "accepted", len(hosts), "new", added)

	return len(hosts), nil
}

// Result is the outcome of importing one source
type Result struct {
	URL      string
	Err      error
	Accepted int

	index int
}

// ImportURLs imports several sources concurrently.  Every source is merged
// independently, so one failure does not affect the others.  Results are in
// the order of urls.
func (imp *Importer) ImportURLs(ctx context.Context, urls []string) (results []Result) {
	p := pool.NewWithResults[Result]().WithMaxGoroutines(imp.parallel)
	for i, u := range urls {
		p.Go(func() Result {
			n, err := imp.ImportURL(ctx, u)
			if err != nil {
				imp.logger.Warn("importing source", "url", u, slogutil.KeyError, err)
			}

			return Result{URL: u, Err: err, Accepted: n, index: i}
		})
	}

	results = p.Wait()
	ordered := make([]Result, len(results))
	for _, r := range results {
		ordered[r.index] = r
	}

	return ordered
}

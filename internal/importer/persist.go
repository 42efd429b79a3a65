package importer

import (
	"context"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/bnema/webview-adblock/internal/storage"
)

// Save writes the imported hosts and enabled sources to the store
func (imp *Importer) Save(ctx context.Context) (err error) {
	defer func() { err = errors.Annotate(err, "saving hosts rules: %w") }()

	hosts := imp.engine.ImportedHosts()
	sources := imp.engine.EnabledSources()

	if err = imp.store.Write(ctx, storage.HostsBlob, storage.EncodeLines(hosts)); err != nil {
		return err
	}

	if err = imp.store.Write(ctx, storage.SourcesBlob, storage.EncodeLines(sources)); err != nil {
		return err
	}

	imp.logger.Debug("saved hosts rules", "hosts", len(hosts), "sources", len(sources))

	return nil
}

// Load reads persisted hosts and sources and adds them to the engine.  Load is
// additive; call ClearHostsFileRules on the engine first for a clean reload.
// Both blobs are read before anything is merged, so a failure leaves the
// engine unchanged.
func (imp *Importer) Load(ctx context.Context) (err error) {
	defer func() { err = errors.Annotate(err, "loading hosts rules: %w") }()

	hosts, err := imp.readLines(ctx, storage.HostsBlob)
	if err != nil {
		return err
	}

	sources, err := imp.readLines(ctx, storage.SourcesBlob)
	if err != nil {
		return err
	}

	imp.engine.MergeImported(hosts, sources...)

	imp.logger.Debug("loaded hosts rules", "hosts", len(hosts), "sources", len(sources))

	return nil
}

// readLines reads a newline-delimited blob from the store
func (imp *Importer) readLines(ctx context.Context, name string) (lines []string, err error) {
	data, err := imp.store.Read(ctx, name)
	if err != nil {
		return nil, err
	}

	return storage.DecodeLines(data)
}

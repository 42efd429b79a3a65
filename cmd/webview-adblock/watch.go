package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func runWatch(cmd *cobra.Command, args []string) (err error) {
	probes, _ := cmd.Flags().GetStringArray("check")

	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { err = errors.WithDeferred(err, w.Close()) }()

	// Watch the directory so that editors replacing the file are noticed.
	if err = w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching %q: %w", path, err)
	}

	reimport(ctx, a, path, probes)
	fmt.Printf("Watching %s (Ctrl+C to stop)\n", path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			reimport(ctx, a, path, probes)
		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher", slogutil.KeyError, werr)
		}
	}
}

// reimport replaces previously imported hosts with the persisted ones plus
// the content of path, then prints the decision for each probe URL.  Nothing
// is written back to storage.
func reimport(ctx context.Context, a *app, path string, probes []string) {
	a.engine.ClearHostsFileRules()
	if err := a.importer.Load(ctx); err != nil {
		logger.Warn("reloading persisted hosts", slogutil.KeyError, err)
	}

	n, err := a.importer.ImportFile(ctx, path)
	if err != nil {
		logger.Warn("importing watched file", slogutil.KeyError, err)
		return
	}

	fmt.Printf("Imported %d hosts from %s (total rules: %d)\n", n, path, a.engine.RuleCount())

	for _, u := range probes {
		fmt.Printf("  %s  %s\n", decision(a.engine, u), u)
	}
}

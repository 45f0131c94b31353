package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/sambeau/jsonatafmt/pkg/jsonata/errors"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/format"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/jsonata"
)

func (a *app) watchCommand() *cobra.Command {
	var layout layoutFlags
	var cache bool
	cmd := &cobra.Command{
		Use:   "watch [flags] [dir ...]",
		Short: "Format files in place whenever they change",
		Long: `Watch directories recursively and format files with the configured
extensions in place each time they are saved. Runs until interrupted.`,
		Example: `  jfmt watch
  jfmt watch --width 100 queries/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := layout.options(cmd, a.cfg.Format.Options())
			if err != nil {
				return err
			}
			if len(args) == 0 {
				args = []string{"."}
			}

			var store *Store
			if cache {
				if store, err = a.openStore(); err != nil {
					return err
				}
				defer store.Close()
			}

			w, err := newWatcher(a, opts, store)
			if err != nil {
				return err
			}
			defer w.Close()

			for _, dir := range args {
				if err := w.watchDirRecursive(dir); err != nil {
					return fmt.Errorf("watching %s: %w", dir, err)
				}
				w.logInfo("watching %s", dir)
			}
			w.run(cmd.Context())
			return nil
		},
	}
	cmd.Flags().BoolVar(&cache, "cache", false, "skip files recorded as formatted in the cache")
	layout.register(cmd)
	return cmd
}

// watcher formats files in place when they change on disk.
type watcher struct {
	app        *app
	fs         *fsnotify.Watcher
	opts       format.Options
	store      *Store
	extensions []string
	debounce   time.Duration
	styles     styles
	errStyles  styles

	mu     sync.Mutex
	timers map[string]*time.Timer
	wg     sync.WaitGroup
	outMu  sync.Mutex
}

func newWatcher(a *app, opts format.Options, store *Store) (*watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &watcher{
		app:        a,
		fs:         fsWatcher,
		opts:       opts,
		store:      store,
		extensions: a.cfg.Watch.Extensions,
		debounce:   a.cfg.Watch.Debounce,
		styles:     newStyles(a.stdout),
		errStyles:  newStyles(a.stderr),
		timers:     make(map[string]*time.Timer),
	}, nil
}

// watchDirRecursive adds a directory and its subdirectories to the watch list
func (w *watcher) watchDirRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		return w.fs.Add(path)
	})
}

// run processes file system events until ctx is done.
func (w *watcher) run(ctx context.Context) {
	defer w.stopTimers()
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logError("watcher error: %v", err)
		}
	}
}

func (w *watcher) handleEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		if err := w.store.Forget(event.Name); err != nil {
			w.app.logger.Warn("cache update failed", "file", event.Name, "error", err)
		}
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watchDirRecursive(event.Name); err != nil {
				w.logError("failed to watch %s: %v", event.Name, err)
			}
			return
		}
	}

	if hasExtension(event.Name, w.extensions) {
		w.schedule(event.Name)
	}
}

// schedule formats path once it has been quiet for the debounce period.
func (w *watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok && t.Stop() {
		t.Reset(w.debounce)
		return
	}
	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.timers[path] == t {
			delete(w.timers, path)
		}
		w.mu.Unlock()
		w.formatFile(path)
	})
	w.timers[path] = t
}

func (w *watcher) stopTimers() {
	w.mu.Lock()
	for path, t := range w.timers {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.timers, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

// formatFile rewrites path when its formatting differs.
func (w *watcher) formatFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !stderrors.Is(err, fs.ErrNotExist) {
			w.logError("%s: %v", path, err)
		}
		return
	}

	key := storeKey(w.opts, data)
	if known, _ := w.store.Known(key); known {
		return
	}

	src := string(data)
	out, err := w.app.formatter.FormatSource(src, jsonata.WithOptions(w.opts))
	if err != nil {
		var se *errors.SyntaxError
		if stderrors.As(err, &se) {
			line, col := se.LineColumn(src)
			w.logError("%s:%d:%d: %s", path, line, col, se.Error())
			return
		}
		w.logError("%s: %v", path, err)
		return
	}

	formatted := out + "\n"
	if formatted != src {
		info, err := os.Stat(path)
		if err != nil {
			w.logError("%s: %v", path, err)
			return
		}
		if err := os.WriteFile(path, []byte(formatted), info.Mode().Perm()); err != nil {
			w.logError("%s: %v", path, err)
			return
		}
		w.logInfo("formatted %s", path)
		key = storeKey(w.opts, []byte(formatted))
	}
	if err := w.store.Remember(key, path); err != nil {
		w.app.logger.Warn("cache update failed", "file", path, "error", err)
	}
}

// Close stops the watcher
func (w *watcher) Close() error {
	return w.fs.Close()
}

func (w *watcher) logInfo(format string, args ...any) {
	w.outMu.Lock()
	defer w.outMu.Unlock()
	fmt.Fprintf(w.app.stdout, "%s "+format+"\n", append([]any{w.styles.watch.Render("[WATCH]")}, args...)...)
}

func (w *watcher) logError(format string, args ...any) {
	w.outMu.Lock()
	defer w.outMu.Unlock()
	fmt.Fprintf(w.app.stderr, "%s "+format+"\n", append([]any{w.errStyles.errorLabel.Render("[WATCH ERROR]")}, args...)...)
}

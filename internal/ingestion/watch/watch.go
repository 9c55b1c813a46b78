// Package watch feeds files dropped into a directory to the knowledge base.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yungbote/dossier-backend/internal/ingestion/extractor"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
)

// DefaultSettle is how long a file must stay quiet before it is ingested.
const DefaultSettle = 500 * time.Millisecond

// IngestFunc receives the base name and contents of a settled file.
type IngestFunc func(ctx context.Context, name string, data []byte) (string, error)

type Deps struct {
	Log    *logger.Logger
	Dir    string
	Ingest IngestFunc
	Settle time.Duration
}

type Watcher struct {
	log    *logger.Logger
	dir    string
	ingest IngestFunc
	settle time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

func New(deps Deps) (*Watcher, error) {
	if deps.Log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if deps.Ingest == nil {
		return nil, fmt.Errorf("ingest func required")
	}
	info, err := os.Stat(deps.Dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", deps.Dir)
	}
	settle := deps.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{
		log:     deps.Log.With("service", "DirectoryWatcher", "dir", deps.Dir),
		dir:     deps.Dir,
		ingest:  deps.Ingest,
		settle:  settle,
		pending: map[string]*time.Timer{},
	}, nil
}

// Run watches until ctx is done. Files already in the directory are not ingested.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.log.Info("Watching for new documents")

	defer w.wg.Wait()
	defer w.stopPending()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("Watcher error", "error", err)
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if path, ok := candidate(ev); ok {
				w.schedule(ctx, path)
			}
		}
	}
}

// candidate reports whether ev touches an ingestible file.
func candidate(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return "", false
	}
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") {
		return "", false
	}
	if !extractor.Supported(base) {
		return "", false
	}
	info, err := os.Stat(ev.Name)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return ev.Name, true
}

// schedule restarts the settle timer for path; editors write in bursts.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok && t.Stop() {
		t.Reset(w.settle)
		return
	}
	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.settle, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.pending[path] == t {
			delete(w.pending, path)
		}
		w.mu.Unlock()
		w.ingestFile(ctx, path)
	})
	w.pending[path] = t
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
}

func (w *Watcher) ingestFile(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		w.log.Warn("Read failed", "filename", path, "error", err)
		return
	}
	id, err := w.ingest(ctx, filepath.Base(path), data)
	if err != nil {
		w.log.Warn("Ingest failed", "filename", path, "error", err)
		return
	}
	w.log.Info("Document ingested", "filename", path, "id", id)
}

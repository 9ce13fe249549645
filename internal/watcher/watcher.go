// Package watcher ingests files dropped into inbox directories.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hyperjump/yomu/internal/fileid"
	"github.com/hyperjump/yomu/internal/models"
	"github.com/hyperjump/yomu/internal/storage"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Ingester is the part of the indexer the inbox drives.
type Ingester interface {
	IngestFileWithID(ctx context.Context, id, path string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

// Inbox watches directories and keeps the document registry in step with
// their contents. Document ids are derived from the absolute file path, so
// rewriting a file replaces the document ingested from it earlier.
type Inbox struct {
	dirs       []string
	extensions []string
	ingester   Ingester
	debounce   time.Duration
	logger     *zap.Logger

	fsw     *fsnotify.Watcher
	mu      sync.Mutex
	pending map[string]*time.Timer
	ctx     context.Context
	done    chan struct{}
	wg      sync.WaitGroup
	stop    sync.Once
}

// InboxOption configures an Inbox.
type InboxOption func(*Inbox)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) InboxOption {
	return func(in *Inbox) {
		if l != nil {
			in.logger = l
		}
	}
}

// WithDebounce sets how long a file must be quiet before it is ingested.
// Non-positive values keep the default.
func WithDebounce(d time.Duration) InboxOption {
	return func(in *Inbox) {
		if d > 0 {
			in.debounce = d
		}
	}
}

// NewInbox creates an inbox over dirs. Only files whose extension is in
// extensions (with or without the dot) are ingested; an empty list accepts all.
func NewInbox(dirs, extensions []string, ingester Ingester, opts ...InboxOption) *Inbox {
	in := &Inbox{
		dirs:       dirs,
		extensions: extensions,
		ingester:   ingester,
		debounce:   defaultDebounce,
		logger:     zap.NewNop(),
		pending:    make(map[string]*time.Timer),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Start creates missing directories, ingests files already present and
// begins watching. It returns once the watch is established.
func (in *Inbox) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	in.fsw = fsw
	in.ctx = ctx

	for _, dir := range in.dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			_ = fsw.Close()
			return err
		}
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return err
		}
		in.logger.Info("watching inbox", zap.String("dir", dir))
	}

	in.wg.Add(1)
	go in.run()

	for _, dir := range in.dirs {
		in.syncDir(dir)
	}
	return nil
}

// Stop ends the watch and cancels pending ingestions. It waits for the
// event loop to exit.
func (in *Inbox) Stop() {
	in.stop.Do(func() {
		close(in.done)
		if in.fsw != nil {
			_ = in.fsw.Close()
		}
		in.mu.Lock()
		for path, t := range in.pending {
			t.Stop()
			delete(in.pending, path)
		}
		in.mu.Unlock()
		in.wg.Wait()
	})
}

func (in *Inbox) run() {
	defer in.wg.Done()
	for {
		select {
		case <-in.ctx.Done():
			return
		case <-in.done:
			return
		case ev, ok := <-in.fsw.Events:
			if !ok {
				return
			}
			in.handle(ev)
		case err, ok := <-in.fsw.Errors:
			if !ok {
				return
			}
			in.logger.Warn("inbox watch error", zap.Error(err))
		}
	}
}

func (in *Inbox) handle(ev fsnotify.Event) {
	path := ev.Name
	if !in.accepts(path) {
		return
	}
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		in.cancel(path)
		in.remove(path)
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		in.schedule(path)
	}
}

// schedule (re)arms the debounce timer for path.
func (in *Inbox) schedule(path string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if t, ok := in.pending[path]; ok {
		t.Stop()
	}
	in.pending[path] = time.AfterFunc(in.debounce, func() {
		in.mu.Lock()
		delete(in.pending, path)
		in.mu.Unlock()
		in.ingest(path)
	})
}

func (in *Inbox) cancel(path string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if t, ok := in.pending[path]; ok {
		t.Stop()
		delete(in.pending, path)
	}
}

func (in *Inbox) ingest(path string) {
	select {
	case <-in.done:
		return
	default:
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	id, err := idFor(path)
	if err != nil {
		in.logger.Warn("inbox path", zap.String("path", path), zap.Error(err))
		return
	}
	doc, err := in.ingester.IngestFileWithID(in.ctx, id, path)
	if err != nil {
		in.logger.Warn("inbox ingest failed", zap.String("path", path), zap.Error(err))
		return
	}
	in.logger.Info("inbox ingested",
		zap.String("path", path),
		zap.String("document_id", doc.ID),
		zap.Int("chunks", doc.ChunkCount))
}

func (in *Inbox) remove(path string) {
	id, err := idFor(path)
	if err != nil {
		return
	}
	err = in.ingester.DeleteDocument(in.ctx, id)
	switch {
	case err == nil:
		in.logger.Info("inbox removed", zap.String("path", path), zap.String("document_id", id))
	case errors.Is(err, storage.ErrNotFound):
	default:
		in.logger.Warn("inbox remove failed", zap.String("path", path), zap.Error(err))
	}
}

// syncDir ingests the files already sitting in dir. Unchanged files are
// skipped by the ingester.
func (in *Inbox) syncDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		in.logger.Warn("inbox scan failed", zap.String("dir", dir), zap.Error(err))
		return
	}
	for _, e := range entries {
		if !e.Type().IsRegular() && e.Type()&fs.ModeSymlink == 0 {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if in.accepts(path) {
			in.ingest(path)
		}
	}
}

func (in *Inbox) accepts(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return matchExtension(path, in.extensions)
}

func idFor(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return fileid.ForPath(abs), nil
}

// matchExtension reports whether path has one of extensions. Comparison is
// case-insensitive and tolerates a missing leading dot.
func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

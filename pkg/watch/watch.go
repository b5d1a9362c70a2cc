// Package watch turns a directory into a drop box: every regular file that
// lands in the inbox is encrypted into the output directory under one key.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"axine-go/pkg/fileproc"
	"axine-go/pkg/key"
	"axine-go/pkg/log"

	"github.com/fsnotify/fsnotify"
)

const DefaultSettle = 500 * time.Millisecond

var ErrKeyMismatch = errors.New("watch: output directory holds a key file for a different key")

type Config struct {
	InboxDir  string
	OutputDir string
	// KeyFileName is written into OutputDir on start. Empty disables it.
	KeyFileName string
	// Settle is how long a file must stay unmodified before it is encrypted.
	Settle time.Duration
	// ProcessExisting encrypts files already in the inbox when Run starts.
	ProcessExisting bool
	// OnResult, if set, is called after every file attempt.
	OnResult func(fileproc.Result, error)
}

// Stats counts what a Watcher has processed since it was created.
type Stats struct {
	Encrypted int
	Failed    int
	InBytes   int64
	LastFile  string
	LastError string
}

type Watcher struct {
	cfg  Config
	proc *fileproc.Processor
	fsw  *fsnotify.Watcher

	mu      sync.Mutex // guards pending and stats
	pending map[string]*time.Timer
	stats   Stats
	ready   chan string
}

// New validates the directories, stores the key file and starts watching.
func New(cfg Config, proc *fileproc.Processor) (*Watcher, error) {
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	inbox, err := filepath.Abs(cfg.InboxDir)
	if err != nil {
		return nil, err
	}
	out, err := filepath.Abs(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	if inbox == out {
		return nil, fmt.Errorf("watch: inbox and output directory must differ (%s)", inbox)
	}
	cfg.InboxDir, cfg.OutputDir = inbox, out
	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, &fileproc.IOError{Op: "mkdir", Path: out, Err: err}
	}
	if cfg.KeyFileName != "" {
		if err := storeKey(filepath.Join(out, cfg.KeyFileName), proc.Key()); err != nil {
			return nil, err
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if err := fsw.Add(inbox); err != nil {
		fsw.Close()
		return nil, &fileproc.IOError{Op: "watch", Path: inbox, Err: err}
	}
	return &Watcher{
		cfg:     cfg,
		proc:    proc,
		fsw:     fsw,
		pending: make(map[string]*time.Timer),
		ready:   make(chan string, 16),
	}, nil
}

func storeKey(path string, k key.Key) error {
	existing, err := key.ReadFile(path)
	switch {
	case err == nil && existing != k:
		return fmt.Errorf("%w: %s", ErrKeyMismatch, path)
	case err == nil:
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return err
	}
	return fileproc.WriteFileAtomic(path, []byte(k.String()), 0o600)
}

// Run processes events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	defer w.stopTimers()

	log.Info().Str("inbox", w.cfg.InboxDir).Str("out", w.cfg.OutputDir).
		Str("key_fp", w.proc.Key().Fingerprint()).Msg("watching inbox")

	if w.cfg.ProcessExisting {
		entries, err := os.ReadDir(w.cfg.InboxDir)
		if err != nil {
			return &fileproc.IOError{Op: "readdir", Path: w.cfg.InboxDir, Err: err}
		}
		for _, e := range entries {
			w.schedule(ctx, filepath.Join(w.cfg.InboxDir, e.Name()))
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
				w.schedule(ctx, ev.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watcher error")
		case path := <-w.ready:
			w.encrypt(path)
		}
	}
}

// schedule (re)starts the settle timer of path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	if w.ignored(path) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(w.cfg.Settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.cfg.Settle, func() {
		select {
		case w.ready <- path:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for p, t := range w.pending {
		t.Stop()
		delete(w.pending, p)
	}
}

func (w *Watcher) ignored(path string) bool {
	name := filepath.Base(path)
	return strings.HasPrefix(name, ".") ||
		strings.HasSuffix(name, w.proc.Extension()) ||
		name == w.cfg.KeyFileName
}

func (w *Watcher) encrypt(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	w.mu.Unlock()

	st, err := os.Stat(path)
	if err != nil || !st.Mode().IsRegular() {
		// removed again before it settled, or a directory
		return
	}
	res, err := w.proc.EncryptFile(path, w.proc.EncryptedName(w.cfg.OutputDir, path))
	w.mu.Lock()
	if err != nil {
		w.stats.Failed++
		w.stats.LastError = err.Error()
	} else {
		w.stats.Encrypted++
		w.stats.InBytes += int64(res.InBytes)
		w.stats.LastFile = path
	}
	w.mu.Unlock()
	if err != nil {
		log.Error().Err(err).Str("src", path).Msg("drop-box encryption failed")
	}
	if w.cfg.OnResult != nil {
		w.cfg.OnResult(res, err)
	}
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Key returns the key files are encrypted under.
func (w *Watcher) Key() key.Key { return w.proc.Key() }

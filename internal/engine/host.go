package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dshills/textmodel/internal/syntax/grammar"
	"github.com/dshills/textmodel/internal/syntax/scheduler"
)

// Host runs sessions on a single loop goroutine and keeps them on the
// latest version of their grammars.
type Host struct {
	cfg      Config
	queue    *scheduler.Queue
	loop     *scheduler.Loop
	registry *grammar.Registry
	watcher  *grammar.Watcher
	logger   *slog.Logger

	// sessions is only touched on the loop goroutine.
	sessions map[*Session]struct{}

	closeOnce sync.Once
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithHostLogger sets the logger shared by the host and its sessions.
func WithHostLogger(l *slog.Logger) HostOption {
	return func(h *Host) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHost creates a host from cfg, loading the grammar directory if one is
// configured. The host does nothing until Run is called.
func NewHost(cfg Config, opts ...HostOption) (*Host, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h := &Host{
		cfg:      cfg,
		logger:   discardLogger(),
		sessions: make(map[*Session]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.queue = scheduler.NewQueue(scheduler.RealClock)
	h.loop = scheduler.NewLoop(h.queue, scheduler.WithLoopLogger(h.logger))
	compileOpts := append(cfg.CompileOptions(), grammar.WithLogger(h.logger))
	h.registry = grammar.NewRegistry(
		grammar.WithExpiration(time.Duration(cfg.Grammar.CacheExpiration), grammar.DefaultCleanupInterval),
		grammar.WithCompileOptions(compileOpts...),
		grammar.WithRegistryLogger(h.logger),
	)

	if err := h.loadGrammars(); err != nil {
		h.Close()
		return nil, err
	}
	return h, nil
}

func (h *Host) loadGrammars() error {
	dir := h.cfg.Grammar.Dir
	if dir == "" {
		return nil
	}
	if !h.cfg.Grammar.Watch {
		names, err := h.registry.LoadDir(dir)
		if err != nil {
			return err
		}
		h.logger.Info("grammars loaded", "dir", dir, "count", len(names))
		return nil
	}

	w, err := grammar.NewWatcher(h.registry, h.onReload,
		grammar.WithReloadDelay(time.Duration(h.cfg.Grammar.ReloadDelay)),
		grammar.WithWatcherLogger(h.logger),
	)
	if err != nil {
		return fmt.Errorf("starting grammar watcher: %w", err)
	}
	h.watcher = w

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading grammar directory %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !grammar.IsGrammarFile(e.Name()) {
			continue
		}
		if _, err := w.Watch(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	h.logger.Info("watching grammars", "dir", dir)
	return nil
}

// Registry returns the host's grammar registry.
func (h *Host) Registry() *grammar.Registry {
	return h.registry
}

// Config returns the host's configuration.
func (h *Host) Config() Config {
	return h.cfg
}

// Run processes session work until ctx is cancelled or the host is closed.
// Open sessions are closed before it returns.
func (h *Host) Run(ctx context.Context) error {
	err := h.loop.Run(ctx)
	for s := range h.sessions {
		h.release(s)
	}
	return err
}

// Do runs fn on the loop goroutine and waits for it. Sessions must only be
// used from inside fn.
func (h *Host) Do(ctx context.Context, fn func() error) error {
	return h.loop.Do(ctx, fn)
}

// Open creates a session for text using the grammar registered for path's
// extension.
func (h *Host) Open(ctx context.Context, path, text string) (*Session, error) {
	return h.open(ctx, text, func() (*grammar.Language, error) {
		return h.registry.ForPath(path)
	})
}

// OpenLanguage creates a session for text using the grammar called name.
func (h *Host) OpenLanguage(ctx context.Context, name, text string) (*Session, error) {
	return h.open(ctx, text, func() (*grammar.Language, error) {
		return h.registry.Get(name)
	})
}

func (h *Host) open(ctx context.Context, text string, resolve func() (*grammar.Language, error)) (*Session, error) {
	var s *Session
	err := h.Do(ctx, func() error {
		lang, err := acquire(resolve)
		if err != nil {
			return err
		}
		s, err = NewSession(lang, text,
			WithConfig(h.cfg),
			WithQueue(h.queue),
			WithLogger(h.logger),
		)
		if err != nil {
			lang.Release()
			return err
		}
		h.sessions[s] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CloseSession closes s and forgets it.
func (h *Host) CloseSession(ctx context.Context, s *Session) error {
	return h.Do(ctx, func() error {
		if _, ok := h.sessions[s]; !ok {
			return ErrClosed
		}
		h.release(s)
		return nil
	})
}

// release closes s, forgets it and drops its hold on its language.
func (h *Host) release(s *Session) {
	delete(h.sessions, s)
	s.Close()
	s.Language().Release()
}

// acquireAttempts bounds retries when a resolved language is evicted
// before it can be acquired.
const acquireAttempts = 3

// acquire resolves a language and records a user of it.
func acquire(resolve func() (*grammar.Language, error)) (*grammar.Language, error) {
	var name string
	for range acquireAttempts {
		lang, err := resolve()
		if err != nil {
			return nil, err
		}
		if lang.Acquire() {
			return lang, nil
		}
		name = lang.Name
	}
	return nil, fmt.Errorf("%w: %s", grammar.ErrLanguageClosed, name)
}

// onReload runs on the watcher goroutine and moves the swap onto the loop.
func (h *Host) onReload(res grammar.Reload) {
	if res.Err != nil {
		return
	}
	lang := res.Language
	if !h.loop.Post(func() { h.swap(lang) }) {
		h.logger.Warn("grammar reload dropped", "name", lang.Name)
	}
}

// swap moves every session using lang's grammar onto lang and releases
// the languages they leave behind.
func (h *Host) swap(lang *grammar.Language) {
	for s := range h.sessions {
		old := s.Language()
		if old == lang || old.Name != lang.Name {
			continue
		}
		if !lang.Acquire() {
			// A newer reload already replaced lang and will swap again.
			h.logger.Debug("reloaded grammar already closed", "name", lang.Name)
			return
		}
		if err := s.SetLanguage(lang); err != nil {
			lang.Release()
			h.logger.Warn("language swap failed", "name", lang.Name, "error", err)
			continue
		}
		old.Release()
	}
}

// Close stops the grammar watcher and the loop. It is safe to call more
// than once.
func (h *Host) Close() {
	h.closeOnce.Do(func() {
		if h.watcher != nil {
			if err := h.watcher.Close(); err != nil {
				h.logger.Warn("closing grammar watcher", "error", err)
			}
		}
		h.loop.Close()
		h.registry.Close()
	})
}

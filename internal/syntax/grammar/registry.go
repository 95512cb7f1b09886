package grammar

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache lifetimes for compiled languages.
const (
	DefaultExpiration      = 10 * time.Minute
	DefaultCleanupInterval = 30 * time.Minute
)

// Registry holds grammar definitions and caches their compiled languages.
// Compiled languages expire from the cache and are rebuilt on demand. A
// language leaving the cache is closed once every Acquire on it has been
// released.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]*Definition
	byExt map[string]string

	// compileMu serializes compiles so a cached language is never
	// overwritten without being retired.
	compileMu sync.Mutex

	compiled    *gocache.Cache
	expiration  time.Duration
	cleanup     time.Duration
	compileOpts []CompileOption
	logger      *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithExpiration sets how long compiled languages stay cached and how often
// expired ones are purged.
func WithExpiration(expiration, cleanup time.Duration) RegistryOption {
	return func(r *Registry) {
		r.expiration = expiration
		r.cleanup = cleanup
	}
}

// WithCompileOptions sets the options used to compile every grammar.
func WithCompileOptions(opts ...CompileOption) RegistryOption {
	return func(r *Registry) {
		r.compileOpts = append(r.compileOpts, opts...)
	}
}

// WithRegistryLogger sets the logger.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		defs:       make(map[string]*Definition),
		byExt:      make(map[string]string),
		expiration: DefaultExpiration,
		cleanup:    DefaultCleanupInterval,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.compiled = gocache.New(r.expiration, r.cleanup)
	r.compiled.OnEvicted(func(name string, v any) {
		if lang, ok := v.(*Language); ok {
			lang.retire()
			r.logger.Debug("grammar evicted", "name", name)
		}
	})
	return r
}

// Register adds or replaces a definition and drops its compiled language.
func (r *Registry) Register(def *Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.defs[def.Name]; ok {
		for _, ext := range normalizeExtensions(old.Extensions) {
			if r.byExt[ext] == def.Name {
				delete(r.byExt, ext)
			}
		}
	}
	r.defs[def.Name] = def
	for _, ext := range normalizeExtensions(def.Extensions) {
		r.byExt[ext] = def.Name
	}
	r.compiled.Delete(def.Name)
}

// LoadFile loads the grammar file at path and registers it.
func (r *Registry) LoadFile(path string) (*Definition, error) {
	def, err := Load(path)
	if err != nil {
		return nil, err
	}
	r.Register(def)
	r.logger.Debug("grammar registered", "name", def.Name, "path", path)
	return def, nil
}

// LoadDir registers every grammar file directly inside dir and returns
// their names. Loading stops at the first bad file.
func (r *Registry) LoadDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading grammar directory %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !IsGrammarFile(e.Name()) {
			continue
		}
		def, err := r.LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return names, err
		}
		names = append(names, def.Name)
	}
	return names, nil
}

// Get returns the compiled language called name. Callers keeping the
// language beyond the cache lifetime must Acquire it.
func (r *Registry) Get(name string) (*Language, error) {
	if lang, ok := r.cached(name); ok {
		return lang, nil
	}

	r.compileMu.Lock()
	defer r.compileMu.Unlock()
	if lang, ok := r.cached(name); ok {
		return lang, nil
	}

	r.mu.RLock()
	def, ok := r.defs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	lang, err := def.Compile(r.compileOpts...)
	if err != nil {
		return nil, err
	}
	// An expired entry may still be held by the cache until the janitor
	// runs; Delete retires it before Set replaces it.
	r.compiled.Delete(name)
	r.compiled.Set(name, lang, gocache.DefaultExpiration)
	r.logger.Debug("grammar compiled", "name", name)
	return lang, nil
}

func (r *Registry) cached(name string) (*Language, bool) {
	v, ok := r.compiled.Get(name)
	if !ok {
		return nil, false
	}
	lang, ok := v.(*Language)
	return lang, ok
}

// ForPath returns the language registered for path's extension.
func (r *Registry) ForPath(path string) (*Language, error) {
	ext := strings.ToLower(filepath.Ext(path))
	r.mu.RLock()
	name, ok := r.byExt[ext]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no grammar for %q", ErrNotFound, ext)
	}
	return r.Get(name)
}

// Definition returns the registered definition called name.
func (r *Registry) Definition(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// Invalidate drops the compiled language called name.
func (r *Registry) Invalidate(name string) {
	r.compiled.Delete(name)
}

// Close drops every compiled language from the cache. Languages still
// acquired are closed on their last Release.
func (r *Registry) Close() {
	r.compiled.DeleteExpired()
	for name := range r.compiled.Items() {
		r.compiled.Delete(name)
	}
}

// Names returns the registered grammar names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

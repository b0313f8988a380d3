package transcribe

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/scribe/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// ErrUnknownModel is returned for identifiers outside the catalog.
var ErrUnknownModel = errors.New("unsupported model")

// LoadError reports a failed model load. Failed loads are not cached.
type LoadError struct {
	Model string
	Err   error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load model %q: %v", e.Model, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// Registry lazily loads and memoizes models keyed by identifier. Entries live
// until Close. Concurrent first requests for one identifier share a single load.
type Registry struct {
	catalog *Catalog
	loader  Loader
	log     zerolog.Logger

	mu     sync.RWMutex
	models map[string]Model
	group  singleflight.Group
}

// NewRegistry creates an empty registry over the catalog's identifiers.
func NewRegistry(catalog *Catalog, loader Loader, log zerolog.Logger) *Registry {
	return &Registry{
		catalog: catalog,
		loader:  loader,
		log:     log,
		models:  make(map[string]Model),
	}
}

// Get returns the cached model for id, loading it on first use.
func (r *Registry) Get(ctx context.Context, id string) (Model, error) {
	if !r.catalog.Has(id) {
		return nil, fmt.Errorf("%w %q", ErrUnknownModel, id)
	}
	if m, ok := r.cached(id); ok {
		return m, nil
	}

	// The load outlives any single caller's cancellation: other callers may be
	// waiting on the same flight.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := r.group.Do(id, func() (any, error) {
		if m, ok := r.cached(id); ok {
			return m, nil
		}
		return r.load(loadCtx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(Model), nil
}

func (r *Registry) cached(id string) (Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[id]
	return m, ok
}

func (r *Registry) load(ctx context.Context, id string) (Model, error) {
	start := time.Now()
	r.log.Info().Str("model", id).Msg("loading model")

	m, err := r.safeLoad(ctx, id)
	elapsed := time.Since(start)
	metrics.ModelLoadDuration.WithLabelValues(id).Observe(elapsed.Seconds())
	if err != nil {
		metrics.ModelLoadsTotal.WithLabelValues(id, "error").Inc()
		r.log.Error().Err(err).Str("model", id).Msg("model load failed")
		return nil, &LoadError{Model: id, Err: err}
	}
	metrics.ModelLoadsTotal.WithLabelValues(id, "ok").Inc()

	r.mu.Lock()
	r.models[id] = m
	r.mu.Unlock()

	r.log.Info().Str("model", id).Str("engine", m.Name()).Dur("took", elapsed).Msg("model ready")
	return m, nil
}

// safeLoad turns a loader panic into an error. singleflight re-panics in a
// fresh goroutine for waiting callers, which would take the process down.
func (r *Registry) safeLoad(ctx context.Context, id string) (m Model, err error) {
	defer func() {
		if rv := recover(); rv != nil {
			r.log.Error().Interface("panic", rv).Str("model", id).Msg("model loader panicked")
			m, err = nil, fmt.Errorf("loader panic: %v", rv)
		}
	}()
	return r.loader.Load(ctx, id)
}

// Loaded returns the identifiers currently loaded, sorted.
func (r *Registry) Loaded() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.models))
	for id := range r.models {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Close releases every loaded model. The registry is empty afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for id, m := range r.models {
		if err := m.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close model %q: %w", id, err))
		}
		delete(r.models, id)
	}
	return errors.Join(errs...)
}

// Package readiness bootstraps slow external dependencies (the hand tracking
// model, the audio device) once, trying several sources in order, and lets
// callers wait for the outcome instead of polling.
package readiness

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ayusman/paperdrum/internal/log"
)

// State is the lifecycle of a loader.
type State int

const (
	Unloaded State = iota
	Loading
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	// ErrNoSources is returned when a loader has nothing to try.
	ErrNoSources = errors.New("no sources configured")
	// ErrAllSourcesFailed wraps the individual source errors.
	ErrAllSourcesFailed = errors.New("all sources failed")
)

// Source is one way of obtaining the dependency.
type Source[T any] struct {
	Name string
	Open func(ctx context.Context) (T, error)
}

// Loader resolves a dependency from the first source that succeeds.
// The first call to Start or Load triggers loading; later calls share the result.
type Loader[T any] struct {
	name    string
	sources []Source[T]

	once sync.Once
	done chan struct{}

	mu    sync.RWMutex
	state State
	value T
	err   error
}

// New creates a loader that tries sources in order.
func New[T any](name string, sources ...Source[T]) *Loader[T] {
	return &Loader[T]{
		name:    name,
		sources: sources,
		done:    make(chan struct{}),
	}
}

// Start begins loading in the background if it has not started yet.
// ctx bounds the loading attempt itself.
func (l *Loader[T]) Start(ctx context.Context) {
	l.once.Do(func() {
		l.mu.Lock()
		l.state = Loading
		l.mu.Unlock()

		go l.run(ctx)
	})
}

func (l *Loader[T]) run(ctx context.Context) {
	defer close(l.done)

	if len(l.sources) == 0 {
		l.finish(*new(T), fmt.Errorf("%s: %w", l.name, ErrNoSources))
		return
	}

	var errs []error
	for _, src := range l.sources {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		v, err := src.Open(ctx)
		if err == nil {
			log.Info("dependency ready", "name", l.name, "source", src.Name)
			l.finish(v, nil)
			return
		}
		log.Debug("dependency source failed", "name", l.name, "source", src.Name, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", src.Name, err))
	}

	err := fmt.Errorf("%s: %w: %w", l.name, ErrAllSourcesFailed, errors.Join(errs...))
	log.Warn("dependency unavailable", "name", l.name, "error", err)
	l.finish(*new(T), err)
}

func (l *Loader[T]) finish(v T, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.value = v
	l.err = err
	if err != nil {
		l.state = Failed
	} else {
		l.state = Ready
	}
}

// Wait blocks until loading finishes or ctx is done. It does not start loading.
func (l *Loader[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-l.done:
		l.mu.RLock()
		defer l.mu.RUnlock()
		return l.value, l.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Load starts loading if needed and waits for the result.
func (l *Loader[T]) Load(ctx context.Context) (T, error) {
	l.Start(ctx)
	return l.Wait(ctx)
}

// Get returns the value without blocking. ok is false unless the loader is ready.
func (l *Loader[T]) Get() (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.value, l.state == Ready
}

// State returns the current lifecycle state.
func (l *Loader[T]) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Err returns the failure reason once the loader has failed.
func (l *Loader[T]) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

// Done is closed when loading has finished, successfully or not.
func (l *Loader[T]) Done() <-chan struct{} {
	return l.done
}

// Name returns the dependency name.
func (l *Loader[T]) Name() string {
	return l.name
}

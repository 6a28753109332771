package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/javabuild/internal/logfields"
	"git.home.luguber.info/inful/javabuild/internal/metrics"
	"git.home.luguber.info/inful/javabuild/internal/stamp"
)

// Engine holds what sessions share: the unit store, the registered
// builders and the stamper. It is safe for concurrent use once all builders
// are registered.
type Engine struct {
	store    Store
	builders map[string]Builder
	stamper  *stamp.Stamper
	logger   *slog.Logger
	recorder metrics.Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger; slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithStamper shares a stamper between engines.
func WithStamper(s *stamp.Stamper) Option {
	return func(e *Engine) { e.stamper = s }
}

// New returns an engine persisting units in store.
func New(store Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:    store,
		builders: make(map[string]Builder),
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.stamper == nil {
		s, err := stamp.NewStamper(stamp.DefaultCacheSize)
		if err != nil {
			return nil, err
		}
		e.stamper = s
	}
	return e, nil
}

// Register adds a builder. Registering two builders with one name panics.
func (e *Engine) Register(b Builder) {
	if _, dup := e.builders[b.Name()]; dup {
		panic(fmt.Sprintf("engine: builder %q registered twice", b.Name()))
	}
	e.builders[b.Name()] = b
}

// NewSession starts a session. A session must be used from one goroutine;
// run independent sessions concurrently instead.
func (e *Engine) NewSession() *Session {
	id := uuid.NewString()
	return newSession(e, id, e.logger.With(logfields.Session(id)))
}

// Units lists the persisted units.
func (e *Engine) Units(ctx context.Context) ([]*Unit, error) {
	return e.store.List(ctx)
}

// Forget drops every persisted unit so that the next session rebuilds all.
func (e *Engine) Forget(ctx context.Context) error {
	return e.store.Clear(ctx)
}

func (e *Engine) builder(name string) (Builder, error) {
	b, ok := e.builders[name]
	if !ok {
		return nil, fmt.Errorf("no builder registered for %q", name)
	}
	return b, nil
}

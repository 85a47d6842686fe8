package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"notepilot/config"
	"notepilot/controller"
	"notepilot/engine"
	"notepilot/extract"
	"notepilot/model"
	"notepilot/provider"
	"notepilot/session"
	"notepilot/storage"
	"notepilot/tools"
)

const (
	Version = "v0.1.0"
	License = "Apache-2.0"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the composed components for one command invocation.
type app struct {
	cfg        *config.Config
	db         *storage.DB
	notes      *storage.NoteStore
	extractor  *extract.Extractor
	dispatcher *tools.Dispatcher

	provider   model.Provider
	engine     *engine.Engine
	session    *session.Session
	controller *controller.Controller

	closers []func()
}

// openStore loads configuration and opens the note database. It is enough
// for commands that never talk to a model.
func openStore(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	a := &app{cfg: cfg}
	a.closers = append(a.closers, config.InitDebugLog(cfg.DataDir()))

	db, err := storage.Open(ctx, config.DatabasePath(cfg.DataDir()))
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to open note storage: %w", err)
	}
	a.db = db
	a.notes = db.Notes()
	a.closers = append(a.closers, func() {
		if err := db.Close(); err != nil {
			config.Log.Warnf("[Main] failed to close database: %v", err)
		}
	})

	a.extractor = extract.New(cfg.CacheCapacity)
	a.dispatcher = tools.NewDispatcher(a.notes,
		tools.WithExtractor(a.extractor),
		tools.WithObserver(tools.Observer{
			OnNoteCreated: func(n model.Note) { config.Log.Infof("[Notes] created %s %q", n.ID, n.Title) },
			OnNoteUpdated: func(n model.Note) {
				config.Log.Infof("[Notes] updated %s %q", n.ID, n.Title)
				if a.controller != nil {
					a.controller.NoteChanged(n)
				}
			},
			OnNoteDeleted: func(id string) {
				config.Log.Infof("[Notes] deleted %s", id)
				if a.controller != nil && a.controller.NoteDeleted(id) {
					config.Log.Infof("[Notes] closed deleted note %s", id)
				}
			},
		}),
	)
	return a, nil
}

// newApp composes the full conversation stack on top of openStore.
func newApp(ctx context.Context) (*app, error) {
	a, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	p, err := provider.Initialize(ctx, a.cfg)
	if err != nil {
		a.close()
		return nil, err
	}
	a.provider = p

	opts := []engine.Option{
		engine.WithMaxRounds(a.cfg.MaxToolRounds),
		engine.WithExtractor(a.extractor),
		engine.WithPersona(a.cfg.Persona),
	}
	if a.cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics, err := engine.NewMetrics(reg)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		opts = append(opts, engine.WithMetrics(metrics))
		a.serveMetrics(reg)
	}
	a.engine = engine.New(p, a.dispatcher, opts...)

	a.session = session.New(a.db.Transcript(),
		session.WithMemorySize(a.cfg.MemorySize),
		session.WithMemoryCache(storage.NewMemoryFile(config.MemoryCachePath(a.cfg.DataDir()))),
	)
	// Flush queued transcript writes before the database closes.
	a.closers = append(a.closers, func() {
		if err := a.session.Close(); err != nil {
			config.Log.Warnf("[Main] failed to close session: %v", err)
		}
	})
	if err := a.session.Load(ctx); err != nil {
		config.Log.Warnf("[Main] failed to restore chat history: %v", err)
	}

	a.controller = controller.New(a.session, a.engine)
	return a, nil
}

func (a *app) serveMetrics(reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			config.Log.Errorf("[Metrics] server stopped: %v", err)
		}
	}()
	config.Log.Infof("[Metrics] serving on %s/metrics", a.cfg.MetricsAddr)

	a.closers = append(a.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
}

// close runs the closers in reverse order.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

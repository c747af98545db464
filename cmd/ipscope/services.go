package main

import (
	"ipscope/internal/ai"
	"ipscope/internal/analyzer"
	"ipscope/internal/app"
	"ipscope/internal/config"
	"ipscope/internal/credential"
	"ipscope/internal/db"
	"ipscope/internal/geo"
	"ipscope/internal/history"
	"ipscope/internal/logger"
	"ipscope/internal/metrics"
	"ipscope/internal/netutil"
	"ipscope/internal/storage"
	"ipscope/internal/trace"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// services is everything a command needs, built from the config.
type services struct {
	cfg      *config.Config
	database *gorm.DB
	kv       storage.KV
	provider geo.Provider
	registry *prometheus.Registry
	metrics  *metrics.Collector
	history  history.Store
	creds    *credential.Manager
	app      *app.App
}

// setup loads config, opens the store and wires the application. Failures are fatal.
func setup() *services {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		logger.Log.Fatalf("Error loading config: %v", err)
	}
	if noProxy {
		cfg.Network.ProxyURL = ""
	}

	database, err := db.Connect(cfg.Database.Path)
	if err != nil {
		logger.Log.Fatalf("Error connecting to DB: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		db.Close(database)
		logger.Log.Fatalf("Error migrating DB: %v", err)
	}
	kv := storage.NewSQL(database)

	client, err := netutil.NewClient(cfg.Network.Timeout, cfg.Network.ProxyURL)
	if err != nil {
		db.Close(database)
		logger.Log.Fatalf("Error building HTTP client: %v", err)
	}

	provider, err := geo.Get(cfg.Geo.Provider, cfg.Geo, client)
	if err != nil {
		db.Close(database)
		logger.Log.Fatalf("Error initializing geo provider: %v", err)
	}
	logger.Log.Debugf("Using geo provider: %s", provider.Name())

	registry := prometheus.NewRegistry()
	mc := metrics.New(registry)

	store := history.NewKVStore(kv, history.Options{
		MaxEntries:   cfg.History.MaxEntries,
		DedupeWindow: cfg.History.DedupeWindow,
	})

	gemini := ai.NewGemini(cfg.AI, client, mc)
	creds := credential.NewManager(kv, gemini, cfg.EnvCredential())

	an := analyzer.New(
		trace.NewFetcher(cfg.Trace.URL, client),
		provider,
		store,
		analyzer.WithMetrics(mc),
		analyzer.WithTimestampLayout(cfg.History.TimestampLayout),
	)

	return &services{
		cfg:      cfg,
		database: database,
		kv:       kv,
		provider: provider,
		registry: registry,
		metrics:  mc,
		history:  store,
		creds:    creds,
		app:      app.New(an, store, creds, gemini, cfg.Geo.Locale),
	}
}

func (r *services) Close() {
	geo.Close(r.provider)
	db.Close(r.database)
}

// fatalf releases the store before exiting, since deferred calls do not run on exit.
func (r *services) fatalf(format string, args ...interface{}) {
	r.Close()
	logger.Log.Fatalf(format, args...)
}

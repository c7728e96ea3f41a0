package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"phishguard.org/internal/auth"
	"phishguard.org/internal/classifier"
	"phishguard.org/internal/config"
	"phishguard.org/internal/features"
	"phishguard.org/internal/httpapi"
	"phishguard.org/internal/logstore"
	"phishguard.org/internal/obs"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	configPath := flag.String("config", os.Getenv("PHISHGUARD_CONFIG"), "Path to YAML config (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	bootstrap := []auth.BootstrapUser{
		{Email: cfg.Bootstrap.AdminEmail, Username: cfg.Bootstrap.AdminUsername, Password: cfg.Bootstrap.AdminPassword, Role: auth.RoleAdmin},
		{Email: cfg.Bootstrap.UserEmail, Username: cfg.Bootstrap.UserUsername, Password: cfg.Bootstrap.UserPassword, Role: auth.RoleUser},
	}

	var (
		db        *sql.DB
		userStore auth.UserStore
		logStore  logstore.Store
	)
	if cfg.DatabaseDSN != "" {
		db, err = openDB(cfg)
		if err != nil {
			log.Fatalf("connect db: %v", err)
		}
		defer db.Close()
		userStore = auth.NewPGStore(db, bootstrap)
		logStore = logstore.NewPGStore(db, cfg.LogFullURLs)
	} else {
		log.Println("no database DSN configured, using in-memory stores")
		userStore = auth.NewMemoryStore(bootstrap...)
		logStore = logstore.NewMemoryStore(cfg.LogFullURLs)
	}

	tokens, err := auth.NewTokenService(cfg.AuthSecret, cfg.TokenTTL())
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	models := classifier.NewRegistry()
	if cfg.EnableHeuristicModel {
		models.Load(classifier.NewHeuristic())
	}

	api := httpapi.New(httpapi.Options{
		Users:         auth.NewService(userStore),
		Tokens:        tokens,
		Logs:          logStore,
		Models:        models,
		Extractor:     features.NewExtractor(cfg.SuspiciousTokens),
		ReadyProbe:    httpapi.ReadyProbe{DB: db},
		AdminToken:    cfg.AdminToken,
		TokenTTL:      cfg.TokenTTL(),
		MaxURLLength:  cfg.MaxURLLength,
		Version:       version,
		RateBurst:     cfg.RateBurst,
		RatePerSecond: cfg.RatePerSecond,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting phishguard-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}

// openDB opens the pool and pings it with a bounded retry loop so the
// service tolerates the database starting after it.
func openDB(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	delay := cfg.ConnectRetryDelay()
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err == nil {
			return db, nil
		}
		if attempt >= cfg.ConnectRetries {
			db.Close()
			return nil, err
		}
		log.Printf("database not ready (attempt %d/%d): %v", attempt, cfg.ConnectRetries, err)
		time.Sleep(delay)
	}
}

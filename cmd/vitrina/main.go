package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/erazemk/vitrina/internal/api"
	"github.com/erazemk/vitrina/internal/config"
	"github.com/erazemk/vitrina/internal/db"
	"github.com/erazemk/vitrina/internal/logger"
	"github.com/erazemk/vitrina/internal/media"
	"github.com/erazemk/vitrina/internal/service"
	"github.com/erazemk/vitrina/internal/session"
	"github.com/erazemk/vitrina/internal/store"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	fs := flag.NewFlagSet("vitrina", flag.ContinueOnError)

	var dbPath string
	fs.StringVar(&dbPath, "db", "", "")
	fs.StringVar(&dbPath, "d", "", "")

	var addr string
	fs.StringVar(&addr, "addr", "", "")
	fs.StringVar(&addr, "a", "", "")

	var logPath string
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	var envFile string
	fs.StringVar(&envFile, "env-file", ".env", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: vitrina [flags]

Flags:
  -d, -db <path>          SQLite database path (default: $DATABASE_PATH or data/database.sqlite)
  -a, -addr <host:port>   listen address (default: $HOST:$PORT or 0.0.0.0:3000)
  -l, -log <path>         log file path (default: $LOG_FILE, stdout/stderr only when empty)
  -env-file <path>        environment file loaded before the environment (default: .env)
  -h, -help               show this help and exit
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(context.Background(), envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if logPath != "" {
		cfg.Log.File = logPath
	}
	if addr != "" {
		if err := cfg.SetAddr(addr); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}

	log := logger.Init(logger.Options{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		File:   cfg.Log.File,
	})
	defer logger.Close()

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("fatal error")
		logger.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx := context.Background()

	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer database.Close()

	// Ensure schema exists (idempotent).
	if err := db.EnsureSchema(database); err != nil {
		return fmt.Errorf("ensuring database schema: %w", err)
	}
	log.Info().Str("path", cfg.DatabasePath).Msg("database ready")

	auth := service.NewAuthService(database, cfg.BcryptCost, log)
	created, err := auth.EnsureDefaultAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password)
	if err != nil {
		return fmt.Errorf("seeding admin: %w", err)
	}
	if created && cfg.Admin.Password == "admin123" {
		log.Warn().Str("user", cfg.Admin.Username).Msg("default admin password in use, change it after logging in")
	}

	secret := cfg.Session.Secret
	if secret == "" {
		// Generated once on first run, then read from the database.
		secret, err = store.GetSessionSecret(ctx, database)
		if err != nil {
			return fmt.Errorf("loading session secret: %w", err)
		}
	}

	sessionStore, err := session.NewStore(session.Options{
		Backend: cfg.Session.Backend,
		Dir:     cfg.Session.Dir,
		Secret:  secret,
		TTL:     cfg.Session.TTL,
		Secure:  cfg.Session.Secure,
	})
	if err != nil {
		return fmt.Errorf("creating session store: %w", err)
	}
	sessions := session.NewManager(sessionStore, cfg.Session.Cookie, cfg.Session.TTL, log)

	sweeper, err := session.NewSweeper(sessionStore, cfg.Session.SweepInterval, log)
	if err != nil {
		return err
	}
	sweeper.Start()
	defer sweeper.Stop()

	images, err := media.NewDiskStore(cfg.UploadsDir)
	if err != nil {
		return err
	}
	remover := media.NewBackgroundRemover(images, log)
	defer remover.Wait()

	router := api.NewRouter(api.Config{
		DB:          database,
		Auth:        auth,
		Catalog:     service.NewCatalogService(database, images, remover, cfg.MaxUploadBytes, log),
		Sessions:    sessions,
		UploadsDir:  images.Dir(),
		PublicURL:   cfg.PublicURL,
		Environment: cfg.Env,
		Development: cfg.IsDevelopment(),
		Version:     version,
		CORSOrigins: cfg.Origins(),
		Log:         log,
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("server forced to shutdown")
		}
	}()

	log.Info().
		Str("addr", cfg.Addr()).
		Str("environment", cfg.Env).
		Str("sessions", cfg.Session.Backend).
		Msg("server started")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info().Msg("server stopped, closing database")
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"google.golang.org/grpc"

	"tasktrack.org/internal/auth"
	"tasktrack.org/internal/config"
	"tasktrack.org/internal/httpapi"
	"tasktrack.org/internal/migrate"
	"tasktrack.org/internal/obs"
	"tasktrack.org/internal/seed"
	"tasktrack.org/internal/store/pg"
	"tasktrack.org/internal/tracker"
)

var version = "0.1.0"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		configPath  string
		runSeed     bool
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("tasktrack-api", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to YAML configuration file")
	flagSet.BoolVar(&runSeed, "seed", false, "seed an empty store with organizations A/B/C and admin/owner accounts")
	flagSet.BoolVar(&showVersion, "version", false, "print version and exit")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Println("tasktrack-api", version)
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	obs.SetLevel(cfg.Log.Level)
	obs.Init()
	obs.InitBuildInfo(version)
	log := obs.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store tracker.Store
		probe httpapi.ReadyProbe
	)
	if cfg.Database.DSN != "" {
		pgStore, err := pg.Open(cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer pgStore.Close()
		if cfg.Database.AutoMigrate {
			applied, err := migrate.NewManager(pgStore.DB()).Up(ctx)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info().Strs("applied", applied).Msg("migrations applied")
		}
		store = pgStore
		probe = httpapi.ReadyProbe{DB: pgStore.DB()}
	} else {
		log.Warn().Msg("no database configured, using in-memory store")
		store = tracker.NewInMemory()
	}

	if runSeed {
		if _, err := seed.Run(ctx, store, seed.Credentials{
			AdminPassword: cfg.Seed.AdminPassword,
			OwnerPassword: cfg.Seed.OwnerPassword,
		}); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	svc, err := tracker.NewService(store, tracker.WithAssignmentPolicy(cfg.Assignment()))
	if err != nil {
		return err
	}
	authn, err := auth.NewAuthenticator(cfg.Auth.Secret, svc,
		auth.WithIssuer(cfg.Auth.Issuer),
		auth.WithTTL(cfg.Auth.TokenTTL),
	)
	if err != nil {
		return err
	}
	api, err := httpapi.New(httpapi.Options{
		Service:        svc,
		Auth:           authn,
		Ready:          probe,
		Version:        version,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		RateLimitRPS:   cfg.HTTP.RateLimitRPS,
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Str("assignment_policy", string(svc.AssignmentPolicy())).Msg("starting tasktrack-api")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	var grpcSrv *grpc.Server
	if cfg.GRPC.Addr != "" {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		grpcSrv = grpc.NewServer()
		health := httpapi.NewHealthServer(probe)
		health.Register(grpcSrv)
		go health.Watch(ctx, 0)
		go func() {
			log.Info().Str("addr", cfg.GRPC.Addr).Msg("starting grpc health server")
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- fmt.Errorf("grpc serve: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.Error().Err(err).Msg("server failed")
		stop()
	}
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("stopped")
	return nil
}

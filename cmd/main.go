// securyflex-verification-service
//
// Certificate validity, job eligibility and GPS check-in verification for
// security guards. Exposes a REST API and a gRPC service used by the Gateway:
//   - certificate validity of the caller
//   - eligibility of the caller for a job, with action items
//   - GPS check-in verification against the job site geofence
//   - job applications gated by eligibility, reviewed by the company
//
// A cron sweep publishes EVENT_CERTIFICATE_EXPIRING to Redis for certificates
// that enter the warning window.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"securyflex/verification-service/internal/application"
	"securyflex/verification-service/internal/config"
	"securyflex/verification-service/internal/db"
	"securyflex/verification-service/internal/eligibility"
	"securyflex/verification-service/internal/events"
	"securyflex/verification-service/internal/grpcserver"
	"securyflex/verification-service/internal/samples"
	"securyflex/verification-service/internal/scheduler"
	"securyflex/verification-service/internal/store"
	"securyflex/verification-service/internal/verification"
)

const version = "1.0.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel string

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers with the expiry sweep scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	cmd := &cobra.Command{
		Use:   "verification-service",
		Short: "Certificate, eligibility and GPS check-in verification",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(logLevel)
		},
		RunE: serve.RunE,
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(serve)
	cmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Publish expiry notifications once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd.Context())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("verification-service version %s\n", version)
		},
	})

	return cmd
}

func configureLogging(logLevel string) {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// deps are the connections and services shared by serve and sweep.
type deps struct {
	cfg  *config.Config
	pool *pgxpool.Pool
	rdb  *redis.Client
	pub  *events.RedisPublisher
	svc  *verification.Service
	mem  *samples.Memory // set when SAMPLE_CACHE=memory
}

func (d *deps) Close() {
	d.rdb.Close()
	d.pool.Close()
}

func connect(ctx context.Context) (*deps, error) {
	// ── Config ──────────────────────────────────────────────────────────────
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	log.Println("[verification-service] Connecting to PostgreSQL…")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}
	log.Println("[verification-service] PostgreSQL connected ✓")

	// ── Redis ────────────────────────────────────────────────────────────────
	log.Println("[verification-service] Connecting to Redis…")
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	log.Println("[verification-service] Redis connected ✓")

	st := store.NewPostgres(pool)
	pub := events.NewRedisPublisher(rdb)
	var (
		cache verification.SampleCache = samples.NewRedisCache(rdb, cfg.Policy.SampleTTL)
		mem   *samples.Memory
	)
	if cfg.SampleCache == config.SampleCacheMemory {
		mem = samples.NewMemory(cfg.Policy.SampleTTL, nil)
		cache = mem
		log.Println("[verification-service] Using in-process sample cache")
	}

	svc, err := verification.NewService(st, st, cache, pub, cfg.Policy)
	if err != nil {
		rdb.Close()
		pool.Close()
		return nil, err
	}

	return &deps{cfg: cfg, pool: pool, rdb: rdb, pub: pub, svc: svc, mem: mem}, nil
}

func runSweep(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	d, err := connect(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	n, err := d.svc.SweepExpiring(ctx)
	if err != nil {
		return err
	}
	log.Printf("[verification-service] Sweep published %d notification(s)", n)
	return nil
}

func runServe() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, err := connect(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	apps := application.NewService(d.pool, d.pub, func(ctx context.Context, guardID, jobID string) (*eligibility.Result, error) {
		report, err := d.svc.CheckEligibility(ctx, guardID, jobID)
		if err != nil {
			return nil, err
		}
		return report.Result, nil
	})

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	verification.NewHandler(d.svc, apps).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", d.cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[verification-service] v%s listening on :%s", version, d.cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[verification-service] HTTP server error: %v", err)
		}
	}()

	// ── gRPC server ──────────────────────────────────────────────────────────
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", d.cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	grpcSrv := grpc.NewServer()
	grpcserver.Register(grpcSrv, grpcserver.NewServer(d.svc))

	go func() {
		log.Printf("[verification-service] gRPC listening on :%s", d.cfg.GRPCPort)
		if err := grpcSrv.Serve(lis); err != nil {
			log.Fatalf("[verification-service] gRPC server error: %v", err)
		}
	}()

	// ── Expiry sweep ─────────────────────────────────────────────────────────
	sched := scheduler.New(d.svc, d.cfg.SweepIntervalHours)
	if d.mem != nil {
		err := sched.Every(d.cfg.Policy.SampleTTL, "sample purge", func() {
			if n := d.mem.Purge(); n > 0 {
				slog.Debug("purged expired samples", "count", n)
			}
		})
		if err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
	}
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[verification-service] Shutting down…")
	cancel()
	sched.Stop()
	grpcSrv.GracefulStop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[verification-service] Shutdown error: %v", err)
	}
	log.Println("[verification-service] Stopped.")
	return nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "verification-service",
		"version": version,
	})
}

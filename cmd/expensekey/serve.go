package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/expensekey/internal/auth"
	"github.com/mmynk/expensekey/internal/config"
	"github.com/mmynk/expensekey/internal/events"
	"github.com/mmynk/expensekey/internal/ledger"
	"github.com/mmynk/expensekey/internal/middleware"
	"github.com/mmynk/expensekey/internal/service"
	"github.com/mmynk/expensekey/internal/storage"
	"github.com/mmynk/expensekey/internal/storage/badger"
	"github.com/mmynk/expensekey/internal/storage/memory"
	"github.com/mmynk/expensekey/internal/storage/sqlite"
	"github.com/mmynk/expensekey/pkg/api"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ledger API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromContext(cmd.Context())
			if cfg == nil {
				return errors.New("no config found in context")
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			logger := commonRun(cfg)
			if err := serve(cmd.Context(), cfg, logger); err != nil {
				logger.Error("Server failed", "error", err)
				return err
			}
			return nil
		},
	}
}

// openStore opens the configured storage backend.
func openStore(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendSQLite:
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendBadger:
		s, err := badger.New(
			badger.WithDataDir(cfg.BadgerDir),
			badger.WithLogger(logger),
			badger.WithGC(true),
		)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// newPublisher always logs activity and also publishes to AMQP when configured.
func newPublisher(cfg *config.Config, logger *slog.Logger) (events.Publisher, error) {
	publishers := events.Fanout{events.NewLogPublisher(logger)}
	if cfg.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to AMQP: %w", err)
		}
		publishers = append(publishers, p)
	}
	return publishers, nil
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	logger.Info("Storage initialized", "backend", cfg.StorageBackend)

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	gateway := ledger.NewGateway(store,
		ledger.WithLogger(logger),
		ledger.WithPromRegistry(reg),
		ledger.WithQueueDepth(cfg.QueueDepth),
	)
	defer gateway.Close()

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	svc := service.NewLedgerService(gateway, auth.NewBcryptAuthenticator(0), jwtManager, publisher, logger)

	mux := http.NewServeMux()
	mux.Handle(api.NewLedgerServiceHandler(svc,
		connect.WithInterceptors(
			middleware.RequireAuth(jwtManager, api.PublicProcedures),
			middleware.LoggingInterceptor(logger),
		),
	))
	mux.Handle(grpchealth.NewHandler(grpchealth.NewStaticChecker(api.LedgerServiceName)))

	metricsHandler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	servers := []*http.Server{{
		Addr: cfg.ListenAddr,
		// Use h2c so we can serve HTTP/2 without TLS
		Handler:           h2c.NewHandler(corsMiddleware(mux), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}}
	if cfg.MetricsAddr == "" {
		mux.Handle("/metrics", metricsHandler)
	} else {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", metricsHandler)
		servers = append(servers, &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			logger.Info("Listening", "address", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen on %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", "timeout", cfg.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			errs = append(errs, srv.Shutdown(shutdownCtx))
		}
		return errors.Join(errs...)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

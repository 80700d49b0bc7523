package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-api/config"
	aptHandler "github.com/jwalitptl/clinic-api/internal/handler/appointment"
	"github.com/jwalitptl/clinic-api/internal/handler/doctor"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	"github.com/jwalitptl/clinic-api/internal/handler/insights"
	"github.com/jwalitptl/clinic-api/internal/migrations"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
	"github.com/jwalitptl/clinic-api/internal/router"
	appointmentService "github.com/jwalitptl/clinic-api/internal/service/appointment"
	eventService "github.com/jwalitptl/clinic-api/internal/service/event"
	statsService "github.com/jwalitptl/clinic-api/internal/service/stats"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-api",
		Short: "Clinic appointment booking and triage API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return runServer(cfg)
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, m *migrations.Migrator) error {
				return m.Up(ctx)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, m *migrations.Migrator) error {
				return m.Down(ctx)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, m *migrations.Migrator) error {
				version, err := m.Version(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", version)
				return nil
			})
		},
	})

	return cmd
}

func withMigrator(ctx context.Context, fn func(context.Context, *migrations.Migrator) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return fmt.Errorf("migrations require the %s driver, got %q", config.DriverPostgres, cfg.Database.Driver)
	}

	m, err := migrations.NewMigrator(ctx, cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer m.Close()

	return fn(ctx, m)
}

func tokenCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a staff bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
			token, err := tokens.IssueStaffToken(name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "staff member the token identifies")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

type stores struct {
	appointments repository.AppointmentRepository
	outbox       repository.OutboxRepository
	db           *sqlx.DB
}

func (s stores) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

func openStores(cfg config.DatabaseConfig) (stores, error) {
	if cfg.Driver == config.DriverMemory {
		return stores{
			appointments: memory.NewAppointmentRepository(),
			outbox:       memory.NewOutboxRepository(),
		}, nil
	}

	db, err := postgres.NewDB(cfg)
	if err != nil {
		return stores{}, err
	}
	return stores{
		appointments: postgres.NewAppointmentRepository(db),
		outbox:       postgres.NewOutboxRepository(db),
		db:           db,
	}, nil
}

func runServer(cfg *config.Config) error {
	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		JSON:       cfg.Server.Mode == "release",
	})

	st, err := openStores(cfg.Database)
	if err != nil {
		log.Error(err, "Failed to connect to database")
		return err
	}
	defer st.Close()

	m := metrics.NewMetrics("clinic", "api", prometheus.DefaultRegisterer)

	statsSvc := statsService.NewService(st.appointments, statsService.Config{
		CacheTTL:    cfg.Stats.CacheTTL,
		WeeklyGoal:  cfg.Stats.WeeklyGoal,
		SlotsPerDay: cfg.Stats.SlotsPerDay,
	}, m, log)

	appointmentSvc := appointmentService.NewService(st.appointments, appointmentService.Config{
		StrictTransitions: cfg.Lifecycle.StrictTransitions,
		DefaultActor:      cfg.Lifecycle.DefaultActor,
	}, m, log, statsSvc)

	if cfg.Events.Enabled {
		appointmentSvc.AddObserver(eventService.NewEventService(st.outbox, m, log))
	}

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)

	r := router.NewRouter(router.RouterConfig{
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:        cfg.RateLimit.Burst,
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		RequestTimeout:   cfg.Server.RequestTimeout,
		Registerer:       prometheus.DefaultRegisterer,
		Tokens:           tokens,
		DefaultActor:     cfg.Lifecycle.DefaultActor,
		ReleaseMode:      cfg.Server.Mode == "release",
	},
		health.NewHandler(st.appointments, prometheus.DefaultGatherer),
		aptHandler.NewHandler(appointmentSvc),
		doctor.NewHandler(appointmentSvc, statsSvc),
		insights.NewHandler(statsSvc),
	)
	r.Setup()

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting server", "port", cfg.Server.Port, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Error(err, "Server failed")
		return err
	case <-quit:
	}
	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "Server forced to shutdown")
		return err
	}

	log.Info("Server exited properly")
	return nil
}

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/hackgods/clinic-appointment-booking/internal/api"
	"github.com/hackgods/clinic-appointment-booking/internal/appointment"
	"github.com/hackgods/clinic-appointment-booking/internal/availability"
	"github.com/hackgods/clinic-appointment-booking/internal/clock"
	"github.com/hackgods/clinic-appointment-booking/internal/config"
	"github.com/hackgods/clinic-appointment-booking/internal/db"
	"github.com/hackgods/clinic-appointment-booking/internal/directory"
	"github.com/hackgods/clinic-appointment-booking/internal/metrics"
	redisclient "github.com/hackgods/clinic-appointment-booking/internal/redis"
	"github.com/hackgods/clinic-appointment-booking/internal/schedule"
	"github.com/hackgods/clinic-appointment-booking/internal/worker"
	"github.com/hackgods/clinic-appointment-booking/pkg/logging"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New(cfg.LogLevel, cfg.Env)
	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Str("timezone", cfg.Location.String()).Msg("api-server starting up")

	if cfg.JWTSecret == "" {
		logger.Warn().Msg("JWT_SECRET is empty; authenticated routes will reject every request")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 20})
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	// Connect Redis. Without it bookings still serialize on the database index.
	var (
		locker      redisclient.Locker = redisclient.NoopLocker{}
		redisPinger api.Pinger
	)
	rdb, err := redisclient.NewRedisClient(rootCtx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, slot lock disabled")
	} else {
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error().Err(err).Msg("error closing redis")
			}
		}()
		locker = redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
		redisPinger = pingRedis(rdb)
		logger.Info().Msg("connected to Redis")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewBookingMetrics(reg)
	clk := clock.System{Location: cfg.Location}

	dirRepo := directory.NewPgRepository(pgPool)
	scheduleRepo := schedule.NewPgRepository(pgPool)
	scheduleSvc := schedule.NewService(scheduleRepo, dirRepo, logger.With().Str("component", "schedule").Logger())
	appointmentSvc := appointment.NewService(
		appointment.NewPgRepository(pgPool), dirRepo, scheduleRepo, locker,
		appointment.WithClock(clk),
		appointment.WithMetrics(m),
		appointment.WithLogger(logger.With().Str("component", "appointment").Logger()),
	)
	availabilitySvc := availability.NewService(
		availability.NewPgRepository(pgPool), clk,
		availability.WithMetrics(m),
		availability.WithLimits(cfg.SearchDefaultLimit, cfg.SearchMaxLimit),
		availability.WithHorizon(cfg.SearchHorizonDays),
		availability.WithLogger(logger.With().Str("component", "availability").Logger()),
	)

	router := api.NewRouter(api.RouterConfig{
		Schedules:    scheduleSvc,
		Appointments: appointmentSvc,
		Availability: availabilitySvc,
		Postgres:     pgPool,
		Redis:        redisPinger,
		Gatherer:     reg,
		JWTSecret:    cfg.JWTSecret,
		Clock:        clk,
		Logger:       logger,
		Env:          cfg.Env,
		Version:      version,
	})

	srv := newServer(net.JoinHostPort("", cfg.HTTPPort), router)

	g, gctx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.RunSweep {
		sweeper := worker.NewCompletionWorker(appointmentSvc, cfg.SweepInterval, cfg.SweepTimeout, logger)
		g.Go(func() error {
			if err := sweeper.Start(gctx); err != nil {
				return err
			}
			<-gctx.Done()
			sweeper.Stop()
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down api-server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("api-server stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("api-server stopped")
}

func pingRedis(rdb *redis.Client) api.Pinger {
	return api.PingFunc(func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
}

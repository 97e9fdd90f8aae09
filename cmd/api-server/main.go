package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/medibook/medibook/internal/api"
	"github.com/medibook/medibook/internal/booking"
	"github.com/medibook/medibook/internal/config"
	"github.com/medibook/medibook/internal/db"
	"github.com/medibook/medibook/internal/directory"
	redisclient "github.com/medibook/medibook/internal/redis"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	log := newLogger(cfg.Env)
	defer func() { _ = log.Sync() }()

	log.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	var locker booking.Locker = booking.NewLocalLocker()
	routerCfg := api.RouterConfig{
		PgPool:  pgPool,
		Log:     log,
		Env:     cfg.Env,
		Version: version,
	}

	if cfg.RedisAddr != "" {
		rdb, err := redisclient.NewRedisClient(cfg)
		if err != nil {
			log.Fatal("redis connection error", zap.Error(err))
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Warn("error closing redis", zap.Error(err))
			}
		}()
		locker = redisclient.NewDoctorDayLocker(rdb, cfg.LockTTL)
		routerCfg.Redis = rdb
		log.Info("connected to Redis, using distributed doctor-day locks")
	} else {
		log.Info("no Redis configured, using in-process doctor-day locks")
	}

	grid, err := booking.NewSlotGrid(booking.TimeSlot(cfg.ClinicOpen), booking.TimeSlot(cfg.ClinicClose), cfg.SlotDuration)
	if err != nil {
		log.Fatal("invalid clinic hours", zap.Error(err))
	}

	repo := booking.NewPgRepository(pgPool)
	calendar := booking.NewCalendar(repo, grid)
	ledger := booking.NewLedger(repo, calendar, locker, cfg.StorageTimeout, log)

	dir := directory.NewService(directory.NewPgStore(pgPool), log)

	routerCfg.Booking = booking.NewService(ledger, calendar, dir, log)
	routerCfg.Directory = dir

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.NewRouter(routerCfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		log.Fatal("http server error", zap.Error(err))
	case <-rootCtx.Done():
	}

	log.Info("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(env string) *zap.Logger {
	if env == "prod" {
		log, err := zap.NewProduction()
		if err != nil {
			panic(err)
		}
		return log
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return log
}

package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/medibook/medibook/internal/booking"
	"github.com/medibook/medibook/internal/config"
	"github.com/medibook/medibook/internal/db"
	redisclient "github.com/medibook/medibook/internal/redis"
)

// The no-show worker sweeps confirmed appointments whose date has passed
// without being completed or cancelled, marking them no-shows so their slots
// stop counting as active history.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("noshow-worker starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.WorkerInterval),
		zap.Duration("no_show_after", cfg.NoShowAfter),
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
	if cfg.RedisAddr != "" {
		rdb, err := redisclient.NewRedisClient(cfg)
		if err != nil {
			log.Fatal("redis connection error", zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()
		locker = redisclient.NewDoctorDayLocker(rdb, cfg.LockTTL)
		log.Info("connected to Redis")
	}

	grid, err := booking.NewSlotGrid(booking.TimeSlot(cfg.ClinicOpen), booking.TimeSlot(cfg.ClinicClose), cfg.SlotDuration)
	if err != nil {
		log.Fatal("invalid clinic hours", zap.Error(err))
	}

	repo := booking.NewPgRepository(pgPool)
	calendar := booking.NewCalendar(repo, grid)
	ledger := booking.NewLedger(repo, calendar, locker, cfg.StorageTimeout, log)

	// Run once at startup
	runOnce(rootCtx, ledger, cfg.NoShowAfter, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info("shutdown signal received, stopping noshow-worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, ledger, cfg.NoShowAfter, log)
		}
	}
}

func runOnce(ctx context.Context, ledger *booking.Ledger, noShowAfter time.Duration, log *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	swept, err := ledger.SweepNoShows(runCtx, time.Now().Add(-noShowAfter))
	if err != nil {
		log.Error("no-show sweep error", zap.Error(err))
		return
	}
	log.Info("no-show sweep complete",
		zap.Int("swept", swept),
		zap.Duration("duration", time.Since(start)),
	)
}

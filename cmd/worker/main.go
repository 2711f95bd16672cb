// Package main - точка входа фоновых процессов (Worker) SocialDetox.
//
// Worker запускает опциональные sweep-задачи:
// - Завершение просроченных батлов, которые никто не открывал
// - Прогрев кэша месячного лидерборда
//
// Оба sweep'а - расширение, а не основа: штатный путь разрешения
// батлов - ленивое чтение списка, и по умолчанию worker не нужен.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/socialdetox/detox-hub/config"
	"github.com/socialdetox/detox-hub/internal/domain/battle"
	"github.com/socialdetox/detox-hub/internal/domain/leaderboard"
	"github.com/socialdetox/detox-hub/internal/domain/score"
	"github.com/socialdetox/detox-hub/internal/infrastructure/persistence/postgres"
	"github.com/socialdetox/detox-hub/internal/infrastructure/persistence/redis"
	"github.com/socialdetox/detox-hub/internal/infrastructure/scheduler"
	"github.com/socialdetox/detox-hub/internal/infrastructure/scheduler/jobs"
	"github.com/socialdetox/detox-hub/pkg/logger"
	"github.com/socialdetox/detox-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Sweep-задачи должны считать дни в той же таймзоне, что и API.
	timeutil.SetAppTZ(cfg.App.Location)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting SocialDetox worker",
		"env", string(cfg.App.Environment),
		"timezone", cfg.App.Timezone,
	)

	if !cfg.Scheduler.Enabled {
		log.Info("scheduler disabled, nothing to run; exiting")
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL, poolSettingsFrom(cfg))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()
	log.Info("database connection established")

	// Worker тоже держит схему актуальной.
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ИНИЦИАЛИЗАЦИЯ REDIS (опционально, нужен только для прогрева кэша)
	// ─────────────────────────────────────────────────────────────────────────
	var boardCache leaderboard.Cache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisClient, err := redis.NewClient(ctx, redisConfigFrom(cfg))
		if err != nil {
			log.Warn("failed to connect to Redis, cache warming unavailable", "error", err)
		} else {
			defer redisClient.Close()
			boardCache = redis.NewLeaderboardCache(redisClient, cfg.Redis.LeaderboardTTL)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ ДОМЕННЫХ СЕРВИСОВ
	// ─────────────────────────────────────────────────────────────────────────
	records := postgres.NewUsageRepository(dbConn)
	battleStore := postgres.NewBattleRepository(dbConn)

	aggregator := score.NewAggregator(records)
	ranker := leaderboard.NewRanker()
	engine := battle.NewEngine(battleStore, aggregator, logger.Default())

	// ─────────────────────────────────────────────────────────────────────────
	// 6. РЕГИСТРАЦИЯ SWEEP-ЗАДАЧ
	// Задачи регистрируются выключенными; включаются явно по конфигурации.
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.New(scheduler.Config{
		Logger:   log,
		Timezone: cfg.App.Location,
	})

	sweepJob := jobs.NewResolveExpiredBattlesJob(battleStore, engine, log, cfg.Scheduler.BattleSweepBatch)
	if err := sched.Register(sweepJob, scheduler.NewIntervalSchedule(cfg.Scheduler.BattleSweepInterval)); err != nil {
		return fmt.Errorf("failed to register battle sweep: %w", err)
	}
	if cfg.Scheduler.BattleSweepEnabled && cfg.Features.IsEnabled(config.FeatureBattleSweep, nil) {
		if err := sched.EnableJob(sweepJob.Name()); err != nil {
			return err
		}
		log.Info("battle sweep enabled", "interval", cfg.Scheduler.BattleSweepInterval.String())
	}

	if boardCache != nil {
		warmJob := jobs.NewWarmLeaderboardCacheJob(records, ranker, boardCache, log)
		if err := sched.Register(warmJob, scheduler.NewIntervalSchedule(cfg.Scheduler.CacheWarmInterval)); err != nil {
			return fmt.Errorf("failed to register cache warming: %w", err)
		}
		if cfg.Scheduler.CacheWarmEnabled && cfg.Features.IsEnabled(config.FeatureLeaderboardCacheWarm, nil) {
			if err := sched.EnableJob(warmJob.Name()); err != nil {
				return err
			}
			log.Info("leaderboard cache warming enabled", "interval", cfg.Scheduler.CacheWarmInterval.String())
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ЗАПУСК И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	log.Info("SocialDetox worker is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", "signal", sig.String())

	if err := sched.Stop(); err != nil {
		log.Error("failed to stop scheduler gracefully", "error", err)
		return err
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное логирование через slog,
// которым пользуются планировщик и sweep-задачи.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

// poolSettingsFrom переводит конфигурацию базы в настройки пула pgx.
func poolSettingsFrom(cfg *config.Config) postgres.PoolSettings {
	return postgres.PoolSettings{
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		QueryTimeout:    cfg.Database.QueryTimeout,
	}
}

// redisConfigFrom переводит конфигурацию приложения в настройки клиента.
func redisConfigFrom(cfg *config.Config) redis.Config {
	rc := redis.DefaultConfig()
	rc.Host = cfg.Redis.Host
	rc.Port = cfg.Redis.Port
	rc.Password = cfg.Redis.Password
	rc.DB = cfg.Redis.DB
	rc.PoolSize = cfg.Redis.PoolSize
	rc.MinIdleConns = cfg.Redis.MinIdleConns
	rc.DialTimeout = cfg.Redis.DialTimeout
	rc.ReadTimeout = cfg.Redis.ReadTimeout
	rc.WriteTimeout = cfg.Redis.WriteTimeout
	return rc
}

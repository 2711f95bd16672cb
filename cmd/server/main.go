// Package main - точка входа API-сервера SocialDetox.
//
// Сервер отдаёт мобильным и веб-клиентам дневные/недельные/месячные
// счета осознанного использования, месячный лидерборд и батлы между
// пользователями.
//
// Архитектура следует принципам Clean Architecture и DDD:
// - Domain: чистая бизнес-логика без внешних зависимостей
// - Application: оркестрация use cases (Commands/Queries/Refresh)
// - Infrastructure: PostgreSQL, Redis, фоновые sweep-задачи
// - Interface: HTTP endpoints
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
	"github.com/socialdetox/detox-hub/internal/application/command"
	"github.com/socialdetox/detox-hub/internal/application/query"
	"github.com/socialdetox/detox-hub/internal/application/refresh"
	"github.com/socialdetox/detox-hub/internal/domain/battle"
	"github.com/socialdetox/detox-hub/internal/domain/leaderboard"
	"github.com/socialdetox/detox-hub/internal/domain/score"
	"github.com/socialdetox/detox-hub/internal/infrastructure/persistence/postgres"
	"github.com/socialdetox/detox-hub/internal/infrastructure/persistence/redis"
	httpserver "github.com/socialdetox/detox-hub/internal/interface/http"
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
	// .env нужен только локально; в бою переменные приходят из окружения.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Все календарные окна (день, неделя, месяц, батлы) считаются
	// в настроенной таймзоне.
	timeutil.SetAppTZ(cfg.App.Location)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting SocialDetox API server",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.App.Timezone),
	)

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

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ЗАПУСК МИГРАЦИЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var redisClient *redis.Client
	var boardCache leaderboard.Cache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisClient, err = redis.NewClient(ctx, redisConfigFrom(cfg))
		if err != nil {
			// Кэш не критичен: лидерборд считается из агрегатов.
			log.Warn("failed to connect to Redis, leaderboard cache disabled", logger.Err(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			boardCache = redis.NewLeaderboardCache(redisClient, cfg.Redis.LeaderboardTTL)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ И ДОМЕННЫХ СЕРВИСОВ
	// ─────────────────────────────────────────────────────────────────────────
	records := postgres.NewUsageRepository(dbConn)
	battleStore := postgres.NewBattleRepository(dbConn)

	aggregator := score.NewAggregator(records)
	ranker := leaderboard.NewRanker()
	engine := battle.NewEngine(battleStore, aggregator, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ APPLICATION LAYER (Commands, Queries, Refresh)
	// ─────────────────────────────────────────────────────────────────────────
	dashboardQuery := query.NewGetDashboardSummaryHandler(aggregator, ranker, records, log)
	leaderboardQuery := query.NewGetLeaderboardHandler(records, ranker, boardCache, log)
	battlesQuery := query.NewGetBattlesHandler(engine, log)

	coordinator := refresh.NewCoordinator(dashboardQuery, leaderboardQuery, battlesQuery, boardCache, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. СОЗДАНИЕ HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.Server.Host
	httpConfig.Port = cfg.Server.Port
	httpConfig.ReadTimeout = cfg.Server.ReadTimeout
	httpConfig.WriteTimeout = cfg.Server.WriteTimeout
	httpConfig.IdleTimeout = cfg.Server.IdleTimeout
	httpConfig.EnableCORS = cfg.Server.EnableCORS
	httpConfig.AllowedOrigins = cfg.Server.AllowedOrigins
	httpConfig.RateLimitPerMinute = cfg.Server.RateLimitPerMinute

	httpDeps := httpserver.Dependencies{
		Dashboard:    dashboardQuery,
		Leaderboard:  leaderboardQuery,
		Battles:      battlesQuery,
		Challenge:    command.NewChallengeUserHandler(engine, log),
		AcceptBattle: command.NewAcceptBattleHandler(engine, log),
		DeleteBattle: command.NewDeleteBattleHandler(engine, log),
		Coordinator:  coordinator,
		Features:     cfg.Features,
		Postgres:     dbConn,
		Logger:       log,
	}
	if redisClient != nil {
		httpDeps.Redis = redisClient
	}

	server := httpserver.NewServer(httpConfig, httpDeps)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. ЗАПУСК И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	errCh := server.StartAsync()

	log.Info("SocialDetox API server is running", logger.String("address", httpConfig.Address()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("server error", logger.Err(err))
			return err
		}
	}

	log.Info("starting graceful shutdown...", logger.String("timeout", cfg.App.ShutdownTimeout.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		return err
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}

	log := logger.New(opts)

	// slog используется планировщиком и фоновыми задачами.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{})))

	return log.With(logger.String("app", cfg.App.Name))
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

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wfunc/arise/broadcast"
	"github.com/wfunc/arise/cache"
	"github.com/wfunc/arise/config"
	"github.com/wfunc/arise/logger"
	"github.com/wfunc/arise/monitor"
	"github.com/wfunc/arise/persistence"
	"github.com/wfunc/arise/rpc"
	"github.com/wfunc/arise/server"
	"github.com/wfunc/arise/services"
	"github.com/wfunc/arise/session"
	"github.com/wfunc/arise/timer"
)

const shutdownTimeout = 10 * time.Second

func openStore(cfg config.DatabaseConfig) (*persistence.GormStore, error) {
	if cfg.Driver == "sqlite" {
		return persistence.NewSQLite(cfg.SQLite.Path)
	}
	return persistence.NewGormPostgreSQL(
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
	)
}

func main() {
	// Initialize logger
	logger.Init()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := logger.InitWithConfig(cfg.Log); err != nil {
		logger.Log.Fatalf("Failed to configure logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Auth.JWTSecret == "" {
		logger.Log.Fatal("auth.jwt_secret (AUTH_JWT_SECRET) must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	store, err := openStore(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()
	logger.Log.Infow("Database connection successful.", "driver", cfg.Database.Driver)

	if cfg.Database.Seed {
		if err := store.Seed(ctx); err != nil {
			logger.Log.Fatalf("Failed to seed database: %v", err)
		}
	}

	mon := monitor.NewMonitor("arise")
	sessions := session.NewManager()
	broadcaster := broadcast.NewSessionBroadcaster(sessions)

	opts := []services.Option{
		services.WithBroadcaster(broadcaster),
		services.WithMetrics(mon),
	}
	if cfg.Cache.Addr != "" {
		lc, err := cache.NewValkey(cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.LeaderboardTTL)
		if err != nil {
			logger.Log.Fatalf("Failed to connect to valkey: %v", err)
		}
		defer lc.Close()
		if err := lc.Ping(ctx); err != nil {
			logger.Log.Warnw("valkey ping failed, leaderboard reads fall back to the database", "error", err)
		}
		opts = append(opts, services.WithLeaderboardCache(lc))
	}

	svc := services.New(store, services.Config{
		JWTSecret:             cfg.Auth.JWTSecret,
		TokenTTL:              cfg.Auth.TokenTTL,
		DailyQuestLimit:       cfg.Game.DailyQuestLimit,
		AutoCheckAchievements: cfg.Game.AutoCheckAchievements,
	}, opts...)

	// 定时清理超时的地下城挑战
	timers := timer.NewTimerManager()
	defer timers.Stop()
	if interval := cfg.Game.DungeonSweepInterval; interval > 0 {
		timers.AddTimer(interval, interval, func() {
			sweepCtx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			n, err := svc.Dungeon.SweepExpired(sweepCtx)
			if err != nil {
				logger.Log.Warnw("dungeon sweep failed", "error", err)
				return
			}
			if n > 0 {
				logger.Log.Infow("expired overdue dungeon runs", "count", n)
			}
		})
	}

	// Initialize Game Server
	gameServer := server.NewGameServer(server.Options{
		Addr:        cfg.Server.HTTPAddress,
		CORSOrigins: cfg.Server.CORSOrigins,
		Services:    svc,
		Sessions:    sessions,
		Broadcaster: broadcaster,
		Monitor:     mon,
	})

	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	if err := rpcServer.Register(rpc.NewProgressionService(svc)); err != nil {
		logger.Log.Fatalf("Failed to register RPC service: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(gameServer.Start)
	g.Go(func() error {
		rpcServer.Start()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Info("Shutting down.")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		rpcServer.Stop()
		return gameServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Log.Errorf("Server stopped with error: %v", err)
	}
}

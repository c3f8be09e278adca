package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/lumenlab/authcore/internal/router"
	"github.com/lumenlab/authcore/internal/session"
	userrepo "github.com/lumenlab/authcore/internal/user/repo"
	"github.com/lumenlab/authcore/pkg/database"
	"github.com/lumenlab/authcore/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	// init logger
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting authcore")

	// init db
	cfg := database.ConfigFromEnv()
	sqlDB, err := database.Connect(cfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer sqlDB.Close()

	// wrap with sqlx for convenience in repos/services
	sqlxDB := sqlx.NewDb(sqlDB, "postgres")
	defer sqlxDB.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := userrepo.NewUserRepo(sqlxDB).EnsureTable(ctx); err != nil {
		sugar.Fatalf("ensure users table: %v", err)
	}

	// session store: Redis when configured, in-process map otherwise
	var store session.Store
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			sugar.Fatalf("redis connect: %v", err)
		}
		defer rdb.Close()
		store = session.NewRedisStore(rdb)
		sugar.Infow("session store", "backend", "redis", "addr", addr)
	} else {
		store = session.NewMemoryStore()
		sugar.Infow("session store", "backend", "memory")
	}
	sessions := session.NewManager(store, session.ConfigFromEnv())

	sugar.Info("service is running; press Ctrl+C to stop")

	// mount http server
	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8431"
	}
	handler := router.RegisterRoutes(sugar, sqlxDB, sessions)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// run server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// ping db once more
	if err := sqlDB.PingContext(doneCtx); err != nil {
		sugar.Warnf("db ping on shutdown failed: %v", err)
	}

	// shutdown http server
	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}

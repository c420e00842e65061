package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taskmanager/taskmanager-go/internal/config"
	"github.com/taskmanager/taskmanager-go/internal/handler"
	"github.com/taskmanager/taskmanager-go/internal/repository/mongodb"
	"github.com/taskmanager/taskmanager-go/internal/repository/sqlstore"
	"github.com/taskmanager/taskmanager-go/internal/service"
)

type stores struct {
	users service.UserStore
	lists service.ListStore
	tasks service.TaskStore
	close func(context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	st, err := openStores(startCtx, cfg)
	cancel()
	if err != nil {
		slog.Error("opening store failed", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}

	tokens := service.NewTokenService(cfg.SigningKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authService := service.NewAuthService(st.users, tokens)
	listService := service.NewListService(st.lists, st.tasks)
	taskService := service.NewTaskService(st.lists, st.tasks)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.NewRouter(authService, listService, taskService),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	if err := st.close(ctx); err != nil {
		slog.Error("closing store", "error", err)
	}

	slog.Info("server stopped")
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	switch cfg.StoreDriver {
	case config.StoreMySQL, config.StoreSQLite:
		db, err := sqlstore.Open(ctx, cfg.StoreDriver, cfg.DatabaseDSN)
		if err != nil {
			return stores{}, err
		}
		return stores{
			users: sqlstore.NewUserRepository(db),
			lists: sqlstore.NewListRepository(db),
			tasks: sqlstore.NewTaskRepository(db),
			close: func(context.Context) error { return db.Close() },
		}, nil

	default:
		client, db, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return stores{}, err
		}
		return stores{
			users: mongodb.NewUserRepository(db),
			lists: mongodb.NewListRepository(db),
			tasks: mongodb.NewTaskRepository(db),
			close: client.Disconnect,
		}, nil
	}
}

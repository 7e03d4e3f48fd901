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

	"github.com/Gilad-Weinberger/Sikumon/internal/config"
	"github.com/Gilad-Weinberger/Sikumon/internal/gateway"
	"github.com/Gilad-Weinberger/Sikumon/internal/gateway/supabase"
	"github.com/Gilad-Weinberger/Sikumon/internal/handlers"
	"github.com/Gilad-Weinberger/Sikumon/internal/logger"
	"github.com/Gilad-Weinberger/Sikumon/internal/middleware"
	"github.com/Gilad-Weinberger/Sikumon/internal/repo"
	"github.com/Gilad-Weinberger/Sikumon/internal/service"
	"github.com/Gilad-Weinberger/Sikumon/internal/storage/s3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg := config.NewConfig()

	sugar, err := logger.New(logger.Options{File: cfg.LogFile, Console: true, Level: zapcore.DebugLevel})
	if err != nil {
		panic(err)
	}
	middleware.SetLogger(sugar)
	defer func() { _ = sugar.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.SupabaseURL == "" || cfg.SupabaseAnonKey == "" {
		sugar.Fatalw("SUPABASE_URL and SUPABASE_ANON_KEY are required")
	}
	client := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, sugar)
	auth := supabase.NewAuth(client)

	records, closeRecords, err := openRecords(cfg, client)
	if err != nil {
		sugar.Fatalw("failed to open records backend", "backend", cfg.RecordsBackend, "error", err)
	}
	defer closeRecords()

	objects, err := openObjects(ctx, cfg, client)
	if err != nil {
		sugar.Fatalw("failed to open objects backend", "backend", cfg.ObjectsBackend, "error", err)
	}

	h := handlers.NewHandler(handlers.Services{
		Auth:      service.NewAuthService(auth, records, sugar),
		Summaries: service.NewSummaryService(records, sugar),
		Users:     service.NewUserService(records, sugar),
		Files:     service.NewFileService(objects, cfg.MaxUploadBytes(), sugar),
	}, auth, sugar, cfg)

	logConfig(sugar, cfg)

	srv := &http.Server{Addr: cfg.BaseURL, Handler: h.Router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			sugar.Errorw("Server shutdown failed", "error", err)
		}
	}()

	sugar.Infow("Starting server", "addr", cfg.BaseURL)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugar.Fatalw("Server failed", "error", err)
	}
}

func openRecords(cfg *config.Config, client *supabase.Client) (gateway.Records, func(), error) {
	switch cfg.RecordsBackend {
	case config.BackendSupabase:
		return supabase.NewRecords(client), func() {}, nil
	case config.BackendPostgres, config.BackendSQLite:
		db, err := repo.InitDB(cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		return repo.NewRecords(db), func() { _ = sqlDB.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown records backend %q", cfg.RecordsBackend)
}

func openObjects(ctx context.Context, cfg *config.Config, client *supabase.Client) (gateway.Objects, error) {
	switch cfg.ObjectsBackend {
	case config.BackendSupabase:
		return supabase.NewStorage(client, cfg.StorageBucket), nil
	case config.BackendS3:
		return s3.New(ctx, s3.Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.StorageBucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
	}
	return nil, fmt.Errorf("unknown objects backend %q", cfg.ObjectsBackend)
}

func logConfig(sugar *zap.SugaredLogger, cfg *config.Config) {
	sugar.Infow("Config",
		"BaseURL", cfg.BaseURL,
		"EnableHTTPS", cfg.EnableHTTPS,
		"RecordsBackend", cfg.RecordsBackend,
		"ObjectsBackend", cfg.ObjectsBackend,
		"Bucket", cfg.StorageBucket,
		"LocalJWT", cfg.JWTSecret != "",
	)
}

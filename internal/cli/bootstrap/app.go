// Package bootstrap wires the CLI's collaborators from the config.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Gilad-Weinberger/Sikumon/internal/cli/api"
	"github.com/Gilad-Weinberger/Sikumon/internal/cli/cache"
	"github.com/Gilad-Weinberger/Sikumon/internal/cli/realtime"
	fsrepo "github.com/Gilad-Weinberger/Sikumon/internal/cli/repo/fs"
	reposqlite "github.com/Gilad-Weinberger/Sikumon/internal/cli/repo/sqlite"
	"github.com/Gilad-Weinberger/Sikumon/internal/cli/service"
	"github.com/Gilad-Weinberger/Sikumon/internal/cli/session"
	"github.com/Gilad-Weinberger/Sikumon/internal/config"
	"github.com/Gilad-Weinberger/Sikumon/internal/gateway"
	"github.com/Gilad-Weinberger/Sikumon/internal/gateway/supabase"
)

// App is everything a command needs. Close must be called when done.
type App struct {
	Config       *config.Config
	Logger       *zap.SugaredLogger
	API          *api.Client
	Session      *session.Session
	Auth         service.AuthService
	Store        cache.Store
	Summaries    *cache.Summaries
	Orchestrator *service.Orchestrator

	janitor *cache.Janitor
	closers []func() error
}

// Open restores the session and opens the cache selected by the config.
// Without a remembered login the sqlite cache falls back to memory.
func Open(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*App, error) {
	return open(ctx, cfg, logger, fsrepo.AuthFSStore{})
}

func open(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger, auth fsrepo.AuthFSStore) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	var sess *session.Session
	a.API = api.New(cfg.ServerURL, api.TokenFunc(func() string { return sess.AccessToken() }))
	sess = session.New(a.API, auth, auth, logger)
	a.Session = sess
	a.Auth = sess
	if err := sess.Init(ctx); err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}

	login, _ := auth.LoadLogin()
	store, err := a.openStore(ctx, login)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Store = store

	janitor, err := cache.NewJanitor(store, cfg.CacheSweep, logger)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("cache sweep schedule %q: %w", cfg.CacheSweep, err)
	}
	janitor.Start()
	a.janitor = janitor

	a.Summaries = cache.NewSummaries(a.API, cache.NewClient(store, logger), logger)
	a.Orchestrator = service.NewOrchestrator(sess, a.Summaries, a.API, logger)

	// a signed-out user must not read the previous user's cache
	sess.OnAuthChange(func(ev gateway.AuthEvent) {
		if ev.Event != gateway.SignedOut {
			return
		}
		if c, ok := store.(cache.Clearer); ok {
			if err := c.Clear(context.Background()); err != nil {
				logger.Warnw("clear cache failed", "error", err)
			}
		}
	})
	return a, nil
}

func (a *App) openStore(ctx context.Context, login string) (cache.Store, error) {
	switch a.Config.CacheBackend {
	case config.BackendMemory:
		return cache.NewMemoryStore(), nil
	case config.BackendRedis:
		if a.Config.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required for the redis cache")
		}
		ns := "sikumon:anonymous:"
		if login != "" {
			ns = "sikumon:" + login + ":"
		}
		rs, err := cache.OpenRedisStore(ctx, a.Config.RedisURL, ns)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rs.Close)
		return rs, nil
	case config.BackendSQLite, "":
		if login == "" {
			return cache.NewMemoryStore(), nil
		}
		st, _, err := reposqlite.OpenForUser(a.Config.ClientDBPath, login)
		if err != nil {
			return nil, fmt.Errorf("open user db: %w", err)
		}
		if err := st.Migrate(); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("migrate user db: %w", err)
		}
		a.closers = append(a.closers, st.Close)
		return st, nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", a.Config.CacheBackend)
}

// Realtime builds a user synchronizer. It needs SUPABASE_URL and
// SUPABASE_ANON_KEY since the change feed is read from the backend directly.
func (a *App) Realtime() (*realtime.Synchronizer, error) {
	if a.Config.SupabaseURL == "" || a.Config.SupabaseAnonKey == "" {
		return nil, errors.New("SUPABASE_URL and SUPABASE_ANON_KEY are required for realtime updates")
	}
	feed := supabase.NewRealtime(a.Config.SupabaseURL, a.Config.SupabaseAnonKey, a.Logger)
	return realtime.New(a.Session, a.API, userFeed{feed: feed, tokens: a.Session}, a.Logger), nil
}

// userFeed joins channels with the signed-in user's token so row level
// security applies to the pushed changes.
type userFeed struct {
	feed   gateway.Realtime
	tokens api.TokenSource
}

func (f userFeed) Subscribe(ctx context.Context, table, filter string) (gateway.Subscription, error) {
	if tok := f.tokens.AccessToken(); tok != "" {
		ctx = gateway.WithAccessToken(ctx, tok)
	}
	return f.feed.Subscribe(ctx, table, filter)
}

// Close stops the janitor and closes the cache in reverse opening order.
func (a *App) Close() error {
	if a.janitor != nil {
		a.janitor.Stop()
		a.janitor = nil
	}
	if a.Session != nil {
		a.Session.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

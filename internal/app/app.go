// Package app assembles the stores, services and HTTP surface selected by configuration.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"studentdesk/internal/cache"
	"studentdesk/internal/config"
	"studentdesk/internal/database"
	"studentdesk/internal/handlers"
	"studentdesk/internal/jobs"
	"studentdesk/internal/oauth"
	"studentdesk/internal/repository"
	"studentdesk/internal/repository/docstore"
	"studentdesk/internal/repository/memstore"
	"studentdesk/internal/server"
	"studentdesk/internal/service"
	"studentdesk/internal/session"
	"studentdesk/internal/storage"
)

type App struct {
	cfg       *config.AppConfig
	log       zerolog.Logger
	server    *server.HTTPServer
	scheduler *jobs.Scheduler
	closers   []func()
	pingers   []handlers.Pinger
}

type stores struct {
	students repository.StudentStore
	users    repository.UserStore
	sessions repository.SessionStore
	purger   repository.SessionPurger
	pool     *pgxpool.Pool
}

// New connects every configured backend. On error, whatever was opened is closed again.
func New(ctx context.Context, cfg *config.AppConfig, log zerolog.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}
	if err := a.build(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	var st stores
	if err := a.openRecordStores(ctx, &st); err != nil {
		return err
	}
	if err := a.openSessionStore(ctx, &st); err != nil {
		return err
	}

	authService := service.NewAuthService(st.users, a.cfg, a.log)
	studentService := service.NewStudentService(st.students, a.cfg.Students, a.log)

	if err := authService.EnsureAdmin(ctx, a.cfg.Bootstrap.AdminUsername, a.cfg.Bootstrap.AdminPassword); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	a.scheduler = jobs.NewScheduler(a.log)
	if st.purger != nil {
		if err := a.scheduler.AddSessionSweep(a.cfg.Jobs.SessionSweep, st.purger); err != nil {
			return fmt.Errorf("schedule session sweep: %w", err)
		}
	}
	if a.cfg.Snapshots.Enabled {
		if err := a.scheduleSnapshots(ctx, st.students); err != nil {
			return err
		}
	}

	handlerSet := handlers.NewHandlerSet(handlers.Deps{
		Log:       a.log,
		Config:    a.cfg,
		Auth:      authService,
		Students:  studentService,
		Sessions:  session.NewManager(st.sessions, a.cfg.Session.TTL),
		Cookies:   session.NewCookies(a.cfg.Session),
		Providers: oauth.NewRegistry(a.cfg.OAuth),
		Pingers:   a.pingers,
	})

	srv, err := server.NewHTTPServer(a.cfg, a.log, handlerSet)
	if err != nil {
		return err
	}
	a.server = srv
	return nil
}

func (a *App) openRecordStores(ctx context.Context, st *stores) error {
	switch a.cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		if a.cfg.Postgres.Migrate {
			if err := database.Migrate(a.cfg.Postgres.DSN); err != nil {
				return err
			}
			a.log.Info().Msg("postgres migrations applied")
		}

		pool, err := database.NewPostgresPool(ctx, a.cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		a.onClose(pool.Close)
		a.addPinger("postgres", pool.Ping)

		st.pool = pool
		st.students = repository.NewStudentRepository(pool)
		st.users = repository.NewUserRepository(pool)

	case config.StorageDriverMongo:
		client, err := database.NewMongoClient(ctx, a.cfg.Mongo)
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		a.onClose(func() {
			if err := client.Disconnect(context.Background()); err != nil {
				a.log.Error().Err(err).Msg("mongo disconnect error")
			}
		})
		a.addPinger("mongo", func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		})

		db := client.Database(a.cfg.Mongo.Database)
		if err := docstore.EnsureIndexes(ctx, db); err != nil {
			return err
		}
		st.students = docstore.NewStudentRepository(db)
		st.users = docstore.NewUserRepository(db)

	default:
		a.log.Warn().Msg("using in-memory storage; records are lost on restart")
		st.students = memstore.NewStudentRepository()
		st.users = memstore.NewUserRepository()
	}
	return nil
}

func (a *App) openSessionStore(ctx context.Context, st *stores) error {
	switch a.cfg.Session.Store {
	case config.SessionStoreRedis:
		client, err := cache.NewRedisClient(ctx, a.cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		a.onClose(func() {
			if err := client.Close(); err != nil {
				a.log.Error().Err(err).Msg("redis close error")
			}
		})
		a.addPinger("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		st.sessions = session.NewRedisStore(client)

	case config.SessionStorePostgres:
		sessions := repository.NewSessionRepository(st.pool)
		st.sessions, st.purger = sessions, sessions

	default:
		sessions := memstore.NewSessionRepository()
		st.sessions, st.purger = sessions, sessions
	}
	return nil
}

func (a *App) scheduleSnapshots(ctx context.Context, students repository.StudentStore) error {
	objects, err := storage.NewObjectStore(a.cfg.Snapshots)
	if err != nil {
		return fmt.Errorf("init snapshot store: %w", err)
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		a.log.Warn().Err(err).Msg("ensure snapshot bucket failed")
	}
	a.addPinger("objectstore", objects.Ping)

	snapshotter := jobs.NewSnapshotter(students, objects, a.log)
	if err := a.scheduler.AddSnapshot(a.cfg.Snapshots.Schedule, snapshotter); err != nil {
		return fmt.Errorf("schedule snapshots: %w", err)
	}
	return nil
}

func (a *App) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

func (a *App) addPinger(name string, ping func(context.Context) error) {
	a.pingers = append(a.pingers, handlers.Pinger{Name: name, Ping: ping})
}

func (a *App) Server() *server.HTTPServer {
	return a.server
}

func (a *App) Scheduler() *jobs.Scheduler {
	return a.scheduler
}

// Shutdown stops accepting requests, lets jobs finish and closes every backend.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	if a.server != nil {
		err = a.server.Shutdown(ctx)
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	a.close()
	return err
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"github.com/BitsOfPraneet/The-Gates/internal/config"
	"github.com/BitsOfPraneet/The-Gates/internal/db"
	"github.com/BitsOfPraneet/The-Gates/internal/identity"
	identitymem "github.com/BitsOfPraneet/The-Gates/internal/identity/memory"
	identitypg "github.com/BitsOfPraneet/The-Gates/internal/identity/postgres"
	"github.com/BitsOfPraneet/The-Gates/internal/profile"
	profilefs "github.com/BitsOfPraneet/The-Gates/internal/profile/firestore"
	profilemem "github.com/BitsOfPraneet/The-Gates/internal/profile/memory"
	profilepg "github.com/BitsOfPraneet/The-Gates/internal/profile/postgres"
	"github.com/BitsOfPraneet/The-Gates/internal/redis"
	"github.com/BitsOfPraneet/The-Gates/internal/session"
)

type Infra struct {
	Identity identity.Service
	Sessions session.Store
	Profiles profile.Store

	cleanups []func() error
}

func (i *Infra) Close() error {
	var firstErr error
	for _, fn := range i.cleanups {
		if err := fn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	mailer := identity.LogMailer{}

	if cfg.Backend == "memory" {
		slog.Info("using in-memory backend")
		return &Infra{
			Identity: identitymem.NewService(mailer, cfg.PublicBaseURL, cfg.ResetTokenTTL),
			Sessions: session.NewMemoryStore(),
			Profiles: profilemem.NewStore(),
		}, nil
	}

	infra := &Infra{}

	sqlDB, err := sql.Open("postgres", cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	infra.cleanups = append(infra.cleanups, sqlDB.Close)

	if err := sqlDB.PingContext(ctx); err != nil {
		infra.Close()
		return nil, err
	}

	if err := db.RunMigration(ctx, sqlDB); err != nil {
		infra.Close()
		return nil, err
	}

	slog.Info("database ready")

	redisClient, err := redis.New(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		infra.Close()
		return nil, err
	}
	infra.cleanups = append(infra.cleanups, redisClient.Close)

	slog.Info("redis ready")

	database := &db.DB{DB: sqlDB}
	infra.Identity = identitypg.NewService(database, mailer, cfg.PublicBaseURL, cfg.ResetTokenTTL)
	infra.Sessions = session.NewRedisStore(redisClient.Client)

	switch cfg.Backend {
	case "postgres":
		infra.Profiles = profilepg.NewStore(database, redisClient.Client)
	case "firestore":
		store, err := profilefs.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			infra.Close()
			return nil, err
		}
		infra.cleanups = append(infra.cleanups, store.Close)
		infra.Profiles = store
		slog.Info("firestore ready", "project_id", cfg.GCPProjectID)
	default:
		infra.Close()
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	return infra, nil
}

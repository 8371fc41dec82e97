package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/diagnosis/medcv-review/internal/http/middleware"
	"github.com/diagnosis/medcv-review/internal/platform/mailer"
	"github.com/diagnosis/medcv-review/internal/repo"
	"github.com/diagnosis/medcv-review/internal/repo/memory"
	"github.com/diagnosis/medcv-review/internal/repo/mongodb"
	"github.com/diagnosis/medcv-review/internal/repo/postgres"
	"github.com/diagnosis/medcv-review/internal/repo/redisstore"
	"github.com/diagnosis/medcv-review/pkg/config"
	"github.com/diagnosis/medcv-review/pkg/database"
	"github.com/diagnosis/medcv-review/pkg/events"
	"github.com/diagnosis/medcv-review/pkg/logger"
	pkgmw "github.com/diagnosis/medcv-review/pkg/middleware"
)

const janitorInterval = 10 * time.Minute

type cleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// backends holds the record store plus the optional request-state stores.
type backends struct {
	store       *repo.Store
	limiter     middleware.Limiter
	idempotency pkgmw.IdempotencyStore
	cleaners    []cleaner
	closers     []func()
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	b := &backends{}

	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := database.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
		}
		b.store = postgres.NewStore(pool)
		b.closers = append(b.closers, b.store.Close)

		rl := postgres.NewRateLimitRepo(pool, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		idem := postgres.NewIdempotencyRepo(pool)
		b.limiter, b.idempotency = rl, idem
		b.cleaners = append(b.cleaners, rl, idem)

	case config.StoreDriverMongo:
		client, db, err := database.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		b.store = mongodb.NewStore(client, db)
		b.closers = append(b.closers, b.store.Close)
		if err := database.EnsureIndexes(ctx, db); err != nil {
			b.Close()
			return nil, err
		}

	default:
		logger.Warn("Using in-memory store, data is lost on restart")
		b.store = memory.NewStore()
	}

	// Redis takes over request state when configured.
	if cfg.Redis.URL != "" {
		rdb, err := redisstore.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = rdb.Close() })
		b.limiter = redisstore.NewRateLimiter(rdb, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		b.idempotency = redisstore.NewIdempotencyStore(rdb)
		b.cleaners = nil
	}
	return b, nil
}

// janitor purges expired rate limit and idempotency rows until ctx ends.
func (b *backends) janitor(ctx context.Context) {
	if len(b.cleaners) == 0 {
		return
	}
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, c := range b.cleaners {
				n, err := c.CleanupExpired(ctx)
				if err != nil {
					logger.Warn("Cleanup failed", "error", err)
					continue
				}
				if n > 0 {
					logger.Debug("Cleaned up expired rows", "rows", n)
				}
			}
		}
	}
}

func openBus(cfg *config.Config) (events.EventBus, error) {
	if cfg.NATS.URL == "" {
		logger.Info("NATS_URL not set, using in-process event bus")
		return events.NewLocalBus(), nil
	}
	bus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return bus, nil
}

func newMailer(cfg *config.Config) mailer.Service {
	e := cfg.Email
	switch {
	case e.DevMode:
		return mailer.NewDevMailer(os.Stdout)
	case e.MailerSendKey != "":
		return mailer.NewMailerSend(e.MailerSendKey, e.FromName, e.SMTPFrom)
	default:
		return mailer.NewSMTPMailer(e.SMTPHost, e.SMTPPort, e.SMTPFrom, e.SMTPUser, e.SMTPPass, e.SMTPUseTLS)
	}
}

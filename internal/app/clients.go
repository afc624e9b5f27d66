package app

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/gracechapel/outreach-backend/internal/clients/recordstore"
	redisclient "github.com/gracechapel/outreach-backend/internal/clients/redis"
	"github.com/gracechapel/outreach-backend/internal/clients/sendgrid"
	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
	"github.com/gracechapel/outreach-backend/internal/services"
)

type Clients struct {
	Store  recordstore.Client
	Schema recordstore.Schema
	Locker services.Locker
	Mail   sendgrid.Client

	redisLocker *redisclient.LeaseLocker
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	store, err := recordstore.NewFromEnv(log)
	if err != nil {
		return Clients{}, err
	}

	schema := recordstore.DefaultSchema()
	if cfg.SchemaPath != "" {
		schema, err = recordstore.LoadSchema(cfg.SchemaPath)
		if err != nil {
			return Clients{}, err
		}
	}

	clients := Clients{Store: store, Schema: schema}

	// Redis is optional: a single-instance deployment can run on the
	// in-process locker.
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		rl, err := redisclient.NewLeaseLocker(log)
		if err != nil {
			return Clients{}, err
		}
		clients.redisLocker = rl
		clients.Locker = redisLockerAdapter{inner: rl}
	} else {
		log.Warn("REDIS_ADDR unset, using in-process lease locker")
		clients.Locker = services.NewMemoryLocker()
	}

	// Mail is optional too: without it admin notifications are disabled.
	if strings.TrimSpace(os.Getenv("SENDGRID_API_KEY")) != "" {
		mail, err := sendgrid.NewFromEnv(log)
		if err != nil {
			return Clients{}, err
		}
		clients.Mail = mail
	}

	return clients, nil
}

func (c Clients) Close() {
	if c.redisLocker != nil {
		_ = c.redisLocker.Close()
	}
}

type redisLockerAdapter struct {
	inner *redisclient.LeaseLocker
}

func (a redisLockerAdapter) Acquire(ctx context.Context, key string, ttl time.Duration) (services.Lease, error) {
	lease, err := a.inner.Acquire(ctx, key, ttl)
	if err != nil {
		return nil, err
	}
	return lease, nil
}

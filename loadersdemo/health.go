package loadersdemo

import (
	"context"

	"github.com/everyday-items/loadq/infra/db"
	"github.com/everyday-items/loadq/infra/db/mysql"
	"github.com/everyday-items/loadq/infra/db/redis"
)

// mysqlClientAdapter satisfies db.Client for *mysql.DB, which exposes
// its health check as Health rather than Ping and has no Name of its
// own.
type mysqlClientAdapter struct {
	*mysql.DB
	name string
}

func (a *mysqlClientAdapter) Ping(ctx context.Context) error { return a.DB.Health(ctx) }
func (a *mysqlClientAdapter) Name() string                   { return a.name }

// redisClientAdapter satisfies db.Client for *redis.Client, for the
// same reason.
type redisClientAdapter struct {
	*redis.Client
	name string
}

func (a *redisClientAdapter) Ping(ctx context.Context) error { return a.Client.Health(ctx) }
func (a *redisClientAdapter) Name() string                   { return a.name }

// NewBackendManager builds a db.Manager with this package's backend
// clients registered under a stable name, so a caller can run one
// HealthCheck or Close across every backend a Queue's handlers talk
// to instead of tracking each client individually. mongodb.Client,
// clickhouse.Client, and elasticsearch.Client already implement
// db.Client directly and can be passed through others; mysql and
// redis need the adapters above first.
func NewBackendManager(mysqlDB *mysql.DB, redisClient *redis.Client, others ...db.Client) *db.Manager {
	m := db.NewManager()
	if mysqlDB != nil {
		m.Register(&mysqlClientAdapter{DB: mysqlDB, name: "mysql"})
	}
	if redisClient != nil {
		m.Register(&redisClientAdapter{Client: redisClient, name: "redis"})
	}
	for _, c := range others {
		m.Register(c)
	}
	return m
}

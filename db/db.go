package db

import "context"

type DBType string

const (
	Postgres DBType = "postgres"
	Mongo    DBType = "mongo"
	Memory   DBType = "memory"
)

// DB is a connection to a backing store that the server owns for its
// whole lifetime.
type DB interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Ping(ctx context.Context) error
}

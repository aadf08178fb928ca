package membership

import (
	"context"
	"fmt"
)

// Store answers the only question the channel authorizer asks: is this user a
// current member of that chat. The domain application owns the data; the
// bridge only reads it.
type Store interface {
	IsMember(ctx context.Context, chatID, userID int64) (bool, error)
	HealthCheck() error
	Close() error
}

func NewStore(storeType, postgresURI, sqlitePath string) (Store, error) {
	switch storeType {
	case "postgres":
		return NewPgStore(postgresURI)
	case "sqlite":
		return NewSqliteStore(sqlitePath)
	case "memory":
		return NewMemStore(), nil
	default:
		return nil, fmt.Errorf("unsupported membership store type: %s", storeType)
	}
}

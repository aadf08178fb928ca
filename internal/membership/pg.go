package membership

import (
	"context"
	"embed"
	"errors"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v4/pgxpool"
	log "github.com/sirupsen/logrus"
)

type PgStore struct {
	postgres *pgxpool.Pool
}

//go:embed migrations/*.sql
var fs embed.FS

func MigrateDb(postgresURI string) error {
	log := log.WithField("prefix", "MigrateDb")
	d, err := iofs.New(fs, "migrations")
	if err != nil {
		log.Info("iofs err: ", err)
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", d, postgresURI)
	if err != nil {
		log.Info("source instance err: ", err)
		return err
	}
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("DB is up to date")
		return nil
	} else if err != nil {
		return err
	}
	log.Info("DB updated successfully")
	return nil
}

func NewPgStore(postgresURI string) (*PgStore, error) {
	log := log.WithField("prefix", "NewPgStore")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	c, err := pgxpool.Connect(ctx, postgresURI)
	if err != nil {
		return nil, err
	}
	if err := MigrateDb(postgresURI); err != nil {
		log.Info("migrate err: ", err)
		return nil, err
	}
	return &PgStore{postgres: c}, nil
}

// IsMember treats soft-deleted chats and removed members as non-membership.
func (s *PgStore) IsMember(ctx context.Context, chatID, userID int64) (bool, error) {
	log := log.WithField("prefix", "PgStore.IsMember")

	var exists bool
	err := s.postgres.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM chat_users cu
			JOIN chats c ON c.id = cu.chat_id
			WHERE cu.chat_id = $1
			  AND cu.user_id = $2
			  AND c.deleted_at IS NULL
		)`, chatID, userID).Scan(&exists)
	if err != nil {
		log.Errorf("membership lookup failed: %v", err)
		return false, err
	}
	return exists, nil
}

func (s *PgStore) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.postgres.Ping(ctx)
}

func (s *PgStore) Close() error {
	s.postgres.Close()
	return nil
}

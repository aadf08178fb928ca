package membership

import (
	"context"
	"time"

	"github.com/glebarez/sqlite"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SqliteStore is a GORM-backed membership read model for single-node deploys
// where the domain application writes the same SQLite file.
type SqliteStore struct {
	db *gorm.DB
}

type chatModel struct {
	ID        int64 `gorm:"primaryKey"`
	Type      string
	Title     string
	CreatedBy int64
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt
}

func (chatModel) TableName() string { return "chats" }

type chatUserModel struct {
	ChatID            int64 `gorm:"primaryKey"`
	UserID            int64 `gorm:"primaryKey;index"`
	Role              string
	LastReadMessageID *int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (chatUserModel) TableName() string { return "chat_users" }

func NewSqliteStore(path string) (*SqliteStore, error) {
	log := log.WithField("prefix", "NewSqliteStore")

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		log.Errorf("failed to open SQLite database: %v", err)
		return nil, err
	}
	if err := db.AutoMigrate(&chatModel{}, &chatUserModel{}); err != nil {
		log.Errorf("failed to migrate SQLite schema: %v", err)
		return nil, err
	}
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) IsMember(ctx context.Context, chatID, userID int64) (bool, error) {
	log := log.WithField("prefix", "SqliteStore.IsMember")

	var count int64
	err := s.db.WithContext(ctx).
		Model(&chatUserModel{}).
		Joins("JOIN chats ON chats.id = chat_users.chat_id AND chats.deleted_at IS NULL").
		Where("chat_users.chat_id = ? AND chat_users.user_id = ?", chatID, userID).
		Count(&count).Error
	if err != nil {
		log.Errorf("membership lookup failed: %v", err)
		return false, err
	}
	return count > 0, nil
}

func (s *SqliteStore) HealthCheck() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (s *SqliteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

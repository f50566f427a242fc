package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/EgorLis/killbot/internal/config"
)

var ErrNotFound = errors.New("subscription not found")

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open подключается к базе по cfg.Driver и проверяет соединение.
func Open(cfg config.StoreConfig, log *zap.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve sql db handle: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// один писатель, иначе SQLITE_BUSY под нагрузкой
		sqlDB.SetMaxOpenConns(1)
		_ = db.Exec("PRAGMA busy_timeout = 5000").Error
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}
	return New(db, log), nil
}

func New(db *gorm.DB, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, log: log.Named("subscriptions")}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&row{})
}

// List — все подписки в порядке id; этот порядок определяет приоритет при маршрутизации.
func (s *Store) List(ctx context.Context) ([]Subscription, error) {
	var rows []row
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return toSubscriptions(rows), nil
}

func (s *Store) ListByChannel(ctx context.Context, channelID snowflake.ID) ([]Subscription, error) {
	var rows []row
	err := s.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list channel subscriptions: %w", err)
	}
	return toSubscriptions(rows), nil
}

// Add сохраняет подписку и возвращает её с присвоенным id.
func (s *Store) Add(ctx context.Context, sub Subscription) (Subscription, error) {
	if sub.ChannelID == 0 {
		return Subscription{}, errors.New("subscription: channel id is required")
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	r := fromDomain(sub)
	r.ID = 0
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return Subscription{}, fmt.Errorf("add subscription: %w", err)
	}
	s.log.Info("subscription added",
		zap.Int64("id", r.ID),
		zap.String("channel_id", r.ChannelID.String()),
		zap.String("kind", r.TargetKind),
		zap.Int64("target_id", r.TargetID),
	)
	return r.toDomain(), nil
}

// DeleteByChannel удаляет все подписки канала; возвращает число удалённых строк.
func (s *Store) DeleteByChannel(ctx context.Context, channelID snowflake.ID) (int64, error) {
	res := s.db.WithContext(ctx).Where("channel_id = ?", channelID).Delete(&row{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete channel subscriptions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteByID удаляет подписку id, только если она принадлежит channelID.
func (s *Store) DeleteByID(ctx context.Context, channelID snowflake.ID, id int64) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND channel_id = ?", id, channelID).
		Delete(&row{})
	if res.Error != nil {
		return fmt.Errorf("delete subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func toSubscriptions(rows []row) []Subscription {
	out := make([]Subscription, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}

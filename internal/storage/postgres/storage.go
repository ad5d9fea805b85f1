package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mcoot/bingoroom/internal/model"
	"github.com/mcoot/bingoroom/internal/storage"
)

// Storage is a Postgres-backed implementation of the storage interface
type Storage struct {
	db  *gorm.DB
	cfg Config
}

// New opens a connection pool and optionally migrates the schema
func New(cfg Config) (*Storage, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(&roomRecord{}, &playerRecord{}, &resultRecord{}); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}

	return &Storage{db: db, cfg: cfg}, nil
}

// Close closes the connection pool
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func transient(err error) error {
	return fmt.Errorf("%w: %w", model.ErrTransient, err)
}

// Room operations

func (s *Storage) CreateRoom(ctx context.Context, room *model.Room) error {
	err := s.db.WithContext(ctx).Create(newRoomRecord(room)).Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return model.ErrCodeConflict
	default:
		return transient(err)
	}
}

func (s *Storage) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	var rec roomRecord
	err := s.db.WithContext(ctx).Where("code = ?", string(code)).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrRoomNotFound
		}
		return nil, transient(err)
	}
	return rec.toModel(), nil
}

func (s *Storage) SetHostIfUnset(ctx context.Context, code model.RoomCode, name string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&roomRecord{}).
		Where("code = ? AND host_name IS NULL", string(code)).
		Update("host_name", name)
	return s.conditionalResult(ctx, code, res)
}

func (s *Storage) SetStarted(ctx context.Context, code model.RoomCode) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&roomRecord{}).
		Where("code = ? AND started = ?", string(code), false).
		Update("started", true)
	return s.conditionalResult(ctx, code, res)
}

// conditionalResult reports whether a guarded update changed the row,
// telling a lost race apart from a missing room
func (s *Storage) conditionalResult(ctx context.Context, code model.RoomCode, res *gorm.DB) (bool, error) {
	if res.Error != nil {
		return false, transient(res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	if _, err := s.GetRoom(ctx, code); err != nil {
		return false, err
	}
	return false, nil
}

// Roster operations

func (s *Storage) AddPlayer(ctx context.Context, player *model.Player) error {
	rec := &playerRecord{
		ID:          string(player.ID),
		RoomCode:    string(player.RoomCode),
		DisplayName: player.DisplayName,
		JoinedAt:    player.JoinedAt,
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return transient(err)
	}
	return nil
}

func (s *Storage) ListPlayers(ctx context.Context, code model.RoomCode) ([]*model.Player, error) {
	var recs []playerRecord
	err := s.db.WithContext(ctx).
		Where("room_code = ?", string(code)).
		Order("joined_at ASC, seq ASC").
		Find(&recs).Error
	if err != nil {
		return nil, transient(err)
	}

	players := make([]*model.Player, len(recs))
	for i := range recs {
		players[i] = recs[i].toModel()
	}
	return players, nil
}

// Result operations

func (s *Storage) AddResult(ctx context.Context, result *model.Result) error {
	rec := &resultRecord{
		ID:               string(result.ID),
		RoomCode:         string(result.RoomCode),
		PlayerName:       result.PlayerName,
		Score:            result.Score,
		TotalTimeSeconds: result.TotalTimeSeconds,
		BestStreak:       result.BestStreak,
		CreatedAt:        result.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return transient(err)
	}
	return nil
}

func (s *Storage) ListResults(ctx context.Context, code model.RoomCode) ([]*model.Result, error) {
	var recs []resultRecord
	err := s.db.WithContext(ctx).
		Where("room_code = ?", string(code)).
		Order("seq ASC").
		Find(&recs).Error
	if err != nil {
		return nil, transient(err)
	}

	results := make([]*model.Result, len(recs))
	for i := range recs {
		results[i] = recs[i].toModel()
	}
	return results, nil
}

// Reset truncates all tables. Only used by tests against a scratch database.
func (s *Storage) Reset(ctx context.Context) error {
	return s.db.WithContext(ctx).
		Exec("TRUNCATE rooms, room_players, room_results RESTART IDENTITY").Error
}

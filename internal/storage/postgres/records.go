package postgres

import (
	"time"

	"github.com/mcoot/bingoroom/internal/model"
)

type roomRecord struct {
	Code      string  `gorm:"primaryKey;type:varchar(32)"`
	Seed      string  `gorm:"not null"`
	Started   bool    `gorm:"not null;default:false"`
	HostName  *string `gorm:"type:varchar(64)"`
	CreatedAt time.Time
}

func (roomRecord) TableName() string { return "rooms" }

func newRoomRecord(room *model.Room) *roomRecord {
	rec := &roomRecord{
		Code:      string(room.Code),
		Seed:      room.Seed,
		Started:   room.Started,
		CreatedAt: room.CreatedAt,
	}
	if room.HasHost() {
		host := room.HostName
		rec.HostName = &host
	}
	return rec
}

func (r *roomRecord) toModel() *model.Room {
	room := &model.Room{
		Code:      model.RoomCode(r.Code),
		Seed:      r.Seed,
		Started:   r.Started,
		CreatedAt: r.CreatedAt.UTC(),
	}
	if r.HostName != nil {
		room.HostName = *r.HostName
	}
	return room
}

// Seq preserves insertion order for rows with equal timestamps
type playerRecord struct {
	Seq         uint64    `gorm:"primaryKey;autoIncrement"`
	ID          string    `gorm:"uniqueIndex;not null"`
	RoomCode    string    `gorm:"index;not null;type:varchar(32)"`
	DisplayName string    `gorm:"not null;type:varchar(64)"`
	JoinedAt    time.Time `gorm:"not null"`
}

func (playerRecord) TableName() string { return "room_players" }

func (r *playerRecord) toModel() *model.Player {
	return &model.Player{
		ID:          model.PlayerID(r.ID),
		RoomCode:    model.RoomCode(r.RoomCode),
		DisplayName: r.DisplayName,
		JoinedAt:    r.JoinedAt.UTC(),
	}
}

type resultRecord struct {
	Seq              uint64    `gorm:"primaryKey;autoIncrement"`
	ID               string    `gorm:"uniqueIndex;not null"`
	RoomCode         string    `gorm:"index;not null;type:varchar(32)"`
	PlayerName       string    `gorm:"not null;type:varchar(64)"`
	Score            int       `gorm:"not null"`
	TotalTimeSeconds int       `gorm:"not null"`
	BestStreak       int       `gorm:"not null"`
	CreatedAt        time.Time `gorm:"not null"`
}

func (resultRecord) TableName() string { return "room_results" }

func (r *resultRecord) toModel() *model.Result {
	return &model.Result{
		ID:               model.ResultID(r.ID),
		RoomCode:         model.RoomCode(r.RoomCode),
		PlayerName:       r.PlayerName,
		Score:            r.Score,
		TotalTimeSeconds: r.TotalTimeSeconds,
		BestStreak:       r.BestStreak,
		CreatedAt:        r.CreatedAt.UTC(),
	}
}

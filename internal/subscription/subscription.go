// Package subscription хранит динамические подписки каналов на киллмейлы
// (таблица add_kills). Поверх gorm: sqlite (glebarez, без cgo) или postgres.
package subscription

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Kind string

const (
	KindRegion    Kind = "region"
	KindSystem    Kind = "system"
	KindGroup     Kind = "group" // корпорация или альянс атакующих
	KindCharacter Kind = "character"
	KindLoss      Kind = "loss" // лоссы корпорации/альянса жертвы
	KindAny       Kind = "any"  // любой килл выше порога
)

// AnyTargetID — target_id, которым старые строки помечали «любой килл».
const AnyTargetID int64 = 9

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindRegion, KindSystem, KindGroup, KindCharacter, KindLoss, KindAny:
		return k, nil
	}
	return "", fmt.Errorf("unknown subscription kind %q", s)
}

// Subscription — строка add_kills в типизированном виде.
type Subscription struct {
	ID        int64
	ChannelID snowflake.ID
	GuildID   snowflake.ID
	TargetID  int64
	Kind      Kind
	Loss      bool    // слать ли лоссы цели
	MinValue  float64 // порог ISK, 0 — без порога
	CreatedAt time.Time
}

// row — схема таблицы; loss хранится строкой "true"/"false" как в старой базе.
type row struct {
	ID         int64        `gorm:"column:id;primaryKey;autoIncrement"`
	ChannelID  snowflake.ID `gorm:"column:channel_id;index;not null"`
	GuildID    snowflake.ID `gorm:"column:guild_id"`
	TargetID   int64        `gorm:"column:target_id;not null"`
	TargetKind string       `gorm:"column:target_kind;type:varchar(16)"`
	Loss       string       `gorm:"column:loss;type:varchar(5);default:'false'"`
	MinValue   float64      `gorm:"column:min_value;default:0"`
	CreatedAt  time.Time    `gorm:"column:created_at;autoCreateTime"`
}

func (row) TableName() string { return "add_kills" }

func (r row) toDomain() Subscription {
	s := Subscription{
		ID:        r.ID,
		ChannelID: r.ChannelID,
		GuildID:   r.GuildID,
		TargetID:  r.TargetID,
		Loss:      strings.EqualFold(r.Loss, "true"),
		MinValue:  r.MinValue,
		CreatedAt: r.CreatedAt,
	}
	k, err := ParseKind(r.TargetKind)
	switch {
	case r.TargetID == AnyTargetID:
		k = KindAny
	case err != nil:
		// строки без kind из старой базы
		k = KindGroup
		if s.Loss {
			k = KindLoss
		}
	}
	s.Kind = k
	return s
}

func fromDomain(s Subscription) row {
	loss := "false"
	if s.Loss || s.Kind == KindLoss {
		loss = "true"
	}
	target := s.TargetID
	if s.Kind == KindAny {
		target = AnyTargetID
	}
	return row{
		ID:         s.ID,
		ChannelID:  s.ChannelID,
		GuildID:    s.GuildID,
		TargetID:   target,
		TargetKind: string(s.Kind),
		Loss:       loss,
		MinValue:   s.MinValue,
		CreatedAt:  s.CreatedAt,
	}
}

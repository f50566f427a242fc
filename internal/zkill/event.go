package zkill

import "time"

// KillEvent — один киллмейл из RedisQ. После декодирования не меняется.
// Необязательные id — указатели: nil, если поле отсутствовало в payload.
type KillEvent struct {
	KillID   int64    `json:"killID"`
	Killmail Killmail `json:"killmail"`
	ZKB      ZKB      `json:"zkb"`
}

type Killmail struct {
	KillmailID    int64      `json:"killmail_id"`
	Time          time.Time  `json:"killmail_time"`
	SolarSystemID int64      `json:"solar_system_id"`
	Victim        Victim     `json:"victim"`
	Attackers     []Attacker `json:"attackers"`
}

type Victim struct {
	CharacterID   *int64 `json:"character_id,omitempty"`
	CorporationID *int64 `json:"corporation_id,omitempty"`
	AllianceID    *int64 `json:"alliance_id,omitempty"`
	ShipTypeID    int64  `json:"ship_type_id"`
	DamageTaken   int64  `json:"damage_taken"`
}

type Attacker struct {
	CharacterID    *int64  `json:"character_id,omitempty"`
	CorporationID  *int64  `json:"corporation_id,omitempty"`
	AllianceID     *int64  `json:"alliance_id,omitempty"`
	ShipTypeID     *int64  `json:"ship_type_id,omitempty"`
	WeaponTypeID   *int64  `json:"weapon_type_id,omitempty"`
	FinalBlow      bool    `json:"final_blow"`
	DamageDone     int64   `json:"damage_done"`
	SecurityStatus float64 `json:"security_status"`
}

// ZKB — метаданные zKillboard.
type ZKB struct {
	LocationID  int64   `json:"locationID"`
	Hash        string  `json:"hash"`
	FittedValue float64 `json:"fittedValue"`
	TotalValue  float64 `json:"totalValue"`
	Points      int     `json:"points"`
	NPC         bool    `json:"npc"`
	Solo        bool    `json:"solo"`
	Awox        bool    `json:"awox"`
}

// FinalBlow — первый атакующий с флагом final_blow или nil.
func (e *KillEvent) FinalBlow() *Attacker {
	for i := range e.Killmail.Attackers {
		if e.Killmail.Attackers[i].FinalBlow {
			return &e.Killmail.Attackers[i]
		}
	}
	return nil
}

// ID возвращает значение необязательного id и признак наличия.
func ID(p *int64) (int64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

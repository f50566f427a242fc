package killfeed

import (
	"github.com/bwmarrin/snowflake"

	"github.com/EgorLis/killbot/internal/config"
	"github.com/EgorLis/killbot/internal/subscription"
	"github.com/EgorLis/killbot/internal/zkill"
)

type Mode int

const (
	ModeNormal Mode = iota
	ModeBig
	ModeLoss
)

func (m Mode) String() string {
	switch m {
	case ModeBig:
		return "big"
	case ModeLoss:
		return "loss"
	default:
		return "normal"
	}
}

// Location — где произошёл килл. Нулевые поля — не удалось разрешить.
type Location struct {
	SystemID        int64
	ConstellationID int64
	RegionID        int64
}

type Destination struct {
	ChannelID snowflake.ID
	Mode      Mode
}

type Router struct {
	groups     []config.StaticGroup
	bigKills   bool
	bigValue   float64
	bigChannel snowflake.ID
}

func NewRouter(cfg config.KillmailConfig) *Router {
	return &Router{
		groups:     cfg.Groups,
		bigKills:   cfg.BigKills,
		bigValue:   cfg.BigKillsValue,
		bigChannel: cfg.BigKillsChannel,
	}
}

type idSet map[int64]struct{}

func (s idSet) add(p *int64) {
	if id, ok := zkill.ID(p); ok {
		s[id] = struct{}{}
	}
}

func (s idSet) has(id int64) bool {
	_, ok := s[id]
	return ok
}

// Match решает, в какие каналы и в каком режиме уйдёт киллмейл.
// Порядок: статические группы (в порядке конфига), динамические подписки
// (в порядке subs), big kill. Каждый канал — не больше одного раза.
func (r *Router) Match(ev *zkill.KillEvent, loc Location, subs []subscription.Subscription) []Destination {
	km := ev.Killmail
	value := ev.ZKB.TotalValue

	attackerGroups := idSet{}
	characters := idSet{}
	for i := range km.Attackers {
		a := &km.Attackers[i]
		attackerGroups.add(a.CorporationID)
		attackerGroups.add(a.AllianceID)
		characters.add(a.CharacterID)
	}
	characters.add(km.Victim.CharacterID)

	lossGroups := idSet{}
	lossGroups.add(km.Victim.CorporationID)
	lossGroups.add(km.Victim.AllianceID)

	var out []Destination
	claimed := map[snowflake.ID]struct{}{}
	claim := func(ch snowflake.ID, mode Mode) {
		if ch == 0 {
			return
		}
		if _, ok := claimed[ch]; ok {
			return
		}
		claimed[ch] = struct{}{}
		out = append(out, Destination{ChannelID: ch, Mode: mode})
	}

	// NPC-киллы и жертвы без корпорации статическим группам не интересны
	if !ev.ZKB.NPC && km.Victim.CorporationID != nil {
		for _, g := range r.groups {
			switch {
			case g.LossMails && lossGroups.has(g.ID):
				claim(g.ChannelID, ModeLoss)
			case attackerGroups.has(g.ID):
				claim(g.ChannelID, ModeNormal)
			}
		}
	}

	for _, s := range subs {
		if value < s.MinValue {
			continue
		}
		t := s.TargetID
		switch {
		case s.Kind != subscription.KindAny && (t == loc.RegionID || t == loc.SystemID) && t != 0:
			claim(s.ChannelID, ModeNormal)
		case s.Kind != subscription.KindAny && (attackerGroups.has(t) || characters.has(t)):
			claim(s.ChannelID, ModeNormal)
		case s.Loss && lossGroups.has(t):
			claim(s.ChannelID, ModeLoss)
		case s.Kind == subscription.KindAny:
			claim(s.ChannelID, ModeBig)
		}
	}

	if r.bigKills && value >= r.bigValue {
		claim(r.bigChannel, ModeBig)
	}
	return out
}

package killfeed

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/EgorLis/killbot/internal/discord"
	"github.com/EgorLis/killbot/internal/esi"
	"github.com/EgorLis/killbot/internal/zkill"
)

func id(v int64) *int64 { return &v }

// newKill — киллмейл в 1DQ1-A: жертва с альянсом, добивание от структуры.
func newKill() *zkill.KillEvent {
	return &zkill.KillEvent{
		KillID: 118000001,
		Killmail: zkill.Killmail{
			KillmailID:    118000001,
			Time:          time.Date(2024, 5, 1, 18, 42, 17, 0, time.UTC),
			SolarSystemID: 30004759,
			Victim: zkill.Victim{
				CharacterID:   id(90000001),
				CorporationID: id(98000001),
				AllianceID:    id(99000001),
				ShipTypeID:    587,
			},
			Attackers: []zkill.Attacker{
				{CharacterID: id(90000010), CorporationID: id(98000010), AllianceID: id(99000010), ShipTypeID: id(17738)},
				{CorporationID: id(98000011), ShipTypeID: id(35832), FinalBlow: true},
			},
		},
		ZKB: zkill.ZKB{LocationID: 40000001, TotalValue: 2e9, Awox: true},
	}
}

type fakeUniverse struct {
	mu    sync.Mutex
	calls int
	fail  error // если задано — любой запрос падает с этой ошибкой

	systems        map[int64]esi.System
	constellations map[int64]esi.Constellation
	types          map[int64]string
	characters     map[int64]string
	corporations   map[int64]string
	alliances      map[int64]string
	celestials     map[int64]string
}

func newFakeUniverse() *fakeUniverse {
	return &fakeUniverse{
		systems: map[int64]esi.System{
			30004759: {SystemID: 30004759, ConstellationID: 20000696, Name: "1dq1-a"},
		},
		constellations: map[int64]esi.Constellation{
			20000696: {ConstellationID: 20000696, RegionID: 10000060, Name: "O-EIMK"},
		},
		types: map[int64]string{
			587:   "Rifter",
			17738: "Machariel",
			35832: "Astrahus",
		},
		characters: map[int64]string{
			90000001: "Victim Pilot",
			90000010: "Hunter Pilot",
		},
		corporations: map[int64]string{
			98000001: "Victim Corp",
			98000010: "Hunter Corp",
			98000011: "Citadel Corp",
		},
		alliances: map[int64]string{
			99000001: "Victim Alliance",
			99000010: "Hunter Alliance",
		},
		celestials: map[int64]string{
			40000001: "1DQ1-A IV",
		},
	}
}

func (f *fakeUniverse) hit() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.fail
}

func lookup[T any](f *fakeUniverse, m map[int64]T, id int64) (T, error) {
	var zero T
	if err := f.hit(); err != nil {
		return zero, err
	}
	v, ok := m[id]
	if !ok {
		return zero, esi.ErrNotFound
	}
	return v, nil
}

func (f *fakeUniverse) System(_ context.Context, id int64, _ ...esi.FetchOption) (*esi.System, error) {
	v, err := lookup(f, f.systems, id)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (f *fakeUniverse) Constellation(_ context.Context, id int64, _ ...esi.FetchOption) (*esi.Constellation, error) {
	v, err := lookup(f, f.constellations, id)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (f *fakeUniverse) Type(_ context.Context, id int64, _ ...esi.FetchOption) (*esi.Type, error) {
	name, err := lookup(f, f.types, id)
	if err != nil {
		return nil, err
	}
	return &esi.Type{TypeID: id, Name: name}, nil
}

func (f *fakeUniverse) Character(_ context.Context, id int64, _ ...esi.FetchOption) (*esi.Character, error) {
	name, err := lookup(f, f.characters, id)
	if err != nil {
		return nil, err
	}
	return &esi.Character{Name: name}, nil
}

func (f *fakeUniverse) Corporation(_ context.Context, id int64, _ ...esi.FetchOption) (*esi.Corporation, error) {
	name, err := lookup(f, f.corporations, id)
	if err != nil {
		return nil, err
	}
	return &esi.Corporation{Name: name}, nil
}

func (f *fakeUniverse) Alliance(_ context.Context, id int64, _ ...esi.FetchOption) (*esi.Alliance, error) {
	name, err := lookup(f, f.alliances, id)
	if err != nil {
		return nil, err
	}
	return &esi.Alliance{Name: name}, nil
}

func (f *fakeUniverse) Celestial(_ context.Context, id int64, _ ...esi.FetchOption) esi.Celestial {
	name, err := lookup(f, f.celestials, id)
	if err != nil {
		return esi.Celestial{}
	}
	return esi.Celestial{Name: name}
}

type sent struct {
	channel snowflake.ID
	embed   discord.Embed
}

type fakeSender struct {
	mu    sync.Mutex
	sends []sent
	fail  map[snowflake.ID]error
}

func (s *fakeSender) SendEmbed(_ context.Context, ch snowflake.ID, e discord.Embed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends = append(s.sends, sent{channel: ch, embed: e})
	return s.fail[ch]
}

func (s *fakeSender) sentTo(ch snowflake.ID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, x := range s.sends {
		if x.channel == ch {
			n++
		}
	}
	return n
}

type countingObserver struct {
	deliveries map[string]int
	pruned     int64
}

func (o *countingObserver) ObserveDelivery(mode, result string) {
	if o.deliveries == nil {
		o.deliveries = map[string]int{}
	}
	o.deliveries[mode+"/"+result]++
}

func (o *countingObserver) ObservePruned(n int64) { o.pruned += n }

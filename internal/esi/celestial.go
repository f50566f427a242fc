package esi

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

type CelestialKind string

const (
	KindPlanet    CelestialKind = "planet"
	KindStargate  CelestialKind = "stargate"
	KindStar      CelestialKind = "star"
	KindStation   CelestialKind = "station"
	KindMoon      CelestialKind = "moon"
	KindBelt      CelestialKind = "asteroid_belt"
	KindUndefined CelestialKind = ""
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Celestial — любой именованный объект системы. Пустой Name означает,
// что объект не удалось опознать ни одним из проб.
type Celestial struct {
	Kind     CelestialKind `json:"-"`
	Name     string        `json:"name"`
	SystemID int64         `json:"system_id,omitempty"`
	TypeID   int64         `json:"type_id,omitempty"`
	Position *Position     `json:"position,omitempty"`
}

func (c *Client) Planet(ctx context.Context, id int64, opts ...FetchOption) (*Celestial, error) {
	return c.celestialProbe(ctx, KindPlanet, c.planets, id, "planets", opts)
}

func (c *Client) Stargate(ctx context.Context, id int64, opts ...FetchOption) (*Celestial, error) {
	return c.celestialProbe(ctx, KindStargate, c.stargates, id, "stargates", opts)
}

func (c *Client) Star(ctx context.Context, id int64, opts ...FetchOption) (*Celestial, error) {
	return c.celestialProbe(ctx, KindStar, c.stars, id, "stars", opts)
}

func (c *Client) Station(ctx context.Context, id int64, opts ...FetchOption) (*Celestial, error) {
	return c.celestialProbe(ctx, KindStation, c.stations, id, "stations", opts)
}

func (c *Client) Moon(ctx context.Context, id int64, opts ...FetchOption) (*Celestial, error) {
	return c.celestialProbe(ctx, KindMoon, c.moons, id, "moons", opts)
}

func (c *Client) AsteroidBelt(ctx context.Context, id int64, opts ...FetchOption) (*Celestial, error) {
	return c.celestialProbe(ctx, KindBelt, c.belts, id, "asteroid_belts", opts)
}

func (c *Client) celestialProbe(ctx context.Context, kind CelestialKind, store *cache[Celestial], id int64, path string, opts []FetchOption) (*Celestial, error) {
	rec, err := fetch(ctx, c, string(kind), store, id, fmt.Sprintf("%s/universe/%s/%d/", c.baseURL, path, id), opts)
	if err != nil {
		return nil, err
	}
	out := *rec
	out.Kind = kind
	return &out, nil
}

// Celestial определяет, чем является id (чаще всего locationID из zKillboard):
// пробует планету, врата, звезду, станцию, луну и пояс астероидов строго
// в этом порядке, первый ответ с именем выигрывает. Если не подошло ничего,
// возвращается пустая запись, и она тоже кэшируется, чтобы повторный
// промах стоил O(1). Сетевые сбои пустую запись в кэш не кладут.
func (c *Client) Celestial(ctx context.Context, id int64, opts ...FetchOption) Celestial {
	if resolveFetchOptions(opts).allowCache {
		if v, ok := c.celestials.get(id); ok {
			if c.obs != nil {
				c.obs.ObserveESICacheHit("celestial")
			}
			return *v
		}
	}

	probes := []func(context.Context, int64, ...FetchOption) (*Celestial, error){
		c.Planet, c.Stargate, c.Star, c.Station, c.Moon, c.AsteroidBelt,
	}
	transient := false
	for _, probe := range probes {
		rec, err := probe(ctx, id, opts...)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				transient = true
				c.log.Debug("celestial probe failed", zap.Int64("id", id), zap.Error(err))
			}
			continue
		}
		if rec.Name != "" {
			found := *rec
			c.celestials.set(id, &found)
			return found
		}
	}

	if !transient {
		c.celestials.set(id, &Celestial{})
	}
	return Celestial{}
}

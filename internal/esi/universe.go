package esi

import (
	"context"
	"fmt"
)

type System struct {
	SystemID        int64   `json:"system_id"`
	ConstellationID int64   `json:"constellation_id"`
	Name            string  `json:"name"`
	SecurityStatus  float64 `json:"security_status"`
	SecurityClass   string  `json:"security_class,omitempty"`
	StarID          int64   `json:"star_id,omitempty"`
	Planets         []struct {
		PlanetID int64   `json:"planet_id"`
		Moons    []int64 `json:"moons,omitempty"`
	} `json:"planets,omitempty"`
	Stargates []int64 `json:"stargates,omitempty"`
	Stations  []int64 `json:"stations,omitempty"`
}

type Constellation struct {
	ConstellationID int64   `json:"constellation_id"`
	RegionID        int64   `json:"region_id"`
	Name            string  `json:"name"`
	Systems         []int64 `json:"systems,omitempty"`
}

type Region struct {
	RegionID       int64   `json:"region_id"`
	Name           string  `json:"name"`
	Description    string  `json:"description,omitempty"`
	Constellations []int64 `json:"constellations,omitempty"`
}

// Type — тип предмета (корабль, модуль, структура).
type Type struct {
	TypeID      int64   `json:"type_id"`
	Name        string  `json:"name"`
	GroupID     int64   `json:"group_id"`
	Published   bool    `json:"published"`
	Description string  `json:"description,omitempty"`
	Volume      float64 `json:"volume,omitempty"`
}

func (c *Client) System(ctx context.Context, id int64, opts ...FetchOption) (*System, error) {
	return fetch(ctx, c, "system", c.systems, id, fmt.Sprintf("%s/universe/systems/%d/", c.baseURL, id), opts)
}

// SystemName — имя системы или ErrNotFound.
func (c *Client) SystemName(ctx context.Context, id int64) (string, error) {
	s, err := c.System(ctx, id)
	if err != nil {
		return "", err
	}
	return s.Name, nil
}

func (c *Client) Constellation(ctx context.Context, id int64, opts ...FetchOption) (*Constellation, error) {
	return fetch(ctx, c, "constellation", c.constellations, id, fmt.Sprintf("%s/universe/constellations/%d/", c.baseURL, id), opts)
}

func (c *Client) Region(ctx context.Context, id int64, opts ...FetchOption) (*Region, error) {
	return fetch(ctx, c, "region", c.regions, id, fmt.Sprintf("%s/universe/regions/%d/", c.baseURL, id), opts)
}

func (c *Client) Type(ctx context.Context, id int64, opts ...FetchOption) (*Type, error) {
	return fetch(ctx, c, "type", c.types, id, fmt.Sprintf("%s/universe/types/%d/", c.baseURL, id), opts)
}

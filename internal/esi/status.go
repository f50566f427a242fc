package esi

import (
	"context"
	"fmt"
	"time"
)

type ServerStatus struct {
	Players       int       `json:"players"`
	ServerVersion string    `json:"server_version"`
	StartTime     time.Time `json:"start_time"`
	VIP           bool      `json:"vip,omitempty"`
}

type SystemJumps struct {
	SystemID  int64 `json:"system_id"`
	ShipJumps int   `json:"ship_jumps"`
}

type Incursion struct {
	ConstellationID      int64   `json:"constellation_id"`
	FactionID            int64   `json:"faction_id"`
	HasBoss              bool    `json:"has_boss"`
	InfestedSolarSystems []int64 `json:"infested_solar_systems"`
	Influence            float64 `json:"influence"`
	StagingSolarSystemID int64   `json:"staging_solar_system_id"`
	State                string  `json:"state"`
	Type                 string  `json:"type"`
}

type SovCampaign struct {
	CampaignID      int64     `json:"campaign_id"`
	ConstellationID int64     `json:"constellation_id"`
	SolarSystemID   int64     `json:"solar_system_id"`
	StructureID     int64     `json:"structure_id"`
	EventType       string    `json:"event_type"`
	DefenderID      int64     `json:"defender_id,omitempty"`
	DefenderScore   float64   `json:"defender_score,omitempty"`
	AttackersScore  float64   `json:"attackers_score,omitempty"`
	StartTime       time.Time `json:"start_time"`
}

// Статусные эндпоинты не кэшируются — данные живые.

func (c *Client) Status(ctx context.Context) (*ServerStatus, error) {
	var out ServerStatus
	if err := c.getJSON(ctx, "status", c.baseURL+"/status/", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SystemJumps(ctx context.Context) ([]SystemJumps, error) {
	var out []SystemJumps
	if err := c.getJSON(ctx, "system_jumps", c.baseURL+"/universe/system_jumps/", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ShipJumps — прыжки за последний час по системе; 0, если системы нет в списке.
func (c *Client) ShipJumps(ctx context.Context, systemID int64) (int, error) {
	all, err := c.SystemJumps(ctx)
	if err != nil {
		return 0, err
	}
	for _, s := range all {
		if s.SystemID == systemID {
			return s.ShipJumps, nil
		}
	}
	return 0, nil
}

func (c *Client) Incursions(ctx context.Context) ([]Incursion, error) {
	var out []Incursion
	if err := c.getJSON(ctx, "incursions", c.baseURL+"/incursions/", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SovCampaigns(ctx context.Context) ([]SovCampaign, error) {
	var out []SovCampaign
	u := fmt.Sprintf("%s/sovereignty/campaigns/?datasource=tranquility", c.baseURL)
	if err := c.getJSON(ctx, "sov_campaigns", u, &out); err != nil {
		return nil, err
	}
	return out, nil
}

package esi

import (
	"context"
	"fmt"
	"time"
)

type Character struct {
	Name           string    `json:"name"`
	CorporationID  int64     `json:"corporation_id"`
	AllianceID     int64     `json:"alliance_id,omitempty"`
	Birthday       time.Time `json:"birthday"`
	SecurityStatus float64   `json:"security_status,omitempty"`
	Description    string    `json:"description,omitempty"`
}

type Corporation struct {
	Name          string `json:"name"`
	Ticker        string `json:"ticker"`
	AllianceID    int64  `json:"alliance_id,omitempty"`
	CEOID         int64  `json:"ceo_id"`
	MemberCount   int    `json:"member_count"`
	DateFounded   string `json:"date_founded,omitempty"`
	HomeStationID int64  `json:"home_station_id,omitempty"`
}

type Alliance struct {
	Name                  string    `json:"name"`
	Ticker                string    `json:"ticker"`
	ExecutorCorporationID int64     `json:"executor_corporation_id,omitempty"`
	DateFounded           time.Time `json:"date_founded"`
}

func (c *Client) Character(ctx context.Context, id int64, opts ...FetchOption) (*Character, error) {
	return fetch(ctx, c, "character", c.characters, id, fmt.Sprintf("%s/characters/%d/", c.baseURL, id), opts)
}

func (c *Client) Corporation(ctx context.Context, id int64, opts ...FetchOption) (*Corporation, error) {
	return fetch(ctx, c, "corporation", c.corporations, id, fmt.Sprintf("%s/corporations/%d/", c.baseURL, id), opts)
}

func (c *Client) Alliance(ctx context.Context, id int64, opts ...FetchOption) (*Alliance, error) {
	return fetch(ctx, c, "alliance", c.alliances, id, fmt.Sprintf("%s/alliances/%d/", c.baseURL, id), opts)
}

func (c *Client) CharacterName(ctx context.Context, id int64) (string, error) {
	ch, err := c.Character(ctx, id)
	if err != nil {
		return "", err
	}
	return ch.Name, nil
}

func (c *Client) CharacterCorpID(ctx context.Context, id int64) (int64, error) {
	ch, err := c.Character(ctx, id)
	if err != nil {
		return 0, err
	}
	return ch.CorporationID, nil
}

// CharacterAllianceID — 0, если персонаж вне альянса.
func (c *Client) CharacterAllianceID(ctx context.Context, id int64) (int64, error) {
	ch, err := c.Character(ctx, id)
	if err != nil {
		return 0, err
	}
	return ch.AllianceID, nil
}

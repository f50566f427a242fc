package esi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

type ItemLookup struct {
	TypeID   int64  `json:"typeID"`
	TypeName string `json:"typeName"`
}

// MarketSide — агрегат одной стороны стакана; fuzzwork отдаёт числа строками.
type MarketSide struct {
	WeightedAverage float64 `json:"weightedAverage,string"`
	Max             float64 `json:"max,string"`
	Min             float64 `json:"min,string"`
	Stddev          float64 `json:"stddev,string"`
	Median          float64 `json:"median,string"`
	Volume          float64 `json:"volume,string"`
	OrderCount      int64   `json:"orderCount,string"`
	Percentile      float64 `json:"percentile,string"`
}

type MarketAggregate struct {
	Buy  MarketSide `json:"buy"`
	Sell MarketSide `json:"sell"`
}

// ItemID — typeID по точному имени предмета.
func (c *Client) ItemID(ctx context.Context, name string) (int64, error) {
	var out ItemLookup
	u := fmt.Sprintf("%s/typeid.php?typename=%s", c.fuzzURL, url.QueryEscape(name))
	if err := c.getJSON(ctx, "item_id", u, &out); err != nil {
		return 0, err
	}
	if out.TypeID == 0 {
		return 0, fmt.Errorf("%w: item %q", ErrNotFound, name)
	}
	return out.TypeID, nil
}

// MarketData — рыночный агрегат для предмета name на станции station.
// Предмет ищется через Search по категории inventory_type, берётся первый id.
func (c *Client) MarketData(ctx context.Context, name string, station int64) (int64, *MarketAggregate, error) {
	ids, err := c.Search(ctx, name, "inventory_type", false)
	if err != nil {
		return 0, nil, err
	}
	if len(ids) == 0 {
		return 0, nil, fmt.Errorf("%w: item %q", ErrNotFound, name)
	}
	itemID := ids[0]

	var data map[string]MarketAggregate
	u := fmt.Sprintf("%s/?station=%d&types=%d", c.marketURL, station, itemID)
	if err := c.getJSON(ctx, "market", u, &data); err != nil {
		return itemID, nil, err
	}
	agg, ok := data[strconv.FormatInt(itemID, 10)]
	if !ok {
		return itemID, nil, fmt.Errorf("%w: market data for %d", ErrNotFound, itemID)
	}
	return itemID, &agg, nil
}

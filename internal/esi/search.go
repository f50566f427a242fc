package esi

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// Search ищет query в категории ESI (character, solar_system,
// inventory_type, ...). Сначала нестрогий поиск; если результатов больше
// одного и строгий режим не форсирован — повторяем строго и берём строгий
// набор, когда он непустой, иначе остаётся исходный.
func (c *Client) Search(ctx context.Context, query, category string, forceStrict bool) ([]int64, error) {
	data, err := c.searchOnce(ctx, query, category, forceStrict)
	if err != nil {
		return nil, err
	}
	ids, ok := data[category]
	if !ok {
		return nil, fmt.Errorf("%w: search %q in %s", ErrNotFound, query, category)
	}

	if len(ids) > 1 && !forceStrict {
		strict, err := c.searchOnce(ctx, query, category, true)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if s := strict[category]; len(s) > 0 {
			return s, nil
		}
	}
	return ids, nil
}

func (c *Client) searchOnce(ctx context.Context, query, category string, strict bool) (map[string][]int64, error) {
	u := fmt.Sprintf("%s/search/?categories=%s&datasource=tranquility&language=en-us&search=%s&strict=%t",
		c.baseURL, url.QueryEscape(category), url.QueryEscape(query), strict)
	var data map[string][]int64
	if err := c.getJSON(ctx, "search", u, &data); err != nil {
		return nil, err
	}
	return data, nil
}

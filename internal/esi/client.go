package esi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const maxBody = 8 << 20

var (
	// ErrNotFound — запись отсутствует (не-2xx, пустой или битый JSON).
	ErrNotFound = errors.New("esi: not found")
	// ErrInvalidToken — OAuth endpoint ответил не JSON: токен невалиден/протух.
	ErrInvalidToken = errors.New("esi: invalid or expired token")
)

// Observer получает события запросов и попаданий в кэш (метрики).
type Observer interface {
	ObserveESIRequest(kind, result string)
	ObserveESICacheHit(kind string)
}

type Client struct {
	http      *http.Client
	log       *zap.Logger
	obs       Observer
	baseURL   string
	fuzzURL   string
	marketURL string
	oauthURL  string
	userAgent string

	systems        *cache[System]
	constellations *cache[Constellation]
	regions        *cache[Region]
	planets        *cache[Celestial]
	moons          *cache[Celestial]
	belts          *cache[Celestial]
	stargates      *cache[Celestial]
	stars          *cache[Celestial]
	stations       *cache[Celestial]
	celestials     *cache[Celestial]
	types          *cache[Type]
	characters     *cache[Character]
	corporations   *cache[Corporation]
	alliances      *cache[Alliance]
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }
func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l.Named("esi") } }
func WithObserver(o Observer) Option { return func(c *Client) { c.obs = o } }
func WithUserAgent(ua string) Option { return func(c *Client) { c.userAgent = ua } }

// WithEndpoints переопределяет базовые адреса; пустые значения не трогаются.
func WithEndpoints(esiURL, fuzzURL, marketURL, oauthURL string) Option {
	return func(c *Client) {
		if esiURL != "" {
			c.baseURL = strings.TrimRight(esiURL, "/")
		}
		if fuzzURL != "" {
			c.fuzzURL = strings.TrimRight(fuzzURL, "/")
		}
		if marketURL != "" {
			c.marketURL = strings.TrimRight(marketURL, "/")
		}
		if oauthURL != "" {
			c.oauthURL = oauthURL
		}
	}
}

// New создает клиент со стандартными адресами ESI и пустыми кэшами.
func New(opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: 15 * time.Second},
		log:       zap.NewNop(),
		baseURL:   "https://esi.evetech.net/latest",
		fuzzURL:   "https://www.fuzzwork.co.uk/api",
		marketURL: "https://market.fuzzwork.co.uk/aggregates",
		oauthURL:  "https://login.eveonline.com/oauth/verify",
		userAgent: "killbot/1.0",

		systems:        newCache[System](),
		constellations: newCache[Constellation](),
		regions:        newCache[Region](),
		planets:        newCache[Celestial](),
		moons:          newCache[Celestial](),
		belts:          newCache[Celestial](),
		stargates:      newCache[Celestial](),
		stars:          newCache[Celestial](),
		stations:       newCache[Celestial](),
		celestials:     newCache[Celestial](),
		types:          newCache[Type](),
		characters:     newCache[Character](),
		corporations:   newCache[Corporation](),
		alliances:      newCache[Alliance](),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type fetchOptions struct {
	allowCache bool
}

// FetchOption настраивает одиночный fetch.
type FetchOption func(*fetchOptions)

// WithoutCache — идти в сеть даже при наличии записи в кэше
// (свежий ответ всё равно кладётся в кэш).
func WithoutCache() FetchOption {
	return func(o *fetchOptions) { o.allowCache = false }
}

func resolveFetchOptions(opts []FetchOption) fetchOptions {
	o := fetchOptions{allowCache: true}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// fetch — общий путь для всех кэшируемых видов сущностей.
// Возвращаемый указатель разделяется с кэшем, менять его нельзя.
func fetch[T any](ctx context.Context, c *Client, kind string, store *cache[T], id int64, url string, opts []FetchOption) (*T, error) {
	if resolveFetchOptions(opts).allowCache {
		if v, ok := store.get(id); ok {
			if c.obs != nil {
				c.obs.ObserveESICacheHit(kind)
			}
			return v, nil
		}
	}
	var rec T
	if err := c.getJSON(ctx, kind, url, &rec); err != nil {
		return nil, err
	}
	store.set(id, &rec)
	return &rec, nil
}

// getJSON — один GET с разбором JSON в out.
func (c *Client) getJSON(ctx context.Context, kind, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(kind, "error")
		return fmt.Errorf("esi %s: %w", kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		_, _ = io.Copy(io.Discard, resp.Body)
		c.observe(kind, "not_found")
		c.log.Debug("esi non-2xx", zap.String("kind", kind), zap.String("url", url), zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: %s (%s)", ErrNotFound, kind, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		c.observe(kind, "error")
		return fmt.Errorf("esi %s: read body: %w", kind, err)
	}
	if err := decode(body, out); err != nil {
		c.observe(kind, "malformed")
		c.log.Debug("esi malformed body", zap.String("kind", kind), zap.String("url", url), zap.Error(err))
		return fmt.Errorf("%w: %s: %v", ErrNotFound, kind, err)
	}
	c.observe(kind, "ok")
	return nil
}

func decode(body []byte, out any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return errors.New("empty body")
	}
	return json.Unmarshal(trimmed, out)
}

func (c *Client) observe(kind, result string) {
	if c.obs != nil {
		c.obs.ObserveESIRequest(kind, result)
	}
}

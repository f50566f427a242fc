// Package config — типизированная конфигурация бота: YAML-файл плюс секреты
// из окружения (.env). Загружается один раз при старте и дальше не меняется.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultESIURL    = "https://esi.evetech.net/latest"
	DefaultFuzzURL   = "https://www.fuzzwork.co.uk/api"
	DefaultMarketURL = "https://market.fuzzwork.co.uk/aggregates"
	DefaultOAuthURL  = "https://login.eveonline.com/oauth/verify"
	DefaultQueueURL  = "https://redisq.zkillboard.com/listen.php"
	DefaultGateway   = "wss://gateway.discord.gg/?v=10&encoding=json"
	DefaultAPIURL    = "https://discord.com/api/v10"
)

// StaticGroup — корпорация/альянс из конфига, чьи киллы (и, при LossMails,
// лоссы) уходят в свой канал.
type StaticGroup struct {
	Name      string       `yaml:"name"`
	ID        int64        `yaml:"id"`
	ChannelID snowflake.ID `yaml:"channel_id"`
	LossMails bool         `yaml:"loss_mails"`
}

type KillmailConfig struct {
	Groups          []StaticGroup `yaml:"groups"` // порядок важен: первый матч занимает канал
	BigKills        bool          `yaml:"big_kills"`
	BigKillsValue   float64       `yaml:"big_kills_value"`
	BigKillsChannel snowflake.ID  `yaml:"big_kills_channel"`
}

type DiscordConfig struct {
	Token      string         `yaml:"token"`
	GatewayURL string         `yaml:"gateway_url"`
	APIURL     string         `yaml:"api_url"`
	Intents    int            `yaml:"intents"`
	Prefix     string         `yaml:"prefix"`
	Admins     []snowflake.ID `yaml:"admins"` // кому можно !killmail add/del
	Timeout    time.Duration  `yaml:"timeout"`
}

type ESIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	FuzzURL   string        `yaml:"fuzz_url"`
	MarketURL string        `yaml:"market_url"`
	OAuthURL  string        `yaml:"oauth_url"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

type ZKillConfig struct {
	QueueURL     string        `yaml:"queue_url"`
	Timeout      time.Duration `yaml:"timeout"`       // long-poll держит соединение ~10s
	EmptyBackoff time.Duration `yaml:"empty_backoff"` // пустая очередь
	TickInterval time.Duration `yaml:"tick_interval"` // пауза после каждого тика
	ErrorBackoff time.Duration `yaml:"error_backoff"` // после ошибки
}

type StoreConfig struct {
	Driver string `yaml:"driver"` // sqlite | postgres
	DSN    string `yaml:"dsn"`
}

type OpsConfig struct {
	Addr string `yaml:"addr"` // пусто — сервер не поднимаем
}

type Config struct {
	LogLevel string         `yaml:"log_level"`
	Discord  DiscordConfig  `yaml:"discord"`
	ESI      ESIConfig      `yaml:"esi"`
	ZKill    ZKillConfig    `yaml:"zkill"`
	Killmail KillmailConfig `yaml:"killmail"`
	Store    StoreConfig    `yaml:"store"`
	Ops      OpsConfig      `yaml:"ops"`
}

// Load читает YAML по пути path, подмешивает переменные окружения
// (в т.ч. из .env рядом с процессом), проставляет дефолты и валидирует.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

func Parse(b []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	c.applyEnv()
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("DISCORD_TOKEN")); v != "" {
		c.Discord.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("KILLBOT_LOG_LEVEL")); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("KILLBOT_DB_DSN")); v != "" {
		c.Store.DSN = v
	}
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	d := &c.Discord
	if d.GatewayURL == "" {
		d.GatewayURL = DefaultGateway
	}
	if d.APIURL == "" {
		d.APIURL = DefaultAPIURL
	}
	if d.Intents == 0 {
		// GUILDS | GUILD_MESSAGES | MESSAGE_CONTENT
		d.Intents = 1<<0 | 1<<9 | 1<<15
	}
	if d.Prefix == "" {
		d.Prefix = "!"
	}
	if d.Timeout == 0 {
		d.Timeout = 10 * time.Second
	}

	e := &c.ESI
	if e.BaseURL == "" {
		e.BaseURL = DefaultESIURL
	}
	if e.FuzzURL == "" {
		e.FuzzURL = DefaultFuzzURL
	}
	if e.MarketURL == "" {
		e.MarketURL = DefaultMarketURL
	}
	if e.OAuthURL == "" {
		e.OAuthURL = DefaultOAuthURL
	}
	if e.UserAgent == "" {
		e.UserAgent = "killbot/1.0"
	}
	if e.Timeout == 0 {
		e.Timeout = 15 * time.Second
	}

	z := &c.ZKill
	if z.QueueURL == "" {
		z.QueueURL = DefaultQueueURL
	}
	if z.Timeout == 0 {
		z.Timeout = 30 * time.Second
	}
	if z.EmptyBackoff == 0 {
		z.EmptyBackoff = 15 * time.Second
	}
	if z.TickInterval == 0 {
		z.TickInterval = time.Second
	}
	if z.ErrorBackoff == 0 {
		z.ErrorBackoff = 5 * time.Second
	}

	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.Store.DSN == "" && c.Store.Driver == "sqlite" {
		c.Store.DSN = "killbot.db"
	}
}

// Validate проверяет то, без чего бот не сможет работать осмысленно.
func (c Config) Validate() error {
	var errs []error
	if c.Discord.Token == "" {
		errs = append(errs, errors.New("discord token is empty (set discord.token or DISCORD_TOKEN)"))
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unsupported store driver %q", c.Store.Driver))
	}
	if c.Store.DSN == "" {
		errs = append(errs, errors.New("store dsn is empty"))
	}
	for i, g := range c.Killmail.Groups {
		if g.ID == 0 || g.ChannelID == 0 {
			errs = append(errs, fmt.Errorf("killmail group #%d (%s): id and channel_id are required", i, g.Name))
		}
	}
	if c.Killmail.BigKills {
		if c.Killmail.BigKillsChannel == 0 {
			errs = append(errs, errors.New("big_kills enabled without big_kills_channel"))
		}
		if c.Killmail.BigKillsValue <= 0 {
			errs = append(errs, errors.New("big_kills_value must be positive"))
		}
	}
	return errors.Join(errs...)
}

// IsAdmin — userID в списке администраторов.
func (d DiscordConfig) IsAdmin(userID snowflake.ID) bool {
	for _, id := range d.Admins {
		if id == userID {
			return true
		}
	}
	return false
}

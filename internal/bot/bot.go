package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/EgorLis/killbot/internal/config"
	"github.com/EgorLis/killbot/internal/discord"
	"github.com/EgorLis/killbot/internal/esi"
	"github.com/EgorLis/killbot/internal/killfeed"
	"github.com/EgorLis/killbot/internal/ops"
	"github.com/EgorLis/killbot/internal/subscription"
	"github.com/EgorLis/killbot/internal/zkill"
)

// Messenger — куда бот пишет ответы и киллмейлы.
type Messenger interface {
	SendMessage(ctx context.Context, channelID snowflake.ID, content string) error
	SendEmbed(ctx context.Context, channelID snowflake.ID, e discord.Embed) error
}

type KillBot struct {
	cfg config.Config
	log *zap.Logger

	gw      *discord.Gateway
	msg     Messenger
	esi     *esi.Client
	store   *subscription.Store
	poller  *zkill.Poller
	metrics *ops.Metrics
	ops     *ops.Server

	stopCh chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func New(cfg config.Config, log *zap.Logger) *KillBot {
	if log == nil {
		log = zap.NewNop()
	}
	return &KillBot{
		cfg:     cfg,
		log:     log,
		metrics: ops.NewMetrics(),
	}
}

func (bot *KillBot) Metrics() *ops.Metrics { return bot.metrics }

func (bot *KillBot) SetDiscord(cfg config.DiscordConfig) {
	bot.cfg.Discord = cfg
	bot.gw = discord.NewGateway(cfg.GatewayURL, cfg.Token, cfg.Intents, bot.log)
	bot.msg = discord.NewREST(cfg.APIURL, cfg.Token, cfg.Timeout, bot.log)

	bot.gw.OnConnecting = func() { bot.log.Info("connecting to discord gateway") }
	bot.gw.OnError = func(err error) { bot.log.Warn("gateway error", zap.Error(err)) }
	bot.gw.OnDisconnected = func() { bot.log.Info("gateway disconnected") }

	bot.gw.OnMessage = func(m *discord.Message) {
		if m.Author.Bot || m.Author.ID == bot.gw.UserID() {
			return
		}
		text := strings.TrimSpace(m.Content)
		if !strings.HasPrefix(text, bot.cfg.Discord.Prefix) {
			return
		}
		// команды не должны блокировать чтение шлюза
		go bot.onCommand(m)
	}
}

// SetMessenger подменяет REST-клиент (для тестов и обёрток).
func (bot *KillBot) SetMessenger(m Messenger) { bot.msg = m }

func (bot *KillBot) SetESI(cfg config.ESIConfig) {
	bot.esi = esi.New(
		esi.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		esi.WithLogger(bot.log),
		esi.WithObserver(bot.metrics),
		esi.WithUserAgent(cfg.UserAgent),
		esi.WithEndpoints(cfg.BaseURL, cfg.FuzzURL, cfg.MarketURL, cfg.OAuthURL),
	)
}

func (bot *KillBot) SetStore(s *subscription.Store) { bot.store = s }

// SetKillfeed собирает конвейер лента -> маршрутизация -> рассылка.
// Требует SetDiscord, SetESI и SetStore.
func (bot *KillBot) SetKillfeed(zcfg config.ZKillConfig, kcfg config.KillmailConfig) error {
	if bot.esi == nil || bot.store == nil || bot.msg == nil {
		return errors.New("killfeed: esi, store and discord must be set first")
	}
	bot.cfg.ZKill, bot.cfg.Killmail = zcfg, kcfg

	proc := killfeed.NewProcessor(killfeed.NewRouter(kcfg), bot.esi, bot.store, bot.msg, bot.log)
	proc.SetObserver(bot.metrics)

	bot.poller = zkill.NewPoller(zcfg, proc, bot.log)
	bot.poller.SetObserver(bot.metrics)
	return nil
}

func (bot *KillBot) SetOps(cfg config.OpsConfig) {
	if cfg.Addr == "" {
		return
	}
	bot.ops = ops.NewServer(cfg.Addr, bot.metrics, bot.health, bot.log)
}

func (bot *KillBot) health() error {
	if bot.gw == nil || !bot.gw.IsConnected() {
		return errors.New("discord gateway is not connected")
	}
	return nil
}

func (bot *KillBot) Start() error {
	if bot == nil {
		return errors.New("бот не инициализирован")
	}
	if bot.gw == nil {
		return errors.New("модуль discord не инициализирован")
	}
	if bot.poller == nil {
		return errors.New("модуль killfeed не инициализирован")
	}

	bot.mu.Lock()
	if bot.stopCh != nil {
		bot.mu.Unlock()
		return errors.New("уже запущен")
	}
	bot.stopCh = make(chan struct{})
	stopCh := bot.stopCh
	bot.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	if err := bot.gw.Connect(ctx); err != nil {
		cancel()
		bot.mu.Lock()
		bot.stopCh = nil
		bot.mu.Unlock()
		return fmt.Errorf("connect gateway: %w", err)
	}

	// ленту начинаем читать только после READY: queueID = id бота
	ready := func(ctx context.Context) (string, error) {
		id, err := bot.gw.WaitReady(ctx)
		if err != nil {
			return "", err
		}
		return id.String(), nil
	}
	if err := bot.poller.Start(ready); err != nil {
		cancel()
		bot.gw.Disconnect()
		return err
	}

	if bot.ops != nil {
		if err := bot.ops.Start(); err != nil {
			bot.log.Error("ops server", zap.Error(err))
		}
	}

	// сторож для остановки
	bot.wg.Add(1)
	go func() {
		defer bot.wg.Done()
		<-stopCh
		bot.poller.Stop()
		if bot.ops != nil {
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = bot.ops.Stop(sctx)
			scancel()
		}
		cancel()
		bot.gw.Disconnect()
	}()

	return nil
}

func (bot *KillBot) Stop() {
	bot.mu.Lock()
	ch := bot.stopCh
	bot.stopCh = nil
	bot.mu.Unlock()

	if ch != nil {
		close(ch)     // повторный Stop() ничего не делает
		bot.wg.Wait() // ждём остановки ленты и шлюза
	}
}

func (bot *KillBot) onCommand(m *discord.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log := bot.log.With(
		zap.String("channel_id", m.ChannelID.String()),
		zap.String("user", m.Author.Username),
	)
	log.Info("command", zap.String("text", m.Content))

	if err := bot.HandleCommand(ctx, m); err != nil {
		log.Info("command failed", zap.Error(err))
		_ = bot.msg.SendMessage(ctx, m.ChannelID, fmt.Sprintf("err: %v", err))
	}
}

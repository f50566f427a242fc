// Package zkill — модель киллмейла zKillboard и опросчик очереди RedisQ.
package zkill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EgorLis/killbot/internal/config"
)

// Handler получает каждый валидный киллмейл синхронно, внутри тика.
type Handler interface {
	HandleKill(ctx context.Context, ev *KillEvent) error
}

type HandlerFunc func(ctx context.Context, ev *KillEvent) error

func (f HandlerFunc) HandleKill(ctx context.Context, ev *KillEvent) error { return f(ctx, ev) }

// ReadyFunc блокирует до готовности бота и отдаёт идентификатор очереди
// (id аккаунта бота), под которым процесс читает ленту.
type ReadyFunc func(ctx context.Context) (string, error)

// Observer — счётчики тиков (event / empty / error).
type Observer interface {
	ObserveFeedTick(result string)
}

type Poller struct {
	http         *http.Client
	queueURL     string
	emptyBackoff time.Duration
	tickInterval time.Duration
	errorBackoff time.Duration

	handler Handler
	log     *zap.Logger
	obs     Observer

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPoller(cfg config.ZKillConfig, h Handler, log *zap.Logger) *Poller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{
		http:         &http.Client{Timeout: cfg.Timeout},
		queueURL:     cfg.QueueURL,
		emptyBackoff: cfg.EmptyBackoff,
		tickInterval: cfg.TickInterval,
		errorBackoff: cfg.ErrorBackoff,
		handler:      h,
		log:          log.Named("zkill"),
	}
}

func (p *Poller) SetObserver(o Observer) { p.obs = o }

// Start запускает Run в фоне; повторный Start без Stop — ошибка.
func (p *Poller) Start(ready ReadyFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return errors.New("zkill: poller already running")
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		if err := p.Run(ctx, ready); err != nil && !errors.Is(err, context.Canceled) {
			p.log.Error("poller stopped", zap.Error(err))
		}
	}(p.done)
	return nil
}

// Stop останавливает фоновый цикл и ждёт его выхода. Повторный Stop безопасен.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Run — основной цикл: ждём готовности, потом бесконечно long-poll'им очередь.
// Ошибка тика (сеть, обработчик, паника) логируется, после чего цикл спит
// errorBackoff и продолжает. Выход только по отмене ctx.
func (p *Poller) Run(ctx context.Context, ready ReadyFunc) error {
	queueID, err := ready(ctx)
	if err != nil {
		return err
	}
	p.log.Info("polling killfeed", zap.String("queue_id", queueID), zap.String("url", p.queueURL))

	for {
		got, err := p.tick(ctx, queueID)
		if ctx.Err() != nil {
			return nil
		}
		switch {
		case err != nil:
			p.observe("error")
			p.log.Error("killfeed tick failed", zap.Error(err), zap.Duration("retry_in", p.errorBackoff))
			if !sleep(ctx, p.errorBackoff) {
				return nil
			}
			continue
		case !got:
			p.observe("empty")
			if !sleep(ctx, p.emptyBackoff) {
				return nil
			}
		default:
			p.observe("event")
		}
		if !sleep(ctx, p.tickInterval) {
			return nil
		}
	}
}

func (p *Poller) tick(ctx context.Context, queueID string) (got bool, err error) {
	tickID := uuid.NewString()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick %s: panic: %v", tickID, r)
		}
	}()

	ev, err := p.Fetch(ctx, queueID)
	if err != nil {
		return false, fmt.Errorf("tick %s: %w", tickID, err)
	}
	if ev == nil {
		return false, nil
	}

	p.log.Debug("kill received",
		zap.String("tick", tickID),
		zap.Int64("kill_id", ev.KillID),
		zap.Float64("value", ev.ZKB.TotalValue),
	)
	if err := p.handler.HandleKill(ctx, ev); err != nil {
		return true, fmt.Errorf("tick %s: kill %d: %w", tickID, ev.KillID, err)
	}
	return true, nil
}

type envelope struct {
	Package json.RawMessage `json:"package"`
}

// Fetch — один long-poll запрос к RedisQ. (nil, nil) — в этот тик события нет:
// битый JSON, пустой package или package без killID.
func (p *Poller) Fetch(ctx context.Context, queueID string) (*KillEvent, error) {
	u := p.queueURL + "?queueID=" + url.QueryEscape(queueID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("redisq: %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return Decode(body), nil
}

// Decode разбирает ответ RedisQ; nil — события нет.
func Decode(body []byte) *KillEvent {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil
	}
	if len(env.Package) == 0 || string(env.Package) == "null" {
		return nil
	}
	var ev KillEvent
	if err := json.Unmarshal(env.Package, &ev); err != nil {
		return nil
	}
	if ev.KillID == 0 {
		return nil
	}
	return &ev
}

func (p *Poller) observe(result string) {
	if p.obs != nil {
		p.obs.ObserveFeedTick(result)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Gateway struct {
	url     string
	token   string
	intents int
	log     *zap.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	sessionID string
	resumeURL string
	userID    snowflake.ID

	wmu     sync.Mutex    // сериализует запись в websocket
	hbStop  chan struct{} // стоп-канал heartbeat-горутины
	seq     atomic.Int64  // последний s из dispatch, 0 — ещё не было
	lastAck atomic.Int64  // unix nanos последнего heartbeat ack
	closed  atomic.Bool

	readyOnce sync.Once
	readyCh   chan struct{}

	// "События"
	OnConnecting   func()
	OnReady        func(User)
	OnMessage      func(*Message)
	OnDisconnected func()
	OnError        func(error)
}

func NewGateway(url, token string, intents int, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{
		url:     url,
		token:   token,
		intents: intents,
		log:     log.Named("gateway"),
		readyCh: make(chan struct{}),
	}
}

// Connect — устанавливает WebSocket, проходит Hello/Identify и запускает readLoop.
// Контекст можно отменить для мягкого выхода из readLoop.
func (g *Gateway) Connect(ctx context.Context) error {
	if g.OnConnecting != nil {
		g.OnConnecting()
	}
	if err := g.dialAndSetup(ctx, g.url); err != nil {
		return err
	}
	g.closed.Store(false)
	go g.readLoop(ctx)
	return nil
}

func (g *Gateway) Disconnect() {
	g.closed.Store(true)
	g.closeConn()
	if g.OnDisconnected != nil {
		g.OnDisconnected()
	}
}

func (g *Gateway) IsConnected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.conn != nil && !g.closed.Load()
}

// WaitReady блокирует до первого READY и возвращает id аккаунта бота.
func (g *Gateway) WaitReady(ctx context.Context) (snowflake.ID, error) {
	select {
	case <-g.readyCh:
		g.mu.Lock()
		defer g.mu.Unlock()
		return g.userID, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// UserID — id бота; 0 до READY.
func (g *Gateway) UserID() snowflake.ID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.userID
}

func (g *Gateway) send(op int, d any) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	g.mu.Lock()
	conn := g.conn
	g.mu.Unlock()
	if conn == nil {
		return errors.New("gateway: not connected")
	}

	g.wmu.Lock()
	defer g.wmu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteJSON(payload{Op: op, D: raw})
}

func (g *Gateway) sendHeartbeat() error {
	var d any
	if s := g.seq.Load(); s > 0 {
		d = s
	}
	return g.send(opHeartbeat, d)
}

func (g *Gateway) handle(p payload) {
	if p.S != nil {
		g.seq.Store(*p.S)
	}

	switch p.Op {
	case opHeartbeatAck:
		g.lastAck.Store(time.Now().UnixNano())

	case opHeartbeat:
		if err := g.sendHeartbeat(); err != nil {
			g.emitError(err)
		}

	case opReconnect:
		g.log.Info("gateway asked to reconnect")
		g.closeConn()

	case opInvalidSession:
		var resumable bool
		_ = json.Unmarshal(p.D, &resumable)
		if !resumable {
			g.mu.Lock()
			g.sessionID, g.resumeURL = "", ""
			g.mu.Unlock()
			g.seq.Store(0)
		}
		g.log.Warn("invalid session", zap.Bool("resumable", resumable))
		g.closeConn()

	case opDispatch:
		g.dispatch(p.T, p.D)
	}
}

func (g *Gateway) dispatch(event string, d json.RawMessage) {
	switch event {
	case "READY":
		var r ready
		if err := json.Unmarshal(d, &r); err != nil {
			g.emitError(fmt.Errorf("decode READY: %w", err))
			return
		}
		g.mu.Lock()
		g.userID = r.User.ID
		g.sessionID = r.SessionID
		g.resumeURL = r.ResumeGatewayURL
		g.mu.Unlock()
		g.readyOnce.Do(func() { close(g.readyCh) })
		g.log.Info("gateway ready", zap.String("user", r.User.Username), zap.String("user_id", r.User.ID.String()))
		if g.OnReady != nil {
			g.OnReady(r.User)
		}

	case "RESUMED":
		g.log.Info("gateway session resumed")

	case "MESSAGE_CREATE":
		if g.OnMessage == nil {
			return
		}
		var m Message
		if err := json.Unmarshal(d, &m); err != nil {
			g.emitError(fmt.Errorf("decode MESSAGE_CREATE: %w", err))
			return
		}
		g.OnMessage(&m)
	}
}

func (g *Gateway) emitError(err error) {
	if g.OnError != nil && !g.closed.Load() {
		g.OnError(err)
	}
}

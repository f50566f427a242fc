package discord

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

func (g *Gateway) readLoop(ctx context.Context) {
	defer func() {
		g.closed.Store(true)
		g.closeConn()
		if g.OnDisconnected != nil {
			g.OnDisconnected()
		}
	}()

	// закрыть по отмене контекста
	go func() {
		<-ctx.Done()
		g.closeConn()
	}()

	backoff := time.Second

	for {
		g.mu.Lock()
		conn := g.conn
		g.mu.Unlock()

		if conn == nil {
			// соединение уже сброшено (op 7/9, зомби-heartbeat) — сразу в реконнект
			g.emitError(errors.New("connection is nil"))
		} else {
			var p payload
			_, data, err := conn.ReadMessage()
			if err == nil {
				if uerr := json.Unmarshal(data, &p); uerr != nil {
					g.emitError(uerr)
					continue
				}
				g.handle(p)
				backoff = time.Second
				continue
			}

			// ошибка чтения
			g.emitError(err)
			if g.closed.Load() {
				return
			}
		}

		g.closeConn()

		// реконнект с backoff
		for {
			if g.closed.Load() {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if derr := g.dialAndSetup(ctx, g.reconnectURL()); derr != nil {
				g.log.Warn("gateway reconnect failed", zap.Duration("wait", backoff), zap.Error(derr))
				g.emitError(derr)
				backoff *= 2
				if backoff > 30*time.Second {
					backoff = 30 * time.Second
				}
				continue
			}
			g.log.Info("gateway reconnected")
			backoff = time.Second
			break
		}
	}
}

// resume_gateway_url приходит без query, параметры берём из исходного адреса
func (g *Gateway) reconnectURL() string {
	g.mu.Lock()
	resumeURL, sessionID := g.resumeURL, g.sessionID
	g.mu.Unlock()
	if resumeURL == "" || sessionID == "" {
		return g.url
	}
	if i := strings.IndexByte(g.url, '?'); i >= 0 {
		return strings.TrimRight(resumeURL, "/") + "/" + g.url[i:]
	}
	return resumeURL
}

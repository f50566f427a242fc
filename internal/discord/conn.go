package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"time"

	"github.com/gorilla/websocket"
)

// dial + Hello + Identify/Resume + запуск heartbeat
func (g *Gateway) dialAndSetup(ctx context.Context, url string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	conn.SetReadLimit(16 << 20)

	// первым сообщением шлюз обязан прислать Hello
	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	var p payload
	if err := conn.ReadJSON(&p); err != nil {
		_ = conn.Close()
		return fmt.Errorf("gateway hello: %w", err)
	}
	if p.Op != opHello {
		_ = conn.Close()
		return fmt.Errorf("gateway hello: unexpected op %d", p.Op)
	}
	var h hello
	if err := json.Unmarshal(p.D, &h); err != nil || h.HeartbeatInterval <= 0 {
		_ = conn.Close()
		return fmt.Errorf("gateway hello: bad heartbeat interval")
	}
	_ = conn.SetReadDeadline(time.Time{})

	g.mu.Lock()
	g.conn = conn
	sessionID := g.sessionID
	g.mu.Unlock()

	g.lastAck.Store(time.Now().UnixNano())
	g.startHeartbeat(time.Duration(h.HeartbeatInterval) * time.Millisecond)

	if sessionID != "" && g.seq.Load() > 0 {
		err = g.send(opResume, resume{Token: g.token, SessionID: sessionID, Seq: g.seq.Load()})
	} else {
		err = g.send(opIdentify, identify{
			Token:   g.token,
			Intents: g.intents,
			Properties: identifyProperties{
				OS:      runtime.GOOS,
				Browser: "killbot",
				Device:  "killbot",
			},
		})
	}
	if err != nil {
		g.closeConn()
		return fmt.Errorf("gateway identify: %w", err)
	}
	return nil
}

// безопасно закрыть текущее соединение
func (g *Gateway) closeConn() {
	g.stopHeartbeat()

	g.mu.Lock()
	conn := g.conn
	g.conn = nil
	g.mu.Unlock()

	if conn != nil {
		g.wmu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closing"),
			time.Now().Add(500*time.Millisecond))
		g.wmu.Unlock()
		_ = conn.Close()
	}
}

// heartbeat каждые interval; если ack на прошлый так и не пришёл —
// соединение считаем зомби и закрываем, readLoop переподключится.
func (g *Gateway) startHeartbeat(interval time.Duration) {
	g.stopHeartbeat()
	stop := make(chan struct{})
	g.mu.Lock()
	g.hbStop = stop
	g.mu.Unlock()

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		var lastSent time.Time
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				if !lastSent.IsZero() && time.Unix(0, g.lastAck.Load()).Before(lastSent) {
					g.log.Warn("heartbeat ack missed, dropping connection")
					g.closeConn()
					return
				}
				lastSent = time.Now()
				if err := g.sendHeartbeat(); err != nil {
					g.emitError(fmt.Errorf("heartbeat: %w", err))
				}
			}
		}
	}()
}

func (g *Gateway) stopHeartbeat() {
	g.mu.Lock()
	stop := g.hbStop
	g.hbStop = nil
	g.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

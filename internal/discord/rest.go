package discord

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

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

// ErrChannelUnavailable — канал удалён или у бота нет к нему доступа.
// Получатель должен перестать туда слать.
var ErrChannelUnavailable = errors.New("discord: channel unavailable")

type APIError struct {
	Status  int
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discord api: status %d code %d: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.Status == http.StatusForbidden || e.Status == http.StatusNotFound {
		return ErrChannelUnavailable
	}
	return nil
}

type REST struct {
	http    *http.Client
	baseURL string
	token   string
	log     *zap.Logger

	maxRetries int
}

func NewREST(baseURL, token string, timeout time.Duration, log *zap.Logger) *REST {
	if log == nil {
		log = zap.NewNop()
	}
	return &REST{
		http:       &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		log:        log.Named("rest"),
		maxRetries: 2,
	}
}

type createMessage struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

func (r *REST) SendEmbed(ctx context.Context, channelID snowflake.ID, e Embed) error {
	return r.postMessage(ctx, channelID, createMessage{Embeds: []Embed{e}})
}

func (r *REST) SendMessage(ctx context.Context, channelID snowflake.ID, content string) error {
	return r.postMessage(ctx, channelID, createMessage{Content: content})
}

// postMessage повторяет 429 (по retry_after) и 5xx; остальное возвращает сразу.
func (r *REST) postMessage(ctx context.Context, channelID snowflake.ID, msg createMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/channels/%s/messages", r.baseURL, channelID)

	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		wait, err := r.do(ctx, url, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if wait <= 0 {
			return err
		}
		r.log.Debug("retrying discord request",
			zap.String("channel_id", channelID.String()),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return lastErr
}

// do возвращает паузу перед повтором, если запрос имеет смысл повторить.
func (r *REST) do(ctx context.Context, url string, body []byte) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bot "+r.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "DiscordBot (killbot, 1.0)")

	resp, err := r.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("discord: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return 0, nil
	}

	apiErr := &APIError{Status: resp.StatusCode}
	_ = json.Unmarshal(raw, apiErr)
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		var rl struct {
			RetryAfter float64 `json:"retry_after"`
		}
		_ = json.Unmarshal(raw, &rl)
		wait := time.Duration(rl.RetryAfter * float64(time.Second))
		if wait <= 0 {
			wait = time.Second
		}
		return wait, apiErr
	case resp.StatusCode >= 500:
		return time.Second, apiErr
	}
	return 0, apiErr
}

package esi

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
)

type TokenInfo struct {
	CharacterID        int64  `json:"CharacterID"`
	CharacterName      string `json:"CharacterName"`
	ExpiresOn          string `json:"ExpiresOn"`
	Scopes             string `json:"Scopes"`
	TokenType          string `json:"TokenType"`
	CharacterOwnerHash string `json:"CharacterOwnerHash"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// VerifyToken проверяет access-токен. Ответ не-JSON означает
// невалидный или протухший токен (ErrInvalidToken).
func (c *Client) VerifyToken(ctx context.Context, accessToken string) (*TokenInfo, error) {
	var out TokenInfo
	h := http.Header{"Authorization": {"Bearer " + accessToken}}
	if err := c.oauthGet(ctx, c.oauthURL, h, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshAccessToken обменивает refresh-токен; auth — base64(client_id:secret).
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken, auth string) (*TokenResponse, error) {
	q := url.Values{"grant_type": {"refresh_token"}, "refresh_token": {refreshToken}}
	var out TokenResponse
	h := http.Header{"Authorization": {"Basic " + auth}}
	if err := c.oauthGet(ctx, c.oauthURL+"?"+q.Encode(), h, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) oauthGet(ctx context.Context, u string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header = header.Clone()
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		c.observe("oauth", "error")
		return fmt.Errorf("esi oauth: %w", err)
	}
	defer resp.Body.Close()

	mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mt != "application/json" {
		c.observe("oauth", "invalid")
		return ErrInvalidToken
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.observe("oauth", "invalid")
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c.observe("oauth", "ok")
	return nil
}

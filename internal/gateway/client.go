// Package gateway implements the client side of the bridge process
// that talks to the chat platform. The ticket core never speaks the
// platform protocol itself; it asks the gateway for channel history,
// role membership, and transcript delivery over plain HTTP.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/guildtools/ticketbot/internal/config"
	"github.com/guildtools/ticketbot/internal/domain"
	"github.com/guildtools/ticketbot/internal/transcript"
)

// Client calls the gateway bridge.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient builds a gateway client from configuration.
func NewClient(cfg config.GatewayConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout()},
		logger:  logger,
	}
}

// Fetch returns a channel's message history, oldest first.
func (c *Client) Fetch(ctx context.Context, channelID string) ([]domain.Message, error) {
	var out struct {
		Messages []domain.Message `json:"messages"`
	}
	path := "/channels/" + url.PathEscape(channelID) + "/messages"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// Post delivers a rendered transcript to a channel.
func (c *Client) Post(ctx context.Context, channelID string, artifact transcript.Artifact) error {
	body := struct {
		FileName string `json:"file_name"`
		Text     string `json:"text"`
		HTML     string `json:"html"`
	}{
		FileName: artifact.FileName,
		Text:     artifact.Text,
		HTML:     artifact.HTML,
	}
	path := "/channels/" + url.PathEscape(channelID) + "/transcripts"
	return c.do(ctx, http.MethodPost, path, body, nil)
}

// HasRole reports whether an actor holds a role in a guild.
func (c *Client) HasRole(ctx context.Context, guildID, actorID, roleID string) (bool, error) {
	var out struct {
		HasRole bool `json:"has_role"`
	}
	path := "/guilds/" + url.PathEscape(guildID) + "/members/" + url.PathEscape(actorID) + "/roles/" + url.PathEscape(roleID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return false, err
	}
	return out.HasRole, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway %s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

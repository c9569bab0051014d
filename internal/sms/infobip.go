// Package sms отправляет SMS через HTTP API Infobip.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/magabrotheeeer/exam-subscriptions/internal/config"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/retry"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/sl"
)

// Client — клиент Infobip SMS API.
type Client struct {
	baseURL    string
	apiKey     string
	senderID   string
	httpClient *http.Client
	policy     retry.Policy
	log        *slog.Logger
}

type destination struct {
	To string `json:"to"`
}

type message struct {
	From         string        `json:"from"`
	Destinations []destination `json:"destinations"`
	Text         string        `json:"text"`
}

type sendRequest struct {
	Messages []message `json:"messages"`
}

// NewClient создаёт клиент Infobip.
func NewClient(cfg config.Infobip, policy retry.Policy, log *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		senderID:   cfg.SenderID,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		policy:     policy,
		log:        log,
	}
}

// Send отправляет text на номер to. Ответы 4xx, кроме 429, не повторяются.
func (c *Client) Send(ctx context.Context, to, text string) error {
	const op = "sms.Send"

	body, err := json.Marshal(sendRequest{Messages: []message{{
		From:         c.senderID,
		Destinations: []destination{{To: to}},
		Text:         text,
	}}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = c.policy.Do(ctx, func() error {
		return c.post(ctx, body)
	}, func(err error, wait time.Duration) {
		c.log.Warn("sms send failed, retrying", slog.String("to", to), slog.Duration("wait", wait), sl.Err(err))
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sms/2/text/advanced", bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Authorization", "App "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err = fmt.Errorf("unexpected status %s: %s", resp.Status, bytes.TrimSpace(msg))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return retry.Permanent(err)
	}
	return err
}

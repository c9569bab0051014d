// Package paymentprovider реализует клиент REST API IremboPay: создание и получение
// счетов, проверка подписи webhook.
package paymentprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/magabrotheeeer/exam-subscriptions/internal/config"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/apperr"
)

const (
	sandboxURL = "https://api.sandbox.irembopay.com"
	liveURL    = "https://api.irembopay.com"
	apiVersion = "2"
)

// Client — клиент IremboPay.
type Client struct {
	secretKey  string
	apiURL     string
	httpClient *http.Client
}

// NewClient создаёт клиент для окружения cfg.Environment: sandbox или live.
func NewClient(cfg config.IremboPay) *Client {
	apiURL := liveURL
	if cfg.Environment != "live" {
		apiURL = sandboxURL
	}
	return &Client{
		secretKey:  cfg.SecretKey,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// WithBaseURL переопределяет адрес API.
func (c *Client) WithBaseURL(u string) *Client {
	c.apiURL = strings.TrimRight(u, "/")
	return c
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("irembopay-secretKey", c.secretKey)
	req.Header.Set("X-API-Version", apiVersion)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request) (*Invoice, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpstreamUnavailable, err)
	}

	var env envelope
	_ = json.Unmarshal(raw, &env)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("invoice: %w", apperr.ErrNotFound)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %s", apperr.ErrUpstreamUnavailable, resp.Status)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: status %s: %s", apperr.ErrInvalidInput, resp.Status, env.describe())
	}
	if !env.Success {
		return nil, fmt.Errorf("%w: %s", apperr.ErrUpstreamUnavailable, env.describe())
	}
	return &env.Data, nil
}

func (e envelope) describe() string {
	if len(e.Errors) > 0 {
		return e.Errors[0].Code + " " + e.Errors[0].Detail
	}
	if e.Message != "" {
		return e.Message
	}
	return "unexpected response"
}

// CreateInvoice создаёт счёт и возвращает ссылку на оплату.
func (c *Client) CreateInvoice(ctx context.Context, in CreateInvoiceRequest) (*Invoice, error) {
	const op = "paymentprovider.CreateInvoice"
	req, err := c.newRequest(ctx, http.MethodPost, "/payments/invoices", in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	inv, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return inv, nil
}

// GetInvoice возвращает счёт по номеру.
func (c *Client) GetInvoice(ctx context.Context, invoiceNumber string) (*Invoice, error) {
	const op = "paymentprovider.GetInvoice"
	if invoiceNumber == "" {
		return nil, fmt.Errorf("%s: empty invoice number: %w", op, apperr.ErrInvalidInput)
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/payments/invoices/"+url.PathEscape(invoiceNumber), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	inv, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return inv, nil
}

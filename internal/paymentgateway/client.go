package paymentgateway

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

	payos "github.com/frahmantamala/licensestore/internal/core/datamodel/paymentgateway"
)

type Config struct {
	BaseURL     string
	ClientID    string
	APIKey      string
	ChecksumKey string
	Timeout     time.Duration
}

// Client talks to the PayOS merchant API.
type Client struct {
	baseURL     string
	clientID    string
	apiKey      string
	checksumKey string
	httpClient  *http.Client
	logger      *slog.Logger
}

// APIError is returned when PayOS answers with a non-"00" envelope code.
type APIError struct {
	StatusCode int
	Code       string
	Desc       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("payos error %s (http %d): %s", e.Code, e.StatusCode, e.Desc)
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api-merchant.payos.vn"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:     baseURL,
		clientID:    cfg.ClientID,
		apiKey:      cfg.APIKey,
		checksumKey: cfg.ChecksumKey,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

func (c *Client) ChecksumKey() string {
	return c.checksumKey
}

// CreatePaymentLink signs req and registers it with PayOS.
func (c *Client) CreatePaymentLink(ctx context.Context, req *payos.CreatePaymentLinkRequest) (*payos.PaymentLink, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	req.Signature = SignPaymentRequest(c.checksumKey, req.Amount, req.CancelURL, req.Description, req.OrderCode, req.ReturnURL)

	c.logger.Info("payos: creating payment link", "order_code", req.OrderCode, "amount", req.Amount)

	var link payos.PaymentLink
	if err := c.do(ctx, http.MethodPost, "/v2/payment-requests", req, &link, true); err != nil {
		return nil, err
	}

	c.logger.Info("payos: payment link created",
		"order_code", link.OrderCode,
		"payment_link_id", link.PaymentLinkID,
		"status", link.Status)
	return &link, nil
}

// GetPaymentLink looks a link up by order code.
func (c *Client) GetPaymentLink(ctx context.Context, orderCode int64) (*payos.PaymentLinkInfo, error) {
	var info payos.PaymentLinkInfo
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v2/payment-requests/%d", orderCode), nil, &info, false); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) CancelPaymentLink(ctx context.Context, orderCode int64, reason string) (*payos.PaymentLinkInfo, error) {
	body := map[string]string{}
	if reason != "" {
		body["cancellationReason"] = reason
	}

	c.logger.Info("payos: cancelling payment link", "order_code", orderCode, "reason", reason)

	var info payos.PaymentLinkInfo
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/v2/payment-requests/%d/cancel", orderCode), body, &info, false); err != nil {
		return nil, err
	}
	return &info, nil
}

// VerifyWebhook checks the signature of a raw webhook body and decodes its data.
func (c *Client) VerifyWebhook(body []byte) (*payos.WebhookData, error) {
	var payload payos.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	if len(payload.Data) == 0 || payload.Signature == "" {
		return nil, ErrInvalidSignature
	}
	if err := VerifyData(c.checksumKey, payload.Data, payload.Signature); err != nil {
		return nil, err
	}

	var data payos.WebhookData
	if err := json.Unmarshal(payload.Data, &data); err != nil {
		return nil, fmt.Errorf("decode webhook data: %w", err)
	}
	return &data, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}, verify bool) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-client-id", c.clientID)
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	var env payos.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response (http %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= http.StatusBadRequest || env.Code != payos.CodeSuccess {
		c.logger.Warn("payos: request rejected",
			"path", path,
			"status_code", resp.StatusCode,
			"code", env.Code,
			"desc", env.Desc)
		return &APIError{StatusCode: resp.StatusCode, Code: env.Code, Desc: env.Desc}
	}

	if verify && env.Signature != "" {
		if err := VerifyData(c.checksumKey, env.Data, env.Signature); err != nil {
			return fmt.Errorf("response signature: %w", err)
		}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

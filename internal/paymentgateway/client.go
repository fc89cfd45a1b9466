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

	gatewaytypes "github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/paymentgateway"
)

// APIError is a non-2xx answer from the provider API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("payment provider returned status %d: %s", e.StatusCode, e.Body)
}

type Config struct {
	APIURL  string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the live provider API.
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiURL:     strings.TrimRight(config.APIURL, "/"),
		apiKey:     config.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *Client) Name() string {
	return "live"
}

// CreateOrder registers an order with the provider. The caller bounds the call through ctx.
func (c *Client) CreateOrder(ctx context.Context, req *gatewaytypes.OrderRequest) (*gatewaytypes.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	url := c.apiURL + "/v2/orders"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Info("creating provider order",
		"order_id", req.OrderID,
		"amount", req.PriceAmount.String(),
		"currency", req.PriceCurrency)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var order gatewaytypes.Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}
	if order.PaymentURL == "" && order.PaymentAddress == "" {
		return nil, fmt.Errorf("provider order %s has neither payment url nor address", order.ID)
	}

	c.logger.Info("provider order created",
		"order_id", req.OrderID,
		"provider_id", order.ID.String(),
		"status", order.Status)

	return &order, nil
}

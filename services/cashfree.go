// services/cashfree.go
package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/caarlos0/env/v11"
)

// CashfreeConfig holds gateway credentials, parsed from the environment.
type CashfreeConfig struct {
	BaseURL      string        `env:"CASHFREE_BASE_URL" envDefault:"https://sandbox.cashfree.com/pg"`
	AppID        string        `env:"CASHFREE_APP_ID,required"`
	SecretKey    string        `env:"CASHFREE_SECRET_KEY,required"`
	APIVersion   string        `env:"CASHFREE_API_VERSION" envDefault:"2023-08-01"`
	CheckoutBase string        `env:"CASHFREE_CHECKOUT_BASE" envDefault:"https://payments.cashfree.com/order"`
	Timeout      time.Duration `env:"CASHFREE_TIMEOUT" envDefault:"30s"`
}

func LoadCashfreeConfig() (CashfreeConfig, error) {
	var cfg CashfreeConfig
	if err := env.Parse(&cfg); err != nil {
		return CashfreeConfig{}, fmt.Errorf("parse cashfree env: %w", err)
	}
	return cfg, nil
}

// CashfreeClient talks to the Cashfree PG REST API.
type CashfreeClient struct {
	cfg        CashfreeConfig
	httpClient *http.Client
}

func NewCashfreeClient(cfg CashfreeConfig) *CashfreeClient {
	return &CashfreeClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// CashfreeOrderRequest is the order-creation payload.
type CashfreeOrderRequest struct {
	OrderID         string                  `json:"order_id"`
	OrderAmount     float64                 `json:"order_amount"`
	OrderCurrency   string                  `json:"order_currency"`
	CustomerDetails CashfreeCustomerDetails `json:"customer_details"`
	OrderMeta       CashfreeOrderMeta       `json:"order_meta"`
}

type CashfreeCustomerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

type CashfreeOrderMeta struct {
	ReturnURL string `json:"return_url"`
	NotifyURL string `json:"notify_url"`
}

// CashfreeOrder is the subset of the gateway's order object we consume.
type CashfreeOrder struct {
	OrderID          string  `json:"order_id"`
	OrderAmount      float64 `json:"order_amount"`
	OrderCurrency    string  `json:"order_currency"`
	OrderStatus      string  `json:"order_status"`
	PaymentSessionID string  `json:"payment_session_id"`
}

// CreateOrder opens a hosted-checkout order with the gateway.
func (cf *CashfreeClient) CreateOrder(ctx context.Context, req CashfreeOrderRequest) (*CashfreeOrder, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", cf.cfg.BaseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build order request: %w", err)
	}
	cf.setHeaders(httpReq)

	resp, err := cf.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("cashfree order creation failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read cashfree response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("cashfree order creation returned %d: %s", resp.StatusCode, string(respBody))
	}

	var order CashfreeOrder
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, fmt.Errorf("decode cashfree order: %w", err)
	}
	return &order, nil
}

// GetOrder fetches the current state of an order from the gateway. Used by
// the reconciliation sweep when the webhook never arrived.
func (cf *CashfreeClient) GetOrder(ctx context.Context, orderID string) (*CashfreeOrder, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", cf.cfg.BaseURL+"/orders/"+orderID, nil)
	if err != nil {
		return nil, fmt.Errorf("build order lookup: %w", err)
	}
	cf.setHeaders(httpReq)

	resp, err := cf.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("cashfree order lookup failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read cashfree response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("cashfree order lookup returned %d: %s", resp.StatusCode, string(respBody))
	}

	var order CashfreeOrder
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, fmt.Errorf("decode cashfree order: %w", err)
	}
	return &order, nil
}

// CheckoutURL builds the hosted-checkout URL for a payment session.
func (cf *CashfreeClient) CheckoutURL(paymentSessionID string) string {
	return fmt.Sprintf("%s/#%s", cf.cfg.CheckoutBase, paymentSessionID)
}

func (cf *CashfreeClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-version", cf.cfg.APIVersion)
	req.Header.Set("x-client-id", cf.cfg.AppID)
	req.Header.Set("x-client-secret", cf.cfg.SecretKey)
}

// VerifyWebhookSignature authenticates an inbound webhook before any of its
// payload is parsed. The signature is base64(HMAC-SHA256(timestamp + "." +
// rawBody)) keyed with the client secret, compared in constant time.
func VerifyWebhookSignature(secret string, rawBody []byte, signature, timestamp string) bool {
	if signature == "" || timestamp == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(rawBody)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

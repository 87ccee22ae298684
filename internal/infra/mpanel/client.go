package mpanel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client talks to the mPanel billing API with a bearer token.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type Account struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type CreateAccountParams struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	// SendWelcome queues the credential-setup message for the new account.
	SendWelcome bool `json:"send_welcome"`
}

type Subscription struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	SKU       string `json:"sku"`
	Status    string `json:"status"`
}

type CreateSubscriptionParams struct {
	AccountID            string `json:"account_id"`
	SKU                  string `json:"sku"`
	Term                 string `json:"term"`
	Quantity             int64  `json:"quantity"`
	StripeSubscriptionID string `json:"stripe_subscription_id,omitempty"`
	CheckoutSessionID    string `json:"checkout_session_id,omitempty"`
}

type Order struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	SKU       string `json:"sku"`
}

type CreateOrderParams struct {
	AccountID string `json:"account_id"`
	SKU       string `json:"sku"`
	Quantity  int64  `json:"quantity"`
	// Reference correlates the order with the Stripe session or invoice.
	Reference string `json:"reference,omitempty"`
}

// envelope is the mPanel response shape: an id plus an optional data
// payload on success, an error message otherwise.
type envelope struct {
	ID    string          `json:"id"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// LookupAccountByEmail returns nil, nil when no account exists for the
// email, so callers can distinguish "absent" from transport failures.
func (c *Client) LookupAccountByEmail(ctx context.Context, email string) (*Account, error) {
	env, status, err := c.do(ctx, http.MethodGet, "/accounts?email="+url.QueryEscape(email), nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("mpanel account lookup failed (%d): %s", status, env.Error)
	}

	var acc Account
	if err := decodeData(env, &acc); err != nil {
		return nil, err
	}
	if acc.ID == "" {
		return nil, nil
	}
	return &acc, nil
}

func (c *Client) CreateAccount(ctx context.Context, params CreateAccountParams) (*Account, error) {
	env, status, err := c.do(ctx, http.MethodPost, "/accounts", params)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, fmt.Errorf("mpanel account creation failed (%d): %s", status, env.Error)
	}

	acc := Account{ID: env.ID, Email: params.Email}
	if err := decodeData(env, &acc); err != nil {
		return nil, err
	}
	if acc.ID == "" {
		return nil, fmt.Errorf("mpanel account creation returned no id")
	}
	return &acc, nil
}

func (c *Client) CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*Subscription, error) {
	env, status, err := c.do(ctx, http.MethodPost, "/subscriptions", params)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, fmt.Errorf("mpanel subscription creation failed (%d): %s", status, env.Error)
	}

	sub := Subscription{ID: env.ID, AccountID: params.AccountID, SKU: params.SKU}
	if err := decodeData(env, &sub); err != nil {
		return nil, err
	}
	if sub.ID == "" {
		return nil, fmt.Errorf("mpanel subscription creation returned no id")
	}
	return &sub, nil
}

func (c *Client) CreateOrder(ctx context.Context, params CreateOrderParams) (*Order, error) {
	env, status, err := c.do(ctx, http.MethodPost, "/orders", params)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, fmt.Errorf("mpanel order creation failed (%d): %s", status, env.Error)
	}

	order := Order{ID: env.ID, AccountID: params.AccountID, SKU: params.SKU}
	if err := decodeData(env, &order); err != nil {
		return nil, err
	}
	if order.ID == "" {
		return nil, fmt.Errorf("mpanel order creation returned no id")
	}
	return &order, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*envelope, int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, 0, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("mpanel request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, resp.StatusCode, fmt.Errorf("mpanel returned invalid JSON: %w", err)
		}
	}
	return &env, resp.StatusCode, nil
}

func decodeData(env *envelope, out any) error {
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("mpanel returned unexpected data payload: %w", err)
	}
	return nil
}

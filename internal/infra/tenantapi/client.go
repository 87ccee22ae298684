package tenantapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the tenant provisioning API. Authentication is a
// static API key header; responses are {success, data|error}.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Limits is the resource sizing sent with tenant creation and service
// provisioning.
type Limits struct {
	DiskMB    int  `json:"disk_mb"`
	Mailboxes int  `json:"mailboxes"`
	Databases int  `json:"databases"`
	Domains   int  `json:"domains"`
	SSL       bool `json:"ssl"`
}

type CreateTenantParams struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	PlanSKU       string `json:"plan_sku"`
	Limits        Limits `json:"limits"`
	BillingMonths int    `json:"billing_months"`
	// Billing correlation ids, surfaced in the tenant API's own records.
	StripeSubscriptionID string `json:"stripe_subscription_id,omitempty"`
	StripeCustomerID     string `json:"stripe_customer_id,omitempty"`
	CheckoutSessionID    string `json:"checkout_session_id,omitempty"`
}

type Tenant struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	PlanSKU string `json:"plan_sku"`
}

type ProvisionParams struct {
	PlanSKU   string `json:"plan_sku"`
	Hosting   bool   `json:"hosting"`
	Email     bool   `json:"email"`
	Databases bool   `json:"databases"`
	SSL       bool   `json:"ssl"`
	Limits    Limits `json:"limits"`
}

type ProvisionResult struct {
	TenantID string   `json:"tenant_id"`
	Services []string `json:"services"`
}

type WelcomeParams struct {
	TenantID string `json:"tenant_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	// ResetToken lets the customer set their panel credentials.
	ResetToken string `json:"reset_token,omitempty"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (c *Client) CreateTenant(ctx context.Context, params CreateTenantParams) (*Tenant, error) {
	var tenant Tenant
	if err := c.post(ctx, "/accounts/create", params, &tenant); err != nil {
		return nil, err
	}
	if tenant.ID == "" {
		return nil, fmt.Errorf("tenant API returned no tenant id")
	}
	return &tenant, nil
}

func (c *Client) ProvisionServices(ctx context.Context, tenantID string, params ProvisionParams) (*ProvisionResult, error) {
	var result ProvisionResult
	if err := c.post(ctx, "/tenants/"+tenantID+"/provision", params, &result); err != nil {
		return nil, err
	}
	if result.TenantID == "" {
		result.TenantID = tenantID
	}
	return &result, nil
}

func (c *Client) SendWelcomeEmail(ctx context.Context, params WelcomeParams) error {
	return c.post(ctx, "/emails/welcome", params, nil)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("tenant API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env envelope
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &env); err != nil {
			return fmt.Errorf("tenant API returned invalid JSON (%d): %w", resp.StatusCode, err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("tenant API %s failed (%d): %s", path, resp.StatusCode, msg)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("tenant API returned unexpected data payload: %w", err)
		}
	}
	return nil
}

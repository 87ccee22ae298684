package provisioning

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"hosting-app/internal/catalog"
	"hosting-app/internal/domain/billing"
	"hosting-app/internal/domain/plans"
	"hosting-app/internal/infra/mpanel"
	"hosting-app/internal/infra/tenantapi"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AccountAPI is the slice of the mPanel client the orchestrator needs.
type AccountAPI interface {
	LookupAccountByEmail(ctx context.Context, email string) (*mpanel.Account, error)
	CreateAccount(ctx context.Context, params mpanel.CreateAccountParams) (*mpanel.Account, error)
	CreateSubscription(ctx context.Context, params mpanel.CreateSubscriptionParams) (*mpanel.Subscription, error)
	CreateOrder(ctx context.Context, params mpanel.CreateOrderParams) (*mpanel.Order, error)
}

// TenantAPI is the slice of the tenant provisioning client the
// orchestrator needs.
type TenantAPI interface {
	CreateTenant(ctx context.Context, params tenantapi.CreateTenantParams) (*tenantapi.Tenant, error)
	ProvisionServices(ctx context.Context, tenantID string, params tenantapi.ProvisionParams) (*tenantapi.ProvisionResult, error)
	SendWelcomeEmail(ctx context.Context, params tenantapi.WelcomeParams) error
}

// Orchestrator runs the checkout-to-provisioning saga: resolve the
// mPanel account, create the tenant, provision services, send the
// welcome mail. Every tenant API step is journaled in the provisioning
// log before and after the call.
type Orchestrator struct {
	DB       *gorm.DB
	Accounts AccountAPI
	Tenants  TenantAPI
}

// SubscriptionRequest describes one recurring line item from a settled
// checkout.
type SubscriptionRequest struct {
	Email       string
	DisplayName string
	SKU         string
	Term        catalog.Term
	Quantity    int64
	AmountEUR   float64

	CheckoutSessionID    string
	StripeSubscriptionID string
	StripeCustomerID     string
}

// OrderRequest is the lightweight path for setup fees and renewals: no
// tenant work, just an mPanel order against the resolved account.
type OrderRequest struct {
	Email       string
	DisplayName string
	SKU         string
	Quantity    int64
	Reference   string
}

// ProvisionSubscription runs the full saga for one recurring line item.
// Safe to call repeatedly for the same checkout session and SKU: an
// already-completed subscription is left untouched. Saga-level failures
// are persisted on the subscription and in the log rather than returned,
// so the webhook can acknowledge the event either way; the returned
// error covers only infrastructure problems worth a redelivery.
func (o *Orchestrator) ProvisionSubscription(ctx context.Context, req SubscriptionRequest) error {
	if req.Email == "" {
		return errors.New("provisioning request missing email")
	}
	if req.Term == "" {
		req.Term = catalog.TermMonth
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	sub, err := o.ensureSubscription(req)
	if err != nil {
		return err
	}
	if sub.ProvisioningStatus == billing.StatusCompleted {
		fmt.Printf("✅ subscription %d already provisioned, skipping\n", sub.ID)
		return nil
	}

	o.runSaga(ctx, sub, req.DisplayName)
	return nil
}

// ProvisionOrder resolves the mPanel account and records a one-off
// order. Used for setup fees (SKU suffixed -setup) and billing-cycle
// renewals (SKU suffixed -renewal); neither re-runs tenant creation.
func (o *Orchestrator) ProvisionOrder(ctx context.Context, req OrderRequest) error {
	if req.Email == "" {
		return errors.New("order request missing email")
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	account, err := o.resolveAccount(ctx, req.Email, req.DisplayName)
	if err != nil {
		return fmt.Errorf("failed to resolve account for order: %w", err)
	}

	_, err = o.Accounts.CreateOrder(ctx, mpanel.CreateOrderParams{
		AccountID: account.ID,
		SKU:       req.SKU,
		Quantity:  req.Quantity,
		Reference: req.Reference,
	})
	if err != nil {
		return fmt.Errorf("failed to create mPanel order: %w", err)
	}
	return nil
}

// Retry re-runs the saga for a subscription that did not complete. A
// completed subscription short-circuits without any external call.
func (o *Orchestrator) Retry(ctx context.Context, subscriptionID uint) error {
	var sub billing.Subscription
	if err := o.DB.First(&sub, subscriptionID).Error; err != nil {
		return fmt.Errorf("subscription %d not found: %w", subscriptionID, err)
	}
	if sub.ProvisioningStatus == billing.StatusCompleted {
		return nil
	}

	o.runSaga(ctx, &sub, "")
	o.DB.First(&sub, subscriptionID)
	if sub.ProvisioningStatus != billing.StatusCompleted {
		msg := "provisioning did not complete"
		if sub.ProvisioningError != nil {
			msg = *sub.ProvisioningError
		}
		return errors.New(msg)
	}
	return nil
}

// ensureSubscription finds or creates the durable record for this
// checkout session + SKU pair. The unique index on that pair keeps
// concurrent duplicate deliveries from creating two rows.
func (o *Orchestrator) ensureSubscription(req SubscriptionRequest) (*billing.Subscription, error) {
	var sub billing.Subscription
	err := o.DB.Where("checkout_session_id = ? AND plan_name = ?", req.CheckoutSessionID, req.SKU).
		First(&sub).Error
	if err == nil {
		return &sub, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sub = billing.Subscription{
		Email:              req.Email,
		PlanName:           req.SKU,
		Term:               string(req.Term),
		Quantity:           req.Quantity,
		AmountEUR:          req.AmountEUR,
		ProvisioningStatus: billing.StatusPending,
		CheckoutSessionID:  req.CheckoutSessionID,
	}
	if req.StripeSubscriptionID != "" {
		sub.StripeSubscriptionID = &req.StripeSubscriptionID
	}
	if req.StripeCustomerID != "" {
		sub.StripeCustomerID = &req.StripeCustomerID
	}

	if err := o.DB.Create(&sub).Error; err != nil {
		// lost the race against a concurrent delivery; load the winner
		var existing billing.Subscription
		if lookupErr := o.DB.Where("checkout_session_id = ? AND plan_name = ?", req.CheckoutSessionID, req.SKU).
			First(&existing).Error; lookupErr == nil {
			return &existing, nil
		}
		return nil, fmt.Errorf("failed to create subscription record: %w", err)
	}
	return &sub, nil
}

// runSaga executes steps 1-4. Step 1 (account + mPanel subscription)
// and step 2 (tenant creation) are fatal: the subscription is marked
// failed and the remaining steps are skipped. Steps 3 and 4 are logged
// but never unwind the tenant; the subscription still completes and the
// log is the surface for manual remediation.
func (o *Orchestrator) runSaga(ctx context.Context, sub *billing.Subscription, displayName string) {
	account, err := o.resolveAccount(ctx, sub.Email, displayName)
	if err != nil {
		o.markFailed(sub, fmt.Errorf("account resolution failed: %w", err))
		return
	}
	o.updateSubscription(sub, map[string]interface{}{"mpanel_account_id": account.ID})
	sub.MpanelAccountID = &account.ID

	if sub.MpanelSubscriptionID == nil {
		mSub, err := o.Accounts.CreateSubscription(ctx, mpanel.CreateSubscriptionParams{
			AccountID:            account.ID,
			SKU:                  sub.PlanName,
			Term:                 sub.Term,
			Quantity:             sub.Quantity,
			StripeSubscriptionID: strPtrValue(sub.StripeSubscriptionID),
			CheckoutSessionID:    sub.CheckoutSessionID,
		})
		if err != nil {
			o.markFailed(sub, fmt.Errorf("mPanel subscription creation failed: %w", err))
			return
		}
		o.updateSubscription(sub, map[string]interface{}{"mpanel_subscription_id": mSub.ID})
		sub.MpanelSubscriptionID = &mSub.ID
	}

	planCfg, ok := plans.ForSKU(sub.PlanName)
	if !ok {
		o.markFailed(sub, fmt.Errorf("no plan configuration for sku %q", sub.PlanName))
		return
	}
	limits := tenantapi.Limits{
		DiskMB:    planCfg.Resources.DiskMB,
		Mailboxes: planCfg.Resources.Mailboxes,
		Databases: planCfg.Resources.Databases,
		Domains:   planCfg.Resources.Domains,
		SSL:       planCfg.Resources.SSL,
	}

	o.updateSubscription(sub, map[string]interface{}{
		"provisioning_status": billing.StatusInProgress,
		"provisioning_error":  nil,
	})
	sub.ProvisioningStatus = billing.StatusInProgress

	// step 2: create tenant (fatal)
	tenantReq := tenantapi.CreateTenantParams{
		Email:                sub.Email,
		Name:                 displayName,
		PlanSKU:              sub.PlanName,
		Limits:               limits,
		BillingMonths:        plans.BillingMonths(catalog.Term(sub.Term)),
		StripeSubscriptionID: strPtrValue(sub.StripeSubscriptionID),
		StripeCustomerID:     strPtrValue(sub.StripeCustomerID),
		CheckoutSessionID:    sub.CheckoutSessionID,
	}
	tenantResp, err := o.step(sub, billing.ActionCreateTenant, tenantReq, func() (any, error) {
		return o.Tenants.CreateTenant(ctx, tenantReq)
	})
	if err != nil {
		o.markFailed(sub, fmt.Errorf("tenant creation failed: %w", err))
		return
	}
	tenant := tenantResp.(*tenantapi.Tenant)
	o.updateSubscription(sub, map[string]interface{}{"tenant_id": tenant.ID})
	sub.TenantID = &tenant.ID

	// step 3: provision services (non-fatal)
	provReq := tenantapi.ProvisionParams{
		PlanSKU:   sub.PlanName,
		Hosting:   true,
		Email:     planCfg.Resources.Mailboxes > 0,
		Databases: planCfg.Resources.Databases > 0,
		SSL:       planCfg.Resources.SSL,
		Limits:    limits,
	}
	if _, err := o.step(sub, billing.ActionProvisionServices, provReq, func() (any, error) {
		return o.Tenants.ProvisionServices(ctx, tenant.ID, provReq)
	}); err != nil {
		fmt.Printf("❌ service provisioning failed for subscription %d: %v\n", sub.ID, err)
	}

	// step 4: welcome mail (non-fatal)
	welcomeReq := tenantapi.WelcomeParams{
		TenantID:   tenant.ID,
		Email:      sub.Email,
		Name:       displayName,
		ResetToken: newResetToken(),
	}
	if _, err := o.step(sub, billing.ActionSendWelcome, welcomeReq, func() (any, error) {
		return nil, o.Tenants.SendWelcomeEmail(ctx, welcomeReq)
	}); err != nil {
		fmt.Printf("❌ welcome mail failed for subscription %d: %v\n", sub.ID, err)
	}

	now := time.Now()
	o.updateSubscription(sub, map[string]interface{}{
		"provisioning_status": billing.StatusCompleted,
		"provisioned_at":      now,
		"provisioning_error":  nil,
	})
	sub.ProvisioningStatus = billing.StatusCompleted
	sub.ProvisionedAt = &now
	fmt.Printf("✅ subscription %d provisioned (tenant %s)\n", sub.ID, tenant.ID)
}

// resolveAccount looks the account up by email and creates it when
// absent. Lookup-before-create keeps the step safe under repeated and
// concurrent deliveries for the same email.
func (o *Orchestrator) resolveAccount(ctx context.Context, email, displayName string) (*mpanel.Account, error) {
	account, err := o.Accounts.LookupAccountByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}

	first, last := splitName(displayName, email)
	return o.Accounts.CreateAccount(ctx, mpanel.CreateAccountParams{
		Email:       email,
		FirstName:   first,
		LastName:    last,
		SendWelcome: true,
	})
}

// step writes the pending log row, runs the call, then writes the
// terminal row. Log rows are append-only; a second attempt produces a
// fresh pending/terminal pair rather than touching earlier rows.
func (o *Orchestrator) step(sub *billing.Subscription, action string, req any, call func() (any, error)) (any, error) {
	o.appendLog(sub.ID, action, billing.LogPending, req, nil, nil)

	resp, err := call()
	if err != nil {
		msg := err.Error()
		o.appendLog(sub.ID, action, billing.LogFailed, req, nil, &msg)
		return nil, err
	}

	o.appendLog(sub.ID, action, billing.LogSuccess, req, resp, nil)
	return resp, nil
}

func (o *Orchestrator) appendLog(subscriptionID uint, action, status string, req, resp any, errMsg *string) {
	entry := billing.ProvisioningLog{
		SubscriptionID: subscriptionID,
		Action:         action,
		Status:         status,
		Request:        toJSON(req),
		Response:       toJSON(resp),
		ErrorMessage:   errMsg,
	}
	if err := o.DB.Create(&entry).Error; err != nil {
		// a broken audit write must not abort provisioning mid-flight
		fmt.Printf("❌ failed to write provisioning log (%s/%s): %v\n", action, status, err)
	}
}

func (o *Orchestrator) markFailed(sub *billing.Subscription, cause error) {
	msg := cause.Error()
	o.updateSubscription(sub, map[string]interface{}{
		"provisioning_status": billing.StatusFailed,
		"provisioning_error":  msg,
	})
	sub.ProvisioningStatus = billing.StatusFailed
	sub.ProvisioningError = &msg
	fmt.Printf("❌ provisioning failed for subscription %d: %v\n", sub.ID, cause)
}

func (o *Orchestrator) updateSubscription(sub *billing.Subscription, updates map[string]interface{}) {
	if err := o.DB.Model(&billing.Subscription{}).Where("id = ?", sub.ID).Updates(updates).Error; err != nil {
		fmt.Printf("❌ failed to update subscription %d: %v\n", sub.ID, err)
	}
}

func toJSON(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

// splitName splits a display name into first/last best-effort, falling
// back to the email local part when no name was supplied.
func splitName(displayName, email string) (string, string) {
	fields := strings.Fields(strings.TrimSpace(displayName))
	switch {
	case len(fields) == 0:
		local := email
		if i := strings.Index(email, "@"); i > 0 {
			local = email[:i]
		}
		return local, ""
	case len(fields) == 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}

func newResetToken() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func strPtrValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

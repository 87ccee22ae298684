package provisioning

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"hosting-app/internal/catalog"
	"hosting-app/internal/domain/billing"
	"hosting-app/internal/domain/users"
	"hosting-app/internal/infra/mpanel"
	"hosting-app/internal/infra/tenantapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&users.User{},
		&billing.Subscription{},
		&billing.ProvisioningLog{},
	))
	return db
}

type fakeAccounts struct {
	existing map[string]*mpanel.Account

	lookupCalls  int
	createCalls  int
	subCalls     int
	orderCalls   int
	lastOrder    mpanel.CreateOrderParams
	failCreate   bool
	failSub      bool
	failOrder    bool
}

func (f *fakeAccounts) LookupAccountByEmail(_ context.Context, email string) (*mpanel.Account, error) {
	f.lookupCalls++
	if f.existing == nil {
		return nil, nil
	}
	return f.existing[email], nil
}

func (f *fakeAccounts) CreateAccount(_ context.Context, params mpanel.CreateAccountParams) (*mpanel.Account, error) {
	f.createCalls++
	if f.failCreate {
		return nil, errors.New("mpanel is down")
	}
	acc := &mpanel.Account{ID: fmt.Sprintf("acc_%d", f.createCalls), Email: params.Email}
	if f.existing == nil {
		f.existing = map[string]*mpanel.Account{}
	}
	f.existing[params.Email] = acc
	return acc, nil
}

func (f *fakeAccounts) CreateSubscription(_ context.Context, params mpanel.CreateSubscriptionParams) (*mpanel.Subscription, error) {
	f.subCalls++
	if f.failSub {
		return nil, errors.New("subscription endpoint rejected the request")
	}
	return &mpanel.Subscription{ID: fmt.Sprintf("msub_%d", f.subCalls), AccountID: params.AccountID, SKU: params.SKU}, nil
}

func (f *fakeAccounts) CreateOrder(_ context.Context, params mpanel.CreateOrderParams) (*mpanel.Order, error) {
	f.orderCalls++
	f.lastOrder = params
	if f.failOrder {
		return nil, errors.New("order endpoint rejected the request")
	}
	return &mpanel.Order{ID: fmt.Sprintf("ord_%d", f.orderCalls), AccountID: params.AccountID, SKU: params.SKU}, nil
}

type fakeTenants struct {
	createCalls    int
	provisionCalls int
	welcomeCalls   int
	lastCreate     tenantapi.CreateTenantParams
	failCreate     bool
	failProvision  bool
	failWelcome    bool
}

func (f *fakeTenants) CreateTenant(_ context.Context, params tenantapi.CreateTenantParams) (*tenantapi.Tenant, error) {
	f.createCalls++
	f.lastCreate = params
	if f.failCreate {
		return nil, errors.New("tenant API unavailable")
	}
	return &tenantapi.Tenant{ID: fmt.Sprintf("tnt_%d", f.createCalls), Email: params.Email, PlanSKU: params.PlanSKU}, nil
}

func (f *fakeTenants) ProvisionServices(_ context.Context, tenantID string, params tenantapi.ProvisionParams) (*tenantapi.ProvisionResult, error) {
	f.provisionCalls++
	if f.failProvision {
		return nil, errors.New("disk pool exhausted")
	}
	return &tenantapi.ProvisionResult{TenantID: tenantID, Services: []string{"hosting"}}, nil
}

func (f *fakeTenants) SendWelcomeEmail(_ context.Context, _ tenantapi.WelcomeParams) error {
	f.welcomeCalls++
	if f.failWelcome {
		return errors.New("mail relay refused connection")
	}
	return nil
}

func newOrchestrator(t *testing.T) (*Orchestrator, *fakeAccounts, *fakeTenants) {
	t.Helper()
	accounts := &fakeAccounts{}
	tenants := &fakeTenants{}
	return &Orchestrator{DB: newTestDB(t), Accounts: accounts, Tenants: tenants}, accounts, tenants
}

func subscriptionRequest() SubscriptionRequest {
	return SubscriptionRequest{
		Email:                "jane@example.com",
		DisplayName:          "Jane van Dusen",
		SKU:                  "web-pro",
		Term:                 catalog.TermYear,
		Quantity:             1,
		AmountEUR:            99.90,
		CheckoutSessionID:    "cs_test_123",
		StripeSubscriptionID: "sub_123",
		StripeCustomerID:     "cus_123",
	}
}

func logEntries(t *testing.T, db *gorm.DB, subID uint) []billing.ProvisioningLog {
	t.Helper()
	var entries []billing.ProvisioningLog
	require.NoError(t, db.Where("subscription_id = ?", subID).Order("id ASC").Find(&entries).Error)
	return entries
}

func TestProvisionSubscriptionHappyPath(t *testing.T) {
	o, accounts, tenants := newOrchestrator(t)

	require.NoError(t, o.ProvisionSubscription(context.Background(), subscriptionRequest()))

	var sub billing.Subscription
	require.NoError(t, o.DB.First(&sub).Error)
	assert.Equal(t, billing.StatusCompleted, sub.ProvisioningStatus)
	require.NotNil(t, sub.TenantID)
	assert.Equal(t, "tnt_1", *sub.TenantID)
	assert.NotNil(t, sub.ProvisionedAt)
	assert.NotNil(t, sub.MpanelAccountID)
	assert.NotNil(t, sub.MpanelSubscriptionID)
	assert.Nil(t, sub.ProvisioningError)

	// account was absent, so lookup then create, with the name split
	assert.Equal(t, 1, accounts.lookupCalls)
	assert.Equal(t, 1, accounts.createCalls)
	assert.Equal(t, 1, accounts.subCalls)
	assert.Equal(t, 1, tenants.createCalls)
	assert.Equal(t, 1, tenants.provisionCalls)
	assert.Equal(t, 1, tenants.welcomeCalls)

	assert.Equal(t, 12, tenants.lastCreate.BillingMonths)
	assert.Equal(t, "sub_123", tenants.lastCreate.StripeSubscriptionID)
	assert.Equal(t, 51200, tenants.lastCreate.Limits.DiskMB)

	entries := logEntries(t, o.DB, sub.ID)
	require.Len(t, entries, 6)
	wantActions := []string{
		billing.ActionCreateTenant, billing.ActionCreateTenant,
		billing.ActionProvisionServices, billing.ActionProvisionServices,
		billing.ActionSendWelcome, billing.ActionSendWelcome,
	}
	wantStatuses := []string{
		billing.LogPending, billing.LogSuccess,
		billing.LogPending, billing.LogSuccess,
		billing.LogPending, billing.LogSuccess,
	}
	for i, e := range entries {
		assert.Equal(t, wantActions[i], e.Action)
		assert.Equal(t, wantStatuses[i], e.Status)
		assert.NotEmpty(t, e.Request, "entry %d should snapshot the request payload", i)
	}
}

func TestProvisionSubscriptionIsIdempotentForCompleted(t *testing.T) {
	o, accounts, tenants := newOrchestrator(t)
	req := subscriptionRequest()

	require.NoError(t, o.ProvisionSubscription(context.Background(), req))
	require.NoError(t, o.ProvisionSubscription(context.Background(), req))

	var count int64
	o.DB.Model(&billing.Subscription{}).Count(&count)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 1, tenants.createCalls, "second delivery must not re-provision")
	assert.Equal(t, 1, accounts.subCalls)
}

func TestExistingAccountIsNotRecreated(t *testing.T) {
	o, accounts, _ := newOrchestrator(t)
	accounts.existing = map[string]*mpanel.Account{
		"jane@example.com": {ID: "acc_existing", Email: "jane@example.com"},
	}

	require.NoError(t, o.ProvisionSubscription(context.Background(), subscriptionRequest()))

	assert.Equal(t, 1, accounts.lookupCalls)
	assert.Equal(t, 0, accounts.createCalls)

	var sub billing.Subscription
	require.NoError(t, o.DB.First(&sub).Error)
	require.NotNil(t, sub.MpanelAccountID)
	assert.Equal(t, "acc_existing", *sub.MpanelAccountID)
}

func TestAccountFailureMarksSubscriptionFailed(t *testing.T) {
	o, accounts, tenants := newOrchestrator(t)
	accounts.failCreate = true

	require.NoError(t, o.ProvisionSubscription(context.Background(), subscriptionRequest()))

	var sub billing.Subscription
	require.NoError(t, o.DB.First(&sub).Error)
	assert.Equal(t, billing.StatusFailed, sub.ProvisioningStatus)
	require.NotNil(t, sub.ProvisioningError)
	assert.Contains(t, *sub.ProvisioningError, "account resolution failed")
	assert.Equal(t, 0, tenants.createCalls)
	assert.Empty(t, logEntries(t, o.DB, sub.ID))
}

func TestTenantCreationFailureIsFatal(t *testing.T) {
	o, _, tenants := newOrchestrator(t)
	tenants.failCreate = true

	require.NoError(t, o.ProvisionSubscription(context.Background(), subscriptionRequest()))

	var sub billing.Subscription
	require.NoError(t, o.DB.First(&sub).Error)
	assert.Equal(t, billing.StatusFailed, sub.ProvisioningStatus)
	assert.Nil(t, sub.TenantID)
	require.NotNil(t, sub.ProvisioningError)
	assert.Contains(t, *sub.ProvisioningError, "tenant creation failed")

	// tenant-dependent steps must not run
	assert.Equal(t, 0, tenants.provisionCalls)
	assert.Equal(t, 0, tenants.welcomeCalls)

	entries := logEntries(t, o.DB, sub.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, billing.ActionCreateTenant, entries[0].Action)
	assert.Equal(t, billing.LogPending, entries[0].Status)
	assert.Equal(t, billing.LogFailed, entries[1].Status)
	require.NotNil(t, entries[1].ErrorMessage)
}

func TestServiceProvisioningFailureStillCompletes(t *testing.T) {
	o, _, tenants := newOrchestrator(t)
	tenants.failProvision = true

	require.NoError(t, o.ProvisionSubscription(context.Background(), subscriptionRequest()))

	var sub billing.Subscription
	require.NoError(t, o.DB.First(&sub).Error)
	assert.Equal(t, billing.StatusCompleted, sub.ProvisioningStatus)
	assert.Equal(t, 1, tenants.welcomeCalls, "welcome mail still goes out")

	entries := logEntries(t, o.DB, sub.ID)
	var createSuccess, provisionFailed int
	for _, e := range entries {
		if e.Action == billing.ActionCreateTenant && e.Status == billing.LogSuccess {
			createSuccess++
		}
		if e.Action == billing.ActionProvisionServices && e.Status == billing.LogFailed {
			provisionFailed++
		}
	}
	assert.Equal(t, 1, createSuccess)
	assert.Equal(t, 1, provisionFailed)
}

func TestWelcomeFailureStillCompletes(t *testing.T) {
	o, _, tenants := newOrchestrator(t)
	tenants.failWelcome = true

	require.NoError(t, o.ProvisionSubscription(context.Background(), subscriptionRequest()))

	var sub billing.Subscription
	require.NoError(t, o.DB.First(&sub).Error)
	assert.Equal(t, billing.StatusCompleted, sub.ProvisioningStatus)
}

func TestRetryCompletedIsNoOp(t *testing.T) {
	o, accounts, tenants := newOrchestrator(t)
	sub := billing.Subscription{
		Email:              "jane@example.com",
		PlanName:           "web-pro",
		Term:               "year",
		Quantity:           1,
		ProvisioningStatus: billing.StatusCompleted,
		CheckoutSessionID:  "cs_done",
	}
	require.NoError(t, o.DB.Create(&sub).Error)

	require.NoError(t, o.Retry(context.Background(), sub.ID))

	assert.Equal(t, 0, accounts.lookupCalls)
	assert.Equal(t, 0, tenants.createCalls)
}

func TestRetryRerunsFailedSaga(t *testing.T) {
	o, _, tenants := newOrchestrator(t)
	tenants.failCreate = true
	require.NoError(t, o.ProvisionSubscription(context.Background(), subscriptionRequest()))

	var sub billing.Subscription
	require.NoError(t, o.DB.First(&sub).Error)
	require.Equal(t, billing.StatusFailed, sub.ProvisioningStatus)

	tenants.failCreate = false
	require.NoError(t, o.Retry(context.Background(), sub.ID))

	require.NoError(t, o.DB.First(&sub, sub.ID).Error)
	assert.Equal(t, billing.StatusCompleted, sub.ProvisioningStatus)
	require.NotNil(t, sub.TenantID)

	// retries append fresh log rows, earlier rows stay untouched
	entries := logEntries(t, o.DB, sub.ID)
	assert.GreaterOrEqual(t, len(entries), 8)
	assert.Equal(t, billing.LogFailed, entries[1].Status)
}

func TestRetryUnknownSubscription(t *testing.T) {
	o, _, _ := newOrchestrator(t)
	assert.Error(t, o.Retry(context.Background(), 9999))
}

func TestProvisionOrderResolvesAccountAndCreatesOrder(t *testing.T) {
	o, accounts, tenants := newOrchestrator(t)

	err := o.ProvisionOrder(context.Background(), OrderRequest{
		Email:       "jane@example.com",
		DisplayName: "Jane",
		SKU:         "web-pro-setup",
		Quantity:    1,
		Reference:   "cs_test_123",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, accounts.orderCalls)
	assert.Equal(t, "web-pro-setup", accounts.lastOrder.SKU)
	assert.Equal(t, "cs_test_123", accounts.lastOrder.Reference)
	// the lightweight path never touches the tenant API
	assert.Equal(t, 0, tenants.createCalls)
}

func TestProvisionOrderPropagatesFailure(t *testing.T) {
	o, accounts, _ := newOrchestrator(t)
	accounts.failOrder = true

	err := o.ProvisionOrder(context.Background(), OrderRequest{
		Email: "jane@example.com", SKU: "web-pro-renewal", Quantity: 1,
	})
	assert.Error(t, err)
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		wantFirst string
		wantLast  string
	}{
		{"Jane Doe", "jane@example.com", "Jane", "Doe"},
		{"Jane van Dusen", "jane@example.com", "Jane", "van Dusen"},
		{"Jane", "jane@example.com", "Jane", ""},
		{"", "jane@example.com", "jane", ""},
	}
	for _, tt := range tests {
		first, last := splitName(tt.name, tt.email)
		if first != tt.wantFirst || last != tt.wantLast {
			t.Fatalf("splitName(%q) = %q/%q, want %q/%q", tt.name, first, last, tt.wantFirst, tt.wantLast)
		}
	}
}

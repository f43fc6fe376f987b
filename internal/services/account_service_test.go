package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	dbm "schoolpay/internal/models/db_models"
	"schoolpay/internal/models/request_models"
	"schoolpay/internal/repositories"
	"schoolpay/internal/testutil"
	"schoolpay/pkg/utils"
)

type sentMail struct {
	kind, to, school, link, password string
}

type recordingMail struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *recordingMail) SendOnboardingLink(_ context.Context, to, schoolName, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{kind: "onboarding", to: to, school: schoolName, link: link})
	return nil
}

func (m *recordingMail) SendStaffCredentials(_ context.Context, to, schoolName, loginURL, tempPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{kind: "credentials", to: to, school: schoolName, link: loginURL, password: tempPassword})
	return nil
}

type accountFixture struct {
	db       *gorm.DB
	svc      *accountService
	fake     *fakeProcessor
	mail     *recordingMail
	accounts repositories.AccountRepository
	staff    repositories.StaffRepository
	catalog  repositories.CatalogRepository
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()
	db := testutil.OpenTestDB(t)
	fake := newFakeProcessor()
	mail := &recordingMail{}
	accounts := repositories.NewAccountRepository(db)
	staff := repositories.NewStaffRepository(db)
	catalogRepo := repositories.NewCatalogRepository(db)
	catalog := NewCatalogService(accounts, catalogRepo, fake, CatalogConfig{}, zap.NewNop())

	svc := NewAccountService(accounts, staff, catalog, fake, mail, AccountConfig{
		AppBaseURL: "https://portal.test",
		APIBaseURL: "https://api.test",
		Country:    "AU",
	}, zap.NewNop()).(*accountService)
	// population runs inline so tests observe its effects
	svc.spawn = func(task func(ctx context.Context)) { task(context.Background()) }

	return &accountFixture{db: db, svc: svc, fake: fake, mail: mail, accounts: accounts, staff: staff, catalog: catalogRepo}
}

func (f *accountFixture) pendingAccount(t *testing.T) *dbm.Account {
	t.Helper()
	acct := &dbm.Account{Name: "Hillview Primary", Email: "office@hillview.test", StripeAccountID: "acct_pending"}
	require.NoError(t, f.accounts.Insert(context.Background(), acct))
	return acct
}

func TestAccountService_Provision(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	out, err := f.svc.Provision(ctx, request_models.ProvisionAccountRequest{
		SchoolName: "Hillview Primary",
		Email:      "Office@Hillview.test",
		Staff: request_models.StaffPerson{
			FirstName: "Jo",
			LastName:  "Bloggs",
			Email:     "jo@hillview.test",
		},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.StripeAccountID, "acct_"))
	assert.NotEmpty(t, out.TemporaryPassword)
	assert.NotEmpty(t, out.OnboardingURL)

	acct, err := f.accounts.FindByStripeAccountID(ctx, out.StripeAccountID)
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.False(t, acct.OnboardingComplete)
	assert.Equal(t, "AU", acct.Country)
	assert.NotEmpty(t, acct.PortalConfigurationID)
	assert.Equal(t, 1, f.fake.count("CreatePortalConfiguration"))

	staff, err := f.staff.FindByEmail(ctx, acct.ID, "jo@hillview.test")
	require.NoError(t, err)
	require.NotNil(t, staff)
	assert.NoError(t, utils.ComparePasswords(staff.PasswordHash, out.TemporaryPassword))

	require.Len(t, f.fake.accountLinks, 1)
	assert.Equal(t, "https://api.test/accounts/onboarding/return?accountId="+acct.ID.String(), f.fake.accountLinks[0])

	require.Len(t, f.mail.sent, 2)
	assert.Equal(t, out.TemporaryPassword, f.mail.sent[1].password)
}

func TestAccountService_ProvisionPortalFailureStoresNothing(t *testing.T) {
	f := newAccountFixture(t)
	f.fake.failOn["CreatePortalConfiguration"] = 1

	_, err := f.svc.Provision(context.Background(), request_models.ProvisionAccountRequest{
		SchoolName: "Hillview Primary",
		Email:      "office@hillview.test",
		Staff:      request_models.StaffPerson{FirstName: "Jo", LastName: "Bloggs", Email: "jo@hillview.test"},
	})
	require.ErrorIs(t, err, errFakeDeclined)

	var n int64
	require.NoError(t, f.db.Model(&dbm.Account{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestAccountService_SyncOnboarding(t *testing.T) {
	t.Run("pending stays pending", func(t *testing.T) {
		f := newAccountFixture(t)
		acct := f.pendingAccount(t)

		got, err := f.svc.SyncOnboarding(context.Background(), acct, &ConnectedAccount{ID: acct.StripeAccountID, DetailsSubmitted: true})
		require.NoError(t, err)
		assert.False(t, got.OnboardingComplete)
		assert.True(t, got.DetailsSubmitted)
		assert.False(t, got.CatalogPopulated)
		assert.Zero(t, f.fake.count("CreateProduct"))
	})

	t.Run("ready populates once", func(t *testing.T) {
		f := newAccountFixture(t)
		acct := f.pendingAccount(t)
		ctx := context.Background()
		remote := &ConnectedAccount{
			ID:               acct.StripeAccountID,
			ChargesEnabled:   true,
			DetailsSubmitted: true,
			Capabilities:     map[string]string{"card_payments": "active"},
		}

		got, err := f.svc.SyncOnboarding(ctx, acct, remote)
		require.NoError(t, err)
		assert.True(t, got.OnboardingComplete)
		assert.Equal(t, "active", got.Capabilities["card_payments"])

		populated := f.fake.count("CreateProduct")
		assert.Positive(t, populated)

		_, err = f.svc.SyncOnboarding(ctx, acct, remote)
		require.NoError(t, err)
		assert.Equal(t, populated, f.fake.count("CreateProduct"))

		stored, err := f.accounts.FindById(ctx, acct.ID)
		require.NoError(t, err)
		assert.True(t, stored.CatalogPopulated)
	})

	t.Run("failed population releases claim", func(t *testing.T) {
		f := newAccountFixture(t)
		f.fake.failOn["CreateProduct"] = 2
		acct := f.pendingAccount(t)
		ctx := context.Background()
		remote := &ConnectedAccount{ID: acct.StripeAccountID, ChargesEnabled: true, DetailsSubmitted: true}

		_, err := f.svc.SyncOnboarding(ctx, acct, remote)
		require.NoError(t, err)

		stored, err := f.accounts.FindById(ctx, acct.ID)
		require.NoError(t, err)
		assert.False(t, stored.CatalogPopulated)

		// next delivery retries and skips what the first run created
		_, err = f.svc.SyncOnboarding(ctx, acct, remote)
		require.NoError(t, err)
		stored, err = f.accounts.FindById(ctx, acct.ID)
		require.NoError(t, err)
		assert.True(t, stored.CatalogPopulated)

		subs, err := f.catalog.ListSubscriptions(ctx, acct.ID)
		require.NoError(t, err)
		years := map[int]int{}
		for _, s := range subs {
			years[s.YearLevel]++
		}
		for y, n := range years {
			assert.Equal(t, 1, n, "year %d", y)
		}
	})

	t.Run("claim released after population deadline", func(t *testing.T) {
		f := newAccountFixture(t)
		f.fake.failOn["CreateProduct"] = 1
		f.svc.spawn = func(task func(ctx context.Context)) {
			expired, cancel := context.WithCancel(context.Background())
			cancel()
			task(expired)
		}
		acct := f.pendingAccount(t)
		ctx := context.Background()
		remote := &ConnectedAccount{ID: acct.StripeAccountID, ChargesEnabled: true, DetailsSubmitted: true}

		_, err := f.svc.SyncOnboarding(ctx, acct, remote)
		require.NoError(t, err)

		stored, err := f.accounts.FindById(ctx, acct.ID)
		require.NoError(t, err)
		assert.False(t, stored.CatalogPopulated)
	})
}

func TestAccountService_CompleteOnboardingReturn(t *testing.T) {
	f := newAccountFixture(t)
	acct := f.pendingAccount(t)
	f.fake.connected[acct.StripeAccountID] = &ConnectedAccount{ID: acct.StripeAccountID, ChargesEnabled: true, DetailsSubmitted: true}

	out, err := f.svc.CompleteOnboardingReturn(context.Background(), acct.ID)
	require.NoError(t, err)
	assert.True(t, out.OnboardingComplete)
	assert.Equal(t, 1, f.fake.count("GetConnectedAccount"))
}

func TestAccountService_SyncRemoteAccountUnknown(t *testing.T) {
	f := newAccountFixture(t)
	_, err := f.svc.SyncRemoteAccount(context.Background(), &ConnectedAccount{ID: "acct_nobody"})
	assert.ErrorIs(t, err, utils.ErrAccountNotFound)
}

func TestAccountService_PopulateCatalogManual(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	pending := f.pendingAccount(t)
	_, err := f.svc.PopulateCatalog(ctx, pending.ID)
	assert.ErrorIs(t, err, utils.ErrAccountNotOnboarded)

	acct := testutil.SeedAccount(t, f.db, "acct_ready")
	first, err := f.svc.PopulateCatalog(ctx, acct.ID)
	require.NoError(t, err)
	assert.Positive(t, first.Created)

	again, err := f.svc.PopulateCatalog(ctx, acct.ID)
	require.NoError(t, err)
	assert.Zero(t, again.Created)
	assert.Equal(t, first.Created, again.Skipped)
}

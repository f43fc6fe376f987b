package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
	"gorm.io/gorm"

	dbm "schoolpay/internal/models/db_models"
	"schoolpay/internal/repositories"
	"schoolpay/internal/testutil"
	mem "schoolpay/pkg/memcache"
	"schoolpay/pkg/utils"
)

const testWebhookSecret = "whsec_test_secret"

// signedWebhookProcessor verifies deliveries with the real signature check and
// fakes everything else.
type signedWebhookProcessor struct {
	*fakeProcessor
	verifier PaymentProcessor
}

func (p signedWebhookProcessor) ParseWebhook(payload []byte, signature string) (*ProcessorEvent, error) {
	return p.verifier.ParseWebhook(payload, signature)
}

type webhookFixture struct {
	db      *gorm.DB
	svc     WebhookService
	fake    *fakeProcessor
	events  repositories.WebhookEventRepository
	parents repositories.ParentRepository
	acct    *dbm.Account
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	db := testutil.OpenTestDB(t)
	fake := newFakeProcessor()
	proc := signedWebhookProcessor{
		fakeProcessor: fake,
		verifier:      NewStripeProcessor(StripeConfig{SecretKey: "sk_test_unused", WebhookSecret: testWebhookSecret}, zap.NewNop()),
	}

	accountRepo := repositories.NewAccountRepository(db)
	parents := repositories.NewParentRepository(db)
	events := repositories.NewWebhookEventRepository(db)
	catalog := NewCatalogService(accountRepo, repositories.NewCatalogRepository(db), proc, CatalogConfig{}, zap.NewNop())
	accounts := NewAccountService(accountRepo, repositories.NewStaffRepository(db), catalog, proc, &recordingMail{}, AccountConfig{}, zap.NewNop()).(*accountService)
	accounts.spawn = func(task func(ctx context.Context)) { task(context.Background()) }

	return &webhookFixture{
		db:      db,
		svc:     NewWebhookService(proc, accounts, accountRepo, parents, events, mem.NewMemoryGuard(), zap.NewNop()),
		fake:    fake,
		events:  events,
		parents: parents,
		acct:    testutil.SeedAccount(t, db, "acct_school"),
	}
}

func signedEvent(t *testing.T, id, typ, account, object string) ([]byte, string) {
	t.Helper()
	payload := []byte(fmt.Sprintf(`{"id":%q,"object":"event","type":%q,"account":%q,"api_version":"2023-10-16","data":{"object":%s}}`,
		id, typ, account, object))
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

// A bad signature is rejected and nothing is written.
func TestWebhookService_InvalidSignature(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()
	parent := testutil.SeedParent(t, f.db, f.acct.ID, "pat@example.test", 3)
	require.NoError(t, f.db.Model(parent).Update("stripe_customer_id", "cus_1").Error)

	payload, _ := signedEvent(t, "evt_bad", "setup_intent.succeeded", f.acct.StripeAccountID,
		`{"id":"seti_1","object":"setup_intent","customer":"cus_1","payment_method":"pm_1"}`)
	forged := fmt.Sprintf("t=%d,v1=%064x", time.Now().Unix(), 0)

	_, err := f.svc.Handle(ctx, payload, forged)
	require.ErrorIs(t, err, utils.ErrInvalidWebhook)

	var n int64
	require.NoError(t, f.db.Model(&dbm.WebhookEvent{}).Count(&n).Error)
	assert.Zero(t, n)

	stored, err := f.parents.FindById(ctx, f.acct.ID, parent.ID)
	require.NoError(t, err)
	assert.False(t, stored.HasPaymentMethod)
	assert.Zero(t, f.fake.count("AttachPaymentMethod"))
}

func TestWebhookService_SetupIntentSucceeded(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()
	parent := testutil.SeedParent(t, f.db, f.acct.ID, "pat@example.test", 3)
	require.NoError(t, f.db.Model(parent).Update("stripe_customer_id", "cus_1").Error)

	payload, sig := signedEvent(t, "evt_si", "setup_intent.succeeded", f.acct.StripeAccountID,
		`{"id":"seti_1","object":"setup_intent","customer":"cus_1","payment_method":"pm_1"}`)

	res, err := f.svc.Handle(ctx, payload, sig)
	require.NoError(t, err)
	assert.Equal(t, dbm.WebhookHandled, res.Outcome)

	stored, err := f.parents.FindById(ctx, f.acct.ID, parent.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasPaymentMethod)
	assert.Equal(t, "pm_1", stored.DefaultPaymentMethodID)
	assert.Equal(t, []string{"cus_1:pm_1"}, f.fake.attached)

	row, err := f.events.FindByEventID(ctx, "evt_si")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, dbm.WebhookHandled, row.Outcome)
}

func TestWebhookService_SetupIntentOtherTenantIgnored(t *testing.T) {
	f := newWebhookFixture(t)
	other := testutil.SeedAccount(t, f.db, "acct_other")
	parent := testutil.SeedParent(t, f.db, f.acct.ID, "pat@example.test", 3)
	require.NoError(t, f.db.Model(parent).Update("stripe_customer_id", "cus_1").Error)

	payload, sig := signedEvent(t, "evt_x", "setup_intent.succeeded", other.StripeAccountID,
		`{"id":"seti_1","object":"setup_intent","customer":"cus_1","payment_method":"pm_1"}`)

	res, err := f.svc.Handle(context.Background(), payload, sig)
	require.NoError(t, err)
	assert.Equal(t, dbm.WebhookIgnored, res.Outcome)
	assert.Zero(t, f.fake.count("AttachPaymentMethod"))
}

func TestWebhookService_AccountUpdatedPopulatesOnce(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()
	acct := &dbm.Account{Name: "Riverside", Email: "office@riverside.test", StripeAccountID: "acct_new"}
	require.NoError(t, repositories.NewAccountRepository(f.db).Insert(ctx, acct))

	object := `{"id":"acct_new","object":"account","charges_enabled":true,"details_submitted":true,"payouts_enabled":true}`

	payload, sig := signedEvent(t, "evt_acct_1", "account.updated", "acct_new", object)
	res, err := f.svc.Handle(ctx, payload, sig)
	require.NoError(t, err)
	assert.Equal(t, dbm.WebhookHandled, res.Outcome)
	populated := f.fake.count("CreateProduct")
	require.Positive(t, populated)

	t.Run("same event redelivered", func(t *testing.T) {
		res, err := f.svc.Handle(ctx, payload, sig)
		require.NoError(t, err)
		assert.True(t, res.Duplicate)
		assert.Equal(t, populated, f.fake.count("CreateProduct"))
	})

	t.Run("new event same state", func(t *testing.T) {
		payload, sig := signedEvent(t, "evt_acct_2", "account.updated", "acct_new", object)
		res, err := f.svc.Handle(ctx, payload, sig)
		require.NoError(t, err)
		assert.False(t, res.Duplicate)
		assert.Equal(t, populated, f.fake.count("CreateProduct"))
	})
}

func TestWebhookService_UnknownTypeIgnored(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	payload, sig := signedEvent(t, "evt_charge", "charge.refunded", f.acct.StripeAccountID, `{"id":"ch_1","object":"charge"}`)
	res, err := f.svc.Handle(ctx, payload, sig)
	require.NoError(t, err)
	assert.Equal(t, dbm.WebhookIgnored, res.Outcome)

	row, err := f.events.FindByEventID(ctx, "evt_charge")
	require.NoError(t, err)
	assert.Equal(t, dbm.WebhookIgnored, row.Outcome)
}

func TestWebhookService_FailedHandlerIsRetried(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()
	parent := testutil.SeedParent(t, f.db, f.acct.ID, "pat@example.test", 3)
	require.NoError(t, f.db.Model(parent).Update("stripe_customer_id", "cus_1").Error)
	f.fake.failOn["AttachPaymentMethod"] = 1

	payload, sig := signedEvent(t, "evt_retry", "setup_intent.succeeded", f.acct.StripeAccountID,
		`{"id":"seti_1","object":"setup_intent","customer":"cus_1","payment_method":"pm_1"}`)

	_, err := f.svc.Handle(ctx, payload, sig)
	require.ErrorIs(t, err, errFakeDeclined)
	row, err := f.events.FindByEventID(ctx, "evt_retry")
	require.NoError(t, err)
	assert.Equal(t, dbm.WebhookFailed, row.Outcome)
	assert.NotEmpty(t, row.Error)

	res, err := f.svc.Handle(ctx, payload, sig)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	row, err = f.events.FindByEventID(ctx, "evt_retry")
	require.NoError(t, err)
	assert.Equal(t, dbm.WebhookHandled, row.Outcome)
	assert.Equal(t, 2, row.Attempts)
}

func TestWebhookService_InFlightDeliveryAcknowledged(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()
	guard := mem.NewMemoryGuard()
	proc := f.svc.(*webhookService)
	proc.guard = guard

	ok, err := guard.TryAcquire(ctx, "evt_busy", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	payload, sig := signedEvent(t, "evt_busy", "invoice.paid", f.acct.StripeAccountID, `{"id":"in_1","object":"invoice","status":"paid"}`)
	res, err := f.svc.Handle(ctx, payload, sig)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)

	row, err := f.events.FindByEventID(ctx, "evt_busy")
	require.NoError(t, err)
	assert.Nil(t, row)
}

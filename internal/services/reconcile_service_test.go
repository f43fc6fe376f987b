package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	dbm "schoolpay/internal/models/db_models"
	resp "schoolpay/internal/models/response_models"
	"schoolpay/internal/repositories"
	"schoolpay/internal/testutil"
)

func anomalyKinds(anomalies []resp.ReconcileAnomaly) map[string]string {
	out := map[string]string{}
	for _, a := range anomalies {
		out[a.RemoteID] = a.Kind
	}
	return out
}

func TestDiffParent(t *testing.T) {
	parent := &dbm.Parent{BaseModel: dbm.BaseModel{ID: uuid.New()}, CurrentSubscriptionID: "sub_current"}

	t.Run("in sync", func(t *testing.T) {
		got := diffParent(parent,
			[]RemoteSubscription{{ID: "sub_current", Status: "active"}},
			[]RemoteInvoice{{ID: "in_1", Status: "paid"}, {ID: "in_sub", Status: "paid", SubscriptionID: "sub_current"}},
			toSet([]string{"sub_current"}), toSet([]string{"in_1"}))
		assert.Empty(t, got)
	})

	t.Run("drift", func(t *testing.T) {
		got := diffParent(parent,
			[]RemoteSubscription{
				{ID: "sub_current", Status: "canceled"},
				{ID: "sub_stray", Status: "active"},
				{ID: "sub_old", Status: "canceled"},
			},
			[]RemoteInvoice{{ID: "in_lost", Status: "paid"}, {ID: "in_open", Status: "open"}},
			toSet([]string{"sub_current"}), toSet(nil))

		kinds := anomalyKinds(got)
		assert.Equal(t, map[string]string{
			"sub_current": AnomalyCurrentSubscription,
			"sub_stray":   AnomalyUnlinkedSubscription,
			"in_lost":     AnomalyUnrecordedPaidInvoice,
		}, kinds)
	})

	t.Run("current missing remotely", func(t *testing.T) {
		got := diffParent(parent, nil, nil, toSet(nil), toSet(nil))
		require.Len(t, got, 1)
		assert.Equal(t, AnomalyCurrentSubscription, got[0].Kind)
		assert.Equal(t, "not found remotely", got[0].Detail)
	})
}

func TestReconcileService_ReconcileAll(t *testing.T) {
	db := testutil.OpenTestDB(t)
	ctx := context.Background()
	fake := newFakeProcessor()
	acct := testutil.SeedAccount(t, db, "acct_school")
	pending := &dbm.Account{Name: "Pending", Email: "p@test", StripeAccountID: "acct_pending"}
	require.NoError(t, db.Create(pending).Error)

	synced := testutil.SeedParent(t, db, acct.ID, "pat@example.test", 3)
	require.NoError(t, db.Model(synced).Updates(map[string]interface{}{
		"stripe_customer_id":      "cus_synced",
		"current_subscription_id": "sub_ok",
	}).Error)
	require.NoError(t, db.Create(&dbm.ParentSubscription{
		ParentID: synced.ID, SubscriptionID: uuid.New(), SubscriptionPriceID: uuid.New(), StripeSubscriptionID: "sub_ok",
	}).Error)
	fake.remoteSubs["cus_synced"] = []RemoteSubscription{{ID: "sub_ok", Status: "active"}}

	drifted := testutil.SeedParent(t, db, acct.ID, "sam@example.test", 4)
	require.NoError(t, db.Model(drifted).Update("stripe_customer_id", "cus_drift").Error)
	fake.remoteSubs["cus_drift"] = []RemoteSubscription{{ID: "sub_orphan", Status: "active"}}
	fake.remoteInvoices["cus_drift"] = []RemoteInvoice{{ID: "in_orphan", Status: "paid", AmountPaid: 2000}}

	// no customer yet, so not checked
	testutil.SeedParent(t, db, acct.ID, "kim@example.test", 5)

	svc := NewReconcileService(repositories.NewAccountRepository(db), repositories.NewParentRepository(db),
		repositories.NewBillingRepository(db), fake, zap.NewNop())

	reports, err := svc.ReconcileAll(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)

	r := reports[0]
	assert.Equal(t, acct.ID.String(), r.AccountID)
	assert.Equal(t, 2, r.ParentsChecked)
	assert.Empty(t, r.Errors)
	assert.Equal(t, map[string]string{
		"sub_orphan": AnomalyUnlinkedSubscription,
		"in_orphan":  AnomalyUnrecordedPaidInvoice,
	}, anomalyKinds(r.Anomalies))
	for _, a := range r.Anomalies {
		assert.Equal(t, drifted.ID.String(), a.ParentID)
	}
}

func TestReconcileService_RemoteErrorsAreReported(t *testing.T) {
	db := testutil.OpenTestDB(t)
	fake := newFakeProcessor()
	fake.failOn["ListCustomerSubscriptions"] = 1
	acct := testutil.SeedAccount(t, db, "acct_school")
	parent := testutil.SeedParent(t, db, acct.ID, "pat@example.test", 3)
	require.NoError(t, db.Model(parent).Update("stripe_customer_id", "cus_1").Error)

	svc := NewReconcileService(repositories.NewAccountRepository(db), repositories.NewParentRepository(db),
		repositories.NewBillingRepository(db), fake, zap.NewNop())

	report, err := svc.ReconcileAccount(context.Background(), acct.ID)
	require.NoError(t, err)
	assert.Zero(t, report.ParentsChecked)
	assert.Len(t, report.Errors, 1)
}

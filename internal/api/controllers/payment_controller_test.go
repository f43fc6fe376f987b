package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	dbm "schoolpay/internal/models/db_models"
	"schoolpay/internal/services"
	"schoolpay/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubWebhookService struct {
	payload   []byte
	signature string
	err       error
}

func (s *stubWebhookService) Handle(_ context.Context, payload []byte, signature string) (*services.WebhookResult, error) {
	s.payload = payload
	s.signature = signature
	if s.err != nil {
		return nil, s.err
	}
	return &services.WebhookResult{EventID: "evt_1", Type: "invoice.paid", Outcome: dbm.WebhookHandled}, nil
}

func postWebhook(t *testing.T, svc services.WebhookService, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.POST("/webhooks/stripe", NewPaymentController(nil, nil, svc, zap.NewNop()).HandleWebhook)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPaymentController_HandleWebhook(t *testing.T) {
	t.Run("acknowledges processed events", func(t *testing.T) {
		svc := &stubWebhookService{}
		w := postWebhook(t, svc, `{"id":"evt_1"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"received":true}`, w.Body.String())
		assert.Equal(t, `{"id":"evt_1"}`, string(svc.payload))
		assert.Equal(t, "t=1,v1=abc", svc.signature)
	})

	t.Run("bad signature is a client error", func(t *testing.T) {
		svc := &stubWebhookService{err: fmt.Errorf("%w: no matching signature", utils.ErrInvalidWebhook)}
		w := postWebhook(t, svc, `{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NotContains(t, w.Body.String(), "no matching signature")
	})

	t.Run("handler failure asks for redelivery", func(t *testing.T) {
		svc := &stubWebhookService{err: errors.New("db down")}
		w := postWebhook(t, svc, `{}`)

		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "db down")
	})

	t.Run("oversized body is rejected", func(t *testing.T) {
		svc := &stubWebhookService{}
		w := postWebhook(t, svc, strings.Repeat("x", maxWebhookBody+1))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Nil(t, svc.payload)
	})
}

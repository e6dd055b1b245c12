package begincheckout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/velouria/commerce/internal/service/models/checkout"
	"github.com/velouria/commerce/internal/service/services/checkoutsvc"
)

type stubService struct {
	result checkoutsvc.BeginResult
	err    error
}

func (s *stubService) Begin(context.Context, string, string, checkout.Form) (checkoutsvc.BeginResult, error) {
	return s.result, s.err
}

func post(t *testing.T, svc service, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	rec := httptest.NewRecorder()
	BeginCheckout(rec, req, svc)

	return rec
}

func TestBeginCheckoutSuccess(t *testing.T) {
	t.Parallel()

	svc := &stubService{result: checkoutsvc.BeginResult{
		SessionID:      "sess-1",
		GatewayOrderID: "order_gw_1",
		GatewayKeyID:   "rzp_test_key",
		AmountMinor:    3600,
		Currency:       "USD",
	}}

	rec := post(t, svc, `{"cartId":"cart-1","country":"US","form":{"email":"a@b.c"}}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var result checkoutsvc.BeginResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	require.Equal(t, "sess-1", result.SessionID)
	require.Equal(t, int64(3600), result.AmountMinor)
}

func TestBeginCheckoutMissingCartID(t *testing.T) {
	t.Parallel()

	rec := post(t, &stubService{}, `{"country":"US"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBeginCheckoutBadJSON(t *testing.T) {
	t.Parallel()

	rec := post(t, &stubService{}, `{not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBeginCheckoutErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		code int
	}{
		{checkoutsvc.ErrValidation, http.StatusBadRequest},
		{checkoutsvc.ErrEmptyCart, http.StatusBadRequest},
		{checkoutsvc.ErrCheckoutInFlight, http.StatusConflict},
		{checkoutsvc.ErrGatewayOrder, http.StatusBadGateway},
	}

	for _, tc := range cases {
		rec := post(t, &stubService{err: tc.err}, `{"cartId":"cart-1"}`)
		require.Equal(t, tc.code, rec.Code, "error %v", tc.err)
	}
}

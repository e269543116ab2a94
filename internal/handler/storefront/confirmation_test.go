package storefront

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prg-04/uptime-decor-lights-sub000/internal/domain"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/service"
)

type stubEngine struct {
	calls       []service.ConfirmParams
	confirmFunc func(ctx context.Context, params service.ConfirmParams) (*service.Determination, error)
}

func (s *stubEngine) Confirm(ctx context.Context, params service.ConfirmParams) (*service.Determination, error) {
	s.calls = append(s.calls, params)
	if s.confirmFunc != nil {
		return s.confirmFunc(ctx, params)
	}
	return &service.Determination{OrderReference: params.OrderReference, Status: domain.StatusCompleted}, nil
}

func getConfirmation(t *testing.T, h *ConfirmationHandler, query string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/payment-confirmation"+query, nil)
	h.HandleConfirmation(w, r)
	return w
}

func decodeConfirmation(t *testing.T, w *httptest.ResponseRecorder) confirmationResponse {
	t.Helper()
	var resp confirmationResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func engineReturning(status domain.PaymentStatus) *stubEngine {
	return &stubEngine{
		confirmFunc: func(ctx context.Context, params service.ConfirmParams) (*service.Determination, error) {
			return &service.Determination{OrderReference: params.OrderReference, Status: status}, nil
		},
	}
}

func TestHandleConfirmation_MissingReference(t *testing.T) {
	h := NewConfirmationHandler(&stubEngine{})

	w := getConfirmation(t, h, "?OrderTrackingId=trk-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleConfirmation_MissingTrackingIDIsCancelled(t *testing.T) {
	engine := &stubEngine{}
	h := NewConfirmationHandler(engine)

	w := getConfirmation(t, h, "?OrderMerchantReference=UDL-1")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeConfirmation(t, w)
	assert.Equal(t, clientCancelled, resp.Status)
	assert.True(t, resp.CanRetry)
	assert.Empty(t, engine.calls, "abandoned return must not query the provider")
}

func TestHandleConfirmation_StatusVocabulary(t *testing.T) {
	tests := []struct {
		engineStatus domain.PaymentStatus
		wantStatus   string
		wantRetry    bool
	}{
		{domain.StatusCompleted, clientCompleted, false},
		{domain.StatusPending, clientPending, false},
		{domain.StatusUnknown, clientPending, false},
		{domain.StatusFailed, clientFailed, true},
		{domain.StatusInvalid, clientInvalid, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.engineStatus), func(t *testing.T) {
			h := NewConfirmationHandler(engineReturning(tt.engineStatus))

			w := getConfirmation(t, h, "?OrderMerchantReference=UDL-1&OrderTrackingId=trk-1")
			require.Equal(t, http.StatusOK, w.Code)

			resp := decodeConfirmation(t, w)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantRetry, resp.CanRetry)
		})
	}
}

func TestHandleConfirmation_UsesRedirectTrigger(t *testing.T) {
	engine := &stubEngine{}
	h := NewConfirmationHandler(engine)

	getConfirmation(t, h, "?OrderMerchantReference=UDL-1&OrderTrackingId=trk-1")

	require.Len(t, engine.calls, 1)
	assert.Equal(t, service.TriggerRedirect, engine.calls[0].Trigger)
	assert.Equal(t, "UDL-1", engine.calls[0].OrderReference)
	assert.Equal(t, "trk-1", engine.calls[0].TrackingID)
}

func TestHandleConfirmation_IncludesOrderDetailsWhenRecorded(t *testing.T) {
	engine := &stubEngine{
		confirmFunc: func(ctx context.Context, params service.ConfirmParams) (*service.Determination, error) {
			return &service.Determination{
				OrderReference: params.OrderReference,
				Status:         domain.StatusCompleted,
				Order: &domain.Order{
					OrderReference:   params.OrderReference,
					Status:           domain.OrderPaid,
					Amount:           2499,
					Currency:         "KES",
					ConfirmationCode: "SBC123XYZ",
				},
			}, nil
		},
	}
	h := NewConfirmationHandler(engine)

	w := getConfirmation(t, h, "?OrderMerchantReference=UDL-1&OrderTrackingId=trk-1")
	resp := decodeConfirmation(t, w)

	assert.Equal(t, 2499.0, resp.Amount)
	assert.Equal(t, "KES", resp.Currency)
	assert.Equal(t, "SBC123XYZ", resp.Confirmation)
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/username/scenariobudget/src/models"
)

func TestRPCConversionGatewayRoundTrip(t *testing.T) {
	var got rpcConversionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`[{"converted_amount":108.4},{"converted_amount":null}]`))
	}))
	defer srv.Close()

	gw := NewRPCConversionGateway(srv.URL, "key", srv.Client())
	items := []models.ConversionItem{{Amount: 100, Currency: "EUR"}, {Amount: 5, Currency: "GBP"}}

	out := gw.ConvertBulk(context.Background(), items, "USD")

	require.Len(t, out, len(items))
	require.NotNil(t, out[0].ConvertedAmount)
	assert.Equal(t, 108.4, *out[0].ConvertedAmount)
	assert.Nil(t, out[1].ConvertedAmount)
	assert.Equal(t, "USD", got.ToCurrency)
	assert.Equal(t, items, got.Items)
}

func TestRPCConversionGatewayFailuresReturnNil(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) { http.Error(w, "boom", http.StatusInternalServerError) }},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"oops":`)) }},
		{"null body", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`null`)) }},
		{"length mismatch", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`[{"converted_amount":1}]`)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			gw := NewRPCConversionGateway(srv.URL, "", srv.Client())

			out := gw.ConvertBulk(context.Background(), []models.ConversionItem{{Amount: 1, Currency: "EUR"}, {Amount: 2, Currency: "GBP"}}, "USD")
			assert.Nil(t, out)
		})
	}
}

func TestRPCConversionGatewaySkipsEmptyRequests(t *testing.T) {
	gw := NewRPCConversionGateway("http://unused.invalid", "", nil)

	assert.Nil(t, gw.ConvertBulk(context.Background(), nil, "USD"))
	assert.Nil(t, gw.ConvertBulk(context.Background(), []models.ConversionItem{{Amount: 1, Currency: "EUR"}}, ""))
}

type mockRateConverter struct{ mock.Mock }

func (m *mockRateConverter) Convert(ctx context.Context, amount float64, from, to string, date time.Time) (float64, error) {
	args := m.Called(amount, from, to)
	return args.Get(0).(float64), args.Error(1)
}

func TestRateConversionGatewayKeepsIndexAlignment(t *testing.T) {
	rates := new(mockRateConverter)
	rates.On("Convert", 100.0, "EUR", "USD").Return(108.4, nil)
	rates.On("Convert", 10.0, "XXX", "USD").Return(0.0, errors.New("no rate"))
	rates.On("Convert", 50.0, "GBP", "USD").Return(63.5, nil)

	gw := NewRateConversionGateway(rates, func() time.Time { return time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC) })
	out := gw.ConvertBulk(context.Background(), []models.ConversionItem{
		{Amount: 100, Currency: "EUR"},
		{Amount: 10, Currency: "XXX"},
		{Amount: 50, Currency: "GBP"},
	}, "USD")

	require.Len(t, out, 3)
	assert.Equal(t, 108.4, *out[0].ConvertedAmount)
	assert.Nil(t, out[1].ConvertedAmount)
	assert.Equal(t, 63.5, *out[2].ConvertedAmount)
	rates.AssertExpectations(t)
}

func TestRateConversionGatewayAllFailedIsNil(t *testing.T) {
	rates := new(mockRateConverter)
	rates.On("Convert", mock.Anything, mock.Anything, mock.Anything).Return(0.0, errors.New("offline"))

	gw := NewRateConversionGateway(rates, nil)
	assert.Nil(t, gw.ConvertBulk(context.Background(), []models.ConversionItem{{Amount: 1, Currency: "EUR"}}, "USD"))
}

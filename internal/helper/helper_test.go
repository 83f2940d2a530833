package helper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSOLToLamports(t *testing.T) {
	assert.Equal(t, uint64(100_000_000), SOLToLamports(0.1))
	assert.Equal(t, uint64(1_000_000_000), SOLToLamports(1))
	assert.Equal(t, uint64(0), SOLToLamports(-1))
	assert.InDelta(t, 0.25, LamportsToSOL(250_000_000), 1e-12)
}

func TestFractionOf(t *testing.T) {
	assert.Equal(t, 750_000.0, FractionOf(1_000_000, 0.75))
	assert.Equal(t, 7.0, FractionOf(10, 0.75))
	assert.Equal(t, uint64(3), RawUnits(3.9))
}

func TestParseFloat(t *testing.T) {
	assert.Equal(t, 1.5, ParseFloat(" 1.5 "))
	assert.Zero(t, ParseFloat("n/a"))
	assert.Zero(t, ParseFloat("NaN"))
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte(`{"value":42}`))
		case "/bad":
			_, _ = w.Write([]byte(`{"value":`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	var out struct {
		Value int `json:"value"`
	}
	require.NoError(t, GetJSON(context.Background(), srv.Client(), srv.URL+"/ok", nil, &out))
	assert.Equal(t, 42, out.Value)

	err := GetJSON(context.Background(), srv.Client(), srv.URL+"/bad", nil, &out)
	assert.ErrorIs(t, err, ErrMalformed)

	err = GetJSON(context.Background(), srv.Client(), srv.URL+"/down", nil, &out)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Code)
}

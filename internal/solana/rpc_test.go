package solana

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMint = "So11111111111111111111111111111111111111112"

func TestValidateAddress(t *testing.T) {
	require.NoError(t, ValidateAddress(testMint))
	assert.ErrorIs(t, ValidateAddress("not-base58-0OIl"), ErrInvalidAddress)
	assert.ErrorIs(t, ValidateAddress("abc"), ErrInvalidAddress)
}

func TestGetMintInfo_FallsBackToSecondEndpoint(t *testing.T) {
	var primaryHits atomic.Int32
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		primaryHits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer primary.Close()

	backup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"getAccountInfo"`)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"value":{"owner":"Tokenkeg","data":{"program":"spl-token",
			"parsed":{"type":"mint","info":{"mintAuthority":null,"freezeAuthority":"Fr33ze","supply":"1000","decimals":6,"isInitialized":true}}}}}}`))
	}))
	defer backup.Close()

	c := NewClient(primary.URL, WithFallbacks(backup.URL))
	info, err := c.GetMintInfo(context.Background(), testMint)
	require.NoError(t, err)
	assert.Nil(t, info.MintAuthority)
	require.NotNil(t, info.FreezeAuthority)
	assert.Equal(t, "Fr33ze", *info.FreezeAuthority)
	assert.Equal(t, int32(1), primaryHits.Load())
}

func TestGetBalance_RPCErrorNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"bad params"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithFallbacks(srv.URL))
	_, err := c.GetBalance(context.Background(), testMint)
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32602, rpcErr.Code)
	assert.Equal(t, int32(1), hits.Load())
}

func TestGetMintInfo_MissingAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"value":null}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetMintInfo(context.Background(), testMint)
	assert.ErrorIs(t, err, ErrAccountMissing)
}

// Package solana is a minimal JSON-RPC client for the calls the sniper needs.
package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/mr-tron/base58"

	"solana_sniper/internal/helper"
)

const DefaultTimeout = 10 * time.Second

var (
	ErrInvalidAddress = errors.New("invalid solana address")
	ErrAccountMissing = errors.New("account not found")
)

// ValidateAddress checks that addr is base58 and decodes to a 32 byte public key.
func ValidateAddress(addr string) error {
	raw, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("%w: %d bytes", ErrInvalidAddress, len(raw))
	}
	return nil
}

// Client talks to an ordered list of RPC endpoints. A call moves to the next endpoint on
// transport or HTTP failure; RPC-level errors are returned as is.
type Client struct {
	endpoints []string
	http      *http.Client
	requestID atomic.Uint64
}

type ClientOption func(*Client)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.http = client
	}
}

// WithFallbacks appends backup endpoints tried after the primary.
func WithFallbacks(urls ...string) ClientOption {
	return func(c *Client) {
		c.endpoints = append(c.endpoints, urls...)
	}
}

func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoints: []string{endpoint},
		http:      &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	body, err := sonic.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var errs []error
	for _, endpoint := range c.endpoints {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		var resp rpcResponse
		if err := helper.DoJSON(c.http, req, &resp); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", endpoint, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if resp.Error != nil {
			return resp.Error
		}
		if result != nil && len(resp.Result) > 0 {
			if err := sonic.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("%w: %s result: %v", helper.ErrMalformed, method, err)
			}
		}
		return nil
	}
	return fmt.Errorf("%s: all rpc endpoints failed: %w", method, errors.Join(errs...))
}

// MintInfo is the parsed SPL mint account.
type MintInfo struct {
	MintAuthority   *string `json:"mintAuthority"`
	FreezeAuthority *string `json:"freezeAuthority"`
	Supply          string  `json:"supply"`
	Decimals        int     `json:"decimals"`
	IsInitialized   bool    `json:"isInitialized"`
}

type accountInfoResult struct {
	Value *struct {
		Owner string `json:"owner"`
		Data  struct {
			Program string `json:"program"`
			Parsed  struct {
				Type string   `json:"type"`
				Info MintInfo `json:"info"`
			} `json:"parsed"`
		} `json:"data"`
	} `json:"value"`
}

// GetMintInfo fetches a mint account with jsonParsed encoding.
func (c *Client) GetMintInfo(ctx context.Context, mint string) (MintInfo, error) {
	if err := ValidateAddress(mint); err != nil {
		return MintInfo{}, err
	}
	var res accountInfoResult
	params := []any{mint, map[string]any{"encoding": "jsonParsed", "commitment": "confirmed"}}
	if err := c.call(ctx, "getAccountInfo", params, &res); err != nil {
		return MintInfo{}, err
	}
	if res.Value == nil {
		return MintInfo{}, fmt.Errorf("%w: %s", ErrAccountMissing, mint)
	}
	if res.Value.Data.Parsed.Type != "mint" {
		return MintInfo{}, fmt.Errorf("%w: %s is %q, not a mint", helper.ErrMalformed, mint, res.Value.Data.Parsed.Type)
	}
	return res.Value.Data.Parsed.Info, nil
}

// GetBalance returns the wallet balance in lamports.
func (c *Client) GetBalance(ctx context.Context, addr string) (uint64, error) {
	if err := ValidateAddress(addr); err != nil {
		return 0, err
	}
	var res struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", []any{addr}, &res); err != nil {
		return 0, err
	}
	return res.Value, nil
}

// GetHealth is a cheap liveness probe.
func (c *Client) GetHealth(ctx context.Context) error {
	var res string
	return c.call(ctx, "getHealth", nil, &res)
}
